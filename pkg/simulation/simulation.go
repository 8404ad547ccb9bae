// Package simulation is a velocity-Verlet force simulation over graph nodes
// with d3-force semantics: alpha cooling, velocity decay and pinned nodes.
package simulation

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/dd0wney/saga-graph/pkg/graph"
	"github.com/dd0wney/saga-graph/pkg/logging"
)

// EndReason explains why a run loop returned
type EndReason string

const (
	EndConverged EndReason = "converged"
	EndMaxTicks  EndReason = "max-ticks"
	EndStopped   EndReason = "stopped"
	EndCancelled EndReason = "cancelled"
)

// ErrAlreadyRunning is returned by Run when another run loop is active
var ErrAlreadyRunning = errors.New("simulation already running")

// Force mutates node velocities (or positions) once per tick
type Force interface {
	Initialize(nodes []*graph.Node, rng *rand.Rand)
	Apply(alpha float64)
}

// Hooks are invoked from the run loop without the simulation lock held
type Hooks struct {
	OnTick func(tick int)
	OnEnd  func(reason EndReason)
}

type namedForce struct {
	name  string
	force Force
}

// Simulation owns alpha and integrates node positions. All mutation happens
// under Locker(); readers that need a consistent view take the same lock.
type Simulation struct {
	cfg    Config
	nodes  []*graph.Node
	forces []namedForce
	rng    *rand.Rand
	logger logging.Logger
	locker sync.Locker

	alpha       float64
	alphaTarget float64
	ticks       int

	running bool
	stopCh  chan struct{}
}

// New creates a simulation over nodes. Nodes without a finite position are
// placed on a phyllotaxis spiral around the origin.
func New(nodes []*graph.Node, cfg Config, logger logging.Logger) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Simulation{
		cfg:         cfg,
		nodes:       nodes,
		rng:         rand.New(rand.NewSource(cfg.Seed)),
		logger:      logging.OrNop(logger).With(logging.Component("simulation")),
		locker:      &sync.Mutex{},
		alpha:       cfg.Alpha,
		alphaTarget: cfg.AlphaTarget,
	}
	for i, n := range nodes {
		if !n.HasFinitePosition() {
			x, y := Phyllotaxis(i)
			n.X, n.Y = x, y
		}
		if math.IsNaN(n.VX) || math.IsNaN(n.VY) {
			n.VX, n.VY = 0, 0
		}
	}
	return s, nil
}

// Phyllotaxis returns the i-th point of the deterministic initial spiral
func Phyllotaxis(i int) (x, y float64) {
	const initialRadius = 10.0
	initialAngle := math.Pi * (3 - math.Sqrt(5))
	r := initialRadius * math.Sqrt(0.5+float64(i))
	a := float64(i) * initialAngle
	return r * math.Cos(a), r * math.Sin(a)
}

// PlaceSpiral puts every unpinned node on the phyllotaxis spiral centered on
// (cx, cy) and clears velocities.
func PlaceSpiral(nodes []*graph.Node, cx, cy float64) {
	for i, n := range nodes {
		if n.IsFixed() {
			continue
		}
		x, y := Phyllotaxis(i)
		n.X, n.Y = cx+x, cy+y
		n.VX, n.VY = 0, 0
	}
}

// SetLocker replaces the lock guarding node mutation. Hosts share their own
// mutex so that drag handling and ticks never interleave.
func (s *Simulation) SetLocker(l sync.Locker) {
	s.locker = l
}

// Locker returns the lock guarding node mutation
func (s *Simulation) Locker() sync.Locker {
	return s.locker
}

// Nodes returns the simulated nodes
func (s *Simulation) Nodes() []*graph.Node {
	return s.nodes
}

// Config returns the integrator configuration
func (s *Simulation) Config() Config {
	return s.cfg
}

// SetForce installs or replaces a named force. A nil force removes it.
func (s *Simulation) SetForce(name string, f Force) {
	for i, nf := range s.forces {
		if nf.name == name {
			if f == nil {
				s.forces = append(s.forces[:i], s.forces[i+1:]...)
				return
			}
			f.Initialize(s.nodes, s.rng)
			s.forces[i].force = f
			return
		}
	}
	if f == nil {
		return
	}
	f.Initialize(s.nodes, s.rng)
	s.forces = append(s.forces, namedForce{name: name, force: f})
}

// Force returns the named force, or nil
func (s *Simulation) Force(name string) Force {
	for _, nf := range s.forces {
		if nf.name == name {
			return nf.force
		}
	}
	return nil
}

// Alpha returns the current alpha. Callers hold Locker() when the
// simulation may be running.
func (s *Simulation) Alpha() float64 {
	return s.alpha
}

// Ticks returns the ticks since construction or the last Reheat
func (s *Simulation) Ticks() int {
	return s.ticks
}

// SetAlphaTarget changes the value alpha decays toward. Callers hold Locker().
func (s *Simulation) SetAlphaTarget(target float64) {
	s.alphaTarget = target
}

// AlphaTarget returns the value alpha decays toward
func (s *Simulation) AlphaTarget() float64 {
	return s.alphaTarget
}

// Reheat raises alpha to at least a and resets the tick ceiling. Callers
// hold Locker(); a run loop that already ended must be restarted by the
// caller.
func (s *Simulation) Reheat(a float64) {
	if a > s.alpha {
		s.alpha = a
	}
	s.ticks = 0
}

// Settled reports whether a run loop would stop now. A raised alpha
// target keeps the simulation alive even when alpha itself is low.
func (s *Simulation) Settled() bool {
	return s.alpha < s.cfg.AlphaMin && s.alphaTarget < s.cfg.AlphaMin
}

// Tick advances the simulation one step. Callers hold Locker().
func (s *Simulation) Tick() {
	s.alpha += (s.alphaTarget - s.alpha) * s.cfg.AlphaDecay

	for _, nf := range s.forces {
		nf.force.Apply(s.alpha)
	}

	decay := 1 - s.cfg.VelocityDecay
	for _, n := range s.nodes {
		if n.FX != nil {
			n.X, n.VX = *n.FX, 0
		} else {
			n.VX *= decay
			n.X += n.VX
		}
		if n.FY != nil {
			n.Y, n.VY = *n.FY, 0
		} else {
			n.VY *= decay
			n.Y += n.VY
		}
	}
	s.ticks++
}

// Settle ticks synchronously until the simulation converges or MaxTicks is
// reached, and returns the number of ticks taken.
func (s *Simulation) Settle() int {
	s.locker.Lock()
	defer s.locker.Unlock()
	start := s.ticks
	for !s.Settled() && s.ticks < s.cfg.MaxTicks {
		s.Tick()
	}
	return s.ticks - start
}

// Running reports whether a run loop is active
func (s *Simulation) Running() bool {
	s.locker.Lock()
	defer s.locker.Unlock()
	return s.running
}

// Stop asks the active run loop to return. It does not wait.
func (s *Simulation) Stop() {
	s.locker.Lock()
	defer s.locker.Unlock()
	if s.running && s.stopCh != nil {
		close(s.stopCh)
		s.stopCh = nil
	}
}

// Run ticks until alpha falls below AlphaMin, MaxTicks is reached, ctx is
// cancelled or Stop is called. Ticks are paced by FrameInterval when it is
// positive.
func (s *Simulation) Run(ctx context.Context, hooks Hooks) (EndReason, error) {
	s.locker.Lock()
	if s.running {
		s.locker.Unlock()
		return "", ErrAlreadyRunning
	}
	s.running = true
	stop := make(chan struct{})
	s.stopCh = stop
	s.locker.Unlock()

	var pace <-chan time.Time
	if s.cfg.FrameInterval > 0 {
		ticker := time.NewTicker(s.cfg.FrameInterval)
		defer ticker.Stop()
		pace = ticker.C
	}

	reason := s.loop(ctx, stop, pace, hooks)

	s.locker.Lock()
	s.running = false
	if s.stopCh == stop {
		s.stopCh = nil
	}
	ticks := s.ticks
	alpha := s.alpha
	s.locker.Unlock()

	s.logger.Debug("simulation ended",
		logging.String("reason", string(reason)),
		logging.Tick(ticks),
		logging.Float64("alpha", alpha))
	if hooks.OnEnd != nil {
		hooks.OnEnd(reason)
	}
	return reason, nil
}

func (s *Simulation) loop(ctx context.Context, stop <-chan struct{}, pace <-chan time.Time, hooks Hooks) EndReason {
	for {
		select {
		case <-ctx.Done():
			return EndCancelled
		case <-stop:
			return EndStopped
		default:
		}

		s.locker.Lock()
		if s.Settled() {
			s.locker.Unlock()
			return EndConverged
		}
		if s.ticks >= s.cfg.MaxTicks {
			s.locker.Unlock()
			return EndMaxTicks
		}
		s.Tick()
		tick := s.ticks
		s.locker.Unlock()

		if hooks.OnTick != nil {
			hooks.OnTick(tick)
		}

		if pace != nil {
			select {
			case <-ctx.Done():
				return EndCancelled
			case <-stop:
				return EndStopped
			case <-pace:
			}
		}
	}
}

// jiggle returns a tiny random offset used to separate coincident nodes
func jiggle(rng *rand.Rand) float64 {
	return (rng.Float64() - 0.5) * 1e-6
}
