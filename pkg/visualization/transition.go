package visualization

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/dd0wney/saga-graph/pkg/graph"
)

// EaseCubicInOut is the cubic in-out easing curve on [0, 1]
func EaseCubicInOut(t float64) float64 {
	t = math.Max(0, math.Min(1, t))
	if t < 0.5 {
		return 4 * t * t * t
	}
	u := -2*t + 2
	return 1 - u*u*u/2
}

type tween struct {
	node     *graph.Node
	from, to Position
}

// Transition animates nodes from their current positions to targets
type Transition struct {
	tweens   []tween
	Duration time.Duration
	Interval time.Duration
	Easing   func(float64) float64
}

// Guard adapts a sync.Locker for Run
func Guard(l sync.Locker) func(step func()) {
	return func(step func()) {
		l.Lock()
		defer l.Unlock()
		step()
	}
}

// NewTransition captures the current position of every node that has a
// target. Nodes without a target are left alone.
func NewTransition(nodes []*graph.Node, targets map[string]Position, duration, interval time.Duration) *Transition {
	t := &Transition{
		Duration: duration,
		Interval: interval,
		Easing:   EaseCubicInOut,
	}
	for _, n := range nodes {
		to, ok := targets[n.ID]
		if !ok {
			continue
		}
		from := Position{X: n.X, Y: n.Y}
		if !n.HasFinitePosition() {
			from = to
		}
		t.tweens = append(t.tweens, tween{node: n, from: from, to: to})
	}
	return t
}

// Frames returns the number of frames Run will emit, at least one
func (t *Transition) Frames() int {
	if t.Interval <= 0 || t.Duration <= 0 {
		return 1
	}
	return max(1, int(math.Ceil(float64(t.Duration)/float64(t.Interval))))
}

// At moves every node to the eased position for progress in [0, 1]
func (t *Transition) At(progress float64) {
	k := t.Easing(progress)
	for _, tw := range t.tweens {
		tw.node.X = tw.from.X + (tw.to.X-tw.from.X)*k
		tw.node.Y = tw.from.Y + (tw.to.Y-tw.from.Y)*k
	}
}

// Run steps through every frame, mutating nodes inside guard and calling
// onFrame after each step. guard is typically a simulation host's Read; nil
// runs steps unguarded. The final frame always lands on the targets, also
// when ctx is cancelled part-way.
func (t *Transition) Run(ctx context.Context, guard func(step func()), onFrame func(frame int)) error {
	if guard == nil {
		guard = func(step func()) { step() }
	}
	frames := t.Frames()
	var ticker *time.Ticker
	if frames > 1 {
		ticker = time.NewTicker(t.Interval)
		defer ticker.Stop()
	}

	step := func(frame int, progress float64) {
		guard(func() { t.At(progress) })
		if onFrame != nil {
			onFrame(frame)
		}
	}

	for frame := 1; frame <= frames; frame++ {
		if frame > 1 {
			select {
			case <-ctx.Done():
				step(frames, 1)
				return ctx.Err()
			case <-ticker.C:
			}
		}
		step(frame, float64(frame)/float64(frames))
	}
	return nil
}
