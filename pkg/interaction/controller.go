// Package interaction turns pointer and keyboard input into selection,
// drag, pan/zoom, path highlighting and layout commands.
package interaction

import (
	"context"
	"math"
	"sync"

	"github.com/dd0wney/saga-graph/pkg/graph"
	"github.com/dd0wney/saga-graph/pkg/logging"
	"github.com/dd0wney/saga-graph/pkg/simhost"
	"github.com/dd0wney/saga-graph/pkg/visualization"
)

// State is the controller's interaction state
type State string

const (
	StateIdle      State = "idle"
	StateHovering  State = "hovering"
	StateSelecting State = "selecting"
	StateDragging  State = "dragging"
	StatePanning   State = "panning"
)

// Host is the part of the simulation host the controller drives.
// simhost.Host satisfies it.
type Host interface {
	Drag(ev simhost.DragEvent) error
	ShortestPath(ctx context.Context, sourceID, targetID string) ([]string, bool, error)
	Read(fn func())
}

// Modifiers are the keyboard modifiers held during a pointer event
type Modifiers struct {
	Shift bool
	Ctrl  bool
	Alt   bool
}

// Button identifies the pointer button
type Button int

const (
	ButtonLeft Button = iota
	ButtonMiddle
	ButtonRight
)

// Callbacks connect the controller to the rest of the session. Nil
// callbacks are skipped.
type Callbacks struct {
	OnNavigate     func(url string)
	OnSwitchLayout func(kind visualization.Kind) error
	OnSave         func() error
	OnDetails      func(nodeID string)
	OnFocus        func(nodeID string)
	// OnRedraw is called after any change that needs a new frame
	OnRedraw func()
}

// press is an active pointer press
type press struct {
	startX, startY float64
	lastX, lastY   float64
	nodeID         string
	mods           Modifiers
}

// Controller is the interaction state machine for one session. Its methods
// are safe for concurrent use. Graph flags (selection, emphasis,
// visibility) are written inside Host.Read so they never race a frame.
type Controller struct {
	mu       sync.Mutex
	cfg      Config
	host     Host
	g        *graph.Graph
	viewport *Viewport
	notifier Notifier
	cb       Callbacks
	logger   logging.Logger

	state      State
	hovered    string
	press      *press
	selection  []string
	path       []string
	pathSource string
}

// New creates a controller over g with a viewport of width × height
func New(cfg Config, host Host, g *graph.Graph, width, height float64, notifier Notifier, cb Callbacks, logger logging.Logger) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Controller{
		cfg:      cfg,
		host:     host,
		g:        g,
		viewport: NewViewport(width, height, cfg.MinZoom, cfg.MaxZoom),
		notifier: notifier,
		cb:       cb,
		logger:   logging.OrNop(logger).With(logging.Component("interaction")),
		state:    StateIdle,
	}, nil
}

// SetGraph replaces the graph after a reload and clears selection, path
// and any pending gesture.
func (c *Controller) SetGraph(g *graph.Graph) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.g = g
	c.selection, c.path = nil, nil
	c.pathSource, c.hovered = "", ""
	c.press = nil
	c.state = StateIdle
}

// State returns the current interaction state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Hovered returns the id of the node under the pointer, if any
func (c *Controller) Hovered() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hovered
}

// Viewport runs fn with the viewport. fn must not call the controller.
func (c *Controller) Viewport(fn func(v *Viewport)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.viewport)
}

func (c *Controller) redraw() {
	if c.cb.OnRedraw != nil {
		c.cb.OnRedraw()
	}
}

// nodeAt returns the topmost visible node under the screen point. Callers
// hold c.mu.
func (c *Controller) nodeAt(sx, sy float64) *graph.Node {
	if c.g == nil {
		return nil
	}
	wx, wy := c.viewport.ScreenToWorld(sx, sy)
	var hit *graph.Node
	c.host.Read(func() {
		for i := len(c.g.Nodes) - 1; i >= 0; i-- {
			n := c.g.Nodes[i]
			if n.Hidden {
				continue
			}
			if math.Hypot(wx-n.X, wy-n.Y) <= n.Radius() {
				hit = n
				return
			}
		}
	})
	return hit
}

// PointerDown starts a press. The right button opens the context menu.
func (c *Controller) PointerDown(x, y float64, button Button, mods Modifiers) *Menu {
	if button == ButtonRight {
		return c.ContextMenu(x, y)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	p := &press{startX: x, startY: y, lastX: x, lastY: y, mods: mods}
	if n := c.nodeAt(x, y); n != nil {
		p.nodeID = n.ID
		c.state = StateSelecting
	}
	c.press = p
	return nil
}

// PointerMove updates hover, drags a pressed node or pans the background
func (c *Controller) PointerMove(x, y float64) {
	c.mu.Lock()
	p := c.press
	if p == nil {
		changed := c.updateHover(x, y)
		c.mu.Unlock()
		if changed {
			c.redraw()
		}
		return
	}

	moved := math.Hypot(x-p.startX, y-p.startY) > c.cfg.DragThreshold
	switch {
	case c.state == StateDragging:
		wx, wy := c.viewport.ScreenToWorld(x, y)
		c.mu.Unlock()
		c.drag(simhost.DragEvent{NodeID: p.nodeID, X: wx, Y: wy, Phase: simhost.DragMove})
		return

	case p.nodeID != "" && moved:
		c.state = StateDragging
		id := p.nodeID
		wx, wy := c.viewport.ScreenToWorld(x, y)
		var nx, ny float64
		c.host.Read(func() {
			if n, ok := c.g.Node(id); ok {
				nx, ny = n.X, n.Y
			}
		})
		c.mu.Unlock()
		c.drag(simhost.DragEvent{NodeID: id, X: nx, Y: ny, Phase: simhost.DragStart})
		c.drag(simhost.DragEvent{NodeID: id, X: wx, Y: wy, Phase: simhost.DragMove})
		return

	case p.nodeID == "" && (moved || c.state == StatePanning):
		c.state = StatePanning
		c.viewport.Pan(x-p.lastX, y-p.lastY)
		p.lastX, p.lastY = x, y
		c.mu.Unlock()
		c.redraw()
		return
	}
	c.mu.Unlock()
}

// updateHover tracks the node under the pointer. Callers hold c.mu.
func (c *Controller) updateHover(x, y float64) bool {
	id := ""
	if n := c.nodeAt(x, y); n != nil {
		id = n.ID
	}
	if id == c.hovered {
		return false
	}
	c.hovered = id
	if id != "" {
		c.state = StateHovering
	} else {
		c.state = StateIdle
	}
	return true
}

// PointerUp ends a drag or pan, or completes a click
func (c *Controller) PointerUp(x, y float64) {
	c.mu.Lock()
	p := c.press
	c.press = nil
	state := c.state
	c.state = StateIdle
	if p == nil {
		c.mu.Unlock()
		return
	}
	switch state {
	case StateDragging:
		c.mu.Unlock()
		// the pin stays where the pointer left it
		c.drag(simhost.DragEvent{NodeID: p.nodeID, Phase: simhost.DragEnd})
		return
	case StatePanning:
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.click(p.nodeID, p.mods)
}

// Click performs a click on a node id without pointer geometry; "" is a
// background click.
func (c *Controller) Click(nodeID string, mods Modifiers) {
	c.click(nodeID, mods)
}

func (c *Controller) click(nodeID string, mods Modifiers) {
	c.mu.Lock()
	if c.g == nil {
		c.mu.Unlock()
		return
	}
	if nodeID == "" {
		c.pathSource = ""
		c.clearSelectionLocked()
		c.mu.Unlock()
		c.redraw()
		return
	}

	var url string
	c.host.Read(func() {
		if n, ok := c.g.Node(nodeID); ok {
			url = n.URL
		}
	})

	if src := c.pathSource; src != "" {
		c.pathSource = ""
		c.mu.Unlock()
		c.FindPath(context.Background(), src, nodeID)
		return
	}

	switch {
	case mods.Shift && c.cfg.MultiSelect:
		c.toggleLocked(nodeID)
	case url != "" && c.cfg.NavigateOnClick:
		c.mu.Unlock()
		if c.cb.OnNavigate != nil {
			c.cb.OnNavigate(url)
		}
		return
	default:
		c.selectOnlyLocked(nodeID)
	}
	c.mu.Unlock()
	c.redraw()
}

// DoubleClick releases the pin of the node under the pointer
func (c *Controller) DoubleClick(x, y float64) {
	c.mu.Lock()
	n := c.nodeAt(x, y)
	c.press = nil
	c.state = StateIdle
	c.mu.Unlock()
	if n != nil {
		c.Release(n.ID)
	}
}

// Release clears a node's pin and lets the simulation re-settle
func (c *Controller) Release(nodeID string) {
	c.drag(simhost.DragEvent{NodeID: nodeID, Phase: simhost.DragRelease})
}

// Pin fixes a node at its current position
func (c *Controller) Pin(nodeID string) {
	var x, y float64
	var ok bool
	c.mu.Lock()
	c.host.Read(func() {
		var n *graph.Node
		if n, ok = c.g.Node(nodeID); ok {
			x, y = n.X, n.Y
		}
	})
	c.mu.Unlock()
	if !ok {
		return
	}
	c.drag(simhost.DragEvent{NodeID: nodeID, X: x, Y: y, Phase: simhost.DragStart})
	c.drag(simhost.DragEvent{NodeID: nodeID, Phase: simhost.DragEnd})
}

func (c *Controller) drag(ev simhost.DragEvent) {
	if err := c.host.Drag(ev); err != nil {
		c.logger.Warn("drag rejected",
			logging.NodeID(ev.NodeID),
			logging.String("phase", string(ev.Phase)),
			logging.Error(err))
	}
}

// Wheel zooms about the pointer. Negative deltaY zooms in.
func (c *Controller) Wheel(x, y, deltaY float64) {
	c.mu.Lock()
	c.viewport.ZoomAt(math.Pow(c.cfg.ZoomStep, -deltaY/100), x, y)
	c.mu.Unlock()
	c.redraw()
}

// ZoomBy zooms about the viewport centre by factor
func (c *Controller) ZoomBy(factor float64) {
	c.mu.Lock()
	c.viewport.ZoomAt(factor, c.viewport.Width/2, c.viewport.Height/2)
	c.mu.Unlock()
	c.redraw()
}

// ResetView restores the identity transform
func (c *Controller) ResetView() {
	c.mu.Lock()
	c.viewport.Reset()
	c.mu.Unlock()
	c.redraw()
}

// Focus animates the viewport onto a node
func (c *Controller) Focus(ctx context.Context, nodeID string) error {
	c.mu.Lock()
	var x, y float64
	var ok bool
	c.host.Read(func() {
		var n *graph.Node
		if n, ok = c.g.Node(nodeID); ok {
			x, y = n.X, n.Y
		}
	})
	if !ok {
		c.mu.Unlock()
		return simhost.ErrUnknownNode
	}
	target := c.viewport.CenteredOn(x, y, c.cfg.FocusZoom)
	c.mu.Unlock()

	if c.cb.OnFocus != nil {
		c.cb.OnFocus(nodeID)
	}
	// Each frame takes the lock so input can interleave with the animation.
	// A pan or zoom in between ends the animation where the user left it.
	v := &Viewport{}
	c.mu.Lock()
	*v = *c.viewport
	c.mu.Unlock()
	last := v.T
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	interrupted := false
	err := v.Animate(ctx, target, c.cfg.FocusDuration, c.cfg.FrameInterval, func() {
		c.mu.Lock()
		if c.viewport.T != last {
			c.mu.Unlock()
			interrupted = true
			cancel()
			return
		}
		c.viewport.T = v.T
		last = v.T
		c.mu.Unlock()
		c.redraw()
	})
	if interrupted {
		return nil
	}
	return err
}
