package interaction

import (
	"context"
	"fmt"
)

// MenuAction is a context menu entry
type MenuAction string

const (
	ActionExpand   MenuAction = "expand"
	ActionCollapse MenuAction = "collapse"
	ActionFocus    MenuAction = "focus"
	ActionPathFrom MenuAction = "path-from"
	ActionDetails  MenuAction = "details"
	ActionPin      MenuAction = "pin"
	ActionRelease  MenuAction = "release"
)

// MenuItem is one labelled entry
type MenuItem struct {
	Action MenuAction `json:"action"`
	Label  string     `json:"label"`
}

// Menu is the context menu for one node
type Menu struct {
	NodeID string     `json:"nodeId"`
	Items  []MenuItem `json:"items"`
}

// ContextMenu returns the menu for the node under the pointer, or nil over
// the background.
func (c *Controller) ContextMenu(x, y float64) *Menu {
	c.mu.Lock()
	n := c.nodeAt(x, y)
	c.press = nil
	c.state = StateIdle
	c.mu.Unlock()
	if n == nil {
		return nil
	}
	return c.MenuFor(n.ID)
}

// MenuFor builds the menu of a visible node. Pin and release swap
// depending on whether the node is fixed.
func (c *Controller) MenuFor(nodeID string) *Menu {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.g == nil {
		return nil
	}
	var visible, fixed bool
	c.host.Read(func() {
		visible = visibleNode(c.g, nodeID)
		if n, ok := c.g.Node(nodeID); ok {
			fixed = n.IsFixed()
		}
	})
	if !visible {
		return nil
	}
	pin := MenuItem{Action: ActionPin, Label: "Pin"}
	if fixed {
		pin = MenuItem{Action: ActionRelease, Label: "Release"}
	}
	return &Menu{
		NodeID: nodeID,
		Items: []MenuItem{
			{Action: ActionExpand, Label: "Expand neighbors"},
			{Action: ActionCollapse, Label: "Collapse"},
			{Action: ActionFocus, Label: "Focus"},
			{Action: ActionPathFrom, Label: "Find shortest path from here"},
			{Action: ActionDetails, Label: "View details"},
			pin,
		},
	}
}

// Invoke runs a menu action on a node
func (c *Controller) Invoke(ctx context.Context, nodeID string, action MenuAction) error {
	switch action {
	case ActionExpand:
		c.ExpandNeighbors(nodeID)
	case ActionCollapse:
		c.Collapse(nodeID)
	case ActionFocus:
		return c.Focus(ctx, nodeID)
	case ActionPathFrom:
		c.StartPathFrom(nodeID)
	case ActionDetails:
		if c.cb.OnDetails != nil {
			c.cb.OnDetails(nodeID)
		}
	case ActionPin:
		c.Pin(nodeID)
	case ActionRelease:
		c.Release(nodeID)
	default:
		return fmt.Errorf("unknown menu action %q", action)
	}
	return nil
}
