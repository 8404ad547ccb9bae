package interaction

import (
	"context"
	"slices"

	"github.com/dd0wney/saga-graph/pkg/graph"
	"github.com/dd0wney/saga-graph/pkg/logging"
)

// Selection returns the selected node ids in selection order
func (c *Controller) Selection() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.selection)
}

// Path returns the highlighted path, nil when none
func (c *Controller) Path() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.path)
}

// ClearSelection clears the selection and any highlighted path
func (c *Controller) ClearSelection() {
	c.mu.Lock()
	c.pathSource = ""
	c.clearSelectionLocked()
	c.mu.Unlock()
	c.redraw()
}

func (c *Controller) clearSelectionLocked() {
	c.selection = nil
	c.path = nil
	c.applyEmphasisLocked()
}

func (c *Controller) selectOnlyLocked(id string) {
	c.selection = []string{id}
	c.path = nil
	c.applyEmphasisLocked()
}

// toggleLocked adds or removes id from a multi-selection
func (c *Controller) toggleLocked(id string) {
	if i := slices.Index(c.selection, id); i >= 0 {
		c.selection = slices.Delete(c.selection, i, i+1)
	} else {
		c.selection = append(c.selection, id)
	}
	c.path = nil
	c.applyEmphasisLocked()
}

// applyEmphasisLocked rewrites Selected, Highlighted, Dimmed and edge
// opacity from the selection and path. A path wins over a selection: path
// nodes and the edges between consecutive path nodes are highlighted and
// everything else is dimmed. A selection dims every node that is neither
// selected nor adjacent to a selected node.
func (c *Controller) applyEmphasisLocked() {
	if c.g == nil {
		return
	}
	dim := c.cfg.DimOpacity
	c.host.Read(func() {
		selected := make(map[string]bool, len(c.selection))
		for _, id := range c.selection {
			selected[id] = true
		}
		for _, n := range c.g.Nodes {
			n.Selected = selected[n.ID]
			n.Highlighted, n.Dimmed = false, false
		}
		for _, e := range c.g.Edges {
			e.Highlighted, e.Opacity = false, 1
		}

		switch {
		case len(c.path) > 0:
			onPath := make(map[string]bool, len(c.path))
			for _, id := range c.path {
				onPath[id] = true
			}
			steps := make(map[[2]string]bool, len(c.path))
			for i := 1; i < len(c.path); i++ {
				steps[[2]string{c.path[i-1], c.path[i]}] = true
				steps[[2]string{c.path[i], c.path[i-1]}] = true
			}
			for _, n := range c.g.Nodes {
				n.Highlighted = onPath[n.ID]
				n.Dimmed = !n.Highlighted
			}
			for _, e := range c.g.Edges {
				if steps[[2]string{e.Source, e.Target}] {
					e.Highlighted = true
				} else {
					e.Opacity = dim
				}
			}

		case len(selected) > 0:
			near := make(map[string]bool)
			for id := range selected {
				near[id] = true
				for _, nb := range c.g.Neighbors(id) {
					near[nb] = true
				}
			}
			for _, n := range c.g.Nodes {
				n.Dimmed = !near[n.ID]
			}
			for _, e := range c.g.Edges {
				if !selected[e.Source] && !selected[e.Target] {
					e.Opacity = dim
				}
			}
		}
	})
}

// FindPath searches a shortest path and highlights it. No path leaves the
// graph unhighlighted and shows NoPathMessage.
func (c *Controller) FindPath(ctx context.Context, sourceID, targetID string) ([]string, bool) {
	path, ok, err := c.host.ShortestPath(ctx, sourceID, targetID)
	if err != nil {
		c.logger.Warn("path search failed",
			logging.String("source", sourceID),
			logging.String("target", targetID),
			logging.Error(err))
		ok = false
	}

	c.mu.Lock()
	if ok {
		c.path = path
	} else {
		c.path = nil
	}
	c.applyEmphasisLocked()
	c.mu.Unlock()

	if !ok {
		c.notifier.Notify(NoPathMessage)
	}
	c.redraw()
	return path, ok
}

// StartPathFrom arms path search: the next node click finds the path from
// nodeID to the clicked node.
func (c *Controller) StartPathFrom(nodeID string) {
	c.mu.Lock()
	c.pathSource = nodeID
	c.mu.Unlock()
	c.notifier.Notify("Select a target node")
}

// PendingPathSource returns the armed path source, if any
func (c *Controller) PendingPathSource() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pathSource
}

// ExpandNeighbors shows every neighbour of nodeID
func (c *Controller) ExpandNeighbors(nodeID string) int {
	c.mu.Lock()
	shown := 0
	c.host.Read(func() {
		for _, id := range c.g.Neighbors(nodeID) {
			if n, ok := c.g.Node(id); ok && n.Hidden {
				n.Hidden = false
				shown++
			}
		}
	})
	c.mu.Unlock()
	c.redraw()
	return shown
}

// Collapse hides the neighbours of nodeID that have no other visible
// connection. The node itself stays visible.
func (c *Controller) Collapse(nodeID string) int {
	c.mu.Lock()
	hidden := 0
	c.host.Read(func() {
		for _, id := range c.g.Neighbors(nodeID) {
			n, ok := c.g.Node(id)
			if !ok || n.Hidden || c.hasOtherVisibleNeighbor(id, nodeID) {
				continue
			}
			n.Hidden = true
			hidden++
		}
	})
	c.mu.Unlock()
	c.redraw()
	return hidden
}

func (c *Controller) hasOtherVisibleNeighbor(id, except string) bool {
	for _, nb := range c.g.Neighbors(id) {
		if nb == except {
			continue
		}
		if n, ok := c.g.Node(nb); ok && !n.Hidden {
			return true
		}
	}
	return false
}

// visibleNode reports whether id names a node that is drawn
func visibleNode(g *graph.Graph, id string) bool {
	n, ok := g.Node(id)
	return ok && !n.Hidden
}
