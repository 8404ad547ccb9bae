package visualization

import (
	"math"

	"github.com/dd0wney/saga-graph/pkg/graph"
	"github.com/dd0wney/saga-graph/pkg/logging"
	"github.com/dd0wney/saga-graph/pkg/simulation"
)

// HierarchicalLayout arranges nodes as a tidy tree following edge direction.
// Nodes the root cannot reach form further trees whose roots are depth-0
// siblings of the chosen root.
type HierarchicalLayout struct {
	cfg    Config
	logger logging.Logger
}

// Kind implements Layout
func (hl *HierarchicalLayout) Kind() Kind { return KindHierarchical }

// Apply pins every node at its tree position
func (hl *HierarchicalLayout) Apply(g *graph.Graph, width, height float64) (*simulation.Simulation, error) {
	return nil, applyFixed(hl, g, width, height)
}

type treeNode struct {
	node     *graph.Node
	parent   *treeNode
	children []*treeNode
	depth    int
	breadth  float64
}

// forest builds the spanning forest used for positioning. Roots are chosen
// by fewest incoming edges, then higher importance, then input order; the
// configured root, when present, always comes first.
func (hl *HierarchicalLayout) forest(g *graph.Graph) []*treeNode {
	incoming := make(map[string]int, g.Len())
	order := make(map[string]int, g.Len())
	for i, n := range g.Nodes {
		order[n.ID] = i
	}
	for _, e := range g.Edges {
		if e.Source != e.Target {
			incoming[e.Target]++
		}
	}

	better := func(a, b *graph.Node) bool {
		if incoming[a.ID] != incoming[b.ID] {
			return incoming[a.ID] < incoming[b.ID]
		}
		if a.Importance != b.Importance {
			return a.Importance > b.Importance
		}
		return order[a.ID] < order[b.ID]
	}

	visited := make(map[string]bool, g.Len())
	var forest []*treeNode

	if id := hl.cfg.Hierarchical.Root; id != "" {
		if n, ok := g.Node(id); ok {
			forest = append(forest, hl.grow(g, n, visited))
		} else {
			hl.logger.Warn("hierarchical root not found, choosing automatically", logging.NodeID(id))
		}
	}

	for len(visited) < g.Len() {
		var next *graph.Node
		for _, n := range g.Nodes {
			if visited[n.ID] {
				continue
			}
			if next == nil || better(n, next) {
				next = n
			}
		}
		forest = append(forest, hl.grow(g, next, visited))
	}
	return forest
}

// grow runs a DFS along outgoing edges. Edges to visited nodes are dropped,
// which breaks cycles and turns the DAG into a tree.
func (hl *HierarchicalLayout) grow(g *graph.Graph, root *graph.Node, visited map[string]bool) *treeNode {
	rootTN := &treeNode{node: root}
	visited[root.ID] = true
	stack := []*treeNode{rootTN}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range g.Incident(current.node.ID) {
			if e.Source != current.node.ID || visited[e.Target] {
				continue
			}
			visited[e.Target] = true
			child := &treeNode{node: e.To, parent: current, depth: current.depth + 1}
			current.children = append(current.children, child)
			stack = append(stack, child)
		}
	}
	return rootTN
}

// Positions computes tidy-tree coordinates
func (hl *HierarchicalLayout) Positions(g *graph.Graph, width, height float64) (map[string]Position, error) {
	positions := make(map[string]Position)
	if g == nil || g.Len() == 0 {
		return positions, nil
	}

	forest := hl.forest(g)

	cursor := 0.0
	var prevLeaf *treeNode
	var place func(tn *treeNode)
	place = func(tn *treeNode) {
		if len(tn.children) == 0 {
			if prevLeaf != nil {
				cursor += hl.separation(prevLeaf, tn)
			}
			tn.breadth = cursor
			prevLeaf = tn
			return
		}
		for _, c := range tn.children {
			place(c)
		}
		first, last := tn.children[0], tn.children[len(tn.children)-1]
		tn.breadth = (first.breadth + last.breadth) / 2
	}
	for _, root := range forest {
		place(root)
	}

	minB, maxB := math.Inf(1), math.Inf(-1)
	var all []*treeNode
	var collect func(tn *treeNode)
	collect = func(tn *treeNode) {
		all = append(all, tn)
		minB = math.Min(minB, tn.breadth)
		maxB = math.Max(maxB, tn.breadth)
		for _, c := range tn.children {
			collect(c)
		}
	}
	for _, root := range forest {
		collect(root)
	}

	pad := hl.cfg.Padding
	horizontal := hl.cfg.Hierarchical.Orientation == OrientationHorizontal
	span := width
	if horizontal {
		span = height
	}
	avail := math.Max(span-2*pad, 1)
	rangeB := maxB - minB

	for _, tn := range all {
		b := pad + avail/2
		if rangeB > 0 {
			b = pad + (tn.breadth-minB)/rangeB*avail
		}
		d := pad + float64(tn.depth)*hl.cfg.Hierarchical.LevelSeparation
		if horizontal {
			positions[tn.node.ID] = Position{X: d, Y: b}
		} else {
			positions[tn.node.ID] = Position{X: b, Y: d}
		}
	}
	return positions, nil
}

// separation spaces siblings closer than cousins
func (hl *HierarchicalLayout) separation(a, b *treeNode) float64 {
	if a.parent == b.parent {
		return hl.cfg.Hierarchical.SiblingSeparation
	}
	return hl.cfg.Hierarchical.SubtreeSeparation
}
