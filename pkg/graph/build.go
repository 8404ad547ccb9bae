package graph

import (
	"fmt"
	"math"

	"github.com/dd0wney/saga-graph/pkg/logging"
)

// IssueKind classifies a data-integrity problem found while building a graph
type IssueKind string

const (
	IssueMissingID       IssueKind = "missing_id"
	IssueDuplicateID     IssueKind = "duplicate_id"
	IssueUnknownType     IssueKind = "unknown_type"
	IssueBadImportance   IssueKind = "bad_importance"
	IssueDanglingEdge    IssueKind = "dangling_edge"
	IssueMissingEndpoint IssueKind = "missing_endpoint"
)

// Issue records one skipped node or edge
type Issue struct {
	Kind    IssueKind
	NodeID  string
	Edge    int // index into Payload.Edges, -1 for node issues
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Kind, i.Message)
}

// Build constructs a Graph from a payload. Invalid nodes and edges are
// skipped and reported as issues; the rest of the graph is still built.
func Build(id string, p *Payload, logger logging.Logger) (*Graph, []Issue) {
	logger = logging.OrNop(logger)
	g := &Graph{
		ID:        id,
		index:     make(map[string]*Node),
		adjacency: make(map[string][]*Edge),
	}
	if p == nil {
		return g, nil
	}

	var issues []Issue
	report := func(issue Issue) {
		issues = append(issues, issue)
		logger.Warn("graph data integrity issue",
			logging.String("kind", string(issue.Kind)),
			logging.NodeID(issue.NodeID),
			logging.Int("edge", issue.Edge),
			logging.String("detail", issue.Message))
	}

	g.Nodes = make([]*Node, 0, len(p.Nodes))
	for i, nd := range p.Nodes {
		if nd.ID == "" {
			report(Issue{Kind: IssueMissingID, Edge: -1, Message: fmt.Sprintf("node at index %d has no id", i)})
			continue
		}
		if _, dup := g.index[nd.ID]; dup {
			report(Issue{Kind: IssueDuplicateID, NodeID: nd.ID, Edge: -1, Message: "duplicate node id"})
			continue
		}
		t := EntityType(nd.Type)
		if !t.Valid() {
			report(Issue{Kind: IssueUnknownType, NodeID: nd.ID, Edge: -1, Message: fmt.Sprintf("unknown entity type %q", nd.Type)})
			continue
		}
		if math.IsNaN(nd.Importance) || math.IsInf(nd.Importance, 0) {
			report(Issue{Kind: IssueBadImportance, NodeID: nd.ID, Edge: -1, Message: "importance is not finite"})
			continue
		}

		n := &Node{
			ID:         nd.ID,
			Label:      nd.Label,
			Type:       t,
			Importance: math.Max(0, math.Min(100, nd.Importance)),
			URL:        nd.URL,
		}
		if n.Label == "" {
			n.Label = n.ID
		}
		g.Nodes = append(g.Nodes, n)
		g.index[n.ID] = n
	}

	pairCount := make(map[[2]string]int)
	g.Edges = make([]*Edge, 0, len(p.Edges))
	for i, ed := range p.Edges {
		if ed.Source == "" || ed.Target == "" {
			report(Issue{Kind: IssueMissingEndpoint, Edge: i, Message: "edge has an empty source or target"})
			continue
		}
		from, okFrom := g.index[ed.Source]
		to, okTo := g.index[ed.Target]
		if !okFrom || !okTo {
			missing := ed.Source
			if okFrom {
				missing = ed.Target
			}
			report(Issue{Kind: IssueDanglingEdge, NodeID: missing, Edge: i,
				Message: fmt.Sprintf("edge %s->%s references unknown node %s", ed.Source, ed.Target, missing)})
			continue
		}

		key := pairKey(ed.Source, ed.Target)
		e := &Edge{
			Source:        ed.Source,
			Target:        ed.Target,
			From:          from,
			To:            to,
			Relationship:  ed.Relationship,
			Strength:      math.Max(0, math.Min(100, ed.Strength)),
			Curvature:     ed.Curvature,
			ParallelIndex: pairCount[key],
			Opacity:       1,
		}
		pairCount[key]++
		g.Edges = append(g.Edges, e)
		g.adjacency[e.Source] = append(g.adjacency[e.Source], e)
		if e.Target != e.Source {
			g.adjacency[e.Target] = append(g.adjacency[e.Target], e)
		}
	}

	return g, issues
}

// New builds a graph directly from nodes and edges, resolving edge endpoints.
// Edges with unknown endpoints are dropped.
func New(id string, nodes []*Node, edges []*Edge) *Graph {
	g := &Graph{
		ID:        id,
		Nodes:     nodes,
		index:     make(map[string]*Node, len(nodes)),
		adjacency: make(map[string][]*Edge),
	}
	for _, n := range nodes {
		g.index[n.ID] = n
	}
	pairCount := make(map[[2]string]int)
	for _, e := range edges {
		from, okFrom := g.index[e.Source]
		to, okTo := g.index[e.Target]
		if !okFrom || !okTo {
			continue
		}
		e.From, e.To = from, to
		if e.Opacity == 0 {
			e.Opacity = 1
		}
		key := pairKey(e.Source, e.Target)
		e.ParallelIndex = pairCount[key]
		pairCount[key]++
		g.Edges = append(g.Edges, e)
		g.adjacency[e.Source] = append(g.adjacency[e.Source], e)
		if e.Target != e.Source {
			g.adjacency[e.Target] = append(g.adjacency[e.Target], e)
		}
	}
	return g
}

func pairKey(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}
