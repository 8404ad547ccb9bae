package algorithms

import (
	"sort"

	"github.com/dd0wney/saga-graph/pkg/graph"
)

// DegreeCentrality counts the edges incident to each node. A self-loop
// counts once.
func DegreeCentrality(g *graph.Graph) map[string]int {
	centrality := make(map[string]int, g.Len())
	for _, n := range g.Nodes {
		centrality[n.ID] = 0
	}
	for _, e := range g.Edges {
		centrality[e.Source]++
		if e.Target != e.Source {
			centrality[e.Target]++
		}
	}
	return centrality
}

// NormalizedDegreeCentrality divides each degree by n-1. Graphs with fewer
// than two nodes return zeros.
func NormalizedDegreeCentrality(g *graph.Graph) map[string]float64 {
	raw := DegreeCentrality(g)
	normalized := make(map[string]float64, len(raw))
	denom := float64(g.Len() - 1)
	for id, deg := range raw {
		if denom <= 0 {
			normalized[id] = 0
			continue
		}
		normalized[id] = float64(deg) / denom
	}
	return normalized
}

// RankedNode pairs a node id with a score
type RankedNode struct {
	ID    string
	Score float64
}

// TopByDegree returns the k nodes with the highest degree, ties broken by id
func TopByDegree(g *graph.Graph, k int) []RankedNode {
	raw := DegreeCentrality(g)
	ranked := make([]RankedNode, 0, len(raw))
	for id, deg := range raw {
		ranked = append(ranked, RankedNode{ID: id, Score: float64(deg)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ID < ranked[j].ID
	})
	if k > 0 && k < len(ranked) {
		ranked = ranked[:k]
	}
	return ranked
}
