package visualization

import (
	"math"
	"sort"

	"github.com/dd0wney/saga-graph/pkg/graph"
)

// sortedNodes returns a copy of nodes ordered by key. Ties fall back to id
// so the order is independent of input order.
func sortedNodes(nodes []*graph.Node, key string) []*graph.Node {
	out := append([]*graph.Node(nil), nodes...)
	if key == SortNone {
		return out
	}
	typeRank := make(map[graph.EntityType]int, len(graph.EntityTypes))
	for i, t := range graph.EntityTypes {
		typeRank[t] = i
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch key {
		case SortImportance:
			if a.Importance != b.Importance {
				return a.Importance > b.Importance
			}
		case SortType:
			if typeRank[a.Type] != typeRank[b.Type] {
				return typeRank[a.Type] < typeRank[b.Type]
			}
			if a.Importance != b.Importance {
				return a.Importance > b.Importance
			}
		case SortName:
			if a.Label != b.Label {
				return a.Label < b.Label
			}
		}
		return a.ID < b.ID
	})
	return out
}

// needsSeeding reports whether node positions carry no information yet:
// any non-finite coordinate, or every node on the same spot.
func needsSeeding(nodes []*graph.Node) bool {
	if len(nodes) == 0 {
		return false
	}
	first := nodes[0]
	allSame := true
	for _, n := range nodes {
		if !n.HasFinitePosition() {
			return true
		}
		if n.X != first.X || n.Y != first.Y {
			allSame = false
		}
	}
	if !allSame {
		return false
	}
	return len(nodes) > 1 || (first.X == 0 && first.Y == 0)
}

// viewportCenter returns the center of a width × height viewport
func viewportCenter(width, height float64) (float64, float64) {
	return width / 2, height / 2
}

// fitRadius is the largest circle radius that keeps padding inside the
// viewport, never negative.
func fitRadius(width, height, padding float64) float64 {
	return math.Max(0, math.Min(width, height)/2-padding)
}
