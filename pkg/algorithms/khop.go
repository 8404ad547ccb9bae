package algorithms

import (
	"fmt"

	"github.com/dd0wney/saga-graph/pkg/graph"
)

// HopDistances returns the undirected BFS hop count from root to every
// reachable node, root included at 0. Unreachable nodes are absent.
func HopDistances(g *graph.Graph, rootID string) map[string]int {
	distances := make(map[string]int)
	if g == nil {
		return distances
	}
	if _, ok := g.Node(rootID); !ok {
		return distances
	}

	distances[rootID] = 0
	queue := []string{rootID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, neighbor := range g.Neighbors(current) {
			if _, seen := distances[neighbor]; seen {
				continue
			}
			distances[neighbor] = distances[current] + 1
			queue = append(queue, neighbor)
		}
	}
	return distances
}

// KHopResult holds the BFS neighbourhood of a source node.
type KHopResult struct {
	SourceID       string
	ByHop          map[int][]string // hop distance → node IDs at that distance
	Distances      map[string]int
	TotalReachable int
}

// KHopNeighbours performs a BFS from sourceID up to maxHops levels,
// returning all discovered nodes grouped by distance. The source node is
// never included in results.
func KHopNeighbours(g *graph.Graph, sourceID string, maxHops int) (*KHopResult, error) {
	if maxHops < 1 {
		return nil, fmt.Errorf("maxHops must be >= 1, got %d", maxHops)
	}
	if _, ok := g.Node(sourceID); !ok {
		return nil, fmt.Errorf("unknown node %q", sourceID)
	}

	result := &KHopResult{
		SourceID:  sourceID,
		ByHop:     make(map[int][]string),
		Distances: make(map[string]int),
	}
	visited := map[string]bool{sourceID: true}
	frontier := []string{sourceID}

	for hop := 1; hop <= maxHops && len(frontier) > 0; hop++ {
		var next []string
		for _, id := range frontier {
			for _, neighbor := range g.Neighbors(id) {
				if visited[neighbor] {
					continue
				}
				visited[neighbor] = true
				result.Distances[neighbor] = hop
				result.ByHop[hop] = append(result.ByHop[hop], neighbor)
				next = append(next, neighbor)
			}
		}
		frontier = next
	}
	result.TotalReachable = len(result.Distances)
	return result, nil
}
