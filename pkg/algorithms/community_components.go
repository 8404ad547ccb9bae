package algorithms

import (
	"container/list"
	"strconv"

	"github.com/dd0wney/saga-graph/pkg/graph"
)

// ConnectedComponents finds all connected components in the undirected
// projection of g, in order of first node appearance.
func ConnectedComponents(g *graph.Graph) *CommunityDetectionResult {
	visited := make(map[string]bool, g.Len())
	result := &CommunityDetectionResult{NodeCommunity: make(map[string]int, g.Len())}

	for _, start := range g.Nodes {
		if visited[start.ID] {
			continue
		}

		component := &Community{
			ID:  len(result.Communities),
			Key: strconv.Itoa(len(result.Communities)),
		}

		queue := list.New()
		queue.PushBack(start.ID)
		visited[start.ID] = true

		for queue.Len() > 0 {
			nodeID := queue.Remove(queue.Front()).(string)
			component.Nodes = append(component.Nodes, nodeID)
			result.NodeCommunity[nodeID] = component.ID

			for _, neighbor := range g.Neighbors(nodeID) {
				if !visited[neighbor] {
					visited[neighbor] = true
					queue.PushBack(neighbor)
				}
			}
		}

		component.Size = len(component.Nodes)
		result.Communities = append(result.Communities, component)
	}

	finalize(g, result)
	return result
}
