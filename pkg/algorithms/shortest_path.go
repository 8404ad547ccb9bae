// Package algorithms implements the traversal and analytics used by the
// path finder and the analytics panel. Every function treats the graph as
// undirected.
package algorithms

import (
	"container/list"

	"github.com/dd0wney/saga-graph/pkg/graph"
)

// ShortestPath finds a minimum-hop path between two nodes using BFS over the
// undirected projection of g. A node to itself yields [id]. Unknown ids or
// nodes in different components yield (nil, false).
func ShortestPath(g *graph.Graph, sourceID, targetID string) ([]string, bool) {
	if g == nil {
		return nil, false
	}
	if _, ok := g.Node(sourceID); !ok {
		return nil, false
	}
	if _, ok := g.Node(targetID); !ok {
		return nil, false
	}
	if sourceID == targetID {
		return []string{sourceID}, true
	}

	parent := map[string]string{sourceID: sourceID}
	queue := list.New()
	queue.PushBack(sourceID)

	for queue.Len() > 0 {
		current := queue.Remove(queue.Front()).(string)

		for _, neighbor := range g.Neighbors(current) {
			if _, seen := parent[neighbor]; seen {
				continue
			}
			parent[neighbor] = current
			if neighbor == targetID {
				return reconstructPath(parent, sourceID, targetID), true
			}
			queue.PushBack(neighbor)
		}
	}

	return nil, false
}

// reconstructPath walks parent links back from end and reverses them
func reconstructPath(parent map[string]string, start, end string) []string {
	path := []string{end}
	for node := end; node != start; {
		node = parent[node]
		path = append(path, node)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// PathEdges returns, for each consecutive pair of path, the first edge of g
// joining them. Pairs with no edge are skipped.
func PathEdges(g *graph.Graph, path []string) []*graph.Edge {
	if len(path) < 2 {
		return nil
	}
	edges := make([]*graph.Edge, 0, len(path)-1)
	for i := 0; i+1 < len(path); i++ {
		a, b := path[i], path[i+1]
		for _, e := range g.Incident(a) {
			if (e.Source == a && e.Target == b) || (e.Source == b && e.Target == a) {
				edges = append(edges, e)
				break
			}
		}
	}
	return edges
}
