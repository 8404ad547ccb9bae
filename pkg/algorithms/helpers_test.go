package algorithms

import (
	"github.com/dd0wney/saga-graph/pkg/graph"
)

// newTestGraph builds a graph of character nodes with the given ids and
// undirected edges given as id pairs.
func newTestGraph(ids []string, edges [][2]string) *graph.Graph {
	nodes := make([]*graph.Node, len(ids))
	for i, id := range ids {
		nodes[i] = &graph.Node{ID: id, Label: id, Type: graph.TypeCharacter}
	}
	es := make([]*graph.Edge, len(edges))
	for i, e := range edges {
		es[i] = &graph.Edge{Source: e[0], Target: e[1], Strength: 50}
	}
	return graph.New("test", nodes, es)
}
