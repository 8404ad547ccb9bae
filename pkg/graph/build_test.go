package graph

import (
	"testing"
)

func samplePayload() *Payload {
	return &Payload{
		Nodes: []NodeData{
			{ID: "aragorn", Label: "Aragorn", Type: "character", Importance: 90},
			{ID: "gondor", Label: "Gondor", Type: "location", Importance: 60},
			{ID: "ring", Label: "The One Ring", Type: "artifact", Importance: 100, URL: "https://example.org/ring"},
		},
		Edges: []EdgeData{
			{Source: "aragorn", Target: "gondor", Relationship: "rules", Strength: 80},
			{Source: "gondor", Target: "aragorn", Relationship: "loyal_to", Strength: 40},
			{Source: "aragorn", Target: "ring", Relationship: "resists", Strength: 20},
		},
	}
}

func TestBuild_ResolvesReferences(t *testing.T) {
	g, issues := Build("middle-earth", samplePayload(), nil)
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
	if g.Len() != 3 || len(g.Edges) != 3 {
		t.Fatalf("got %d nodes / %d edges", g.Len(), len(g.Edges))
	}

	aragorn, _ := g.Node("aragorn")
	for _, e := range g.Edges {
		if e.Source == "aragorn" && e.From != aragorn {
			t.Errorf("edge %s->%s does not share node identity", e.Source, e.Target)
		}
		if e.Target == "aragorn" && e.To != aragorn {
			t.Errorf("edge %s->%s does not share node identity", e.Source, e.Target)
		}
	}
}

func TestBuild_ParallelIndex(t *testing.T) {
	g, _ := Build("g", samplePayload(), nil)
	if g.Edges[0].ParallelIndex != 0 || g.Edges[1].ParallelIndex != 1 {
		t.Errorf("parallel indexes = %d, %d; want 0, 1", g.Edges[0].ParallelIndex, g.Edges[1].ParallelIndex)
	}
	if g.Edges[2].ParallelIndex != 0 {
		t.Errorf("unrelated edge parallel index = %d", g.Edges[2].ParallelIndex)
	}
}

func TestBuild_SkipsInvalidData(t *testing.T) {
	p := samplePayload()
	p.Nodes = append(p.Nodes,
		NodeData{ID: "", Type: "character"},
		NodeData{ID: "gondor", Type: "location"},
		NodeData{ID: "balrog", Type: "monster"},
	)
	p.Edges = append(p.Edges,
		EdgeData{Source: "aragorn", Target: "mordor"},
		EdgeData{Source: "", Target: "ring"},
	)

	g, issues := Build("g", p, nil)
	if g.Len() != 3 {
		t.Errorf("expected invalid nodes to be skipped, got %d nodes", g.Len())
	}
	if len(g.Edges) != 3 {
		t.Errorf("expected dangling edges to be skipped, got %d edges", len(g.Edges))
	}

	kinds := make(map[IssueKind]int)
	for _, is := range issues {
		kinds[is.Kind]++
	}
	want := map[IssueKind]int{
		IssueMissingID:       1,
		IssueDuplicateID:     1,
		IssueUnknownType:     1,
		IssueDanglingEdge:    1,
		IssueMissingEndpoint: 1,
	}
	for k, n := range want {
		if kinds[k] != n {
			t.Errorf("issue %s count = %d, want %d", k, kinds[k], n)
		}
	}
}

func TestGraph_NeighborsAndConnected(t *testing.T) {
	g, _ := Build("g", samplePayload(), nil)

	neighbors := g.Neighbors("aragorn")
	if len(neighbors) != 2 {
		t.Errorf("Neighbors(aragorn) = %v, want 2 distinct ids", neighbors)
	}
	if !g.Connected("ring", "aragorn") {
		t.Error("Connected should ignore direction")
	}
	if g.Connected("ring", "gondor") {
		t.Error("ring and gondor are not adjacent")
	}
}

func TestNode_RadiusAndPin(t *testing.T) {
	low := &Node{Importance: 0}
	high := &Node{Importance: 80}
	if low.Radius() != BaseRadius || high.Radius() <= low.Radius() {
		t.Errorf("radius not monotonic: %v vs %v", low.Radius(), high.Radius())
	}

	n := &Node{}
	n.Pin(10, 20)
	if !n.IsFixed() || *n.FX != 10 || *n.FY != 20 || n.X != 10 {
		t.Errorf("Pin did not fix position: %+v", n)
	}
	n.Pinned = true
	n.Unpin()
	if n.IsFixed() || n.Pinned {
		t.Error("Unpin should clear the pin and fixed-layout marker")
	}
}

func TestDecodePayload_RelationshipAlias(t *testing.T) {
	p, err := DecodePayload([]byte(`{"nodes":[],"edges":[{"source":"a","target":"b","label":"ally","strength":5}]}`))
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if p.Edges[0].Relationship != "ally" || p.Edges[0].Strength != 5 {
		t.Errorf("unexpected edge %+v", p.Edges[0])
	}

	if _, err := DecodePayload([]byte(`{"nodes": 4}`)); err == nil {
		t.Error("expected error for malformed payload")
	}
}
