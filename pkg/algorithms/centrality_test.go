package algorithms

import (
	"testing"
)

func TestDegreeCentrality(t *testing.T) {
	g := newTestGraph(
		[]string{"hub", "a", "b", "c", "loner"},
		[][2]string{{"hub", "a"}, {"b", "hub"}, {"hub", "c"}, {"a", "a"}},
	)

	deg := DegreeCentrality(g)
	want := map[string]int{"hub": 3, "a": 2, "b": 1, "c": 1, "loner": 0}
	for id, d := range want {
		if deg[id] != d {
			t.Errorf("%s: expected degree %d, got %d", id, d, deg[id])
		}
	}
}

func TestNormalizedDegreeCentrality(t *testing.T) {
	g := newTestGraph([]string{"hub", "a", "b"}, [][2]string{{"hub", "a"}, {"hub", "b"}})

	norm := NormalizedDegreeCentrality(g)
	if norm["hub"] != 1.0 {
		t.Errorf("hub should be 1.0, got %f", norm["hub"])
	}
	if norm["a"] != 0.5 {
		t.Errorf("leaf should be 0.5, got %f", norm["a"])
	}

	single := newTestGraph([]string{"x"}, nil)
	if NormalizedDegreeCentrality(single)["x"] != 0 {
		t.Error("single node should normalise to 0")
	}
}

func TestTopByDegree(t *testing.T) {
	g := newTestGraph(
		[]string{"a", "b", "c"},
		[][2]string{{"a", "b"}, {"a", "c"}},
	)

	top := TopByDegree(g, 2)
	if len(top) != 2 {
		t.Fatalf("Expected 2, got %d", len(top))
	}
	if top[0].ID != "a" || top[1].ID != "b" {
		t.Errorf("Expected [a b], got %v", top)
	}
}
