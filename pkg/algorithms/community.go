package algorithms

import (
	"fmt"

	"github.com/dd0wney/saga-graph/pkg/graph"
)

// CommunitiesByType groups nodes by entity type. Communities are ordered by
// the entity type vocabulary; empty types are omitted.
func CommunitiesByType(g *graph.Graph) *CommunityDetectionResult {
	byType := make(map[graph.EntityType][]string)
	for _, n := range g.Nodes {
		byType[n.Type] = append(byType[n.Type], n.ID)
	}

	result := &CommunityDetectionResult{NodeCommunity: make(map[string]int, g.Len())}
	for _, t := range graph.EntityTypes {
		members := byType[t]
		if len(members) == 0 {
			continue
		}
		c := &Community{
			ID:    len(result.Communities),
			Key:   string(t),
			Nodes: members,
			Size:  len(members),
		}
		for _, id := range members {
			result.NodeCommunity[id] = c.ID
		}
		result.Communities = append(result.Communities, c)
	}

	finalize(g, result)
	return result
}

// finalize fills in community densities and the partition modularity
func finalize(g *graph.Graph, result *CommunityDetectionResult) {
	internal := make([]int, len(result.Communities))
	degreeSum := make([]float64, len(result.Communities))
	m := 0.0

	for _, e := range g.Edges {
		if e.Source == e.Target {
			continue
		}
		m++
		cs, ct := result.NodeCommunity[e.Source], result.NodeCommunity[e.Target]
		degreeSum[cs]++
		degreeSum[ct]++
		if cs == ct {
			internal[cs]++
		}
	}

	for i, c := range result.Communities {
		if c.Size > 1 {
			possible := float64(c.Size*(c.Size-1)) / 2
			c.Density = float64(internal[i]) / possible
		}
	}

	if m == 0 {
		return
	}
	q := 0.0
	for i := range result.Communities {
		frac := degreeSum[i] / (2 * m)
		q += float64(internal[i])/m - frac*frac
	}
	result.Modularity = q
}

// CommunityKey resolves the community key for every node: "type" uses the
// entity type, "component" uses connected component ids.
func CommunityKey(g *graph.Graph, by string) (map[string]string, error) {
	var result *CommunityDetectionResult
	switch by {
	case "", "type":
		result = CommunitiesByType(g)
	case "component", "community":
		result = ConnectedComponents(g)
	default:
		return nil, fmt.Errorf("unknown community key %q", by)
	}
	keys := make(map[string]string, g.Len())
	for _, c := range result.Communities {
		for _, id := range c.Nodes {
			keys[id] = c.Key
		}
	}
	return keys, nil
}
