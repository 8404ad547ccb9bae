package algorithms

// Community represents a detected community
type Community struct {
	ID      int
	Key     string // grouping key, e.g. the entity type
	Nodes   []string
	Size    int
	Density float64 // Edge density within community
}

// CommunityDetectionResult contains detected communities
type CommunityDetectionResult struct {
	Communities   []*Community
	Modularity    float64        // Quality measure of the partitioning
	NodeCommunity map[string]int // Node ID -> Community ID
}

// Groups returns the communities as key → member ids
func (r *CommunityDetectionResult) Groups() map[string][]string {
	out := make(map[string][]string, len(r.Communities))
	for _, c := range r.Communities {
		out[c.Key] = append([]string(nil), c.Nodes...)
	}
	return out
}
