package graph

import (
	"encoding/json"
	"fmt"
)

// Payload is the wire shape returned by a graph data endpoint
type Payload struct {
	Nodes []NodeData `json:"nodes" validate:"dive"`
	Edges []EdgeData `json:"edges" validate:"dive"`
}

// NodeData is one node as received from the backend
type NodeData struct {
	ID         string  `json:"id" validate:"required,max=200"`
	Label      string  `json:"label" validate:"max=500"`
	Type       string  `json:"type" validate:"required,oneof=character location event faction artifact concept"`
	Importance float64 `json:"importance" validate:"gte=0,lte=100"`
	URL        string  `json:"url,omitempty" validate:"omitempty,url"`
}

// EdgeData is one edge as received from the backend
type EdgeData struct {
	Source       string  `json:"source" validate:"required"`
	Target       string  `json:"target" validate:"required"`
	Relationship string  `json:"relationship" validate:"max=200"`
	Strength     float64 `json:"strength" validate:"gte=0,lte=100"`
	Curvature    float64 `json:"curvature,omitempty"`
}

// UnmarshalJSON accepts "label" or "type" as aliases for "relationship"
func (e *EdgeData) UnmarshalJSON(data []byte) error {
	type plain EdgeData
	aux := struct {
		plain
		Label string `json:"label"`
		Type  string `json:"type"`
	}{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("decode edge: %w", err)
	}
	*e = EdgeData(aux.plain)
	if e.Relationship == "" {
		e.Relationship = aux.Label
	}
	if e.Relationship == "" {
		e.Relationship = aux.Type
	}
	return nil
}

// DecodePayload parses a JSON document into a Payload
func DecodePayload(data []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode graph payload: %w", err)
	}
	return &p, nil
}

// ToPayload converts a graph back into its wire shape
func (g *Graph) ToPayload() *Payload {
	p := &Payload{
		Nodes: make([]NodeData, 0, len(g.Nodes)),
		Edges: make([]EdgeData, 0, len(g.Edges)),
	}
	for _, n := range g.Nodes {
		p.Nodes = append(p.Nodes, NodeData{
			ID:         n.ID,
			Label:      n.Label,
			Type:       string(n.Type),
			Importance: n.Importance,
			URL:        n.URL,
		})
	}
	for _, e := range g.Edges {
		p.Edges = append(p.Edges, EdgeData{
			Source:       e.Source,
			Target:       e.Target,
			Relationship: e.Relationship,
			Strength:     e.Strength,
			Curvature:    e.Curvature,
		})
	}
	return p
}
