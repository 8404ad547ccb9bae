package api

import (
	"time"

	"github.com/dd0wney/saga-graph/pkg/viewer"
)

// CreateSessionRequest opens a session on a graph
type CreateSessionRequest struct {
	GraphID string `json:"graphId" validate:"required,max=200"`
	// Layout overrides the default layout once the graph is loaded
	Layout string `json:"layout,omitempty" validate:"omitempty,oneof=force hierarchical circular radial grid clustered"`
}

// LayoutRequest switches the active layout
type LayoutRequest struct {
	Kind string `json:"kind" validate:"required,oneof=force hierarchical circular radial grid clustered"`
}

// PathRequest asks for the shortest path between two entities
type PathRequest struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}

// SessionResponse describes a session
type SessionResponse struct {
	ID      string        `json:"id"`
	GraphID string        `json:"graphId"`
	Created time.Time     `json:"created"`
	Status  viewer.Status `json:"status"`
	Notices []string      `json:"notices,omitempty"`
	Issues  []string      `json:"issues,omitempty"`
}

// PathResponse is the result of a path search
type PathResponse struct {
	Found   bool     `json:"found"`
	Path    []string `json:"path"`
	Length  int      `json:"length"`
	Message string   `json:"message,omitempty"`
}

// NodeScore is one centrality entry
type NodeScore struct {
	ID     string `json:"id"`
	Label  string `json:"label,omitempty"`
	Type   string `json:"type,omitempty"`
	Degree int    `json:"degree"`
}

// CommunityResponse maps a community key to its members
type CommunityResponse struct {
	Communities map[string][]string `json:"communities"`
}

// RestoreResponse reports how many nodes a restore moved
type RestoreResponse struct {
	Restored int `json:"restored"`
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}
