package api

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/dd0wney/saga-graph/pkg/interaction"
	"github.com/dd0wney/saga-graph/pkg/validation"
)

// handlePath handles POST /sessions/{sessionID}/path. A missing path is
// not an error: found is false and the message is the notice shown.
func (s *Server) handlePath(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.respondErr(w, r, "find path", err)
		return
	}
	var req PathRequest
	if err := decode(r, &req); err != nil {
		s.respondErr(w, r, "find path", err)
		return
	}
	path, ok, err := sess.FindPath(r.Context(), req.From, req.To)
	if err != nil {
		s.respondErr(w, r, "find path", err)
		return
	}
	if !ok {
		s.respondJSON(w, http.StatusOK, PathResponse{Path: []string{}, Message: interaction.NoPathMessage})
		return
	}
	s.respondJSON(w, http.StatusOK, PathResponse{Found: true, Path: path, Length: len(path) - 1})
}

// handleCentrality handles GET /sessions/{sessionID}/centrality?top=k
func (s *Server) handleCentrality(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.respondErr(w, r, "centrality", err)
		return
	}
	top := 0
	if v := r.URL.Query().Get("top"); v != "" {
		top, err = strconv.Atoi(v)
		if err != nil || top < 0 {
			s.respondErr(w, r, "centrality", fmt.Errorf("%w: top must be a non-negative integer", validation.ErrValidation))
			return
		}
	}
	degrees, err := sess.Centrality(r.Context())
	if err != nil {
		s.respondErr(w, r, "centrality", err)
		return
	}

	g := sess.Graph()
	scores := make([]NodeScore, 0, len(degrees))
	for id, d := range degrees {
		score := NodeScore{ID: id, Degree: d}
		if n, ok := g.Node(id); ok {
			score.Label = n.Label
			score.Type = string(n.Type)
		}
		scores = append(scores, score)
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Degree != scores[j].Degree {
			return scores[i].Degree > scores[j].Degree
		}
		return scores[i].ID < scores[j].ID
	})
	if top > 0 && top < len(scores) {
		scores = scores[:top]
	}
	s.respondJSON(w, http.StatusOK, scores)
}

// handleCommunities handles GET /sessions/{sessionID}/communities
func (s *Server) handleCommunities(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.respondErr(w, r, "communities", err)
		return
	}
	groups, err := sess.Communities(r.Context())
	if err != nil {
		s.respondErr(w, r, "communities", err)
		return
	}
	for _, members := range groups {
		sort.Strings(members)
	}
	s.respondJSON(w, http.StatusOK, CommunityResponse{Communities: groups})
}
