package api

import (
	"net/http"

	"github.com/dd0wney/saga-graph/pkg/visualization"
)

// handleSwitchLayout handles POST /sessions/{sessionID}/layout
func (s *Server) handleSwitchLayout(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.respondErr(w, r, "switch layout", err)
		return
	}
	var req LayoutRequest
	if err := decode(r, &req); err != nil {
		s.respondErr(w, r, "switch layout", err)
		return
	}
	if err := sess.SwitchLayout(r.Context(), visualization.Kind(req.Kind)); err != nil {
		s.respondErr(w, r, "switch layout", err)
		return
	}
	s.respondJSON(w, http.StatusOK, sessionResponse(sess))
}

// handleSaveLayout handles POST /sessions/{sessionID}/layout/save
func (s *Server) handleSaveLayout(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.respondErr(w, r, "save layout", err)
		return
	}
	if err := sess.SaveLayout(r.Context()); err != nil {
		s.respondErr(w, r, "save layout", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRestoreLayout handles POST /sessions/{sessionID}/layout/restore
func (s *Server) handleRestoreLayout(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.respondErr(w, r, "restore layout", err)
		return
	}
	n, err := sess.RestoreLayout(r.Context())
	if err != nil {
		s.respondErr(w, r, "restore layout", err)
		return
	}
	s.respondJSON(w, http.StatusOK, RestoreResponse{Restored: n})
}
