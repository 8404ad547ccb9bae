package api

import (
	"net/http"

	"github.com/dd0wney/saga-graph/pkg/logging"
	"github.com/dd0wney/saga-graph/pkg/viewer"
	"github.com/dd0wney/saga-graph/pkg/visualization"
)

func sessionResponse(sess *viewer.Session) SessionResponse {
	resp := SessionResponse{
		ID:      sess.ID(),
		GraphID: sess.GraphID(),
		Created: sess.Created(),
		Status:  sess.Status(),
		Notices: sess.Notices(),
	}
	for _, issue := range sess.Issues() {
		resp.Issues = append(resp.Issues, issue.String())
	}
	return resp
}

// handleCreateSession handles POST /sessions. The graph is loaded before
// replying; a failed load still creates the session, in the error state,
// so the client can show the message and retry.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decode(r, &req); err != nil {
		s.respondErr(w, r, "create session", err)
		return
	}

	sess, err := s.sessions.Create(r.Context(), req.GraphID)
	if err != nil {
		s.respondErr(w, r, "create session", err)
		return
	}
	if err := sess.Load(r.Context()); err != nil {
		s.logger.Warn("session created with failed load",
			logging.SessionID(sess.ID()), logging.Error(err))
	} else if req.Layout != "" {
		if err := sess.SwitchLayout(r.Context(), visualization.Kind(req.Layout)); err != nil {
			s.respondErr(w, r, "switch layout", err)
			return
		}
	}

	w.Header().Set("Location", "/sessions/"+sess.ID())
	s.respondJSON(w, http.StatusCreated, sessionResponse(sess))
}

// handleListSessions handles GET /sessions
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	list := s.sessions.List()
	out := make([]SessionResponse, len(list))
	for i, sess := range list {
		out[i] = sessionResponse(sess)
	}
	s.respondJSON(w, http.StatusOK, out)
}

// handleGetSession handles GET /sessions/{sessionID}
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.respondErr(w, r, "get session", err)
		return
	}
	s.respondJSON(w, http.StatusOK, sessionResponse(sess))
}

// handleDeleteSession handles DELETE /sessions/{sessionID}
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.respondErr(w, r, "delete session", err)
		return
	}
	if err := s.sessions.Close(sess.ID()); err != nil {
		s.respondErr(w, r, "delete session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRetry handles POST /sessions/{sessionID}/retry
func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.respondErr(w, r, "retry", err)
		return
	}
	if err := sess.Retry(r.Context()); err != nil {
		s.respondErr(w, r, "retry", err)
		return
	}
	s.respondJSON(w, http.StatusOK, sessionResponse(sess))
}
