package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dd0wney/saga-graph/pkg/layoutstore"
	"github.com/dd0wney/saga-graph/pkg/loader"
	"github.com/dd0wney/saga-graph/pkg/logging"
	"github.com/dd0wney/saga-graph/pkg/render"
	"github.com/dd0wney/saga-graph/pkg/validation"
	"github.com/dd0wney/saga-graph/pkg/viewer"
	"github.com/dd0wney/saga-graph/pkg/visualization"
)

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, ErrorResponse{Error: msg})
}

// respondErr maps domain errors onto status codes. Unexpected errors are
// logged and answered with a generic message.
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", logging.Error(err), logging.String("path", r.URL.Path))
		if status == http.StatusInternalServerError {
			msg = op + " failed"
		}
	}
	s.respondJSON(w, status, ErrorResponse{Error: msg, Retryable: loader.IsRetryable(err)})
}

func statusFor(err error) (int, string) {
	var fetchErr *loader.FetchError
	switch {
	case errors.Is(err, viewer.ErrSessionNotFound), errors.Is(err, layoutstore.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, viewer.ErrTooManySessions):
		return http.StatusTooManyRequests, err.Error()
	case errors.Is(err, viewer.ErrNotReady):
		return http.StatusConflict, err.Error()
	case errors.Is(err, viewer.ErrDestroyed):
		return http.StatusGone, err.Error()
	case errors.Is(err, viewer.ErrNoStore):
		return http.StatusNotImplemented, err.Error()
	case errors.Is(err, visualization.ErrUnknownLayout), errors.Is(err, render.ErrUnsupportedFormat),
		errors.Is(err, validation.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, loader.ErrInvalidPayload):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway, err.Error()
	}
	return http.StatusInternalServerError, err.Error()
}

// decode reads a JSON body into v and checks its validate tags
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", validation.ErrValidation, err)
	}
	return validation.Struct(v)
}

// session resolves the {sessionID} URL parameter
func (s *Server) session(r *http.Request) (*viewer.Session, error) {
	id := chi.URLParam(r, "sessionID")
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, viewer.ErrSessionNotFound)
	}
	return sess, nil
}
