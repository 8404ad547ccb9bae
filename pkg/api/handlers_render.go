package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dd0wney/saga-graph/pkg/pools"
)

// handleRender handles GET /sessions/{sessionID}/render[.svg|.png]. Without
// an extension the node count picks the format.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.respondErr(w, r, "render", err)
		return
	}
	format := chi.URLParam(r, "format")
	if format == "" {
		format = r.URL.Query().Get("format")
	}

	buf := pools.GetBuffer()
	defer pools.PutBuffer(buf)
	mode, err := sess.Render(buf, format)
	if err != nil {
		s.respondErr(w, r, "render", err)
		return
	}
	w.Header().Set("Content-Type", mode.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
