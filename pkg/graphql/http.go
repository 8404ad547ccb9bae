package graphql

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/graphql-go/graphql"

	"github.com/dd0wney/saga-graph/pkg/logging"
)

// Request is a GraphQL HTTP request body
type Request struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

// Response is a GraphQL HTTP response body
type Response struct {
	Data   any     `json:"data,omitempty"`
	Errors []Error `json:"errors,omitempty"`
}

// Error is one GraphQL error
type Error struct {
	Message string `json:"message"`
}

// DefaultMaxBodyBytes caps request bodies
const DefaultMaxBodyBytes = 1 << 20

// Handler serves POST /graphql
type Handler struct {
	schema       graphql.Schema
	maxDepth     int
	maxBodyBytes int64
	logger       logging.Logger
}

// NewHandler creates a handler. maxDepth of zero uses DefaultMaxDepth.
func NewHandler(schema graphql.Schema, maxDepth int, logger logging.Logger) *Handler {
	return &Handler{
		schema:       schema,
		maxDepth:     maxDepth,
		maxBodyBytes: DefaultMaxBodyBytes,
		logger:       logging.OrNop(logger).With(logging.Component("graphql")),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req Request
	body := io.LimitReader(r.Body, h.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "Missing query", http.StatusBadRequest)
		return
	}

	timer := logging.StartTimer(h.logger, "graphql query", logging.String("operation", req.OperationName))
	result := Execute(r.Context(), h.schema, req.Query, req.Variables, h.maxDepth)
	timer.End()

	response := Response{Data: result.Data}
	if result.HasErrors() {
		response.Errors = make([]Error, len(result.Errors))
		for i, err := range result.Errors {
			response.Errors[i] = Error{Message: err.Message}
		}
		h.logger.Debug("graphql query returned errors", logging.Count(len(result.Errors)), logging.String("first", result.Errors[0].Message))
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}
