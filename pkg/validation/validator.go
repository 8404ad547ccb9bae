package validation

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/dd0wney/saga-graph/pkg/graph"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// MaxNodes and MaxEdges bound a single graph load
	MaxNodes = 50000
	MaxEdges = 200000
)

// ErrValidation matches every FieldError with errors.Is
var ErrValidation = errors.New("validation failed")

// FieldError reports the first failing field of a struct
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Message }

// Is makes FieldError match ErrValidation
func (e *FieldError) Is(target error) bool { return target == ErrValidation }

// ErrNilPayload is returned when there is nothing to validate
var ErrNilPayload = errors.New("graph payload cannot be nil")

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
}

// Struct validates any struct carrying `validate` tags.
func Struct(v any) error {
	if err := validate.Struct(v); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidatePayload checks the size limits and field tags of a graph payload.
// Referential integrity (dangling edges, duplicates) is left to graph.Build,
// which skips offending items instead of rejecting the whole graph.
func ValidatePayload(p *graph.Payload) error {
	if p == nil {
		return ErrNilPayload
	}
	if len(p.Nodes) > MaxNodes {
		return fmt.Errorf("nodes: maximum %d nodes allowed, got %d", MaxNodes, len(p.Nodes))
	}
	if len(p.Edges) > MaxEdges {
		return fmt.Errorf("edges: maximum %d edges allowed, got %d", MaxEdges, len(p.Edges))
	}
	return Struct(p)
}

// FilterPayload drops the nodes and edges that fail their field tags and
// returns the remaining payload with one error per dropped item.
func FilterPayload(p *graph.Payload) (*graph.Payload, []error) {
	if p == nil {
		return nil, []error{ErrNilPayload}
	}
	out := &graph.Payload{
		Nodes: make([]graph.NodeData, 0, len(p.Nodes)),
		Edges: make([]graph.EdgeData, 0, len(p.Edges)),
	}
	var errs []error
	for i := range p.Nodes {
		if err := Struct(&p.Nodes[i]); err != nil {
			errs = append(errs, fmt.Errorf("nodes[%d]: %w", i, err))
			continue
		}
		out.Nodes = append(out.Nodes, p.Nodes[i])
	}
	for i := range p.Edges {
		if err := Struct(&p.Edges[i]); err != nil {
			errs = append(errs, fmt.Errorf("edges[%d]: %w", i, err))
			continue
		}
		out.Edges = append(out.Edges, p.Edges[i])
	}
	return out, errs
}

// formatValidationError converts validator errors to a user-friendly form
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	for _, e := range validationErrs {
		field := e.Namespace()
		param := e.Param()

		switch e.Tag() {
		case "required":
			return &FieldError{Field: field, Message: "field is required"}
		case "min", "gte":
			return &FieldError{Field: field, Message: "must be at least " + param}
		case "max", "lte":
			return &FieldError{Field: field, Message: "must not exceed " + param}
		case "oneof":
			return &FieldError{Field: field, Message: fmt.Sprintf("must be one of [%s]", param)}
		case "url":
			return &FieldError{Field: field, Message: "must be a valid URL"}
		default:
			return &FieldError{Field: field, Message: fmt.Sprintf("validation failed (%s)", e.Tag())}
		}
	}

	return err
}
