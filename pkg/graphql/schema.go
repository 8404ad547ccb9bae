// Package graphql exposes viewer sessions over a graphql-go schema: session
// state, entities with positions, shortest paths, degree centrality and
// communities, plus layout mutations.
package graphql

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/graphql-go/graphql"

	"github.com/dd0wney/saga-graph/pkg/graph"
	"github.com/dd0wney/saga-graph/pkg/interaction"
	"github.com/dd0wney/saga-graph/pkg/viewer"
	"github.com/dd0wney/saga-graph/pkg/visualization"
)

// Sessions looks up open viewer sessions
type Sessions interface {
	Get(id string) (*viewer.Session, bool)
	List() []*viewer.Session
}

func layoutKinds() []string {
	kinds := visualization.Kinds()
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

func enumName(kind string) string { return strings.ToUpper(kind) }

// NewSchema builds the schema over sessions
func NewSchema(sessions Sessions) (graphql.Schema, error) {
	r := &resolver{sessions: sessions}

	sessionType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "Session",
		Description: "One open graph view",
		Fields: graphql.Fields{
			"id":        &graphql.Field{Type: graphql.NewNonNull(graphql.ID), Resolve: r.sessionField(func(s *viewer.Session) any { return s.ID() })},
			"graphId":   &graphql.Field{Type: graphql.NewNonNull(graphql.ID), Resolve: r.sessionField(func(s *viewer.Session) any { return s.GraphID() })},
			"state":     &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: r.statusField(func(st viewer.Status) any { return string(st.State) })},
			"message":   &graphql.Field{Type: graphql.String, Resolve: r.statusField(func(st viewer.Status) any { return st.Message })},
			"retryable": &graphql.Field{Type: graphql.Boolean, Resolve: r.statusField(func(st viewer.Status) any { return st.Retryable })},
			"layout":    &graphql.Field{Type: graphql.String, Resolve: r.statusField(func(st viewer.Status) any { return st.Layout })},
			"hostMode":  &graphql.Field{Type: graphql.String, Resolve: r.statusField(func(st viewer.Status) any { return st.HostMode })},
			"settled":   &graphql.Field{Type: graphql.Boolean, Resolve: r.statusField(func(st viewer.Status) any { return st.Settled })},
			"nodeCount": &graphql.Field{Type: graphql.Int, Resolve: r.statusField(func(st viewer.Status) any { return st.Nodes })},
			"edgeCount": &graphql.Field{Type: graphql.Int, Resolve: r.statusField(func(st viewer.Status) any { return st.Edges })},
			"issues": &graphql.Field{
				Type:    graphql.NewList(graphql.String),
				Resolve: r.sessionField(func(s *viewer.Session) any { return issueStrings(s.Issues()) }),
			},
			"entities": &graphql.Field{
				Type: graphql.NewList(entityType),
				Args: graphql.FieldConfigArgument{
					"type": &graphql.ArgumentConfig{Type: graphql.String, Description: "Only entities of this type"},
				},
				Resolve: r.entities,
			},
			"relationships": &graphql.Field{Type: graphql.NewList(relationshipType), Resolve: r.relationships},
			"communities":   &graphql.Field{Type: graphql.NewList(communityType), Resolve: r.communities},
		},
	})

	sessionArg := &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)}

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"health": &graphql.Field{
				Type:    graphql.String,
				Resolve: func(graphql.ResolveParams) (any, error) { return "ok", nil },
			},
			"sessions": &graphql.Field{
				Type: graphql.NewList(sessionType),
				Resolve: func(graphql.ResolveParams) (any, error) {
					return sessions.List(), nil
				},
			},
			"session": &graphql.Field{
				Type:    sessionType,
				Args:    graphql.FieldConfigArgument{"id": sessionArg},
				Resolve: r.session,
			},
			"shortestPath": &graphql.Field{
				Type: pathType,
				Args: graphql.FieldConfigArgument{
					"session": sessionArg,
					"from":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"to":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: r.shortestPath,
			},
			"centrality": &graphql.Field{
				Type: graphql.NewList(nodeScoreType),
				Args: graphql.FieldConfigArgument{
					"session": sessionArg,
					"top":     &graphql.ArgumentConfig{Type: graphql.Int, Description: "Return only the k highest-degree nodes"},
				},
				Resolve: r.centrality,
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"switchLayout": &graphql.Field{
				Type: sessionType,
				Args: graphql.FieldConfigArgument{
					"session": sessionArg,
					"kind":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(layoutKindEnum)},
				},
				Resolve: r.switchLayout,
			},
			"saveLayout": &graphql.Field{
				Type:    graphql.Boolean,
				Args:    graphql.FieldConfigArgument{"session": sessionArg},
				Resolve: r.saveLayout,
			},
			"restoreLayout": &graphql.Field{
				Type:        graphql.Int,
				Description: "Number of nodes moved",
				Args:        graphql.FieldConfigArgument{"session": sessionArg},
				Resolve:     r.restoreLayout,
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{Query: query, Mutation: mutation})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to create schema: %w", err)
	}
	return schema, nil
}

type resolver struct {
	sessions Sessions
}

func (r *resolver) lookup(p graphql.ResolveParams, arg string) (*viewer.Session, error) {
	id, _ := p.Args[arg].(string)
	s, ok := r.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, viewer.ErrSessionNotFound)
	}
	return s, nil
}

func resolveContext(p graphql.ResolveParams) context.Context {
	if p.Context != nil {
		return p.Context
	}
	return context.Background()
}

func (r *resolver) sessionField(fn func(*viewer.Session) any) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		s, ok := p.Source.(*viewer.Session)
		if !ok {
			return nil, nil
		}
		return fn(s), nil
	}
}

func (r *resolver) statusField(fn func(viewer.Status) any) graphql.FieldResolveFn {
	return r.sessionField(func(s *viewer.Session) any { return fn(s.Status()) })
}

func (r *resolver) session(p graphql.ResolveParams) (any, error) {
	id, _ := p.Args["id"].(string)
	s, ok := r.sessions.Get(id)
	if !ok {
		return nil, nil
	}
	return s, nil
}

func (r *resolver) entities(p graphql.ResolveParams) (any, error) {
	s, ok := p.Source.(*viewer.Session)
	if !ok {
		return nil, nil
	}
	g := s.Graph()
	if g == nil {
		return []entity{}, nil
	}
	filter, _ := p.Args["type"].(string)
	out := make([]entity, 0, len(g.Nodes))
	s.Host().Read(func() {
		for _, n := range g.Nodes {
			if filter != "" && string(n.Type) != filter {
				continue
			}
			out = append(out, entity{
				ID:         n.ID,
				Label:      n.Label,
				Type:       string(n.Type),
				Importance: n.Importance,
				URL:        n.URL,
				X:          n.X,
				Y:          n.Y,
				Pinned:     n.IsFixed(),
			})
		}
	})
	return out, nil
}

func (r *resolver) relationships(p graphql.ResolveParams) (any, error) {
	s, ok := p.Source.(*viewer.Session)
	if !ok {
		return nil, nil
	}
	g := s.Graph()
	if g == nil {
		return []relationship{}, nil
	}
	out := make([]relationship, len(g.Edges))
	for i, e := range g.Edges {
		out[i] = relationship{Source: e.Source, Target: e.Target, Relationship: e.Relationship, Strength: e.Strength}
	}
	return out, nil
}

func (r *resolver) communities(p graphql.ResolveParams) (any, error) {
	s, ok := p.Source.(*viewer.Session)
	if !ok {
		return nil, nil
	}
	groups, err := s.Communities(resolveContext(p))
	if err != nil {
		return nil, err
	}
	out := make([]community, 0, len(groups))
	for key, members := range groups {
		m := append([]string(nil), members...)
		sort.Strings(m)
		out = append(out, community{Key: key, Members: m})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (r *resolver) shortestPath(p graphql.ResolveParams) (any, error) {
	s, err := r.lookup(p, "session")
	if err != nil {
		return nil, err
	}
	from, _ := p.Args["from"].(string)
	to, _ := p.Args["to"].(string)
	path, ok, err := s.FindPath(resolveContext(p), from, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		return pathResult{Nodes: []string{}, Message: interaction.NoPathMessage}, nil
	}
	return pathResult{Found: true, Nodes: path, Length: len(path) - 1}, nil
}

func (r *resolver) centrality(p graphql.ResolveParams) (any, error) {
	s, err := r.lookup(p, "session")
	if err != nil {
		return nil, err
	}
	degrees, err := s.Centrality(resolveContext(p))
	if err != nil {
		return nil, err
	}
	return rankScores(s.Graph(), degrees, argInt(p, "top")), nil
}

// rankScores orders by degree descending then id; top <= 0 keeps all
func rankScores(g *graph.Graph, degrees map[string]int, top int) []nodeScore {
	out := make([]nodeScore, 0, len(degrees))
	for id, d := range degrees {
		score := nodeScore{ID: id, Degree: d}
		if g != nil {
			if n, ok := g.Node(id); ok {
				score.Label = n.Label
				score.Type = string(n.Type)
			}
		}
		out = append(out, score)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Degree != out[j].Degree {
			return out[i].Degree > out[j].Degree
		}
		return out[i].ID < out[j].ID
	})
	if top > 0 && top < len(out) {
		out = out[:top]
	}
	return out
}

func argInt(p graphql.ResolveParams, name string) int {
	v, _ := p.Args[name].(int)
	return v
}

func (r *resolver) switchLayout(p graphql.ResolveParams) (any, error) {
	s, err := r.lookup(p, "session")
	if err != nil {
		return nil, err
	}
	kind, _ := p.Args["kind"].(string)
	if err := s.SwitchLayout(resolveContext(p), visualization.Kind(kind)); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *resolver) saveLayout(p graphql.ResolveParams) (any, error) {
	s, err := r.lookup(p, "session")
	if err != nil {
		return nil, err
	}
	if err := s.SaveLayout(resolveContext(p)); err != nil {
		return nil, err
	}
	return true, nil
}

func (r *resolver) restoreLayout(p graphql.ResolveParams) (any, error) {
	s, err := r.lookup(p, "session")
	if err != nil {
		return nil, err
	}
	return s.RestoreLayout(resolveContext(p))
}

func issueStrings(issues []graph.Issue) []string {
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = issue.String()
	}
	return out
}
