package graphql

import (
	"github.com/graphql-go/graphql"
)

// entity is the resolved shape of a graph node
type entity struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	Type       string  `json:"type"`
	Importance float64 `json:"importance"`
	URL        string  `json:"url"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Pinned     bool    `json:"pinned"`
}

type relationship struct {
	Source       string  `json:"source"`
	Target       string  `json:"target"`
	Relationship string  `json:"relationship"`
	Strength     float64 `json:"strength"`
}

type nodeScore struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Type   string `json:"type"`
	Degree int    `json:"degree"`
}

type community struct {
	Key     string   `json:"key"`
	Members []string `json:"members"`
}

type pathResult struct {
	Found   bool     `json:"found"`
	Nodes   []string `json:"nodes"`
	Length  int      `json:"length"`
	Message string   `json:"message"`
}

var entityType = graphql.NewObject(graphql.ObjectConfig{
	Name:        "Entity",
	Description: "A node of a relationship graph with its current position",
	Fields: graphql.Fields{
		"id":         &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"label":      &graphql.Field{Type: graphql.String},
		"type":       &graphql.Field{Type: graphql.String},
		"importance": &graphql.Field{Type: graphql.Float},
		"url":        &graphql.Field{Type: graphql.String},
		"x":          &graphql.Field{Type: graphql.Float},
		"y":          &graphql.Field{Type: graphql.Float},
		"pinned":     &graphql.Field{Type: graphql.Boolean},
	},
})

var relationshipType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Relationship",
	Fields: graphql.Fields{
		"source":       &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"target":       &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"relationship": &graphql.Field{Type: graphql.String},
		"strength":     &graphql.Field{Type: graphql.Float},
	},
})

var nodeScoreType = graphql.NewObject(graphql.ObjectConfig{
	Name: "NodeScore",
	Fields: graphql.Fields{
		"id":     &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"label":  &graphql.Field{Type: graphql.String},
		"type":   &graphql.Field{Type: graphql.String},
		"degree": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
	},
})

var communityType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Community",
	Fields: graphql.Fields{
		"key":     &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"members": &graphql.Field{Type: graphql.NewList(graphql.NewNonNull(graphql.ID))},
	},
})

var pathType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Path",
	Fields: graphql.Fields{
		"found":   &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		"nodes":   &graphql.Field{Type: graphql.NewList(graphql.NewNonNull(graphql.ID))},
		"length":  &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"message": &graphql.Field{Type: graphql.String},
	},
})

var layoutKindEnum = func() *graphql.Enum {
	values := graphql.EnumValueConfigMap{}
	for _, k := range layoutKinds() {
		values[enumName(k)] = &graphql.EnumValueConfig{Value: k}
	}
	return graphql.NewEnum(graphql.EnumConfig{Name: "LayoutKind", Values: values})
}()
