package loader

import (
	"context"
	"errors"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/dd0wney/saga-graph/pkg/graph"
	"github.com/dd0wney/saga-graph/pkg/logging"
)

// ErrMissingURI is returned when a Neo4j source has no bolt URI
var ErrMissingURI = errors.New("neo4j uri is required")

// Neo4jSource reads entities and relationships of one graph with Cypher.
// Nodes carry id, label, type, importance and url properties; every
// relationship between two matched nodes becomes an edge.
type Neo4jSource struct {
	driver   neo4j.DriverWithContext
	database string
	graphID  string
	label    string
	logger   logging.Logger
}

// NewNeo4jSource connects to cfg.URI and verifies connectivity
func NewNeo4jSource(ctx context.Context, cfg Neo4jConfig, graphID string, logger logging.Logger) (*Neo4jSource, error) {
	if cfg.URI == "" {
		return nil, ErrMissingURI
	}
	if err := checkLabel(cfg.Label); err != nil {
		return nil, err
	}
	auth := neo4j.NoAuth()
	if cfg.Username != "" {
		auth = neo4j.BasicAuth(cfg.Username, cfg.Password, "")
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth)
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}
	return &Neo4jSource{
		driver:   driver,
		database: cfg.Database,
		graphID:  graphID,
		label:    cfg.Label,
		logger:   logging.OrNop(logger).With(logging.Component("loader.neo4j")),
	}, nil
}

func (s *Neo4jSource) Name() string { return "neo4j" }

// Close releases the driver
func (s *Neo4jSource) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Neo4jSource) Fetch(ctx context.Context) (*graph.Payload, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: s.database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	params := map[string]any{"graphId": s.graphID}
	nodeQuery, edgeQuery := cypherQueries(s.label, s.graphID != "")

	nodes, err := s.run(ctx, session, nodeQuery, params)
	if err != nil {
		return nil, err
	}
	edges, err := s.run(ctx, session, edgeQuery, params)
	if err != nil {
		return nil, err
	}

	p := &graph.Payload{
		Nodes: make([]graph.NodeData, 0, len(nodes)),
		Edges: make([]graph.EdgeData, 0, len(edges)),
	}
	for _, rec := range nodes {
		p.Nodes = append(p.Nodes, nodeFromRecord(rec))
	}
	for _, rec := range edges {
		p.Edges = append(p.Edges, edgeFromRecord(rec))
	}
	s.logger.Debug("neo4j graph fetched",
		logging.Int("nodes", len(p.Nodes)),
		logging.Int("edges", len(p.Edges)))
	return p, nil
}

func (s *Neo4jSource) run(ctx context.Context, session neo4j.SessionWithContext, cypher string, params map[string]any) ([]map[string]any, error) {
	res, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, &FetchError{Source: s.Name(), Retryable: ctx.Err() == nil, Err: err}
	}
	var records []map[string]any
	for res.Next(ctx) {
		rec := res.Record()
		record := make(map[string]any, len(rec.Keys))
		for _, key := range rec.Keys {
			value, _ := rec.Get(key)
			record[key] = value
		}
		records = append(records, record)
	}
	if err := res.Err(); err != nil {
		return nil, &FetchError{Source: s.Name(), Retryable: ctx.Err() == nil, Err: err}
	}
	return records, nil
}

// cypherQueries returns the node and edge queries. label is interpolated
// and must already have passed checkLabel.
func cypherQueries(label string, scoped bool) (string, string) {
	match := "(n)"
	a, b := "(a)", "(b)"
	if label != "" {
		match = fmt.Sprintf("(n:`%s`)", label)
		a = fmt.Sprintf("(a:`%s`)", label)
		b = fmt.Sprintf("(b:`%s`)", label)
	}
	nodeWhere, edgeWhere := "", ""
	if scoped {
		nodeWhere = " WHERE n.graphId = $graphId"
		edgeWhere = " WHERE a.graphId = $graphId AND b.graphId = $graphId"
	}
	nodes := "MATCH " + match + nodeWhere +
		" RETURN coalesce(n.id, elementId(n)) AS id, coalesce(n.label, n.name, '') AS label," +
		" coalesce(n.type, '') AS type, coalesce(n.importance, 0) AS importance, coalesce(n.url, '') AS url"
	edges := "MATCH " + a + "-[r]->" + b + edgeWhere +
		" RETURN coalesce(a.id, elementId(a)) AS source, coalesce(b.id, elementId(b)) AS target," +
		" coalesce(r.relationship, type(r)) AS relationship, coalesce(r.strength, 50) AS strength," +
		" coalesce(r.curvature, 0) AS curvature"
	return nodes, edges
}

func nodeFromRecord(rec map[string]any) graph.NodeData {
	return graph.NodeData{
		ID:         stringValue(rec["id"]),
		Label:      stringValue(rec["label"]),
		Type:       stringValue(rec["type"]),
		Importance: floatValue(rec["importance"]),
		URL:        stringValue(rec["url"]),
	}
}

func edgeFromRecord(rec map[string]any) graph.EdgeData {
	return graph.EdgeData{
		Source:       stringValue(rec["source"]),
		Target:       stringValue(rec["target"]),
		Relationship: stringValue(rec["relationship"]),
		Strength:     floatValue(rec["strength"]),
		Curvature:    floatValue(rec["curvature"]),
	}
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func floatValue(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case int:
		return float64(t)
	}
	return 0
}
