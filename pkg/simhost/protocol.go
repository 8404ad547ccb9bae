package simhost

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/dd0wney/saga-graph/pkg/graph"
)

// Message types of the worker protocol
const (
	MsgInit        = "init"
	MsgDrag        = "drag"
	MsgCentrality  = "calculate-centrality"
	MsgCommunities = "find-communities"
	MsgShortest    = "shortest-path"
	MsgStop        = "stop"
	MsgPing        = "ping"
	MsgRestore     = "restore"

	MsgTick              = "tick"
	MsgEnd               = "end"
	MsgCentralityResult  = "centrality-result"
	MsgCommunitiesResult = "communities-result"
	MsgShortestResult    = "shortest-path-result"
	MsgError             = "error"
	MsgPong              = "pong"
	MsgRestored          = "restored"
	MsgRestart           = "restart"
)

// Message is one JSON envelope on the worker socket. Requests that expect a
// reply carry a RequestID which the reply echoes.
//
// Epoch orders node state between the two sides: the host raises it with
// every drag and restore it sends, and the worker stamps its ticks with the
// highest epoch it has applied. Run numbers the simulation runs of the
// worker, so a restart and the end of an earlier run cannot be confused.
type Message struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Epoch     int64           `json:"epoch,omitempty"`
	Run       int64           `json:"run,omitempty"`

	SourceID string `json:"sourceId,omitempty"`
	TargetID string `json:"targetId,omitempty"`

	Nodes       []NodeState         `json:"nodes,omitempty"`
	Reason      string              `json:"reason,omitempty"`
	Centrality  map[string]int      `json:"centrality,omitempty"`
	Communities map[string][]string `json:"communities,omitempty"`
	Path        []string            `json:"path,omitempty"`
	Found       bool                `json:"found,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// NodeState is the mutable part of a node sent with every tick
type NodeState struct {
	ID     string   `json:"id"`
	X      float64  `json:"x"`
	Y      float64  `json:"y"`
	VX     float64  `json:"vx"`
	VY     float64  `json:"vy"`
	FX     *float64 `json:"fx,omitempty"`
	FY     *float64 `json:"fy,omitempty"`
	Pinned bool     `json:"pinned,omitempty"`
}

// InitNode is a node as sent in an init message: wire data plus state
type InitNode struct {
	graph.NodeData
	State NodeState `json:"state"`
}

// InitData is the payload of an init message
type InitData struct {
	Nodes  []InitNode       `json:"nodes"`
	Edges  []graph.EdgeData `json:"edges"`
	Config LayoutRequest    `json:"config"`
}

// NewMessage creates a message whose Data is the JSON encoding of data
func NewMessage(msgType string, data any) (*Message, error) {
	m := &Message{Type: msgType}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", msgType, err)
		}
		m.Data = raw
	}
	return m, nil
}

// Decode decodes message data into the provided value
func (m *Message) Decode(v any) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("%s message has no data", m.Type)
	}
	return json.Unmarshal(m.Data, v)
}

func encodeMessage(m *Message) ([]byte, error) {
	return json.Marshal(m)
}

func decodeMessage(b []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode worker message: %w", err)
	}
	return &m, nil
}

// captureState snapshots node state. JSON has no NaN, so non-finite
// values go out as zero. Callers hold the host lock.
func captureState(nodes []*graph.Node) []NodeState {
	out := make([]NodeState, len(nodes))
	for i, n := range nodes {
		out[i] = NodeState{ID: n.ID, X: finite(n.X), Y: finite(n.Y), VX: finite(n.VX), VY: finite(n.VY), Pinned: n.Pinned}
		if n.IsFixed() {
			fx, fy := *n.FX, *n.FY
			out[i].FX, out[i].FY = &fx, &fy
		}
	}
	return out
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// mergeState copies states onto the nodes of g by id, keeping node
// identity. Unknown ids are ignored. Callers hold the host lock.
func mergeState(g *graph.Graph, states []NodeState) {
	for _, s := range states {
		n, ok := g.Node(s.ID)
		if !ok {
			continue
		}
		n.X, n.Y, n.VX, n.VY = s.X, s.Y, s.VX, s.VY
		n.Pinned = s.Pinned
		if s.FX != nil && s.FY != nil {
			fx, fy := *s.FX, *s.FY
			n.FX, n.FY = &fx, &fy
		} else {
			n.FX, n.FY = nil, nil
		}
	}
}

// initFromGraph builds the init payload for g. Callers hold the host lock.
func initFromGraph(g *graph.Graph, req LayoutRequest) InitData {
	states := captureState(g.Nodes)
	data := InitData{
		Nodes:  make([]InitNode, len(g.Nodes)),
		Edges:  make([]graph.EdgeData, len(g.Edges)),
		Config: req,
	}
	for i, n := range g.Nodes {
		data.Nodes[i] = InitNode{
			NodeData: graph.NodeData{ID: n.ID, Label: n.Label, Type: string(n.Type), Importance: n.Importance, URL: n.URL},
			State:    states[i],
		}
	}
	for i, e := range g.Edges {
		data.Edges[i] = graph.EdgeData{
			Source: e.Source, Target: e.Target,
			Relationship: e.Relationship, Strength: e.Strength, Curvature: e.Curvature,
		}
	}
	return data
}

// graphFromInit rebuilds a worker-side graph from an init payload
func graphFromInit(id string, data InitData) *graph.Graph {
	nodes := make([]*graph.Node, len(data.Nodes))
	for i, in := range data.Nodes {
		nodes[i] = &graph.Node{
			ID:         in.ID,
			Label:      in.Label,
			Type:       graph.EntityType(in.Type),
			Importance: in.Importance,
			URL:        in.URL,
		}
	}
	edges := make([]*graph.Edge, len(data.Edges))
	for i, ed := range data.Edges {
		edges[i] = &graph.Edge{
			Source: ed.Source, Target: ed.Target,
			Relationship: ed.Relationship, Strength: ed.Strength, Curvature: ed.Curvature,
		}
	}
	g := graph.New(id, nodes, edges)
	states := make([]NodeState, len(data.Nodes))
	for i, in := range data.Nodes {
		states[i] = in.State
		states[i].ID = in.ID
	}
	mergeState(g, states)
	return g
}
