package workflow

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"chainflow/api/pkg/engine"
)

// =============================================================================
// Database Models - map directly to PostgreSQL tables
// =============================================================================

// Workflow represents a row in the workflows table. Definitions holds the
// frozen dynamic node-definition snapshot captured when the canvas was saved.
type Workflow struct {
	ID          uuid.UUID       `db:"id"`
	Name        string          `db:"name"`
	Description *string         `db:"description"`
	Version     int             `db:"version"`
	Definitions json.RawMessage `db:"definitions"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

// Node represents a row in the nodes table
type Node struct {
	WorkflowID uuid.UUID       `db:"workflow_id"`
	NodeID     string          `db:"node_id"`
	NodeType   string          `db:"node_type"`
	Label      *string         `db:"label"`
	XPos       float64         `db:"x_pos"`
	YPos       float64         `db:"y_pos"`
	Config     json.RawMessage `db:"config"`
}

// Edge represents a row in the edges table
type Edge struct {
	WorkflowID   uuid.UUID `db:"workflow_id"`
	EdgeID       string    `db:"edge_id"`
	SourceID     string    `db:"source_id"`
	TargetID     string    `db:"target_id"`
	SourceHandle *string   `db:"source_handle"`
	TargetHandle *string   `db:"target_handle"`
}

// WorkflowExecution represents a row in the workflow_executions table.
// Result holds the full run result (status, log, outputs, summary) as JSON.
type WorkflowExecution struct {
	ID            uuid.UUID       `db:"id"`
	WorkflowID    *uuid.UUID      `db:"workflow_id"`
	Status        string          `db:"status"`
	NodesExecuted int             `db:"nodes_executed"`
	ExecutedAt    time.Time       `db:"executed_at"`
	Result        json.RawMessage `db:"result"`
}

// =============================================================================
// API Response Models - match the JSON structure expected by the frontend
// =============================================================================

// WorkflowResponse is the API response for GET /workflows/{id}
type WorkflowResponse struct {
	ID    uuid.UUID      `json:"id"`
	Name  string         `json:"name"`
	Nodes []NodeResponse `json:"nodes"`
	Edges []EdgeResponse `json:"edges"`
}

// NodeResponse represents a node in the API response
type NodeResponse struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Position NodePosition     `json:"position"`
	Data     NodeDataResponse `json:"data"`
}

// NodePosition represents x/y coordinates
type NodePosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeDataResponse contains the node's display and configuration data
type NodeDataResponse struct {
	Label  string          `json:"label,omitempty"`
	Config json.RawMessage `json:"config,omitempty"`
}

// EdgeResponse represents an edge in the API response
type EdgeResponse struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// ExecutionResponse represents one past run in the executions listing.
type ExecutionResponse struct {
	ID            uuid.UUID       `json:"id"`
	Status        string          `json:"status"`
	NodesExecuted int             `json:"nodes_executed"`
	ExecutedAt    time.Time       `json:"executed_at"`
	Result        json.RawMessage `json:"result,omitempty"`
}

// =============================================================================
// Conversion functions
// =============================================================================

// ToResponse converts a Node to a NodeResponse
func (n *Node) ToResponse() NodeResponse {
	label := ""
	if n.Label != nil {
		label = *n.Label
	}

	return NodeResponse{
		ID:   n.NodeID,
		Type: n.NodeType,
		Position: NodePosition{
			X: n.XPos,
			Y: n.YPos,
		},
		Data: NodeDataResponse{
			Label:  label,
			Config: n.Config,
		},
	}
}

// ToResponse converts an Edge to an EdgeResponse
func (e *Edge) ToResponse() EdgeResponse {
	resp := EdgeResponse{
		ID:     e.EdgeID,
		Source: e.SourceID,
		Target: e.TargetID,
	}
	if e.SourceHandle != nil {
		resp.SourceHandle = *e.SourceHandle
	}
	if e.TargetHandle != nil {
		resp.TargetHandle = *e.TargetHandle
	}
	return resp
}

// ToResponse converts a WorkflowExecution to an ExecutionResponse
func (we *WorkflowExecution) ToResponse() ExecutionResponse {
	return ExecutionResponse{
		ID:            we.ID,
		Status:        we.Status,
		NodesExecuted: we.NodesExecuted,
		ExecutedAt:    we.ExecutedAt,
		Result:        we.Result,
	}
}

// BuildGraph converts persisted nodes and edges into the engine's canvas
// graph, decoding each node's config JSON and applying default handle names.
func BuildGraph(nodes []Node, edges []Edge) (*engine.Graph, error) {
	g := &engine.Graph{
		Nodes: make([]engine.Node, 0, len(nodes)),
		Edges: make([]engine.Edge, 0, len(edges)),
	}

	for _, n := range nodes {
		var config map[string]any
		if len(n.Config) > 0 {
			if err := json.Unmarshal(n.Config, &config); err != nil {
				return nil, fmt.Errorf("decode config of node %s: %w", n.NodeID, err)
			}
		}
		g.Nodes = append(g.Nodes, engine.Node{
			ID:     n.NodeID,
			Type:   n.NodeType,
			Config: config,
		})
	}

	for _, e := range edges {
		edge := engine.Edge{
			ID:     e.EdgeID,
			Source: e.SourceID,
			Target: e.TargetID,
		}
		if e.SourceHandle != nil {
			edge.SourceHandle = *e.SourceHandle
		}
		if e.TargetHandle != nil {
			edge.TargetHandle = *e.TargetHandle
		}
		g.Edges = append(g.Edges, edge)
	}

	g.ApplyDefaults()
	return g, nil
}
