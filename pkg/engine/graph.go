package engine

import (
	"encoding/json"
	"fmt"
)

// Default handle names used when the canvas omits them.
const (
	DefaultSourceHandle = "output"
	DefaultTargetHandle = "input"
)

// Node represents a unit of work on the canvas.
// Config is handler-specific and immutable during execution.
type Node struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Config map[string]any `json:"config,omitempty"`
}

// Edge represents a directed data dependency between two nodes:
// the target's input named TargetHandle is fed by the source's
// output named SourceHandle.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// Graph is the canvas representation of a workflow.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// ParseGraph decodes the canvas JSON {"nodes":[...],"edges":[...]} and
// applies default handle names to edges that omit them.
func ParseGraph(data []byte) (*Graph, error) {
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse graph: %w", err)
	}
	g.ApplyDefaults()
	return &g, nil
}

// ApplyDefaults fills in default handle names on edges that omit them.
func (g *Graph) ApplyDefaults() {
	for i := range g.Edges {
		if g.Edges[i].SourceHandle == "" {
			g.Edges[i].SourceHandle = DefaultSourceHandle
		}
		if g.Edges[i].TargetHandle == "" {
			g.Edges[i].TargetHandle = DefaultTargetHandle
		}
	}
}

// Validate checks that every edge endpoint references an existing node.
func (g *Graph) Validate() error {
	ids := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.ID == "" {
			return fmt.Errorf("graph contains a node with an empty id")
		}
		if ids[n.ID] {
			return fmt.Errorf("duplicate node id %q", n.ID)
		}
		ids[n.ID] = true
	}
	for _, e := range g.Edges {
		if !ids[e.Source] {
			return fmt.Errorf("edge %s references unknown source node %q", e.ID, e.Source)
		}
		if !ids[e.Target] {
			return fmt.Errorf("edge %s references unknown target node %q", e.ID, e.Target)
		}
	}
	return nil
}

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (*Node, bool) {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i], true
		}
	}
	return nil, false
}
