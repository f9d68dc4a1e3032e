package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestExecutor(t *testing.T) {
	t.Run("runs all nodes in dependency order", func(t *testing.T) {
		graph := &Graph{
			Nodes: []Node{
				{ID: "input-1", Type: "source"},
				{ID: "query-1", Type: "query"},
				{ID: "export-1", Type: "sink"},
			},
			Edges: []Edge{
				{Source: "input-1", Target: "query-1", SourceHandle: "address", TargetHandle: "address"},
				{Source: "query-1", Target: "export-1", SourceHandle: "output", TargetHandle: "data"},
			},
		}

		registry := NewRegistry()
		registry.Register(&mockHandler{nodeType: "source", output: map[string]any{"address": "bc1qxy"}})
		registry.Register(&echoHandler{nodeType: "query"})
		registry.Register(&echoHandler{nodeType: "sink"})

		executor := NewExecutor(registry)
		result := executor.Execute(NewExecutionContext(context.Background()), graph)

		if result.Status != StatusSuccess {
			t.Fatalf("expected success, got %q (%s)", result.Status, result.Error)
		}
		if result.Summary.NodesExecuted != 3 {
			t.Errorf("expected 3 nodes executed, got %d", result.Summary.NodesExecuted)
		}
		if len(result.Outputs) != 3 {
			t.Errorf("expected outputs for 3 nodes, got %d", len(result.Outputs))
		}

		// query-1 saw the address bound from input-1
		query := result.Outputs["query-1"]
		if query["address"] != "bc1qxy" {
			t.Errorf("expected wired address, got %v", query["address"])
		}
	})

	t.Run("handler error aborts run and preserves partial state", func(t *testing.T) {
		graph := &Graph{
			Nodes: []Node{
				{ID: "ok-1", Type: "ok"},
				{ID: "boom-1", Type: "boom"},
				{ID: "never-1", Type: "ok"},
			},
			Edges: []Edge{
				{Source: "ok-1", Target: "boom-1"},
				{Source: "boom-1", Target: "never-1"},
			},
		}

		registry := NewRegistry()
		registry.Register(&mockHandler{nodeType: "ok", output: map[string]any{"done": true}})
		registry.Register(&failingHandler{nodeType: "boom"})

		executor := NewExecutor(registry)
		result := executor.Execute(NewExecutionContext(context.Background()), graph)

		if result.Status != StatusError {
			t.Fatalf("expected error status, got %q", result.Status)
		}
		if result.Error == "" {
			t.Error("expected error message in result")
		}
		if _, ok := result.Outputs["ok-1"]; !ok {
			t.Error("expected outputs of completed node to be preserved")
		}
		if _, ok := result.Outputs["never-1"]; ok {
			t.Error("node after failure must not execute")
		}
		if !hasFailureLine(result.Log) {
			t.Error("expected a failure marker line in the log")
		}
	})

	t.Run("business error in output map does not abort", func(t *testing.T) {
		graph := &Graph{
			Nodes: []Node{
				{ID: "soft-1", Type: "soft"},
				{ID: "after-1", Type: "ok"},
			},
			Edges: []Edge{{Source: "soft-1", Target: "after-1"}},
		}

		registry := NewRegistry()
		registry.Register(&mockHandler{nodeType: "soft", output: map[string]any{"error": "address not found"}})
		registry.Register(&mockHandler{nodeType: "ok", output: map[string]any{"done": true}})

		executor := NewExecutor(registry)
		result := executor.Execute(NewExecutionContext(context.Background()), graph)

		if result.Status != StatusSuccess {
			t.Fatalf("expected success despite soft error, got %q", result.Status)
		}
		if _, ok := result.Outputs["after-1"]; !ok {
			t.Error("expected downstream node to run after a soft error")
		}
	})

	t.Run("unknown node type without fallback is skipped with a warning", func(t *testing.T) {
		graph := &Graph{
			Nodes: []Node{{ID: "weird-1", Type: "no_such_type"}},
		}

		executor := NewExecutor(NewRegistry())
		result := executor.Execute(NewExecutionContext(context.Background()), graph)

		if result.Status != StatusSuccess {
			t.Fatalf("expected success, got %q", result.Status)
		}
		out, ok := result.Outputs["weird-1"]
		if !ok || len(out) != 0 {
			t.Errorf("expected empty outputs for unknown type, got %v", out)
		}
	})

	t.Run("fallback handler receives unregistered types", func(t *testing.T) {
		graph := &Graph{
			Nodes: []Node{{ID: "dyn-1", Type: "acme_lookup"}},
		}

		registry := NewRegistry()
		registry.SetFallback(&mockHandler{nodeType: "*", output: map[string]any{"dynamic": true}})

		executor := NewExecutor(registry)
		result := executor.Execute(NewExecutionContext(context.Background()), graph)

		if result.Outputs["dyn-1"]["dynamic"] != true {
			t.Errorf("expected fallback output, got %v", result.Outputs["dyn-1"])
		}
	})

	t.Run("dangling edge is a graph defect", func(t *testing.T) {
		graph := &Graph{
			Nodes: []Node{{ID: "a", Type: "ok"}},
			Edges: []Edge{{Source: "a", Target: "ghost"}},
		}

		registry := NewRegistry()
		registry.Register(&mockHandler{nodeType: "ok", output: nil})

		executor := NewExecutor(registry)
		result := executor.Execute(NewExecutionContext(context.Background()), graph)

		if result.Status != StatusError {
			t.Fatalf("expected error status for dangling edge, got %q", result.Status)
		}
	})

	t.Run("cycle reports error instead of dropping nodes", func(t *testing.T) {
		graph := &Graph{
			Nodes: []Node{
				{ID: "a", Type: "ok"},
				{ID: "b", Type: "ok"},
			},
			Edges: []Edge{
				{Source: "a", Target: "b"},
				{Source: "b", Target: "a"},
			},
		}

		registry := NewRegistry()
		registry.Register(&mockHandler{nodeType: "ok", output: nil})

		executor := NewExecutor(registry)
		result := executor.Execute(NewExecutionContext(context.Background()), graph)

		if result.Status != StatusError {
			t.Fatalf("expected error status for cyclic graph, got %q", result.Status)
		}
		if result.Summary.NodesExecuted != 0 {
			t.Errorf("no node should execute in a fully cyclic graph, got %d", result.Summary.NodesExecuted)
		}
	})

	t.Run("cancelled context aborts execution", func(t *testing.T) {
		graph := &Graph{
			Nodes: []Node{{ID: "a", Type: "ok"}},
		}

		registry := NewRegistry()
		registry.Register(&mockHandler{nodeType: "ok", output: nil})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		executor := NewExecutor(registry)
		result := executor.Execute(NewExecutionContext(ctx), graph)

		if result.Status != StatusError {
			t.Fatalf("expected error status for cancelled context, got %q", result.Status)
		}
	})
}

// Mock handlers for testing

type mockHandler struct {
	nodeType string
	output   map[string]any
}

func (h *mockHandler) NodeType() string { return h.nodeType }
func (h *mockHandler) Execute(ec *ExecutionContext, node *Node, inputs map[string]any) (map[string]any, error) {
	return h.output, nil
}

// echoHandler returns its resolved inputs as outputs, for wiring assertions.
type echoHandler struct {
	nodeType string
}

func (h *echoHandler) NodeType() string { return h.nodeType }
func (h *echoHandler) Execute(ec *ExecutionContext, node *Node, inputs map[string]any) (map[string]any, error) {
	return inputs, nil
}

type failingHandler struct {
	nodeType string
}

func (h *failingHandler) NodeType() string { return h.nodeType }
func (h *failingHandler) Execute(ec *ExecutionContext, node *Node, inputs map[string]any) (map[string]any, error) {
	return nil, errors.New("handler failed")
}

func hasFailureLine(lines []string) bool {
	for _, line := range lines {
		if strings.HasPrefix(line, "❌") {
			return true
		}
	}
	return false
}
