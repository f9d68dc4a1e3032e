package engine

import (
	"log/slog"
)

// Run statuses reported in RunResult.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// RunSummary is the compact completion summary returned with every run.
type RunSummary struct {
	NodesExecuted int    `json:"nodes_executed"`
	Status        string `json:"status"`
}

// RunResult is the outcome of executing one graph: the final status, the
// human-readable log, every executed node's outputs, and the error that
// stopped the run, if any. On failure the partial outputs and log up to the
// failure point are preserved.
type RunResult struct {
	Status  string                    `json:"status"`
	Log     []string                  `json:"log"`
	Outputs map[string]map[string]any `json:"outputs"`
	Summary RunSummary                `json:"summary"`
	Error   string                    `json:"error,omitempty"`
}

// Executor runs a workflow graph to completion (or first failure),
// synchronously and in a single pass.
type Executor struct {
	registry *Registry
}

// NewExecutor creates a new workflow executor with the given handler registry
func NewExecutor(registry *Registry) *Executor {
	return &Executor{registry: registry}
}

// Execute validates the graph, computes the execution order, and runs every
// node in that order, wiring each node's inputs from its upstream outputs.
//
// Graph defects (dangling edges, cycles) and handler errors produce an error
// result; business-logic failures inside a node's output map are logged and
// execution continues.
func (e *Executor) Execute(ec *ExecutionContext, graph *Graph) *RunResult {
	log := ec.Log()

	if err := graph.Validate(); err != nil {
		log.Failf("Invalid workflow graph: %v", err)
		return e.failed(ec, err)
	}

	ordered, err := Order(graph.Nodes, graph.Edges)
	if err != nil {
		log.Failf("Could not schedule workflow: %v", err)
		return e.failed(ec, err)
	}

	log.Appendf("Execution order: %d nodes", len(ordered))

	for i := range ordered {
		node := &ordered[i]

		if err := ec.Ctx.Err(); err != nil {
			log.Failf("Execution cancelled before node %s: %v", node.ID, err)
			return e.failed(ec, err)
		}

		inputs := ResolveInputs(node.ID, graph.Edges, ec)

		outputs, err := e.dispatch(ec, node, inputs)
		if err != nil {
			slog.Error("node execution failed", "node", node.ID, "type", node.Type, "error", err)
			log.Failf("Node %s (%s) failed: %v", node.ID, node.Type, err)
			return e.failed(ec, err)
		}

		ec.SetOutputs(node.ID, outputs)

		if msg, ok := outputs["error"].(string); ok && msg != "" {
			log.Warnf("Node %s (%s) reported: %s", node.ID, node.Type, msg)
		} else {
			log.Appendf("Executed node %s (%s)", node.ID, node.Type)
		}
	}

	log.Appendf("Workflow completed: %d nodes executed", ec.ExecutedCount())

	return &RunResult{
		Status:  StatusSuccess,
		Log:     log.Lines(),
		Outputs: ec.Snapshot(),
		Summary: RunSummary{NodesExecuted: ec.ExecutedCount(), Status: StatusSuccess},
	}
}

// dispatch selects the handler for the node's type, falling back to the
// dynamic handler and then to a logged no-op for unknown types.
func (e *Executor) dispatch(ec *ExecutionContext, node *Node, inputs map[string]any) (map[string]any, error) {
	handler, ok := e.registry.Get(node.Type)
	if !ok {
		handler, ok = e.registry.Fallback()
	}
	if !ok {
		ec.Log().Warnf("Unknown node type %q (node %s); skipping", node.Type, node.ID)
		return map[string]any{}, nil
	}
	return handler.Execute(ec, node, inputs)
}

func (e *Executor) failed(ec *ExecutionContext, err error) *RunResult {
	return &RunResult{
		Status:  StatusError,
		Log:     ec.Log().Lines(),
		Outputs: ec.Snapshot(),
		Summary: RunSummary{NodesExecuted: ec.ExecutedCount(), Status: StatusError},
		Error:   err.Error(),
	}
}
