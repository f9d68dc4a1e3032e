package engine

import (
	"context"
	"fmt"
	"time"
)

// ExecutionContext holds per-run state: the append-only map of node outputs
// and the human-readable execution log. It is owned exclusively by a single
// run and must not be shared across concurrent executions.
type ExecutionContext struct {
	// Ctx is the Go context for cancellation and timeouts
	Ctx context.Context

	// StartTime is when the workflow execution began
	StartTime time.Time

	outputs map[string]map[string]any
	order   []string
	log     *Log
}

// NewExecutionContext creates a fresh ExecutionContext for one run.
func NewExecutionContext(ctx context.Context) *ExecutionContext {
	return &ExecutionContext{
		Ctx:       ctx,
		StartTime: time.Now(),
		outputs:   make(map[string]map[string]any),
		log:       &Log{},
	}
}

// Outputs returns the recorded outputs for a node. A node that has not
// executed yet yields (nil, false).
func (ec *ExecutionContext) Outputs(nodeID string) (map[string]any, bool) {
	out, ok := ec.outputs[nodeID]
	return out, ok
}

// SetOutputs records a node's outputs. Entries are write-once: a second
// write for the same node is ignored, preserving the append-only invariant.
func (ec *ExecutionContext) SetOutputs(nodeID string, outputs map[string]any) {
	if _, exists := ec.outputs[nodeID]; exists {
		return
	}
	if outputs == nil {
		outputs = map[string]any{}
	}
	ec.outputs[nodeID] = outputs
	ec.order = append(ec.order, nodeID)
}

// Snapshot returns a shallow copy of all recorded outputs keyed by node id.
func (ec *ExecutionContext) Snapshot() map[string]map[string]any {
	snap := make(map[string]map[string]any, len(ec.outputs))
	for id, out := range ec.outputs {
		snap[id] = out
	}
	return snap
}

// ExecutedCount returns how many nodes have recorded outputs.
func (ec *ExecutionContext) ExecutedCount() int {
	return len(ec.order)
}

// Log returns the run's execution log.
func (ec *ExecutionContext) Log() *Log {
	return ec.log
}

// Log is the ordered, append-only sequence of human-readable trace lines
// produced during a single run.
type Log struct {
	lines []string
}

// Appendf appends a formatted trace line.
func (l *Log) Appendf(format string, args ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

// Warnf appends a warning line with the warning marker.
func (l *Log) Warnf(format string, args ...any) {
	l.lines = append(l.lines, "⚠️ "+fmt.Sprintf(format, args...))
}

// Failf appends a failure line with the failure marker.
func (l *Log) Failf(format string, args ...any) {
	l.lines = append(l.lines, "❌ "+fmt.Sprintf(format, args...))
}

// Lines returns the accumulated trace lines.
func (l *Log) Lines() []string {
	return l.lines
}
