package engine

import (
	"sync"
)

// NodeHandler defines the interface for handling different node types.
// Implementations should be stateless and thread-safe.
//
// Business-logic failures (a missing address, an upstream "not found") are
// reported as an "error" key inside the returned output map and do not abort
// the run. A non-nil Go error is reserved for failures that must abort the
// whole run.
type NodeHandler interface {
	// NodeType returns the type of node this handler processes
	NodeType() string

	// Execute processes the node with the resolved inputs and returns its
	// named outputs.
	Execute(ec *ExecutionContext, node *Node, inputs map[string]any) (map[string]any, error)
}

// Registry maps node types to their handlers.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]NodeHandler
	fallback NodeHandler
}

// NewRegistry creates a new empty handler registry
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]NodeHandler),
	}
}

// Register adds a handler for a specific node type.
// If a handler for this type already exists, it will be replaced.
func (r *Registry) Register(handler NodeHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[handler.NodeType()] = handler
}

// SetFallback installs the handler used for node types with no registered
// handler, typically the dynamic-definition handler.
func (r *Registry) SetFallback(handler NodeHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = handler
}

// Get returns the handler for a given node type
func (r *Registry) Get(nodeType string) (NodeHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[nodeType]
	return h, ok
}

// Fallback returns the fallback handler, if any.
func (r *Registry) Fallback() (NodeHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fallback, r.fallback != nil
}

// NodeTypes returns all registered node types
func (r *Registry) NodeTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	return types
}
