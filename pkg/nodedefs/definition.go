// Package nodedefs resolves dynamically-defined node types — identified by a
// {provider}_{operation} naming convention — into declarative request
// templates that a generic HTTP executor can run. Definitions come either
// from a frozen per-workflow snapshot or from a live registry built out of a
// provider's OpenAPI document.
package nodedefs

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RequestTemplate describes how to build the HTTP request for a dynamic node.
// Path parameters appear as {name} placeholders; Query and Headers values may
// also be {name} placeholders filled from the node's parameters.
type RequestTemplate struct {
	Method       string            `json:"method"`
	PathTemplate string            `json:"path_template"`
	Query        map[string]string `json:"query,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
}

// Definition is the declarative description of a dynamic node type.
// ResponseMapping maps output keys to dotted paths into the JSON response
// (e.g. "balance" -> "data.balanceUsd").
type Definition struct {
	Type            string            `json:"type"`
	Request         RequestTemplate   `json:"request_template"`
	ResponseMapping map[string]string `json:"response_mapping,omitempty"`
}

// Resolver looks up a dynamic node definition by node type.
// Absence is a handleable condition, not an error.
type Resolver interface {
	Lookup(nodeType string) (*Definition, bool)
}

// Snapshot is a frozen set of definitions embedded in a workflow at save
// time, keyed by node type.
type Snapshot map[string]*Definition

// ParseSnapshot decodes a frozen definition set from graph JSON.
func ParseSnapshot(data []byte) (Snapshot, error) {
	var defs []*Definition
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parse definition snapshot: %w", err)
	}
	snap := make(Snapshot, len(defs))
	for _, def := range defs {
		if def.Type == "" {
			return nil, fmt.Errorf("definition snapshot contains an entry without a type")
		}
		snap[def.Type] = def
	}
	return snap, nil
}

// Lookup implements Resolver.
func (s Snapshot) Lookup(nodeType string) (*Definition, bool) {
	def, ok := s[nodeType]
	return def, ok
}

// Chain tries each resolver in order; the first hit wins. The conventional
// order is frozen snapshot first, live registry second.
type Chain []Resolver

// Lookup implements Resolver.
func (c Chain) Lookup(nodeType string) (*Definition, bool) {
	for _, r := range c {
		if r == nil {
			continue
		}
		if def, ok := r.Lookup(nodeType); ok {
			return def, true
		}
	}
	return nil, false
}

// SplitType splits a {provider}_{operation} node type into its parts.
// The provider is the segment before the first underscore.
func SplitType(nodeType string) (provider, operation string, ok bool) {
	provider, operation, ok = strings.Cut(nodeType, "_")
	if provider == "" || operation == "" {
		return "", "", false
	}
	return provider, operation, ok
}
