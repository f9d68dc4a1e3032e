package engine

import (
	"fmt"
	"sort"
	"strings"
)

// CyclicGraphError reports nodes that can never be scheduled because they
// sit on (or downstream of) a cycle.
type CyclicGraphError struct {
	NodeIDs []string
}

func (e *CyclicGraphError) Error() string {
	return fmt.Sprintf("graph contains a cycle; unschedulable nodes: %s", strings.Join(e.NodeIDs, ", "))
}

// Order computes a deterministic execution order using Kahn's algorithm.
//
// In-degree counts distinct upstream source ids, not raw edge count, so
// duplicate edges between the same pair of nodes contribute a single
// dependency. Ties break FIFO by the order nodes appear in the input slice,
// which makes the result reproducible for identical input.
//
// If any node cannot reach zero remaining dependencies the graph is cyclic
// and Order returns a *CyclicGraphError naming the excluded nodes.
func Order(nodes []Node, edges []Edge) ([]Node, error) {
	byID := make(map[string]*Node, len(nodes))
	for i := range nodes {
		byID[nodes[i].ID] = &nodes[i]
	}

	// Distinct dependency pairs: target -> set of sources.
	deps := make(map[string]map[string]bool)
	dependents := make(map[string][]string)
	seen := make(map[string]bool)
	for _, e := range edges {
		if _, ok := byID[e.Source]; !ok {
			continue
		}
		if _, ok := byID[e.Target]; !ok {
			continue
		}
		pair := e.Source + "\x00" + e.Target
		if seen[pair] {
			continue
		}
		seen[pair] = true
		if deps[e.Target] == nil {
			deps[e.Target] = make(map[string]bool)
		}
		deps[e.Target][e.Source] = true
		dependents[e.Source] = append(dependents[e.Source], e.Target)
	}

	remaining := make(map[string]int, len(nodes))
	var queue []string
	for _, n := range nodes {
		remaining[n.ID] = len(deps[n.ID])
		if remaining[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}

	ordered := make([]Node, 0, len(nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		ordered = append(ordered, *byID[id])

		for _, target := range dependents[id] {
			remaining[target]--
			if remaining[target] == 0 {
				queue = append(queue, target)
			}
		}
	}

	if len(ordered) < len(nodes) {
		var stuck []string
		for id, count := range remaining {
			if count > 0 {
				stuck = append(stuck, id)
			}
		}
		sort.Strings(stuck)
		return nil, &CyclicGraphError{NodeIDs: stuck}
	}

	return ordered, nil
}
