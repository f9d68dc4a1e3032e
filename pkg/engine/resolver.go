package engine

// ResolveInputs collects the inputs for a node from the outputs of its
// upstream neighbors recorded in the execution context.
//
// For every edge targeting the node: if the edge's sourceHandle exists as a
// key in the source node's outputs, the targetHandle is bound to that single
// value; otherwise it is bound to the entire source-output map as a
// best-effort fallback when handle names don't align.
//
// Exception: a targetHandle of "data" always receives the full source-output
// map, even when a key matching the sourceHandle exists, so export nodes can
// inspect every field the upstream node produced.
//
// If multiple edges bind the same targetHandle, the later edge (in edge-list
// order) wins; there is no merging.
func ResolveInputs(nodeID string, edges []Edge, ec *ExecutionContext) map[string]any {
	inputs := make(map[string]any)

	for _, edge := range edges {
		if edge.Target != nodeID {
			continue
		}

		sourceOutputs, ok := ec.Outputs(edge.Source)
		if !ok {
			sourceOutputs = map[string]any{}
		}

		if edge.TargetHandle == "data" {
			inputs[edge.TargetHandle] = sourceOutputs
			continue
		}

		if value, ok := sourceOutputs[edge.SourceHandle]; ok {
			inputs[edge.TargetHandle] = value
		} else {
			inputs[edge.TargetHandle] = sourceOutputs
		}
	}

	return inputs
}
