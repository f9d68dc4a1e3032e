package handlers

import (
	"fmt"

	"chainflow/api/pkg/engine"
	"chainflow/api/pkg/nodedefs"
)

// Dynamic is the registry fallback: it resolves unregistered
// {provider}_{operation} node types through the definition resolver and runs
// them with the templated HTTP executor. A missing definition yields empty
// outputs plus a warning, never a crash.
type Dynamic struct {
	defs     nodedefs.Resolver
	exec     *nodedefs.HTTPExecutor
	baseURLs map[string]string
	tokens   map[string]string
}

// NewDynamic builds the dynamic fallback from the shared dependency set.
func NewDynamic(deps Deps) *Dynamic {
	return &Dynamic{
		defs:     deps.Definitions,
		exec:     nodedefs.NewHTTPExecutor(deps.HTTPClient),
		baseURLs: deps.ProviderBaseURLs,
		tokens:   deps.ProviderTokens,
	}
}

func (h *Dynamic) NodeType() string { return "dynamic" }

func (h *Dynamic) Execute(ec *engine.ExecutionContext, node *engine.Node, inputs map[string]any) (map[string]any, error) {
	if h.defs == nil {
		ec.Log().Warnf("no dynamic definitions available for node type %q", node.Type)
		return map[string]any{}, nil
	}

	def, ok := h.defs.Lookup(node.Type)
	if !ok {
		ec.Log().Warnf("no definition found for node type %q", node.Type)
		return map[string]any{}, nil
	}

	provider, _, _ := nodedefs.SplitType(node.Type)
	baseURL := h.baseURLs[provider]
	if baseURL == "" {
		return errOutput("no base URL configured for provider %q", provider), nil
	}

	params := dynamicParams(node, inputs)

	out, err := h.exec.Execute(ec.Ctx, baseURL, def, params, h.tokens[provider])
	if err != nil {
		return nil, fmt.Errorf("dynamic node %s: %w", node.Type, err)
	}
	return out, nil
}

// dynamicParams flattens the node's config and scalar inputs into the
// parameter set used to fill the request template. Config wins over inputs,
// direct inputs win over the "data" payload.
func dynamicParams(node *engine.Node, inputs map[string]any) map[string]any {
	params := make(map[string]any)

	if data, ok := inputs["data"].(map[string]any); ok {
		for key, value := range data {
			if scalar(value) {
				params[key] = value
			}
		}
	}
	for key, value := range inputs {
		if scalar(value) {
			params[key] = value
		}
	}
	for key, value := range node.Config {
		if scalar(value) {
			params[key] = value
		}
	}
	return params
}

func scalar(value any) bool {
	switch value.(type) {
	case nil, map[string]any, []any, []string, []map[string]any:
		return false
	default:
		return true
	}
}
