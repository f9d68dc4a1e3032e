package handlers

import (
	"chainflow/api/pkg/engine"
)

// CredentialsHandler wraps a provider's API key and base URL into a
// credentials output that downstream query nodes consume. It never validates
// the key against the provider; "authenticated" only reflects whether a key
// is present at all.
type CredentialsHandler struct {
	nodeType   string
	defaultKey string
	defaultURL string
}

func (h *CredentialsHandler) NodeType() string { return h.nodeType }

func (h *CredentialsHandler) Execute(ec *engine.ExecutionContext, node *engine.Node, inputs map[string]any) (map[string]any, error) {
	var cfg struct {
		APIKey string `mapstructure:"api_key"`
		APIURL string `mapstructure:"api_url"`
	}
	if err := decodeConfig(node, &cfg); err != nil {
		return errOutput("invalid %s config: %v", h.nodeType, err), nil
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = h.defaultKey
	}
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = h.defaultURL
	}

	if apiKey == "" {
		ec.Log().Warnf("%s: no API key configured", node.ID)
	}

	return map[string]any{
		"credentials": map[string]any{
			"api_key": apiKey,
			"api_url": apiURL,
		},
		"authenticated": apiKey != "",
	}, nil
}
