// Package handlers provides the built-in node handlers: input sources,
// credential holders, provider query nodes, exporters, and the dynamic
// fallback for node types resolved from definition registries.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mitchellh/mapstructure"

	"chainflow/api/pkg/clients/chainalysis"
	"chainflow/api/pkg/clients/trm"
	"chainflow/api/pkg/engine"
	"chainflow/api/pkg/nodedefs"
)

// Deps carries everything the built-in handlers need: provider client
// factories, default credentials, export destinations, and the dynamic
// definition resolver. Factories are invoked per execution so per-node
// credentials can override the configured defaults.
type Deps struct {
	NewChainalysis func(apiKey, baseURL string) (chainalysis.Client, error)
	NewTRM         func(apiKey, baseURL string) (trm.Client, error)

	ChainalysisKey string
	ChainalysisURL string
	TRMKey         string
	TRMURL         string

	// OutputDir is where exporters place default-named files.
	OutputDir string

	// Definitions resolves dynamic node types. HTTPClient carries the
	// configured timeout and backs both the dynamic executor and the
	// default provider clients.
	Definitions nodedefs.Resolver
	HTTPClient  *http.Client

	// ProviderBaseURLs and ProviderTokens back the dynamic executor,
	// keyed by provider prefix.
	ProviderBaseURLs map[string]string
	ProviderTokens   map[string]string
}

func (d *Deps) httpClient() *http.Client {
	if d.HTTPClient != nil {
		return d.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (d *Deps) chainalysisClient(apiKey, baseURL string) (chainalysis.Client, error) {
	if d.NewChainalysis != nil {
		return d.NewChainalysis(apiKey, baseURL)
	}
	opts := []chainalysis.Option{chainalysis.WithHTTPClient(d.httpClient())}
	if baseURL != "" {
		opts = append(opts, chainalysis.WithBaseURL(baseURL))
	}
	return chainalysis.NewAPIClient(apiKey, opts...)
}

func (d *Deps) trmClient(apiKey, baseURL string) (trm.Client, error) {
	if d.NewTRM != nil {
		return d.NewTRM(apiKey, baseURL)
	}
	opts := []trm.Option{trm.WithHTTPClient(d.httpClient())}
	if baseURL != "" {
		opts = append(opts, trm.WithBaseURL(baseURL))
	}
	return trm.NewAPIClient(apiKey, opts...)
}

// RegisterAll installs every built-in handler plus the dynamic fallback on
// the registry.
func RegisterAll(reg *engine.Registry, deps Deps) {
	reg.Register(&AddressInput{})
	reg.Register(&TransactionInput{})
	reg.Register(&BatchAddressInput{})
	reg.Register(&TransactionFileInput{})
	reg.Register(&Passthrough{})
	reg.Register(&Logger{})

	reg.Register(&CredentialsHandler{nodeType: "chainalysis_credentials", defaultKey: deps.ChainalysisKey, defaultURL: deps.ChainalysisURL})
	reg.Register(&CredentialsHandler{nodeType: "trm_credentials", defaultKey: deps.TRMKey, defaultURL: deps.TRMURL})

	for _, op := range []string{"cluster_info", "cluster_balance", "cluster_counterparties", "transaction_details", "exposure_by_category", "exposure_by_service"} {
		reg.Register(&ChainalysisQuery{deps: deps, operation: op})
	}
	for _, op := range []string{"wallet_screening", "wallet_summary", "counterparties"} {
		reg.Register(&TRMQuery{deps: deps, operation: op})
	}

	for _, format := range []string{"csv", "json", "excel", "text", "pdf"} {
		reg.Register(&ExportHandler{format: format, outputDir: deps.OutputDir})
	}

	reg.SetFallback(NewDynamic(deps))
}

// decodeConfig decodes a node's raw config map into a typed struct.
func decodeConfig(node *engine.Node, out any) error {
	if err := mapstructure.WeakDecode(node.Config, out); err != nil {
		return fmt.Errorf("decode %s config: %w", node.Type, err)
	}
	return nil
}

// errOutput wraps a business-logic failure as node output so the run
// continues past it.
func errOutput(format string, args ...any) map[string]any {
	return map[string]any{"error": fmt.Sprintf(format, args...)}
}

// collectAddresses gathers the addresses a query node should operate on:
// upstream batch output, upstream single address, then the node's own config.
func collectAddresses(inputs map[string]any, configured string) []string {
	if addrs := addressList(inputs["addresses"]); len(addrs) > 0 {
		return addrs
	}
	if data, ok := inputs["data"].(map[string]any); ok {
		if addrs := addressList(data["addresses"]); len(addrs) > 0 {
			return addrs
		}
		if addr, ok := data["address"].(string); ok && addr != "" {
			return []string{addr}
		}
	}
	if addr, ok := inputs["address"].(string); ok && addr != "" {
		return []string{addr}
	}
	if configured != "" {
		return []string{configured}
	}
	return nil
}

func addressList(value any) []string {
	switch list := value.(type) {
	case []string:
		return list
	case []any:
		addrs := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok && s != "" {
				addrs = append(addrs, s)
			}
		}
		return addrs
	default:
		return nil
	}
}

// stringInput resolves a named scalar from the inputs, checking the direct
// key and then the "data" payload.
func stringInput(inputs map[string]any, key string) string {
	if s, ok := inputs[key].(string); ok && s != "" {
		return s
	}
	if data, ok := inputs["data"].(map[string]any); ok {
		if s, ok := data[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// credentialOverride extracts a per-node api_key/api_url pair from an
// upstream credentials node, if one is wired in.
func credentialOverride(inputs map[string]any) (apiKey, apiURL string) {
	creds, ok := inputs["credentials"].(map[string]any)
	if !ok {
		if data, ok2 := inputs["data"].(map[string]any); ok2 {
			creds, ok = data["credentials"].(map[string]any)
		}
	}
	if !ok {
		return "", ""
	}
	apiKey, _ = creds["api_key"].(string)
	apiURL, _ = creds["api_url"].(string)
	return apiKey, apiURL
}

// structsToMaps converts a slice of typed records into the generic row shape
// the export normalizer consumes, preserving each type's JSON field names.
func structsToMaps[T any](items []T) []map[string]any {
	rows := make([]map[string]any, 0, len(items))
	for _, item := range items {
		rows = append(rows, structToMap(item))
	}
	return rows
}

func structToMap(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]any{}
	}
	return m
}
