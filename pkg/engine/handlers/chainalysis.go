package handlers

import (
	"fmt"

	"chainflow/api/pkg/clients/chainalysis"
	"chainflow/api/pkg/engine"
)

// ChainalysisQuery executes one Chainalysis investigation endpoint. The same
// handler type backs every chainalysis_* query node; the operation field
// selects the endpoint. Provider failures (rate limits, auth, upstream
// errors) propagate and abort the run; the clients absorb not-found
// themselves, and only business conditions like a missing address surface as
// an "error" output.
type ChainalysisQuery struct {
	deps      Deps
	operation string
}

type chainalysisConfig struct {
	Address string `mapstructure:"address"`
	Hash    string `mapstructure:"hash"`
	Asset   string `mapstructure:"asset"`
	APIKey  string `mapstructure:"api_key"`
	APIURL  string `mapstructure:"api_url"`
}

func (h *ChainalysisQuery) NodeType() string { return "chainalysis_" + h.operation }

func (h *ChainalysisQuery) Execute(ec *engine.ExecutionContext, node *engine.Node, inputs map[string]any) (map[string]any, error) {
	var cfg chainalysisConfig
	if err := decodeConfig(node, &cfg); err != nil {
		return errOutput("invalid %s config: %v", h.NodeType(), err), nil
	}

	apiKey, apiURL := credentialOverride(inputs)
	if cfg.APIKey != "" {
		apiKey = cfg.APIKey
	}
	if apiKey == "" {
		apiKey = h.deps.ChainalysisKey
	}
	if cfg.APIURL != "" {
		apiURL = cfg.APIURL
	}
	if apiURL == "" {
		apiURL = h.deps.ChainalysisURL
	}

	client, err := h.deps.chainalysisClient(apiKey, apiURL)
	if err != nil {
		return errOutput("chainalysis client: %v", err), nil
	}

	asset := cfg.Asset
	if asset == "" {
		asset = stringInput(inputs, "asset")
	}
	if asset == "" {
		asset = "bitcoin"
	}

	switch h.operation {
	case "cluster_info":
		return h.clusterInfo(ec, client, inputs, cfg, asset)
	case "cluster_balance":
		return h.clusterBalance(ec, client, inputs, cfg, asset)
	case "cluster_counterparties":
		return h.counterparties(ec, client, inputs, cfg, asset)
	case "transaction_details":
		return h.transactionDetails(ec, client, inputs, cfg, asset)
	case "exposure_by_category":
		return h.exposure(ec, client, inputs, cfg, asset, "category")
	case "exposure_by_service":
		return h.exposure(ec, client, inputs, cfg, asset, "service")
	default:
		return errOutput("unsupported chainalysis operation %q", h.operation), nil
	}
}

func (h *ChainalysisQuery) clusterInfo(ec *engine.ExecutionContext, client chainalysis.Client, inputs map[string]any, cfg chainalysisConfig, asset string) (map[string]any, error) {
	addresses := collectAddresses(inputs, cfg.Address)
	if len(addresses) == 0 {
		return errOutput("no address provided"), nil
	}

	rows := make([]map[string]any, 0, len(addresses))
	for _, address := range addresses {
		info, err := client.ClusterInfo(ec.Ctx, address, asset)
		if err != nil {
			return nil, fmt.Errorf("cluster info for %s: %w", address, err)
		}
		rows = append(rows, structToMap(info))
	}

	out := map[string]any{
		"cluster_info": rows,
		"count":        len(rows),
	}
	if first, ok := rows[0]["name"]; ok {
		out["name"] = first
	}
	if first, ok := rows[0]["category"]; ok {
		out["category"] = first
	}
	return out, nil
}

func (h *ChainalysisQuery) clusterBalance(ec *engine.ExecutionContext, client chainalysis.Client, inputs map[string]any, cfg chainalysisConfig, asset string) (map[string]any, error) {
	addresses := collectAddresses(inputs, cfg.Address)
	if len(addresses) == 0 {
		return errOutput("no address provided"), nil
	}

	balances, err := client.ClusterBalances(ec.Ctx, addresses, asset)
	if err != nil {
		return nil, fmt.Errorf("cluster balances: %w", err)
	}

	rows := structsToMaps(balances)
	out := map[string]any{
		"balance_data": rows,
		"count":        len(rows),
	}
	if len(balances) > 0 {
		out["balance"] = balances[0].Balance
		out["total_received"] = balances[0].TotalReceived
	}
	return out, nil
}

func (h *ChainalysisQuery) counterparties(ec *engine.ExecutionContext, client chainalysis.Client, inputs map[string]any, cfg chainalysisConfig, asset string) (map[string]any, error) {
	addresses := collectAddresses(inputs, cfg.Address)
	if len(addresses) == 0 {
		return errOutput("no address provided"), nil
	}

	byAddress, err := client.Counterparties(ec.Ctx, addresses, asset)
	if err != nil {
		return nil, fmt.Errorf("counterparties: %w", err)
	}

	grouped := make(map[string]any, len(byAddress))
	total := 0
	for address, list := range byAddress {
		rows := structsToMaps(list)
		grouped[address] = rows
		total += len(rows)
	}

	return map[string]any{
		"counterparties_by_address": grouped,
		"count":                     total,
	}, nil
}

func (h *ChainalysisQuery) transactionDetails(ec *engine.ExecutionContext, client chainalysis.Client, inputs map[string]any, cfg chainalysisConfig, asset string) (map[string]any, error) {
	hashes := collectHashes(inputs, cfg.Hash)
	if len(hashes) == 0 {
		return errOutput("no transaction hash provided"), nil
	}

	rows := make([]map[string]any, 0, len(hashes))
	var first *chainalysis.Transaction
	for _, hash := range hashes {
		tx, err := client.TransactionDetails(ec.Ctx, hash, asset)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", hash, err)
		}
		if first == nil {
			first = tx
		}
		rows = append(rows, structToMap(tx))
	}

	out := map[string]any{
		"transactions": rows,
		"count":        len(rows),
	}
	if first != nil {
		out["hash"] = first.Hash
		out["amount"] = first.Amount
	}
	return out, nil
}

func (h *ChainalysisQuery) exposure(ec *engine.ExecutionContext, client chainalysis.Client, inputs map[string]any, cfg chainalysisConfig, asset, grouping string) (map[string]any, error) {
	addresses := collectAddresses(inputs, cfg.Address)
	if len(addresses) == 0 {
		return errOutput("no address provided"), nil
	}

	fetch := client.ExposureByCategory
	if grouping == "service" {
		fetch = client.ExposureByService
	}

	var rows []map[string]any
	for _, address := range addresses {
		exposure, err := fetch(ec.Ctx, address, asset)
		if err != nil {
			return nil, fmt.Errorf("exposure for %s: %w", address, err)
		}
		for _, item := range exposure.Items {
			rows = append(rows, map[string]any{
				"address":    exposure.Address,
				grouping:     item.Name,
				"exposure":   item.Value,
				"percentage": item.Percentage,
			})
		}
	}

	return map[string]any{
		"exposure": rows,
		"count":    len(rows),
	}, nil
}

// collectHashes gathers transaction hashes the way collectAddresses gathers
// addresses.
func collectHashes(inputs map[string]any, configured string) []string {
	if hashes := addressList(inputs["hashes"]); len(hashes) > 0 {
		return hashes
	}
	if data, ok := inputs["data"].(map[string]any); ok {
		if hashes := addressList(data["hashes"]); len(hashes) > 0 {
			return hashes
		}
		if hash, ok := data["hash"].(string); ok && hash != "" {
			return []string{hash}
		}
	}
	if hash, ok := inputs["hash"].(string); ok && hash != "" {
		return []string{hash}
	}
	if configured != "" {
		return []string{configured}
	}
	return nil
}
