package handlers

import (
	"fmt"

	"chainflow/api/pkg/clients/trm"
	"chainflow/api/pkg/engine"
)

// TRMQuery executes one TRM Labs endpoint, selected by operation. Provider
// failures propagate and abort the run, matching the Chainalysis handler;
// only business conditions like a missing address become an "error" output.
type TRMQuery struct {
	deps      Deps
	operation string
}

type trmConfig struct {
	Address string `mapstructure:"address"`
	Chain   string `mapstructure:"chain"`
	APIKey  string `mapstructure:"api_key"`
	APIURL  string `mapstructure:"api_url"`
}

func (h *TRMQuery) NodeType() string { return "trm_" + h.operation }

func (h *TRMQuery) Execute(ec *engine.ExecutionContext, node *engine.Node, inputs map[string]any) (map[string]any, error) {
	var cfg trmConfig
	if err := decodeConfig(node, &cfg); err != nil {
		return errOutput("invalid %s config: %v", h.NodeType(), err), nil
	}

	apiKey, apiURL := credentialOverride(inputs)
	if cfg.APIKey != "" {
		apiKey = cfg.APIKey
	}
	if apiKey == "" {
		apiKey = h.deps.TRMKey
	}
	if cfg.APIURL != "" {
		apiURL = cfg.APIURL
	}
	if apiURL == "" {
		apiURL = h.deps.TRMURL
	}

	client, err := h.deps.trmClient(apiKey, apiURL)
	if err != nil {
		return errOutput("trm client: %v", err), nil
	}

	chain := cfg.Chain
	if chain == "" {
		chain = stringInput(inputs, "chain")
	}
	if chain == "" {
		chain = "ethereum"
	}

	addresses := collectAddresses(inputs, cfg.Address)
	if len(addresses) == 0 {
		return errOutput("no address provided"), nil
	}

	switch h.operation {
	case "wallet_screening":
		return h.walletScreening(ec, client, addresses, chain)
	case "wallet_summary":
		return h.walletSummary(ec, client, addresses, chain)
	case "counterparties":
		return h.counterparties(ec, client, addresses, chain)
	default:
		return errOutput("unsupported trm operation %q", h.operation), nil
	}
}

func (h *TRMQuery) walletScreening(ec *engine.ExecutionContext, client trm.Client, addresses []string, chain string) (map[string]any, error) {
	entities, err := client.WalletScreening(ec.Ctx, addresses, chain)
	if err != nil {
		return nil, fmt.Errorf("wallet screening: %w", err)
	}

	rows := structsToMaps(entities)
	sanctioned := 0
	for _, entity := range entities {
		if entity.IsSanctioned {
			sanctioned++
		}
	}
	if sanctioned > 0 {
		ec.Log().Warnf("wallet screening flagged %d sanctioned entities", sanctioned)
	}

	out := map[string]any{
		"screening_data": rows,
		"count":          len(rows),
	}
	if len(entities) > 0 {
		out["risk_score"] = entities[0].RiskScore
		out["is_sanctioned"] = entities[0].IsSanctioned
	}
	return out, nil
}

func (h *TRMQuery) walletSummary(ec *engine.ExecutionContext, client trm.Client, addresses []string, chain string) (map[string]any, error) {
	rows := make([]map[string]any, 0, len(addresses))
	var first *trm.WalletSummary
	for _, address := range addresses {
		summary, err := client.WalletSummary(ec.Ctx, address, chain)
		if err != nil {
			return nil, fmt.Errorf("wallet summary for %s: %w", address, err)
		}
		if first == nil {
			first = summary
		}
		rows = append(rows, structToMap(summary))
	}

	out := map[string]any{
		"balance_data": rows,
		"count":        len(rows),
	}
	if first != nil {
		out["balance"] = first.Balance
		out["transfer_count"] = first.TransferCount
	}
	return out, nil
}

func (h *TRMQuery) counterparties(ec *engine.ExecutionContext, client trm.Client, addresses []string, chain string) (map[string]any, error) {
	byAddress, err := client.Counterparties(ec.Ctx, addresses, chain)
	if err != nil {
		return nil, fmt.Errorf("trm counterparties: %w", err)
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
