package handlers

import (
	"context"
	"strings"
	"testing"

	"chainflow/api/pkg/clients/apierr"
	"chainflow/api/pkg/clients/trm"
	"chainflow/api/pkg/engine"
)

type fakeTRM struct {
	walletScreening func(ctx context.Context, addresses []string, chain string) ([]trm.ScreeningEntity, error)
	walletSummary   func(ctx context.Context, address, chain string) (*trm.WalletSummary, error)
	counterparties  func(ctx context.Context, addresses []string, chain string) (map[string][]trm.Counterparty, error)
}

func (f *fakeTRM) WalletScreening(ctx context.Context, addresses []string, chain string) ([]trm.ScreeningEntity, error) {
	return f.walletScreening(ctx, addresses, chain)
}

func (f *fakeTRM) WalletSummary(ctx context.Context, address, chain string) (*trm.WalletSummary, error) {
	return f.walletSummary(ctx, address, chain)
}

func (f *fakeTRM) Counterparties(ctx context.Context, addresses []string, chain string) (map[string][]trm.Counterparty, error) {
	return f.counterparties(ctx, addresses, chain)
}

func trmDeps(client trm.Client) Deps {
	return Deps{
		TRMKey: "configured-key",
		NewTRM: func(apiKey, baseURL string) (trm.Client, error) {
			return client, nil
		},
	}
}

func TestTRMWalletScreening(t *testing.T) {
	t.Parallel()

	client := &fakeTRM{
		walletScreening: func(ctx context.Context, addresses []string, chain string) ([]trm.ScreeningEntity, error) {
			if chain != "ethereum" {
				t.Errorf("chain = %q, want ethereum default", chain)
			}
			return []trm.ScreeningEntity{
				{Address: addresses[0], Entity: "Sanctioned Exchange", RiskScore: 90, IsSanctioned: true},
			}, nil
		},
	}

	h := &TRMQuery{deps: trmDeps(client), operation: "wallet_screening"}
	node := &engine.Node{ID: "q1", Type: "trm_wallet_screening", Config: map[string]any{"address": "0xabc"}}

	ec := newExecCtx(t)
	out, err := h.Execute(ec, node, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	rows, ok := out["screening_data"].([]map[string]any)
	if !ok || len(rows) != 1 {
		t.Fatalf("screening_data = %v", out["screening_data"])
	}
	if out["is_sanctioned"] != true || out["risk_score"] != 90 {
		t.Errorf("convenience scalars = %v", out)
	}

	// A sanctioned hit leaves a warning in the run log.
	found := false
	for _, line := range ec.Log().Lines() {
		if strings.Contains(line, "sanctioned") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected sanctions warning in log, got %v", ec.Log().Lines())
	}
}

func TestTRMWalletSummary(t *testing.T) {
	t.Parallel()

	client := &fakeTRM{
		walletSummary: func(ctx context.Context, address, chain string) (*trm.WalletSummary, error) {
			return &trm.WalletSummary{Address: address, Chain: chain, Balance: 120.5, TransferCount: 8}, nil
		},
	}

	h := &TRMQuery{deps: trmDeps(client), operation: "wallet_summary"}
	node := &engine.Node{ID: "q1", Type: "trm_wallet_summary", Config: map[string]any{"chain": "btc"}}
	inputs := map[string]any{"addresses": []string{"addr1", "addr2"}}

	out, err := h.Execute(newExecCtx(t), node, inputs)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	rows, ok := out["balance_data"].([]map[string]any)
	if !ok || len(rows) != 2 {
		t.Fatalf("balance_data = %v", out["balance_data"])
	}
	if out["balance"] != 120.5 || out["transfer_count"] != 8 {
		t.Errorf("convenience scalars = %v", out)
	}
}

func TestTRMCounterparties(t *testing.T) {
	t.Parallel()

	client := &fakeTRM{
		counterparties: func(ctx context.Context, addresses []string, chain string) (map[string][]trm.Counterparty, error) {
			return map[string][]trm.Counterparty{
				"addr1": {{Entity: "DEX", Category: "exchange", VolumeUSD: 500}},
			}, nil
		},
	}

	h := &TRMQuery{deps: trmDeps(client), operation: "counterparties"}
	node := &engine.Node{ID: "q1", Type: "trm_counterparties", Config: map[string]any{"address": "addr1"}}

	out, err := h.Execute(newExecCtx(t), node, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	grouped, ok := out["counterparties_by_address"].(map[string]any)
	if !ok {
		t.Fatalf("counterparties_by_address = %v", out["counterparties_by_address"])
	}
	if _, ok := grouped["addr1"]; !ok {
		t.Errorf("missing addr1 group: %v", grouped)
	}
	if out["count"] != 1 {
		t.Errorf("count = %v, want 1", out["count"])
	}
}

func TestTRMQuery_ProviderFailureAborts(t *testing.T) {
	t.Parallel()

	client := &fakeTRM{
		walletScreening: func(ctx context.Context, addresses []string, chain string) ([]trm.ScreeningEntity, error) {
			return nil, &apierr.Error{Code: apierr.CodeUpstream, Provider: "trm", Message: "bad gateway"}
		},
	}

	h := &TRMQuery{deps: trmDeps(client), operation: "wallet_screening"}
	node := &engine.Node{ID: "q1", Type: "trm_wallet_screening", Config: map[string]any{"address": "0xabc"}}

	_, err := h.Execute(newExecCtx(t), node, nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "wallet screening") {
		t.Errorf("err = %v, want wallet screening context", err)
	}
}

func TestTRMQuery_ConfiguredBaseURL(t *testing.T) {
	t.Parallel()

	var usedURL string
	client := &fakeTRM{
		walletSummary: func(ctx context.Context, address, chain string) (*trm.WalletSummary, error) {
			return &trm.WalletSummary{Address: address, Chain: chain}, nil
		},
	}
	deps := Deps{
		TRMKey: "configured-key",
		TRMURL: "http://trm.internal",
		NewTRM: func(apiKey, baseURL string) (trm.Client, error) {
			usedURL = baseURL
			return client, nil
		},
	}

	h := &TRMQuery{deps: deps, operation: "wallet_summary"}
	node := &engine.Node{ID: "q1", Type: "trm_wallet_summary", Config: map[string]any{"address": "0xabc"}}

	if _, err := h.Execute(newExecCtx(t), node, nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if usedURL != "http://trm.internal" {
		t.Errorf("client built with base URL %q, want the configured default", usedURL)
	}
}

func TestTRMQuery_NoAddress(t *testing.T) {
	t.Parallel()

	h := &TRMQuery{deps: trmDeps(&fakeTRM{}), operation: "wallet_summary"}
	node := &engine.Node{ID: "q1", Type: "trm_wallet_summary", Config: map[string]any{}}

	out, err := h.Execute(newExecCtx(t), node, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if _, ok := out["error"]; !ok {
		t.Errorf("expected error output, got %v", out)
	}
}
