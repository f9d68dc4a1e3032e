package trm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chainflow/api/pkg/clients/apierr"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *APIClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewAPIClient("trm-key", WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return client
}

func TestNewAPIClient_NoKey(t *testing.T) {
	t.Parallel()
	if _, err := NewAPIClient(""); err == nil {
		t.Fatal("expected configuration error for missing key")
	}
}

func TestWalletScreening_BasicAuth(t *testing.T) {
	t.Parallel()
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "trm-key" || pass != "trm-key" {
			t.Errorf("expected basic auth with api key, got %q/%q", user, pass)
		}
		w.Write([]byte(`{"entities":[{"entity":"Lazarus Group","category":"sanctions","riskScore":99,"isSanctioned":true}]}`))
	})

	entities, err := client.WalletScreening(context.Background(), []string{"0xabc"}, "ethereum")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entities) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(entities))
	}
	if !entities[0].IsSanctioned || entities[0].Address != "0xabc" {
		t.Errorf("unexpected entity: %+v", entities[0])
	}
}

func TestWalletScreening_NotFoundPerItem(t *testing.T) {
	t.Parallel()
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "0xmissing") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"entities":[{"entity":"Binance","category":"exchange","riskScore":5}]}`))
	})

	entities, err := client.WalletScreening(context.Background(), []string{"0xmissing", "0xknown"}, "eth")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entities) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entities))
	}
	if entities[0].RiskScore != 0 || entities[0].Entity != "" {
		t.Errorf("expected zeroed entry for unseen address, got %+v", entities[0])
	}
}

func TestWalletSummary_ChainNormalization(t *testing.T) {
	t.Parallel()
	var gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"balanceUsd":1200.5,"transferCount":7}`))
	})

	summary, err := client.WalletSummary(context.Background(), "0xabc", "ETH")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(gotQuery, "chain=ethereum") {
		t.Errorf("expected normalized chain, got %q", gotQuery)
	}
	if summary.Balance != 1200.5 || summary.TransferCount != 7 {
		t.Errorf("unexpected summary: %+v", summary)
	}
}

func TestCounterparties_UpstreamFailureAborts(t *testing.T) {
	t.Parallel()
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Counterparties(context.Background(), []string{"0xa"}, "ethereum")
	if err == nil {
		t.Fatal("expected upstream error")
	}
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) || apiErr.Code != apierr.CodeUpstream {
		t.Errorf("expected upstream_error, got %v", err)
	}
}

func TestScreening_BatchCap(t *testing.T) {
	t.Parallel()
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"entities":[]}`))
	})

	addresses := make([]string, MaxBatchSize+1)
	for i := range addresses {
		addresses[i] = "0xabc"
	}

	if _, err := client.WalletScreening(context.Background(), addresses, "ethereum"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != MaxBatchSize {
		t.Errorf("expected %d calls, got %d", MaxBatchSize, calls)
	}
}
