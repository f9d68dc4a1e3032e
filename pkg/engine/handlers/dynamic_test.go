package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chainflow/api/pkg/engine"
	"chainflow/api/pkg/nodedefs"
)

func TestDynamic_ExecutesDefinition(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wallets/0xabc/risk" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("auth header = %s", r.Header.Get("Authorization"))
		}
		w.Write([]byte(`{"score": 42}`))
	}))
	defer server.Close()

	snap := nodedefs.Snapshot{
		"acme_wallet_risk": {
			Type:            "acme_wallet_risk",
			Request:         nodedefs.RequestTemplate{Method: http.MethodGet, PathTemplate: "/wallets/{address}/risk"},
			ResponseMapping: map[string]string{"risk_score": "score"},
		},
	}

	h := NewDynamic(Deps{
		Definitions:      snap,
		HTTPClient:       server.Client(),
		ProviderBaseURLs: map[string]string{"acme": server.URL},
		ProviderTokens:   map[string]string{"acme": "tok"},
	})

	node := &engine.Node{ID: "d1", Type: "acme_wallet_risk", Config: map[string]any{"address": "0xabc"}}
	out, err := h.Execute(newExecCtx(t), node, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out["risk_score"] != float64(42) {
		t.Errorf("risk_score = %v", out["risk_score"])
	}
}

func TestDynamic_MissingDefinition(t *testing.T) {
	t.Parallel()

	h := NewDynamic(Deps{Definitions: nodedefs.Snapshot{}})
	node := &engine.Node{ID: "d1", Type: "acme_unknown_op", Config: map[string]any{}}

	ec := newExecCtx(t)
	out, err := h.Execute(ec, node, nil)
	if err != nil {
		t.Fatalf("missing definition must not abort the run: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected empty outputs, got %v", out)
	}

	warned := false
	for _, line := range ec.Log().Lines() {
		if strings.Contains(line, "no definition found") {
			warned = true
		}
	}
	if !warned {
		t.Errorf("expected warning in log, got %v", ec.Log().Lines())
	}
}

func TestDynamic_UpstreamErrorAborts(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	snap := nodedefs.Snapshot{
		"acme_lookup": {
			Type:    "acme_lookup",
			Request: nodedefs.RequestTemplate{PathTemplate: "/lookup/{id}"},
		},
	}
	h := NewDynamic(Deps{
		Definitions:      snap,
		HTTPClient:       server.Client(),
		ProviderBaseURLs: map[string]string{"acme": server.URL},
	})

	node := &engine.Node{ID: "d1", Type: "acme_lookup", Config: map[string]any{"id": "x"}}
	if _, err := h.Execute(newExecCtx(t), node, nil); err == nil {
		t.Fatal("expected an error for an upstream failure")
	}
}

func TestDynamic_ConfigWinsOverInputs(t *testing.T) {
	t.Parallel()

	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	snap := nodedefs.Snapshot{
		"acme_lookup": {
			Type:    "acme_lookup",
			Request: nodedefs.RequestTemplate{PathTemplate: "/lookup/{id}"},
		},
	}
	h := NewDynamic(Deps{
		Definitions:      snap,
		HTTPClient:       server.Client(),
		ProviderBaseURLs: map[string]string{"acme": server.URL},
	})

	node := &engine.Node{ID: "d1", Type: "acme_lookup", Config: map[string]any{"id": "from-config"}}
	inputs := map[string]any{"id": "from-input"}

	if _, err := h.Execute(newExecCtx(t), node, inputs); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if gotPath != "/lookup/from-config" {
		t.Errorf("path = %s, want /lookup/from-config", gotPath)
	}
}
