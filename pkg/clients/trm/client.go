package trm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chainflow/api/pkg/clients/apierr"
)

const providerName = "trm"

// MaxBatchSize is the hard cap on addresses processed per batch call.
const MaxBatchSize = 100

// chainNames maps common lowercase chain aliases to TRM's chain identifiers.
var chainNames = map[string]string{
	"bitcoin":  "bitcoin",
	"btc":      "bitcoin",
	"ethereum": "ethereum",
	"eth":      "ethereum",
	"tron":     "tron",
	"trx":      "tron",
	"solana":   "solana",
	"sol":      "solana",
	"litecoin": "litecoin",
	"ltc":      "litecoin",
}

// NormalizeChain maps a chain alias to TRM's identifier, falling back to the
// lowercased input if unmapped.
func NormalizeChain(chain string) string {
	lower := strings.ToLower(chain)
	if name, ok := chainNames[lower]; ok {
		return name
	}
	return lower
}

// ScreeningEntity is one sanctions/risk entity attributed to an address.
type ScreeningEntity struct {
	Address      string `json:"address"`
	Entity       string `json:"entity"`
	Category     string `json:"category"`
	RiskScore    int    `json:"riskScore"`
	IsSanctioned bool   `json:"isSanctioned"`
}

// WalletSummary aggregates on-chain activity for one address.
type WalletSummary struct {
	Address       string  `json:"address"`
	Chain         string  `json:"chain"`
	Balance       float64 `json:"balanceUsd"`
	TotalInbound  float64 `json:"totalInboundVolumeUsd"`
	TotalOutbound float64 `json:"totalOutboundVolumeUsd"`
	TransferCount int     `json:"transferCount"`
	FirstSeen     string  `json:"firstSeen"`
	LastSeen      string  `json:"lastSeen"`
}

// Counterparty is one entity an address transacted with.
type Counterparty struct {
	Entity        string  `json:"entity"`
	Category      string  `json:"category"`
	VolumeUSD     float64 `json:"volumeUsd"`
	TransferCount int     `json:"transferCount"`
}

// Client defines the TRM Labs endpoints used by query nodes.
type Client interface {
	WalletScreening(ctx context.Context, addresses []string, chain string) ([]ScreeningEntity, error)
	WalletSummary(ctx context.Context, address, chain string) (*WalletSummary, error)
	Counterparties(ctx context.Context, addresses []string, chain string) (map[string][]Counterparty, error)
}

// APIClient implements Client against the TRM Labs HTTP API.
// TRM authenticates with HTTP basic auth, the API key serving as both
// username and password.
type APIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures an APIClient.
type Option func(*APIClient)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *APIClient) { c.httpClient = hc }
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(c *APIClient) { c.baseURL = strings.TrimRight(u, "/") }
}

// NewAPIClient creates a TRM client, failing fast when no API key is
// configured.
func NewAPIClient(apiKey string, opts ...Option) (*APIClient, error) {
	if apiKey == "" {
		return nil, apierr.Config(providerName, "no API key configured")
	}
	c := &APIClient{
		baseURL:    "https://api.trmlabs.com/public/v2",
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WalletScreening screens up to MaxBatchSize addresses against TRM's entity
// attribution data. A 404 for an address yields a zero-risk entry for it.
func (c *APIClient) WalletScreening(ctx context.Context, addresses []string, chain string) ([]ScreeningEntity, error) {
	chain = NormalizeChain(chain)
	addresses = truncateBatch(addresses)

	results := make([]ScreeningEntity, 0, len(addresses))
	for _, address := range addresses {
		path := fmt.Sprintf("/screening/addresses/%s?chain=%s", url.PathEscape(address), url.QueryEscape(chain))

		var payload struct {
			Entities []ScreeningEntity `json:"entities"`
		}
		if err := c.get(ctx, path, &payload); err != nil {
			if apierr.IsNotFound(err) {
				results = append(results, ScreeningEntity{Address: address})
				continue
			}
			return nil, err
		}
		if len(payload.Entities) == 0 {
			results = append(results, ScreeningEntity{Address: address})
			continue
		}
		for _, entity := range payload.Entities {
			entity.Address = address
			results = append(results, entity)
		}
	}
	return results, nil
}

// WalletSummary fetches aggregate activity for one address. A 404 yields a
// zeroed summary carrying the address and chain.
func (c *APIClient) WalletSummary(ctx context.Context, address, chain string) (*WalletSummary, error) {
	chain = NormalizeChain(chain)
	path := fmt.Sprintf("/wallets/%s/summary?chain=%s", url.PathEscape(address), url.QueryEscape(chain))

	var summary WalletSummary
	if err := c.get(ctx, path, &summary); err != nil {
		if apierr.IsNotFound(err) {
			return &WalletSummary{Address: address, Chain: chain}, nil
		}
		return nil, err
	}
	summary.Address = address
	summary.Chain = chain
	return &summary, nil
}

// Counterparties fetches transacting entities per address, keyed by the
// originating address. Per-address 404s yield empty lists.
func (c *APIClient) Counterparties(ctx context.Context, addresses []string, chain string) (map[string][]Counterparty, error) {
	chain = NormalizeChain(chain)
	addresses = truncateBatch(addresses)

	results := make(map[string][]Counterparty, len(addresses))
	for _, address := range addresses {
		path := fmt.Sprintf("/wallets/%s/counterparties?chain=%s", url.PathEscape(address), url.QueryEscape(chain))

		var payload struct {
			Counterparties []Counterparty `json:"counterparties"`
		}
		if err := c.get(ctx, path, &payload); err != nil {
			if apierr.IsNotFound(err) {
				results[address] = []Counterparty{}
				continue
			}
			return nil, err
		}
		results[address] = payload.Counterparties
	}
	return results, nil
}

func (c *APIClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.apiKey, c.apiKey)
	req.Header.Set("Accept", "application/json")

	slog.Debug("calling trm API", "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &apierr.Error{Code: apierr.CodeTimeout, Provider: providerName, Message: "request timed out"}
		}
		return fmt.Errorf("trm request failed: %w", err)
	}
	defer resp.Body.Close()

	if apiErr := apierr.FromStatus(providerName, resp.StatusCode); apiErr != nil {
		io.Copy(io.Discard, resp.Body)
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode trm response: %w", err)
	}
	return nil
}

func truncateBatch(addresses []string) []string {
	if len(addresses) > MaxBatchSize {
		return addresses[:MaxBatchSize]
	}
	return addresses
}
