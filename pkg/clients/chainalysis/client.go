package chainalysis

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

const providerName = "chainalysis"

// MaxBatchSize is the hard cap on addresses processed per batch call.
// Excess items are silently truncated, not paginated.
const MaxBatchSize = 100

// assetTokens maps lowercase chain names to the provider's asset tokens.
// Unmapped or already-uppercase values pass through unchanged.
var assetTokens = map[string]string{
	"bitcoin":      "BTC",
	"ethereum":     "ETH",
	"litecoin":     "LTC",
	"bitcoin_cash": "BCH",
	"tether":       "USDT",
	"usd_coin":     "USDC",
	"tron":         "TRX",
	"ripple":       "XRP",
	"solana":       "SOL",
}

// NormalizeAsset maps a lowercase chain name to the provider's asset token,
// falling back to the literal input if unmapped.
func NormalizeAsset(asset string) string {
	if token, ok := assetTokens[strings.ToLower(asset)]; ok {
		return token
	}
	return asset
}

// ClusterInfo identifies the entity a cluster of addresses is attributed to.
type ClusterInfo struct {
	Address     string `json:"address"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	RootAddress string `json:"rootAddress"`
}

// Balance holds the balance summary for one address's cluster.
type Balance struct {
	Address       string  `json:"address"`
	Asset         string  `json:"asset"`
	Balance       float64 `json:"balance"`
	TotalReceived float64 `json:"totalReceivedAmount"`
	TotalSent     float64 `json:"totalSentAmount"`
	TotalFees     float64 `json:"totalFeesAmount"`
	TransferCount int     `json:"transferCount"`
	AddressCount  int     `json:"addressCount"`
}

// Counterparty is one entity a cluster transacted with.
type Counterparty struct {
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	RootAddress   string  `json:"rootAddress"`
	Value         float64 `json:"value"`
	TransferCount int     `json:"transferCount"`
}

// Transaction is the detail record for a single transaction hash.
type Transaction struct {
	Hash        string  `json:"hash"`
	Asset       string  `json:"asset"`
	BlockHeight int64   `json:"blockHeight"`
	Timestamp   string  `json:"timestamp"`
	Amount      float64 `json:"amount"`
	Fee         float64 `json:"fee"`
}

// ExposureItem is one category or service a cluster is exposed to.
type ExposureItem struct {
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
}

// Exposure holds a cluster's exposure breakdown for one address.
type Exposure struct {
	Address string         `json:"address"`
	Asset   string         `json:"asset"`
	Items   []ExposureItem `json:"items"`
}

// Client defines the Chainalysis investigation endpoints used by query nodes.
type Client interface {
	ClusterInfo(ctx context.Context, address, asset string) (*ClusterInfo, error)
	ClusterBalances(ctx context.Context, addresses []string, asset string) ([]Balance, error)
	Counterparties(ctx context.Context, addresses []string, asset string) (map[string][]Counterparty, error)
	TransactionDetails(ctx context.Context, hash, asset string) (*Transaction, error)
	ExposureByCategory(ctx context.Context, address, asset string) (*Exposure, error)
	ExposureByService(ctx context.Context, address, asset string) (*Exposure, error)
}

// APIClient implements Client against the Chainalysis HTTP API.
type APIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures an APIClient.
type Option func(*APIClient)

// WithHTTPClient overrides the HTTP client (used by tests and for custom
// timeouts).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *APIClient) { c.httpClient = hc }
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(c *APIClient) { c.baseURL = strings.TrimRight(u, "/") }
}

// NewAPIClient creates a Chainalysis client. Constructing a client without
// an API key fails fast with a configuration error, not a network error.
func NewAPIClient(apiKey string, opts ...Option) (*APIClient, error) {
	if apiKey == "" {
		return nil, apierr.Config(providerName, "no API key configured")
	}
	c := &APIClient{
		baseURL:    "https://iapi.chainalysis.com",
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ClusterInfo fetches the entity attribution for an address's cluster.
// A 404 is returned as a zeroed record for the address, not an error.
func (c *APIClient) ClusterInfo(ctx context.Context, address, asset string) (*ClusterInfo, error) {
	asset = NormalizeAsset(asset)
	path := fmt.Sprintf("/clusters/%s?filterAsset=%s", url.PathEscape(address), url.QueryEscape(asset))

	var info ClusterInfo
	if err := c.get(ctx, path, &info); err != nil {
		if apierr.IsNotFound(err) {
			return &ClusterInfo{Address: address}, nil
		}
		return nil, err
	}
	info.Address = address
	return &info, nil
}

// ClusterBalances fetches balance summaries for up to MaxBatchSize addresses.
// Per-address 404s produce zeroed entries so one unseen address doesn't abort
// the batch; any other error aborts.
func (c *APIClient) ClusterBalances(ctx context.Context, addresses []string, asset string) ([]Balance, error) {
	asset = NormalizeAsset(asset)
	addresses = truncateBatch(addresses)

	results := make([]Balance, 0, len(addresses))
	for _, address := range addresses {
		path := fmt.Sprintf("/clusters/%s/%s/summary", url.PathEscape(address), url.PathEscape(asset))

		var balance Balance
		if err := c.get(ctx, path, &balance); err != nil {
			if apierr.IsNotFound(err) {
				results = append(results, Balance{Address: address, Asset: asset})
				continue
			}
			return nil, err
		}
		balance.Address = address
		balance.Asset = asset
		results = append(results, balance)
	}
	return results, nil
}

// Counterparties fetches transacting entities per address, keyed by the
// originating address. Per-address 404s yield an empty list for that address.
func (c *APIClient) Counterparties(ctx context.Context, addresses []string, asset string) (map[string][]Counterparty, error) {
	asset = NormalizeAsset(asset)
	addresses = truncateBatch(addresses)

	results := make(map[string][]Counterparty, len(addresses))
	for _, address := range addresses {
		path := fmt.Sprintf("/clusters/%s/%s/counterparties", url.PathEscape(address), url.PathEscape(asset))

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

// TransactionDetails fetches the detail record for one transaction hash.
// A 404 yields a zeroed record carrying only the hash.
func (c *APIClient) TransactionDetails(ctx context.Context, hash, asset string) (*Transaction, error) {
	asset = NormalizeAsset(asset)
	path := fmt.Sprintf("/transactions/%s?filterAsset=%s", url.PathEscape(hash), url.QueryEscape(asset))

	var tx Transaction
	if err := c.get(ctx, path, &tx); err != nil {
		if apierr.IsNotFound(err) {
			return &Transaction{Hash: hash, Asset: asset}, nil
		}
		return nil, err
	}
	tx.Hash = hash
	return &tx, nil
}

// ExposureByCategory fetches a cluster's exposure grouped by risk category.
func (c *APIClient) ExposureByCategory(ctx context.Context, address, asset string) (*Exposure, error) {
	return c.exposure(ctx, address, asset, "categories")
}

// ExposureByService fetches a cluster's exposure grouped by named service.
func (c *APIClient) ExposureByService(ctx context.Context, address, asset string) (*Exposure, error) {
	return c.exposure(ctx, address, asset, "services")
}

func (c *APIClient) exposure(ctx context.Context, address, asset, grouping string) (*Exposure, error) {
	asset = NormalizeAsset(asset)
	path := fmt.Sprintf("/exposures/clusters/%s/%s/directions/both?grouping=%s",
		url.PathEscape(address), url.PathEscape(asset), url.QueryEscape(grouping))

	var payload struct {
		Items []ExposureItem `json:"items"`
	}
	if err := c.get(ctx, path, &payload); err != nil {
		if apierr.IsNotFound(err) {
			return &Exposure{Address: address, Asset: asset, Items: []ExposureItem{}}, nil
		}
		return nil, err
	}
	return &Exposure{Address: address, Asset: asset, Items: payload.Items}, nil
}

// get performs an authenticated GET and decodes the JSON response into out.
func (c *APIClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Token", c.apiKey)
	req.Header.Set("Accept", "application/json")

	slog.Debug("calling chainalysis API", "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &apierr.Error{Code: apierr.CodeTimeout, Provider: providerName, Message: "request timed out"}
		}
		return fmt.Errorf("chainalysis request failed: %w", err)
	}
	defer resp.Body.Close()

	if apiErr := apierr.FromStatus(providerName, resp.StatusCode); apiErr != nil {
		io.Copy(io.Discard, resp.Body)
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode chainalysis response: %w", err)
	}
	return nil
}

func truncateBatch(addresses []string) []string {
	if len(addresses) > MaxBatchSize {
		return addresses[:MaxBatchSize]
	}
	return addresses
}
