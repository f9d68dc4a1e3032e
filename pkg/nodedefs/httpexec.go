package nodedefs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"chainflow/api/pkg/clients/apierr"
)

// HTTPExecutor runs dynamic node definitions: it builds the HTTP request
// from a definition's template and the node's parameters, invokes it, and
// maps the JSON response through the definition's response mapping.
type HTTPExecutor struct {
	httpClient *http.Client
}

// NewHTTPExecutor creates an executor; a nil client uses http.DefaultClient.
func NewHTTPExecutor(hc *http.Client) *HTTPExecutor {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &HTTPExecutor{httpClient: hc}
}

// Execute runs one dynamic definition against baseURL with the given
// parameters and auth token. Missing path parameters are an error; 404 maps
// to an empty output map, matching the provider adapters' treatment of
// "address unseen" as a valid outcome.
func (e *HTTPExecutor) Execute(ctx context.Context, baseURL string, def *Definition, params map[string]any, token string) (map[string]any, error) {
	path, err := expandPath(def.Request.PathTemplate, params)
	if err != nil {
		return nil, err
	}

	reqURL := strings.TrimRight(baseURL, "/") + path
	if len(def.Request.Query) > 0 {
		values := url.Values{}
		for key, tmpl := range def.Request.Query {
			if value, ok := expandValue(tmpl, params); ok {
				values.Set(key, value)
			}
		}
		if encoded := values.Encode(); encoded != "" {
			reqURL += "?" + encoded
		}
	}

	method := def.Request.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create dynamic request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for key, tmpl := range def.Request.Headers {
		if value, ok := expandValue(tmpl, params); ok {
			req.Header.Set(key, value)
		}
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dynamic request failed: %w", err)
	}
	defer resp.Body.Close()

	if apiErr := apierr.FromStatus(def.Type, resp.StatusCode); apiErr != nil {
		if apierr.IsNotFound(apiErr) {
			io.Copy(io.Discard, resp.Body)
			return map[string]any{}, nil
		}
		return nil, apiErr
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode dynamic response: %w", err)
	}

	return MapResponse(def.ResponseMapping, payload), nil
}

// MapResponse projects a decoded JSON payload through a response mapping of
// output key -> dotted path. An empty mapping returns the payload unchanged.
func MapResponse(mapping map[string]string, payload map[string]any) map[string]any {
	if len(mapping) == 0 {
		return payload
	}
	out := make(map[string]any, len(mapping))
	for key, path := range mapping {
		if value, ok := lookupPath(payload, path); ok {
			out[key] = value
		}
	}
	return out
}

// lookupPath walks a dotted path through nested maps.
func lookupPath(payload map[string]any, path string) (any, bool) {
	current := any(payload)
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// expandPath substitutes {name} placeholders in a path template with
// URL-escaped parameter values.
func expandPath(template string, params map[string]any) (string, error) {
	var b strings.Builder
	rest := template
	for {
		open := strings.Index(rest, "{")
		if open < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		end := strings.Index(rest, "}")
		if end < open {
			return "", fmt.Errorf("malformed path template %q", template)
		}
		b.WriteString(rest[:open])
		name := rest[open+1 : end]
		value, ok := params[name]
		if !ok {
			return "", fmt.Errorf("missing path parameter %q", name)
		}
		b.WriteString(url.PathEscape(fmt.Sprint(value)))
		rest = rest[end+1:]
	}
}

// expandValue substitutes a single {name} placeholder, or returns the literal
// value. A placeholder with no matching parameter is dropped.
func expandValue(tmpl string, params map[string]any) (string, bool) {
	if strings.HasPrefix(tmpl, "{") && strings.HasSuffix(tmpl, "}") {
		name := tmpl[1 : len(tmpl)-1]
		value, ok := params[name]
		if !ok {
			return "", false
		}
		return fmt.Sprint(value), true
	}
	return tmpl, true
}
