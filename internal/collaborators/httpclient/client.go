// Package httpclient implements the pipeline collaborator ports over JSON
// HTTP. Each collaborator is a separate service with its own base URL.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxResponseBytes = 1 << 20

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config configures one collaborator client.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient HTTPDoer
}

type client struct {
	name    string
	baseURL string
	apiKey  string
	doer    HTTPDoer
}

func newClient(name string, cfg Config) *client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	doer := cfg.HTTPClient
	if doer == nil {
		doer = &http.Client{Timeout: cfg.Timeout}
	}
	return &client{
		name:    name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		doer:    doer,
	}
}

// post sends body as JSON to path and decodes a 2xx response into out.
func (c *client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return newError(ErrorInternal, c.name, "failed to marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return newError(ErrorInternal, c.name, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return newError(ErrorTimeout, c.name, "request timeout", err)
		}
		return newError(ErrorOutage, c.name, "failed to execute request", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return newError(ErrorBadData, c.name, "failed to read response", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return newError(ErrorAuthentication, c.name, fmt.Sprintf("authentication failed: %d", resp.StatusCode), nil)
	case resp.StatusCode == http.StatusNotFound:
		return newError(ErrorNotFound, c.name, "endpoint not found", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return newError(ErrorRateLimited, c.name, "rate limit exceeded", nil)
	case resp.StatusCode >= 500:
		return newError(ErrorOutage, c.name, fmt.Sprintf("collaborator unavailable: %d", resp.StatusCode), nil)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return newError(ErrorBadData, c.name, fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, truncate(raw)), nil)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return newError(ErrorBadData, c.name, "failed to parse response", err)
	}
	return nil
}

func truncate(b []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
