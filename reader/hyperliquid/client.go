// Package hyperliquid talks to the Hyperliquid info endpoint: portfolio
// value history for the secondary observation source and the non-funding
// ledger feed used by the gap normalizer.
package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	appconfig "reconflow/config"
	"reconflow/logger"
)

// Client is a rate-limited, retrying client for the info endpoint. All
// requests are POSTs of a small JSON body against a single URL.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	url        string
	pageLimit  int
	log        *logger.Log
}

func NewClient(cfg *appconfig.Config) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.Hyperliquid.RetryMax
	retryClient.RetryWaitMin = cfg.Hyperliquid.RetryWaitMin
	retryClient.RetryWaitMax = cfg.Hyperliquid.RetryWaitMax
	retryClient.HTTPClient.Timeout = cfg.Hyperliquid.Timeout
	retryClient.Logger = nil

	return &Client{
		httpClient: retryClient.StandardClient(),
		limiter:    rate.NewLimiter(rate.Limit(cfg.Hyperliquid.RequestsPerSecond), cfg.Hyperliquid.Burst),
		url:        cfg.Hyperliquid.URL,
		pageLimit:  cfg.Hyperliquid.LedgerPageLimit,
		log:        logger.GetLogger(),
	}
}

// post sends one info request and returns the raw response body.
func (c *Client) post(ctx context.Context, payload interface{}) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("info request failed: status %d: %s", resp.StatusCode, string(data))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return data, nil
}
