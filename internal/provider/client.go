package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://astrologer.p.rapidapi.com/api/v4"
	defaultTimeout = 30 * time.Second

	maxRetries     = 3
	initialBackoff = 500 * time.Millisecond
	maxJitter      = 250 * time.Millisecond

	// EndpointAspects computes transit aspects without rendering a chart.
	EndpointAspects = "/transit-aspects-data"
	// EndpointChart additionally renders the wheel graphic; markedly slower.
	EndpointChart = "/transit-chart"
)

// Client communicates with the astrology data provider. A token bucket
// throttles requests proactively so the provider's rate limit is rarely hit
// at all; 429s that slip through are retried with backoff.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a provider client with the given API key and a
// client-side throttle of rps requests per second (0 disables throttling).
func NewClient(apiKey string, rps float64) *Client {
	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    limiter,
		logger:     slog.Default(),
	}
}

// NewClientWithBaseURL creates a client pointing at a custom base URL (for
// testing).
func NewClientWithBaseURL(apiKey, baseURL string, rps float64) *Client {
	c := NewClient(apiKey, rps)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// TransitAspects fetches the aspect set for one transit instant.
func (c *Client) TransitAspects(ctx context.Context, req TransitRequest) (*TransitResponse, error) {
	return c.post(ctx, EndpointAspects, req)
}

// TransitChart fetches aspects plus a rendered wheel graphic. Use sparingly;
// the provider renders server-side and bills accordingly.
func (c *Client) TransitChart(ctx context.Context, req TransitRequest) (*TransitResponse, error) {
	return c.post(ctx, EndpointChart, req)
}

// post executes one provider request with bounded transport retries.
// Rate-limit (429) and server (5xx) replies and network failures are retried
// with exponential backoff plus jitter; other client errors return
// immediately.
func (c *Client) post(ctx context.Context, endpoint string, req TransitRequest) (*TransitResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	var lastErr error
	for attempt := range maxRetries {
		if attempt > 0 {
			backoff := time.Duration(float64(initialBackoff)*math.Pow(2, float64(attempt-1))) +
				time.Duration(rand.Int64N(int64(maxJitter)))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := c.doOnce(ctx, endpoint, body)
		if err == nil {
			return resp, nil
		}
		if !IsRetryable(err) || ctx.Err() != nil {
			return nil, err
		}
		c.logger.Debug("provider request failed, retrying", "endpoint", endpoint, "attempt", attempt+1, "error", err)
		lastErr = err
	}

	return nil, fmt.Errorf("provider unavailable after %d attempts: %w", maxRetries, lastErr)
}

func (c *Client) doOnce(ctx context.Context, endpoint string, body []byte) (*TransitResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: truncate(string(raw), 512)}
	}

	var out TransitResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	// Keep the full document around for graphic extraction.
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err == nil {
		out.Raw = doc
	}

	return &out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
