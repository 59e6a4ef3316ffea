// Package ukgrid provides a client for the National Grid carbon intensity
// API, the live feed behind the real-time override for Great Britain.
package ukgrid

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/gridsync/carbon-engine/internal/model"
)

// Client fetches the current national carbon intensity reading. Calls are
// bounded by the configured timeout and never retried; a failed reading
// means the caller falls back to the model value.
type Client interface {
	Current(ctx context.Context) (*model.LiveReading, error)
}

// intensityResponse mirrors the API's {"data":[{"intensity":{...}}]} shape.
type intensityResponse struct {
	Data []struct {
		Intensity struct {
			Forecast *float64 `json:"forecast"`
			Actual   *float64 `json:"actual"`
			Index    string   `json:"index"`
		} `json:"intensity"`
	} `json:"data"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default request rate.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a live-feed client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) Client {
	c := &httpClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(2, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Current(ctx context.Context) (*model.LiveReading, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "ukgrid: rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/intensity", nil)
	if err != nil {
		return nil, eris.Wrap(err, "ukgrid: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "ukgrid: request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "ukgrid: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("ukgrid: status %d: %s", resp.StatusCode, string(body))
	}

	var parsed intensityResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "ukgrid: decode response")
	}
	if len(parsed.Data) == 0 || parsed.Data[0].Intensity.Forecast == nil {
		return nil, eris.New("ukgrid: empty intensity data")
	}

	entry := parsed.Data[0].Intensity
	reading := &model.LiveReading{
		Forecast: *entry.Forecast,
		Index:    entry.Index,
	}
	if entry.Actual != nil {
		reading.Actual = *entry.Actual
	}
	return reading, nil
}
