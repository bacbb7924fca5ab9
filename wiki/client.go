package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/olgasafonova/mediawiki-export/internal/infra"
	"github.com/olgasafonova/mediawiki-export/metrics"
	"golang.org/x/net/publicsuffix"
)

// API actions, used for metric and span labels
const (
	ActionAllPages  = "allpages"
	ActionRevisions = "revisions"
)

// Client handles communication with the MediaWiki API.
// It issues one request at a time and is not meant for concurrent use.
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *slog.Logger
	pacer      *infra.Pacer
}

// apiResponse is a raw API reply; decoding policy is left to the caller
type apiResponse struct {
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// NewClient creates a new MediaWiki API client
func NewClient(config *Config, logger *slog.Logger) *Client {
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
		DisableCompression:  false,
		ForceAttemptHTTP2:   true,
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Jar:       jar,
			Transport: transport,
		},
		logger: logger,
		pacer:  infra.NewPacer(config.RequestDelay),
	}
}

// Pacer returns the pacer shared by every call made on behalf of this client
func (c *Client) Pacer() *infra.Pacer {
	return c.pacer
}

// Close releases idle connections
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// apiRequest sends a GET request to the API. Transport failures are returned as errors;
// the status code is not checked because MediaWiki reports most failures in the body.
func (c *Client) apiRequest(ctx context.Context, action string, params url.Values) (*apiResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	endpoint, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	query := endpoint.Query()
	for key, values := range params {
		query[key] = values
	}
	query.Set("format", "json")
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordAPICall(action, time.Since(start).Seconds(), metrics.StatusTransportError)
		return nil, fmt.Errorf("request failed: %w", err)
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close() // Error ignored intentionally; body already read
	duration := time.Since(start)
	if err != nil {
		metrics.RecordAPICall(action, duration.Seconds(), metrics.StatusTransportError)
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("API response",
		"action", action,
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration", duration)

	return &apiResponse{
		StatusCode: resp.StatusCode,
		Body:       body,
		Duration:   duration,
	}, nil
}

// decode unmarshals a response body into v. A body that is not JSON yields a
// *ResponseParseError; valid JSON that does not fit v yields ErrUnexpectedShape.
func decode(action, title string, resp *apiResponse, v any) error {
	if err := json.Unmarshal(resp.Body, v); err != nil {
		if json.Valid(resp.Body) {
			metrics.RecordAPICall(action, resp.Duration.Seconds(), metrics.StatusUnexpected)
			return fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
		}
		metrics.RecordAPICall(action, resp.Duration.Seconds(), metrics.StatusParseError)
		return &ResponseParseError{
			Action:     action,
			Title:      title,
			StatusCode: resp.StatusCode,
			Snippet:    snippet(resp.Body),
			Err:        err,
		}
	}
	metrics.RecordAPICall(action, resp.Duration.Seconds(), metrics.StatusOK)
	return nil
}

// apiError is MediaWiki's error envelope
type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}
