// Package api is a thin client for the classroom membership API.
//
// Every call is a single attempt: there are no retries, and the only
// deadlines are the caller's context and the optional http.Client timeout.
package api

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Bidon15/classroom/internal/metrics"
)

// DefaultBaseURL is the classroom API endpoint.
const DefaultBaseURL = "https://cis.kku.ac.th/api/classroom"

// Client is the classroom API client.
//
// Use NewClient to create a new client with an API key:
//
//	client := api.NewClient(apiKey)
//	res, err := client.SignIn(ctx, "a@b.com", "pw")
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Collector
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL sets a custom API base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
//
// Example:
//
//	httpClient := &http.Client{Timeout: 60 * time.Second}
//	client := api.NewClient("key", api.WithHTTPClient(httpClient))
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLogger sets the logger used for request logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records every request on the collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a new classroom API client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the current base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}
