// ABOUTME: HTTP/2 client for the Handy REST API v3
// ABOUTME: Authenticated JSON requests with a replaceable connection pool
package handy

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/http2"
)

const (
	// DefaultBaseURL is the public Handy REST API v3 endpoint
	DefaultBaseURL = "https://www.handyfeeling.com/api/handy-rest/v3/"

	// DefaultTimeout bounds a single API request
	DefaultTimeout = 5 * time.Second

	connectionKeyHeader = "X-Connection-Key"
	applicationIDHeader = "X-Api-Key"
)

// Config holds client configuration
type Config struct {
	BaseURL       string
	ConnectionKey string
	ApplicationID string
	Timeout       time.Duration
	TLSConfig     *tls.Config // nil uses system roots
	Logger        *slog.Logger
}

// Client talks to a single device through the cloud API
type Client struct {
	config Config
	http   atomic.Pointer[http.Client]
	logger *slog.Logger

	latencyMu  sync.Mutex
	latencySum time.Duration
	latencyN   int64
}

// NewClient creates a client. It does not contact the API.
func NewClient(config Config) (*Client, error) {
	if config.ConnectionKey == "" {
		return nil, fmt.Errorf("connection key is required")
	}
	if config.ApplicationID == "" {
		return nil, fmt.Errorf("application id is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(config.BaseURL, "/") {
		config.BaseURL += "/"
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	c := &Client{
		config: config,
		logger: config.Logger,
	}

	hc, err := c.newHTTPClient()
	if err != nil {
		return nil, err
	}
	c.http.Store(hc)

	return c, nil
}

// newHTTPClient builds a client with its own HTTP/2 connection pool
func (c *Client) newHTTPClient() (*http.Client, error) {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSClientConfig:     c.config.TLSConfig.Clone(),
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if _, err := http2.ConfigureTransports(transport); err != nil {
		return nil, fmt.Errorf("failed to configure http2: %w", err)
	}

	return &http.Client{
		Transport: transport,
		Timeout:   c.config.Timeout,
	}, nil
}

// RefreshConnection replaces the connection pool. Requests already in
// flight finish on the old connection.
func (c *Client) RefreshConnection() error {
	hc, err := c.newHTTPClient()
	if err != nil {
		return err
	}

	old := c.http.Swap(hc)
	if old != nil {
		old.CloseIdleConnections()
	}
	return nil
}

// envelope is the common response body of every endpoint
type envelope[T any] struct {
	Result *T        `json:"result"`
	Error  *APIError `json:"error"`
}

// do performs one request and decodes the envelope into result
func do[T any](ctx context.Context, c *Client, method, path string, body any) (*T, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(connectionKeyHeader, c.config.ConnectionKey)
	req.Header.Set(applicationIDHeader, c.config.ApplicationID)

	start := time.Now()
	resp, err := c.http.Load().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, classify(err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: reading body: %w", method, path, classify(err))
	}
	c.observeLatency(path, time.Since(start))

	var env envelope[T]
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%s %s: status %d: failed to decode response: %w", method, path, resp.StatusCode, err)
	}

	switch {
	case env.Error != nil:
		return nil, fmt.Errorf("%s %s: %w", method, path, env.Error)
	case env.Result == nil:
		c.logger.Error("Received potentially empty response", "path", path, "status", resp.StatusCode, "body", string(data))
		return nil, fmt.Errorf("%s %s: status %d: %w", method, path, resp.StatusCode, ErrEmptyResponse)
	}

	return env.Result, nil
}

// observeLatency keeps a running average for debug logs
func (c *Client) observeLatency(path string, took time.Duration) {
	if !c.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	c.latencyMu.Lock()
	c.latencySum += took
	c.latencyN++
	avg := c.latencySum / time.Duration(c.latencyN)
	c.latencyMu.Unlock()

	c.logger.Debug("Request finished", "path", path, "took", took, "average", avg)
}
