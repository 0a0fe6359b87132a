// Package client talks to a heatline control server.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/heatline/internal/constants"
	ierrors "github.com/coral-mesh/heatline/internal/errors"
	"github.com/coral-mesh/heatline/internal/tree"
)

// APIError is a non-200 response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client is a control-plane client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retry      RetryConfig
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetry sets the connection retry policy.
func WithRetry(cfg RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a client for addr, given as host:port or as a URL.
func New(addr string, opts ...Option) *Client {
	base := strings.TrimRight(addr, "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}

	c := &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: constants.DefaultClientTimeout},
		retry: RetryConfig{
			MaxAttempts:    constants.DefaultClientRetries,
			InitialBackoff: constants.DefaultClientBackoff,
		},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server URL requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Info reports whether the server is profiling.
func (c *Client) Info(ctx context.Context) (bool, error) {
	var out struct {
		Running bool `json:"running"`
	}
	if err := c.do(ctx, http.MethodGet, "/info", &out); err != nil {
		return false, err
	}
	return out.Running, nil
}

// Start starts profiling.
func (c *Client) Start(ctx context.Context) error {
	var out struct {
		OK bool `json:"ok"`
	}
	if err := c.do(ctx, http.MethodPost, "/start", &out); err != nil {
		return err
	}
	if !out.OK {
		return fmt.Errorf("server did not acknowledge start")
	}
	return nil
}

// Stop stops profiling and returns the collected call tree.
func (c *Client) Stop(ctx context.Context) (*tree.Node, error) {
	var out tree.Node
	if err := c.do(ctx, http.MethodPost, "/stop", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	return retry(ctx, c.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}

		c.logger.Debug().Str("method", method).Str("url", req.URL.String()).Msg("Sending request")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}
		defer ierrors.DeferClose(c.logger, resp.Body, "failed to close response body")

		if resp.StatusCode != http.StatusOK {
			return decodeError(resp)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", path, err)
		}
		return nil
	})
}

func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var payload struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		msg = payload.Error
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
