// Package catalogapi is a rate-limited client for the remote catalog,
// identity and recommendation API.
package catalogapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/reelhouse/reelhouse-server/internal/ratelimit"
)

const (
	// Rate limit per endpoint, burst of 5.
	defaultRPS   = 5.0
	defaultBurst = 5

	defaultTimeout = 10 * time.Second

	// Cap on response bodies; catalog pages of 200 items stay well below this.
	maxBodyBytes = 16 << 20

	userAgent = "Reelhouse/1.0"
)

// Endpoint keys for the per-endpoint rate limiter.
const (
	endpointMovies          = "movies"
	endpointIdentity        = "auth"
	endpointRecommendations = "recommendations"
)

// Options configures a Client.
type Options struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	HTTPClient        *http.Client // optional, mainly for tests
}

// Client talks to the remote catalog API.
type Client struct {
	base    *url.URL
	http    *http.Client
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
}

// New creates a new catalog client.
func New(opts Options, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("catalogapi: invalid base url %q", opts.BaseURL)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = defaultRPS
	}
	if opts.Burst <= 0 {
		opts.Burst = defaultBurst
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		base:    base,
		http:    httpClient,
		limiter: ratelimit.New(opts.RequestsPerSecond, opts.Burst),
		logger:  logger,
	}, nil
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// request describes one GET call.
type request struct {
	endpoint string
	path     string
	query    url.Values
	token    string
}

// doRequest executes a GET with rate limiting and maps the status code to
// the package sentinels.
func (c *Client) doRequest(ctx context.Context, r request) ([]byte, error) {
	if err := c.limiter.Wait(ctx, r.endpoint); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u := *c.base
	u.Path = c.base.Path + r.path
	u.RawQuery = r.query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("catalog request",
		"endpoint", r.endpoint,
		"path", r.path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)

	if err := statusError(resp.StatusCode, body); err != nil {
		c.logger.Warn("catalog request rejected",
			"endpoint", r.endpoint,
			"status", resp.StatusCode,
			"request_id", requestID,
			"retryable", Retryable(err),
		)
		return nil, err
	}
	return body, nil
}

// statusError maps a response status to the package sentinels.
func statusError(status int, body []byte) error {
	switch status {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthenticated
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusBadRequest:
		return ErrBadRequest
	default:
		if status >= 500 {
			return fmt.Errorf("%w: status %d", ErrServer, status)
		}
		return fmt.Errorf("unexpected status %d: %s", status, truncate(string(body), 200))
	}
}

// Retryable reports whether err is worth retrying on the next trigger.
func Retryable(err error) bool {
	return errors.Is(err, ErrServer) || errors.Is(err, ErrRateLimited)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
