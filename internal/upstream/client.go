package upstream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultMaxAttempts is the number of attempts made per call.
	DefaultMaxAttempts = 5

	// DefaultBackoffBase is the unit of the exponential backoff. The wait
	// after failed attempt i (0-based) is 2^i units.
	DefaultBackoffBase = time.Second

	// DefaultTimeout bounds a single HTTP request.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodySize caps how much of a response body is read.
	DefaultMaxBodySize = 10 * 1024 * 1024

	// DefaultUserAgent is sent with every request.
	DefaultUserAgent = "rentscan"

	// maxErrorBody is how much of a failed response is kept in a CallError.
	maxErrorBody = 512
)

// Client issues rate-limited, retried GET requests against one upstream host.
type Client struct {
	baseURL     *url.URL
	httpClient  *http.Client
	headers     http.Header
	limiter     *Limiter
	maxAttempts int
	backoffBase time.Duration
	maxBodySize int64
	logger      *slog.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithHeader adds a static header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.headers.Set("User-Agent", ua)
		}
	}
}

// WithMinInterval sets the minimum spacing between requests.
func WithMinInterval(d time.Duration) Option {
	return func(c *Client) {
		c.limiter = NewLimiter(d)
	}
}

// WithLimiter shares an existing Limiter with this Client. Clients that talk
// to the same host through different base paths should share one Limiter.
func WithLimiter(l *Limiter) Option {
	return func(c *Client) {
		if l != nil {
			c.limiter = l
		}
	}
}

// WithMaxAttempts sets how many attempts a call makes before failing.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBackoffBase sets the unit of the exponential backoff.
func WithBackoffBase(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.backoffBase = d
		}
	}
}

// WithMaxBodySize caps the number of response bytes read.
func WithMaxBodySize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBodySize = n
		}
	}
}

// WithLogger sets the logger for retry diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a Client for the given base URL. Endpoint paths passed
// to Call are resolved relative to it.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidBaseURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidBaseURL)
	}

	c := &Client{
		baseURL:     u,
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		headers:     http.Header{},
		limiter:     NewLimiter(DefaultMinInterval),
		maxAttempts: DefaultMaxAttempts,
		backoffBase: DefaultBackoffBase,
		maxBodySize: DefaultMaxBodySize,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		sleep:       sleepContext,
	}
	c.headers.Set("User-Agent", DefaultUserAgent)
	c.headers.Set("Accept", "application/json")

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Host returns the host this client talks to.
func (c *Client) Host() string {
	return c.baseURL.Host
}

// Limiter returns the spacing state of this client.
func (c *Client) Limiter() *Limiter {
	return c.limiter
}

// backoff returns the wait after failed attempt i (0-based).
func (c *Client) backoff(i int) time.Duration {
	return time.Duration(math.Pow(2, float64(i))) * c.backoffBase
}

// Call issues a GET request to endpoint with params and hands the body of
// the first 200 response to handle, returning its result. Non-200 responses
// and transport errors are retried up to the client's attempt bound, waiting
// 2^i backoff units after failed attempt i, the last one included. A call
// that never succeeds therefore waits 2^n - 1 units in total before Call
// returns a *CallError matching ErrUpstreamCallFailed.
//
// Errors returned by handle are returned unchanged and are not retried.
// Cancelling ctx aborts any wait and returns the context error.
func Call[T any](ctx context.Context, c *Client, endpoint string, params url.Values, handle func(body []byte) (T, error)) (T, error) {
	var zero T
	target := c.baseURL.JoinPath(endpoint)
	if len(params) > 0 {
		target.RawQuery = params.Encode()
	}

	var (
		lastStatus int
		lastBody   []byte
		lastErr    error
	)
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return zero, err
		}

		c.logger.Debug("calling upstream", "host", c.baseURL.Host, "endpoint", endpoint, "attempt", attempt+1)
		status, body, err := c.get(ctx, target.String())
		if err == nil && status == http.StatusOK {
			return handle(body)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}

		lastStatus, lastBody, lastErr = status, body, err
		c.logger.Debug("upstream attempt failed",
			"endpoint", endpoint,
			"attempt", attempt+1,
			"status", status,
			"error", err,
		)
		if err := c.sleep(ctx, c.backoff(attempt)); err != nil {
			return zero, err
		}
	}

	return zero, &CallError{
		Endpoint: endpoint,
		Attempts: c.maxAttempts,
		Status:   lastStatus,
		Body:     truncate(string(lastBody), maxErrorBody),
		Err:      lastErr,
	}
}

// get performs one request and returns its status and body.
func (c *Client) get(ctx context.Context, target string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range c.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

// truncate shortens s to at most n bytes.
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
