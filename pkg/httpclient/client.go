package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ClientType represents the type of HTTP client configuration
type ClientType string

const (
	// BrowserClient uses browser-like headers to avoid 406 (Not Acceptable) errors
	// Used for article pages that require a browser-like User-Agent and headers
	BrowserClient ClientType = "browser"

	// CloudflareClient uses simple headers (like curl) to avoid 403 (Forbidden) errors
	// Used for Cloudflare-protected sites that block browser-like User-Agents
	CloudflareClient ClientType = "cloudflare"

	// FeedClient announces itself as a feed reader and accepts syndication formats
	FeedClient ClientType = "feed"

	// APIClient sends JSON and leaves the default User-Agent alone
	APIClient ClientType = "api"
)

const (
	defaultTimeout       = 30 * time.Second
	defaultMaxBodyBytes  = 32 << 20
	maxRedirects         = 10
	feedUserAgent        = "newscast/1.0 (+https://github.com/edopalomino/generate-startupcafe)"
	browserUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	defaultRetryAttempts = 1
)

// HTTPClient wraps an http.Client with configuration
type HTTPClient struct {
	client       *http.Client
	clientType   ClientType
	maxBodyBytes int64

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*HTTPClient)

// WithTimeout sets the per-request timeout (connect through body read).
func WithTimeout(timeout time.Duration) Option {
	return func(c *HTTPClient) {
		if timeout > 0 {
			c.client.Timeout = timeout
		}
	}
}

// WithTransport replaces the underlying transport (useful for tests).
func WithTransport(rt http.RoundTripper) Option {
	return func(c *HTTPClient) {
		if rt != nil {
			c.client.Transport = rt
		}
	}
}

// WithRetry sets how many attempts GetWithRetry makes and the backoff bounds.
func WithRetry(attempts int, baseDelay, maxDelay time.Duration) Option {
	return func(c *HTTPClient) {
		c.retryMaxAttempts = attempts
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *HTTPClient) {
		c.sleeper = sleeper
	}
}

// WithMaxBodyBytes caps how much of a response body is read.
func WithMaxBodyBytes(n int64) Option {
	return func(c *HTTPClient) {
		if n > 0 {
			c.maxBodyBytes = n
		}
	}
}

// NewClient creates a new HTTP client with the specified type
func NewClient(clientType ClientType, opts ...Option) *HTTPClient {
	client := &http.Client{
		Timeout: defaultTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// Follow up to 10 redirects
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	c := &HTTPClient{
		client:           client,
		clientType:       clientType,
		maxBodyBytes:     defaultMaxBodyBytes,
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   time.Second,
		retryMaxDelay:    10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do executes an HTTP request with the appropriate headers for the client type
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	c.setHeaders(req)
	return c.client.Do(req)
}

// Get is a convenience method for GET requests
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// Response is a fully read HTTP response.
type Response struct {
	// URL is the final URL after redirects.
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Fetch performs a single GET, requires 200 OK and reads the body.
// Non-200 responses are returned as *StatusError.
func (c *HTTPClient) Fetch(ctx context.Context, url string) (*Response, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       string(snippet),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body from %s: %w", url, err)
	}

	final := url
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return &Response{
		URL:        final,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// setHeaders sets the appropriate headers based on client type
func (c *HTTPClient) setHeaders(req *http.Request) {
	switch c.clientType {
	case BrowserClient:
		// Browser-like headers to avoid 406 (Not Acceptable) errors
		req.Header.Set("User-Agent", browserUserAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,application/pdf;q=0.8,*/*;q=0.7")
		req.Header.Set("Accept-Language", "es-MX,es;q=0.9,en-US;q=0.8,en;q=0.7")
		req.Header.Set("Connection", "keep-alive")
		req.Header.Set("Upgrade-Insecure-Requests", "1")

	case CloudflareClient:
		// Simple headers like curl to avoid 403 (Forbidden) errors from Cloudflare
		// Cloudflare allows simple tools like curl but blocks browser-like User-Agents
		req.Header.Set("User-Agent", "curl/8.7.1")

	case FeedClient:
		req.Header.Set("User-Agent", feedUserAgent)
		req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5")

	case APIClient:
		if req.Header.Get("Content-Type") == "" && req.Body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")

	default:
		// Default: use Go's default User-Agent
	}
}
