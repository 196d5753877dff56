package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultUserAgent = "khobor-desk/1.0 (+https://github.com/Adda-Baaj/khobor-desk)"

// Response is the subset of an HTTP response callers inspect.
type Response interface {
	StatusCode() int
	Body() []byte
}

// Client issues HTTP requests with per-call headers.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
	Do(ctx context.Context, method, url string, headers map[string]string, body any) (Response, error)
}

// Option customizes the resty client.
type Option func(*resty.Client)

// WithRetry retries transport failures and 5xx responses count times.
func WithRetry(count int, wait time.Duration) Option {
	return func(c *resty.Client) {
		if count <= 0 {
			return
		}
		c.SetRetryCount(count).
			SetRetryWaitTime(wait).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				return err != nil || r.StatusCode() >= http.StatusInternalServerError
			})
	}
}

// WithUserAgent overrides the default User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *resty.Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.SetHeader("User-Agent", ua)
		}
	}
}

// WithTransport swaps the underlying round tripper; tests use it with httptest servers.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *resty.Client) {
		if rt != nil {
			c.SetTransport(rt)
		}
	}
}

type restyClient struct {
	c *resty.Client
}

// NewRestyClient builds a Client backed by resty with the given request timeout.
func NewRestyClient(timeout time.Duration, opts ...Option) Client {
	c := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", defaultUserAgent)
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return &restyClient{c: c}
}

// Get performs a GET request.
func (r *restyClient) Get(ctx context.Context, url string, headers map[string]string) (Response, error) {
	return r.Do(ctx, http.MethodGet, url, headers, nil)
}

// Do performs a request with an optional body. Non-nil bodies that are not
// strings or byte slices are encoded as JSON by resty.
func (r *restyClient) Do(ctx context.Context, method, url string, headers map[string]string, body any) (Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	req := r.c.R().SetContext(ctx)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(strings.ToUpper(method), url)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", strings.ToUpper(method), url, err)
	}
	return resp, nil
}
