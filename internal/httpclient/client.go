// Package httpclient provides the retrying HTTP requester used by every
// source adapter: one logical request, an absolute per-attempt timeout, and
// a bounded exponential-backoff retry schedule with jitter.
package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/everstacklabs/modelscout/internal/errs"
)

// DefaultTimeout bounds each individual attempt.
const DefaultTimeout = 10 * time.Second

// DefaultBackoff is the delay schedule between attempts; its length is the
// retry count. Each delay gets ±50% jitter so concurrent invocations do not
// retry in lockstep.
var DefaultBackoff = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

// SleepFunc suspends the caller for d, honoring ctx cancellation. Injectable
// so retry tests run without real delays.
type SleepFunc func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Client performs HTTP requests with retry and failure classification.
// Stateless apart from configuration; one Client is shared per source.
type Client struct {
	http    *http.Client
	backoff []time.Duration
	sleep   SleepFunc
	jitter  func(d time.Duration) time.Duration
	headers map[string]string
}

// Option configures the Client.
type Option func(*Client)

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithBackoff replaces the retry delay schedule.
func WithBackoff(schedule []time.Duration) Option {
	return func(c *Client) { c.backoff = schedule }
}

// WithSleep replaces the backoff sleep function.
func WithSleep(s SleepFunc) Option {
	return func(c *Client) { c.sleep = s }
}

// WithoutJitter disables backoff jitter. Test use only.
func WithoutJitter() Option {
	return func(c *Client) { c.jitter = func(d time.Duration) time.Duration { return d } }
}

// WithTransport replaces the underlying transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.http.Transport = rt }
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers[key] = value }
}

// New creates a Client with the default timeout and backoff schedule.
func New(opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: DefaultTimeout},
		backoff: DefaultBackoff,
		sleep:   defaultSleep,
		jitter:  applyJitter,
		headers: map[string]string{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// applyJitter spreads d over [0.5d, 1.5d].
func applyJitter(d time.Duration) time.Duration {
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(d)+1))
}

// Response wraps a completed HTTP response.
type Response struct {
	Body       []byte
	StatusCode int
	Header     http.Header
}

// Get performs a GET with retry.
func (c *Client) Get(ctx context.Context, source, rawURL string, headers map[string]string) (*Response, error) {
	return c.do(ctx, source, http.MethodGet, rawURL, headers)
}

// GetJSON performs a GET with retry and unmarshals the body into v. A 2xx
// body that fails to unmarshal is a terminal malformed-response error, never
// retried.
func (c *Client) GetJSON(ctx context.Context, source, rawURL string, headers map[string]string, v any) error {
	resp, err := c.Get(ctx, source, rawURL, headers)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return errs.Malformed(source, fmt.Sprintf("unexpected response from %s", rawURL), err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, source, method, rawURL string, headers map[string]string) (*Response, error) {
	var lastErr error

	attempts := len(c.backoff) + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.jitter(c.backoff[attempt-1])); err != nil {
				break
			}
		}

		resp, err := c.attempt(ctx, method, rawURL, headers)
		if err != nil {
			if !retryableTransport(err) {
				return nil, errs.Network(source, fmt.Sprintf("request to %s failed", rawURL), err)
			}
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp, nil
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, errs.Auth(source,
				fmt.Sprintf("request to %s rejected with status %d", rawURL, resp.StatusCode),
				"check that the API credential for this source is set and valid")
		case retryableStatus(resp.StatusCode):
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			continue
		default:
			return nil, errs.Network(source,
				fmt.Sprintf("request to %s failed with status %d", rawURL, resp.StatusCode), nil)
		}
	}

	return nil, errs.Network(source,
		fmt.Sprintf("request to %s failed after %d attempts", rawURL, attempts), lastErr)
}

func (c *Client) attempt(ctx context.Context, method, rawURL string, headers map[string]string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	return &Response{Body: data, StatusCode: resp.StatusCode, Header: resp.Header}, nil
}

// retryableStatus reports whether a status warrants another attempt:
// 408, 429, and all 5xx. Every other non-2xx is terminal.
func retryableStatus(code int) bool {
	return code == http.StatusRequestTimeout ||
		code == http.StatusTooManyRequests ||
		code >= 500
}

// retryableTransport reports whether a transport-level failure warrants
// another attempt: timeouts, aborted attempts, DNS and connection errors.
// Caller cancellation and request-construction errors are terminal.
func retryableTransport(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
