// Package httpds implements an HTTP data source for relation files published
// under a base URL (e.g. a mirror of the Ergast CSV dump). Requests go
// through go-retryablehttp with exponential backoff on transient failures.
package httpds

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
)

// Config configures the HTTP client.
//
// Zero values are given sensible defaults:
//   - Timeout:        30s
//   - InitialBackoff: 200ms
//   - MaxBackoff:     5s
type Config struct {
	// Timeout is the per-request timeout applied at the http.Client level.
	Timeout time.Duration

	// MaxRetries is the number of retry attempts after the initial request.
	// MaxRetries=0 means "no retries" (only the initial attempt).
	MaxRetries int

	// InitialBackoff is the wait before the first retry; later waits double up
	// to MaxBackoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool

	// BaseHeaders are added to every request; per-request headers win.
	BaseHeaders http.Header

	// Transport is an optional custom RoundTripper.
	Transport http.RoundTripper
}

// Client wraps a retryablehttp.Client.
type Client struct {
	rc          *retryablehttp.Client
	baseHeaders http.Header
}

// NewClient constructs a Client from Config, applying defaults for zero values.
func NewClient(cfg Config, log logrus.FieldLogger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}

	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // explicitly configurable
			},
		}
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{Timeout: cfg.Timeout, Transport: transport}
	rc.RetryMax = cfg.MaxRetries
	rc.RetryWaitMin = cfg.InitialBackoff
	rc.RetryWaitMax = cfg.MaxBackoff
	rc.CheckRetry = checkRetry
	rc.Logger = nil
	if log != nil {
		rc.Logger = leveledLogger{log}
	}

	hdr := http.Header{}
	for k, vs := range cfg.BaseHeaders {
		for _, v := range vs {
			hdr.Add(k, v)
		}
	}
	return &Client{rc: rc, baseHeaders: hdr}
}

// Do sends a body-less request, retrying on transient failures. The caller
// must close the response body.
func (c *Client) Do(ctx context.Context, method, url string, headers http.Header) (*http.Response, error) {
	if method == "" {
		return nil, fmt.Errorf("httpds: method must not be empty")
	}
	if url == "" {
		return nil, fmt.Errorf("httpds: url must not be empty")
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("httpds: build request: %w", err)
	}
	for k, vs := range c.baseHeaders {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}
	resp, err := c.rc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpds: %s %s: %w", method, url, err)
	}
	return resp, nil
}

// Get is a convenience wrapper over Do for HTTP GET.
func (c *Client) Get(ctx context.Context, url string, headers http.Header) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, url, headers)
}

// Head is a convenience wrapper over Do for HTTP HEAD.
func (c *Client) Head(ctx context.Context, url string) (*http.Response, error) {
	return c.Do(ctx, http.MethodHead, url, nil)
}

// checkRetry retries transport errors, 429 and 5xx. Everything else is final.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	return isRetryableStatus(resp.StatusCode), nil
}

func isRetryableStatus(code int) bool {
	if code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500 && code <= 599 && code != http.StatusNotImplemented
}

// leveledLogger adapts logrus to retryablehttp.LeveledLogger.
type leveledLogger struct{ l logrus.FieldLogger }

func (a leveledLogger) fields(kv []interface{}) logrus.FieldLogger {
	l := a.l
	for i := 0; i+1 < len(kv); i += 2 {
		l = l.WithField(fmt.Sprint(kv[i]), kv[i+1])
	}
	return l
}

func (a leveledLogger) Error(msg string, kv ...interface{}) { a.fields(kv).Error("httpds: " + msg) }
func (a leveledLogger) Info(msg string, kv ...interface{})  { a.fields(kv).Info("httpds: " + msg) }
func (a leveledLogger) Debug(msg string, kv ...interface{}) { a.fields(kv).Debug("httpds: " + msg) }
func (a leveledLogger) Warn(msg string, kv ...interface{})  { a.fields(kv).Warn("httpds: " + msg) }
