// Package clients provides the shared HTTP transport used by the HTTP based
// connectors: connection reuse over HTTP/2, rate limiting, retries of
// retryable failures and JSON bodies.
package clients

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/ajitpratap0/nebula-fdw/pkg/config"
	"github.com/ajitpratap0/nebula-fdw/pkg/errors"
	jsonpool "github.com/ajitpratap0/nebula-fdw/pkg/json"
	"github.com/ajitpratap0/nebula-fdw/pkg/logger"
)

const (
	defaultUserAgent = "nebula-fdw/1.0"
	maxErrorBody     = 256
	maxResponseBody  = 64 << 20
)

// HTTPClient is a rate-limited, retrying JSON client bound to one base URL.
type HTTPClient struct {
	config     *HTTPConfig
	logger     *zap.Logger
	httpClient *http.Client
	transport  *http.Transport
	limiter    *rate.Limiter
	retry      *RetryPolicy

	requests int64
	failures int64
	retries  int64
}

// HTTPConfig configures the HTTP client
type HTTPConfig struct {
	// BaseURL is prefixed to every request path
	BaseURL string `json:"base_url"`
	// Headers are set on every request (api keys go here)
	Headers   map[string]string `json:"headers,omitempty"`
	UserAgent string            `json:"user_agent"`

	// Connection settings
	MaxIdleConnsPerHost int           `json:"max_idle_conns_per_host"`
	IdleConnTimeout     time.Duration `json:"idle_conn_timeout"`
	EnableHTTP2         bool          `json:"enable_http2"`

	// Timeouts
	DialTimeout    time.Duration `json:"dial_timeout"`
	RequestTimeout time.Duration `json:"request_timeout"`

	// Rate limiting (0 = unlimited)
	RateLimit float64 `json:"rate_limit"`
	RateBurst int     `json:"rate_burst"`

	// Retry applies to retryable failures only
	Retry *RetryPolicy `json:"-"`

	// OAuth2 enables the client-credentials grant when set
	OAuth2 *OAuth2Config `json:"oauth2,omitempty"`
}

// DefaultHTTPConfig returns default configuration
func DefaultHTTPConfig() *HTTPConfig {
	return &HTTPConfig{
		Headers:             make(map[string]string),
		UserAgent:           defaultUserAgent,
		MaxIdleConnsPerHost: 16,
		IdleConnTimeout:     90 * time.Second,
		EnableHTTP2:         true,
		DialTimeout:         10 * time.Second,
		RequestTimeout:      30 * time.Second,
		RateBurst:           1,
		Retry:               DefaultRetryPolicy(),
	}
}

// HTTPConfigFromBase derives transport settings from a connector config.
func HTTPConfigFromBase(baseURL string, bc *config.BaseConfig) *HTTPConfig {
	cfg := DefaultHTTPConfig()
	cfg.BaseURL = baseURL
	if bc == nil {
		return cfg
	}
	if bc.Timeouts.Request > 0 {
		cfg.RequestTimeout = bc.Timeouts.Request
	}
	if bc.Timeouts.Connection > 0 {
		cfg.DialTimeout = bc.Timeouts.Connection
	}
	if bc.Timeouts.Idle > 0 {
		cfg.IdleConnTimeout = bc.Timeouts.Idle
	}
	if bc.Reliability.IsRateLimited() {
		cfg.RateLimit = float64(bc.Reliability.RateLimitPerSec)
	}
	cfg.RateBurst = bc.Reliability.Burst()
	cfg.Retry = RetryPolicyFromConfig(bc.Reliability)
	return cfg
}

// NewHTTPClient creates a new HTTP client
func NewHTTPClient(cfg *HTTPConfig, log *zap.Logger) (*HTTPClient, error) {
	if cfg == nil {
		cfg = DefaultHTTPConfig()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil || cfg.BaseURL == "" {
		return nil, errors.InvalidOption("base_url", cfg.BaseURL, err)
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Retry == nil {
		cfg.Retry = NoRetryPolicy()
	}

	client := &HTTPClient{
		config: cfg,
		logger: log.With(zap.String("component", "http_client")),
		retry:  cfg.Retry,
	}

	client.transport = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}
	if cfg.EnableHTTP2 {
		if err := http2.ConfigureTransport(client.transport); err != nil {
			client.logger.Warn("failed to configure HTTP/2", zap.Error(err))
		}
	}

	var rt http.RoundTripper = client.transport
	if cfg.OAuth2 != nil {
		oauthRT, err := cfg.OAuth2.roundTripper(client.transport, cfg.RequestTimeout)
		if err != nil {
			return nil, err
		}
		rt = oauthRT
	}

	client.httpClient = &http.Client{
		Transport: rt,
		Timeout:   cfg.RequestTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}
	client.limiter = rate.NewLimiter(limit, burst)

	return client, nil
}

// Request describes one JSON call relative to the base URL.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Headers map[string]string
	// Body is encoded as JSON when non-nil
	Body interface{}
}

// DoJSON executes req and decodes a 2xx response body into out. JSON numbers
// decoded into interface{} values keep their text so large ids survive.
// Non-2xx responses are classified into structured error types, and
// retryable ones are retried per the client's policy.
func (c *HTTPClient) DoJSON(ctx context.Context, req *Request, out interface{}) error {
	var payload []byte
	if req.Body != nil {
		b, err := jsonpool.Marshal(req.Body)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode request body")
		}
		payload = b
	}

	attempt := 0
	var body []byte
	err := c.retry.Execute(ctx, func() error {
		if attempt > 0 {
			atomic.AddInt64(&c.retries, 1)
		}
		attempt++
		var err error
		body, err = c.doOnce(ctx, req, payload, attempt)
		return err
	}, func(err error) bool {
		return ctx.Err() == nil && errors.IsRetryable(err)
	})
	if err != nil {
		atomic.AddInt64(&c.failures, 1)
		return err
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := jsonpool.UnmarshalNumbers(body, out); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to decode response body").
			WithDetail("path", req.Path)
	}
	return nil
}

func (c *HTTPClient) doOnce(ctx context.Context, req *Request, payload []byte, attempt int) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeTimeout, "rate limiter wait aborted")
	}

	httpReq, err := c.newRequest(ctx, req, payload)
	if err != nil {
		return nil, err
	}

	atomic.AddInt64(&c.requests, 1)
	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err, req)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to read response body").
			WithDetail("path", req.Path)
	}

	logger.FromContext(ctx, c.logger).Debug("http request",
		zap.String("method", httpReq.Method),
		zap.String("path", req.Path),
		zap.Int("status", resp.StatusCode),
		zap.Int("attempt", attempt),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyStatus(resp.StatusCode, body).
			WithDetail("method", httpReq.Method).
			WithDetail("path", req.Path)
	}
	return body, nil
}

func (c *HTTPClient) newRequest(ctx context.Context, req *Request, payload []byte) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	fullURL := strings.TrimSuffix(c.config.BaseURL, "/")
	if req.Path != "" {
		fullURL += "/" + strings.TrimPrefix(req.Path, "/")
	}
	if len(req.Query) > 0 {
		fullURL += "?" + req.Query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to build request").
			WithDetail("url", fullURL)
	}

	httpReq.Header.Set("User-Agent", c.config.UserAgent)
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.config.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}

// HTTPStats reports request counters.
type HTTPStats struct {
	Requests int64
	Failures int64
	Retries  int64
}

// Stats returns the client's request counters.
func (c *HTTPClient) Stats() HTTPStats {
	return HTTPStats{
		Requests: atomic.LoadInt64(&c.requests),
		Failures: atomic.LoadInt64(&c.failures),
		Retries:  atomic.LoadInt64(&c.retries),
	}
}

// Close releases idle connections.
func (c *HTTPClient) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}

// classifyStatus maps a non-2xx status to an error type.
func classifyStatus(status int, body []byte) *errors.Error {
	var errType errors.ErrorType
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		errType = errors.ErrorTypeAuthentication
	case status == http.StatusNotFound:
		errType = errors.ErrorTypeNotFound
	case status == http.StatusTooManyRequests:
		errType = errors.ErrorTypeRateLimit
	case status == http.StatusRequestTimeout:
		errType = errors.ErrorTypeTimeout
	case status >= 500:
		errType = errors.ErrorTypeConnection
	default:
		errType = errors.ErrorTypeClient
	}

	e := errors.Newf(errType, "unexpected status %d %s", status, http.StatusText(status)).
		WithDetail(errors.DetailStatusCode, status)
	if preview := strings.TrimSpace(string(body)); preview != "" {
		if len(preview) > maxErrorBody {
			preview = preview[:maxErrorBody] + "..."
		}
		e.WithDetail("body", preview)
	}
	return e
}

func classifyTransportError(err error, req *Request) *errors.Error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return errors.Wrap(err, errors.ErrorTypeAuthentication, "failed to obtain access token")
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.Wrap(err, errors.ErrorTypeTimeout, "request timed out").WithDetail("path", req.Path)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(err, errors.ErrorTypeTimeout, "request cancelled").WithDetail("path", req.Path)
	}
	return errors.Wrap(err, errors.ErrorTypeConnection, "request failed").WithDetail("path", req.Path)
}
