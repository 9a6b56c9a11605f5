package fetchx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// config holds one resolved set of call options. A Client owns one as its
// defaults; every call and every Extend works on a deep copy, so option
// inheritance is always copy-on-derive.
type config struct {
	httpClient    *http.Client
	prefixURL     string
	headers       http.Header
	searchParams  url.Values
	body          []byte
	bodySet       bool
	bodyErr       error
	jsonBody      any
	hasJSONBody   bool
	json          bool
	timeout       time.Duration
	jar           http.CookieJar
	retry         RetryConfig
	beforeRequest BeforeRequestHook
	afterResponse AfterResponseHook
	middleware    []Middleware
	limiter       *rate.Limiter
	breaker       *gobreaker.CircuitBreaker
	metrics       *MetricsCollector
	debug         *DebugConfig
	logger        Logger
}

func defaultConfig() config {
	return config{
		httpClient: &http.Client{},
		timeout:    30 * time.Second,
		retry:      defaultRetryConfig(),
		debug:      DefaultDebugConfig(),
	}
}

// clone copies the mutable parts of the configuration. Shared capabilities
// (http.Client, cookie jar, limiter, breaker, metrics, logger) stay shared.
func (c config) clone() config {
	if c.headers != nil {
		c.headers = mergeHeaders(nil, c.headers)
	}
	if c.searchParams != nil {
		params := make(url.Values, len(c.searchParams))
		for k, vs := range c.searchParams {
			params[k] = append([]string(nil), vs...)
		}
		c.searchParams = params
	}
	c.retry = c.retry.clone()
	c.middleware = append([]Middleware(nil), c.middleware...)
	return c
}

// Client is a reusable HTTP caller binding a set of defaults. It is safe
// for concurrent use; calls share only read-only configuration and, when
// configured, the cookie jar.
type Client struct {
	defaults        config
	validationError error
}

// New constructs a Client from the provided functional options. A best
// effort validation is performed; call IsValid / ValidationError for errors.
func New(options ...Option) *Client {
	cfg := defaultConfig()
	for _, option := range options {
		option(&cfg)
	}

	client := &Client{defaults: cfg}
	if err := cfg.validate(); err != nil {
		client.validationError = err
	}
	return client
}

// Extend derives a child Client whose defaults are this client's defaults
// with the override options applied on top. The merge happens once, here;
// the child never observes later changes to the parent.
func (c *Client) Extend(options ...Option) *Client {
	cfg := c.defaults.clone()
	for _, option := range options {
		option(&cfg)
	}

	child := &Client{defaults: cfg}
	if err := cfg.validate(); err != nil {
		child.validationError = err
	}
	return child
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

// Get performs a GET call.
func (c *Client) Get(ctx context.Context, target string, options ...Option) (*Result, error) {
	return c.Do(ctx, http.MethodGet, target, options...)
}

// Head performs a HEAD call.
func (c *Client) Head(ctx context.Context, target string, options ...Option) (*Result, error) {
	return c.Do(ctx, http.MethodHead, target, options...)
}

// Post performs a POST call. Supply the body via WithBody or WithJSONBody.
func (c *Client) Post(ctx context.Context, target string, options ...Option) (*Result, error) {
	return c.Do(ctx, http.MethodPost, target, options...)
}

// Put performs a PUT call.
func (c *Client) Put(ctx context.Context, target string, options ...Option) (*Result, error) {
	return c.Do(ctx, http.MethodPut, target, options...)
}

// Patch performs a PATCH call.
func (c *Client) Patch(ctx context.Context, target string, options ...Option) (*Result, error) {
	return c.Do(ctx, http.MethodPatch, target, options...)
}

// Delete performs a DELETE call.
func (c *Client) Delete(ctx context.Context, target string, options ...Option) (*Result, error) {
	return c.Do(ctx, http.MethodDelete, target, options...)
}

// Do runs one logical call: resolve options against the defaults, then
// attempt the exchange under the retry policy until settled.
func (c *Client) Do(ctx context.Context, method, target string, options ...Option) (*Result, error) {
	if c.validationError != nil {
		return nil, c.validationError
	}

	cfg := c.defaults.clone()
	for _, option := range options {
		option(&cfg)
	}

	start := time.Now()

	var requestID string
	if cfg.debug != nil && cfg.debug.Enabled && cfg.debug.RequestIDGen != nil {
		requestID = cfg.debug.RequestIDGen()
	}

	req, cancel, err := cfg.resolveRequest(ctx, method, target)
	if err != nil {
		return nil, err
	}

	endpoint := endpointFromURL(req.URL)

	if cfg.debug != nil && cfg.debug.Enabled && cfg.debug.LogRequests && cfg.logger != nil {
		cfg.logger.Debug("Starting request", "requestID", requestID, "method", req.Method, "url", req.URL.String(), "endpoint", endpoint)
	}

	if cfg.metrics != nil {
		cfg.metrics.RecordRequestStart(req.Method, endpoint)
		defer cfg.metrics.RecordRequestEnd(req.Method, endpoint)
	}

	res, err := cfg.doWithRetry(req, 0, requestID)

	if cfg.metrics != nil {
		statusCode := 0
		if res != nil {
			statusCode = res.StatusCode()
		} else {
			var httpErr *HTTPError
			if errors.As(err, &httpErr) {
				statusCode = httpErr.StatusCode
			}
		}
		cfg.metrics.RecordRequest(req.Method, endpoint, statusCode, time.Since(start))
	}

	return finishCall(res, err, cancel)
}

// finishCall hands the per-call cancel over to whichever response body the
// caller receives, so the deadline stays live while the body is streamed.
// Without a surviving body the context is released immediately.
func finishCall(res *Result, err error, cancel context.CancelFunc) (*Result, error) {
	if res != nil && res.Response != nil && res.Response.Body != nil {
		res.Response.Body = &cancelOnClose{ReadCloser: res.Response.Body, cancel: cancel}
		return res, err
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.Response != nil && httpErr.Response.Body != nil {
		httpErr.Response.Body = &cancelOnClose{ReadCloser: httpErr.Response.Body, cancel: cancel}
		return res, err
	}

	cancel()
	return res, err
}

// cancelOnClose releases the logical call's context once the caller is done
// with the body.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// doWithRetry drives the attempt loop: one sequential attempt per
// iteration, a policy decision on failure, then a cancellable wait before
// the next attempt. attempt is 0-based.
func (c *config) doWithRetry(req *Request, attempt int, requestID string) (*Result, error) {
	endpoint := endpointFromURL(req.URL)

	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
		if c.metrics != nil {
			c.metrics.RecordRateLimiterTokens("default", c.limiter.Tokens())
		}
	}

	if attempt > 0 {
		if c.debug != nil && c.debug.Enabled && c.debug.LogRetries && c.logger != nil {
			c.logger.Info("Retry attempt", "requestID", requestID, "attempt", attempt, "maxRetries", c.retry.Limit, "endpoint", endpoint)
		}
		if c.metrics != nil {
			c.metrics.RecordRetry(req.Method, endpoint, attempt)
		}
	}

	res, err := c.attempt(req)

	if c.breaker != nil && c.metrics != nil {
		c.metrics.RecordCircuitBreakerState(c.breaker.Name(), c.breaker.State())
	}

	if err == nil {
		return res, nil
	}

	if c.metrics != nil {
		c.metrics.RecordError(errorTypeLabel(err), req.Method, endpoint)
	}

	if c.retry.OnFailedAttempt != nil {
		c.retry.OnFailedAttempt(AttemptContext{
			Attempt:     attempt + 1,
			RetriesLeft: c.retry.Limit - attempt,
			Err:         err,
		})
	}

	delay, retryable := c.retry.decide(err, attempt)
	if !retryable {
		return nil, err
	}

	drainFailedResponse(err)

	if c.debug != nil && c.debug.Enabled && c.debug.LogRetries && c.logger != nil {
		c.logger.Info("Scheduling retry", "requestID", requestID, "attempt", attempt+1, "wait", delay, "endpoint", endpoint)
	}

	timer := time.NewTimer(delay)
	select {
	case <-req.Context().Done():
		timer.Stop()
		return nil, req.Context().Err()
	case <-timer.C:
	}

	return c.doWithRetry(req, attempt+1, requestID)
}

// attempt performs one transport send and classifies the outcome.
func (c *config) attempt(req *Request) (*Result, error) {
	httpReq, err := req.httpRequest()
	if err != nil {
		return nil, &UsageError{Message: "building request", Cause: err}
	}

	resp, err := c.send(httpReq)
	if err != nil {
		return nil, err
	}

	if c.afterResponse != nil {
		replaced, hookErr := c.afterResponse(req, resp)
		if hookErr != nil {
			var httpErr *HTTPError
			if errors.As(hookErr, &httpErr) {
				if httpErr.Response != resp {
					closeResponse(resp)
				}
				return nil, hookErr
			}
			closeResponse(resp)
			return nil, &hookError{err: hookErr}
		}
		if replaced != nil {
			resp = replaced
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := NewHTTPError(resp)
		if c.json {
			httpErr.Body = decodeBestEffort(resp)
		}
		return nil, httpErr
	}

	if c.jar != nil {
		if cookies := resp.Cookies(); len(cookies) > 0 {
			c.jar.SetCookies(req.URL, cookies)
			if c.metrics != nil {
				c.metrics.RecordCookiesPersisted(endpointFromURL(req.URL), len(cookies))
			}
			if c.debug != nil && c.debug.Enabled && c.debug.LogCookies && c.logger != nil {
				c.logger.Debug("Persisted cookies", "url", req.URL.String(), "count", len(cookies))
			}
		}
	}

	if !c.json {
		return &Result{Response: resp}, nil
	}

	// No body to parse on 204/205.
	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusResetContent {
		closeResponse(resp)
		resp.Body = io.NopCloser(bytes.NewReader(nil))
		return &Result{Response: resp}, nil
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	// An empty success body decodes to nothing, same as 204/205.
	if len(bytes.TrimSpace(body)) == 0 {
		return &Result{Response: resp}, nil
	}

	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return nil, err
	}
	return &Result{Response: resp, JSON: value}, nil
}

// send dispatches one attempt through the optional circuit breaker and the
// middleware chain. The breaker observes only transport failures; HTTP
// error statuses are policy matters for the retry controller.
func (c *config) send(req *http.Request) (*http.Response, error) {
	if c.breaker == nil {
		return c.roundTrip(req)
	}

	v, err := c.breaker.Execute(func() (any, error) {
		return c.roundTrip(req)
	})
	if err != nil {
		return nil, err
	}
	return v.(*http.Response), nil
}

func (c *config) roundTrip(req *http.Request) (*http.Response, error) {
	if len(c.middleware) == 0 {
		return c.httpClient.Do(req)
	}

	current := RoundTripperFunc(c.httpClient.Do)

	for i := len(c.middleware) - 1; i >= 0; i-- {
		middleware := c.middleware[i]
		next := current
		current = RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return middleware(r, next)
		})
	}

	return current.RoundTrip(req)
}

// drainFailedResponse releases a retried attempt's response so the
// transport can reuse the connection. The terminal failure keeps its
// response untouched for the caller.
func drainFailedResponse(err error) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.Response != nil && httpErr.Response.Body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(httpErr.Response.Body, 4096))
		httpErr.Response.Body.Close()
	}
}

func closeResponse(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
	}
}

// decodeBestEffort captures a JSON error body without consuming the stream
// twice: the bytes are re-buffered onto the response. Decode failures are
// swallowed; diagnostics must not mask the original HTTP failure.
func decodeBestEffort(resp *http.Response) any {
	if resp == nil || resp.Body == nil {
		return nil
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil || len(body) == 0 {
		return nil
	}
	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return nil
	}
	return value
}

func errorTypeLabel(err error) string {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return "HTTP"
	}
	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		return "Usage"
	}
	if IsNetworkError(err) {
		return "Network"
	}
	return "Other"
}

// endpointFromURL extracts a simplified host+path endpoint for metrics and
// logging.
func endpointFromURL(u *url.URL) string {
	if u == nil {
		return "unknown"
	}

	var builder strings.Builder
	builder.WriteString(u.Host)

	if u.Path != "" && u.Path != "/" {
		builder.WriteString(u.Path)
	} else {
		builder.WriteByte('/')
	}

	return builder.String()
}
