package fetchx

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// WithHTTPClient sets the underlying transport client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) {
		c.httpClient = client
	}
}

// WithPrefixURL sets the base URL targets are resolved against.
func WithPrefixURL(prefix string) Option {
	return func(c *config) {
		c.prefixURL = prefix
	}
}

// WithHeader merges a single header; it replaces any existing value for the
// same case-insensitive key.
func WithHeader(key, value string) Option {
	return func(c *config) {
		c.headers = mergeHeaders(c.headers, http.Header{key: {value}})
	}
}

// WithHeaders merges a header map on top of the current headers; each key
// replaces the existing entry for the same case-insensitive key.
func WithHeaders(h http.Header) Option {
	return func(c *config) {
		c.headers = mergeHeaders(c.headers, h)
	}
}

// WithHeaderPairs merges headers given as [key, value...] tuples; tuples
// with several values are joined with ", ".
func WithHeaderPairs(pairs ...[]string) Option {
	return func(c *config) {
		c.headers = mergeHeaders(c.headers, headerFromPairs(pairs))
	}
}

// WithSearchParams replaces the resolved URL's whole query string.
func WithSearchParams(params url.Values) Option {
	return func(c *config) {
		c.searchParams = params
	}
}

// WithBody sets the raw request body. The reader is drained here, when the
// option is applied, so the buffered bytes replay on every call and attempt
// even when set as a client default. Mutually exclusive with WithJSONBody.
func WithBody(body io.Reader) Option {
	return func(c *config) {
		if body == nil {
			c.body, c.bodySet, c.bodyErr = nil, false, nil
			return
		}
		data, err := io.ReadAll(body)
		c.body = data
		c.bodySet = true
		c.bodyErr = err
	}
}

// WithBodyString sets the raw request body from a string.
func WithBodyString(body string) Option {
	return func(c *config) {
		c.body = []byte(body)
		c.bodySet = true
		c.bodyErr = nil
	}
}

// WithJSONBody serializes v as the request body and sets the JSON content
// type unless one is already present. Mutually exclusive with WithBody.
func WithJSONBody(v any) Option {
	return func(c *config) {
		c.jsonBody = v
		c.hasJSONBody = true
	}
}

// WithJSON toggles JSON mode: responses are decoded and returned via
// Result.JSON, and HTTP error bodies are captured best effort.
func WithJSON(enabled bool) Option {
	return func(c *config) {
		c.json = enabled
	}
}

// WithTimeout bounds one logical call end to end: the deadline starts at
// call time and covers every attempt and inter-attempt wait. Zero disables
// the per-call deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithCookieJar attaches stored cookies to every call and persists
// Set-Cookie values from successful responses. The jar must be safe for
// concurrent use.
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *config) {
		c.jar = jar
	}
}

// WithRetries sets the retry ceiling: a call makes at most n+1 attempts.
func WithRetries(n int) Option {
	return func(c *config) {
		c.retry.Limit = n
	}
}

// WithRetryStatusCodes replaces the set of retryable status codes.
func WithRetryStatusCodes(codes ...int) Option {
	return func(c *config) {
		c.retry.StatusCodes = codes
	}
}

// WithRetryNetworkErrors toggles retrying transport/connectivity failures.
func WithRetryNetworkErrors(enabled bool) Option {
	return func(c *config) {
		c.retry.NetworkErrors = enabled
	}
}

// WithMinRetryWait sets the floor for the inter-attempt wait.
func WithMinRetryWait(d time.Duration) Option {
	return func(c *config) {
		c.retry.MinWait = d
	}
}

// WithMaxRetryWait caps the inter-attempt wait.
func WithMaxRetryWait(d time.Duration) Option {
	return func(c *config) {
		c.retry.MaxWait = d
	}
}

// WithBackoffMultiplier sets the backoff growth factor.
func WithBackoffMultiplier(f float64) Option {
	return func(c *config) {
		c.retry.Multiplier = f
	}
}

// WithJitter sets the jitter fraction for backoff (0.0 to 1.0).
func WithJitter(f float64) Option {
	return func(c *config) {
		if f < 0 {
			f = 0
		}
		if f > 1 {
			f = 1
		}
		c.retry.Jitter = f
	}
}

// WithBackoffStrategy selects the inter-attempt wait growth algorithm.
func WithBackoffStrategy(s BackoffStrategy) Option {
	return func(c *config) {
		c.retry.Strategy = s
	}
}

// WithMaxRetryAfter sets the largest server Retry-After the controller will
// honor; a larger value vetoes the retry.
func WithMaxRetryAfter(d time.Duration) Option {
	return func(c *config) {
		c.retry.MaxRetryAfter = d
	}
}

// WithShouldRetry sets the predicate for failures the built-in rules did not
// already accept: hook failures, opaque errors, and network errors when
// automatic network retry is disabled.
func WithShouldRetry(fn RetryPredicate) Option {
	return func(c *config) {
		c.retry.ShouldRetry = fn
	}
}

// WithOnFailedAttempt sets the failed-attempt observer.
func WithOnFailedAttempt(fn AttemptObserver) Option {
	return func(c *config) {
		c.retry.OnFailedAttempt = fn
	}
}

// WithBeforeRequest sets the pre-request hook, invoked exactly once per
// logical call after option resolution.
func WithBeforeRequest(hook BeforeRequestHook) Option {
	return func(c *config) {
		c.beforeRequest = hook
	}
}

// WithAfterResponse sets the post-response hook, invoked after every
// attempt's transport send.
func WithAfterResponse(hook AfterResponseHook) Option {
	return func(c *config) {
		c.afterResponse = hook
	}
}

// WithMiddleware appends middleware around each attempt's send.
func WithMiddleware(middleware ...Middleware) Option {
	return func(c *config) {
		c.middleware = append(c.middleware, middleware...)
	}
}

// WithRateLimit throttles attempts with a shared token bucket.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *config) {
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithRateLimiter sets a caller-managed rate limiter, shared across every
// client derived from this configuration.
func WithRateLimiter(limiter *rate.Limiter) Option {
	return func(c *config) {
		c.limiter = limiter
	}
}

// WithCircuitBreaker wraps each attempt's transport send in a circuit
// breaker. An open breaker fails attempts with gobreaker.ErrOpenState,
// which only a custom ShouldRetry predicate may retry.
func WithCircuitBreaker(settings gobreaker.Settings) Option {
	return func(c *config) {
		c.breaker = gobreaker.NewCircuitBreaker(settings)
	}
}

// WithMetrics enables Prometheus metrics collection on the default
// registerer.
func WithMetrics() Option {
	return func(c *config) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector.
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *config) {
		c.metrics = collector
	}
}

// WithDebug enables debug logging with default configuration.
func WithDebug() Option {
	return func(c *config) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
	}
}

// WithDebugConfig sets custom debug configuration.
func WithDebugConfig(debug *DebugConfig) Option {
	return func(c *config) {
		c.debug = debug
	}
}

// WithLogger sets a custom logger for debug output.
func WithLogger(logger Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithSimpleLogger enables debug logging with a console logger.
func WithSimpleLogger() Option {
	return func(c *config) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
		c.logger = NewSimpleLogger()
	}
}

// WithRequestIDGenerator sets a custom function for generating request IDs.
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *config) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.RequestIDGen = gen
	}
}

// validate checks the resolved configuration and collects every problem
// into one usage error.
func (c *config) validate() error {
	var problems []string

	problems = append(problems, c.validateRetryConfig()...)
	problems = append(problems, c.validateTransportConfig()...)
	problems = append(problems, c.validateURLConfig()...)
	problems = append(problems, c.validateMiddlewareConfig()...)
	problems = append(problems, c.validateDebugConfig()...)

	if len(problems) > 0 {
		return &UsageError{
			Message: "configuration validation failed",
			Cause:   fmt.Errorf("validation errors: %v", problems),
		}
	}
	return nil
}

func (c *config) validateRetryConfig() []string {
	var problems []string

	if c.retry.Limit < 0 {
		problems = append(problems, "retries must be non-negative")
	}
	if c.retry.MinWait < 0 {
		problems = append(problems, "minimum retry wait must be non-negative")
	}
	if c.retry.MaxWait < c.retry.MinWait {
		problems = append(problems, "maximum retry wait must be greater than or equal to the minimum")
	}
	if c.retry.Multiplier <= 0 {
		problems = append(problems, "backoff multiplier must be positive")
	}
	if c.retry.Jitter < 0 || c.retry.Jitter > 1 {
		problems = append(problems, "jitter must be between 0 and 1")
	}
	if c.retry.MaxRetryAfter < 0 {
		problems = append(problems, "max retry-after must be non-negative")
	}
	if c.retry.Limit > 100 {
		problems = append(problems, "retries > 100 may cause excessive resource usage")
	}

	return problems
}

func (c *config) validateTransportConfig() []string {
	var problems []string

	if c.httpClient == nil {
		problems = append(problems, "HTTP client cannot be nil")
	}
	if c.timeout < 0 {
		problems = append(problems, "timeout must be non-negative")
	}
	if c.timeout > 10*time.Minute {
		problems = append(problems, "timeout > 10m may cause calls to hang for too long")
	}

	return problems
}

func (c *config) validateURLConfig() []string {
	var problems []string

	if c.prefixURL != "" {
		u, err := url.Parse(c.prefixURL)
		if err != nil || !u.IsAbs() {
			problems = append(problems, "prefix URL must be a valid absolute URL")
		}
	}

	return problems
}

func (c *config) validateMiddlewareConfig() []string {
	var problems []string

	for i, middleware := range c.middleware {
		if middleware == nil {
			problems = append(problems, fmt.Sprintf("middleware[%d] cannot be nil", i))
		}
	}

	return problems
}

func (c *config) validateDebugConfig() []string {
	var problems []string

	if c.debug != nil && c.debug.Enabled {
		if c.debug.RequestIDGen == nil {
			problems = append(problems, "debug RequestIDGen must be set when debug is enabled")
		}
		if c.logger == nil {
			problems = append(problems, "logger must be set when debug is enabled")
		}
	}

	return problems
}
