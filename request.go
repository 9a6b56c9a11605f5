package fetchx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Request is the mutable per-call context handed to hooks. It is built once
// per logical call and shared by every attempt of that call, so a hook
// rewrite (e.g. a refreshed auth header) carries across attempt boundaries.
// The client's own defaults are never touched.
type Request struct {
	// Method is the HTTP method for every attempt.
	Method string
	// URL is the fully resolved target.
	URL *url.URL
	// Header holds the final merged headers.
	Header http.Header
	// Body is the buffered request body; every attempt replays it from the
	// start. Empty means no body.
	Body []byte

	ctx context.Context
}

// Context returns the composed cancellation context for the logical call.
func (r *Request) Context() context.Context {
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// resolveRequest turns a target plus resolved configuration into the
// per-call request context. Step order matters: URL resolution, query
// replacement, JSON body serialization, cookie attachment, timeout
// composition, then the one-shot BeforeRequest hook.
func (c *config) resolveRequest(ctx context.Context, method, target string) (*Request, context.CancelFunc, error) {
	u, err := c.resolveURL(target)
	if err != nil {
		return nil, nil, err
	}

	if len(c.searchParams) > 0 {
		u.RawQuery = c.searchParams.Encode()
	}

	header := mergeHeaders(nil, c.headers)

	body, err := c.resolveBody(header)
	if err != nil {
		return nil, nil, err
	}

	if c.jar != nil {
		if cookies := c.jar.Cookies(u); len(cookies) > 0 {
			pairs := make([]string, 0, len(cookies))
			for _, cookie := range cookies {
				pairs = append(pairs, cookie.String())
			}
			header = mergeHeaders(header, http.Header{"Cookie": {strings.Join(pairs, "; ")}})
		}
	}

	cancel := context.CancelFunc(func() {})
	if c.timeout > 0 {
		// One timeout per logical call, ticking from here across all
		// attempts and inter-attempt waits.
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
	}

	req := &Request{
		Method: method,
		URL:    u,
		Header: header,
		Body:   body,
		ctx:    ctx,
	}

	if c.beforeRequest != nil {
		if err := c.beforeRequest(req); err != nil {
			cancel()
			return nil, nil, err
		}
	}

	return req, cancel, nil
}

// resolveURL applies the prefix URL join rules: one leading path separator
// is stripped from the target, an empty target resolves to the prefix
// itself, and the join always has exactly one separator. Without a prefix
// the target must already be absolute.
func (c *config) resolveURL(target string) (*url.URL, error) {
	if c.prefixURL == "" {
		u, err := url.Parse(target)
		if err != nil {
			return nil, &UsageError{Message: "invalid target URL", Cause: err}
		}
		if !u.IsAbs() {
			return nil, &UsageError{Message: "target must be an absolute URL when no prefix URL is configured"}
		}
		return u, nil
	}

	target = strings.TrimPrefix(target, "/")
	joined := c.prefixURL
	if target != "" {
		joined = strings.TrimSuffix(c.prefixURL, "/") + "/" + target
	}
	u, err := url.Parse(joined)
	if err != nil {
		return nil, &UsageError{Message: "invalid prefix URL join", Cause: err}
	}
	return u, nil
}

// resolveBody yields the buffered request body for this call. A JSON body is
// serialized here and its content type set only when absent; raw body and
// JSON body together are a usage error caught before any send.
func (c *config) resolveBody(header http.Header) ([]byte, error) {
	if c.hasJSONBody {
		if c.bodySet {
			return nil, &UsageError{Message: "json body and raw body are mutually exclusive"}
		}
		body, err := json.Marshal(c.jsonBody)
		if err != nil {
			return nil, &UsageError{Message: "marshaling json body", Cause: err}
		}
		if header.Get("Content-Type") == "" {
			header.Set("Content-Type", "application/json")
		}
		return body, nil
	}

	if !c.bodySet {
		return nil, nil
	}
	if c.bodyErr != nil {
		return nil, &UsageError{Message: "reading request body", Cause: c.bodyErr}
	}
	return c.body, nil
}

// httpRequest materializes one attempt's immutable *http.Request from the
// current request context state.
func (r *Request) httpRequest() (*http.Request, error) {
	var body io.Reader
	if len(r.Body) > 0 {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(r.Context(), r.Method, r.URL.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header = mergeHeaders(nil, r.Header)
	return req, nil
}
