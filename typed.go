package fetchx

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
)

// DoJSON runs one logical call and decodes the response body into v. The
// usual retry, hook and cookie semantics apply. A nil v drains and discards
// the body.
func (c *Client) DoJSON(ctx context.Context, method, target string, v any, options ...Option) error {
	// Decoding happens here; generic JSON mode would only buffer the body a
	// second time.
	options = append(options, WithJSON(false))
	res, err := c.Do(ctx, method, target, options...)
	if err != nil {
		return err
	}

	resp := res.Response
	defer resp.Body.Close()

	if v == nil || resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusResetContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

// GetJSON performs a GET call and decodes the response body into v.
func (c *Client) GetJSON(ctx context.Context, target string, v any, options ...Option) error {
	return c.DoJSON(ctx, http.MethodGet, target, v, options...)
}

// PostJSON performs a POST call with body serialized as JSON and decodes
// the response body into v.
func (c *Client) PostJSON(ctx context.Context, target string, body, v any, options ...Option) error {
	options = append(options, WithJSONBody(body))
	return c.DoJSON(ctx, http.MethodPost, target, v, options...)
}

// PutJSON performs a PUT call with body serialized as JSON and decodes the
// response body into v.
func (c *Client) PutJSON(ctx context.Context, target string, body, v any, options ...Option) error {
	options = append(options, WithJSONBody(body))
	return c.DoJSON(ctx, http.MethodPut, target, v, options...)
}
