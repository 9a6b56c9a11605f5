// Package fetchx provides an ergonomic HTTP request wrapper with composable
// reliability and convenience primitives:
//
//   - Retries driven by a per-call policy (status codes, network errors,
//     Retry-After awareness, custom predicates and failed-attempt observers)
//   - Exponential backoff + jitter between attempts
//   - Pre-request / post-response hooks that can rewrite call state
//   - Cookie jar integration around every call
//   - Prefix URL resolution, query-parameter application and JSON body helpers
//   - Client derivation (Extend) with copy-on-derive option inheritance
//   - Middleware chain for cross-cutting concerns (auth, logging, tracing, etc.)
//   - Optional rate limiting and circuit breaking around the transport
//   - Prometheus metrics and lightweight structured debug logging
//
// Design goals:
//   - Small surface area: functional options configure everything
//   - One merge mechanism: per-call options and Extend both apply options to
//     a copy of the resolved defaults
//   - Safe concurrent use of a single *Client instance
//   - Errors keep their identity: exhausted retries return the original failure
//
// Typical usage:
//
//	client := fetchx.New(
//	    fetchx.WithPrefixURL("https://api.example.com"),
//	    fetchx.WithRetries(2),
//	    fetchx.WithJSON(true),
//	)
//	res, err := client.Get(ctx, "users/42")
//
// Derive a specialized client without touching the parent:
//
//	authed := client.Extend(fetchx.WithHeader("Authorization", "Bearer "+token))
//
// The library avoids opinionated logging: provide a Logger (e.g. via
// WithSimpleLogger) + enable debug flags selectively (WithDebug /
// WithDebugConfig) for insight without noise.
package fetchx
