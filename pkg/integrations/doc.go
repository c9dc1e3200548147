// Package integrations provides the shared HTTP client used to talk to the
// npm registry.
//
// [Client] bundles the concerns every registry request needs:
//
//   - response caching via [cache.Cache], keyed under a per-client prefix
//   - retry with exponential backoff for transient failures (see [httputil.Retry])
//   - status classification into [ErrNotFound], [ErrRateLimited] and [ErrNetwork]
//   - HTTP and cache events reported through package observability
//
// Registry-specific decoding lives with the callers, e.g. package npm.
//
// [cache.Cache]: github.com/matzehuels/npym/pkg/cache.Cache
// [httputil.Retry]: github.com/matzehuels/npym/pkg/httputil.Retry
package integrations
