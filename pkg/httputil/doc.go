// Package httputil provides HTTP helpers shared by the registry client.
//
// [Retry] wraps a request with automatic retry for transient failures:
//
//   - network errors
//   - 5xx server errors
//   - 429 rate limit responses, honouring Retry-After
//
// Only errors wrapped in [RetryableError] are retried; everything else is
// returned on the first attempt. Backoff doubles after each failure:
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    resp, err := http.Get(url)
//	    if err != nil {
//	        return &httputil.RetryableError{Err: err}
//	    }
//	    ...
//	})
//
// Response caching lives in package cache.
package httputil
