package npm

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"
	"time"

	"github.com/matzehuels/npym/pkg/cache"
	"github.com/matzehuels/npym/pkg/errors"
	"github.com/matzehuels/npym/pkg/integrations"
)

// DefaultRegistry is the public npm registry.
const DefaultRegistry = "https://registry.npmjs.org"

// Client fetches packuments from an npm registry. Responses are cached as
// raw JSON and decoded on every call, so a cache entry written by an older
// binary is revalidated by the current decoder.
type Client struct {
	*integrations.Client
	baseURL string
	keyer   cache.Keyer
	refresh bool
}

// ClientOption configures a [Client].
type ClientOption func(*Client)

// WithRegistry points the client at a registry mirror.
func WithRegistry(url string) ClientOption {
	return func(c *Client) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithKeyer sets the cache key generator.
func WithKeyer(k cache.Keyer) ClientOption {
	return func(c *Client) {
		if k != nil {
			c.keyer = k
		}
	}
}

// WithRefresh bypasses cached responses; fresh responses are still stored.
func WithRefresh(refresh bool) ClientOption {
	return func(c *Client) { c.refresh = refresh }
}

// NewClient creates a registry client that caches packuments in c for ttl.
// A nil cache disables caching.
func NewClient(c cache.Cache, ttl time.Duration, opts ...ClientOption) *Client {
	cl := &Client{
		Client:  integrations.NewClient(c, "", ttl, map[string]string{"Accept": "application/json"}),
		baseURL: DefaultRegistry,
		keyer:   cache.NewDefaultKeyer(),
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl
}

// Registry returns the registry base URL.
func (c *Client) Registry() string { return c.baseURL }

// Packument fetches and validates the registry document for name.
// A missing package is a METADATA_FETCH_FAILED error wrapping
// [integrations.ErrNotFound]; transport failures wrap
// [integrations.ErrNetwork].
func (c *Client) Packument(ctx context.Context, name PackageName) (*Packument, error) {
	var raw json.RawMessage
	key := c.keyer.HTTPKey("npm", name.String())
	err := c.Cached(ctx, key, c.refresh, &raw, func() error {
		data, err := c.GetBytes(ctx, c.baseURL+"/"+name.PathEscape())
		if err != nil {
			return err
		}
		if !json.Valid(data) {
			return stderrors.New("registry returned invalid JSON")
		}
		raw = data
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if stderrors.Is(err, integrations.ErrNotFound) {
			return nil, errors.Wrap(errors.ErrCodeMetadataFetchFailed, err, "package %s not found in registry", name)
		}
		return nil, errors.Wrap(errors.ErrCodeMetadataFetchFailed, err, "fetch metadata for %s", name)
	}
	return DecodePackument(name, raw)
}
