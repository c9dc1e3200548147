package cache

// Keyer generates cache keys.
type Keyer interface {
	// HTTPKey identifies a cached HTTP response, e.g. a packument.
	HTTPKey(namespace, key string) string

	// TarballKey identifies a package tarball by its integrity string.
	TarballKey(integrity string) string
}

// DefaultKeyer produces unprefixed keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// HTTPKey returns "http:<namespace>:<key>".
func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

// TarballKey hashes the integrity string so that keys stay short and
// filesystem-safe whatever the algorithm.
func (DefaultKeyer) TarballKey(integrity string) string {
	return hashKey("tarball", integrity)
}

// ScopedKeyer wraps a Keyer with a prefix, isolating deployments that share
// one backend. The CLI scopes keys by registry host so that a mirror and the
// public registry never serve each other's metadata.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// HTTPKey generates a prefixed key for HTTP response caching.
func (k *ScopedKeyer) HTTPKey(namespace, key string) string {
	return k.prefix + k.inner.HTTPKey(namespace, key)
}

// TarballKey generates a prefixed key for tarball caching.
func (k *ScopedKeyer) TarballKey(integrity string) string {
	return k.prefix + k.inner.TarballKey(integrity)
}
