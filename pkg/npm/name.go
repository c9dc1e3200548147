package npm

import (
	"net/url"
	"strings"

	"github.com/matzehuels/npym/pkg/errors"
)

// PackageName is a validated npm package name, optionally scoped
// ("@scope/name"). The zero value is not a valid name.
type PackageName struct {
	scope string
	name  string
}

// ParseName validates s against the registry's naming rules for new
// packages: at most 214 characters, lowercase, URL-safe, no leading "." or
// "_". Violations are INVALID_PACKAGE errors.
func ParseName(s string) (PackageName, error) {
	if err := errors.ValidateNpmPackageName(s); err != nil {
		return PackageName{}, err
	}
	return splitName(s), nil
}

// MustParseName is like [ParseName] but panics on error.
func MustParseName(s string) PackageName {
	n, err := ParseName(s)
	if err != nil {
		panic(err)
	}
	return n
}

// parseLegacyName accepts names as they appear inside registry documents.
// Packages published before the lowercase rule (e.g. "JSONStream") are
// still depended upon, so case is not enforced here.
func parseLegacyName(s string) (PackageName, error) {
	if err := errors.ValidateNpmPackageName(strings.ToLower(s)); err != nil {
		return PackageName{}, err
	}
	return splitName(s), nil
}

func splitName(s string) PackageName {
	if rest, ok := strings.CutPrefix(s, "@"); ok {
		scope, name, _ := strings.Cut(rest, "/")
		return PackageName{scope: scope, name: name}
	}
	return PackageName{name: s}
}

// String returns the full name, including the "@scope/" prefix.
func (n PackageName) String() string {
	if n.scope == "" {
		return n.name
	}
	return "@" + n.scope + "/" + n.name
}

// Scope returns the scope without "@", or "" for unscoped names.
func (n PackageName) Scope() string { return n.scope }

// Bare returns the name without its scope.
func (n PackageName) Bare() string { return n.name }

// IsZero reports whether n is the zero value.
func (n PackageName) IsZero() bool { return n.name == "" }

// PathEscape returns the name as a single registry URL path segment.
// Scoped names keep the "@" and escape the slash: "@types%2fnode".
func (n PackageName) PathEscape() string {
	if n.scope == "" {
		return url.PathEscape(n.name)
	}
	return "@" + url.PathEscape(n.scope) + "%2f" + url.PathEscape(n.name)
}

// Compare orders names by their full string form.
func (n PackageName) Compare(o PackageName) int {
	return strings.Compare(n.String(), o.String())
}

// MarshalText implements encoding.TextMarshaler.
func (n PackageName) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using the lenient
// registry rules.
func (n *PackageName) UnmarshalText(b []byte) error {
	p, err := parseLegacyName(string(b))
	if err != nil {
		return err
	}
	*n = p
	return nil
}
