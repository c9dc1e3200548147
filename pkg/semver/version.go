package semver

import (
	"fmt"
	"slices"
	"strings"

	msemver "github.com/Masterminds/semver/v3"
)

// Version is an immutable semantic version. The zero value is not a valid
// version; use [ParseVersion] or [NewVersion].
type Version struct {
	sv *msemver.Version
}

// ParseVersion parses a strict semantic version. A leading "v" or "=" and
// surrounding whitespace are accepted, as npm does for published versions.
func ParseVersion(s string) (Version, error) {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimPrefix(trimmed, "=")
	trimmed = strings.TrimPrefix(strings.TrimSpace(trimmed), "v")
	sv, err := msemver.StrictNewVersion(trimmed)
	if err != nil {
		return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
	}
	return Version{sv: sv}, nil
}

// MustParseVersion is like [ParseVersion] but panics on error.
// Intended for tests and package-level constants.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// NewVersion builds a version from its components.
func NewVersion(major, minor, patch uint64, pre, build string) Version {
	return Version{sv: msemver.New(major, minor, patch, pre, build)}
}

func (v Version) Major() uint64      { return v.sv.Major() }
func (v Version) Minor() uint64      { return v.sv.Minor() }
func (v Version) Patch() uint64      { return v.sv.Patch() }
func (v Version) Prerelease() string { return v.sv.Prerelease() }
func (v Version) Build() string      { return v.sv.Metadata() }

// IsZero reports whether v is the zero Version.
func (v Version) IsZero() bool { return v.sv == nil }

// IsPrerelease reports whether v carries a prerelease tag.
func (v Version) IsPrerelease() bool { return v.sv != nil && v.sv.Prerelease() != "" }

// Release returns v without prerelease and build metadata.
func (v Version) Release() Version {
	return NewVersion(v.Major(), v.Minor(), v.Patch(), "", "")
}

// sameTuple reports whether v and o share major, minor and patch.
func (v Version) sameTuple(o Version) bool {
	return v.Major() == o.Major() && v.Minor() == o.Minor() && v.Patch() == o.Patch()
}

// Compare returns -1, 0 or 1 per semver precedence. Build metadata is ignored.
func (v Version) Compare(o Version) int {
	return v.sv.Compare(o.sv)
}

// Less reports whether v sorts before o.
func (v Version) Less(o Version) bool { return v.Compare(o) < 0 }

// Equal reports whether v and o have the same precedence.
func (v Version) Equal(o Version) bool { return v.Compare(o) == 0 }

// String returns the canonical form, e.g. "1.2.3-beta.1+build.5".
func (v Version) String() string {
	if v.sv == nil {
		return ""
	}
	return v.sv.String()
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Sort orders versions ascending by precedence. Versions with equal
// precedence are ordered by their string form so the result is stable.
func Sort(vs []Version) {
	slices.SortFunc(vs, func(a, b Version) int {
		if c := a.Compare(b); c != 0 {
			return c
		}
		return strings.Compare(a.String(), b.String())
	})
}
