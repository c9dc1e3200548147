package semver

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNoPEP440 is returned when a version has no PEP 440 equivalent.
var ErrNoPEP440 = errors.New("no PEP 440 equivalent")

var pep440Labels = map[string]string{
	"a":       "a",
	"alpha":   "a",
	"b":       "b",
	"beta":    "b",
	"c":       "rc",
	"rc":      "rc",
	"pre":     "rc",
	"preview": "rc",
	"dev":     ".dev",
}

// PEP440Version renders v in the Python packaging grammar:
// 1.2.3-beta.2 → 1.2.3b2, 1.0.0-alpha → 1.0.0a0, 1.0.0-dev.3 → 1.0.0.dev3,
// 1.0.0+build.5 → 1.0.0+build.5. Prereleases other than alpha, beta, rc
// and dev fail with [ErrNoPEP440].
//
// The mapping is not injective: -a, -alpha and -alpha.0 all become a0, and
// -c, -pre and -preview become rc like -rc. Ordering is not fully preserved
// either: PEP 440 sorts 1.0.0.dev3 before 1.0.0a0, while semver sorts
// 1.0.0-dev.3 after 1.0.0-alpha. Two npm versions that collide here would
// produce wheels with the same version number.
func PEP440Version(v Version) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "%d.%d.%d", v.Major(), v.Minor(), v.Patch())

	if pre := v.Prerelease(); pre != "" {
		suffix, err := pep440Pre(pre)
		if err != nil {
			return "", fmt.Errorf("%s: %w", v, err)
		}
		b.WriteString(suffix)
	}

	if build := v.Build(); build != "" {
		local := strings.ToLower(strings.NewReplacer("-", ".", "_", ".").Replace(build))
		b.WriteString("+" + local)
	}
	return b.String(), nil
}

func pep440Pre(pre string) (string, error) {
	ids := strings.Split(strings.ToLower(pre), ".")

	// Split a fused label such as "beta2".
	head := ids[0]
	i := 0
	for i < len(head) && isLetter(head[i]) {
		i++
	}
	label, digits := head[:i], head[i:]

	tag, ok := pep440Labels[label]
	if !ok {
		return "", ErrNoPEP440
	}

	rest := ids[1:]
	if digits == "" && len(rest) > 0 {
		if _, err := strconv.ParseUint(rest[0], 10, 64); err == nil {
			digits, rest = rest[0], rest[1:]
		}
	}
	if len(rest) > 0 {
		return "", ErrNoPEP440
	}
	n := uint64(0)
	if digits != "" {
		var err error
		if n, err = strconv.ParseUint(digits, 10, 64); err != nil {
			return "", ErrNoPEP440
		}
	}
	return fmt.Sprintf("%s%d", tag, n), nil
}

// pep440Bound renders a range bound. The synthetic "-0" ceilings become the
// plain release, since PEP 440 exclusive upper bounds already exclude that
// release's prereleases.
func pep440Bound(v Version) (string, error) {
	if v.Prerelease() == "0" {
		return PEP440Version(v.Release())
	}
	return PEP440Version(v)
}

// PEP440 flattens the spec into a single PEP 440 specifier for wheel
// metadata. Alternatives are widened to their hull, since a version
// specifier cannot express disjunction. A spec matching nothing renders as
// "<0.0.0" and an unbounded one as ">=0.0.0".
func (s *Spec) PEP440() (string, error) {
	if s.tag != "" {
		return "", fmt.Errorf("unresolved tag %q: %w", s.tag, ErrNoPEP440)
	}

	var live []compSet
	for _, set := range s.sets {
		if !set.empty() {
			live = append(live, set)
		}
	}
	if len(live) == 0 {
		return "<0.0.0", nil
	}

	hull := live[0]
	for _, set := range live[1:] {
		hull = widen(hull, set)
	}

	if v, ok := hull.exact(); ok {
		pv, err := PEP440Version(v)
		if err != nil {
			return "", err
		}
		return "==" + pv, nil
	}

	var parts []string
	if hull.lo != nil {
		pv, err := pep440Bound(hull.lo.v)
		if err != nil {
			return "", err
		}
		op := ">"
		if hull.lo.inclusive {
			op = ">="
		}
		parts = append(parts, op+pv)
	}
	if hull.hi != nil {
		pv, err := pep440Bound(hull.hi.v)
		if err != nil {
			return "", err
		}
		op := "<"
		if hull.hi.inclusive {
			op = "<="
		}
		parts = append(parts, op+pv)
	}
	if len(parts) == 0 {
		return ">=0.0.0", nil
	}
	return strings.Join(parts, ","), nil
}

// widen returns the smallest interval containing both a and b.
func widen(a, b compSet) compSet {
	out := compSet{}
	if a.lo != nil && b.lo != nil {
		out.lo = a.lo
		if cmp := b.lo.v.Compare(a.lo.v); cmp < 0 || (cmp == 0 && b.lo.inclusive) {
			out.lo = b.lo
		}
	}
	if a.hi != nil && b.hi != nil {
		out.hi = a.hi
		if cmp := b.hi.v.Compare(a.hi.v); cmp > 0 || (cmp == 0 && b.hi.inclusive) {
			out.hi = b.hi
		}
	}
	return out
}
