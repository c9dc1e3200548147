package semver

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownTag is returned by [Spec.ResolveTag] when the tag is not
// published in the package's dist-tags.
var ErrUnknownTag = errors.New("unknown dist-tag")

// Kind classifies a parsed spec.
type Kind int

const (
	KindExact Kind = iota // a single version
	KindRange             // one comparator set
	KindSet               // alternatives joined by ||
	KindTag               // a dist-tag reference such as "latest"
)

func (k Kind) String() string {
	switch k {
	case KindExact:
		return "exact"
	case KindRange:
		return "range"
	case KindSet:
		return "set"
	case KindTag:
		return "tag"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Spec is a parsed version constraint: a disjunction of comparator sets, or
// an unresolved tag. Specs are immutable.
type Spec struct {
	raw        string
	tag        string
	sets       []compSet
	includePre bool
}

// bound is one end of an interval.
type bound struct {
	v         Version
	inclusive bool
}

// compSet is a conjunction of comparators, kept as an interval. A nil bound
// is unbounded. pre lists the prerelease versions named by the comparators,
// which is what allows prerelease candidates to match.
//
// An intersection keeps each operand's allowance as a separate gate: a
// prerelease candidate must share its tuple with some version in every gate.
type compSet struct {
	lo, hi *bound
	pre    []Version
	gates  [][]Version
}

func (c *compSet) lower(v Version, inclusive bool) {
	c.notePre(v)
	if c.lo == nil {
		c.lo = &bound{v, inclusive}
		return
	}
	switch cmp := v.Compare(c.lo.v); {
	case cmp > 0:
		c.lo = &bound{v, inclusive}
	case cmp == 0 && !inclusive:
		c.lo = &bound{v, false}
	}
}

func (c *compSet) upper(v Version, inclusive bool) {
	c.notePre(v)
	if c.hi == nil {
		c.hi = &bound{v, inclusive}
		return
	}
	switch cmp := v.Compare(c.hi.v); {
	case cmp < 0:
		c.hi = &bound{v, inclusive}
	case cmp == 0 && !inclusive:
		c.hi = &bound{v, false}
	}
}

func (c *compSet) notePre(v Version) {
	if v.IsPrerelease() {
		c.pre = append(c.pre, v)
	}
}

func (c compSet) empty() bool {
	if c.hi != nil && !c.hi.inclusive && isMinimum(c.hi.v) {
		return true
	}
	if c.lo == nil || c.hi == nil {
		return false
	}
	cmp := c.lo.v.Compare(c.hi.v)
	return cmp > 0 || (cmp == 0 && !(c.lo.inclusive && c.hi.inclusive))
}

// isMinimum reports whether v is 0.0.0-0, the lowest possible version.
func isMinimum(v Version) bool {
	return v.Major() == 0 && v.Minor() == 0 && v.Patch() == 0 && v.Prerelease() == "0"
}

func (c compSet) exact() (Version, bool) {
	if c.lo != nil && c.hi != nil && c.lo.inclusive && c.hi.inclusive && c.lo.v.Equal(c.hi.v) {
		return c.lo.v, true
	}
	return Version{}, false
}

func (c compSet) contains(v Version) bool {
	if c.lo != nil {
		cmp := v.Compare(c.lo.v)
		if cmp < 0 || (cmp == 0 && !c.lo.inclusive) {
			return false
		}
	}
	if c.hi != nil {
		cmp := v.Compare(c.hi.v)
		if cmp > 0 || (cmp == 0 && !c.hi.inclusive) {
			return false
		}
	}
	return true
}

func (c compSet) matches(v Version, includePre bool) bool {
	if !c.contains(v) {
		return false
	}
	if !v.IsPrerelease() || includePre {
		return true
	}
	for _, gate := range c.preGates() {
		if !sharesTuple(gate, v) {
			return false
		}
	}
	return true
}

func (c compSet) preGates() [][]Version {
	if c.gates != nil {
		return c.gates
	}
	return [][]Version{c.pre}
}

func sharesTuple(vs []Version, v Version) bool {
	for _, p := range vs {
		if p.sameTuple(v) {
			return true
		}
	}
	return false
}

// intersect returns the conjunction of c and o. An operand whose spec
// already admits every prerelease (cAny, oAny) contributes no gate.
func (c compSet) intersect(o compSet, cAny, oAny bool) compSet {
	out := compSet{gates: [][]Version{}}
	if c.lo != nil {
		out.lo = &bound{c.lo.v, c.lo.inclusive}
	}
	if c.hi != nil {
		out.hi = &bound{c.hi.v, c.hi.inclusive}
	}
	if o.lo != nil {
		out.lower(o.lo.v, o.lo.inclusive)
	}
	if o.hi != nil {
		out.upper(o.hi.v, o.hi.inclusive)
	}
	if !cAny {
		out.gates = append(out.gates, c.preGates()...)
	}
	if !oAny {
		out.gates = append(out.gates, o.preGates()...)
	}
	return out
}

func (c compSet) String() string {
	if c.empty() {
		return "<0.0.0-0"
	}
	if v, ok := c.exact(); ok {
		return v.String()
	}
	var parts []string
	if c.lo != nil {
		op := ">"
		if c.lo.inclusive {
			op = ">="
		}
		parts = append(parts, op+c.lo.v.String())
	}
	if c.hi != nil {
		op := "<"
		if c.hi.inclusive {
			op = "<="
		}
		parts = append(parts, op+c.hi.v.String())
	}
	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, " ")
}

// Any returns a spec matching every release version.
func Any() *Spec {
	return &Spec{raw: "*", sets: []compSet{{}}}
}

// Exact returns a spec matching only v.
func Exact(v Version) *Spec {
	set := compSet{}
	set.lower(v, true)
	set.upper(v, true)
	return &Spec{raw: v.String(), sets: []compSet{set}}
}

// Kind reports the shape of the spec.
func (s *Spec) Kind() Kind {
	switch {
	case s.tag != "":
		return KindTag
	case len(s.sets) > 1:
		return KindSet
	}
	if _, ok := s.sets[0].exact(); ok {
		return KindExact
	}
	return KindRange
}

// Raw returns the expression the spec was parsed from.
func (s *Spec) Raw() string { return s.raw }

// Tag returns the dist-tag name for a tag spec, or "".
func (s *Spec) Tag() string { return s.tag }

// Version returns the single version of an exact spec.
func (s *Spec) Version() (Version, bool) {
	if s.tag != "" || len(s.sets) != 1 {
		return Version{}, false
	}
	return s.sets[0].exact()
}

// Matches reports whether v satisfies the spec. Unresolved tags match nothing.
func (s *Spec) Matches(v Version) bool {
	if v.IsZero() {
		return false
	}
	for _, set := range s.sets {
		if set.matches(v, s.includePre) {
			return true
		}
	}
	return false
}

// MaxSatisfying returns the greatest candidate that satisfies the spec.
// Candidates need not be sorted.
func (s *Spec) MaxSatisfying(candidates []Version) (Version, bool) {
	var best Version
	found := false
	for _, v := range candidates {
		if !s.Matches(v) {
			continue
		}
		if !found || v.Compare(best) > 0 || (v.Equal(best) && v.String() > best.String()) {
			best = v
			found = true
		}
	}
	return best, found
}

// Satisfiable reports whether some version could satisfy the spec, ignoring
// which versions are actually published.
func (s *Spec) Satisfiable() bool {
	for _, set := range s.sets {
		if !set.empty() {
			return true
		}
	}
	return false
}

// Intersect returns the conjunction of s and o. Tag specs must be resolved
// first; an unresolved tag yields a spec that matches nothing.
func (s *Spec) Intersect(o *Spec) *Spec {
	out := &Spec{
		raw:        s.raw + " && " + o.raw,
		includePre: s.includePre && o.includePre,
	}
	if s.tag != "" || o.tag != "" {
		set := compSet{}
		nothing(&set)
		out.sets = []compSet{set}
		return out
	}
	for _, a := range s.sets {
		for _, b := range o.sets {
			if set := a.intersect(b, s.includePre, o.includePre); !set.empty() {
				out.sets = append(out.sets, set)
			}
		}
	}
	if len(out.sets) == 0 {
		set := compSet{}
		nothing(&set)
		out.sets = []compSet{set}
	}
	return out
}

// ResolveTag turns a tag spec into an exact spec using the package's
// dist-tags. Non-tag specs are returned unchanged.
func (s *Spec) ResolveTag(distTags map[string]string) (*Spec, error) {
	if s.tag == "" {
		return s, nil
	}
	raw, ok := distTags[s.tag]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTag, s.tag)
	}
	v, err := ParseVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("dist-tag %s: %w", s.tag, err)
	}
	out := Exact(v)
	out.raw = s.raw
	out.includePre = true
	return out, nil
}

// String returns the canonical comparator form, e.g. ">=1.2.3 <2.0.0-0".
func (s *Spec) String() string {
	if s.tag != "" {
		return s.tag
	}
	parts := make([]string, len(s.sets))
	for i, set := range s.sets {
		parts[i] = set.String()
	}
	return strings.Join(parts, " || ")
}
