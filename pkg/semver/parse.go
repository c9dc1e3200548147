package semver

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matzehuels/npym/pkg/errors"
)

// Tags that may stand in for a version range. Any other bare word is a
// syntax error.
var knownTags = map[string]bool{
	"latest": true,
	"next":   true,
}

// SyntaxError describes a malformed range expression.
type SyntaxError struct {
	Input    string // Full expression
	Offset   int    // Byte offset of the offending fragment
	Fragment string // Offending substring
	Reason   string
}

func (e *SyntaxError) Error() string {
	if e.Fragment == "" {
		return fmt.Sprintf("%s in %q at offset %d", e.Reason, e.Input, e.Offset)
	}
	return fmt.Sprintf("%s %q in %q at offset %d", e.Reason, e.Fragment, e.Input, e.Offset)
}

func syntaxError(input string, offset int, reason string) error {
	frag := ""
	if offset < len(input) {
		rest := strings.TrimLeft(input[offset:], " \t\r\n")
		offset = len(input) - len(rest)
		frag = fragment(rest)
	}
	return errors.Wrap(errors.ErrCodeInvalidRangeSyntax,
		&SyntaxError{Input: input, Offset: offset, Fragment: frag, Reason: reason},
		"invalid range %q", input)
}

// fragment returns the leading word of rest: a run of pipes, or everything
// up to the next whitespace or pipe.
func fragment(rest string) string {
	end := len(rest)
	if i := strings.IndexAny(rest, " \t\r\n"); i >= 0 {
		end = i
	}
	if end > 0 && rest[0] == '|' {
		j := 0
		for j < end && rest[j] == '|' {
			j++
		}
		return rest[:j]
	}
	if i := strings.IndexByte(rest[:end], '|'); i > 0 {
		end = i
	}
	return rest[:end]
}

// Option configures parsing.
type Option func(*Spec)

// IncludePrerelease lets prerelease versions match any range that contains
// them, not only ranges naming a prerelease of the same tuple.
func IncludePrerelease() Option {
	return func(s *Spec) { s.includePre = true }
}

// ParseSpec parses an npm range expression. Malformed input, the empty
// string and unknown tags fail with an INVALID_RANGE_SYNTAX error carrying a
// [*SyntaxError].
func ParseSpec(expr string, opts ...Option) (*Spec, error) {
	s := &Spec{raw: expr}
	for _, opt := range opts {
		opt(s)
	}

	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return nil, syntaxError(expr, len(expr), "empty range")
	}

	toks, err := lex(expr)
	if err != nil {
		return nil, err
	}

	if len(toks) == 1 && toks[0].code == tagToken {
		if !knownTags[toks[0].text] {
			return nil, syntaxError(expr, toks[0].offset, "unknown tag")
		}
		s.tag = toks[0].text
		return s, nil
	}

	p := &parser{input: expr, toks: toks}
	sets, err := p.parseRangeSet()
	if err != nil {
		return nil, err
	}
	s.sets = sets
	return s, nil
}

// MustParseSpec is like [ParseSpec] but panics on error.
func MustParseSpec(expr string, opts ...Option) *Spec {
	s, err := ParseSpec(expr, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

type parser struct {
	input string
	toks  []lexeme
	pos   int
}

func (p *parser) peek() (lexeme, bool) {
	if p.pos >= len(p.toks) {
		return lexeme{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) next() lexeme {
	t := p.toks[p.pos]
	p.pos++
	return t
}

func (p *parser) errorAt(t lexeme, reason string) error {
	return syntaxError(p.input, t.offset, reason)
}

func (p *parser) errorAtEnd(reason string) error {
	return syntaxError(p.input, len(p.input), reason)
}

// range-set ::= range ( '||' range )*
func (p *parser) parseRangeSet() ([]compSet, error) {
	var sets []compSet
	for {
		set, err := p.parseRange()
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)

		t, ok := p.peek()
		if !ok {
			return sets, nil
		}
		if t.code != orToken {
			return nil, p.errorAt(t, "unexpected token")
		}
		p.next()
	}
}

// range ::= hyphen | simple ( simple )*
func (p *parser) parseRange() (compSet, error) {
	set := compSet{}
	count := 0
	for {
		t, ok := p.peek()
		if !ok || t.code == orToken {
			break
		}
		switch t.code {
		case operatorToken:
			p.next()
			vt, ok := p.peek()
			if !ok {
				return set, p.errorAtEnd("missing version after operator " + t.text)
			}
			if vt.code != partialToken {
				return set, p.errorAt(vt, "expected version after operator "+t.text)
			}
			p.next()
			pv, err := p.partial(vt)
			if err != nil {
				return set, err
			}
			applyOperator(&set, t.text, pv)
		case partialToken:
			p.next()
			from, err := p.partial(t)
			if err != nil {
				return set, err
			}
			if h, ok := p.peek(); ok && h.code == hyphenToken {
				p.next()
				vt, ok := p.peek()
				if !ok {
					return set, p.errorAtEnd("missing upper bound of hyphen range")
				}
				if vt.code != partialToken {
					return set, p.errorAt(vt, "expected version in hyphen range")
				}
				p.next()
				to, err := p.partial(vt)
				if err != nil {
					return set, err
				}
				applyHyphen(&set, from, to)
			} else {
				applyXRange(&set, from)
			}
		case tagToken:
			if knownTags[t.text] {
				return set, p.errorAt(t, "tag cannot be combined with other ranges")
			}
			return set, p.errorAt(t, "unknown tag")
		default:
			return set, p.errorAt(t, "unexpected token")
		}
		count++
	}
	if count == 0 {
		if t, ok := p.peek(); ok {
			return set, p.errorAt(t, "empty range before")
		}
		return set, p.errorAtEnd("empty range")
	}
	return set, nil
}

// partial is a version with optional wildcard components. A nil component
// is a wildcard; every component after a wildcard is a wildcard too.
type partial struct {
	major, minor, patch *uint64
	pre, build          string
}

func (p *parser) partial(t lexeme) (partial, error) {
	text := strings.TrimPrefix(t.text, "v")
	var pv partial

	if i := strings.IndexByte(text, '+'); i >= 0 {
		pv.build = text[i+1:]
		text = text[:i]
	}
	// Dots split the numeric core; a prerelease may contain dots as well.
	core := text
	if i := strings.IndexByte(text, '-'); i >= 0 {
		pv.pre = text[i+1:]
		core = text[:i]
	}

	fields := strings.Split(core, ".")
	slots := []**uint64{&pv.major, &pv.minor, &pv.patch}
	for i, f := range fields {
		if f == "x" || f == "X" || f == "*" {
			break
		}
		n, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return pv, p.errorAt(t, "invalid version number")
		}
		*slots[i] = &n
	}
	return pv, nil
}

func (pv partial) full() bool { return pv.patch != nil }

func (pv partial) version() Version {
	return NewVersion(deref(pv.major), deref(pv.minor), deref(pv.patch), pv.pre, pv.build)
}

func deref(n *uint64) uint64 {
	if n == nil {
		return 0
	}
	return *n
}

// ceiling returns the exclusive "-0" upper bound, the lowest prerelease
// of the given tuple, so that no prerelease of it matches.
func ceiling(major, minor, patch uint64) Version {
	return NewVersion(major, minor, patch, "0", "")
}

// nothing is the canonical empty comparator set: <0.0.0-0.
func nothing(set *compSet) {
	set.upper(NewVersion(0, 0, 0, "0", ""), false)
}

// applyXRange desugars a bare partial: 1 → >=1.0.0 <2.0.0-0, 1.2 → >=1.2.0 <1.3.0-0.
func applyXRange(set *compSet, pv partial) {
	switch {
	case pv.major == nil:
	case pv.minor == nil:
		set.lower(NewVersion(*pv.major, 0, 0, "", ""), true)
		set.upper(ceiling(*pv.major+1, 0, 0), false)
	case pv.patch == nil:
		set.lower(NewVersion(*pv.major, *pv.minor, 0, "", ""), true)
		set.upper(ceiling(*pv.major, *pv.minor+1, 0), false)
	default:
		v := pv.version()
		set.lower(v, true)
		set.upper(v, true)
	}
}

// applyTilde: ~1.2.3 → >=1.2.3 <1.3.0-0, ~1.2 → >=1.2.0 <1.3.0-0, ~1 → >=1.0.0 <2.0.0-0.
func applyTilde(set *compSet, pv partial) {
	switch {
	case pv.major == nil:
	case pv.minor == nil:
		set.lower(NewVersion(*pv.major, 0, 0, "", ""), true)
		set.upper(ceiling(*pv.major+1, 0, 0), false)
	default:
		set.lower(NewVersion(*pv.major, *pv.minor, deref(pv.patch), pv.pre, ""), true)
		set.upper(ceiling(*pv.major, *pv.minor+1, 0), false)
	}
}

// applyCaret allows changes that do not modify the left-most non-zero
// component: ^1.2.3 → <2.0.0-0, ^0.2.3 → <0.3.0-0, ^0.0.3 → <0.0.4-0.
func applyCaret(set *compSet, pv partial) {
	switch {
	case pv.major == nil:
	case pv.minor == nil:
		set.lower(NewVersion(*pv.major, 0, 0, "", ""), true)
		set.upper(ceiling(*pv.major+1, 0, 0), false)
	case pv.patch == nil:
		set.lower(NewVersion(*pv.major, *pv.minor, 0, "", ""), true)
		if *pv.major == 0 {
			set.upper(ceiling(0, *pv.minor+1, 0), false)
		} else {
			set.upper(ceiling(*pv.major+1, 0, 0), false)
		}
	default:
		major, minor, patch := *pv.major, *pv.minor, *pv.patch
		set.lower(NewVersion(major, minor, patch, pv.pre, ""), true)
		switch {
		case major > 0:
			set.upper(ceiling(major+1, 0, 0), false)
		case minor > 0:
			set.upper(ceiling(0, minor+1, 0), false)
		default:
			set.upper(ceiling(0, 0, patch+1), false)
		}
	}
}

// applyPrimitive desugars <, <=, >, >= with possibly partial versions.
func applyPrimitive(set *compSet, op string, pv partial) {
	if pv.major == nil {
		if op == "<" || op == ">" {
			nothing(set)
		}
		return
	}
	if pv.full() {
		v := pv.version()
		switch op {
		case ">":
			set.lower(v, false)
		case ">=":
			set.lower(v, true)
		case "<":
			set.upper(v, false)
		case "<=":
			set.upper(v, true)
		}
		return
	}
	major := *pv.major
	switch op {
	case ">":
		if pv.minor == nil {
			set.lower(NewVersion(major+1, 0, 0, "", ""), true)
		} else {
			set.lower(NewVersion(major, *pv.minor+1, 0, "", ""), true)
		}
	case ">=":
		set.lower(NewVersion(major, deref(pv.minor), 0, "", ""), true)
	case "<":
		set.upper(ceiling(major, deref(pv.minor), 0), false)
	case "<=":
		if pv.minor == nil {
			set.upper(ceiling(major+1, 0, 0), false)
		} else {
			set.upper(ceiling(major, *pv.minor+1, 0), false)
		}
	}
}

func applyOperator(set *compSet, op string, pv partial) {
	switch op {
	case "=":
		applyXRange(set, pv)
	case "~", "~>":
		applyTilde(set, pv)
	case "^":
		applyCaret(set, pv)
	default:
		applyPrimitive(set, op, pv)
	}
}

// applyHyphen: 1.2 - 2.3 → >=1.2.0 <2.4.0-0, 1.2.3 - 2.3.4 → >=1.2.3 <=2.3.4.
func applyHyphen(set *compSet, from, to partial) {
	switch {
	case from.major == nil:
	case from.full():
		set.lower(from.version(), true)
	default:
		set.lower(NewVersion(*from.major, deref(from.minor), 0, "", ""), true)
	}
	switch {
	case to.major == nil:
	case to.minor == nil:
		set.upper(ceiling(*to.major+1, 0, 0), false)
	case to.patch == nil:
		set.upper(ceiling(*to.major, *to.minor+1, 0), false)
	default:
		set.upper(to.version(), true)
	}
}
