package semver

import (
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

const (
	whitespaceToken = iota
	orToken
	hyphenToken
	operatorToken
	partialToken
	tagToken
)

var whitespaceMatcher = parsly.NewToken(whitespaceToken, "Whitespace", matcher.NewWhiteSpace())
var orMatcher = parsly.NewToken(orToken, "||", matcher.NewFragment("||"))
var hyphenMatcher = parsly.NewToken(hyphenToken, "Hyphen", &hyphenMatch{})
var operatorMatcher = parsly.NewToken(operatorToken, "Operator", matcher.NewFragments(
	[]byte(">="), []byte("<="), []byte("~>"),
	[]byte(">"), []byte("<"), []byte("="), []byte("~"), []byte("^"),
))
var partialMatcher = parsly.NewToken(partialToken, "Version", &partialMatch{})
var tagMatcher = parsly.NewToken(tagToken, "Tag", &tagMatch{})

// lexeme is one token of a range expression.
type lexeme struct {
	code   int
	text   string
	offset int
}

// lex splits expr into lexemes. Whitespace is dropped: every token that
// needs a separator (hyphen, partial) checks its own boundaries.
func lex(expr string) ([]lexeme, error) {
	cursor := parsly.NewCursor("", []byte(expr), 0)
	var out []lexeme
	for cursor.Pos < cursor.InputSize {
		matched := cursor.MatchAfterOptional(whitespaceMatcher,
			orMatcher,
			hyphenMatcher,
			operatorMatcher,
			partialMatcher,
			tagMatcher,
		)
		switch matched.Code {
		case parsly.EOF:
			return out, nil
		case parsly.Invalid:
			return nil, syntaxError(expr, cursor.Pos, "unexpected input")
		}
		out = append(out, lexeme{
			code:   matched.Code,
			text:   matched.Text(cursor),
			offset: matched.Offset,
		})
	}
	return out, nil
}

// hyphenMatch matches the " - " separator of a hyphen range. The leading
// whitespace has already been consumed; a trailing one is required.
type hyphenMatch struct{}

func (h *hyphenMatch) Match(cursor *parsly.Cursor) int {
	pos := cursor.Pos
	if pos+1 >= cursor.InputSize || cursor.Input[pos] != '-' {
		return 0
	}
	if !isSpace(cursor.Input[pos+1]) {
		return 0
	}
	return 1
}

// partialMatch matches a possibly partial version: v?xr(.xr(.xr(-pre)?(+build)?)?)?
type partialMatch struct{}

func (p *partialMatch) Match(cursor *parsly.Cursor) int {
	in, n := cursor.Input, cursor.InputSize
	pos := cursor.Pos
	if pos < n && in[pos] == 'v' {
		pos++
	}
	parts := 0
	numeric := true
	for parts < 3 {
		if parts > 0 {
			if pos >= n || in[pos] != '.' {
				break
			}
			pos++
		}
		end := scanXR(in, pos, n)
		if end == pos {
			return 0
		}
		if !isDigit(in[pos]) {
			numeric = false
		}
		pos = end
		parts++
	}
	if parts == 3 && numeric {
		if pos < n && in[pos] == '-' {
			end := scanIdentifiers(in, pos+1, n)
			if end == pos+1 {
				return 0
			}
			pos = end
		}
		if pos < n && in[pos] == '+' {
			end := scanIdentifiers(in, pos+1, n)
			if end == pos+1 {
				return 0
			}
			pos = end
		}
	}
	if !atBoundary(in, pos, n) {
		return 0
	}
	return pos - cursor.Pos
}

// tagMatch matches a bare word such as "latest".
type tagMatch struct{}

func (t *tagMatch) Match(cursor *parsly.Cursor) int {
	in, n := cursor.Input, cursor.InputSize
	pos := cursor.Pos
	if pos >= n || !isLetter(in[pos]) {
		return 0
	}
	for pos < n && (isLetter(in[pos]) || isDigit(in[pos]) || in[pos] == '-' || in[pos] == '_' || in[pos] == '.') {
		pos++
	}
	if !atBoundary(in, pos, n) {
		return 0
	}
	return pos - cursor.Pos
}

func scanXR(in []byte, pos, n int) int {
	if pos >= n {
		return pos
	}
	switch in[pos] {
	case 'x', 'X', '*':
		return pos + 1
	}
	start := pos
	for pos < n && isDigit(in[pos]) {
		pos++
	}
	if pos-start > 16 {
		return start
	}
	return pos
}

// scanIdentifiers scans dot-separated [0-9A-Za-z-]+ identifiers.
func scanIdentifiers(in []byte, pos, n int) int {
	start := pos
	for {
		idStart := pos
		for pos < n && (isDigit(in[pos]) || isLetter(in[pos]) || in[pos] == '-') {
			pos++
		}
		if pos == idStart {
			return start
		}
		if pos < n && in[pos] == '.' {
			pos++
			continue
		}
		return pos
	}
}

func atBoundary(in []byte, pos, n int) bool {
	return pos >= n || isSpace(in[pos]) || in[pos] == '|'
}

func isDigit(b byte) bool  { return b >= '0' && b <= '9' }
func isLetter(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }
func isSpace(b byte) bool  { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }
