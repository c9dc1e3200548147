// Package semver implements npm's version and range grammar.
//
// A [Version] is a semantic version with npm precedence rules (numeric
// identifiers compare numerically, alphanumeric identifiers lexically, a
// prerelease sorts before its release). A [Spec] is a parsed range expression:
//
//	1.2.3               exact
//	^1.2.3  ~1.2.3      caret and tilde
//	1.x  1  *           partial and wildcard versions
//	>=1.2.3 <2.0.0      comparator chains (conjunction)
//	1.2.3 - 2.3.4       hyphen ranges
//	^1 || ^2            alternatives (disjunction)
//	latest              dist-tag reference, resolved with [Spec.ResolveTag]
//
// Expressions are tokenised with parsly and parsed by a recursive-descent
// parser into comparator sets, so that containment ([Spec.Matches]),
// selection ([Spec.MaxSatisfying]) and conjunction ([Spec.Intersect]) work on
// the same representation.
//
// Prerelease versions are only matched by a comparator set that names a
// prerelease of the same major.minor.patch tuple, unless the spec was parsed
// with [IncludePrerelease].
//
// [PEP440Version] and [Spec.PEP440] translate versions and specs into the
// Python packaging grammar used in wheel metadata.
package semver
