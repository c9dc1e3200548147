package semver

import (
	stderrors "errors"
	"testing"

	"github.com/matzehuels/npym/pkg/errors"
)

func TestSpecMatchesInclude(t *testing.T) {
	tests := []struct {
		rng     string
		version string
	}{
		{"1.0.0 - 2.0.0", "1.2.3"},
		{"^1.2.3+build", "1.2.3"},
		{"^1.2.3+build", "1.3.0"},
		{"1.2.3-pre+asdf - 2.4.3-pre+asdf", "1.2.3"},
		{"1.2.3-pre+asdf - 2.4.3-pre+asdf", "2.4.3-alpha"},
		{"*", "1.2.3"},
		{">=1.0.0", "1.0.0"},
		{">1.0.0", "1.0.1"},
		{"<=2.0.0", "2.0.0"},
		{"<2.0.0", "0.2.9"},
		{">= 1.2.3", "1.2.3"},
		{"0.1.20 || 1.2.4", "1.2.4"},
		{">=0.2.3 || <0.0.1", "0.0.0"},
		{"2.x.x", "2.1.3"},
		{"1.2.x", "1.2.3"},
		{"1.2.x || 2.x", "2.1.3"},
		{"x", "1.2.3"},
		{"2", "2.1.2"},
		{"2.3", "2.3.1"},
		{"~2.4", "2.4.5"},
		{"~>3.2.1", "3.2.2"},
		{"~1", "1.2.3"},
		{"~> 1", "1.2.3"},
		{"~1.0", "1.0.2"},
		{">=1", "1.0.0"},
		{"<1.2", "1.1.1"},
		{"~v0.5.4-pre", "0.5.5"},
		{"~v0.5.4-pre", "0.5.4"},
		{"=0.7.x", "0.7.2"},
		{"<=0.7.x", "0.7.2"},
		{">=0.7.x", "0.7.2"},
		{"<=0.7.x", "0.6.2"},
		{"~1.2.1 >=1.2.3", "1.2.3"},
		{"~1.2.1 =1.2.3", "1.2.3"},
		{">=1.2.1 1.2.3", "1.2.3"},
		{"^1.2.3", "1.8.1"},
		{"^0.1.2", "0.1.2"},
		{"^0.1", "0.1.2"},
		{"^0.0.1", "0.0.1"},
		{"^1.2", "1.4.2"},
		{"^1.2 ^1", "1.4.2"},
		{"^1.2.3-alpha", "1.2.3-pre"},
		{"^1.2.0-alpha", "1.2.0-pre"},
		{"^0.0.1-alpha", "0.0.1-beta"},
		{"^0.1.1-alpha", "0.1.1-beta"},
		{"^x", "1.2.3"},
		{"x - 1.0.0", "0.9.7"},
		{"x - 1.x", "0.9.7"},
		{"1.0.0 - x", "1.9.7"},
		{"1.x - x", "1.9.7"},
		{"<=7.x", "7.9.9"},
		{"1.2.3 - 2.3", "2.3.9"},
		{"^0.0.3", "0.0.3"},
		{"^0.x", "0.9.0"},
		{"^0.0", "0.0.9"},
	}

	for _, tt := range tests {
		t.Run(tt.rng+"/"+tt.version, func(t *testing.T) {
			spec, err := ParseSpec(tt.rng)
			if err != nil {
				t.Fatalf("ParseSpec(%q): %v", tt.rng, err)
			}
			if !spec.Matches(MustParseVersion(tt.version)) {
				t.Errorf("%q (%s) should match %s", tt.rng, spec, tt.version)
			}
		})
	}
}

func TestSpecMatchesExclude(t *testing.T) {
	tests := []struct {
		rng     string
		version string
	}{
		{"1.0.0 - 2.0.0", "2.2.3"},
		{"1.2.3+asdf - 2.4.3+asdf", "1.2.3-pre.2"},
		{"^1.2.3+build", "2.0.0"},
		{"^1.2.3", "1.2.3-pre"},
		{"^1.2", "1.2.0-pre"},
		{">1.2", "1.3.0-beta"},
		{"<=1.2.3", "1.2.3-beta"},
		{"^1.2.3", "2.0.0-alpha"},
		{"1.0.0", "1.0.1"},
		{">=1.0.0", "0.0.0"},
		{">=1.0.0", "0.0.1"},
		{">1.0.0", "1.0.0"},
		{"<=2.0.0", "3.0.0"},
		{"<2.0.0", "2.0.0"},
		{"0.1.20 || 1.2.4", "1.2.3"},
		{"2.x.x", "1.1.3"},
		{"2.x.x", "3.1.3"},
		{"1.2.x", "1.3.3"},
		{"~2.4", "2.5.0"},
		{"~2.4", "2.3.9"},
		{"~>3.2.1", "3.3.2"},
		{"~1", "0.2.3"},
		{"~1.2.3", "1.3.0"},
		{"<1", "1.0.0"},
		{">=1.2", "1.1.1"},
		{"<1.2", "1.2.0"},
		{"~v0.5.4-beta", "0.5.4-alpha"},
		{"=0.7.x", "0.8.2"},
		{">=0.7.x", "0.6.2"},
		{"<0.7.x", "0.7.2"},
		{"^0.0.1", "0.0.2"},
		{"^0.1.2", "0.2.0"},
		{"^1.2.3", "1.2.2"},
		{"^1.2", "1.1.9"},
		{"*", "1.2.3-foo"},
		{">*", "1.2.3"},
		{"<*", "1.2.3"},
		{"^0.0.3", "0.0.4"},
		{"^0.2.3", "0.3.0"},
	}

	for _, tt := range tests {
		t.Run(tt.rng+"/"+tt.version, func(t *testing.T) {
			spec, err := ParseSpec(tt.rng)
			if err != nil {
				t.Fatalf("ParseSpec(%q): %v", tt.rng, err)
			}
			if spec.Matches(MustParseVersion(tt.version)) {
				t.Errorf("%q (%s) should not match %s", tt.rng, spec, tt.version)
			}
		})
	}
}

func TestIncludePrerelease(t *testing.T) {
	spec := MustParseSpec("^1.0.0", IncludePrerelease())
	if !spec.Matches(MustParseVersion("1.5.0-beta.1")) {
		t.Error("IncludePrerelease spec should match 1.5.0-beta.1")
	}
	if spec.Matches(MustParseVersion("2.0.0-beta.1")) {
		t.Error("IncludePrerelease spec should still honour the -0 ceiling")
	}
}

func TestSpecString(t *testing.T) {
	tests := []struct {
		input string
		want  string
		kind  Kind
	}{
		{"^1.2.3", ">=1.2.3 <2.0.0-0", KindRange},
		{"~1.2.3", ">=1.2.3 <1.3.0-0", KindRange},
		{"1.2.3", "1.2.3", KindExact},
		{"v1.2.3", "1.2.3", KindExact},
		{"*", "*", KindRange},
		{"1.x || >=2.5.0", ">=1.0.0 <2.0.0-0 || >=2.5.0", KindSet},
		{"1.2 - 2.3", ">=1.2.0 <2.4.0-0", KindRange},
		{">*", "<0.0.0-0", KindRange},
		{"^0.0.3", ">=0.0.3 <0.0.4-0", KindRange},
		{"^0.2.3", ">=0.2.3 <0.3.0-0", KindRange},
		{"^0.x", ">=0.0.0 <1.0.0-0", KindRange},
		{">1", ">=2.0.0", KindRange},
		{"<=1.2", "<1.3.0-0", KindRange},
		{"latest", "latest", KindTag},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			spec, err := ParseSpec(tt.input)
			if err != nil {
				t.Fatalf("ParseSpec(%q): %v", tt.input, err)
			}
			if got := spec.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
			if spec.Kind() != tt.kind {
				t.Errorf("Kind() = %v, want %v", spec.Kind(), tt.kind)
			}
			if spec.Raw() != tt.input {
				t.Errorf("Raw() = %q, want %q", spec.Raw(), tt.input)
			}
		})
	}
}

func TestCanonicalFormReparses(t *testing.T) {
	probes := []string{"0.0.1", "0.5.0", "1.0.0", "1.2.3", "1.2.3-beta", "1.9.9", "2.0.0", "2.4.0", "3.1.0"}
	for _, expr := range []string{"^1.2.3", "~0.5", "1.x || 2.4.x", ">=1.2.3-beta <2", "1.2 - 2.3", "*"} {
		spec := MustParseSpec(expr)
		again, err := ParseSpec(spec.String())
		if err != nil {
			t.Fatalf("ParseSpec(%q): %v", spec.String(), err)
		}
		for _, p := range probes {
			v := MustParseVersion(p)
			if spec.Matches(v) != again.Matches(v) {
				t.Errorf("%q and its canonical form %q disagree on %s", expr, spec, p)
			}
		}
	}
}

func TestParseSpecSyntaxErrors(t *testing.T) {
	tests := []struct {
		input    string
		fragment string
	}{
		{"", ""},
		{"   ", ""},
		{"^", ""},
		{">=", ""},
		{"1.2.3 ||", ""},
		{"|| 1.2.3", "||"},
		{"1.2.3 | 2", "|"},
		{"foo", "foo"},
		{"1.2.3 - ", ""},
		{"latest || 1.x", "latest"},
		{"1.2.3.4", "1.2.3.4"},
		{">= latest", "latest"},
		{"1..2", "1..2"},
		{"^^1", "^1"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := ParseSpec(tt.input)
			if err == nil {
				t.Fatalf("ParseSpec(%q) should fail", tt.input)
			}
			if !errors.Is(err, errors.ErrCodeInvalidRangeSyntax) {
				t.Errorf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidRangeSyntax)
			}
			var se *SyntaxError
			if !stderrors.As(err, &se) {
				t.Fatalf("error %v should carry *SyntaxError", err)
			}
			if se.Fragment != tt.fragment {
				t.Errorf("Fragment = %q, want %q", se.Fragment, tt.fragment)
			}
		})
	}
}

func TestMaxSatisfying(t *testing.T) {
	candidates := []Version{
		MustParseVersion("1.0.0"),
		MustParseVersion("1.2.0-beta"),
		MustParseVersion("1.1.0"),
		MustParseVersion("2.0.0"),
		MustParseVersion("0.9.0"),
	}

	tests := []struct {
		rng  string
		want string
	}{
		{"^1.0.0", "1.1.0"},
		{"*", "2.0.0"},
		{"<1.0.0", "0.9.0"},
		{"^1.2.0-alpha", "1.2.0-beta"},
		{"^3.0.0", ""},
	}

	for _, tt := range tests {
		t.Run(tt.rng, func(t *testing.T) {
			got, ok := MustParseSpec(tt.rng).MaxSatisfying(candidates)
			if tt.want == "" {
				if ok {
					t.Errorf("MaxSatisfying = %s, want none", got)
				}
				return
			}
			if !ok || got.String() != tt.want {
				t.Errorf("MaxSatisfying = %s (%v), want %s", got, ok, tt.want)
			}
		})
	}
}

func TestIntersect(t *testing.T) {
	tests := []struct {
		a, b        string
		want        string
		satisfiable bool
	}{
		{"^1.0.0", "^1.2.0", ">=1.2.0 <2.0.0-0", true},
		{"^1.0.0", "^2.0.0", "<0.0.0-0", false},
		{"1.x || 3.x", ">=1.5.0", ">=1.5.0 <2.0.0-0 || >=3.0.0 <4.0.0-0", true},
		{"*", "1.2.3", "1.2.3", true},
		{">=1.0.0", "<=1.0.0", "1.0.0", true},
		{">1.0.0", "<=1.0.0", "<0.0.0-0", false},
	}

	for _, tt := range tests {
		t.Run(tt.a+" && "+tt.b, func(t *testing.T) {
			got := MustParseSpec(tt.a).Intersect(MustParseSpec(tt.b))
			if got.String() != tt.want {
				t.Errorf("Intersect = %q, want %q", got, tt.want)
			}
			if got.Satisfiable() != tt.satisfiable {
				t.Errorf("Satisfiable() = %v, want %v", got.Satisfiable(), tt.satisfiable)
			}
		})
	}
}

func TestIntersectPrerelease(t *testing.T) {
	tests := []struct {
		name string
		a, b *Spec
		v    string
	}{
		{"allowed by one side only", MustParseSpec(">=1.0.0-beta"), MustParseSpec(">=0.5.0"), "1.0.0-beta.2"},
		{"allowed by both sides", MustParseSpec(">=1.0.0-beta"), MustParseSpec("<=1.0.0-rc.1"), "1.0.0-beta.2"},
		{"include-prerelease operand", MustParseSpec(">=1.0.0-beta"), MustParseSpec(">=0.5.0", IncludePrerelease()), "1.0.0-beta.2"},
		{"neither side names the tuple", MustParseSpec("^1.0.0"), MustParseSpec("^1.2.0"), "1.3.0-rc.1"},
		{"different tuple", MustParseSpec(">=1.0.0-beta"), MustParseSpec(">=1.1.0-alpha"), "1.1.0-beta"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := MustParseVersion(tt.v)
			want := tt.a.Matches(v) && tt.b.Matches(v)
			if got := tt.a.Intersect(tt.b).Matches(v); got != want {
				t.Errorf("(%s && %s).Matches(%s) = %v, want %v", tt.a.Raw(), tt.b.Raw(), v, got, want)
			}
			// chaining keeps every operand's gate
			chained := tt.a.Intersect(tt.b).Intersect(Any())
			if got := chained.Matches(v); got != (want && Any().Matches(v)) {
				t.Errorf("chained Matches(%s) = %v", v, got)
			}
		})
	}
}

func TestResolveTag(t *testing.T) {
	tags := map[string]string{"latest": "1.1.0", "next": "2.0.0-rc.1"}

	spec, err := MustParseSpec("latest").ResolveTag(tags)
	if err != nil {
		t.Fatalf("ResolveTag: %v", err)
	}
	if spec.Kind() != KindExact || !spec.Matches(MustParseVersion("1.1.0")) {
		t.Errorf("latest resolved to %s", spec)
	}

	next, err := MustParseSpec("next").ResolveTag(tags)
	if err != nil {
		t.Fatalf("ResolveTag: %v", err)
	}
	if !next.Matches(MustParseVersion("2.0.0-rc.1")) {
		t.Errorf("next should match its prerelease target, got %s", next)
	}

	if _, err := MustParseSpec("next").ResolveTag(map[string]string{"latest": "1.0.0"}); !stderrors.Is(err, ErrUnknownTag) {
		t.Errorf("missing tag error = %v, want ErrUnknownTag", err)
	}

	plain := MustParseSpec("^1.0.0")
	if got, _ := plain.ResolveTag(tags); got != plain {
		t.Error("non-tag spec should be returned unchanged")
	}

	if MustParseSpec("latest").Matches(MustParseVersion("1.1.0")) {
		t.Error("unresolved tag should match nothing")
	}
}
