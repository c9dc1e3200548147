package npm

import (
	"encoding/json"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/matzehuels/npym/pkg/errors"
	"github.com/matzehuels/npym/pkg/integrations"
	"github.com/matzehuels/npym/pkg/semver"
)

type rawPackument struct {
	Name     *string                    `json:"name"`
	DistTags map[string]string          `json:"dist-tags"`
	Versions map[string]json.RawMessage `json:"versions"`
}

type rawVersion struct {
	Description          any               `json:"description"`
	License              any               `json:"license"`
	Licenses             []any             `json:"licenses"`
	Author               any               `json:"author"`
	Maintainers          any               `json:"maintainers"`
	Homepage             any               `json:"homepage"`
	Keywords             any               `json:"keywords"`
	Repository           any               `json:"repository"`
	Bugs                 any               `json:"bugs"`
	Bin                  any               `json:"bin"`
	Deprecated           any               `json:"deprecated"`
	Dependencies         map[string]string `json:"dependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
	PeerDependencies     map[string]string `json:"peerDependencies"`
	Dist                 *rawDist          `json:"dist"`
}

type rawDist struct {
	Tarball   string `json:"tarball"`
	Integrity string `json:"integrity"`
	Shasum    string `json:"shasum"`
}

// DecodePackument validates a registry document for name and converts it to
// a [Packument]. Structural problems (missing or mismatched name, missing
// versions, a version without a tarball, malformed dependency maps) are
// METADATA_FETCH_FAILED errors. Version keys that are not valid semver are
// skipped.
func DecodePackument(name PackageName, data []byte) (*Packument, error) {
	var raw rawPackument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, invalid(name, err, "malformed registry document")
	}
	if raw.Name == nil || *raw.Name == "" {
		return nil, invalid(name, nil, "registry document has no name")
	}
	if *raw.Name != name.String() {
		return nil, invalid(name, nil, "registry document is for %q", *raw.Name)
	}
	if raw.Versions == nil {
		return nil, invalid(name, nil, "registry document has no versions")
	}

	metas := make([]*VersionMeta, 0, len(raw.Versions))
	for key, body := range raw.Versions {
		v, err := semver.ParseVersion(key)
		if err != nil {
			continue
		}
		meta, err := decodeVersion(name, v, body)
		if err != nil {
			return nil, err
		}
		metas = append(metas, meta)
	}
	return NewPackument(name, raw.DistTags, metas...), nil
}

func decodeVersion(name PackageName, v semver.Version, body json.RawMessage) (*VersionMeta, error) {
	var raw rawVersion
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, invalid(name, err, "version %s", v)
	}
	if raw.Dist == nil || raw.Dist.Tarball == "" {
		return nil, invalid(name, nil, "version %s has no dist.tarball", v)
	}
	if err := errors.ValidateURL(raw.Dist.Tarball); err != nil {
		return nil, invalid(name, err, "version %s tarball", v)
	}

	meta := &VersionMeta{
		Name:    name,
		Version: v,
		Dist: Dist{
			Tarball:   raw.Dist.Tarball,
			Integrity: raw.Dist.Integrity,
			Shasum:    raw.Dist.Shasum,
		},
		Description: stringField(raw.Description, ""),
		License:     licenseField(raw.License, raw.Licenses),
		Homepage:    stringField(raw.Homepage, ""),
		Repository:  integrations.NormalizeRepoURL(stringField(raw.Repository, "url")),
		Bugs:        stringField(raw.Bugs, "url"),
		Deprecated:  stringField(raw.Deprecated, ""),
		Keywords:    keywordsField(raw.Keywords),
		Author:      personField(raw.Author),
		Maintainers: peopleField(raw.Maintainers),
	}

	var err error
	if meta.Dependencies, err = decodeDeps(name, v, raw.Dependencies); err != nil {
		return nil, err
	}
	if meta.OptionalDependencies, err = decodeDeps(name, v, raw.OptionalDependencies); err != nil {
		return nil, err
	}
	if meta.PeerDependencies, err = decodeDeps(name, v, raw.PeerDependencies); err != nil {
		return nil, err
	}
	if meta.Bin, err = binField(name, raw.Bin); err != nil {
		return nil, invalid(name, err, "version %s", v)
	}
	return meta, nil
}

func decodeDeps(name PackageName, v semver.Version, m map[string]string) ([]Dependency, error) {
	if len(m) == 0 {
		return nil, nil
	}
	deps := make([]Dependency, 0, len(m))
	for dn, spec := range m {
		pn, err := parseLegacyName(dn)
		if err != nil {
			return nil, invalid(name, err, "version %s depends on %q", v, dn)
		}
		spec = strings.TrimSpace(spec)
		if spec == "" {
			spec = "*"
		}
		deps = append(deps, Dependency{Name: pn, Range: spec})
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i].Name.Compare(deps[j].Name) < 0 })
	return deps, nil
}

func invalid(name PackageName, cause error, format string, args ...any) error {
	msg := "package " + name.String() + ": " + format
	if cause == nil {
		return errors.New(errors.ErrCodeMetadataFetchFailed, msg, args...)
	}
	return errors.Wrap(errors.ErrCodeMetadataFetchFailed, cause, msg, args...)
}

// stringField reads a field that is either a string or an object holding
// the string under key.
func stringField(v any, key string) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case map[string]any:
		if key == "" {
			return ""
		}
		if s, ok := val[key].(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func licenseField(license any, legacy []any) string {
	if s := stringField(license, "type"); s != "" {
		return s
	}
	var types []string
	for _, l := range legacy {
		if s := stringField(l, "type"); s != "" {
			types = append(types, s)
		}
	}
	if len(types) > 1 {
		return "(" + strings.Join(types, " OR ") + ")"
	}
	return strings.Join(types, "")
}

func keywordsField(v any) []string {
	var out []string
	switch val := v.(type) {
	case string:
		out = strings.FieldsFunc(val, func(r rune) bool { return r == ',' || r == ' ' })
	case []any:
		for _, k := range val {
			if s, ok := k.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	}
	return out
}

// personRe parses the "Name <email> (url)" shorthand.
var personRe = regexp.MustCompile(`^([^<(]*?)\s*(?:<([^>]*)>)?\s*(?:\(([^)]*)\))?$`)

func personField(v any) *Person {
	switch val := v.(type) {
	case string:
		m := personRe.FindStringSubmatch(strings.TrimSpace(val))
		if m == nil {
			return &Person{Name: strings.TrimSpace(val)}
		}
		p := &Person{Name: m[1], Email: m[2], URL: m[3]}
		if *p == (Person{}) {
			return nil
		}
		return p
	case map[string]any:
		p := &Person{}
		p.Name, _ = val["name"].(string)
		p.Email, _ = val["email"].(string)
		p.URL, _ = val["url"].(string)
		if *p == (Person{}) {
			return nil
		}
		return p
	}
	return nil
}

func peopleField(v any) []Person {
	list, ok := v.([]any)
	if !ok {
		if p := personField(v); p != nil {
			return []Person{*p}
		}
		return nil
	}
	var out []Person
	for _, item := range list {
		if p := personField(item); p != nil {
			out = append(out, *p)
		}
	}
	return out
}

// binField accepts the string shorthand, which names a single command after
// the package's bare name, or a map of command names to paths.
func binField(name PackageName, v any) (map[string]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if val == "" {
			return nil, nil
		}
		return map[string]string{name.Bare(): val}, nil
	case map[string]any:
		if len(val) == 0 {
			return nil, nil
		}
		out := make(map[string]string, len(val))
		for cmd, p := range val {
			s, ok := p.(string)
			if !ok {
				return nil, errors.New(errors.ErrCodeMetadataFetchFailed, "bin %q is not a string", cmd)
			}
			out[path.Base(cmd)] = s
		}
		return out, nil
	}
	return nil, errors.New(errors.ErrCodeMetadataFetchFailed, "bin has unsupported type %T", v)
}
