package npm

import (
	"slices"

	"github.com/matzehuels/npym/pkg/semver"
)

// Packument is the registry's metadata document for one package: every
// published version plus its dist-tags.
type Packument struct {
	Name     PackageName
	DistTags map[string]string

	versions map[string]*VersionMeta
	ordered  []semver.Version
}

// NewPackument assembles a packument from already-validated versions.
// Later duplicates of the same version replace earlier ones.
func NewPackument(name PackageName, distTags map[string]string, metas ...*VersionMeta) *Packument {
	p := &Packument{
		Name:     name,
		DistTags: distTags,
		versions: make(map[string]*VersionMeta, len(metas)),
	}
	if p.DistTags == nil {
		p.DistTags = map[string]string{}
	}
	for _, m := range metas {
		key := m.Version.String()
		if _, dup := p.versions[key]; !dup {
			p.ordered = append(p.ordered, m.Version)
		}
		p.versions[key] = m
	}
	semver.Sort(p.ordered)
	return p
}

// Versions returns all published versions in ascending precedence.
// The slice is a copy.
func (p *Packument) Versions() []semver.Version {
	return slices.Clone(p.ordered)
}

// Version returns the metadata for v.
func (p *Packument) Version(v semver.Version) (*VersionMeta, bool) {
	m, ok := p.versions[v.String()]
	return m, ok
}

// Len returns the number of published versions.
func (p *Packument) Len() int { return len(p.ordered) }

// VersionMeta is the manifest of one published version.
type VersionMeta struct {
	Name    PackageName
	Version semver.Version

	// Dependency lists are sorted by name.
	Dependencies         []Dependency
	OptionalDependencies []Dependency
	PeerDependencies     []Dependency

	Dist Dist

	// Bin maps command names to package-relative script paths.
	Bin map[string]string

	Description string
	License     string
	Homepage    string
	Repository  string
	Bugs        string
	Deprecated  string
	Keywords    []string
	Author      *Person
	Maintainers []Person
}

// Dependency is one entry of a dependency map. Range is the raw spec text;
// it is parsed by the resolver so that syntax errors carry resolution
// context.
type Dependency struct {
	Name  PackageName
	Range string
}

// Dist locates the version's tarball.
type Dist struct {
	Tarball   string
	Integrity string
	Shasum    string
}

// Person is an author or maintainer.
type Person struct {
	Name  string
	Email string
	URL   string
}
