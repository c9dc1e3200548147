package render

import (
	"sort"

	"github.com/matzehuels/npym/pkg/resolve"
)

// LockVersion is the schema version written into every [Lock].
const LockVersion = 1

// Lock is a serializable snapshot of a resolution graph.
type Lock struct {
	LockVersion int         `json:"lockVersion" yaml:"lockVersion"`
	Root        string      `json:"root" yaml:"root"`
	Packages    []LockEntry `json:"packages" yaml:"packages"`
}

// LockEntry is one binding. Dependencies maps each dependency name to the
// install path of the binding that satisfies it.
type LockEntry struct {
	Path         string            `json:"path" yaml:"path"`
	Name         string            `json:"name" yaml:"name"`
	Version      string            `json:"version" yaml:"version"`
	Resolved     string            `json:"resolved,omitempty" yaml:"resolved,omitempty"`
	Integrity    string            `json:"integrity,omitempty" yaml:"integrity,omitempty"`
	Ranges       map[string]string `json:"ranges,omitempty" yaml:"ranges,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Optional     []string          `json:"optional,omitempty" yaml:"optional,omitempty"`
}

// NewLock builds the lock of g with entries sorted by install path.
func NewLock(g *resolve.Graph) *Lock {
	lock := &Lock{LockVersion: LockVersion, Root: nodeLabel(g.Root())}
	for _, n := range g.Nodes() {
		e := LockEntry{
			Path:      g.InstallPath(n.ID),
			Name:      n.Name.String(),
			Version:   n.Version.String(),
			Integrity: n.Meta.Dist.Integrity,
			Resolved:  n.Meta.Dist.Tarball,
		}
		if e.Integrity == "" && n.Meta.Dist.Shasum != "" {
			e.Integrity = "sha1:" + n.Meta.Dist.Shasum
		}
		for _, d := range append(g.Deps(n.ID), n.Cycles...) {
			if e.Dependencies == nil {
				e.Dependencies = map[string]string{}
				e.Ranges = map[string]string{}
			}
			name := d.Name.String()
			e.Dependencies[name] = g.InstallPath(d.To)
			if d.Spec != nil {
				e.Ranges[name] = d.Spec.Raw()
			}
			if d.Optional {
				e.Optional = append(e.Optional, name)
			}
		}
		lock.Packages = append(lock.Packages, e)
	}
	sort.Slice(lock.Packages, func(i, j int) bool {
		return lock.Packages[i].Path < lock.Packages[j].Path
	})
	return lock
}
