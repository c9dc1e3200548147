package resolve

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/matzehuels/npym/pkg/npm"
	"github.com/matzehuels/npym/pkg/semver"
)

// mockRegistry is an in-memory MetadataProvider.
type mockRegistry struct {
	mu       sync.Mutex
	metas    map[string][]*npm.VersionMeta
	tags     map[string]map[string]string
	calls    map[string]int
	fetchErr map[string]error
}

func newMockRegistry() *mockRegistry {
	return &mockRegistry{
		metas:    map[string][]*npm.VersionMeta{},
		tags:     map[string]map[string]string{},
		calls:    map[string]int{},
		fetchErr: map[string]error{},
	}
}

// add publishes name@version. Each dep is "name range".
func (m *mockRegistry) add(name, version string, deps ...string) *npm.VersionMeta {
	meta := &npm.VersionMeta{
		Name:    npm.MustParseName(name),
		Version: semver.MustParseVersion(version),
	}
	meta.Dependencies = parseDeps(deps)
	m.mu.Lock()
	m.metas[name] = append(m.metas[name], meta)
	m.mu.Unlock()
	return meta
}

func (m *mockRegistry) tag(name, tag, version string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tags[name] == nil {
		m.tags[name] = map[string]string{}
	}
	m.tags[name][tag] = version
}

func (m *mockRegistry) fail(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchErr[name] = err
}

func (m *mockRegistry) Packument(ctx context.Context, name npm.PackageName) (*npm.Packument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := name.String()
	m.calls[key]++
	if err := m.fetchErr[key]; err != nil {
		return nil, err
	}
	metas, ok := m.metas[key]
	if !ok {
		return nil, fmt.Errorf("package %s not found", key)
	}
	return npm.NewPackument(name, m.tags[key], metas...), nil
}

func (m *mockRegistry) callCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func parseDeps(deps []string) []npm.Dependency {
	var out []npm.Dependency
	for _, d := range deps {
		name, rng, _ := strings.Cut(d, " ")
		out = append(out, npm.Dependency{Name: npm.MustParseName(name), Range: rng})
	}
	return out
}

// describe renders a graph as one line per node: install path, version and
// dependency targets.
func describe(g *Graph) string {
	var b strings.Builder
	for _, n := range g.Nodes() {
		fmt.Fprintf(&b, "%s@%s ->", g.InstallPath(n.ID), n.Version)
		for _, d := range g.Deps(n.ID) {
			fmt.Fprintf(&b, " %s", g.InstallPath(d.To))
		}
		for _, d := range n.Cycles {
			fmt.Fprintf(&b, " (%s)", g.InstallPath(d.To))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
