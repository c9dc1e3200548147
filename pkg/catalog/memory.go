package catalog

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Memory is an in-process catalog.
type Memory struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemory creates an empty in-memory catalog.
func NewMemory() *Memory {
	return &Memory{records: map[string]Record{}}
}

func (m *Memory) Put(_ context.Context, rec Record) error {
	rec.Project = NormalizeProject(rec.Distribution)
	rec.Requires = slices.Clone(rec.Requires)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.Filename] = rec
	return nil
}

func (m *Memory) Projects(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := map[string]bool{}
	for _, r := range m.records {
		set[r.Project] = true
	}
	return slices.Sorted(maps.Keys(set)), nil
}

func (m *Memory) Files(_ context.Context, project string) ([]Record, error) {
	project = NormalizeProject(project)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Record
	for _, r := range m.records {
		if r.Project == project {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b Record) int { return strings.Compare(a.Filename, b.Filename) })
	return out, nil
}

func (m *Memory) Get(_ context.Context, filename string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[filename]
	if !ok {
		return Record{}, notFound(filename)
	}
	return r, nil
}

func (m *Memory) Close() error { return nil }
