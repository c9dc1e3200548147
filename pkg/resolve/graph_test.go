package resolve

import (
	stderrors "errors"
	"slices"
	"testing"

	"github.com/matzehuels/npym/pkg/npm"
	"github.com/matzehuels/npym/pkg/semver"
)

func meta(name, version string) *npm.VersionMeta {
	return &npm.VersionMeta{Name: npm.MustParseName(name), Version: semver.MustParseVersion(version)}
}

func edge(g *Graph, from, to *Node) {
	g.addEdge(from.ID, Dep{Name: to.Name, Spec: semver.Any(), To: to.ID})
}

func TestGraphPlacement(t *testing.T) {
	g := newGraph()
	root := g.add(meta("app", "1.0.0"), NoParent)
	a := g.add(meta("a", "1.0.0"), root.ID)
	c1 := g.add(meta("c", "1.0.0"), root.ID)
	c2 := g.add(meta("c", "2.0.0"), a.ID)
	shadow := g.add(meta("c", "3.0.0"), root.ID)

	tests := []struct {
		from NodeID
		name string
		want NodeID
		ok   bool
	}{
		{root.ID, "a", a.ID, true},
		{root.ID, "c", c1.ID, true},
		{a.ID, "c", c2.ID, true},
		{c2.ID, "c", c2.ID, true},
		{c1.ID, "a", a.ID, true},
		{a.ID, "missing", 0, false},
	}
	for _, tt := range tests {
		got, ok := g.visible(tt.from, npm.MustParseName(tt.name))
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("visible(%d, %s) = %d, %v; want %d, %v", tt.from, tt.name, got, ok, tt.want, tt.ok)
		}
	}
	if got, _ := g.visible(root.ID, shadow.Name); got == shadow.ID {
		t.Error("second binding of a name in one context should stay hidden")
	}

	if got := g.InstallPath(c2.ID); got != "app/node_modules/a/node_modules/c" {
		t.Errorf("InstallPath() = %q", got)
	}
	if got := g.InstallPath(root.ID); got != "app" {
		t.Errorf("InstallPath(root) = %q", got)
	}
}

func TestGraphEdges(t *testing.T) {
	g := newGraph()
	root := g.add(meta("app", "1.0.0"), NoParent)
	a := g.add(meta("a", "1.0.0"), root.ID)
	b := g.add(meta("b", "1.0.0"), root.ID)
	c := g.add(meta("c", "1.0.0"), root.ID)
	edge(g, root, a)
	edge(g, root, b)
	edge(g, a, c)
	edge(g, b, c)

	if !g.reaches(root.ID, c.ID) || g.reaches(c.ID, root.ID) {
		t.Error("reaches() disagrees with edges")
	}
	if got := g.Requirers(c.ID); !slices.Equal(got, []NodeID{a.ID, b.ID}) {
		t.Errorf("Requirers(c) = %v", got)
	}
	if got := g.Children(root.ID); !slices.Equal(got, []NodeID{a.ID, b.ID}) {
		t.Errorf("Children(root) = %v", got)
	}
	if g.EdgeCount() != 4 {
		t.Errorf("EdgeCount() = %d, want 4", g.EdgeCount())
	}
	if got := g.Order(); !slices.Equal(got, []NodeID{c.ID, a.ID, b.ID, root.ID}) {
		t.Errorf("Order() = %v, want dependencies first", got)
	}
	if got := g.DependencyMap(root.ID); got["a"] != "1.0.0" || got["b"] != "1.0.0" || len(got) != 2 {
		t.Errorf("DependencyMap(root) = %v", got)
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestGraphWalkStops(t *testing.T) {
	g := newGraph()
	root := g.add(meta("app", "1.0.0"), NoParent)
	a := g.add(meta("a", "1.0.0"), root.ID)
	edge(g, root, a)

	stop := stderrors.New("stop")
	visited := 0
	err := g.Walk(func(*Node) error {
		visited++
		return stop
	})
	if !stderrors.Is(err, stop) || visited != 1 {
		t.Errorf("Walk() = %v after %d visits, want stop after 1", err, visited)
	}
}

func TestGraphValidateDetectsCycle(t *testing.T) {
	g := newGraph()
	root := g.add(meta("app", "1.0.0"), NoParent)
	a := g.add(meta("a", "1.0.0"), root.ID)
	edge(g, root, a)
	edge(g, a, root)

	if err := g.Validate(); !stderrors.Is(err, ErrGraphHasCycle) {
		t.Errorf("Validate() = %v, want ErrGraphHasCycle", err)
	}
}
