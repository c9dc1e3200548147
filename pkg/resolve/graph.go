package resolve

import (
	"errors"
	"slices"
	"strings"

	"github.com/matzehuels/npym/pkg/npm"
	"github.com/matzehuels/npym/pkg/semver"
)

// ErrGraphHasCycle is returned by [Graph.Validate] when a directed cycle
// is found among edges. Resolution never produces one.
var ErrGraphHasCycle = errors.New("graph contains a cycle")

// NodeID indexes a node in its graph's arena.
type NodeID int

// NoParent is the Parent of the root node.
const NoParent NodeID = -1

// Node is one concrete (name, version) binding at one install location.
// The same (name, version) may appear several times at different
// locations when requirements conflict.
type Node struct {
	ID      NodeID
	Name    npm.PackageName
	Version semver.Version
	Meta    *npm.VersionMeta

	// Parent owns the node_modules directory the node is placed in.
	Parent NodeID

	// Cycles lists dependencies satisfied by a node that can already reach
	// this one. They are not edges.
	Cycles []Dep
}

// Dep is a resolved dependency of a node.
type Dep struct {
	Name     npm.PackageName
	Spec     *semver.Spec
	To       NodeID
	Optional bool
}

// Graph is the resolution result: an arena of nodes with dependency edges
// kept separately from placement. The root is always node 0. Graphs are
// immutable once returned by the resolver.
type Graph struct {
	nodes    []*Node
	edges    [][]Dep
	incoming [][]NodeID
	contexts []map[string]NodeID // per node: bindings placed in its node_modules
	stats    Stats
}

func newGraph() *Graph {
	return &Graph{}
}

// add places a new node in parent's context. A context holds at most one
// binding per name; a second binding for a name is kept in the arena but
// not made visible.
func (g *Graph) add(meta *npm.VersionMeta, parent NodeID) *Node {
	n := &Node{
		ID:      NodeID(len(g.nodes)),
		Name:    meta.Name,
		Version: meta.Version,
		Meta:    meta,
		Parent:  parent,
	}
	g.nodes = append(g.nodes, n)
	g.edges = append(g.edges, nil)
	g.incoming = append(g.incoming, nil)
	g.contexts = append(g.contexts, nil)
	if parent != NoParent {
		ctx := g.contexts[parent]
		if ctx == nil {
			ctx = map[string]NodeID{}
			g.contexts[parent] = ctx
		}
		if _, taken := ctx[n.Name.String()]; !taken {
			ctx[n.Name.String()] = n.ID
		}
	}
	return n
}

func (g *Graph) addEdge(from NodeID, d Dep) {
	g.edges[from] = append(g.edges[from], d)
	g.incoming[d.To] = append(g.incoming[d.To], from)
}

// visible returns the nearest binding of name seen from node id: its own
// context first, then each ancestor's.
func (g *Graph) visible(id NodeID, name npm.PackageName) (NodeID, bool) {
	for ctx := id; ctx != NoParent; ctx = g.nodes[ctx].Parent {
		if b, ok := g.contexts[ctx][name.String()]; ok {
			return b, true
		}
	}
	return 0, false
}

// reaches reports whether to is reachable from from along edges.
func (g *Graph) reaches(from, to NodeID) bool {
	if from == to {
		return true
	}
	seen := make([]bool, len(g.nodes))
	stack := []NodeID{from}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, d := range g.edges[id] {
			if d.To == to {
				return true
			}
			if !seen[d.To] {
				seen[d.To] = true
				stack = append(stack, d.To)
			}
		}
	}
	return false
}

// Root returns the root node.
func (g *Graph) Root() *Node { return g.nodes[0] }

// Stats returns counters recorded while the graph was resolved.
func (g *Graph) Stats() Stats { return g.stats }

// Node returns the node with the given id.
func (g *Graph) Node(id NodeID) *Node { return g.nodes[id] }

// Nodes returns all nodes in creation order (root first).
func (g *Graph) Nodes() []*Node { return slices.Clone(g.nodes) }

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of dependency edges, excluding cycle
// back-references.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, es := range g.edges {
		n += len(es)
	}
	return n
}

// Deps returns the dependency edges of id in name order.
func (g *Graph) Deps(id NodeID) []Dep { return slices.Clone(g.edges[id]) }

// Children returns the edge targets of id.
func (g *Graph) Children(id NodeID) []NodeID {
	out := make([]NodeID, len(g.edges[id]))
	for i, d := range g.edges[id] {
		out[i] = d.To
	}
	return out
}

// Requirers returns the nodes with an edge to id.
func (g *Graph) Requirers(id NodeID) []NodeID { return slices.Clone(g.incoming[id]) }

// Lookup returns every node bound for name, in creation order.
func (g *Graph) Lookup(name npm.PackageName) []*Node {
	var out []*Node
	for _, n := range g.nodes {
		if n.Name == name {
			out = append(out, n)
		}
	}
	return out
}

// InstallPath returns the node's location relative to the top-level
// node_modules directory, e.g. "app/node_modules/a/node_modules/b".
func (g *Graph) InstallPath(id NodeID) string {
	var parts []string
	for n := g.nodes[id]; ; n = g.nodes[n.Parent] {
		parts = append(parts, n.Name.String())
		if n.Parent == NoParent {
			break
		}
	}
	slices.Reverse(parts)
	return strings.Join(parts, "/node_modules/")
}

// DependencyMap returns name to version for every dependency of id,
// back-references included.
func (g *Graph) DependencyMap(id NodeID) map[string]string {
	out := map[string]string{}
	for _, d := range g.edges[id] {
		out[d.Name.String()] = g.nodes[d.To].Version.String()
	}
	for _, d := range g.nodes[id].Cycles {
		out[d.Name.String()] = g.nodes[d.To].Version.String()
	}
	return out
}

// Walk visits every node once in post-order (dependencies before their
// requirers, root last). Siblings are visited in name order. Walk stops at
// the first error fn returns.
func (g *Graph) Walk(fn func(*Node) error) error {
	visited := make([]bool, len(g.nodes))
	var visit func(NodeID) error
	visit = func(id NodeID) error {
		visited[id] = true
		for _, d := range g.edges[id] {
			if !visited[d.To] {
				if err := visit(d.To); err != nil {
					return err
				}
			}
		}
		return fn(g.nodes[id])
	}
	if len(g.nodes) == 0 {
		return nil
	}
	return visit(0)
}

// Order returns the node ids in [Graph.Walk] order.
func (g *Graph) Order() []NodeID {
	out := make([]NodeID, 0, len(g.nodes))
	_ = g.Walk(func(n *Node) error {
		out = append(out, n.ID)
		return nil
	})
	return out
}

// Validate checks that the edges form a DAG.
func (g *Graph) Validate() error {
	const (
		white = iota
		gray
		black
	)

	color := make([]int, len(g.nodes))
	var hasCycle bool

	var dfs func(id NodeID)
	dfs = func(id NodeID) {
		color[id] = gray
		for _, d := range g.edges[id] {
			switch color[d.To] {
			case white:
				dfs(d.To)
			case gray:
				hasCycle = true
				return
			}
		}
		color[id] = black
	}

	for id := range g.nodes {
		if color[id] == white {
			dfs(NodeID(id))
			if hasCycle {
				return ErrGraphHasCycle
			}
		}
	}
	return nil
}
