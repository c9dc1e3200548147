package render

import (
	"strings"

	"github.com/matzehuels/npym/pkg/resolve"
)

// Tree renders g like `npm ls`: every dependency edge once, with nodes
// that were already printed marked "deduped" and back-references marked
// "cycle". Nested bindings show where they are installed.
func Tree(g *resolve.Graph) string {
	var b strings.Builder
	root := g.Root()
	b.WriteString(nodeLabel(root))
	b.WriteByte('\n')

	printed := map[resolve.NodeID]bool{root.ID: true}
	var walk func(id resolve.NodeID, prefix string)
	walk = func(id resolve.NodeID, prefix string) {
		n := g.Node(id)
		deps := append(g.Deps(id), n.Cycles...)
		cycles := len(deps) - len(n.Cycles)
		for i, d := range deps {
			last := i == len(deps)-1
			branch, indent := "├── ", "│   "
			if last {
				branch, indent = "└── ", "    "
			}
			child := g.Node(d.To)

			b.WriteString(prefix + branch + nodeLabel(child))
			var notes []string
			if child.Parent == id && id != root.ID {
				notes = append(notes, "nested")
			}
			if d.Optional {
				notes = append(notes, "optional")
			}
			switch {
			case i >= cycles:
				notes = append(notes, "cycle")
			case printed[d.To]:
				notes = append(notes, "deduped")
			}
			if len(notes) > 0 {
				b.WriteString(" (" + strings.Join(notes, ", ") + ")")
			}
			b.WriteByte('\n')

			if i < cycles && !printed[d.To] {
				printed[d.To] = true
				walk(d.To, prefix+indent)
			}
		}
	}
	walk(root.ID, "")
	return b.String()
}

func nodeLabel(n *resolve.Node) string {
	return n.Name.String() + "@" + n.Version.String()
}
