package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/npym/pkg/resolve"
)

// DOTOptions configures Graphviz output.
type DOTOptions struct {
	// Detailed adds the install path to node labels.
	Detailed bool
}

// ToDOT converts a resolution graph to Graphviz DOT source. Nodes nested
// below the root's node_modules are drawn with a grey fill; back-references
// are dashed and do not constrain ranking.
func ToDOT(g *resolve.Graph, opts DOTOptions) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	root := g.Root().ID
	for _, n := range g.Nodes() {
		label := nodeLabel(n)
		if opts.Detailed {
			label += "\n" + g.InstallPath(n.ID)
		}
		attrs := fmt.Sprintf("label=%q", label)
		switch {
		case n.ID == root:
			attrs += ", penwidth=2"
		case n.Parent != root:
			attrs += ", fillcolor=lightgrey"
		}
		fmt.Fprintf(&buf, "  n%d [%s];\n", n.ID, attrs)
	}

	buf.WriteString("\n")
	for _, n := range g.Nodes() {
		for _, d := range g.Deps(n.ID) {
			fmt.Fprintf(&buf, "  n%d -> n%d;\n", n.ID, d.To)
		}
		for _, d := range n.Cycles {
			fmt.Fprintf(&buf, "  n%d -> n%d [style=dashed, constraint=false];\n", n.ID, d.To)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders DOT source to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based svg header with one
// sized from the viewBox so browsers scale the drawing.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(header))
}
