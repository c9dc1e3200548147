// Package render exports resolution graphs for humans and tools.
//
// # Formats
//
//   - [FormatText]: an npm-ls style tree
//   - [FormatJSON], [FormatYAML]: a [Lock] file listing every binding with
//     its install path, tarball and dependency links
//   - [FormatDOT]: Graphviz source, back-references drawn dashed
//   - [FormatSVG]: the DOT source rendered in-process with
//     [github.com/goccy/go-graphviz]
//
// [Write] dispatches on the format:
//
//	if err := render.Write(ctx, os.Stdout, g, render.FormatYAML); err != nil {
//	    return err
//	}
package render
