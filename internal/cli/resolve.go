package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/npym/pkg/bridge"
	"github.com/matzehuels/npym/pkg/npm"
	"github.com/matzehuels/npym/pkg/render"
	"github.com/matzehuels/npym/pkg/resolve"
)

type resolveOpts struct {
	format string
	output string
	browse bool
}

// resolveCommand creates the resolve command.
func (c *CLI) resolveCommand() *cobra.Command {
	var (
		bf bridgeFlags
		rf runnerFlags
		ro = resolveOpts{format: string(render.FormatText)}
	)

	cmd := &cobra.Command{
		Use:   "resolve <package> [range]",
		Short: "Resolve a dependency graph without building wheels",
		Long: `Resolve a dependency graph without building wheels.

Formats:
  text   npm ls style tree (default)
  json   lock file
  yaml   lock file
  dot    Graphviz source
  svg    rendered graph

Examples:
  npym resolve express
  npym resolve express "^4" -f yaml -o express.lock.yaml
  npym resolve express --browse`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, expr, err := parseTarget(args)
			if err != nil {
				return err
			}
			format, err := render.ParseFormat(ro.format)
			if err != nil {
				return err
			}
			opts, err := c.bridgeOptions(cmd, bf)
			if err != nil {
				return err
			}
			return c.runResolve(cmd.Context(), name, expr, opts, rf, ro, format)
		},
	}

	cmd.Flags().StringVarP(&ro.format, "format", "f", ro.format, "output format: text, json, yaml, dot, svg")
	cmd.Flags().StringVarP(&ro.output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().BoolVar(&ro.browse, "browse", false, "explore the graph interactively")
	bf.register(cmd, false)
	rf.register(cmd)
	return cmd
}

func (c *CLI) runResolve(ctx context.Context, name npm.PackageName, expr string, opts bridge.Options, rf runnerFlags, ro resolveOpts, format render.Format) error {
	runner, cleanup, err := c.newRunner(ctx, rf, false)
	if err != nil {
		return err
	}
	defer cleanup()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Resolving %s...", name))
	spinner.Start()
	g, err := runner.Resolve(ctx, name, expr, opts)
	if err != nil {
		spinner.StopWithError("Resolution failed")
		return err
	}
	spinner.Stop()

	if ro.browse {
		return browse(g)
	}
	if ro.output == "" {
		return render.Write(ctx, os.Stdout, g, format)
	}
	if err := writeFile(ro.output, func(w io.Writer) error {
		return render.Write(ctx, w, g, format)
	}); err != nil {
		return err
	}
	printSuccess("Resolved %s@%s", g.Root().Name, g.Root().Version)
	printStats(g.NodeCount(), 0, 0)
	printFile(ro.output)
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func browse(g *resolve.Graph) error {
	_, err := tea.NewProgram(newGraphModel(g), tea.WithAltScreen()).Run()
	return err
}
