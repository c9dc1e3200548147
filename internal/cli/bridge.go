package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/npym/pkg/bridge"
	"github.com/matzehuels/npym/pkg/npm"
)

// bridgeCommand creates the bridge command.
func (c *CLI) bridgeCommand() *cobra.Command {
	var (
		bf bridgeFlags
		rf runnerFlags
	)

	cmd := &cobra.Command{
		Use:   "bridge <package> [range]",
		Short: "Build wheels for an npm package and its dependency tree",
		Long: `Build wheels for an npm package and its dependency tree.

The range defaults to the "latest" dist-tag. One wheel is written per
resolved package; the root wheel requires the others, so installing it
with pip installs the whole tree.

Examples:
  npym bridge left-pad
  npym bridge left-pad "^1.0.0" -o wheels
  npym bridge @types/node 20.x --pin range`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, expr, err := parseTarget(args)
			if err != nil {
				return err
			}
			opts, err := c.bridgeOptions(cmd, bf)
			if err != nil {
				return err
			}
			return c.runBridge(cmd.Context(), name, expr, opts, rf)
		},
	}

	bf.register(cmd, true)
	rf.register(cmd)
	return cmd
}

func (c *CLI) runBridge(ctx context.Context, name npm.PackageName, expr string, opts bridge.Options, rf runnerFlags) error {
	runner, cleanup, err := c.newRunner(ctx, rf, true)
	if err != nil {
		return err
	}
	defer cleanup()

	prog := newProgress(c.Logger)
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Bridging %s...", name))
	spinner.Start()

	res, err := runner.Bridge(ctx, name, expr, opts)
	if err != nil {
		spinner.StopWithError("Bridge failed")
		var emitErr *bridge.EmitError
		if errors.As(err, &emitErr) && len(emitErr.Committed) > 0 {
			printWarning("%d wheel(s) were committed before the failure", len(emitErr.Committed))
			for _, a := range emitErr.Committed {
				printFile(a.Path)
			}
		}
		return err
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Bridged %s", name))

	root := res.Root()
	printSuccess("Built %d wheel(s) for %s@%s", len(res.Artifacts), name, root.PackageVersion)
	printStats(res.Stats.NodeCount, res.Stats.Wheels, res.Stats.Bytes)
	for _, a := range res.Artifacts {
		printFile(a.Path)
	}
	printNextStep("Install with", fmt.Sprintf("pip install --no-index --find-links %s %s==%s", opts.Dest, root.Distribution, root.Version))
	return nil
}
