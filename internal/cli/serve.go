package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/npym/internal/server"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		bf   bridgeFlags
		rf   runnerFlags
		addr string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve built wheels as a Python package index",
		Long: `Serve built wheels as a Python package index.

The server exposes a PEP 503 simple index of every wheel recorded in the
catalog and builds new ones on POST /api/bridge:

  curl -d '{"name":"left-pad","range":"^1"}' localhost:8080/api/bridge
  pip install --index-url http://localhost:8080/simple/ npym.left-pad`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.bridgeOptions(cmd, bf)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("addr") {
				addr = c.settings().Server.Addr
			}

			ctx := cmd.Context()
			runner, cleanup, err := c.newRunner(ctx, rf, true)
			if err != nil {
				return err
			}
			defer cleanup()

			printInfo("Serving %s on %s", opts.Dest, StyleLink.Render("http://"+displayAddr(addr)+"/simple/"))
			return server.New(runner, opts, c.Logger).ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	bf.register(cmd, true)
	rf.register(cmd)
	return cmd
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
