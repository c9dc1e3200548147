package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/npym/pkg/bridge"
	"github.com/matzehuels/npym/pkg/buildinfo"
	"github.com/matzehuels/npym/pkg/cache"
	"github.com/matzehuels/npym/pkg/catalog"
	"github.com/matzehuels/npym/pkg/config"
	"github.com/matzehuels/npym/pkg/events"
	"github.com/matzehuels/npym/pkg/npm"
	"github.com/matzehuels/npym/pkg/objectstore"
	"github.com/matzehuels/npym/pkg/wheel"
)

// appName is the application name used for directories and display.
const appName = "npym"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "npym installs npm packages with Python tooling",
		Long: `npym resolves an npm package and its dependency tree and turns every
resolved package into a Python wheel. Installing the root wheel with pip
pulls in the whole tree, laid out as node_modules.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/npym/npym.toml)")

	root.AddCommand(c.bridgeCommand())
	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.rangeCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

func (c *CLI) loadConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

// settings returns the loaded configuration, or the defaults when a command
// runs without the root's pre-run hook (tests).
func (c *CLI) settings() *config.Config {
	if c.cfg == nil {
		c.cfg = config.Default()
	}
	return c.cfg
}

// =============================================================================
// Runner Factory
// =============================================================================

// runnerFlags are the flags shared by commands that resolve packages.
type runnerFlags struct {
	noCache bool
	refresh bool
}

func (f *runnerFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the registry cache")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "bypass cached registry metadata")
}

// newRunner wires a bridge runner from the configuration. The returned
// function releases cache, catalog and publisher connections.
func (c *CLI) newRunner(ctx context.Context, f runnerFlags, sinks bool) (*bridge.Runner, func(), error) {
	cfg := c.settings()
	ch, err := newCache(ctx, cfg, f.noCache)
	if err != nil {
		return nil, nil, err
	}
	ttl, err := cfg.CacheTTL()
	if err != nil {
		return nil, nil, err
	}

	client := npm.NewClient(ch, ttl, npm.WithRegistry(cfg.Registry), npm.WithRefresh(f.refresh))
	runner := bridge.NewRunner(client, npm.NewTarballSource(ch, nil), c.Logger)
	closers := []func() error{ch.Close}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				c.Logger.Debug("close failed", "err", err)
			}
		}
	}
	if !sinks {
		return runner, cleanup, nil
	}

	cat, err := catalog.Open(ctx, cfg.Catalog.Backend, cfg.Catalog.URL, cfg.Catalog.Database)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	runner.Catalog = cat
	closers = append(closers, cat.Close)

	if p := cfg.Publish; p.Endpoint != "" {
		store, err := objectstore.NewMinIOStore(ctx, objectstore.Config{
			Endpoint:  p.Endpoint,
			AccessKey: p.AccessKey,
			SecretKey: p.SecretKey,
			Bucket:    p.Bucket,
			Secure:    p.Secure,
			Prefix:    p.Prefix,
		})
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		runner.Store = store
	}

	if cfg.Events.Brokers != "" {
		pub, err := events.NewKafkaPublisher(cfg.Events.Brokers, cfg.Events.Topic)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		runner.Events = pub
		closers = append(closers, pub.Close)
	}
	return runner, cleanup, nil
}

func newCache(ctx context.Context, cfg *config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Cache.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheRedis:
		return cache.NewRedisCache(ctx, cfg.Cache.RedisURL)
	}
	dir, err := cacheDir(cfg)
	if err != nil {
		return cache.NewNullCache(), nil
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, err
	}
	return fc, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the configured cache directory, defaulting to
// ~/.cache/npym.
func cacheDir(cfg *config.Config) (string, error) {
	if cfg.Cache.Dir != "" {
		return cfg.Cache.Dir, nil
	}
	return cache.DefaultDir()
}

// =============================================================================
// Options Helpers
// =============================================================================

// bridgeFlags are the command-line overrides of the bridge settings.
type bridgeFlags struct {
	dest            string
	includeOptional bool
	workers         int
	emitWorkers     int
	pin             string
	platformTag     string
}

func (f *bridgeFlags) register(cmd *cobra.Command, withDest bool) {
	if withDest {
		cmd.Flags().StringVarP(&f.dest, "output", "o", "", "destination directory for wheels (default from config: dist)")
	}
	cmd.Flags().BoolVar(&f.includeOptional, "optional", false, "also resolve optionalDependencies")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "concurrent metadata fetches")
	cmd.Flags().IntVar(&f.emitWorkers, "emit-workers", 0, "concurrent wheel builds")
	cmd.Flags().StringVar(&f.pin, "pin", "", "Requires-Dist pinning: exact or range")
	cmd.Flags().StringVar(&f.platformTag, "platform-tag", "", "wheel compatibility tag")
}

// bridgeOptions merges flags that were set on cmd over the configuration.
func (c *CLI) bridgeOptions(cmd *cobra.Command, f bridgeFlags) (bridge.Options, error) {
	cfg := c.settings()
	opts := bridge.Options{
		Dest:            cfg.Destination,
		IncludeOptional: cfg.IncludeOptional,
		Workers:         cfg.Workers,
		EmitWorkers:     cfg.EmitWorkers,
		Wheel: wheel.Options{
			PlatformTag:        cfg.PlatformTag,
			Pin:                wheel.PinMode(cfg.Pin),
			RuntimeRequirement: cfg.RuntimeRequirement,
		},
	}
	flags := cmd.Flags()
	if flags.Changed("output") && f.dest != "" {
		opts.Dest = f.dest
	}
	if flags.Changed("optional") {
		opts.IncludeOptional = f.includeOptional
	}
	if flags.Changed("workers") {
		opts.Workers = f.workers
	}
	if flags.Changed("emit-workers") {
		opts.EmitWorkers = f.emitWorkers
	}
	if flags.Changed("platform-tag") {
		opts.Wheel.PlatformTag = f.platformTag
	}
	if flags.Changed("pin") {
		pin, err := wheel.ParsePinMode(f.pin)
		if err != nil {
			return bridge.Options{}, err
		}
		opts.Wheel.Pin = pin
	}
	return opts, nil
}

// parseTarget splits "<name> [range]" arguments.
func parseTarget(args []string) (npm.PackageName, string, error) {
	name, err := npm.ParseName(args[0])
	if err != nil {
		return npm.PackageName{}, "", err
	}
	expr := ""
	if len(args) > 1 {
		expr = args[1]
	}
	return name, expr, nil
}
