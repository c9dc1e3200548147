package bridge

import (
	"context"
	stderrors "errors"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/npym/pkg/catalog"
	"github.com/matzehuels/npym/pkg/errors"
	"github.com/matzehuels/npym/pkg/events"
	"github.com/matzehuels/npym/pkg/npm"
	"github.com/matzehuels/npym/pkg/objectstore"
	"github.com/matzehuels/npym/pkg/resolve"
	"github.com/matzehuels/npym/pkg/semver"
	"github.com/matzehuels/npym/pkg/wheel"
)

// Runner executes bridge runs. It holds no per-run state, so one Runner
// can serve concurrent runs with different options.
type Runner struct {
	Metadata resolve.MetadataProvider
	Source   npm.Source
	Logger   *log.Logger

	Catalog catalog.Catalog
	Store   objectstore.Store
	Events  events.Publisher
}

// NewRunner creates a runner with an in-memory catalog, no object store
// and no event publisher. A nil logger means log.Default().
func NewRunner(metadata resolve.MetadataProvider, source npm.Source, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Metadata: metadata,
		Source:   source,
		Logger:   logger,
		Catalog:  catalog.NewMemory(),
		Store:    objectstore.NewNullStore(),
		Events:   events.NewNullPublisher(),
	}
}

// Stats contains run statistics.
type Stats struct {
	NodeCount   int
	EdgeCount   int
	Iterations  int
	Fetches     int64
	Wheels      int
	Bytes       int64
	ResolveTime time.Duration
	EmitTime    time.Duration
}

// Result is the outcome of a successful bridge run.
type Result struct {
	RunID string
	Graph *resolve.Graph

	// Artifacts are in dependency post-order; the root wheel is last.
	Artifacts []*wheel.Artifact

	Stats Stats
}

// Root returns the root wheel.
func (r *Result) Root() *wheel.Artifact {
	if len(r.Artifacts) == 0 {
		return nil
	}
	return r.Artifacts[len(r.Artifacts)-1]
}

// Resolve parses expr and resolves root's dependency graph. An empty expr
// means "latest".
func (r *Runner) Resolve(ctx context.Context, root npm.PackageName, expr string, opts Options) (*resolve.Graph, error) {
	if err := opts.setDefaults(); err != nil {
		return nil, err
	}
	if root.IsZero() {
		return nil, errors.New(errors.ErrCodeInvalidPackage, "package name cannot be empty")
	}
	if expr == "" {
		expr = "latest"
	}
	spec, err := semver.ParseSpec(expr)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res := resolve.New(r.Metadata, resolve.Options{
		IncludeOptional: opts.IncludeOptional,
		Workers:         opts.Workers,
		Logger:          r.Logger,
	})
	g, err := res.Resolve(ctx, root, spec)
	if err != nil {
		return nil, err
	}
	st := g.Stats()
	r.Logger.Info("resolved graph",
		"root", g.Root().Name,
		"version", g.Root().Version,
		"nodes", g.NodeCount(),
		"iterations", st.Iterations,
		"fetches", st.Fetches,
		"duration", time.Since(start))
	return g, nil
}

// Bridge resolves root and commits one wheel per graph node to opts.Dest.
func (r *Runner) Bridge(ctx context.Context, root npm.PackageName, expr string, opts Options) (*Result, error) {
	result := &Result{RunID: uuid.NewString()}
	logger := r.Logger.With("run", result.RunID)
	if opts.Wheel.Logger == nil {
		opts.Wheel.Logger = logger
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	resolveStart := time.Now()
	g, err := r.Resolve(ctx, root, expr, opts)
	if err != nil {
		return nil, err
	}
	result.Graph = g
	result.Stats.ResolveTime = time.Since(resolveStart)
	result.Stats.NodeCount = g.NodeCount()
	result.Stats.EdgeCount = g.EdgeCount()
	result.Stats.Iterations = g.Stats().Iterations
	result.Stats.Fetches = g.Stats().Fetches

	if err := os.MkdirAll(opts.Dest, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodePackaging, err, "create %s", opts.Dest)
	}

	emitStart := time.Now()
	emitter := wheel.NewEmitter(r.Source, opts.Dest, opts.Wheel)
	artifacts, err := r.emitAll(ctx, emitter, g, opts)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.Stats.EmitTime = time.Since(emitStart)
	result.Stats.Wheels = len(artifacts)
	for _, a := range artifacts {
		result.Stats.Bytes += a.Size
	}
	logger.Info("emitted wheels",
		"wheels", len(artifacts),
		"bytes", result.Stats.Bytes,
		"duration", result.Stats.EmitTime)

	r.publish(ctx, logger, result, expr)
	return result, nil
}

// emitAll emits every distinct wheel of g in post-order. The first failure
// stops emissions that have not started yet.
func (r *Runner) emitAll(ctx context.Context, emitter *wheel.Emitter, g *resolve.Graph, opts Options) ([]*wheel.Artifact, error) {
	order, err := distinct(g, opts.Wheel.PlatformTag)
	if err != nil {
		return nil, err
	}

	emitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		failures []EmitFailure
	)
	out := make([]*wheel.Artifact, len(order))

	eg := new(errgroup.Group)
	eg.SetLimit(opts.EmitWorkers)
	for i, id := range order {
		eg.Go(func() error {
			if emitCtx.Err() != nil {
				return nil
			}
			a, err := emitter.Emit(emitCtx, g, id)
			if err != nil {
				// Emissions cancelled by an earlier failure are not failures.
				if emitCtx.Err() != nil && ctx.Err() == nil && isContextErr(err) {
					return nil
				}
				mu.Lock()
				failures = append(failures, EmitFailure{Node: label(g.Node(id)), Err: err})
				mu.Unlock()
				cancel()
				return nil
			}
			out[i] = a
			return nil
		})
	}
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(failures) == 0 {
		return out, nil
	}

	committed := make([]*wheel.Artifact, 0, len(out))
	for _, a := range out {
		if a != nil {
			committed = append(committed, a)
		}
	}
	r.Logger.Error("emission failed", "failed", len(failures), "committed", len(committed))
	return nil, errors.Wrap(errors.ErrCodePackaging,
		&EmitError{Committed: committed, Failed: failures},
		"emitted %d of %d wheels", len(committed), len(order))
}

// distinct returns the post-order node ids with one node per wheel
// filename. The root is always last.
func distinct(g *resolve.Graph, tag string) ([]resolve.NodeID, error) {
	seen := make(map[string]bool)
	var out []resolve.NodeID
	for _, id := range g.Order() {
		ident, err := wheel.Identify(g, id, tag)
		if err != nil {
			return nil, err
		}
		if seen[ident.Filename] {
			continue
		}
		seen[ident.Filename] = true
		out = append(out, id)
	}
	return out, nil
}

func isContextErr(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}

func label(n *resolve.Node) string {
	return n.Name.String() + "@" + n.Version.String()
}
