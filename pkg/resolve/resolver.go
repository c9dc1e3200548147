package resolve

import (
	"context"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/npym/pkg/errors"
	"github.com/matzehuels/npym/pkg/npm"
	"github.com/matzehuels/npym/pkg/observability"
	"github.com/matzehuels/npym/pkg/semver"
)

// DefaultWorkers is the default number of concurrent metadata prefetches.
const DefaultWorkers = 16

// Options configures a [Resolver].
type Options struct {
	// IncludeOptional resolves optionalDependencies. An optional dependency
	// that cannot be fetched or satisfied is skipped.
	IncludeOptional bool

	// Workers bounds concurrent metadata prefetches. Zero means
	// DefaultWorkers.
	Workers int

	// Logger receives debug output. Nil means log.Default().
	Logger *log.Logger
}

// WithDefaults returns a copy of o with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// Stats describes one resolution.
type Stats struct {
	Iterations int   // graph builds until the requirement set was stable
	Fetches    int64 // registry lookups, each name at most once
}

// Resolver computes resolution graphs from registry metadata.
// A Resolver is safe for concurrent use; each call gets its own memo.
type Resolver struct {
	provider MetadataProvider
	opts     Options
}

// New creates a resolver reading metadata from provider.
func New(provider MetadataProvider, opts Options) *Resolver {
	return &Resolver{provider: provider, opts: opts.WithDefaults()}
}

// Resolve selects the greatest version of root satisfying spec and resolves
// its dependency closure.
//
// Errors carry a code from package errors: INVALID_RANGE_SYNTAX for a
// malformed dependency spec, UNSATISFIABLE_CONSTRAINT (cause
// [*UnsatisfiableError]) when no published version fits, and
// METADATA_FETCH_FAILED (cause [*FetchError]) when the registry fails.
// Cancellation returns ctx.Err() unwrapped.
func (r *Resolver) Resolve(ctx context.Context, root npm.PackageName, spec *semver.Spec) (*Graph, error) {
	start := time.Now()
	hooks := observability.Resolve()
	hooks.OnResolveStart(ctx, root.String(), spec.String())

	memo := NewMemo(ctx, r.provider, r.opts.Workers)
	defer memo.Close()

	g, err := r.resolve(ctx, memo, root, spec)

	nodes := 0
	if g != nil {
		nodes = g.NodeCount()
	}
	hooks.OnResolveComplete(ctx, root.String(), nodes, time.Since(start), err)
	return g, err
}

func (r *Resolver) resolve(ctx context.Context, memo *Memo, root npm.PackageName, spec *semver.Spec) (*Graph, error) {
	ru := &run{
		ctx:      ctx,
		opts:     r.opts,
		memo:     memo,
		rootName: root,
		reqs:     requirements{},
	}

	p, err := ru.fetch(root)
	if err != nil {
		return nil, err
	}
	resolved, err := spec.ResolveTag(p.DistTags)
	if err != nil {
		return nil, ru.unsatisfiable(root, spec, nil)
	}
	v, ok := resolved.MaxSatisfying(p.Versions())
	if !ok {
		return nil, ru.unsatisfiable(root, spec, nil)
	}
	ru.rootMeta, _ = p.Version(v)

	// Phase one grows the requirement set until no build adds to it. Specs
	// from versions an earlier build picked may linger there and block
	// hoisting, so phase two replaces the set with what the last build
	// actually required and rebuilds until the two agree. If that does not
	// settle within maxRefinements builds, or a refined build fails, the
	// phase one graph stands.
	var (
		settled  *Graph
		refining int
	)
	for iter := 1; ; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b := ru.newBuild()
		g, buildErr := b.build()
		if buildErr != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		seen := collect(b.seen)

		if settled == nil {
			if ru.reqs.merge(seen) {
				r.opts.Logger.Debug("requirements changed, rebuilding", "root", root, "iteration", iter, "names", len(ru.reqs), "err", buildErr)
				continue
			}
			if buildErr != nil {
				return nil, buildErr
			}
			g.stats = Stats{Iterations: iter, Fetches: memo.Fetches()}
			if seen.equal(ru.reqs) {
				return g, nil
			}
			settled = g
			r.opts.Logger.Debug("dropping stale requirements", "root", root, "iteration", iter, "names", len(seen))
			ru.reqs = seen
			continue
		}

		refining++
		switch {
		case buildErr != nil:
			r.opts.Logger.Debug("refined build failed, keeping settled graph", "root", root, "err", buildErr)
			return settled, nil
		case seen.equal(ru.reqs):
			g.stats = Stats{Iterations: iter, Fetches: memo.Fetches()}
			return g, nil
		case refining >= maxRefinements:
			r.opts.Logger.Debug("requirements did not settle, keeping settled graph", "root", root, "iterations", iter)
			return settled, nil
		}
		ru.reqs = seen
	}
}

// maxRefinements bounds the builds spent dropping stale requirements.
const maxRefinements = 8

// run holds state shared by all builds of one resolution.
type run struct {
	ctx      context.Context
	opts     Options
	memo     *Memo
	rootName npm.PackageName
	rootMeta *npm.VersionMeta
	reqs     requirements
}

type req struct {
	name npm.PackageName
	spec *semver.Spec
}

// requirements is a (name, spec) set, keyed by name and canonical spec
// text.
type requirements map[string]*requirement

type requirement struct {
	name  npm.PackageName
	specs []*semver.Spec
	keys  map[string]bool
}

func (rs requirements) add(name npm.PackageName, spec *semver.Spec) bool {
	r, ok := rs[name.String()]
	if !ok {
		r = &requirement{name: name, keys: map[string]bool{}}
		rs[name.String()] = r
	}
	key := spec.String()
	if r.keys[key] {
		return false
	}
	r.keys[key] = true
	r.specs = append(r.specs, spec)
	return true
}

func collect(seen []req) requirements {
	rs := requirements{}
	for _, q := range seen {
		rs.add(q.name, q.spec)
	}
	return rs
}

// merge adds every requirement of o and reports whether rs grew.
func (rs requirements) merge(o requirements) bool {
	grew := false
	for _, r := range o {
		for _, spec := range r.specs {
			if rs.add(r.name, spec) {
				grew = true
			}
		}
	}
	return grew
}

func (rs requirements) equal(o requirements) bool {
	if len(rs) != len(o) {
		return false
	}
	for name, r := range rs {
		q, ok := o[name]
		if !ok || len(q.keys) != len(r.keys) {
			return false
		}
		for k := range r.keys {
			if !q.keys[k] {
				return false
			}
		}
	}
	return true
}

func (rs requirements) names() []string {
	out := make([]string, 0, len(rs))
	for n := range rs {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

func (ru *run) fetch(name npm.PackageName) (*npm.Packument, error) {
	p, err := ru.memo.Get(ru.ctx, name)
	if err != nil {
		if ctxErr := ru.ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.Wrap(errors.ErrCodeMetadataFetchFailed, &FetchError{Name: name, Err: err}, "metadata unavailable")
	}
	return p, nil
}

func (ru *run) unsatisfiable(name npm.PackageName, spec *semver.Spec, path []string) error {
	constraints := []string{spec.Raw()}
	if r, ok := ru.reqs[name.String()]; ok {
		for _, s := range r.specs {
			if !slices.Contains(constraints, s.String()) && s.String() != spec.String() {
				constraints = append(constraints, s.String())
			}
		}
	}
	return errors.Wrap(errors.ErrCodeUnsatisfiable, &UnsatisfiableError{
		Name:        name,
		Constraints: constraints,
		Path:        path,
	}, "unsatisfiable constraint")
}

// build is one pass over the dependency closure under a fixed hoisting
// decision.
type build struct {
	*run
	g       *Graph
	hoisted map[string]*npm.VersionMeta
	seen    []req
	stack   []NodeID
}

func (ru *run) newBuild() *build {
	return &build{
		run:     ru,
		g:       newGraph(),
		hoisted: map[string]*npm.VersionMeta{},
	}
}

func (b *build) build() (*Graph, error) {
	b.hoist()
	root := b.g.add(b.rootMeta, NoParent)
	if err := b.expand(root); err != nil {
		return nil, err
	}
	return b.g, nil
}

// hoist picks, for every known name, the greatest published version that
// satisfies all of its accumulated specs. Names without one stay nested.
func (b *build) hoist() {
	for _, name := range b.reqs.names() {
		if name == b.rootName.String() {
			continue
		}
		r := b.reqs[name]
		conj := r.specs[0]
		for _, s := range r.specs[1:] {
			conj = conj.Intersect(s)
		}
		if !conj.Satisfiable() {
			continue
		}
		p, err := b.memo.Get(b.ctx, r.name)
		if err != nil {
			continue
		}
		if v, ok := conj.MaxSatisfying(p.Versions()); ok {
			b.hoisted[name], _ = p.Version(v)
		}
	}
}

type dependency struct {
	npm.Dependency
	optional bool
}

func (b *build) dependencies(meta *npm.VersionMeta) []dependency {
	optional := map[string]bool{}
	for _, d := range meta.OptionalDependencies {
		optional[d.Name.String()] = true
	}
	var out []dependency
	for _, d := range meta.Dependencies {
		if !optional[d.Name.String()] {
			out = append(out, dependency{Dependency: d})
		}
	}
	if b.opts.IncludeOptional {
		for _, d := range meta.OptionalDependencies {
			out = append(out, dependency{Dependency: d, optional: true})
		}
	}
	slices.SortFunc(out, func(a, c dependency) int { return a.Name.Compare(c.Name) })
	return out
}

func (b *build) expand(n *Node) error {
	if err := b.ctx.Err(); err != nil {
		return err
	}
	b.stack = append(b.stack, n.ID)
	defer func() { b.stack = b.stack[:len(b.stack)-1] }()

	deps := b.dependencies(n.Meta)
	names := make([]npm.PackageName, len(deps))
	for i, d := range deps {
		names[i] = d.Name
	}
	b.memo.Prefetch(names...)

	var fresh []*Node
	for _, d := range deps {
		target, created, spec, err := b.place(n, d)
		if err != nil {
			if d.optional && b.ctx.Err() == nil {
				b.opts.Logger.Debug("skipping optional dependency", "requirer", label(n), "dependency", d.Name, "err", err)
				continue
			}
			return err
		}
		dep := Dep{Name: d.Name, Spec: spec, To: target.ID, Optional: d.optional}
		if !created && b.g.reaches(target.ID, n.ID) {
			n.Cycles = append(n.Cycles, dep)
			continue
		}
		b.g.addEdge(n.ID, dep)
		if created {
			fresh = append(fresh, target)
		}
	}
	for _, c := range fresh {
		if err := b.expand(c); err != nil {
			return err
		}
	}
	return nil
}

// place finds or creates the binding that satisfies d for requirer n.
func (b *build) place(n *Node, d dependency) (*Node, bool, *semver.Spec, error) {
	spec, err := semver.ParseSpec(d.Range)
	if err != nil {
		return nil, false, nil, errors.Wrap(errors.ErrCodeInvalidRangeSyntax, err, "%s depends on %s", label(n), d.Name)
	}
	p, err := b.fetch(d.Name)
	if err != nil {
		return nil, false, nil, err
	}
	if spec.Kind() == semver.KindTag {
		resolved, err := spec.ResolveTag(p.DistTags)
		if err != nil {
			return nil, false, nil, b.unsatisfiable(d.Name, spec, b.path())
		}
		spec = resolved
	}
	b.seen = append(b.seen, req{name: d.Name, spec: spec})
	key := d.Name.String()

	if d.Name == b.rootName {
		if root := b.g.Root(); spec.Matches(root.Version) {
			return root, false, spec, nil
		}
		return b.bindFresh(n.ID, d.Name, p, spec)
	}

	if meta, ok := b.hoisted[key]; ok && spec.Matches(meta.Version) {
		if id, ok := b.g.contexts[0][key]; ok && spec.Matches(b.g.nodes[id].Version) {
			return b.g.nodes[id], false, spec, nil
		}
		return b.g.add(meta, 0), true, spec, nil
	}

	if id, ok := b.g.visible(n.ID, d.Name); ok && spec.Matches(b.g.nodes[id].Version) {
		return b.g.nodes[id], false, spec, nil
	}
	return b.bindFresh(n.ID, d.Name, p, spec)
}

func (b *build) bindFresh(ctx NodeID, name npm.PackageName, p *npm.Packument, spec *semver.Spec) (*Node, bool, *semver.Spec, error) {
	v, ok := spec.MaxSatisfying(p.Versions())
	if !ok {
		return nil, false, nil, b.unsatisfiable(name, spec, b.path())
	}
	meta, _ := p.Version(v)
	return b.g.add(meta, ctx), true, spec, nil
}

func (b *build) path() []string {
	out := make([]string, len(b.stack))
	for i, id := range b.stack {
		out[i] = label(b.g.nodes[id])
	}
	return out
}

func label(n *Node) string {
	return n.Name.String() + "@" + n.Version.String()
}
