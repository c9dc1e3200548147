package wheel

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"

	"github.com/matzehuels/npym/pkg/buildinfo"
	"github.com/matzehuels/npym/pkg/errors"
	"github.com/matzehuels/npym/pkg/npm"
	"github.com/matzehuels/npym/pkg/observability"
	"github.com/matzehuels/npym/pkg/resolve"
	"github.com/matzehuels/npym/pkg/semver"
)

// DefaultPlatformTag is the compatibility tag of every emitted wheel.
const DefaultPlatformTag = "py3-none-any"

// DefaultRuntimeRequirement is the specifier for the npym runtime declared
// by wheels that expose console scripts.
const DefaultRuntimeRequirement = ">=0.0.0"

// zipEpoch is the earliest timestamp a zip entry can carry.
var zipEpoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// PinMode selects how Requires-Dist constrains dependency wheels.
type PinMode string

const (
	// PinExact requires the exact version the resolver chose.
	PinExact PinMode = "exact"
	// PinRange requires the PEP 440 rendering of the declared range.
	PinRange PinMode = "range"
)

// ParsePinMode validates s. The empty string means [PinExact].
func ParsePinMode(s string) (PinMode, error) {
	switch PinMode(s) {
	case "", PinExact:
		return PinExact, nil
	case PinRange:
		return PinRange, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "pin mode must be %q or %q, got %q", PinExact, PinRange, s)
}

// Options configures an [Emitter].
type Options struct {
	PlatformTag        string  // default DefaultPlatformTag
	Pin                PinMode // default PinExact
	RuntimeRequirement string  // default DefaultRuntimeRequirement
	Generator          string  // default "npym <build version>"

	// Logger receives debug output. Nil means log.Default().
	Logger *log.Logger
}

// WithDefaults returns a copy of o with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	if o.PlatformTag == "" {
		o.PlatformTag = DefaultPlatformTag
	}
	if o.Pin == "" {
		o.Pin = PinExact
	}
	if o.RuntimeRequirement == "" {
		o.RuntimeRequirement = DefaultRuntimeRequirement
	}
	if o.Generator == "" {
		o.Generator = "npym " + buildinfo.Version
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// Artifact describes a committed wheel.
type Artifact struct {
	Package        npm.PackageName `json:"package"`
	PackageVersion semver.Version  `json:"package_version"`
	Distribution   string          `json:"distribution"`
	Version        string          `json:"version"`
	Filename       string          `json:"filename"`
	Path           string          `json:"path"`
	InstallPath    string          `json:"install_path"`
	Requires       []Requirement   `json:"requires,omitempty"`
	SHA256         string          `json:"sha256"`
	Size           int64           `json:"size"`
	Root           bool            `json:"root,omitempty"`
}

// Emitter writes wheels for graph nodes into a destination directory.
// It is safe for concurrent use on distinct nodes.
type Emitter struct {
	source npm.Source
	dest   string
	opts   Options
}

// NewEmitter creates an emitter reading package files from source and
// committing wheels to dest.
func NewEmitter(source npm.Source, dest string, opts Options) *Emitter {
	return &Emitter{source: source, dest: dest, opts: opts.WithDefaults()}
}

// Dest returns the destination directory.
func (e *Emitter) Dest() string { return e.dest }

// Emit builds and commits the wheel for node id of g. Failures are
// PACKAGING_ERROR; cancellation returns ctx.Err(). Either way no partial
// file is left in the destination.
func (e *Emitter) Emit(ctx context.Context, g *resolve.Graph, id resolve.NodeID) (*Artifact, error) {
	n := g.Node(id)
	hooks := observability.Emit()
	hooks.OnEmitStart(ctx, n.Name.String(), n.Version.String())

	start := time.Now()
	a, err := e.emit(ctx, g, id)

	var (
		filename string
		size     int64
	)
	if a != nil {
		filename, size = a.Filename, a.Size
	}
	hooks.OnEmitComplete(ctx, filename, size, time.Since(start), err)
	return a, err
}

func (e *Emitter) emit(ctx context.Context, g *resolve.Graph, id resolve.NodeID) (*Artifact, error) {
	n := g.Node(id)
	label := n.Name.String() + "@" + n.Version.String()

	ident, err := Identify(g, id, e.opts.PlatformTag)
	if err != nil {
		return nil, err
	}
	eps := entryPoints(n.Meta.Bin)
	requires, err := e.requirements(g, id, len(eps) > 0)
	if err != nil {
		return nil, err
	}

	tree, err := e.source.Files(ctx, n.Meta)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.GetCode(err) == "" {
			err = errors.Wrap(errors.ErrCodePackaging, err, "files of %s", label)
		}
		return nil, err
	}
	if _, ok := tree.Lookup("package.json"); !ok {
		return nil, errors.New(errors.ErrCodePackaging, "%s: package has no package.json", label)
	}

	installPath := g.InstallPath(id)
	entries, err := e.layout(ident, n.Meta, installPath, tree, eps, requires)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodePackaging, err, "lay out %s", label)
	}

	path, sum, size, err := e.commit(ctx, ident.Filename, entries)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(errors.ErrCodePackaging, err, "write %s", ident.Filename)
	}

	return &Artifact{
		Package:        n.Name,
		PackageVersion: n.Version,
		Distribution:   ident.Distribution,
		Version:        ident.Version,
		Filename:       ident.Filename,
		Path:           path,
		InstallPath:    installPath,
		Requires:       requires,
		SHA256:         sum,
		Size:           size,
		Root:           id == g.Root().ID,
	}, nil
}

// requirements lists the wheels of every direct dependency, back-references
// included, sorted by distribution name. Wheels with console scripts also
// require the npym runtime.
func (e *Emitter) requirements(g *resolve.Graph, id resolve.NodeID, runtime bool) ([]Requirement, error) {
	deps := append(g.Deps(id), g.Node(id).Cycles...)
	out := make([]Requirement, 0, len(deps)+1)
	if runtime {
		out = append(out, Requirement{Distribution: Namespace, Specifier: e.opts.RuntimeRequirement})
	}
	for _, d := range deps {
		child, err := Identify(g, d.To, e.opts.PlatformTag)
		if err != nil {
			return nil, err
		}
		spec := "==" + child.Version
		if e.opts.Pin == PinRange {
			// A range with no PEP 440 form keeps the exact pin.
			if s, err := d.Spec.PEP440(); err == nil {
				spec = s
			} else {
				e.opts.Logger.Debug("range has no PEP 440 form, pinning exact version",
					"dependency", child.Distribution, "range", d.Spec.String(), "pin", spec, "err", err)
			}
		}
		out = append(out, Requirement{Distribution: child.Distribution, Specifier: spec})
	}
	slices.SortFunc(out, func(a, b Requirement) int { return strings.Compare(a.Distribution, b.Distribution) })
	return out, nil
}

type entry struct {
	name string
	mode fs.FileMode
	data []byte
}

// layout assembles the archive entries: package files and generated
// modules in path order, then .dist-info with RECORD last.
func (e *Emitter) layout(ident Identity, meta *npm.VersionMeta, installPath string, tree *npm.FileTree, eps []entryPoint, requires []Requirement) ([]entry, error) {
	var entries []entry
	prefix := Namespace + "/node_modules/" + installPath + "/"
	for _, f := range tree.Files {
		if err := errors.ValidatePath(f.Path); err != nil {
			return nil, err
		}
		entries = append(entries, entry{name: prefix + f.Path, mode: f.Mode, data: f.Data})
	}

	distInfo := EscapeName(ident.Distribution) + "-" + strings.ReplaceAll(ident.Version, "-", "_") + ".dist-info"
	info := []entry{
		{name: distInfo + "/WHEEL", data: wheelFile(e.opts.Generator, e.opts.PlatformTag)},
		{name: distInfo + "/METADATA", data: metadataFile(ident, meta, requires)},
	}
	if lic := licenseFile(meta); lic != nil {
		info = append(info, entry{name: distInfo + "/LICENSE", data: lic})
	}

	if len(eps) > 0 {
		module := moduleName(ident.Distribution)
		dir := strings.ReplaceAll(module, ".", "/")
		entries = append(entries, entry{name: dir + "/__init__.py", data: initFile(installPath, eps)})
		if len(eps) == 1 {
			entries = append(entries, entry{name: dir + "/__main__.py", data: mainFile(module, eps[0])})
		}
		info = append(info, entry{name: distInfo + "/entry_points.txt", data: entryPointsFile(module, eps)})
	}

	byName := func(a, b entry) int { return strings.Compare(a.name, b.name) }
	slices.SortFunc(entries, byName)
	slices.SortFunc(info, byName)
	entries = append(entries, info...)

	record := distInfo + "/RECORD"
	entries = append(entries, entry{name: record, data: recordFile(entries, record)})
	return entries, nil
}

// commit writes the archive to a temporary file next to its final name,
// syncs it and renames it into place.
func (e *Emitter) commit(ctx context.Context, filename string, entries []entry) (string, string, int64, error) {
	if err := os.MkdirAll(e.dest, 0o755); err != nil {
		return "", "", 0, err
	}
	final := filepath.Join(e.dest, filename)
	tmp := filepath.Join(e.dest, "."+filename+"."+uuid.NewString()+".tmp")

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", "", 0, err
	}
	committed := false
	defer func() {
		if !committed {
			f.Close()
			os.Remove(tmp)
		}
	}()

	h := sha256.New()
	cw := &countingWriter{}
	if err := writeZip(ctx, io.MultiWriter(f, h, cw), entries); err != nil {
		return "", "", 0, err
	}
	if err := f.Sync(); err != nil {
		return "", "", 0, err
	}
	if err := f.Close(); err != nil {
		return "", "", 0, err
	}
	if err := ctx.Err(); err != nil {
		return "", "", 0, err
	}
	if err := os.Rename(tmp, final); err != nil {
		return "", "", 0, err
	}
	committed = true
	return final, hex.EncodeToString(h.Sum(nil)), cw.n, nil
}

func writeZip(ctx context.Context, w io.Writer, entries []entry) error {
	zw := zip.NewWriter(w)
	for _, en := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr := &zip.FileHeader{Name: en.name, Method: zip.Deflate, Modified: zipEpoch}
		mode := en.mode
		if mode == 0 {
			mode = 0o644
		}
		hdr.SetMode(mode)
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		if _, err := fw.Write(en.data); err != nil {
			return err
		}
	}
	return zw.Close()
}

type countingWriter struct{ n int64 }

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}
