package wheel

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/matzehuels/npym/pkg/errors"
	"github.com/matzehuels/npym/pkg/npm"
	"github.com/matzehuels/npym/pkg/resolve"
	"github.com/matzehuels/npym/pkg/semver"
)

// Namespace is the top-level Python package every wheel installs into.
const Namespace = "npym"

var (
	nonAlnum      = regexp.MustCompile(`[^a-z0-9]+`)
	nonModuleChar = regexp.MustCompile(`[^a-z0-9.]+`)
	escapeRun     = regexp.MustCompile(`[-_.]+`)
)

// DistributionName returns the Python distribution name for an npm
// package: "npym.<scope>.<name>" with each segment lowercased, runs of
// other characters collapsed to "-", and a digit-leading segment prefixed
// with "n". A segment with nothing left becomes "undefined".
//
//	left-pad                   → npym.left-pad
//	@14islands/r3f-scroll-rig  → npym.n14islands.r3f-scroll-rig
func DistributionName(name npm.PackageName) string {
	parts := []string{Namespace}
	if name.Scope() != "" {
		parts = append(parts, pySegment(name.Scope()))
	}
	parts = append(parts, pySegment(name.Bare()))
	return strings.Join(parts, ".")
}

func pySegment(s string) string {
	s = strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(s), "-"), "-")
	switch {
	case s == "":
		return "undefined"
	case s[0] >= '0' && s[0] <= '9':
		return "n" + s
	}
	return s
}

// EscapeName escapes a distribution name for use in file names, following
// the binary distribution format: runs of "-", "_" and "." become "_".
func EscapeName(dist string) string {
	return escapeRun.ReplaceAllString(strings.ToLower(dist), "_")
}

// Filename returns the wheel file name for a distribution.
func Filename(dist, version, tag string) string {
	return EscapeName(dist) + "-" + strings.ReplaceAll(version, "-", "_") + "-" + tag + ".whl"
}

// moduleName returns the importable module path for a distribution:
// "npym.left-pad.x1a2b3c4d" → "npym.left_pad.x1a2b3c4d".
func moduleName(dist string) string {
	return nonModuleChar.ReplaceAllString(dist, "_")
}

// Identity is the name under which a graph node is published.
type Identity struct {
	Distribution string // Python distribution name
	Version      string // PEP 440 version
	Filename     string
}

// Identify computes the identity of node id. The root keeps its plain
// distribution name; other nodes get a suffix derived from their position
// in the graph.
func Identify(g *resolve.Graph, id resolve.NodeID, tag string) (Identity, error) {
	n := g.Node(id)
	version, err := semver.PEP440Version(n.Version)
	if err != nil {
		return Identity{}, errors.Wrap(errors.ErrCodePackaging, err, "version of %s", n.Name)
	}

	dist := DistributionName(n.Name)
	if id != g.Root().ID {
		root := g.Root()
		dist += ".x" + signature(root.Name.String(), root.Version.String(), g.InstallPath(id), n.Meta.Dependencies)
	}
	return Identity{
		Distribution: dist,
		Version:      version,
		Filename:     Filename(dist, version, tag),
	}, nil
}

// signature hashes the node's placement: the first 8 hex digits of SHA-256
// over a canonical JSON document of the root, the install path and the
// declared dependencies.
func signature(rootName, rootVersion, path string, deps []npm.Dependency) string {
	declared := make(pyObject, 0, len(deps))
	for _, d := range deps {
		declared = append(declared, pyField{Key: d.Name.String(), Value: d.Range})
	}
	sortFields(declared)
	return hashData(pyObject{
		{Key: "dependencies", Value: declared},
		{Key: "name", Value: rootName},
		{Key: "path", Value: path},
		{Key: "version", Value: rootVersion},
	})
}

func hashData(v any) string {
	var b strings.Builder
	writePyJSON(&b, v)
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])[:8]
}
