package wheel

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/csv"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zip"

	"github.com/matzehuels/npym/pkg/errors"
	"github.com/matzehuels/npym/pkg/npm"
	"github.com/matzehuels/npym/pkg/resolve"
	"github.com/matzehuels/npym/pkg/semver"
)

type staticProvider map[string]*npm.Packument

func (s staticProvider) Packument(_ context.Context, name npm.PackageName) (*npm.Packument, error) {
	if p, ok := s[name.String()]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%s not found", name)
}

// memSource serves file trees keyed by name@version.
type memSource struct {
	trees map[string]*npm.FileTree
	err   error
}

func (m *memSource) Files(_ context.Context, meta *npm.VersionMeta) (*npm.FileTree, error) {
	if m.err != nil {
		return nil, m.err
	}
	t, ok := m.trees[meta.Name.String()+"@"+meta.Version.String()]
	if !ok {
		return nil, fmt.Errorf("no files for %s", meta.Name)
	}
	return t, nil
}

func testGraph(t *testing.T) *resolve.Graph {
	t.Helper()
	app := &npm.VersionMeta{
		Name:         npm.MustParseName("app"),
		Version:      semver.MustParseVersion("1.0.0"),
		Dependencies: []npm.Dependency{{Name: npm.MustParseName("a"), Range: "^1"}},
		Bin:          map[string]string{"app": "cli.js"},
		Description:  "An app\nwith two lines",
		License:      "MIT",
		Keywords:     []string{"cli", "demo"},
		Author:       &npm.Person{Name: "Ada", Email: "ada@example.com"},
	}
	a := &npm.VersionMeta{
		Name:    npm.MustParseName("a"),
		Version: semver.MustParseVersion("1.0.0"),
	}
	provider := staticProvider{
		"app": npm.NewPackument(app.Name, nil, app),
		"a":   npm.NewPackument(a.Name, nil, a),
	}
	g, err := resolve.New(provider, resolve.Options{}).Resolve(context.Background(), app.Name, semver.Any())
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	return g
}

func testSource() *memSource {
	return &memSource{trees: map[string]*npm.FileTree{
		"app@1.0.0": {Files: []npm.File{
			{Path: "cli.js", Mode: 0o755, Data: []byte("#!/usr/bin/env node\n")},
			{Path: "package.json", Mode: 0o644, Data: []byte(`{"name":"app"}`)},
		}},
		"a@1.0.0": {Files: []npm.File{
			{Path: "index.js", Mode: 0o644, Data: []byte("module.exports = 1\n")},
			{Path: "package.json", Mode: 0o644, Data: []byte(`{"name":"a"}`)},
		}},
	}}
}

func readWheel(t *testing.T, path string) map[string]string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read wheel: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open wheel: %v", err)
	}
	out := map[string]string{}
	var order []string
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		b, _ := io.ReadAll(rc)
		rc.Close()
		out[f.Name] = string(b)
		order = append(order, f.Name)
	}
	out["\x00order"] = strings.Join(order, "\n")
	return out
}

func TestEmitRoot(t *testing.T) {
	g := testGraph(t)
	dest := t.TempDir()
	e := NewEmitter(testSource(), dest, Options{Generator: "npym test"})

	a, err := e.Emit(context.Background(), g, g.Root().ID)
	if err != nil {
		t.Fatalf("Emit() error: %v", err)
	}
	if a.Filename != "npym_app-1.0.0-py3-none-any.whl" {
		t.Errorf("Filename = %q", a.Filename)
	}
	if !a.Root || a.InstallPath != "app" {
		t.Errorf("Root = %v, InstallPath = %q", a.Root, a.InstallPath)
	}

	files := readWheel(t, a.Path)
	wantOrder := []string{
		"npym/app/__init__.py",
		"npym/app/__main__.py",
		"npym/node_modules/app/cli.js",
		"npym/node_modules/app/package.json",
		"npym_app-1.0.0.dist-info/LICENSE",
		"npym_app-1.0.0.dist-info/METADATA",
		"npym_app-1.0.0.dist-info/WHEEL",
		"npym_app-1.0.0.dist-info/entry_points.txt",
		"npym_app-1.0.0.dist-info/RECORD",
	}
	if got := strings.Split(files["\x00order"], "\n"); !slices.Equal(got, wantOrder) {
		t.Errorf("entries:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(wantOrder, "\n"))
	}

	wantMetadata := "Metadata-Version: 2.1\n" +
		"Name: npym.app\n" +
		"Version: 1.0.0\n" +
		"Summary: An app with two lines\n" +
		"Keywords: cli,demo\n" +
		"Author: Ada\n" +
		"Author-email: ada@example.com\n" +
		"License: MIT\n" +
		"Requires-Dist: npym (>=0.0.0)\n" +
		"Requires-Dist: npym.a.xbb317559 (==1.0.0)\n"
	if got := files["npym_app-1.0.0.dist-info/METADATA"]; got != wantMetadata {
		t.Errorf("METADATA:\n%s\nwant:\n%s", got, wantMetadata)
	}

	wantWheel := "Wheel-Version: 1.0\nGenerator: npym test\nRoot-Is-Purelib: true\nTag: py3-none-any\n"
	if got := files["npym_app-1.0.0.dist-info/WHEEL"]; got != wantWheel {
		t.Errorf("WHEEL = %q", got)
	}
	if got := files["npym_app-1.0.0.dist-info/entry_points.txt"]; got != "[console_scripts]\napp=npym.app:entrypoints.app\n" {
		t.Errorf("entry_points.txt = %q", got)
	}
	wantInit := "from npym import EntryPoints\n" +
		`entrypoints = EntryPoints.from_json('{"package": "app", "scripts": {"app": "cli.js"}}')` + "\n"
	if got := files["npym/app/__init__.py"]; got != wantInit {
		t.Errorf("__init__.py = %q", got)
	}
	if got := files["npym/app/__main__.py"]; got != "from npym.app import entrypoints\nentrypoints.app()\n" {
		t.Errorf("__main__.py = %q", got)
	}

	checkRecord(t, files, "npym_app-1.0.0.dist-info/RECORD")

	raw, _ := os.ReadFile(a.Path)
	sum := sha256.Sum256(raw)
	if a.SHA256 != hex.EncodeToString(sum[:]) || a.Size != int64(len(raw)) {
		t.Errorf("SHA256/Size do not describe the committed file")
	}

	entries, _ := os.ReadDir(dest)
	if len(entries) != 1 {
		t.Errorf("destination holds %d files, want only the wheel", len(entries))
	}
}

func checkRecord(t *testing.T, files map[string]string, record string) {
	t.Helper()
	rows, err := csv.NewReader(strings.NewReader(files[record])).ReadAll()
	if err != nil {
		t.Fatalf("parse RECORD: %v", err)
	}
	if last := rows[len(rows)-1]; last[0] != record || last[1] != "" || last[2] != "" {
		t.Errorf("last RECORD row = %v", last)
	}
	if len(rows) != len(files)-1 {
		t.Errorf("RECORD has %d rows for %d entries", len(rows), len(files)-1)
	}
	for _, row := range rows[:len(rows)-1] {
		data, ok := files[row[0]]
		if !ok {
			t.Errorf("RECORD lists missing entry %s", row[0])
			continue
		}
		sum := sha256.Sum256([]byte(data))
		if want := "sha256=" + base64.RawURLEncoding.EncodeToString(sum[:]); row[1] != want {
			t.Errorf("%s hash = %s, want %s", row[0], row[1], want)
		}
		if row[2] != strconv.Itoa(len(data)) {
			t.Errorf("%s size = %s, want %d", row[0], row[2], len(data))
		}
	}
}

func TestEmitDependency(t *testing.T) {
	g := testGraph(t)
	child := g.Lookup(npm.MustParseName("a"))[0]
	e := NewEmitter(testSource(), t.TempDir(), Options{})

	a, err := e.Emit(context.Background(), g, child.ID)
	if err != nil {
		t.Fatalf("Emit() error: %v", err)
	}
	if a.Distribution != "npym.a.xbb317559" {
		t.Errorf("Distribution = %q", a.Distribution)
	}
	if a.Root || len(a.Requires) != 0 {
		t.Errorf("Root = %v, Requires = %v", a.Root, a.Requires)
	}
	files := readWheel(t, a.Path)
	if _, ok := files["npym/node_modules/app/node_modules/a/index.js"]; !ok {
		t.Errorf("package files not at install path:\n%s", files["\x00order"])
	}
	if _, ok := files["npym_a_xbb317559-1.0.0.dist-info/LICENSE"]; ok {
		t.Error("LICENSE written without a license")
	}
}

func TestEmitDeterministic(t *testing.T) {
	g := testGraph(t)
	var outputs [][]byte
	for range 2 {
		e := NewEmitter(testSource(), t.TempDir(), Options{})
		a, err := e.Emit(context.Background(), g, g.Root().ID)
		if err != nil {
			t.Fatalf("Emit() error: %v", err)
		}
		data, _ := os.ReadFile(a.Path)
		outputs = append(outputs, data)
	}
	if !bytes.Equal(outputs[0], outputs[1]) {
		t.Error("two emissions of the same node differ")
	}
}

func TestEmitPinRange(t *testing.T) {
	g := testGraph(t)
	e := NewEmitter(testSource(), t.TempDir(), Options{Pin: PinRange})
	a, err := e.Emit(context.Background(), g, g.Root().ID)
	if err != nil {
		t.Fatalf("Emit() error: %v", err)
	}
	want := []Requirement{
		{Distribution: "npym", Specifier: ">=0.0.0"},
		{Distribution: "npym.a.xbb317559", Specifier: ">=1.0.0,<2.0.0"},
	}
	if !slices.Equal(a.Requires, want) {
		t.Errorf("Requires = %v, want %v", a.Requires, want)
	}
}

func TestEmitPinRangeWithoutPEP440Form(t *testing.T) {
	app := &npm.VersionMeta{
		Name:         npm.MustParseName("app"),
		Version:      semver.MustParseVersion("1.0.0"),
		Dependencies: []npm.Dependency{{Name: npm.MustParseName("a"), Range: ">=1.0.0-foo.1 <2.0.0"}},
	}
	a := &npm.VersionMeta{
		Name:    npm.MustParseName("a"),
		Version: semver.MustParseVersion("1.0.0"),
	}
	provider := staticProvider{
		"app": npm.NewPackument(app.Name, nil, app),
		"a":   npm.NewPackument(a.Name, nil, a),
	}
	g, err := resolve.New(provider, resolve.Options{}).Resolve(context.Background(), app.Name, semver.Any())
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	var buf bytes.Buffer
	logger := log.New(&buf)
	logger.SetLevel(log.DebugLevel)

	e := NewEmitter(testSource(), t.TempDir(), Options{Pin: PinRange, Logger: logger})
	art, err := e.Emit(context.Background(), g, g.Root().ID)
	if err != nil {
		t.Fatalf("Emit() error: %v", err)
	}
	want := []Requirement{{Distribution: "npym.a.xbb317559", Specifier: "==1.0.0"}}
	if !slices.Equal(art.Requires, want) {
		t.Errorf("Requires = %v, want exact pin %v", art.Requires, want)
	}
	if !strings.Contains(buf.String(), "no PEP 440 form") {
		t.Errorf("expected debug log about the exact pin, got %q", buf.String())
	}
}

func TestEmitFailures(t *testing.T) {
	g := testGraph(t)

	noManifest := testSource()
	noManifest.trees["app@1.0.0"] = &npm.FileTree{Files: []npm.File{{Path: "cli.js", Data: []byte("x")}}}

	tests := []struct {
		name   string
		source *memSource
	}{
		{"missing package.json", noManifest},
		{"source error", &memSource{err: stderrors.New("connection reset")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dest := t.TempDir()
			_, err := NewEmitter(tt.source, dest, Options{}).Emit(context.Background(), g, g.Root().ID)
			if !errors.Is(err, errors.ErrCodePackaging) {
				t.Errorf("error = %v, want PACKAGING_ERROR", err)
			}
			if entries, _ := os.ReadDir(dest); len(entries) != 0 {
				t.Errorf("destination holds %d files after failure", len(entries))
			}
		})
	}
}

func TestEmitCancelled(t *testing.T) {
	g := testGraph(t)
	dest := filepath.Join(t.TempDir(), "out")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEmitter(testSource(), dest, Options{}).Emit(ctx, g, g.Root().ID)
	if !stderrors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if entries, _ := os.ReadDir(dest); len(entries) != 0 {
		t.Errorf("destination holds %d files after cancellation", len(entries))
	}
}

func TestParsePinMode(t *testing.T) {
	tests := []struct {
		in      string
		want    PinMode
		wantErr bool
	}{
		{"", PinExact, false},
		{"exact", PinExact, false},
		{"range", PinRange, false},
		{"loose", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePinMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParsePinMode(%q) = %q, %v", tt.in, got, err)
		}
	}
}
