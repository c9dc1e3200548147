// Package pkg holds the libraries behind npym, which turns an npm package
// and its dependency tree into installable Python wheels.
//
// # Overview
//
// The pkg directory is organized by stage:
//
//  1. [semver] and [npm] - range grammar, versions, registry metadata and tarballs
//  2. [resolve] - the node_modules-style dependency resolver
//  3. [wheel] - one wheel per resolved node
//  4. [bridge] - orchestration (resolve → emit → publish)
//  5. [catalog], [objectstore], [events] - where finished wheels are recorded
//  6. [cache], [integrations], [httputil], [config] - infrastructure
//
// # Data Flow
//
//	npm registry
//	     ↓
//	[npm] packuments (cached)
//	     ↓
//	[resolve] graph: nodes placed in node_modules contexts
//	     ↓
//	[wheel] one .whl per node, dependencies first
//	     ↓
//	[catalog] / [objectstore] / [events]
//
// # Quick Start
//
//	c, _ := cache.NewFileCache("")
//	runner := bridge.NewRunner(npm.NewClient(c, cache.TTLMetadata), npm.NewTarballSource(c, nil), log.Default())
//	res, err := runner.Bridge(ctx, npm.MustParseName("left-pad"), "^1.3.0", bridge.Options{Dest: "dist"})
//
// The root artifact, res.Root(), is the wheel to install; it requires
// every other wheel in the result.
package pkg
