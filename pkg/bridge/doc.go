// Package bridge drives a complete NPM to Python translation: it parses
// the root range, resolves the dependency graph, emits one wheel per
// graph node and reports the committed artifacts with the root last.
//
// # Usage
//
//	runner := bridge.NewRunner(npm.NewClient(c, ttl), npm.NewTarballSource(c, nil), logger)
//	res, err := runner.Bridge(ctx, npm.MustParseName("left-pad"), "^1.0.0", bridge.Options{Dest: "dist"})
//
// A [Runner] also records every artifact in a [catalog.Catalog], uploads it
// to an [objectstore.Store] and announces the run on an [events.Publisher].
// Those sinks default to in-memory or no-op implementations; their
// failures are logged and never fail the run.
//
// # Errors
//
// Resolution failures abort the run before anything is written. When an
// emission fails the remaining emissions are skipped and the returned
// PACKAGING_ERROR carries an [*EmitError] listing the wheels that were
// already committed.
package bridge
