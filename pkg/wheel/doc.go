// Package wheel turns resolved npm packages into Python wheels.
//
// Each node of a [resolve.Graph] becomes one wheel. The package's files are
// stored under npym/node_modules/<install path>, so installing the full set
// reproduces the node_modules tree the resolver computed and Node's module
// lookup finds the same bindings. Each wheel's METADATA declares the wheels
// of its direct dependencies through Requires-Dist, so installing the root
// wheel pulls in the whole graph.
//
// # Naming
//
// The root package's distribution is npym.<scope>.<name> with every
// segment normalised to a valid Python name. Every other node appends
// .x<hash>, where hash is derived from the root, the node's install path and
// its declared dependencies, so the same npm package nested at two places
// yields two distinct distributions.
//
// # Atomicity
//
// Archives are deterministic (sorted entries, fixed timestamps) and written
// to a temporary file in the destination directory, synced and renamed into
// place. A failed or cancelled emission leaves no partial wheel behind.
package wheel
