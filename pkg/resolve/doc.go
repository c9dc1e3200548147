// Package resolve turns a root package and version spec into a concrete,
// acyclic resolution graph laid out the way node_modules is on disk.
//
// # Placement
//
// Every node lives in a placement context: the node_modules directory of
// its Parent. The root package sits at node_modules/<root>; its private
// node_modules is the hoisting context. A requirer sees the bindings of its
// own context, then its parent's, up to the root's, which mirrors Node's
// module lookup.
//
// # Hoisting
//
// The resolver iterates to a fixpoint over the set of (name, spec)
// requirements the graph imposes. Any name whose requirements share a
// published satisfying version is bound once in the root context, at the
// greatest such version. Names with conflicting requirements are nested: a
// requirer reuses the nearest visible binding when it satisfies the spec
// and otherwise binds its own copy.
//
// The requirement set first only grows, which bounds the iteration. It then
// shrinks to what the last build required, so specs from versions no
// longer selected stop forcing names to nest. That refinement is capped and
// falls back to the grown set's graph if it does not settle.
//
// # Determinism
//
// Dependencies are visited in name order and candidates in semver order.
// Metadata is prefetched concurrently through a per-run [Memo], but all
// placement decisions run on the calling goroutine, so the same registry
// state always yields the same graph.
//
// # Cycles
//
// An edge whose target can already reach the requirer is recorded as a
// back-reference in [Node.Cycles] instead of an edge, so the graph stays
// acyclic and can be emitted leaves first.
package resolve
