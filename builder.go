package daab

// Builder produces an artifact of type A, optionally resolving dependency
// handles through the Resolver passed to Build, and owns a per-instance
// dynamic state of type S that the cache persists across rebuilds.
//
// Build must be pure with respect to the receiver: any mutable, per-instance
// workspace belongs in the dynamic state returned by InitDynState, never in
// fields the builder mutates directly.
//
// A nil error means the artifact was built successfully. A non-nil error is
// propagated verbatim to the top-level Get-family caller and nothing is
// cached for that builder — the next Get retries the build. This collapses
// the original crate's separate fallible/infallible Builder variants into a
// single Go-idiomatic contract: builders that can never fail simply always
// return a nil error.
//
// A "super-builder" (one whose artifact is itself another handle, enabling
// staged graphs) needs no special support here: instantiate Builder[Handle[A2,
// S2], S] and Get returns the inner handle as the artifact, unchanged from
// the plain case.
type Builder[A any, S any] interface {
	Build(r *Resolver[S]) (A, error)
	InitDynState() S
}

// Cloner is the constraint GetCloned requires of an artifact type: the
// ability to produce an independent copy of itself. Artifact types that
// never need GetCloned do not need to satisfy it.
type Cloner[A any] interface {
	Clone() A
}
