package daab

// Resolver is constructed by the Cache for the duration of exactly one
// Build invocation and is bound to the builder currently being built: its
// identity (for dependency-edge recording), its dynamic state, and the
// Cache itself.
//
// Resolve/ResolveRef/ResolveCloned are free functions rather than methods
// because Go methods cannot introduce type parameters beyond the receiver's
// — Resolver[S] is only generic over the *current* builder's dynamic state
// S, while resolving a dependency needs fresh type parameters for that
// dependency's own artifact and state types.
type Resolver[S any] struct {
	user     BuilderID
	userInfo builderInfo
	state    *S
	cache    *Cache
}

// MyState returns the currently-building builder's dynamic state.
func (r *Resolver[S]) MyState() *S {
	return r.state
}

// Resolve resolves h into its artifact, building it if necessary, and
// records the dependency edge from the currently-building builder to h.
// Resolving the same dependency more than once within a single build
// records one edge (set semantics).
func Resolve[A any, S any, U any](r *Resolver[U], h Handle[A, S]) (*A, error) {
	var depInfo builderInfo
	if diagnosticsEnabled {
		depInfo = infoOf(h)
	}
	r.cache.trackDependency(r.user, r.userInfo, h.id, depInfo)
	return Get(r.cache, h)
}

// ResolveRef is Resolve's borrowed-reference spelling; in Go both return the
// same shared *A, since Go's memory model has no owned/borrowed distinction
// to express separately.
func ResolveRef[A any, S any, U any](r *Resolver[U], h Handle[A, S]) (*A, error) {
	return Resolve(r, h)
}

// ResolveCloned resolves h and returns an independent copy of its artifact.
func ResolveCloned[A Cloner[A], S any, U any](r *Resolver[U], h Handle[A, S]) (A, error) {
	art, err := Resolve(r, h)
	if err != nil {
		var zero A
		return zero, err
	}
	return (*art).Clone(), nil
}
