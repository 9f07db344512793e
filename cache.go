package daab

import (
	"fmt"
	"log/slog"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/dezajno/daab/can"
)

// Cache is the central structure that prevents a builder from producing
// more than one artifact instance between invalidations. It is deliberately
// not generic over any single (Artifact, DynState) pair — it stores
// artifacts and dynamic state for arbitrarily many distinct builder types at
// once, type-erased into `any` and downcast back at each generic call site
// (Get, Invalidate, ...), which is exactly how the original crate's
// `HashMap<BuilderId, ArtifactEntry>` works underneath its own type erasure.
//
// A Cache is not safe for concurrent use; §5 of the specification leaves
// that to an external wrapper (out of scope for this module) guarding
// exclusive access the way a plain Go map would need guarding.
type Cache struct {
	// artifacts maps a builder's identity to its stored artifact, wrapped in
	// either can.Shared[A] or can.Sync[A] depending on syncArtifacts.
	artifacts map[BuilderID]any

	// dynStates maps a builder's identity to its dynamic state, always
	// wrapped in can.Owned[S] since the cache holds it exclusively.
	dynStates map[BuilderID]any

	// dependents tracks, for each builder p, the set of builders that
	// resolved p during their most recent build.
	dependents map[BuilderID]mapset.Set[BuilderID]

	// knownBuilders keeps a weak reference to every builder referenced by
	// artifacts or dynStates, so garbage collection can tell which builders
	// still have a live external strong Handle.
	knownBuilders map[BuilderID]anyWeak

	doctor doctorHook

	// syncArtifacts selects the artifact carrier: can.Sync (thread-safe
	// publication) when true, can.Shared (single-threaded) when false. This
	// stands in for the original crate's ArtCan type parameter — Go's
	// interfaces cannot carry generic methods, so the carrier choice is a
	// construction-time flag instead of a second generic parameter on
	// Cache itself.
	syncArtifacts bool
}

func newCache() *Cache {
	return &Cache{
		artifacts:     make(map[BuilderID]any),
		dynStates:     make(map[BuilderID]any),
		dependents:    make(map[BuilderID]mapset.Set[BuilderID]),
		knownBuilders: make(map[BuilderID]anyWeak),
		doctor:        newDoctorHookDefault(),
	}
}

// New creates a new empty cache backed by the single-threaded can.Shared
// artifact carrier.
func New() *Cache {
	return newCache()
}

// NewSync creates a new empty cache backed by the thread-safe can.Sync
// artifact carrier, for artifacts that will be published to other
// goroutines. The cache's own tables still require external synchronization
// for concurrent use (see the Cache doc comment).
func NewSync() *Cache {
	c := newCache()
	c.syncArtifacts = true
	return c
}

func wrapArtifact[A any](c *Cache, v A) any {
	if c.syncArtifacts {
		return can.NewSync(v)
	}
	return can.NewShared(v)
}

// downcastOrPanic recovers T from x, logging a structured slog.Error naming
// the builder, the expected type, and the actual type immediately before
// panicking on a mismatch. This is the cache's own invariant-violation
// report (§7.2): a mismatch can only happen if a BuilderID were reused
// across builder types, which cannot happen while any strong Handle for the
// original builder survives, so this is always a programmer error, never an
// expected runtime outcome.
func downcastOrPanic[T any](id BuilderID, x any) T {
	v, ok := can.Downcast[T](x)
	if !ok {
		slog.Error("daab: cache downcast mismatch",
			"builder_id", uintptr(id),
			"want_type", fmt.Sprintf("%T", v),
			"got_type", fmt.Sprintf("%T", x),
		)
		panic(fmt.Sprintf("daab: cached value has invalid type: want %T, got %T", v, x))
	}
	return v
}

func unwrapArtifact[A any](c *Cache, id BuilderID, x any) *A {
	if c.syncArtifacts {
		return downcastOrPanic[can.Sync[A]](id, x).Bin()
	}
	return downcastOrPanic[can.Shared[A]](id, x).Bin()
}

func lookupArtifact[A any](c *Cache, id BuilderID) (*A, bool) {
	x, ok := c.artifacts[id]
	if !ok {
		return nil, false
	}
	return unwrapArtifact[A](c, id, x), true
}

func makeBuilderKnown[A any, S any](c *Cache, h Handle[A, S]) {
	if _, ok := c.knownBuilders[h.id]; !ok {
		c.knownBuilders[h.id] = h.weakRef()
	}
}

func ensureDynState[A any, S any](c *Cache, h Handle[A, S]) *S {
	x, ok := c.dynStates[h.id]
	if !ok {
		owned := can.NewOwned(h.ptr.b.InitDynState())
		c.dynStates[h.id] = owned
		return owned.Ref()
	}
	return downcastOrPanic[can.Owned[S]](h.id, x).Ref()
}

func build[A any, S any](c *Cache, h Handle[A, S]) (*A, error) {
	makeBuilderKnown(c, h)
	state := ensureDynState(c, h)

	r := &Resolver[S]{
		user:  h.id,
		state: state,
		cache: c,
	}
	if diagnosticsEnabled {
		r.userInfo = infoOf(h)
	}

	art, err := h.ptr.b.Build(r)
	if err != nil {
		return nil, err
	}

	wrapped := wrapArtifact(c, art)
	c.artifacts[h.id] = wrapped
	ptr := unwrapArtifact[A](c, h.id, wrapped)

	if diagnosticsEnabled {
		c.doctor.build(infoOf(h), artifactInfoOf(h.id, ptr))
	}

	return ptr, nil
}

// Get returns the shared artifact for h, building it (and its unbuilt
// dependencies) if this is the first Get since creation or the last
// invalidation of h.
func Get[A any, S any](c *Cache, h Handle[A, S]) (*A, error) {
	if art, ok := lookupArtifact[A](c, h.id); ok {
		return art, nil
	}
	return build(c, h)
}

// GetRef is Get's borrowed-reference spelling. Go's memory model has no
// owned/borrowed distinction to express separately from Get's shared
// pointer, so the two are intentionally identical operations here.
func GetRef[A any, S any](c *Cache, h Handle[A, S]) (*A, error) {
	return Get(c, h)
}

// GetMut returns an exclusive reference to h's artifact. Because the caller
// is asserting it will mutate the artifact in place, every dependent of h is
// invalidated before the reference is returned; h's own artifact is not
// rebuilt unless it was already absent.
func GetMut[A any, S any](c *Cache, h Handle[A, S]) (*A, error) {
	c.invalidateDependents(h.id)
	return Get(c, h)
}

// GetCloned returns an independent copy of h's artifact.
func GetCloned[A Cloner[A], S any](c *Cache, h Handle[A, S]) (A, error) {
	art, err := Get(c, h)
	if err != nil {
		var zero A
		return zero, err
	}
	return (*art).Clone(), nil
}

// DynState ensures h's dynamic state exists (creating it via InitDynState if
// needed) and returns it. This never invalidates h's artifact.
func DynState[A any, S any](c *Cache, h Handle[A, S]) *S {
	makeBuilderKnown(c, h)
	return ensureDynState(c, h)
}

// DynStateMut ensures h's dynamic state exists and returns it for mutation.
// Because mutating dynamic state may change a future Build's output, this
// invalidates h's artifact and cascades to its dependents.
func DynStateMut[A any, S any](c *Cache, h Handle[A, S]) *S {
	Invalidate(c, h)
	makeBuilderKnown(c, h)
	return ensureDynState(c, h)
}

// GetDynState returns h's dynamic state without creating it; ok is false if
// no dynamic state has been materialized yet.
func GetDynState[A any, S any](c *Cache, h Handle[A, S]) (state *S, ok bool) {
	x, present := c.dynStates[h.id]
	if !present {
		return nil, false
	}
	return downcastOrPanic[can.Owned[S]](h.id, x).Ref(), true
}

// SetDynState replaces h's dynamic state and invalidates h's artifact,
// cascading to its dependents, for the same reason DynStateMut does.
func SetDynState[A any, S any](c *Cache, h Handle[A, S], v S) {
	Invalidate(c, h)
	makeBuilderKnown(c, h)
	c.dynStates[h.id] = can.NewOwned(v)
}

// invalidateAny removes id's artifact and recursively removes every
// dependent's artifact. Implemented with an explicit worklist rather than
// direct recursion, per the specification's permitted iterative rewrite, so
// a long dependency chain cannot blow the call stack.
func (c *Cache) invalidateAny(id BuilderID) {
	worklist := []BuilderID{id}
	for len(worklist) > 0 {
		n := len(worklist) - 1
		cur := worklist[n]
		worklist = worklist[:n]

		if set, ok := c.dependents[cur]; ok {
			delete(c.dependents, cur)
			worklist = append(worklist, set.ToSlice()...)
		}
		delete(c.artifacts, cur)
	}
}

// invalidateDependents removes every dependent of id's artifact, without
// touching id's own artifact.
func (c *Cache) invalidateDependents(id BuilderID) {
	set, ok := c.dependents[id]
	if !ok {
		return
	}
	delete(c.dependents, id)
	for _, dep := range set.ToSlice() {
		c.invalidateAny(dep)
	}
}

func (c *Cache) cleanupUnusedWeakRefs() {
	var unused []BuilderID
	for id := range c.knownBuilders {
		_, hasArt := c.artifacts[id]
		_, hasState := c.dynStates[id]
		if !hasArt && !hasState {
			unused = append(unused, id)
		}
	}
	for _, id := range unused {
		delete(c.knownBuilders, id)
	}
}

func (c *Cache) trackDependency(user BuilderID, userInfo builderInfo, dep BuilderID, depInfo builderInfo) {
	set, ok := c.dependents[dep]
	if !ok {
		set = mapset.NewSet[BuilderID]()
		c.dependents[dep] = set
	}
	set.Add(user)

	if diagnosticsEnabled {
		c.doctor.resolve(userInfo, depInfo)
	}
}

// Invalidate removes h's cached artifact and every artifact of a builder
// that transitively depended on h.
func Invalidate[A any, S any](c *Cache, h Handle[A, S]) {
	c.invalidateAny(h.id)
	if diagnosticsEnabled {
		c.doctor.invalidate(infoOf(h))
	}
	c.cleanupUnusedWeakRefs()
}

// Purge removes h's artifact, dynamic state, and known-builder entry
// entirely (as opposed to Invalidate, which keeps the dynamic state and
// known-builder bookkeeping around), then runs the same cascade Invalidate
// does to drop stale dependents.
func Purge[A any, S any](c *Cache, h Handle[A, S]) {
	delete(c.knownBuilders, h.id)
	delete(c.artifacts, h.id)
	delete(c.dynStates, h.id)
	Invalidate(c, h)
}

// ClearArtifacts drops every stored artifact and dependency edge, retaining
// dynamic states.
func (c *Cache) ClearArtifacts() {
	c.artifacts = make(map[BuilderID]any)
	c.dependents = make(map[BuilderID]mapset.Set[BuilderID])
	c.cleanupUnusedWeakRefs()
}

// ClearAll drops everything the cache holds.
func (c *Cache) ClearAll() {
	c.artifacts = make(map[BuilderID]any)
	c.dynStates = make(map[BuilderID]any)
	c.dependents = make(map[BuilderID]mapset.Set[BuilderID])
	c.knownBuilders = make(map[BuilderID]anyWeak)
	if diagnosticsEnabled {
		c.doctor.clear()
	}
}

// GarbageCollection reclaims bookkeeping for every builder whose external
// strong Handles have all been released: it invalidates that builder (and
// cascades to its dependents, since they cannot be rebuilt soundly either
// once their dependency is unreachable), then drops its dynamic state and
// known-builder entry.
func (c *Cache) GarbageCollection() {
	var unreachable []BuilderID
	for id, w := range c.knownBuilders {
		if !w.alive() {
			unreachable = append(unreachable, id)
		}
	}
	for _, id := range unreachable {
		c.invalidateAny(id)
		delete(c.dynStates, id)
		delete(c.knownBuilders, id)
	}
}

// NumberOfKnownBuilders returns the number of builders the cache currently
// tracks, live or not-yet-collected. Intended for tests.
func (c *Cache) NumberOfKnownBuilders() int {
	return len(c.knownBuilders)
}
