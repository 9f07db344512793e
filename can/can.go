// Package can implements the heterogeneous value store the cache is built
// on: a small family of "carrier" types that can hold a value of abstract
// type, be type-erased into an `any` slot, and be safely cast back.
//
// The three capability shapes named by the specification map onto three
// concrete Go types instead of trait objects, since Go interfaces cannot
// carry their own type parameters:
//
//   - Owned[T]   - a single-owner box, used for dynamic state.
//   - Shared[T]  - a reference-counted-like shared handle (single-threaded;
//     there are no atomics involved, the "refcounting" is just Go's GC
//     tracking reachability of the *T the carrier wraps), with WeakShared[T]
//     as its non-owning companion.
//   - Sync[T]    - the thread-safe shared carrier, built on atomic.Pointer so
//     publishing/swapping the held value is itself safe to do from multiple
//     goroutines without an external mutex, with WeakSync[T] as its
//     companion.
//
// Downcasting a type-erased `any` back to a concrete T is just a type
// assertion; Downcast reports failure, MustDowncast panics naming the
// offending type, which is exactly the "safe downcast, fatal on
// invariant-violating mismatch" contract the cache core relies on.
package can

import (
	"fmt"
	"sync/atomic"
	"weak"
)

// Downcast tries to assert x back to T, the non-panicking form used at
// boundaries where a missing value (rather than a mistyped one) is a
// legitimate, expected outcome.
func Downcast[T any](x any) (T, bool) {
	v, ok := x.(T)
	return v, ok
}

// MustDowncast asserts x back to T or panics naming the type that was
// expected and the value that was actually found. It is a standalone
// primitive: the cache core does not call it, and reports its own mismatches
// through a helper built on Downcast that also names the builder's identity.
// Such a mismatch is a programmer error (violation of the "keyed
// type-safety" invariant): it can only happen if a BuilderID is reused across
// builder types, which cannot happen while any strong Handle for the original
// builder survives.
func MustDowncast[T any](x any) T {
	v, ok := x.(T)
	if !ok {
		panic(fmt.Sprintf("can: cached value has invalid type: want %T, got %T", v, x))
	}
	return v
}

// Owned is an exclusively-held heterogeneous box for a value of type T. It
// supports neither sharing nor weak companions; the cache uses it for
// dynamic state, which it always holds exclusively.
type Owned[T any] struct {
	ptr *T
}

// NewOwned boxes v.
func NewOwned[T any](v T) Owned[T] {
	p := new(T)
	*p = v
	return Owned[T]{ptr: p}
}

// Ref returns the owned value by reference.
func (o Owned[T]) Ref() *T { return o.ptr }

// Set replaces the owned value in place.
func (o Owned[T]) Set(v T) { *o.ptr = v }

// AsPtr returns the carrier's raw identity, for diagnostics use.
func (o Owned[T]) AsPtr() any { return o.ptr }

// Shared is a reference-counted-like carrier: cheap to clone (copying the
// struct just copies the pointer), and every clone observes the same
// underlying value. Not safe to mutate concurrently from multiple
// goroutines; see Sync for that.
type Shared[T any] struct {
	ptr *T
}

// NewShared allocates a fresh Shared carrier holding v.
func NewShared[T any](v T) Shared[T] {
	p := new(T)
	*p = v
	return Shared[T]{ptr: p}
}

// FromBin wraps an already-allocated *T, the Shared equivalent of the
// original crate's `Can::from_bin`.
func FromBin[T any](p *T) Shared[T] { return Shared[T]{ptr: p} }

// Bin returns the carrier's underlying *T (the original's "Bin" type).
func (s Shared[T]) Bin() *T { return s.ptr }

// AsPtr returns the carrier's raw identity.
func (s Shared[T]) AsPtr() any { return s.ptr }

// Downgrade produces a non-owning companion of s.
func (s Shared[T]) Downgrade() WeakShared[T] {
	return WeakShared[T]{w: weak.Make(s.ptr)}
}

// WeakShared is the non-owning companion of Shared. Upgrade fails once no
// Shared (nor any other strong reference keeping the *T reachable) survives.
type WeakShared[T any] struct {
	w weak.Pointer[T]
}

// Upgrade attempts to recover a Shared carrier from w.
func (w WeakShared[T]) Upgrade() (Shared[T], bool) {
	p := w.w.Value()
	if p == nil {
		return Shared[T]{}, false
	}
	return Shared[T]{ptr: p}, true
}

// Alive reports whether the referenced value is still reachable, without
// materializing a new Shared carrier.
func (w WeakShared[T]) Alive() bool {
	return w.w.Value() != nil
}

// Sync is the thread-safe shared carrier: an atomic.Pointer[T] so the
// pointer itself can be published or swapped across goroutines without an
// external mutex guarding that specific operation. (The cache that stores
// Sync values still needs external synchronization for its own bookkeeping,
// per the specification's concurrency model — Sync only makes the carrier
// itself safe to hand across goroutine boundaries.)
type Sync[T any] struct {
	ptr *atomic.Pointer[T]
}

// NewSync allocates a fresh Sync carrier holding v.
func NewSync[T any](v T) Sync[T] {
	p := new(T)
	*p = v
	var ap atomic.Pointer[T]
	ap.Store(p)
	return Sync[T]{ptr: &ap}
}

// Bin returns the current value behind the carrier.
func (s Sync[T]) Bin() *T { return s.ptr.Load() }

// AsPtr returns the carrier's raw identity (the address of the atomic cell
// itself, stable for the carrier's lifetime even as the pointee is swapped).
func (s Sync[T]) AsPtr() any { return s.ptr }

// Swap atomically replaces the held value and returns the previous one.
func (s Sync[T]) Swap(v T) *T {
	p := new(T)
	*p = v
	return s.ptr.Swap(p)
}

// Downgrade produces a non-owning companion of s, pinned to the value held
// at the moment Downgrade was called (it does not track later Swaps).
func (s Sync[T]) Downgrade() WeakSync[T] {
	return WeakSync[T]{w: weak.Make(s.ptr.Load())}
}

// WeakSync is the non-owning companion of Sync.
type WeakSync[T any] struct {
	w weak.Pointer[T]
}

// Upgrade attempts to recover the pinned value as a fresh Shared-like *T.
func (w WeakSync[T]) Upgrade() (*T, bool) {
	p := w.w.Value()
	return p, p != nil
}

// Alive reports whether the pinned value is still reachable.
func (w WeakSync[T]) Alive() bool {
	return w.w.Value() != nil
}
