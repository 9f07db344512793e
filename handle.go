package daab

import (
	"fmt"
	"unsafe"
	"weak"
)

// builderBox is the fresh heap allocation every NewHandle call wraps a
// builder in. Its address is the builder's identity, mirroring how the
// original crate derives a BuilderId from a freshly Rc::new'd builder.
type builderBox[A any, S any] struct {
	b Builder[A, S]
}

// Handle is a shared, cheaply-copyable, identity-preserving wrapper around a
// Builder[A, S]. All Handle values obtained by copying one original (Go
// structs are value types, so assignment already is "clone") compare equal;
// two independently-constructed Handles over structurally identical builders
// do not.
type Handle[A any, S any] struct {
	ptr *builderBox[A, S]
	id  BuilderID
}

// NewHandle wraps a freshly-boxed builder and computes its BuilderID from
// the box's address.
func NewHandle[A any, S any](b Builder[A, S]) Handle[A, S] {
	box := &builderBox[A, S]{b: b}
	return Handle[A, S]{ptr: box, id: idOf(unsafe.Pointer(box))}
}

// ID returns the handle's identity.
func (h Handle[A, S]) ID() BuilderID { return h.id }

// Downgrade produces a non-owning companion of h.
func (h Handle[A, S]) Downgrade() WeakHandle[A, S] {
	return WeakHandle[A, S]{w: weak.Make(h.ptr), id: h.id}
}

func (h Handle[A, S]) typeName() string { return fmt.Sprintf("%T", h.ptr.b) }

func (h Handle[A, S]) debugString() string { return fmt.Sprintf("%+v", h.ptr.b) }

// AnyHandle is the type-erased view of a Handle[A, S]: identity and
// debug/type-name reporting only, with the static (A, S) pair forgotten.
// This is the public counterpart of the anyWeak interface the cache uses
// internally for its knownBuilders table.
type AnyHandle interface {
	ID() BuilderID
	typeName() string
	debugString() string
}

// IntoAny erases h's static builder type, retaining its identity. The
// result still satisfies AnyHandle's unexported methods because Handle
// itself implements them, so a caller cannot construct a competing
// AnyHandle implementation outside this package — erasure only ever
// forgets type information, it never admits a foreign identity.
func (h Handle[A, S]) IntoAny() AnyHandle { return h }

// weakRef returns a type-erased weak reference usable by the cache's
// knownBuilders bookkeeping, which must track builders of many different
// (A, S) pairs in one table.
func (h Handle[A, S]) weakRef() anyWeak {
	return weakHandleRef[A, S]{w: weak.Make(h.ptr)}
}

// WeakHandle is the non-owning companion of Handle. Upgrade fails once no
// strong Handle (and nothing else keeping the builder box reachable)
// survives.
type WeakHandle[A any, S any] struct {
	w  weak.Pointer[builderBox[A, S]]
	id BuilderID
}

// Upgrade attempts to recover a strong Handle from w.
func (w WeakHandle[A, S]) Upgrade() (Handle[A, S], bool) {
	p := w.w.Value()
	if p == nil {
		return Handle[A, S]{}, false
	}
	return Handle[A, S]{ptr: p, id: w.id}, true
}

// ID returns the identity w was downgraded from.
func (w WeakHandle[A, S]) ID() BuilderID { return w.id }

// anyWeak is the type-erased view of a WeakHandle[A, S] that the cache's
// knownBuilders table stores, since that table must hold weak references to
// builders of arbitrarily many distinct (A, S) pairs.
type anyWeak interface {
	alive() bool
}

type weakHandleRef[A any, S any] struct {
	w weak.Pointer[builderBox[A, S]]
}

func (w weakHandleRef[A, S]) alive() bool { return w.w.Value() != nil }
