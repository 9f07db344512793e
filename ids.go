package daab

import "unsafe"

// BuilderID is an opaque, totally-ordered, hashable token identifying a
// builder instance. It is derived from the stable memory address of the
// builder box a Handle wraps, mirroring the original crate's use of the
// Rc/Arc inner pointer as identity.
//
// A BuilderID is only meaningful while at least one strong Handle keeps the
// underlying builder reachable; once the last strong Handle is dropped the
// address may be reused by an unrelated allocation, which is precisely why
// the cache only ever compares BuilderIDs while it also holds a Handle (the
// caller's Get/Invalidate/... argument) or a live weak reference it has just
// confirmed is still alive.
type BuilderID uintptr

func idOf(p unsafe.Pointer) BuilderID {
	return BuilderID(uintptr(p))
}
