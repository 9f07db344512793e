// Package daab implements a DAG-aware artifact cache: an in-process
// memoization engine for computations organized as a directed acyclic graph
// of builders.
//
// Each builder produces an artifact, possibly by first resolving other
// builders' artifacts through a Resolver. The Cache guarantees that, for a
// given builder identity, at most one artifact instance is produced until
// that builder is explicitly invalidated, and that invalidating a builder
// also invalidates every artifact that transitively depended on it.
//
// # Example
//
//	type Leaf struct{ N int }
//
//	type leafBuilder struct{ n int }
//
//	func (b *leafBuilder) Build(_ *daab.Resolver[struct{}]) (Leaf, error) {
//		return Leaf{N: b.n}, nil
//	}
//
//	func (b *leafBuilder) InitDynState() struct{} { return struct{}{} }
//
//	type Node struct{ Leaf *Leaf }
//
//	type nodeBuilder struct{ leaf daab.Handle[Leaf, struct{}] }
//
//	func (b *nodeBuilder) Build(r *daab.Resolver[struct{}]) (Node, error) {
//		leaf, err := daab.ResolveRef(r, b.leaf)
//		return Node{Leaf: leaf}, err
//	}
//
//	func (b *nodeBuilder) InitDynState() struct{} { return struct{}{} }
//
//	cache := daab.New()
//	leaf := daab.NewHandle[Leaf, struct{}](&leafBuilder{n: 1})
//	n1 := daab.NewHandle[Node, struct{}](&nodeBuilder{leaf: leaf})
//	n2 := daab.NewHandle[Node, struct{}](&nodeBuilder{leaf: leaf})
//
//	// Same handle resolves to the same artifact pointer until invalidated.
//	a1, _ := daab.Get(cache, n1)
//	a2, _ := daab.Get(cache, n1)
//	_ = a1 == a2 // true
//
// # Diagnostics
//
// The optional observer surface (the diagnostics.Doctor interface) is only
// wired up when the module is built with the "diagnostics" build tag; the
// default build carries no observer overhead at all.
package daab
