package daab_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dezajno/daab/can"
	"github.com/dezajno/daab"
)

// Leaf is a builder with no dependencies; its artifact just carries the
// sequence number it was constructed with, so tests can tell two leaf
// artifacts apart by value.

type Leaf struct{ N int }

type leafBuilder struct {
	n int
}

func newLeaf(n int) daab.Handle[Leaf, struct{}] {
	return daab.NewHandle[Leaf, struct{}](&leafBuilder{n: n})
}

func (b *leafBuilder) Build(_ *daab.Resolver[struct{}]) (Leaf, error) {
	return Leaf{N: b.n}, nil
}

func (b *leafBuilder) InitDynState() struct{} { return struct{}{} }

// Node wraps a single Leaf dependency, resolved through its Resolver.

type Node struct {
	Leaf *Leaf
}

type nodeBuilder struct {
	leaf daab.Handle[Leaf, struct{}]
}

func newNode(leaf daab.Handle[Leaf, struct{}]) daab.Handle[Node, struct{}] {
	return daab.NewHandle[Node, struct{}](&nodeBuilder{leaf: leaf})
}

func (b *nodeBuilder) Build(r *daab.Resolver[struct{}]) (Node, error) {
	leaf, err := daab.ResolveRef(r, b.leaf)
	if err != nil {
		return Node{}, err
	}
	return Node{Leaf: leaf}, nil
}

func (b *nodeBuilder) InitDynState() struct{} { return struct{}{} }

// counterBuilder is used for the DynState lifecycle scenario: its artifact
// is simply a snapshot of the dynamic state at build time.

type counterBuilder struct{}

func (counterBuilder) Build(r *daab.Resolver[int]) (int, error) {
	return *r.MyState(), nil
}

func (counterBuilder) InitDynState() int { return 0 }

// failingBuilder always fails, so Get never caches anything for it.

type failingBuilder struct{}

var errBuildFailed = errors.New("build failed")

func (failingBuilder) Build(_ *daab.Resolver[struct{}]) (Leaf, error) {
	return Leaf{}, errBuildFailed
}

func (failingBuilder) InitDynState() struct{} { return struct{}{} }

func TestLeafIdentity(t *testing.T) {
	c := daab.New()
	h1 := newLeaf(1)
	h2 := newLeaf(2)

	a1a, err := daab.Get(c, h1)
	require.NoError(t, err)
	a1b, err := daab.Get(c, h1)
	require.NoError(t, err)
	assert.Same(t, a1a, a1b)

	a2, err := daab.Get(c, h2)
	require.NoError(t, err)
	assert.NotSame(t, a1a, a2)
}

func TestDiamondSharing(t *testing.T) {
	c := daab.New()
	leaf := newLeaf(1)
	n1 := newNode(leaf)
	n2 := newNode(leaf)

	a1, err := daab.Get(c, n1)
	require.NoError(t, err)
	a2, err := daab.Get(c, n2)
	require.NoError(t, err)

	assert.Same(t, a1.Leaf, a2.Leaf)
	assert.NotSame(t, a1, a2)
}

func TestInvalidateCascade(t *testing.T) {
	c := daab.New()
	leaf := newLeaf(1)
	n1 := newNode(leaf)

	oldLeaf, err := daab.Get(c, leaf)
	require.NoError(t, err)
	a1, err := daab.Get(c, n1)
	require.NoError(t, err)

	daab.Invalidate(c, leaf)

	newLeafArt, err := daab.Get(c, leaf)
	require.NoError(t, err)
	assert.NotSame(t, oldLeaf, newLeafArt)

	newN1, err := daab.Get(c, n1)
	require.NoError(t, err)
	assert.NotSame(t, a1, newN1)
}

func TestInvalidateConfinement(t *testing.T) {
	c := daab.New()
	leafA := newLeaf(1)
	leafB := newLeaf(2)
	nA := newNode(leafA)
	nB := newNode(leafB)

	_, err := daab.Get(c, nA)
	require.NoError(t, err)
	oldB, err := daab.Get(c, nB)
	require.NoError(t, err)
	oldLeafB, err := daab.Get(c, leafB)
	require.NoError(t, err)

	daab.Invalidate(c, leafA)

	freshB, err := daab.Get(c, nB)
	require.NoError(t, err)
	freshLeafB, err := daab.Get(c, leafB)
	require.NoError(t, err)

	assert.Same(t, oldB, freshB)
	assert.Same(t, oldLeafB, freshLeafB)
}

func TestGetMutInvalidatesOnlyDependents(t *testing.T) {
	c := daab.New()
	leaf := newLeaf(1)
	n1 := newNode(leaf)

	leafArt, err := daab.Get(c, leaf)
	require.NoError(t, err)
	_, err = daab.Get(c, n1)
	require.NoError(t, err)

	mutLeaf, err := daab.GetMut(c, leaf)
	require.NoError(t, err)
	assert.Same(t, leafArt, mutLeaf, "get_mut must not rebuild the target itself")

	freshN1, err := daab.Get(c, n1)
	require.NoError(t, err)
	assert.NotNil(t, freshN1)
}

func TestDynStateLifecycle(t *testing.T) {
	c := daab.New()
	h := daab.NewHandle[int, int](counterBuilder{})

	_, ok := daab.GetDynState(c, h)
	assert.False(t, ok)

	daab.SetDynState(c, h, 0)
	state, ok := daab.GetDynState(c, h)
	require.True(t, ok)
	assert.Equal(t, 0, *state)

	art, err := daab.Get(c, h)
	require.NoError(t, err)
	assert.Equal(t, 0, *art)

	daab.SetDynState(c, h, 1)
	art2, err := daab.Get(c, h)
	require.NoError(t, err)
	assert.Equal(t, 1, *art2)
}

func TestDynStateSurvivesArtifactInvalidation(t *testing.T) {
	c := daab.New()
	h := daab.NewHandle[int, int](counterBuilder{})

	daab.SetDynState(c, h, 7)
	_, err := daab.Get(c, h)
	require.NoError(t, err)

	daab.Invalidate(c, h)

	state, ok := daab.GetDynState(c, h)
	require.True(t, ok)
	assert.Equal(t, 7, *state)
}

func TestGCReclaimsOrphans(t *testing.T) {
	c := daab.New()
	h := daab.NewHandle[Leaf, struct{}](&leafBuilder{n: 1})

	_, err := daab.Get(c, h)
	require.NoError(t, err)
	assert.Equal(t, 1, c.NumberOfKnownBuilders())

	h = daab.Handle[Leaf, struct{}]{}
	runtime.GC()
	runtime.GC()

	c.GarbageCollection()
	assert.Equal(t, 0, c.NumberOfKnownBuilders())

	h2 := daab.NewHandle[Leaf, struct{}](&leafBuilder{n: 1})
	art, err := daab.Get(c, h2)
	require.NoError(t, err)
	assert.Equal(t, 1, art.N)
}

func TestGCSparesLiveBuilders(t *testing.T) {
	c := daab.New()
	h := newLeaf(1)

	_, err := daab.Get(c, h)
	require.NoError(t, err)

	c.GarbageCollection()
	assert.Equal(t, 1, c.NumberOfKnownBuilders(), "a live strong handle must survive GC")
}

func TestIdempotentResolve(t *testing.T) {
	c := daab.New()
	leaf := newLeaf(1)

	h := daab.NewHandle[[2]*Leaf, struct{}](twiceBuilder{leaf: leaf})
	_, err := daab.Get(c, h)
	require.NoError(t, err)

	daab.Invalidate(c, leaf)
	_, err = daab.Get(c, h)
	require.NoError(t, err)
}

type twiceBuilder struct {
	leaf daab.Handle[Leaf, struct{}]
}

func (b twiceBuilder) Build(r *daab.Resolver[struct{}]) ([2]*Leaf, error) {
	first, err := daab.ResolveRef(r, b.leaf)
	if err != nil {
		return [2]*Leaf{}, err
	}
	second, err := daab.ResolveRef(r, b.leaf)
	if err != nil {
		return [2]*Leaf{}, err
	}
	return [2]*Leaf{first, second}, nil
}

func (twiceBuilder) InitDynState() struct{} { return struct{}{} }

// TestRoundTrip exercises the Round-trip property: clearing the cache and
// replaying the same sequence of builder constructions and Get calls
// produces artifacts with the same structural equality as the first run —
// values equal, identities (the underlying pointers) not. go-cmp, rather
// than testify's assert.Equal/reflect.DeepEqual, does the comparison
// because it follows pointer fields to compare the pointees by value
// instead of treating a pointer field as part of the identity it's
// comparing.
func TestRoundTrip(t *testing.T) {
	c := daab.New()

	replay := func() Node {
		leaf := newLeaf(1)
		n1 := newNode(leaf)
		art, err := daab.Get(c, n1)
		require.NoError(t, err)
		return *art
	}

	first := replay()
	c.ClearAll()
	second := replay()

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("round-trip produced structurally different artifacts (-first +second):\n%s", diff)
	}
}

func TestFailedBuildIsNotCached(t *testing.T) {
	c := daab.New()
	h := daab.NewHandle[Leaf, struct{}](failingBuilder{})

	_, err := daab.Get(c, h)
	assert.ErrorIs(t, err, errBuildFailed)

	_, ok := daab.GetDynState(c, h)
	assert.True(t, ok, "dynamic state is still materialized on a failed build")
}

func TestClearArtifactsRetainsDynState(t *testing.T) {
	c := daab.New()
	h := daab.NewHandle[int, int](counterBuilder{})
	daab.SetDynState(c, h, 3)
	_, err := daab.Get(c, h)
	require.NoError(t, err)

	c.ClearArtifacts()

	state, ok := daab.GetDynState(c, h)
	require.True(t, ok)
	assert.Equal(t, 3, *state)

	art, err := daab.Get(c, h)
	require.NoError(t, err)
	assert.Equal(t, 3, *art)
}

func TestClearAllDropsEverything(t *testing.T) {
	c := daab.New()
	h := newLeaf(1)
	_, err := daab.Get(c, h)
	require.NoError(t, err)

	c.ClearAll()
	assert.Equal(t, 0, c.NumberOfKnownBuilders())
	_, ok := daab.GetDynState(c, h)
	assert.False(t, ok)
}

func TestPurgeRemovesEverythingForOneBuilder(t *testing.T) {
	c := daab.New()
	leaf := newLeaf(1)
	n1 := newNode(leaf)

	_, err := daab.Get(c, n1)
	require.NoError(t, err)

	daab.Purge(c, leaf)

	assert.Equal(t, 1, c.NumberOfKnownBuilders(), "purging leaf drops leaf but n1 is still known")
	_, ok := daab.GetDynState(c, leaf)
	assert.False(t, ok)

	freshN1, err := daab.Get(c, n1)
	require.NoError(t, err)
	assert.NotNil(t, freshN1)
}

func TestSyncCacheUsesThreadSafeCarrier(t *testing.T) {
	c := daab.NewSync()
	h := newLeaf(1)

	a1, err := daab.Get(c, h)
	require.NoError(t, err)
	a2, err := daab.Get(c, h)
	require.NoError(t, err)
	assert.Same(t, a1, a2)
}

func TestCanDowncastPanicsOnMismatch(t *testing.T) {
	assert.Panics(t, func() {
		can.MustDowncast[can.Shared[int]](can.NewShared("not an int"))
	})
}
