package node_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironleaf/merklecore/digest"
	"github.com/ironleaf/merklecore/node"
	"github.com/ironleaf/merklecore/route"
)

const testLeafClass node.ClassID = 1
const testInternalClass node.ClassID = 2

func newTestLeaf(payload string) node.Leaf {
	return node.NewLeaf(testLeafClass, 1, route.Root(), []byte(payload), digest.SHA384)
}

func newTestInternal(strategy node.CopyStrategy) node.Internal {
	return node.NewInternal(testInternalClass, 1, route.Root(), 0, route.MaxFanOut, strategy, nil, nil)
}

func TestLeafSelfHashesAtConstruction(t *testing.T) {
	l := newTestLeaf("alpha")
	require.NotNil(t, l.Hash())
	assert.Len(t, l.Hash(), digest.SHA384.Len())
}

func TestIdenticalPayloadsHashIdentically(t *testing.T) {
	a := newTestLeaf("alpha")
	b := newTestLeaf("alpha")
	assert.Equal(t, a.Hash(), b.Hash())
}

func TestReserveReleaseLifecycle(t *testing.T) {
	l := newTestLeaf("alpha")
	assert.EqualValues(t, 0, l.RefCount())

	l.Reserve()
	assert.EqualValues(t, 1, l.RefCount())

	reachedZero, err := l.Release()
	require.NoError(t, err)
	assert.True(t, reachedZero)
	assert.EqualValues(t, -1, l.RefCount())

	_, err = l.Release()
	assert.Error(t, err)
}

func TestReleaseAtZeroFails(t *testing.T) {
	l := newTestLeaf("alpha")
	_, err := l.Release()
	assert.Error(t, err)
}

func TestSetChildAdoptsAndReleasesDisplaced(t *testing.T) {
	parent := newTestInternal(node.SmartPathReplacing)
	child1 := newTestLeaf("one")
	require.NoError(t, parent.SetChild(0, child1, nil))
	assert.EqualValues(t, 1, child1.RefCount())
	assert.True(t, route.Equal(route.Child(route.Root(), 0), child1.Route()))

	child2 := newTestLeaf("two")
	require.NoError(t, parent.SetChild(0, child2, nil))
	assert.EqualValues(t, -1, child1.RefCount(), "displaced child must be released")
	assert.EqualValues(t, 1, child2.RefCount())
}

func TestSetChildInvalidatesParentHash(t *testing.T) {
	parent := newTestInternal(node.SmartPathReplacing)
	require.NoError(t, parent.SetChild(0, newTestLeaf("one"), nil))
	assert.Nil(t, parent.Hash(), "hash must be invalidated until the engine recomputes it")
}

func TestIllegalChildIndex(t *testing.T) {
	parent := node.NewInternal(testInternalClass, 1, route.Root(), 0, 4, node.SmartPathReplacing, nil, nil)
	err := parent.SetChild(10, newTestLeaf("x"), nil)
	assert.Error(t, err)
}

func TestCopySmartPathReplacingSharesChildrenByReference(t *testing.T) {
	parent := newTestInternal(node.SmartPathReplacing)
	leaf := newTestLeaf("shared")
	require.NoError(t, parent.SetChild(0, leaf, nil))

	cp, err := parent.Copy()
	require.NoError(t, err)
	require.True(t, parent.IsImmutable())

	cpInternal := cp.(node.Internal)
	assert.Same(t, leaf, cpInternal.GetChild(0), "smart copy must share the child by reference")
	assert.EqualValues(t, 2, leaf.RefCount(), "shared child gains a reference from the copy")
}

func TestCopyCascadingDuplicatesDescendants(t *testing.T) {
	parent := newTestInternal(node.Cascading)
	leaf := newTestLeaf("dup")
	require.NoError(t, parent.SetChild(0, leaf, nil))

	cp, err := parent.Copy()
	require.NoError(t, err)
	cpInternal := cp.(node.Internal)
	assert.NotSame(t, leaf, cpInternal.GetChild(0))
	assert.Equal(t, leaf.Hash(), cpInternal.GetChild(0).Hash())
}

func TestCopySelfOnlyLeavesChildrenUnattached(t *testing.T) {
	parent := newTestInternal(node.SelfOnly)
	require.NoError(t, parent.SetChild(0, newTestLeaf("x"), nil))

	cp, err := parent.Copy()
	require.NoError(t, err)
	cpInternal := cp.(node.Internal)
	assert.Nil(t, cpInternal.GetChild(0))
}

func TestDirectCopyOfImmutableNodeFails(t *testing.T) {
	leaf := newTestLeaf("alpha")
	_, err := leaf.Copy()
	require.NoError(t, err)
	assert.True(t, leaf.IsImmutable())

	_, err = leaf.Copy()
	assert.Error(t, err, "a second direct copy outside an ancestor pass must be rejected")
}

func TestDirectCopyOfImmutableInternalFails(t *testing.T) {
	parent := newTestInternal(node.SmartPathReplacing)
	require.NoError(t, parent.SetChild(0, newTestLeaf("x"), nil))

	_, err := parent.Copy()
	require.NoError(t, err)

	_, err = parent.Copy()
	assert.Error(t, err, "a second direct copy outside an ancestor pass must be rejected")
}

func TestCascadingCopyRevisitsAlreadyImmutableSharedDescendant(t *testing.T) {
	leaf := newTestLeaf("shared")

	parentA := newTestInternal(node.Cascading)
	require.NoError(t, parentA.SetChild(0, leaf, nil))
	parentB := newTestInternal(node.Cascading)
	require.NoError(t, parentB.SetChild(0, leaf, nil))

	_, err := parentA.Copy()
	require.NoError(t, err)
	assert.True(t, leaf.IsImmutable(), "cascading copy marks the descendant immutable")

	// parentB is a distinct, still-mutable ancestor sharing the same leaf;
	// its own cascading copy must still walk into the already-immutable
	// leaf rather than being rejected the way a direct Copy() call would.
	cp, err := parentB.Copy()
	require.NoError(t, err)
	cpInternal := cp.(node.Internal)
	assert.NotSame(t, leaf, cpInternal.GetChild(0))
}

func TestSetRouteFailsWhenShared(t *testing.T) {
	leaf := newTestLeaf("x")
	leaf.Reserve()
	leaf.Reserve()
	err := leaf.SetRoute(route.Child(route.Root(), 3))
	assert.Error(t, err)
}

func TestOutOfRangeGetChildPanics(t *testing.T) {
	parent := node.NewInternal(testInternalClass, 1, route.Root(), 0, 2, node.SmartPathReplacing, nil, nil)
	assert.Panics(t, func() { parent.GetChild(5) })
}
