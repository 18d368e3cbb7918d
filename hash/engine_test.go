package hash_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironleaf/merklecore/digest"
	"github.com/ironleaf/merklecore/hash"
	"github.com/ironleaf/merklecore/node"
	"github.com/ironleaf/merklecore/node/mocks"
	"github.com/ironleaf/merklecore/route"
)

const leafClass node.ClassID = 1
const internalClass node.ClassID = 2

func TestHashNodeRequiresChildHashes(t *testing.T) {
	e := hash.NewEngine(digest.SHA384, 2)
	defer e.Close()

	parent := node.NewInternal(internalClass, 1, route.Root(), 0, 4, node.SmartPathReplacing, nil, nil)
	unhashedChild := node.NewInternal(internalClass, 1, route.Child(route.Root(), 0), 0, 4, node.SmartPathReplacing, nil, nil)
	require.NoError(t, parent.SetChild(0, unhashedChild, nil))

	err := e.HashNode(parent)
	assert.Error(t, err)
}

func TestHashTreeFillsEveryMissingHash(t *testing.T) {
	e := hash.NewEngine(digest.SHA384, 4)
	defer e.Close()

	root := node.NewInternal(internalClass, 1, route.Root(), 0, 2, node.SmartPathReplacing, nil, nil)
	leaf := node.NewLeaf(leafClass, 1, route.Child(route.Root(), 0), []byte("alpha"), digest.SHA384)
	require.NoError(t, root.SetChild(0, leaf, nil))
	require.Nil(t, root.Hash())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := <-e.HashTree(ctx, root)
	require.NoError(t, err)
	assert.NotNil(t, root.Hash())
}

func TestValidateLeafDetectsMismatch(t *testing.T) {
	e := hash.NewEngine(digest.SHA384, 1)
	defer e.Close()

	leaf := node.NewLeaf(leafClass, 1, route.Root(), []byte("alpha"), digest.SHA384)
	v := e.ValidateLeaf(leafClass, 1, []byte("tampered"), leaf.Hash())

	ok, err := v.IsValid(context.Background())
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestValidateLeafAcceptsMatch(t *testing.T) {
	e := hash.NewEngine(digest.SHA384, 1)
	defer e.Close()

	leaf := node.NewLeaf(leafClass, 1, route.Root(), []byte("alpha"), digest.SHA384)
	v := e.ValidateLeaf(leafClass, 1, []byte("alpha"), leaf.Hash())

	ok, err := v.IsValid(context.Background())
	assert.True(t, ok)
	assert.NoError(t, err)
}

func TestHashNodeRejectsUnhashedChildWithoutBuildingATree(t *testing.T) {
	e := hash.NewEngine(digest.SHA384, 1)
	defer e.Close()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	child := mocks.NewMockInternal(ctrl)
	child.EXPECT().Hash().Return(nil).AnyTimes()

	parent := mocks.NewMockInternal(ctrl)
	parent.EXPECT().IsLeaf().Return(false).AnyTimes()
	parent.EXPECT().ChildCount().Return(1).AnyTimes()
	parent.EXPECT().GetChild(0).Return(node.Node(child)).AnyTimes()
	parent.EXPECT().Route().Return(route.Root()).AnyTimes()

	err := e.HashNode(parent)
	assert.Error(t, err)
}

func TestComputeHashIsDeterministic(t *testing.T) {
	algo := digest.SHA384
	root := node.NewInternal(internalClass, 1, route.Root(), 0, 2, node.SmartPathReplacing, nil, nil)
	leaf := node.NewLeaf(leafClass, 1, route.Child(route.Root(), 0), []byte("alpha"), algo)
	require.NoError(t, root.SetChild(0, leaf, nil))

	h1 := node.ComputeHash(root, algo)
	h2 := node.ComputeHash(root, algo)
	assert.Equal(t, h1, h2)
}
