package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironleaf/merklecore/digest"
	"github.com/ironleaf/merklecore/node"
	"github.com/ironleaf/merklecore/registry"
	"github.com/ironleaf/merklecore/route"
)

const demoClass node.ClassID = 9001

func TestRegisterAndLookup(t *testing.T) {
	registry.Register(demoClass, func() node.Node {
		return node.NewLeaf(demoClass, 1, route.Root(), nil, digest.SHA384)
	})

	n, err := registry.New(demoClass)
	require.NoError(t, err)
	assert.Equal(t, demoClass, n.ClassID())
}

func TestRegisterCollisionPanics(t *testing.T) {
	const collideClass node.ClassID = 9002
	registry.Register(collideClass, func() node.Node { return nil })
	assert.Panics(t, func() {
		registry.Register(collideClass, func() node.Node { return nil })
	})
}

func TestUnknownClassErrors(t *testing.T) {
	_, err := registry.New(999999)
	assert.Error(t, err)
}

func TestRegisterNullClassPanics(t *testing.T) {
	assert.Panics(t, func() {
		registry.Register(node.NullClassID, func() node.Node { return nil })
	})
}
