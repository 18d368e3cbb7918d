package route_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironleaf/merklecore/route"
)

func TestRootIsEmpty(t *testing.T) {
	r := route.Root()
	assert.True(t, r.IsRoot())
	assert.Equal(t, 0, r.Len())
}

func TestChildAndParentRoundTrip(t *testing.T) {
	r := route.Root()
	r = route.Child(r, 3)
	r = route.Child(r, 0)
	r = route.Child(r, 63)

	require.Equal(t, 3, r.Len())
	assert.Equal(t, 3, r.Index(0))
	assert.Equal(t, 0, r.Index(1))
	assert.Equal(t, 63, r.Index(2))

	p, err := route.Parent(r)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, 3, p.Index(0))
	assert.Equal(t, 0, p.Index(1))
}

func TestParentOfRootFails(t *testing.T) {
	_, err := route.Parent(route.Root())
	assert.Error(t, err)
}

func TestLongRouteOverflowsInlinePacking(t *testing.T) {
	r := route.Root()
	for i := 0; i < 25; i++ {
		r = route.Child(r, i%MaxFanOutForTest)
	}
	require.Equal(t, 25, r.Len())
	for i := 0; i < 25; i++ {
		assert.Equal(t, i%MaxFanOutForTest, r.Index(i))
	}
}

const MaxFanOutForTest = route.MaxFanOut

func TestCompareIsDepthFirstLeftToRight(t *testing.T) {
	root := route.Root()
	a := route.Child(root, 0)
	b := route.Child(root, 1)
	aa := route.Child(a, 0)

	assert.Equal(t, -1, route.Compare(root, a))
	assert.Equal(t, -1, route.Compare(a, b))
	assert.Equal(t, -1, route.Compare(a, aa))
	assert.Equal(t, 1, route.Compare(b, a))
	assert.Equal(t, 0, route.Compare(a, a))
}

func TestIsDescendant(t *testing.T) {
	root := route.Root()
	a := route.Child(root, 2)
	ab := route.Child(a, 5)
	other := route.Child(root, 3)

	assert.True(t, route.IsDescendant(ab, a))
	assert.True(t, route.IsDescendant(a, a))
	assert.True(t, route.IsDescendant(a, root))
	assert.False(t, route.IsDescendant(other, a))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	r := route.Root()
	for _, idx := range []int{1, 2, 3, 63, 0, 10, 44} {
		r = route.Child(r, idx)
	}
	enc := route.Encode(r)
	decoded, n, err := route.Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, len(enc), n)
	assert.Equal(t, r.Len(), decoded.Len())
	for i := 0; i < r.Len(); i++ {
		assert.Equal(t, r.Index(i), decoded.Index(i))
	}
	assert.True(t, route.Equal(r, decoded))
}

func TestStepsFollowRootToTarget(t *testing.T) {
	r := route.Child(route.Child(route.Root(), 4), 1)
	steps := route.Steps(r)
	require.Len(t, steps, 2)
	assert.True(t, steps[0].Parent.IsRoot())
	assert.Equal(t, 4, steps[0].Index)
	assert.Equal(t, 1, steps[1].Index)
}
