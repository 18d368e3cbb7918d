package sync_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironleaf/merklecore/digest"
	"github.com/ironleaf/merklecore/hash"
	"github.com/ironleaf/merklecore/node"
	"github.com/ironleaf/merklecore/route"
	"github.com/ironleaf/merklecore/sync"
)

const leafClass node.ClassID = 1
const internalClass node.ClassID = 2

func newLeaf(rt route.Route, payload string) node.Node {
	return node.NewLeaf(leafClass, 1, rt, []byte(payload), digest.SHA384)
}

func newInternal(rt route.Route) node.Internal {
	return node.NewInternal(internalClass, 1, rt, 0, 2, node.SmartPathReplacing, nil, nil)
}

// pair wires a teacher and a learner together over two io.Pipe connections,
// one per direction, so both sides read and write concurrently.
type pair struct {
	teacherWriter *sync.AsyncWriter
	teacherReader *sync.AsyncReader
	learnerWriter *sync.AsyncWriter
	learnerReader *sync.AsyncReader
}

func newPair() pair {
	ttolR, ttolW := io.Pipe()
	ltotR, ltotW := io.Pipe()
	return pair{
		teacherWriter: sync.NewAsyncWriter(ttolW, 16),
		teacherReader: sync.NewAsyncReader(ltotR, 16),
		learnerWriter: sync.NewAsyncWriter(ltotW, 16),
		learnerReader: sync.NewAsyncReader(ttolR, 16),
	}
}

func runExchange(t *testing.T, teacherRoot, learnerRoot node.Node) (node.Node, *sync.Stats, *sync.Stats) {
	t.Helper()
	log := zerolog.Nop()
	engine := hash.NewEngine(digest.SHA384, 2)
	defer engine.Close()

	p := newPair()
	teacher := sync.NewTeacher(log, nil)
	learner := sync.NewLearner(log, nil, engine, digest.SHA384, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type teacherResult struct {
		stats *sync.Stats
		err   error
	}
	type learnerResult struct {
		root  node.Node
		stats *sync.Stats
		err   error
	}

	tCh := make(chan teacherResult, 1)
	lCh := make(chan learnerResult, 1)

	go func() {
		st, err := teacher.Synchronize(ctx, p.teacherWriter, p.teacherReader, teacherRoot)
		tCh <- teacherResult{st, err}
	}()
	go func() {
		root, st, err := learner.Synchronize(ctx, p.learnerWriter, p.learnerReader, learnerRoot)
		lCh <- learnerResult{root, st, err}
	}()

	tr := <-tCh
	lr := <-lCh
	require.NoError(t, tr.err)
	require.NoError(t, lr.err)
	return lr.root, tr.stats, lr.stats
}

func TestIdenticalTreesTransferNoNodeData(t *testing.T) {
	root := newInternal(route.Root())
	_ = root.SetChild(0, newLeaf(route.Child(route.Root(), 0), "a"), nil)
	_ = root.SetChild(1, newLeaf(route.Child(route.Root(), 1), "b"), nil)
	root.SetHash(node.ComputeHash(root, digest.SHA384))

	newRoot, teacherStats, _ := runExchange(t, root, root)
	assert.Equal(t, int64(0), teacherStats.ObjectsSent)
	assert.Same(t, root, newRoot)
}

func TestDivergentLeafTriggersMinimalTransfer(t *testing.T) {
	teacherRoot := newInternal(route.Root())
	sharedLeaf := newLeaf(route.Child(route.Root(), 1), "unchanged")
	_ = teacherRoot.SetChild(0, newLeaf(route.Child(route.Root(), 0), "new-value"), nil)
	_ = teacherRoot.SetChild(1, sharedLeaf, nil)
	teacherRoot.SetHash(node.ComputeHash(teacherRoot, digest.SHA384))

	learnerRoot := newInternal(route.Root())
	_ = learnerRoot.SetChild(0, newLeaf(route.Child(route.Root(), 0), "old-value"), nil)
	_ = learnerRoot.SetChild(1, sharedLeaf, nil)
	learnerRoot.SetHash(node.ComputeHash(learnerRoot, digest.SHA384))

	newRoot, teacherStats, learnerStats := runExchange(t, teacherRoot, learnerRoot)

	require.NotNil(t, newRoot)
	assert.Equal(t, teacherRoot.Hash(), newRoot.Hash())
	// root + the one changed leaf = 2 objects sent; the unchanged leaf is
	// reused by the learner and never transmitted.
	assert.Equal(t, int64(2), teacherStats.ObjectsSent)
	assert.Equal(t, int64(1), learnerStats.RedundantCount)
}

func TestReusedSubtreeGetsExactlyOneExtraReference(t *testing.T) {
	teacherRoot := newInternal(route.Root())
	sharedLeaf := newLeaf(route.Child(route.Root(), 1), "unchanged")
	sharedLeaf.Reserve()
	_ = teacherRoot.SetChild(0, newLeaf(route.Child(route.Root(), 0), "new-value"), nil)
	_ = teacherRoot.SetChild(1, sharedLeaf, nil)
	teacherRoot.SetHash(node.ComputeHash(teacherRoot, digest.SHA384))

	learnerRoot := newInternal(route.Root())
	learnerRoot.Reserve() // the caller owns its prior tree with one reference
	_ = learnerRoot.SetChild(0, newLeaf(route.Child(route.Root(), 0), "old-value"), nil)
	_ = learnerRoot.SetChild(1, sharedLeaf, nil)
	learnerRoot.SetHash(node.ComputeHash(learnerRoot, digest.SHA384))

	// sharedLeaf now has refCount 3: the explicit Reserve above plus one
	// SetChild call on each of teacherRoot and learnerRoot.
	require.EqualValues(t, 3, sharedLeaf.RefCount())

	newRoot, _, _ := runExchange(t, teacherRoot, learnerRoot)
	require.NotNil(t, newRoot)

	// The new root's SetChild reused sharedLeaf rather than receiving a
	// fresh copy, so exactly one more reference was taken - not two.
	assert.EqualValues(t, 4, sharedLeaf.RefCount())

	reached, err := learnerRoot.Release()
	require.NoError(t, err)
	assert.True(t, reached)
	assert.EqualValues(t, 3, sharedLeaf.RefCount())
}

func TestMidSyncFailureReleasesPartialRoot(t *testing.T) {
	sharedLeaf := newLeaf(route.Child(route.Root(), 1), "shared-value")
	sharedLeaf.Reserve()
	teacherRoot := newInternal(route.Root())
	_ = teacherRoot.SetChild(0, newLeaf(route.Child(route.Root(), 0), "new-value"), nil)
	_ = teacherRoot.SetChild(1, sharedLeaf, nil)
	teacherRoot.SetHash(node.ComputeHash(teacherRoot, digest.SHA384))

	learnerRoot := newInternal(route.Root())
	learnerRoot.Reserve()
	_ = learnerRoot.SetChild(0, newLeaf(route.Child(route.Root(), 0), "old-value"), nil)
	_ = learnerRoot.SetChild(1, sharedLeaf, nil)
	learnerRoot.SetHash(node.ComputeHash(learnerRoot, digest.SHA384))

	// sharedLeaf starts at refCount 3, same composition as the reuse test
	// above: the explicit Reserve plus one SetChild on each root.
	require.EqualValues(t, 3, sharedLeaf.RefCount())

	log := zerolog.Nop()
	engine := hash.NewEngine(digest.SHA384, 2)
	defer engine.Close()
	learner := sync.NewLearner(log, nil, engine, digest.SHA384, nil, nil)

	readerR, readerW := io.Pipe()
	writerR, writerW := io.Pipe()
	go func() { _, _ = io.Copy(io.Discard, writerR) }()

	learnerReader := sync.NewAsyncReader(readerR, 16)
	learnerWriter := sync.NewAsyncWriter(writerW, 16)

	go func() {
		_ = sync.EncodeMessage(readerW, sync.Message{Kind: sync.KindRootHash, RootHash: teacherRoot.Hash()})
		// The root's NODE_DATA carries the real child hashes, so child 1
		// (shared) is recognized as reused and attached immediately while
		// child 0 is queued for its own NODE_DATA.
		_ = sync.EncodeMessage(readerW, sync.Message{
			Kind: sync.KindNodeData,
			NodeData: sync.NodeData{
				ClassID:     internalClass,
				Version:     1,
				Hash:        teacherRoot.Hash(),
				IsLeaf:      false,
				ChildHashes: [][]byte{teacherRoot.(node.Internal).GetChild(0).Hash(), sharedLeaf.Hash()},
			},
		})
		// Child 0's NODE_DATA carries a hash that does not match its own
		// payload, forcing a validation failure partway through the
		// exchange, after the reused child has already been attached.
		_ = sync.EncodeMessage(readerW, sync.Message{
			Kind: sync.KindNodeData,
			NodeData: sync.NodeData{
				ClassID: leafClass,
				Version: 1,
				Hash:    []byte("0000000000000000000000000000000000000000000000"),
				IsLeaf:  true,
				Payload: []byte("new-value"),
			},
		})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	newRoot, _, err := learner.Synchronize(ctx, learnerWriter, learnerReader, learnerRoot)
	require.Error(t, err)
	assert.Nil(t, newRoot)

	// The partial root held one extra reference on sharedLeaf through its
	// already-attached reused child slot; cleanup on the failed exchange
	// must release the partial root and cascade that reference back down,
	// not merely report that Release failed.
	assert.EqualValues(t, 3, sharedLeaf.RefCount())
}

func TestNoPriorTreeReceivesEverything(t *testing.T) {
	teacherRoot := newInternal(route.Root())
	_ = teacherRoot.SetChild(0, newLeaf(route.Child(route.Root(), 0), "x"), nil)
	_ = teacherRoot.SetChild(1, newLeaf(route.Child(route.Root(), 1), "y"), nil)
	teacherRoot.SetHash(node.ComputeHash(teacherRoot, digest.SHA384))

	newRoot, teacherStats, _ := runExchange(t, teacherRoot, nil)
	require.NotNil(t, newRoot)
	assert.Equal(t, teacherRoot.Hash(), newRoot.Hash())
	assert.Equal(t, int64(3), teacherStats.ObjectsSent)
}
