package sync

import (
	"bytes"
	"context"
	"time"

	"github.com/gammazero/deque"
	"github.com/rs/zerolog"

	"github.com/ironleaf/merklecore/digest"
	"github.com/ironleaf/merklecore/errs"
	"github.com/ironleaf/merklecore/hash"
	"github.com/ironleaf/merklecore/node"
	"github.com/ironleaf/merklecore/route"
)

// Learner drives the catching-up side of a reconnect exchange. SchemaCheck
// and InitFunc are applied uniformly to every internal node this exchange
// reconstructs; a deployment that mixes internal node schemas within one
// tree has no per-class-id lookup for them here, and the registry package
// maps class ids to constructors only.
type Learner struct {
	log         zerolog.Logger
	metrics     *Metrics
	engine      *hash.Engine
	algo        digest.Algorithm
	schemaCheck node.SchemaCheck
	initFunc    node.InitFunc
}

// NewLearner constructs a Learner. engine is used to validate every
// received node against its claimed hash before it is ever attached to the
// new tree.
func NewLearner(log zerolog.Logger, metrics *Metrics, engine *hash.Engine, algo digest.Algorithm, schemaCheck node.SchemaCheck, initFunc node.InitFunc) *Learner {
	return &Learner{
		log:         log.With().Str("component", "sync.learner").Logger(),
		metrics:     metrics,
		engine:      engine,
		algo:        algo,
		schemaCheck: schemaCheck,
		initFunc:    initFunc,
	}
}

// pendingSlot records where a NODE_DATA still in flight will be attached
// once it arrives, and which node in the learner's prior tree occupied the
// equivalent position (used to decide REUSED_LOCAL for its own children).
type pendingSlot struct {
	parent           node.Internal
	index            int
	localCounterpart node.Node
}

// Synchronize runs the learner side of a reconnect exchange over writer and
// reader.
// original is the learner's prior tree, or nil if it has none yet; the
// caller retains ownership of it throughout and is responsible for
// releasing it once it is no longer needed. Any subtree this exchange
// reuses from original is reattached under the new root via SetChild,
// which reserves it, so that subtree survives independently whether the
// caller releases original or keeps it around. The returned node is the
// new, fully initialized root, owned by the caller with reference count 1.
// When the teacher's root hash already matches original's, no NODE_DATA is
// exchanged and original itself is returned with its reference count
// unchanged.
func (l *Learner) Synchronize(ctx context.Context, writer *AsyncWriter, reader *AsyncReader, original node.Node) (node.Node, *Stats, error) {
	start := time.Now()
	stats := &Stats{}

	var newRoot node.Node

	fail := func(wrapped *errs.SynchronizationError) (node.Node, *Stats, error) {
		l.log.Error().Err(wrapped).Msg("synchronize failed")
		if newRoot != nil {
			_, _ = newRoot.Release()
		}
		return nil, nil, wrapped
	}

	rootMsg, err := reader.Next(ctx)
	if err != nil {
		return fail(&errs.SynchronizationError{Msg: "failed to read root hash", Err: err})
	}
	if rootMsg.Kind != KindRootHash {
		return fail(&errs.SynchronizationError{Msg: "expected ROOT_HASH as first message"})
	}

	var originalHash []byte
	if original != nil {
		originalHash = original.Hash()
	}
	matches := originalHash != nil && bytes.Equal(originalHash, rootMsg.RootHash)

	rootAckMsg := Message{Kind: KindAck, Ack: matches}
	if err := writer.Enqueue(rootAckMsg); err != nil {
		return fail(&errs.SynchronizationError{Msg: "failed to send root ack", Err: err})
	}
	if n, err := MessageSize(rootAckMsg); err == nil {
		stats.BytesSent += int64(n)
	}
	if matches {
		stats.SyncDuration = time.Since(start)
		l.metrics.observe(stats)
		return original, stats, nil
	}

	var initOrder []node.Internal

	queue := deque.New()
	queue.PushBack(pendingSlot{nil, 0, original})

	for queue.Len() > 0 {
		slot := queue.PopFront().(pendingSlot)

		msg, err := reader.Next(ctx)
		if err != nil {
			return fail(&errs.SynchronizationError{Msg: "failed to read node data", Err: err})
		}
		if msg.Kind != KindNodeData {
			return fail(&errs.SynchronizationError{Msg: "expected NODE_DATA"})
		}
		data := msg.NodeData

		var newNode node.Node
		if data.IsLeaf {
			v := l.engine.ValidateLeaf(node.ClassID(data.ClassID), node.Version(data.Version), data.Payload, data.Hash)
			ok, verr := v.IsValid(ctx)
			if verr != nil || !ok {
				return fail(&errs.SynchronizationError{Msg: "leaf failed hash validation", Err: verr})
			}
			leaf := node.NewLeaf(node.ClassID(data.ClassID), node.Version(data.Version), route.Root(), data.Payload, l.algo)
			newNode = leaf
			stats.LeafCount++
		} else {
			v := l.engine.ValidateInternal(node.ClassID(data.ClassID), node.Version(data.Version), data.ChildHashes, data.Hash)
			ok, verr := v.IsValid(ctx)
			if verr != nil || !ok {
				return fail(&errs.SynchronizationError{Msg: "internal node failed hash validation", Err: verr})
			}

			internalNew := node.NewInternal(node.ClassID(data.ClassID), node.Version(data.Version), route.Root(), 0, len(data.ChildHashes), node.SmartPathReplacing, l.schemaCheck, l.initFunc)
			stats.InternalCount++

			var localInternal node.Internal
			if slot.localCounterpart != nil && !slot.localCounterpart.IsLeaf() {
				localInternal = slot.localCounterpart.(node.Internal)
			}

			for i, childHash := range data.ChildHashes {
				var localChild node.Node
				if localInternal != nil && i < localInternal.ChildCount() {
					localChild = localInternal.GetChild(i)
				}

				reuse := childHash != nil && localChild != nil && bytes.Equal(localChild.Hash(), childHash)

				childAckMsg := Message{Kind: KindAck, Ack: reuse}
				if err := writer.Enqueue(childAckMsg); err != nil {
					return fail(&errs.SynchronizationError{Msg: "failed to send child ack", Err: err})
				}
				if n, err := MessageSize(childAckMsg); err == nil {
					stats.BytesSent += int64(n)
				}

				if childHash == nil {
					continue
				}
				if reuse {
					stats.RedundantCount++
					if err := internalNew.SetChild(i, localChild, nil); err != nil {
						return fail(&errs.SynchronizationError{Msg: "failed to reattach reused child", Err: err})
					}
					continue
				}
				queue.PushBack(pendingSlot{internalNew, i, localChild})
			}

			newNode = internalNew
			initOrder = append([]node.Internal{internalNew}, initOrder...)
		}

		newNode.SetHash(data.Hash)

		if slot.parent == nil {
			newNode.Reserve()
			newRoot = newNode
		} else {
			if err := slot.parent.SetChild(slot.index, newNode, nil); err != nil {
				return fail(&errs.SynchronizationError{Msg: "failed to attach received node", Err: err})
			}
		}
	}

	initStart := time.Now()
	for _, internal := range initOrder {
		if err := internal.Initialize(); err != nil {
			return fail(&errs.SynchronizationError{Msg: "failed to initialize reconstructed node", Err: err})
		}
	}
	stats.InitDuration = time.Since(initStart)
	stats.SyncDuration = time.Since(start)
	l.metrics.observe(stats)
	return newRoot, stats, nil
}
