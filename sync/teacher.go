package sync

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/gammazero/deque"
	"github.com/rs/zerolog"

	"github.com/ironleaf/merklecore/errs"
	"github.com/ironleaf/merklecore/node"
)

// Teacher drives the authoritative side of a reconnect exchange: it always
// holds the tree the learner is trying to catch up to, and it never accepts
// a node from the wire.
type Teacher struct {
	log     zerolog.Logger
	metrics *Metrics
}

// NewTeacher constructs a Teacher. metrics may be nil to disable reporting.
func NewTeacher(log zerolog.Logger, metrics *Metrics) *Teacher {
	return &Teacher{log: log.With().Str("component", "sync.teacher").Logger(), metrics: metrics}
}

// Synchronize runs the teacher side of a reconnect exchange over writer and
// reader:
// advertise the root hash, and if the learner does not already have it,
// pipeline NODE_DATA for every subtree the learner reports missing,
// skipping any subtree whose hash has already been sent elsewhere in this
// exchange.
func (t *Teacher) Synchronize(ctx context.Context, writer *AsyncWriter, reader *AsyncReader, root node.Node) (*Stats, error) {
	start := time.Now()
	stats := &Stats{}

	rootHash := root.Hash()
	if rootHash == nil {
		err := &errs.SynchronizationError{Msg: "cannot teach a tree that has not been hashed"}
		t.log.Error().Err(err).Str("route", root.Route().String()).Msg("synchronize failed")
		return nil, err
	}

	rootHashMsg := Message{Kind: KindRootHash, RootHash: rootHash}
	if err := writer.Enqueue(rootHashMsg); err != nil {
		wrapped := &errs.SynchronizationError{Msg: "failed to send root hash", Err: err}
		t.log.Error().Err(wrapped).Msg("synchronize failed")
		return nil, wrapped
	}
	if n, err := MessageSize(rootHashMsg); err == nil {
		stats.BytesSent += int64(n)
	}

	ack, err := reader.Next(ctx)
	if err != nil {
		wrapped := &errs.SynchronizationError{Msg: "failed to read root ack", Err: err}
		t.log.Error().Err(wrapped).Msg("synchronize failed")
		return nil, wrapped
	}
	if ack.Kind != KindAck {
		err := &errs.SynchronizationError{Msg: "expected ACK in reply to root hash"}
		t.log.Error().Err(err).Msg("synchronize failed")
		return nil, err
	}
	if ack.Ack {
		stats.SyncDuration = time.Since(start)
		t.metrics.observe(stats)
		return stats, nil
	}

	sent := make(map[string]bool)

	queue := deque.New()
	queue.PushBack(root)
	sent[hex.EncodeToString(rootHash)] = true

	for queue.Len() > 0 {
		n := queue.PopFront().(node.Node)

		msg := Message{Kind: KindNodeData}
		msg.NodeData.ClassID = uint64(n.ClassID())
		msg.NodeData.Version = int32(n.Version())
		msg.NodeData.Hash = n.Hash()
		msg.NodeData.IsLeaf = n.IsLeaf()

		if n.IsLeaf() {
			msg.NodeData.Payload = n.(node.Leaf).Payload()
		} else {
			internal := n.(node.Internal)
			hashes := make([][]byte, internal.ChildCount())
			for i := range hashes {
				if c := internal.GetChild(i); c != nil {
					hashes[i] = c.Hash()
				}
			}
			msg.NodeData.ChildHashes = hashes
		}

		if err := writer.Enqueue(msg); err != nil {
			wrapped := &errs.SynchronizationError{Msg: "failed to send node data", Err: err}
			t.log.Error().Err(wrapped).Str("route", n.Route().String()).Msg("synchronize failed")
			return nil, wrapped
		}
		if size, err := MessageSize(msg); err == nil {
			stats.BytesSent += int64(size)
		}
		stats.ObjectsSent++
		if n.IsLeaf() {
			stats.LeafCount++
		} else {
			stats.InternalCount++
		}

		if n.IsLeaf() {
			continue
		}
		internal := n.(node.Internal)
		for i := 0; i < internal.ChildCount(); i++ {
			child := internal.GetChild(i)

			ackMsg, err := reader.Next(ctx)
			if err != nil {
				wrapped := &errs.SynchronizationError{Msg: "failed to read child ack", Err: err}
				t.log.Error().Err(wrapped).Str("route", n.Route().String()).Int("child", i).Msg("synchronize failed")
				return nil, wrapped
			}
			if ackMsg.Kind != KindAck {
				err := &errs.SynchronizationError{Msg: "expected ACK for child slot"}
				t.log.Error().Err(err).Str("route", n.Route().String()).Int("child", i).Msg("synchronize failed")
				return nil, err
			}

			if child == nil {
				continue
			}
			childHashHex := hex.EncodeToString(child.Hash())
			if ackMsg.Ack {
				stats.RedundantCount++
				continue
			}
			if sent[childHashHex] {
				continue
			}
			sent[childHashHex] = true
			queue.PushBack(child)
		}
	}

	stats.SyncDuration = time.Since(start)
	t.metrics.observe(stats)
	return stats, nil
}
