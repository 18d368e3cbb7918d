// Package hash runs a pool of worker goroutines that compute and validate
// merkle digests, using a Ready/Run/Done goroutine lifecycle around a task
// queue shared by hashing and validation work.
package hash

import (
	"context"
	"fmt"
	"sync"

	"github.com/ironleaf/merklecore/digest"
	"github.com/ironleaf/merklecore/internal/config"
	"github.com/ironleaf/merklecore/node"
)

// Engine computes and validates digests over nodes and subtrees using a
// fixed-size worker pool.
type Engine struct {
	algo    digest.Algorithm
	tasks   chan func()
	wg      sync.WaitGroup
	closeMu sync.Mutex
	closed  bool
}

// NewEngine starts workers goroutines consuming hashing/validation tasks.
// The algorithm is fixed for the engine's lifetime.
func NewEngine(algo digest.Algorithm, workers int) *Engine {
	if workers < 1 {
		workers = 1
	}
	e := &Engine{
		algo:  algo,
		tasks: make(chan func(), workers*4),
	}
	for i := 0; i < workers; i++ {
		e.wg.Add(1)
		go e.worker()
	}
	return e
}

// NewEngineFromConfig builds an Engine sized and keyed by cfg's HashWorkers
// and HashAlgorithm fields, in place of passing them as separate arguments.
func NewEngineFromConfig(cfg *config.Config) (*Engine, error) {
	algo, err := digest.ParseAlgorithm(cfg.HashAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("hash: invalid config: %w", err)
	}
	return NewEngine(algo, cfg.HashWorkers), nil
}

func (e *Engine) worker() {
	defer e.wg.Done()
	for task := range e.tasks {
		task()
	}
}

// Close stops accepting new work and waits for in-flight tasks to finish.
func (e *Engine) Close() {
	e.closeMu.Lock()
	if !e.closed {
		e.closed = true
		close(e.tasks)
	}
	e.closeMu.Unlock()
	e.wg.Wait()
}

// Algorithm returns the engine's configured digest algorithm.
func (e *Engine) Algorithm() digest.Algorithm { return e.algo }

// HashNode computes and stores n's hash synchronously. It fails if n is
// internal and any required descendant's hash is missing.
func (e *Engine) HashNode(n node.Node) error {
	if n.IsLeaf() {
		// Leaves are self-hashing at construction time (see node.NewLeaf);
		// HashNode on a leaf is a validity check that one was computed.
		if n.Hash() == nil {
			return fmt.Errorf("hash: leaf at route %s has no hash", n.Route().String())
		}
		return nil
	}
	internal := n.(node.Internal)
	for i := 0; i < internal.ChildCount(); i++ {
		c := internal.GetChild(i)
		if c != nil && c.Hash() == nil {
			return fmt.Errorf("hash: child %d of node at route %s has no hash", i, n.Route().String())
		}
	}
	n.SetHash(node.ComputeHash(internal, e.algo))
	return nil
}

// HashTree asynchronously hashes every node in the subtree rooted at root
// whose hash is missing, deepest-first, as one task on the engine's worker
// pool, and returns a channel that is closed once every non-null
// descendant's hash is set (or an error occurs).
func (e *Engine) HashTree(ctx context.Context, root node.Node) <-chan error {
	done := make(chan error, 1)
	e.tasks <- func() {
		done <- e.hashTreeRecursive(ctx, root)
		close(done)
	}
	return done
}

func (e *Engine) hashTreeRecursive(ctx context.Context, n node.Node) error {
	if n == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if !n.IsLeaf() {
		internal := n.(node.Internal)
		for i := 0; i < internal.ChildCount(); i++ {
			if err := e.hashTreeRecursive(ctx, internal.GetChild(i)); err != nil {
				return err
			}
		}
	}
	if n.Hash() == nil {
		return e.HashNode(n)
	}
	return nil
}
