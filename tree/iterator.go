// Package tree provides iteration, routing, path replacement, subtree
// adoption, and post-deserialization initialization over the node package's
// tree structure: configurable, prunable traversal iterators plus the
// copy-on-write path-replacement utility central to cheap snapshots.
package tree

import (
	"github.com/ironleaf/merklecore/node"
	"github.com/ironleaf/merklecore/route"
)

// Filter decides whether a node should be included in an iteration result.
// DescendantFilter additionally decides whether a node's descendants should
// be visited at all; returning false prunes the whole subtree.
type Filter func(n node.Node) bool
type DescendantFilter func(n node.Node) bool

// NodeAt follows route r from root, returning the node at that position, or
// nil if r refers to an index past the end of some ancestor (per spec, this
// resolves to nil rather than erroring).
func NodeAt(root node.Node, r route.Route) node.Node {
	cur := root
	for i := 0; i < r.Len(); i++ {
		if cur == nil || cur.IsLeaf() {
			return nil
		}
		internal := cur.(node.Internal)
		idx := r.Index(i)
		if idx >= internal.ChildCount() {
			return nil
		}
		cur = internal.GetChild(idx)
	}
	return cur
}

// DepthFirst visits root and its descendants in pre-order (node before its
// children), applying filter once per node and descendantFilter once per
// internal node to decide whether to recurse into it. Either predicate may
// be nil to mean "always true".
func DepthFirst(root node.Node, filter Filter, descendantFilter DescendantFilter) []node.Node {
	var out []node.Node
	var walk func(n node.Node)
	walk = func(n node.Node) {
		if n == nil {
			return
		}
		if filter == nil || filter(n) {
			out = append(out, n)
		}
		if n.IsLeaf() {
			return
		}
		if descendantFilter != nil && !descendantFilter(n) {
			return
		}
		internal := n.(node.Internal)
		for i := 0; i < internal.ChildCount(); i++ {
			walk(internal.GetChild(i))
		}
	}
	walk(root)
	return out
}

// BreadthFirst visits root and its descendants level by level, left to
// right, applying the same filter semantics as DepthFirst.
func BreadthFirst(root node.Node, filter Filter, descendantFilter DescendantFilter) []node.Node {
	var out []node.Node
	if root == nil {
		return out
	}
	queue := []node.Node{root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n == nil {
			continue
		}
		if filter == nil || filter(n) {
			out = append(out, n)
		}
		if n.IsLeaf() {
			continue
		}
		if descendantFilter != nil && !descendantFilter(n) {
			continue
		}
		internal := n.(node.Internal)
		for i := 0; i < internal.ChildCount(); i++ {
			queue = append(queue, internal.GetChild(i))
		}
	}
	return out
}
