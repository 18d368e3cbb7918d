package tree

import "github.com/ironleaf/merklecore/node"

// InitializeAll visits every internal node reachable from root in
// post-order (descendants before their parent) and calls Initialize() on
// it, skipping any subtree for which skipSubtree returns true - such
// subtrees are expected to have already materialized their own derived
// metadata during deserialization. skipSubtree may be nil to mean "never
// skip".
func InitializeAll(root node.Node, skipSubtree DescendantFilter) error {
	if root == nil || root.IsLeaf() {
		return nil
	}
	if skipSubtree != nil && skipSubtree(root) {
		return nil
	}
	internal := root.(node.Internal)
	for i := 0; i < internal.ChildCount(); i++ {
		if err := InitializeAll(internal.GetChild(i), skipSubtree); err != nil {
			return err
		}
	}
	return internal.Initialize()
}

// PostOrderInternals collects every internal node reachable from root in
// post-order (descendants before their parent). The sync package's learner
// gives the same descendants-first guarantee for its deferred
// initialization, but builds its own list by prepending nodes in
// breadth-first discovery order; it does not call this function.
func PostOrderInternals(root node.Node) []node.Internal {
	var out []node.Internal
	var walk func(n node.Node)
	walk = func(n node.Node) {
		if n == nil || n.IsLeaf() {
			return
		}
		internal := n.(node.Internal)
		for i := 0; i < internal.ChildCount(); i++ {
			walk(internal.GetChild(i))
		}
		out = append(out, internal)
	}
	walk(root)
	return out
}
