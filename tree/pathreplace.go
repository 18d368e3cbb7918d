package tree

import (
	"fmt"

	"github.com/ironleaf/merklecore/node"
	"github.com/ironleaf/merklecore/route"
)

// ReplacePath copy-on-writes the chain of internal nodes from root down to
// stopDepth = max(0, target.Len()-distance), where distance is how many
// levels above the target to stop (distance=1, the common case, stops at
// the target's immediate parent so the caller can SetChild the new leaf or
// subtree in; distance=0 also copies the target node itself).
//
// It returns every freshly-copied node on that path, root first, plus the
// last one (the node the caller should mutate). Every sibling off the path
// is preserved by reference (its reference count is incremented, not its
// content copied).
func ReplacePath(root node.Node, target route.Route, distance int) ([]node.Internal, node.Node, error) {
	if root == nil {
		return nil, nil, fmt.Errorf("tree: cannot replace a path from a nil root")
	}
	stopDepth := target.Len() - distance
	if stopDepth < 0 {
		stopDepth = 0
	}

	var replaced []node.Internal
	var prevParent node.Internal
	var prevIdx int
	cur := root

	for depth := 0; ; depth++ {
		if cur == nil {
			// The path runs off the edge of the tree (a previously-empty
			// slot); nothing further to copy - the caller attaches new
			// content from here down.
			return replaced, nil, nil
		}
		if cur.IsLeaf() && depth <= stopDepth {
			if depth == stopDepth {
				// The target itself is a leaf; nothing to copy below it,
				// the leaf is simply handed back for the caller to swap.
				return replaced, cur, nil
			}
			return nil, nil, fmt.Errorf("tree: route %s descends through a leaf before reaching depth %d", target.String(), stopDepth)
		}

		internalCur := cur.(node.Internal)
		copied, err := internalCur.Copy()
		if err != nil {
			return nil, nil, err
		}
		newNode := copied.(node.Internal)
		replaced = append(replaced, newNode)

		if prevParent != nil {
			if err := prevParent.SetChild(prevIdx, newNode, nil); err != nil {
				return nil, nil, err
			}
		}

		if depth == stopDepth {
			return replaced, newNode, nil
		}

		idx := target.Index(depth)
		prevParent = newNode
		prevIdx = idx
		cur = newNode.GetChild(idx)
	}
}
