// Package route encodes the path from a merkle tree's root to any node as a
// compact sequence of child indices.
package route

import (
	"bytes"
	"fmt"
)

// MaxFanOut is the maximum number of children an internal node may declare.
// A child index must satisfy 0 <= index < MaxFanOut.
const MaxFanOut = 64

// inlineCapacity is the number of 6-bit indices (0..63) that fit into the
// packed uint64 word without spilling to the overflow slice. 10*6 = 60 bits.
const inlineCapacity = 10

// Route is an immutable, ordered sequence of non-negative child indices
// identifying a node relative to a tree's root. The empty Route identifies
// the root itself. Short routes (depth <= 10) pack into a single machine
// word; longer routes spill into an overflow byte slice.
type Route struct {
	length   int
	packed   uint64
	overflow []byte
}

// Root returns the empty route, identifying the root of a tree.
func Root() Route {
	return Route{}
}

// Len returns the number of indices in the route (its depth).
func (r Route) Len() int {
	return r.length
}

// IsRoot reports whether r identifies the tree root.
func (r Route) IsRoot() bool {
	return r.length == 0
}

// Index returns the child index at position i (0 == the step taken at the
// root). It panics if i is out of [0, Len()).
func (r Route) Index(i int) int {
	if i < 0 || i >= r.length {
		panic(fmt.Sprintf("route: index %d out of range [0,%d)", i, r.length))
	}
	if r.overflow != nil {
		return int(r.overflow[i])
	}
	shift := uint((r.length - 1 - i) * 6)
	return int((r.packed >> shift) & 0x3f)
}

// Child returns the route obtained by appending index to r.
// Panics if index is outside [0, MaxFanOut).
func Child(r Route, index int) Route {
	if index < 0 || index >= MaxFanOut {
		panic(fmt.Sprintf("route: child index %d out of range [0,%d)", index, MaxFanOut))
	}
	if r.overflow == nil && r.length < inlineCapacity {
		return Route{
			length: r.length + 1,
			packed: (r.packed << 6) | uint64(index),
		}
	}
	out := make([]byte, r.length+1)
	for i := 0; i < r.length; i++ {
		out[i] = byte(r.Index(i))
	}
	out[r.length] = byte(index)
	return Route{length: r.length + 1, overflow: out}
}

// Parent returns the route obtained by dropping the last index of r.
// Fails (returns an error) if r is the root.
func Parent(r Route) (Route, error) {
	if r.length == 0 {
		return Route{}, fmt.Errorf("route: cannot take parent of the root route")
	}
	if r.overflow != nil {
		if r.length-1 <= inlineCapacity {
			// demote back to inline representation
			var packed uint64
			for i := 0; i < r.length-1; i++ {
				packed = (packed << 6) | uint64(r.overflow[i])
			}
			return Route{length: r.length - 1, packed: packed}, nil
		}
		out := make([]byte, r.length-1)
		copy(out, r.overflow[:r.length-1])
		return Route{length: r.length - 1, overflow: out}, nil
	}
	return Route{length: r.length - 1, packed: r.packed >> 6}, nil
}

// indices materializes the full index sequence; used by Compare/Encode.
func (r Route) indices() []byte {
	out := make([]byte, r.length)
	for i := 0; i < r.length; i++ {
		out[i] = byte(r.Index(i))
	}
	return out
}

// Equal reports whether a and b identify the same node.
func Equal(a, b Route) bool {
	return Compare(a, b) == 0
}

// Compare returns a total order over routes compatible with a depth-first,
// left-to-right traversal: a route sorts before any of its descendants, and
// siblings sort by increasing child index.
func Compare(a, b Route) int {
	n := a.length
	if b.length < n {
		n = b.length
	}
	for i := 0; i < n; i++ {
		ai, bi := a.Index(i), b.Index(i)
		if ai != bi {
			if ai < bi {
				return -1
			}
			return 1
		}
	}
	switch {
	case a.length < b.length:
		return -1
	case a.length > b.length:
		return 1
	default:
		return 0
	}
}

// IsDescendant reports whether candidate is ancestor itself or lies within
// the subtree rooted at ancestor (i.e. ancestor is a prefix of candidate).
func IsDescendant(candidate, ancestor Route) bool {
	if ancestor.length > candidate.length {
		return false
	}
	return bytes.Equal(ancestor.indices(), candidate.indices()[:ancestor.length])
}

// Step is one (parent, childIndex) pair yielded while iterating a route.
type Step struct {
	Parent Route
	Index  int
}

// Steps returns the sequence of (parent, childIndex) steps from the root
// down to r, in root-to-leaf order.
func Steps(r Route) []Step {
	steps := make([]Step, 0, r.length)
	cur := Route{}
	for i := 0; i < r.length; i++ {
		idx := r.Index(i)
		steps = append(steps, Step{Parent: cur, Index: idx})
		cur = Child(cur, idx)
	}
	return steps
}

// String renders the route as a slash-separated list of indices, e.g. "2/0/5".
func (r Route) String() string {
	if r.length == 0 {
		return "/"
	}
	buf := make([]byte, 0, r.length*2)
	for i := 0; i < r.length; i++ {
		if i > 0 {
			buf = append(buf, '/')
		}
		buf = append(buf, []byte(fmt.Sprintf("%d", r.Index(i)))...)
	}
	return string(buf)
}
