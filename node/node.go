// Package node defines the polymorphic merkle tree node variants (leaf and
// internal), their hash slot, reference count, route, and copy-on-write copy
// operation: a stable class/version header and a cached hash over an n-ary
// (<=64) tree with explicit reference counting.
package node

import (
	"github.com/ironleaf/merklecore/route"
)

// ClassID is a stable 64-bit tag used for polymorphic reconstruction at
// deserialization time (see the registry package).
type ClassID = uint64

// NullClassID is reserved for null children in child-type checks.
const NullClassID ClassID = 0

// Version controls a node's serialization layout.
type Version = int32

// CopyStrategy is the copy-on-write strategy an internal node declares.
type CopyStrategy uint8

const (
	// Cascading recursively copies all descendants - O(n).
	Cascading CopyStrategy = iota
	// SmartPathReplacing copies only the subtree root and lazily
	// re-creates paths on mutation - O(log n) per mutation.
	SmartPathReplacing
	// SelfOnly copies only the node's own metadata, leaving descendants
	// to be re-attached by an ancestor's copy pass.
	SelfOnly
)

// Node is the contract shared by every node variant.
type Node interface {
	// ClassID returns the node's stable polymorphic type tag.
	ClassID() ClassID
	// Version returns the node's serialization version.
	Version() Version
	// Hash returns the stored hash, or nil if not yet computed.
	Hash() []byte
	// SetHash stores a precomputed hash without recomputing it.
	SetHash(h []byte)
	// Route returns the node's route from the tree root.
	Route() route.Route
	// SetRoute updates the node's route and every descendant's route.
	// Fails if the reference count is not exactly 1 and the route differs.
	SetRoute(r route.Route) error
	// Copy returns a mutable copy per the node's declared strategy and
	// marks the receiver immutable. Fails if the receiver was already
	// released, or is immutable without an in-progress ancestor copy.
	Copy() (Node, error)
	// Reserve increments the reference count.
	Reserve()
	// Release decrements the reference count. Fails if the count is
	// already 0 or -1.
	Release() (reachedZero bool, err error)
	// RefCount returns the current reference count.
	RefCount() int32
	// IsLeaf reports whether this node is a leaf.
	IsLeaf() bool
	// IsImmutable reports whether the node has been copied and must no
	// longer be mutated directly.
	IsImmutable() bool
}

// Internal is the contract for internal (non-leaf) nodes.
type Internal interface {
	Node

	// ChildCount returns the number of declared child slots, 0 <= c <= 64.
	ChildCount() int
	// GetChild returns the i-th child, or nil if unset. Fails (panics with
	// an IllegalChildIndexError-carrying value converted by the caller) if
	// i is outside the declared range; callers should use ValidIndex first.
	GetChild(i int) Node
	// SetChild adopts node as the i-th child, invalidating this node's
	// hash, incrementing the new child's reference count and setting its
	// route, and releasing any displaced child. If route is nil the
	// child's route is derived as Child(this.Route(), i).
	SetChild(i int, child Node, rt *route.Route) error
	// ChildClassValid performs the deserialization-time schema check for
	// slot i given a prospective class id and version.
	ChildClassValid(i int, classID ClassID, version Version) bool
	// Initialize is called once all descendants are in place; it may
	// materialize derived metadata (e.g. register counts, max depth).
	Initialize() error
	// CopyStrategy returns the declared copy strategy for this node type.
	CopyStrategy() CopyStrategy
	// MinChildren and MaxChildren bound the declared fan-out for this
	// node's class/version.
	MinChildren() int
	MaxChildren() int
}

// Leaf is the contract for leaf (payload-carrying) nodes.
type Leaf interface {
	Node

	// Payload returns the leaf's application payload. Do not modify the
	// returned slice.
	Payload() []byte
	// External reports whether the payload is stored externally (in the
	// data file collection) rather than inline.
	External() bool
	// MarkExternal records that the payload now lives externally, e.g.
	// after the data file collection has persisted it.
	MarkExternal()
}

// ValidIndex reports whether i is a legal child slot for an internal node
// with the given declared bounds.
func ValidIndex(i, min, max int) bool {
	return i >= 0 && i >= min && i < max && i < route.MaxFanOut
}
