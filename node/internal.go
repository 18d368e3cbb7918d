package node

import (
	"encoding/binary"

	"github.com/hashicorp/go-multierror"

	"github.com/ironleaf/merklecore/digest"
	"github.com/ironleaf/merklecore/errs"
	"github.com/ironleaf/merklecore/route"
)

// SchemaCheck validates, at deserialization time, whether classID/version is
// an acceptable type for child slot i.
type SchemaCheck func(i int, classID ClassID, version Version) bool

// InitFunc materializes derived metadata once all descendants are in place.
type InitFunc func(n Internal) error

// internalNode carries zero to MaxFanOut children and no payload of its
// own; its hash is the deterministic combination of its children's hashes,
// with an explicit copy strategy and reference-count discipline.
type internalNode struct {
	base
	children    []Node
	min, max    int
	strategy    CopyStrategy
	schemaCheck SchemaCheck
	initFunc    InitFunc
}

// NewInternal constructs an internal node with no children set. min/max
// bound the declared fan-out (0 <= min <= max <= route.MaxFanOut).
func NewInternal(classID ClassID, version Version, rt route.Route, min, max int, strategy CopyStrategy, schema SchemaCheck, init InitFunc) Internal {
	return &internalNode{
		base:        newBase(classID, version, rt),
		children:    make([]Node, max),
		min:         min,
		max:         max,
		strategy:    strategy,
		schemaCheck: schema,
		initFunc:    init,
	}
}

func (n *internalNode) IsLeaf() bool        { return false }
func (n *internalNode) ChildCount() int     { return n.max }
func (n *internalNode) MinChildren() int    { return n.min }
func (n *internalNode) MaxChildren() int    { return n.max }
func (n *internalNode) CopyStrategy() CopyStrategy { return n.strategy }

func (n *internalNode) GetChild(i int) Node {
	if !ValidIndex(i, 0, n.max) {
		panic(&errs.IllegalChildIndexError{Index: i, Min: 0, Max: n.max})
	}
	if i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

func (n *internalNode) ChildClassValid(i int, classID ClassID, version Version) bool {
	if classID == NullClassID {
		return true
	}
	if n.schemaCheck == nil {
		return true
	}
	return n.schemaCheck(i, classID, version)
}

func (n *internalNode) SetChild(i int, child Node, rt *route.Route) error {
	if n.immutable.Load() {
		return &errs.MutabilityError{Route: n.rt.String(), Msg: "write to an immutable internal node"}
	}
	if !ValidIndex(i, 0, n.max) {
		return &errs.IllegalChildIndexError{Index: i, Min: 0, Max: n.max}
	}
	// An immutable child (a subtree shared with another snapshot) is a
	// perfectly valid thing to attach here - that sharing is the whole
	// point of copy-on-write. Only self's own immutability is fatal.

	displaced := n.children[i]
	n.children[i] = child
	n.hashValue = nil

	if child != nil {
		childRoute := route.Child(n.rt, i)
		if rt != nil {
			childRoute = *rt
		}
		child.Reserve()
		if err := child.SetRoute(childRoute); err != nil {
			return err
		}
	}
	if displaced != nil {
		if _, err := displaced.Release(); err != nil {
			return err
		}
	}
	return nil
}

func (n *internalNode) Initialize() error {
	if n.initFunc == nil {
		return nil
	}
	return n.initFunc(n)
}

func (n *internalNode) SetRoute(r route.Route) error {
	return n.setRouteChecked(r, func(newRoute route.Route) {
		for i, c := range n.children {
			if c == nil {
				continue
			}
			_ = c.SetRoute(route.Child(newRoute, i))
		}
	})
}

// copier is implemented by every concrete node variant so that Cascading's
// recursive descent can mark its child copies as ancestor-driven, bypassing
// the direct-call immutability check a top-level Copy() enforces.
type copier interface {
	copy(ancestorDriven bool) (Node, error)
}

// Copy implements the three declared strategies. Regardless of strategy,
// the receiver is marked immutable but remains readable until its
// reference count reaches zero - this is what makes snapshots cheap.
func (n *internalNode) Copy() (Node, error) {
	return n.copy(false)
}

func (n *internalNode) copy(ancestorDriven bool) (Node, error) {
	if err := n.checkCopyable(ancestorDriven); err != nil {
		return nil, err
	}

	cp := &internalNode{
		base:        newBase(n.classID, n.version, n.rt),
		min:         n.min,
		max:         n.max,
		strategy:    n.strategy,
		schemaCheck: n.schemaCheck,
		initFunc:    n.initFunc,
	}
	cp.hashValue = n.hashValue

	switch n.strategy {
	case Cascading:
		cp.children = make([]Node, n.max)
		for i, c := range n.children {
			if c == nil {
				continue
			}
			var copied Node
			var err error
			if cc, ok := c.(copier); ok {
				copied, err = cc.copy(true)
			} else {
				copied, err = c.Copy()
			}
			if err != nil {
				return nil, err
			}
			copied.Reserve()
			cp.children[i] = copied
		}
	case SelfOnly:
		cp.children = make([]Node, n.max)
	default: // SmartPathReplacing
		cp.children = make([]Node, n.max)
		copy(cp.children, n.children)
		for _, c := range cp.children {
			if c != nil {
				c.Reserve()
			}
		}
	}

	n.markImmutable()
	return cp, nil
}

func (n *internalNode) Release() (bool, error) {
	return n.release(func() error {
		var result *multierror.Error
		for _, c := range n.children {
			if c == nil {
				continue
			}
			if _, err := c.Release(); err != nil {
				result = multierror.Append(result, err)
			}
		}
		return result.ErrorOrNil()
	})
}

// classVersionBytes renders the classID/version header used as the first
// two fields of the deterministic internal-node hash.
func classVersionBytes(classID ClassID, version Version) []byte {
	buf := make([]byte, 12)
	binary.BigEndian.PutUint64(buf[:8], classID)
	binary.BigEndian.PutUint32(buf[8:], uint32(version))
	return buf
}

// ComputeHash implements H(classID ‖ version ‖ childHash0 ‖ … ‖ childHash_{n-1})
// with the null hash substituted for missing children. It is the function
// the hash engine calls; exported here so the engine package need not know
// about internalNode's private layout.
func ComputeHash(n Internal, algo digest.Algorithm) []byte {
	parts := make([][]byte, 0, n.ChildCount()+1)
	parts = append(parts, classVersionBytes(n.ClassID(), n.Version()))
	for i := 0; i < n.ChildCount(); i++ {
		c := n.GetChild(i)
		if c == nil {
			parts = append(parts, digest.NullHash(algo))
			continue
		}
		h := c.Hash()
		if h == nil {
			h = digest.NullHash(algo)
		}
		parts = append(parts, h)
	}
	return algo.Sum(parts...)
}
