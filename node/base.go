package node

import (
	"go.uber.org/atomic"

	"github.com/ironleaf/merklecore/errs"
	"github.com/ironleaf/merklecore/route"
)

// base holds the state every node variant shares: class/version header,
// route, cached hash, and the atomic reference count / immutability flag.
// Composed into leaf and internalNode rather than inherited, per the
// sum-type-plus-composition strategy for polymorphic nodes.
type base struct {
	classID   ClassID
	version   Version
	rt        route.Route
	hashValue []byte
	refCount  atomic.Int32
	immutable atomic.Bool
}

func newBase(classID ClassID, version Version, rt route.Route) base {
	return base{classID: classID, version: version, rt: rt}
}

func (b *base) ClassID() ClassID { return b.classID }
func (b *base) Version() Version { return b.version }
func (b *base) Hash() []byte     { return b.hashValue }
func (b *base) SetHash(h []byte) { b.hashValue = h }
func (b *base) Route() route.Route { return b.rt }

func (b *base) RefCount() int32    { return b.refCount.Load() }
func (b *base) IsImmutable() bool  { return b.immutable.Load() }

func (b *base) Reserve() {
	b.refCount.Inc()
}

// release applies the reference-count transition rules shared by every
// node variant. The caller (leaf/internal) supplies the cascade to run
// exactly once, when the count reaches zero. The check-and-decrement is a
// CAS loop rather than Load-then-Dec so that two concurrent releases of the
// same node (always a caller bug, since Reserve/Release must be paired one
// to one) cannot both pass the zero-guard before either applies its Dec.
func (b *base) release(onZero func() error) (bool, error) {
	for {
		current := b.refCount.Load()
		if current <= 0 {
			return false, &errs.ReferenceCountError{
				Route: b.rt.String(),
				Msg:   "release of a node whose reference count is already 0 or released",
			}
		}
		next := current - 1
		if !b.refCount.CAS(current, next) {
			continue
		}
		if next != 0 {
			return false, nil
		}
		var cascadeErr error
		if onZero != nil {
			cascadeErr = onZero()
		}
		b.refCount.Store(-1)
		return true, cascadeErr
	}
}

func (b *base) setRouteChecked(r route.Route, propagate func(route.Route)) error {
	if route.Equal(b.rt, r) {
		return nil
	}
	if b.refCount.Load() != 1 {
		return &errs.RouteError{
			Route: b.rt.String(),
			Msg:   "cannot change the route of a shared node (reference count != 1)",
		}
	}
	b.rt = r
	if propagate != nil {
		propagate(r)
	}
	return nil
}

func (b *base) markImmutable() {
	b.immutable.Store(true)
}

// checkCopyable validates the preconditions Copy shares across node
// variants: the node must not have been released, and it must not already
// be immutable unless ancestorDriven is set, i.e. this call is the
// recursive descent of an ancestor's own Cascading copy rather than a
// direct call on this node. A direct copy of an already-immutable node
// would otherwise silently succeed twice, double-reserving shared children
// from two independent snapshots.
func (b *base) checkCopyable(ancestorDriven bool) error {
	if b.refCount.Load() == -1 {
		return &errs.ReferenceCountError{Route: b.rt.String(), Msg: "copy of a released node"}
	}
	if b.immutable.Load() && !ancestorDriven {
		return &errs.MutabilityError{Route: b.rt.String(), Msg: "direct copy of an already-immutable node"}
	}
	return nil
}
