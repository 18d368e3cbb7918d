package node

import (
	"encoding/binary"

	"github.com/ironleaf/merklecore/digest"
	"github.com/ironleaf/merklecore/route"
)

// leafNode carries an application payload and has no children. It is
// self-hashing: the hash is computed immediately at construction, before
// the leaf is ever handed back to the caller.
type leafNode struct {
	base
	payload  []byte
	external bool
}

// NewLeaf constructs a leaf over payload, computing its hash immediately
// using algo. The new leaf starts with reference count 0 (not yet adopted).
func NewLeaf(classID ClassID, version Version, rt route.Route, payload []byte, algo digest.Algorithm) Leaf {
	l := &leafNode{
		base:    newBase(classID, version, rt),
		payload: append([]byte(nil), payload...),
	}
	l.hashValue = hashLeaf(algo, classID, version, l.payload)
	return l
}

func hashLeaf(algo digest.Algorithm, classID ClassID, version Version, payload []byte) []byte {
	var classBuf [8]byte
	var versionBuf [4]byte
	binary.BigEndian.PutUint64(classBuf[:], classID)
	binary.BigEndian.PutUint32(versionBuf[:], uint32(version))
	return algo.Sum(classBuf[:], versionBuf[:], payload)
}

func (l *leafNode) IsLeaf() bool { return true }

func (l *leafNode) Payload() []byte { return l.payload }

func (l *leafNode) External() bool { return l.external }

func (l *leafNode) MarkExternal() { l.external = true }

func (l *leafNode) SetRoute(r route.Route) error {
	return l.setRouteChecked(r, nil)
}

// Copy returns a fresh leaf sharing the same payload (leaves are immutable
// value carriers; a "copy" of a leaf is just a new handle with its own
// reference count, per the cascading/self strategies collapsing to the same
// thing for a childless node).
func (l *leafNode) Copy() (Node, error) {
	return l.copy(false)
}

func (l *leafNode) copy(ancestorDriven bool) (Node, error) {
	if err := l.checkCopyable(ancestorDriven); err != nil {
		return nil, err
	}
	cp := &leafNode{
		base:     newBase(l.classID, l.version, l.rt),
		payload:  l.payload,
		external: l.external,
	}
	cp.hashValue = l.hashValue
	l.markImmutable()
	return cp, nil
}

func (l *leafNode) Release() (bool, error) {
	return l.release(nil)
}
