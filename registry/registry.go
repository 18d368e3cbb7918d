// Package registry is the process-wide classifier registry: every node and
// message type advertises a 64-bit class id, and the deserializer consults
// this registry to map class id -> constructor. It is an open,
// self-registering map so new node and message classes can be added
// without touching this package.
package registry

import (
	"fmt"
	"sync"

	"github.com/ironleaf/merklecore/node"
)

// Constructor builds a zero-value node of a registered class, ready to be
// populated by a deserializer.
type Constructor func() node.Node

var (
	mu    sync.RWMutex
	types = make(map[node.ClassID]Constructor)
)

// Register associates classID with constructor. It panics at startup if
// classID is already registered (a classifier collision is a build-time
// programming error, not a runtime condition to recover from) or if
// classID is the reserved NullClassID.
func Register(classID node.ClassID, constructor Constructor) {
	if classID == node.NullClassID {
		panic("registry: cannot register the reserved NULL_CLASS_ID")
	}
	mu.Lock()
	defer mu.Unlock()
	if _, exists := types[classID]; exists {
		panic(fmt.Sprintf("registry: class id %d registered more than once", classID))
	}
	types[classID] = constructor
}

// Lookup returns the constructor registered for classID, if any.
func Lookup(classID node.ClassID) (Constructor, bool) {
	mu.RLock()
	defer mu.RUnlock()
	c, ok := types[classID]
	return c, ok
}

// New constructs a node of the given class, failing if the class id was
// never registered.
func New(classID node.ClassID) (node.Node, error) {
	constructor, ok := Lookup(classID)
	if !ok {
		return nil, fmt.Errorf("registry: unknown class id %d", classID)
	}
	return constructor(), nil
}
