// Package digest provides the configurable cryptographic hash algorithms
// used to compute merkle node digests, independent of the node and engine
// packages so that leaf self-hashing and engine-driven internal-node hashing
// can both depend on it without a package cycle.
package digest

import (
	"crypto/sha512"
	"fmt"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/ironleaf/merklecore/errs"
)

// Algorithm identifies a configured digest function. The two endpoints of a
// reconnect exchange must agree on the algorithm (see the sync package).
type Algorithm uint8

const (
	// SHA384 is the default algorithm (48-byte digest).
	SHA384 Algorithm = iota
	// BLAKE2b256 is an alternative, faster digest (32-byte digest).
	BLAKE2b256
)

// Len returns the digest length in bytes for the algorithm.
func (a Algorithm) Len() int {
	switch a {
	case BLAKE2b256:
		return 32
	default:
		return 48
	}
}

func (a Algorithm) String() string {
	switch a {
	case BLAKE2b256:
		return "BLAKE2b-256"
	default:
		return "SHA-384"
	}
}

// ParseAlgorithm resolves the name a configuration record uses to select
// the digest algorithm (case-sensitive, matching the constant names).
func ParseAlgorithm(name string) (Algorithm, error) {
	switch name {
	case "SHA384":
		return SHA384, nil
	case "BLAKE2b256":
		return BLAKE2b256, nil
	default:
		return 0, fmt.Errorf("digest: unknown algorithm %q", name)
	}
}

// Sum computes the digest of the concatenation of all the provided byte
// slices, without copying them into one buffer first.
func (a Algorithm) Sum(parts ...[]byte) []byte {
	switch a {
	case BLAKE2b256:
		h, _ := blake2b.New256(nil)
		for _, p := range parts {
			_, _ = h.Write(p)
		}
		return h.Sum(nil)
	default:
		h := sha512.New384()
		for _, p := range parts {
			_, _ = h.Write(p)
		}
		return h.Sum(nil)
	}
}

// nullHashCache memoizes the digest of a canonical zero-length input per
// algorithm, since it is requested on every hash of a node with a missing
// child - concurrently, from the hash engine's worker pool, hence the lock.
var (
	nullHashMu    sync.RWMutex
	nullHashCache = map[Algorithm][]byte{}
)

// NullHash returns the agreed digest standing in for an absent subtree: the
// algorithm applied to a canonical zero-length input.
func NullHash(a Algorithm) []byte {
	nullHashMu.RLock()
	h, ok := nullHashCache[a]
	nullHashMu.RUnlock()
	if ok {
		return h
	}

	h = a.Sum([]byte{})

	nullHashMu.Lock()
	nullHashCache[a] = h
	nullHashMu.Unlock()
	return h
}

// MustNotBeZero guards against constructing an all-zero hash of the
// declared length, which would otherwise be indistinguishable from a
// legitimate (if vanishingly unlikely) digest collision with the zero value.
func MustNotBeZero(h []byte) error {
	zero := true
	for _, b := range h {
		if b != 0 {
			zero = false
			break
		}
	}
	if zero && len(h) > 0 {
		return &errs.EmptyHashValueError{Length: len(h)}
	}
	return nil
}
