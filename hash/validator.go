package hash

import (
	"bytes"
	"context"

	"go.uber.org/atomic"

	"github.com/ironleaf/merklecore/digest"
	"github.com/ironleaf/merklecore/node"
)

// ValidatorState is a stage in the Validator state machine:
// NEW -> VALIDATING -> {VALID | INVALID}.
type ValidatorState int32

const (
	StateNew ValidatorState = iota
	StateValidating
	StateValid
	StateInvalid
)

// Validator checks a claimed hash against either a leaf payload or a set of
// claimed child hashes for an internal node. Once INVALID it refuses
// further work and surfaces the first failure via IsValid(). Long loops should
// poll IsValidSoFar() to terminate early on failure.
type Validator struct {
	state atomic.Int32
	err   atomic.Error
	done  chan struct{}
}

func newValidator() *Validator {
	return &Validator{done: make(chan struct{})}
}

func (v *Validator) fail(err error) {
	v.state.Store(int32(StateInvalid))
	v.err.Store(err)
	close(v.done)
}

func (v *Validator) succeed() {
	v.state.Store(int32(StateValid))
	close(v.done)
}

// State returns the validator's current stage.
func (v *Validator) State() ValidatorState {
	return ValidatorState(v.state.Load())
}

// IsValidSoFar reports whether the validator has not yet observed a
// failure; callers in long loops should poll this for early termination.
func (v *Validator) IsValidSoFar() bool {
	return v.State() != StateInvalid
}

// IsValid blocks until the validator reaches a terminal state and reports
// whether it succeeded.
func (v *Validator) IsValid(ctx context.Context) (bool, error) {
	select {
	case <-v.done:
		return v.State() == StateValid, v.err.Load()
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// ValidateLeaf asynchronously checks expectedHash against the digest of
// payload under algo.
func (e *Engine) ValidateLeaf(classID node.ClassID, version node.Version, payload []byte, expectedHash []byte) *Validator {
	v := newValidator()
	v.state.Store(int32(StateValidating))
	e.tasks <- func() {
		got := hashLeafPayload(e.algo, classID, version, payload)
		if !bytes.Equal(got, expectedHash) {
			v.fail(&hashMismatchError{expected: expectedHash, got: got})
			return
		}
		v.succeed()
	}
	return v
}

// ValidateInternal asynchronously recomputes an internal node's hash from
// the supplied child hashes and checks it against expectedHash.
func (e *Engine) ValidateInternal(classID node.ClassID, version node.Version, childHashes [][]byte, expectedHash []byte) *Validator {
	v := newValidator()
	v.state.Store(int32(StateValidating))
	e.tasks <- func() {
		parts := make([][]byte, 0, len(childHashes)+1)
		parts = append(parts, classVersionHeader(classID, version))
		for _, h := range childHashes {
			if h == nil {
				h = digest.NullHash(e.algo)
			}
			parts = append(parts, h)
		}
		got := e.algo.Sum(parts...)
		if !bytes.Equal(got, expectedHash) {
			v.fail(&hashMismatchError{expected: expectedHash, got: got})
			return
		}
		v.succeed()
	}
	return v
}

type hashMismatchError struct {
	expected, got []byte
}

func (e *hashMismatchError) Error() string {
	return "hash: validation failed, digest mismatch"
}
