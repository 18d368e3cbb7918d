// Package unittest collects small test helpers shared across the module's
// test suites.
package unittest

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/require"
)

// ExpectPanic recovers from a panic and asserts its message matches
// expectedMsg, failing the test if the function did not panic at all.
func ExpectPanic(expectedMsg string, t *testing.T) {
	if r := recover(); r != nil {
		err := r.(error)
		if err.Error() != expectedMsg {
			t.Errorf("expected %v to be %v", err, expectedMsg)
		}
		return
	}
	t.Errorf("Expected to panic with `%s`, but did not panic", expectedMsg)
}

// AssertReturnsBefore asserts that f returns before duration expires, for
// bounding blocking calls such as AsyncReader.Next or a synchronization
// round trip in tests.
func AssertReturnsBefore(t *testing.T, f func(), duration time.Duration) {
	done := make(chan struct{})

	go func() {
		f()
		close(done)
	}()

	select {
	case <-time.After(duration):
		t.Log("function did not return in time")
		t.Fail()
	case <-done:
		return
	}
}

// RunWithBadgerDB opens a throwaway badger database in a temp directory,
// runs f against it, then tears it down.
func RunWithBadgerDB(t *testing.T, f func(*badger.DB)) {
	dir := filepath.Join(os.TempDir(), fmt.Sprintf("merklecore-test-db-%d", rand.Uint64()))

	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	require.Nil(t, err)

	defer func() {
		db.Close()
		os.RemoveAll(dir)
	}()

	f(db)
}
