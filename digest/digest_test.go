package digest_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ironleaf/merklecore/digest"
)

func TestSumVariesWithAlgorithm(t *testing.T) {
	sha := digest.SHA384.Sum([]byte("alpha"))
	blake := digest.BLAKE2b256.Sum([]byte("alpha"))
	assert.Len(t, sha, digest.SHA384.Len())
	assert.Len(t, blake, digest.BLAKE2b256.Len())
	assert.NotEqual(t, sha, blake)
}

func TestNullHashIsStableUnderConcurrentAccess(t *testing.T) {
	var wg sync.WaitGroup
	results := make([][]byte, 64)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = digest.NullHash(digest.SHA384)
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
}

func TestMustNotBeZeroRejectsAllZeroHash(t *testing.T) {
	zero := make([]byte, 48)
	assert.Error(t, digest.MustNotBeZero(zero))

	nonZero := digest.SHA384.Sum([]byte("alpha"))
	assert.NoError(t, digest.MustNotBeZero(nonZero))
}
