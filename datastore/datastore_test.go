package datastore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironleaf/merklecore/datastore"
)

func newTestCollection(t *testing.T) *datastore.Collection {
	t.Helper()
	dir := t.TempDir()
	idx, err := datastore.OpenIndex(filepath.Join(dir, "index"))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	c, err := datastore.NewCollection(dir, "leaves", 1, idx, zerolog.Nop(), nil)
	require.NoError(t, err)
	return c
}

func TestStoreAndReadRoundTrip(t *testing.T) {
	c := newTestCollection(t)
	require.NoError(t, c.StartWriting())

	loc, err := c.StoreDataItem(datastore.Item{Key: []byte("a"), Payload: []byte("hello")})
	require.NoError(t, err)

	require.NoError(t, c.EndWriting([]byte("a"), []byte("a")))

	got, err := c.ReadDataItem(loc)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

func TestReadUsingIndexResolvesByKey(t *testing.T) {
	c := newTestCollection(t)
	require.NoError(t, c.StartWriting())
	_, err := c.StoreDataItem(datastore.Item{Key: []byte("k1"), Payload: []byte("v1")})
	require.NoError(t, err)
	require.NoError(t, c.EndWriting([]byte("k1"), []byte("k1")))

	got, err := c.ReadUsingIndex(context.Background(), []byte("k1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	missing, err := c.ReadUsingIndex(context.Background(), []byte("missing"))
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStartWritingTwiceFails(t *testing.T) {
	c := newTestCollection(t)
	require.NoError(t, c.StartWriting())
	assert.Error(t, c.StartWriting())
}

func TestMergeDropsSupersededKeysAndKeepsNewest(t *testing.T) {
	c := newTestCollection(t)

	require.NoError(t, c.StartWriting())
	_, err := c.StoreDataItem(datastore.Item{Key: []byte("a"), Payload: []byte("old-a")})
	require.NoError(t, err)
	_, err = c.StoreDataItem(datastore.Item{Key: []byte("b"), Payload: []byte("b-value")})
	require.NoError(t, err)
	require.NoError(t, c.EndWriting([]byte("a"), []byte("b")))

	require.NoError(t, c.StartWriting())
	newLocA, err := c.StoreDataItem(datastore.Item{Key: []byte("a"), Payload: []byte("new-a")})
	require.NoError(t, err)
	require.NoError(t, c.EndWriting([]byte("a"), []byte("b")))

	files := c.Files()
	require.Len(t, files, 2)

	pause := datastore.NewPauseSemaphore()
	outputs, err := datastore.MergeFiles(context.Background(), c, files, pause, 1000, 1<<20)
	require.NoError(t, err)
	require.NotEmpty(t, outputs)

	c.PublishMergedFiles(outputs)
	require.NoError(t, c.RetireFiles(files))

	gotA, err := c.ReadUsingIndex(context.Background(), []byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("new-a"), gotA)

	gotB, err := c.ReadUsingIndex(context.Background(), []byte("b"))
	require.NoError(t, err)
	assert.Equal(t, []byte("b-value"), gotB)

	stillThere, err := c.Index().HasLocation([]byte("a"), newLocA)
	require.NoError(t, err)
	assert.False(t, stillThere, "the merge moved the key to a new location")
}

func TestMergeDropsKeysOutsideAdvertisedValidRange(t *testing.T) {
	c := newTestCollection(t)

	require.NoError(t, c.StartWriting())
	_, err := c.StoreDataItem(datastore.Item{Key: []byte("1"), Payload: []byte("one")})
	require.NoError(t, err)
	_, err = c.StoreDataItem(datastore.Item{Key: []byte("2"), Payload: []byte("two")})
	require.NoError(t, err)
	_, err = c.StoreDataItem(datastore.Item{Key: []byte("3"), Payload: []byte("three")})
	require.NoError(t, err)
	// The owner advertises [2,3] as the collection's valid range - key "1"
	// physically exists in the file but falls outside it.
	require.NoError(t, c.EndWriting([]byte("2"), []byte("3")))

	files := c.Files()
	require.Len(t, files, 1)

	pause := datastore.NewPauseSemaphore()
	outputs, err := datastore.MergeFiles(context.Background(), c, files, pause, 1000, 1<<20)
	require.NoError(t, err)
	require.Len(t, outputs, 1)

	var kept []string
	require.NoError(t, outputs[0].Scan(func(_ datastore.Location, raw []byte) error {
		item, err := datastore.DecodeItem(raw)
		if err != nil {
			return err
		}
		kept = append(kept, string(item.Key))
		return nil
	}))
	assert.ElementsMatch(t, []string{"2", "3"}, kept, "key 1 falls outside the advertised valid range")
}

func TestSnapshotRoundTrip(t *testing.T) {
	c := newTestCollection(t)
	require.NoError(t, c.StartWriting())
	_, err := c.StoreDataItem(datastore.Item{Key: []byte("a"), Payload: []byte("hello")})
	require.NoError(t, err)
	require.NoError(t, c.EndWriting([]byte("a"), []byte("a")))

	snapDir := t.TempDir()
	state, err := c.StartSnapshot(snapDir)
	require.NoError(t, err)
	require.NoError(t, c.MiddleSnapshot(snapDir, state))
	require.NoError(t, c.EndSnapshot(snapDir, state))

	manifest, err := datastore.LoadSnapshotManifest(snapDir)
	require.NoError(t, err)
	assert.Len(t, manifest.HardLinkedFiles, 1)
	assert.NoError(t, datastore.ValidateSnapshot(snapDir, manifest))
}
