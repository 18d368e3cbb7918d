package datastore

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"
	stdatomic "sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/ironleaf/merklecore/errs"
	"github.com/ironleaf/merklecore/internal/config"
)

const readUsingIndexRetries = 5

// fileSet is the immutable published read set, swapped atomically via a
// copy-on-write list holder.
type fileSet struct {
	files []*DataFile
}

// validRange is the collection owner's advertised key range, distinct from
// any single file's footer summary: a partitioned deployment narrows or
// widens it as shard boundaries move, independently of which keys happen to
// be physically present. A nil bound is unrestricted on that side.
type validRange struct {
	min, max Key
}

// Collection is one data file collection directory: one writer at a time
// (serialized by writerMu, allowing only a single active append at once),
// arbitrarily many concurrent readers against the published file set, and a
// merger that swaps that set when it finishes compacting.
//
// The published set uses the stdlib's sync/atomic.Value rather than
// go.uber.org/atomic: uber's package only wraps fixed primitive kinds
// (Int64, Bool, Error, ...), not a generic CAS'able pointer, so the
// published-set swap - which needs to hold an arbitrary *fileSet - falls to
// the stdlib type built for exactly that.
type Collection struct {
	dir         string
	storeName   string
	itemVersion uint32

	log     zerolog.Logger
	metrics *Metrics

	nextIndex  atomic.Int64
	published  stdatomic.Value
	validRange stdatomic.Value

	writerMu       sync.Mutex
	writer         *DataFile
	writerMinKey   Key
	writerMaxKey   Key
	writerItemCount uint32

	index *Index
}

// NewCollection opens (or creates) a collection directory and its external
// index.
func NewCollection(dir, storeName string, itemVersion uint32, index *Index, log zerolog.Logger, metrics *Metrics) (*Collection, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("datastore: cannot create directory %s: %w", dir, err)
	}
	c := &Collection{
		dir:         dir,
		storeName:   storeName,
		itemVersion: itemVersion,
		log:         log.With().Str("component", "datastore.collection").Str("store", storeName).Logger(),
		metrics:     metrics,
		index:       index,
	}
	c.published.Store(&fileSet{})
	c.validRange.Store(&validRange{})
	return c, nil
}

// NewCollectionFromConfig opens (or creates) a collection and its external
// index using cfg's DataFileDir, DataFileStoreName, ItemSerializationVersion
// and IndexPath fields, in place of passing them as separate arguments. The
// caller owns the returned index and is responsible for closing it once the
// collection is no longer needed.
func NewCollectionFromConfig(cfg *config.Config, log zerolog.Logger, metrics *Metrics) (*Collection, *Index, error) {
	index, err := OpenIndex(cfg.IndexPath)
	if err != nil {
		return nil, nil, fmt.Errorf("datastore: cannot open index: %w", err)
	}
	c, err := NewCollection(cfg.DataFileDir, cfg.DataFileStoreName, cfg.ItemSerializationVersion, index, log, metrics)
	if err != nil {
		index.Close()
		return nil, nil, err
	}
	return c, index, nil
}

func (c *Collection) files() *fileSet {
	return c.published.Load().(*fileSet)
}

// StartWriting opens a new file for appends. It fails if a writer is
// already open.
func (c *Collection) StartWriting() error {
	c.writerMu.Lock()
	defer c.writerMu.Unlock()
	if c.writer != nil {
		err := &errs.DataFileError{File: c.dir, Msg: "startWriting: a writer is already open"}
		c.log.Error().Err(err).Msg("startWriting failed")
		return err
	}
	idx := c.nextIndex.Inc()
	f, err := CreateFile(c.dir, c.storeName, idx, c.itemVersion)
	if err != nil {
		c.log.Error().Err(err).Int64("index", idx).Msg("startWriting failed")
		return err
	}
	c.writer = f
	c.writerMinKey = nil
	c.writerMaxKey = nil
	c.writerItemCount = 0
	return nil
}

// StoreDataItem serializes it into the open file and records its location
// in the external index.
func (c *Collection) StoreDataItem(it Item) (Location, error) {
	c.writerMu.Lock()
	defer c.writerMu.Unlock()
	if c.writer == nil {
		err := &errs.DataFileError{File: c.dir, Msg: "storeDataItem: no writer open"}
		c.log.Error().Err(err).Msg("storeDataItem failed")
		return Location{}, err
	}
	loc, err := c.writer.Append(EncodeItem(it))
	if err != nil {
		c.log.Error().Err(err).Int64("file", c.writer.Index()).Msg("storeDataItem failed")
		return Location{}, err
	}
	c.writerItemCount++
	if c.writerMinKey == nil || bytes.Compare(it.Key, c.writerMinKey) < 0 {
		c.writerMinKey = it.Key
	}
	if c.writerMaxKey == nil || bytes.Compare(it.Key, c.writerMaxKey) > 0 {
		c.writerMaxKey = it.Key
	}
	if c.index != nil {
		if err := c.index.Put(it.Key, loc); err != nil {
			wrapped := fmt.Errorf("datastore: failed to index stored item: %w", err)
			c.log.Error().Err(wrapped).Int64("file", c.writer.Index()).Int64("offset", loc.Offset).Msg("storeDataItem failed")
			return Location{}, wrapped
		}
	}
	return loc, nil
}

// EndWriting closes the open writer, writes its footer, publishes it into
// the read set, and advertises the collection's owner-asserted valid key
// range [minKey, maxKey] via the metadata sidecar - the range a merge should
// keep, independent of what keys this particular file happens to contain. A
// nil bound is unrestricted on that side.
func (c *Collection) EndWriting(minKey, maxKey Key) error {
	c.writerMu.Lock()
	defer c.writerMu.Unlock()
	if c.writer == nil {
		err := &errs.DataFileError{File: c.dir, Msg: "endWriting: no writer open"}
		c.log.Error().Err(err).Msg("endWriting failed")
		return err
	}

	finalized := c.writer
	if err := finalized.Finalize(c.writerMinKey, c.writerMaxKey, c.writerItemCount); err != nil {
		c.log.Error().Err(err).Int64("file", finalized.Index()).Msg("endWriting failed")
		return err
	}
	if err := finalized.ReopenForReading(); err != nil {
		c.log.Error().Err(err).Int64("file", finalized.Index()).Msg("endWriting failed")
		return err
	}

	old := c.files()
	updated := &fileSet{files: append(append([]*DataFile{}, old.files...), finalized)}
	c.published.Store(updated)
	c.validRange.Store(&validRange{min: minKey, max: maxKey})

	if err := c.advertiseValidRange(); err != nil {
		c.log.Error().Err(err).Int64("file", finalized.Index()).Msg("endWriting failed")
		return err
	}

	c.writer = nil
	c.writerMinKey = nil
	c.writerMaxKey = nil
	c.writerItemCount = 0
	return nil
}

// ValidRange returns the collection's currently advertised owner range, as
// last set by EndWriting. Either bound may be nil, meaning unrestricted.
func (c *Collection) ValidRange() (min, max Key) {
	vr := c.validRange.Load().(*validRange)
	return vr.min, vr.max
}

func (c *Collection) advertiseValidRange() error {
	vr := c.validRange.Load().(*validRange)
	encoded, err := encodeSidecar(sidecarMetadata{FormatVersion: formatVersion, MinKey: vr.min, MaxKey: vr.max})
	if err != nil {
		return fmt.Errorf("datastore: cannot encode sidecar: %w", err)
	}
	return os.WriteFile(sidecarPath(c.dir, c.storeName), encoded, 0o644)
}

// ReadDataItem resolves loc against the currently published file set. It
// returns a nil payload, not an error, if the file has since been retired
// by a merge.
func (c *Collection) ReadDataItem(loc Location) ([]byte, error) {
	for _, f := range c.files().files {
		if f.Index() == loc.FileIndex {
			raw, err := f.ReadAt(loc.Offset)
			if err != nil {
				return nil, err
			}
			item, err := DecodeItem(raw)
			if err != nil {
				return nil, err
			}
			return item.Payload, nil
		}
	}
	return nil, nil
}

// ReadUsingIndex resolves key via the external index, retrying up to 5
// times if a concurrent merge retires the target file between the index
// lookup and the read.
func (c *Collection) ReadUsingIndex(ctx context.Context, key Key) ([]byte, error) {
	for attempt := 0; attempt < readUsingIndexRetries; attempt++ {
		loc, ok, err := c.index.Get(key)
		if err != nil {
			return nil, fmt.Errorf("datastore: index lookup failed: %w", err)
		}
		if !ok {
			return nil, nil
		}
		payload, err := c.ReadDataItem(loc)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			return payload, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
	return nil, &errs.DataFileError{File: c.dir, Msg: "readUsingIndex: exhausted retries against a concurrently retired file"}
}

// RetireFiles atomically removes the given files from the published read
// set (used by the merger once it has replaced them) and deletes them from
// disk.
func (c *Collection) RetireFiles(stale []*DataFile) error {
	staleIdx := make(map[int64]bool, len(stale))
	for _, f := range stale {
		staleIdx[f.Index()] = true
	}

	old := c.files()
	kept := make([]*DataFile, 0, len(old.files))
	for _, f := range old.files {
		if !staleIdx[f.Index()] {
			kept = append(kept, f)
		}
	}
	c.published.Store(&fileSet{files: kept})

	var firstErr error
	for _, f := range stale {
		if err := f.Remove(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// PublishMergedFiles adds newly merged output files to the read set.
func (c *Collection) PublishMergedFiles(outputs []*DataFile) {
	old := c.files()
	c.published.Store(&fileSet{files: append(append([]*DataFile{}, old.files...), outputs...)})
}

// Files returns a snapshot slice of the currently published files.
func (c *Collection) Files() []*DataFile {
	return append([]*DataFile{}, c.files().files...)
}

// Index returns the collection's external index.
func (c *Collection) Index() *Index { return c.index }

// Dir, StoreName and ItemVersion expose the collection's naming for
// snapshot.go and merge.go.
func (c *Collection) Dir() string         { return c.dir }
func (c *Collection) StoreName() string   { return c.storeName }
func (c *Collection) ItemVersion() uint32 { return c.itemVersion }
