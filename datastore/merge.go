package datastore

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/ironleaf/merklecore/errs"
	"github.com/ironleaf/merklecore/internal/config"
)

// Merger runs the background compaction pass: a ticking goroutine that
// calls Run periodically via a Ready/Run/Done lifecycle, and can be stopped
// cleanly.
type Merger struct {
	collection *Collection
	pause      *PauseSemaphore
	interval   time.Duration
	maxItems   int
	maxBytes   int64

	log   zerolog.Logger
	done  chan struct{}
	stopc chan struct{}
}

// NewMerger constructs a Merger bound to collection.
func NewMerger(collection *Collection, pause *PauseSemaphore, interval time.Duration, maxItems int, maxBytes int64, log zerolog.Logger) *Merger {
	return &Merger{
		collection: collection,
		pause:      pause,
		interval:   interval,
		maxItems:   maxItems,
		maxBytes:   maxBytes,
		log:        log.With().Str("component", "datastore.merger").Logger(),
		done:       make(chan struct{}),
		stopc:      make(chan struct{}),
	}
}

// NewMergerFromConfig builds a Merger sized by cfg's MergeInterval,
// DataFileMaxItems and DataFileMaxBytes fields, in place of passing them as
// separate arguments.
func NewMergerFromConfig(cfg *config.Config, collection *Collection, pause *PauseSemaphore, log zerolog.Logger) *Merger {
	return NewMerger(collection, pause, cfg.MergeInterval, cfg.DataFileMaxItems, cfg.DataFileMaxBytes, log)
}

// Ready starts the background loop and returns immediately.
func (m *Merger) Ready() <-chan struct{} {
	ch := make(chan struct{})
	go m.loop()
	close(ch)
	return ch
}

// Done requests the loop stop and returns a channel that is closed once it
// has stopped.
func (m *Merger) Done() <-chan struct{} {
	close(m.stopc)
	return m.done
}

func (m *Merger) loop() {
	defer close(m.done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		if err := m.Run(context.Background()); err != nil {
			m.log.Error().Err(err).Msg("merge pass failed")
		}
		select {
		case <-m.stopc:
			return
		case <-ticker.C:
		}
	}
}

// Run performs one merge pass over every file currently published, if more
// than one exists.
func (m *Merger) Run(ctx context.Context) error {
	files := m.collection.Files()
	if len(files) < 2 {
		return nil
	}
	outputs, err := MergeFiles(ctx, m.collection, files, m.pause, m.maxItems, m.maxBytes)
	if err != nil {
		return err
	}
	m.collection.PublishMergedFiles(outputs)

	var totalItems uint32
	var totalBytes int64
	for _, f := range outputs {
		totalItems += f.ItemCount()
		if info, statErr := os.Stat(f.Path()); statErr == nil {
			totalBytes += info.Size()
		}
	}
	m.collection.metrics.observeMerge(totalItems, totalBytes, len(files))

	return m.collection.RetireFiles(files)
}

// sourceCursor positions one input file at its current unconsumed item.
type sourceCursor struct {
	file      *DataFile
	offset    int64
	current   Item
	currentAt Location
	exhausted bool
}

func newSourceCursor(f *DataFile) (*sourceCursor, error) {
	c := &sourceCursor{file: f, offset: int64(headerSize)}
	if err := c.advance(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *sourceCursor) advance() error {
	if c.offset >= c.file.footerStart {
		c.exhausted = true
		return nil
	}
	raw, err := c.file.ReadAt(c.offset)
	if err != nil {
		return err
	}
	item, err := DecodeItem(raw)
	if err != nil {
		return err
	}
	c.current = item
	c.currentAt = Location{FileIndex: c.file.Index(), Offset: c.offset}
	c.offset += int64(uvarintLen(uint64(len(raw)))) + int64(len(raw))
	return nil
}

func uvarintLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// MergeFiles compacts files into one or more new output files, dropping
// items the external index no longer attributes to their old location, and
// CAS-updating the index for every item it moves. Tie-breaks among equal
// keys prefer the item from the newest source file (by creation time, then
// by higher file index).
func MergeFiles(ctx context.Context, collection *Collection, files []*DataFile, pause *PauseSemaphore, maxItems int, maxBytes int64) ([]*DataFile, error) {
	validMin, validMax := collection.ValidRange()

	cursors := make([]*sourceCursor, 0, len(files))
	for _, f := range files {
		c, err := newSourceCursor(f)
		if err != nil {
			return nil, err
		}
		cursors = append(cursors, c)
	}

	var outputs []*DataFile
	var current *DataFile
	var currentMin, currentMax Key
	var currentItems uint32
	var currentBytes int64
	var lastWrittenKey Key
	haveLastKey := false

	openOutput := func() error {
		idx := collection.nextIndex.Inc()
		f, err := CreateFile(collection.Dir(), collection.StoreName()+"_merged", idx, collection.ItemVersion())
		if err != nil {
			return err
		}
		current = f
		currentMin, currentMax = nil, nil
		currentItems = 0
		currentBytes = 0
		return nil
	}
	finalizeOutput := func() error {
		if current == nil {
			return nil
		}
		if err := current.Finalize(currentMin, currentMax, currentItems); err != nil {
			return err
		}
		if err := current.ReopenForReading(); err != nil {
			return err
		}
		outputs = append(outputs, current)
		current = nil
		return nil
	}

	if err := openOutput(); err != nil {
		return nil, err
	}

	for {
		if err := pause.Wait(ctx); err != nil {
			return nil, err
		}

		winner := -1
		for i, c := range cursors {
			if c.exhausted {
				continue
			}
			if winner == -1 {
				winner = i
				continue
			}
			cmp := bytes.Compare(c.current.Key, cursors[winner].current.Key)
			switch {
			case cmp < 0:
				winner = i
			case cmp == 0:
				if preferNewer(c.file, cursors[winner].file) {
					winner = i
				}
			}
		}
		if winner == -1 {
			break
		}

		winnerCursor := cursors[winner]
		item := winnerCursor.current
		oldLoc := winnerCursor.currentAt

		seen, err := collection.Index().HasLocation(item.Key, oldLoc)
		if err != nil {
			return nil, err
		}

		// advance every other cursor currently tied on the same key past it,
		// so the loser copies are skipped rather than re-selected.
		for i, c := range cursors {
			if c.exhausted || i == winner {
				continue
			}
			if bytes.Equal(c.current.Key, item.Key) {
				if err := c.advance(); err != nil {
					return nil, err
				}
			}
		}
		if err := winnerCursor.advance(); err != nil {
			return nil, err
		}

		if !seen {
			continue // superseded by a newer file; silently dropped
		}

		outOfRange := (validMin != nil && bytes.Compare(item.Key, validMin) < 0) ||
			(validMax != nil && bytes.Compare(item.Key, validMax) > 0)
		if outOfRange {
			continue // outside the collection's currently advertised valid range
		}

		if haveLastKey && bytes.Compare(item.Key, lastWrittenKey) < 0 {
			return nil, &errs.DataFileError{Msg: fmt.Sprintf("merge: key monotonicity violated at %x", item.Key)}
		}

		encoded := EncodeItem(item)
		newLoc, err := current.Append(encoded)
		if err != nil {
			return nil, err
		}
		currentItems++
		currentBytes += int64(len(encoded))
		if currentMin == nil || bytes.Compare(item.Key, currentMin) < 0 {
			currentMin = item.Key
		}
		if currentMax == nil || bytes.Compare(item.Key, currentMax) > 0 {
			currentMax = item.Key
		}
		lastWrittenKey = item.Key
		haveLastKey = true

		if _, err := collection.Index().CompareAndSwap(item.Key, oldLoc, newLoc); err != nil {
			return nil, err
		}

		if currentItems >= uint32(maxItems) || currentBytes >= maxBytes {
			if err := finalizeOutput(); err != nil {
				return nil, err
			}
			if err := openOutput(); err != nil {
				return nil, err
			}
		}
	}

	if err := finalizeOutput(); err != nil {
		return nil, err
	}
	return outputs, nil
}

// preferNewer reports whether candidate should win a tie over incumbent:
// newest creation timestamp first, then higher file index.
func preferNewer(candidate, incumbent *DataFile) bool {
	if !candidate.Creation().Equal(incumbent.Creation()) {
		return candidate.Creation().After(incumbent.Creation())
	}
	return candidate.Index() > incumbent.Index()
}
