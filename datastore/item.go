// Package datastore implements the append-only, content-addressed data file
// collection: a directory of immutable files, one writer at a time,
// arbitrarily many readers, and a background merger that compacts older
// files while respecting a pause semaphore snapshots use to quiesce it
// briefly. Layout and lifecycle are segment files with a footer and a
// compactor running a Ready/Run/Done loop; the external index and
// copy-on-write published file set use the same pattern.
package datastore

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Key is an opaque content-address; comparisons are lexicographic.
type Key []byte

// Location is the opaque handle storeDataItem hands back: which file, and
// the byte offset of the item within it.
type Location struct {
	FileIndex int64
	Offset    int64
}

// IsZero reports whether loc represents "absent" - the external index's
// resting state for a key that has never been written.
func (loc Location) IsZero() bool {
	return loc.FileIndex == 0 && loc.Offset == 0
}

func (loc Location) bytes() []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:8], uint64(loc.FileIndex))
	binary.BigEndian.PutUint64(buf[8:16], uint64(loc.Offset))
	return buf
}

func locationFromBytes(b []byte) (Location, error) {
	if len(b) != 16 {
		return Location{}, fmt.Errorf("datastore: malformed location, want 16 bytes, got %d", len(b))
	}
	return Location{
		FileIndex: int64(binary.BigEndian.Uint64(b[0:8])),
		Offset:    int64(binary.BigEndian.Uint64(b[8:16])),
	}, nil
}

// Item is one content-addressed record. Payload is opaque to the store.
type Item struct {
	Key     Key
	Payload []byte
}

// EncodeItem renders it as the self-describing envelope the merge algorithm
// later parses back out to recover an item's key without consulting the
// index: a uvarint key length, the key, a uvarint payload length, the
// payload.
func EncodeItem(it Item) []byte {
	buf := make([]byte, 0, len(it.Key)+len(it.Payload)+20)
	var scratch [binary.MaxVarintLen64]byte

	n := binary.PutUvarint(scratch[:], uint64(len(it.Key)))
	buf = append(buf, scratch[:n]...)
	buf = append(buf, it.Key...)

	n = binary.PutUvarint(scratch[:], uint64(len(it.Payload)))
	buf = append(buf, scratch[:n]...)
	buf = append(buf, it.Payload...)
	return buf
}

// DecodeItem is the inverse of EncodeItem.
func DecodeItem(raw []byte) (Item, error) {
	r := bytes.NewReader(raw)
	keyLen, err := binary.ReadUvarint(r)
	if err != nil {
		return Item{}, fmt.Errorf("datastore: corrupt item envelope: %w", err)
	}
	key := make([]byte, keyLen)
	if _, err := io.ReadFull(r, key); err != nil {
		return Item{}, fmt.Errorf("datastore: corrupt item envelope: %w", err)
	}
	payloadLen, err := binary.ReadUvarint(r)
	if err != nil {
		return Item{}, fmt.Errorf("datastore: corrupt item envelope: %w", err)
	}
	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Item{}, fmt.Errorf("datastore: corrupt item envelope: %w", err)
	}
	return Item{Key: key, Payload: payload}, nil
}
