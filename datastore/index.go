package datastore

import (
	"fmt"

	"github.com/dgraph-io/badger/v2"
)

// Index is the external long-list index mapping a content key to its
// current on-disk Location, consulted by readUsingIndex and by the merge
// algorithm's seen-check. Modeled on storage/badger/views.go's
// get/set-by-key-via-transaction pattern, generalized from a fixed view
// counter to an arbitrary byte key.
type Index struct {
	db *badger.DB
}

// OpenIndex opens (creating if absent) a badger database at path.
func OpenIndex(path string) (*Index, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("datastore: cannot open index at %s: %w", path, err)
	}
	return &Index{db: db}, nil
}

// Close releases the underlying badger database.
func (idx *Index) Close() error {
	return idx.db.Close()
}

// Get returns the current location for key, or ok=false if absent.
func (idx *Index) Get(key Key) (Location, bool, error) {
	var loc Location
	var found bool
	err := idx.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			loc, err = locationFromBytes(val)
			return err
		})
	})
	if err != nil {
		return Location{}, false, err
	}
	return loc, found, nil
}

// Put unconditionally sets key's location, used when an item is first
// stored.
func (idx *Index) Put(key Key, loc Location) error {
	return idx.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, loc.bytes())
	})
}

// Delete removes key from the index, representing "absent" per spec
// §4.6.3 rather than storing an all-zero location.
func (idx *Index) Delete(key Key) error {
	return idx.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

// CompareAndSwap implements the "put-if-equal" contract the merge algorithm
// relies on: it writes newLoc only if the index currently holds exactly
// old, and reports whether the swap happened. A zero-value old matches an
// absent key.
func (idx *Index) CompareAndSwap(key Key, old, newLoc Location) (bool, error) {
	var swapped bool
	err := idx.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		var current Location
		switch err {
		case badger.ErrKeyNotFound:
			current = Location{}
		case nil:
			if verr := item.Value(func(val []byte) error {
				current, err = locationFromBytes(val)
				return err
			}); verr != nil {
				return verr
			}
		default:
			return err
		}

		if current != old {
			return nil
		}
		swapped = true
		return txn.Set(key, newLoc.bytes())
	})
	return swapped, err
}

// HasLocation reports whether key's current indexed location is exactly
// loc - the seen-check the merger performs before copying an item forward.
func (idx *Index) HasLocation(key Key, loc Location) (bool, error) {
	current, found, err := idx.Get(key)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	return current == loc, nil
}
