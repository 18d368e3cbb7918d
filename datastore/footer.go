package datastore

import (
	"github.com/vmihailenco/msgpack/v4"
)

// footer is the structured tail of a data file: the key summary the merge
// algorithm and range queries consult before opening the file at all.
type footer struct {
	MinKey    Key
	MaxKey    Key
	ItemCount uint32
}

func encodeFooter(f footer) ([]byte, error) {
	return msgpack.Marshal(f)
}

func decodeFooter(raw []byte) (footer, error) {
	var f footer
	if err := msgpack.Unmarshal(raw, &f); err != nil {
		return footer{}, err
	}
	return f, nil
}

// sidecarMetadata is the `<storeName>_metadata.dfc` file: the format
// version and the collection-wide valid key range, advertised only after a
// writer's new file is linked into the read set.
type sidecarMetadata struct {
	FormatVersion uint32
	MinKey        Key
	MaxKey        Key
}

func encodeSidecar(m sidecarMetadata) ([]byte, error) {
	return msgpack.Marshal(m)
}

func decodeSidecar(raw []byte) (sidecarMetadata, error) {
	var m sidecarMetadata
	if err := msgpack.Unmarshal(raw, &m); err != nil {
		return sidecarMetadata{}, err
	}
	return m, nil
}
