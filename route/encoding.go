package route

import (
	"encoding/binary"
	"fmt"
)

// Encode serializes r as a leading varint count followed by that many
// single-byte indices (indices are bounded to [0, MaxFanOut), so one byte
// each suffices). The format is stable across versions of this package.
func Encode(r Route) []byte {
	buf := make([]byte, 0, binary.MaxVarintLen64+r.length)
	var countBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(countBuf[:], uint64(r.length))
	buf = append(buf, countBuf[:n]...)
	for i := 0; i < r.length; i++ {
		buf = append(buf, byte(r.Index(i)))
	}
	return buf
}

// Decode parses a route previously produced by Encode, returning the route
// and the number of bytes consumed.
func Decode(raw []byte) (Route, int, error) {
	count, n := binary.Uvarint(raw)
	if n <= 0 {
		return Route{}, 0, fmt.Errorf("route: malformed length prefix")
	}
	if len(raw) < n+int(count) {
		return Route{}, 0, fmt.Errorf("route: truncated encoding, want %d index bytes, have %d", count, len(raw)-n)
	}
	r := Root()
	for i := 0; i < int(count); i++ {
		idx := int(raw[n+i])
		if idx >= MaxFanOut {
			return Route{}, 0, fmt.Errorf("route: decoded index %d exceeds max fan-out %d", idx, MaxFanOut)
		}
		r = Child(r, idx)
	}
	return r, n + int(count), nil
}
