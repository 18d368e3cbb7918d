package hash

import (
	"encoding/binary"

	"github.com/ironleaf/merklecore/digest"
	"github.com/ironleaf/merklecore/node"
)

// classVersionHeader renders the classID/version header shared by every
// node's hash input, matching node.ComputeHash's internal-node framing.
func classVersionHeader(classID node.ClassID, version node.Version) []byte {
	buf := make([]byte, 12)
	binary.BigEndian.PutUint64(buf[:8], classID)
	binary.BigEndian.PutUint32(buf[8:], uint32(version))
	return buf
}

func hashLeafPayload(algo digest.Algorithm, classID node.ClassID, version node.Version, payload []byte) []byte {
	return algo.Sum(classVersionHeader(classID, version), payload)
}
