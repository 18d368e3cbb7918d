// Package sync implements the teacher/learner reconnect protocol: a lagging
// node (the learner) obtains the authoritative tree from a peer (the
// teacher) over a duplex ordered byte channel, transmitting only the
// subtrees it lacks. Frames use a type tag followed by length-prefixed
// fields written big-endian, and the reader/writer sides run as pipelined,
// independent goroutines - a draining writer and a decoding reader.
package sync

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Kind identifies one of the three wire message types.
type Kind uint8

const (
	KindRootHash Kind = iota
	KindAck
	KindNodeData
)

// Message is the in-memory representation of one wire message. ClassID and
// Version are populated only for NodeData; RootHash only for RootHash; Ack
// only for Ack.
type Message struct {
	Kind     Kind
	RootHash []byte
	Ack      bool
	NodeData NodeData
}

// NodeData is the payload of a NODE_DATA message: for leaves, the raw
// payload; for internals, the child hashes (nil entries mean a null/unset
// child slot, which still receives its own wire entry - every declared
// slot, even a locally-null one, is acked).
type NodeData struct {
	ClassID     uint64
	Version     int32
	Hash        []byte
	IsLeaf      bool
	Payload     []byte
	ChildHashes [][]byte
}

func appendUint8(b []byte, v uint8) []byte { return append(b, v) }

func appendUint32(b []byte, v uint32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return append(b, buf[:]...)
}

func appendUint64(b []byte, v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return append(b, buf[:]...)
}

func appendBytes(b []byte, data []byte) []byte {
	b = appendUint32(b, uint32(len(data)))
	return append(b, data...)
}

func readUint8(r io.Reader) (uint8, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

func readInt32(r io.Reader) (int32, error) {
	v, err := readUint32(r)
	return int32(v), err
}

func readBytes(r io.Reader) ([]byte, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// EncodeMessage writes msg to w framed as kind (u8), class_id (u64),
// version (i32), then self-describing payload bytes.
func EncodeMessage(w io.Writer, msg Message) error {
	buf := []byte{byte(msg.Kind)}
	buf = appendUint64(buf, msg.NodeData.ClassID)
	buf = appendUint32(buf, uint32(msg.NodeData.Version))

	switch msg.Kind {
	case KindRootHash:
		buf = appendBytes(buf, msg.RootHash)
	case KindAck:
		var v uint8
		if msg.Ack {
			v = 1
		}
		buf = appendUint8(buf, v)
	case KindNodeData:
		buf = appendBytes(buf, msg.NodeData.Hash)
		if msg.NodeData.IsLeaf {
			buf = appendUint8(buf, 1)
			buf = appendBytes(buf, msg.NodeData.Payload)
		} else {
			buf = appendUint8(buf, 0)
			buf = appendUint32(buf, uint32(len(msg.NodeData.ChildHashes)))
			for _, h := range msg.NodeData.ChildHashes {
				buf = appendBytes(buf, h)
			}
		}
	default:
		return fmt.Errorf("sync: unknown message kind %d", msg.Kind)
	}

	_, err := w.Write(buf)
	return err
}

// MessageSize returns the exact number of bytes msg occupies on the wire,
// the unit Stats.BytesSent reports.
func MessageSize(msg Message) (int, error) {
	var buf bytes.Buffer
	if err := EncodeMessage(&buf, msg); err != nil {
		return 0, err
	}
	return buf.Len(), nil
}

// DecodeMessage reads one message from r, blocking until the full frame has
// arrived.
func DecodeMessage(r io.Reader) (Message, error) {
	kindByte, err := readUint8(r)
	if err != nil {
		return Message{}, err
	}
	classID, err := readUint64(r)
	if err != nil {
		return Message{}, err
	}
	version, err := readInt32(r)
	if err != nil {
		return Message{}, err
	}

	msg := Message{Kind: Kind(kindByte)}
	msg.NodeData.ClassID = classID
	msg.NodeData.Version = version

	switch msg.Kind {
	case KindRootHash:
		h, err := readBytes(r)
		if err != nil {
			return Message{}, err
		}
		msg.RootHash = h
	case KindAck:
		v, err := readUint8(r)
		if err != nil {
			return Message{}, err
		}
		msg.Ack = v == 1
	case KindNodeData:
		h, err := readBytes(r)
		if err != nil {
			return Message{}, err
		}
		msg.NodeData.Hash = h
		isLeaf, err := readUint8(r)
		if err != nil {
			return Message{}, err
		}
		if isLeaf == 1 {
			msg.NodeData.IsLeaf = true
			payload, err := readBytes(r)
			if err != nil {
				return Message{}, err
			}
			msg.NodeData.Payload = payload
		} else {
			count, err := readUint32(r)
			if err != nil {
				return Message{}, err
			}
			hashes := make([][]byte, count)
			for i := range hashes {
				h, err := readBytes(r)
				if err != nil {
					return Message{}, err
				}
				hashes[i] = h
			}
			msg.NodeData.ChildHashes = hashes
		}
	default:
		return Message{}, fmt.Errorf("sync: unknown message kind %d on wire", msg.Kind)
	}
	return msg, nil
}
