package datastore

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/ironleaf/merklecore/errs"
)

var fileMagic = [4]byte{'M', 'K', 'D', 'F'}

const (
	formatVersion = 1
	headerSize    = 4 + 4 + 8 + 8 + 4 // magic, format version, file index, creation nanos, item version
)

// DataFile is one immutable (once finalized) file in the collection. A file
// is either open for writing (writeHandle set, footer unknown) or open for
// reading (readHandle set, footer populated).
type DataFile struct {
	path        string
	index       int64
	creation    time.Time
	itemVersion uint32

	writeHandle *os.File
	writeOffset int64

	readHandle  *os.File
	footerStart int64
	footer      footer
}

// filePath renders the `<storeName>_<index>_<creation>.dat` naming
// convention.
func filePath(dir, storeName string, index int64, creation time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%d_%d.dat", storeName, index, creation.UnixNano()))
}

func sidecarPath(dir, storeName string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_metadata.dfc", storeName))
}

// CreateFile opens a brand new file for writing and records its header.
func CreateFile(dir, storeName string, index int64, itemVersion uint32) (*DataFile, error) {
	creation := time.Now()
	path := filePath(dir, storeName, index, creation)
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "datastore: cannot create file %s", path)
	}

	df := &DataFile{path: path, index: index, creation: creation, itemVersion: itemVersion, writeHandle: f}
	if err := df.writeHeader(); err != nil {
		f.Close()
		return nil, err
	}
	return df, nil
}

func (f *DataFile) writeHeader() error {
	buf := make([]byte, 0, headerSize)
	buf = append(buf, fileMagic[:]...)
	buf = appendUint32(buf, formatVersion)
	buf = appendInt64(buf, f.index)
	buf = appendInt64(buf, f.creation.UnixNano())
	buf = appendUint32(buf, f.itemVersion)

	n, err := f.writeHandle.Write(buf)
	if err != nil {
		return errors.Wrap(err, "datastore: cannot write header")
	}
	f.writeOffset = int64(n)
	return nil
}

func appendUint32(b []byte, v uint32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return append(b, buf[:]...)
}

func appendInt64(b []byte, v int64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	return append(b, buf[:]...)
}

// Append serializes data at the current write offset and returns its
// location. Only valid on a file created via CreateFile and not yet
// finalized.
func (f *DataFile) Append(data []byte) (Location, error) {
	if f.writeHandle == nil {
		return Location{}, &errs.DataFileError{File: f.path, Msg: "append on a file not open for writing"}
	}
	loc := Location{FileIndex: f.index, Offset: f.writeOffset}

	var scratch [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(scratch[:], uint64(len(data)))

	written, err := f.writeHandle.Write(scratch[:n])
	if err != nil {
		return Location{}, errors.Wrap(err, "datastore: append failed")
	}
	f.writeOffset += int64(written)

	written, err = f.writeHandle.Write(data)
	if err != nil {
		return Location{}, errors.Wrap(err, "datastore: append failed")
	}
	f.writeOffset += int64(written)
	return loc, nil
}

// Finalize writes the footer (key summary + footer-start trailer), fsyncs,
// and closes the writer handle. The file remains closed for reading until
// ReopenForReading is called - published files are reopened once when they
// join the read set.
func (f *DataFile) Finalize(minKey, maxKey Key, itemCount uint32) error {
	if f.writeHandle == nil {
		return &errs.DataFileError{File: f.path, Msg: "finalize on a file not open for writing"}
	}
	footerStart := f.writeOffset
	encoded, err := encodeFooter(footer{MinKey: minKey, MaxKey: maxKey, ItemCount: itemCount})
	if err != nil {
		return errors.Wrap(err, "datastore: cannot encode footer")
	}

	var scratch [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(scratch[:], uint64(len(encoded)))
	if _, err := f.writeHandle.Write(scratch[:n]); err != nil {
		return errors.Wrap(err, "datastore: cannot write footer length")
	}
	if _, err := f.writeHandle.Write(encoded); err != nil {
		return errors.Wrap(err, "datastore: cannot write footer")
	}
	trailer := appendInt64(nil, footerStart)
	if _, err := f.writeHandle.Write(trailer); err != nil {
		return errors.Wrap(err, "datastore: cannot write footer trailer")
	}
	if err := f.writeHandle.Sync(); err != nil {
		return errors.Wrap(err, "datastore: cannot fsync file")
	}
	if err := f.writeHandle.Close(); err != nil {
		return errors.Wrap(err, "datastore: cannot close writer")
	}
	f.writeHandle = nil
	f.footerStart = footerStart
	f.footer = footer{MinKey: minKey, MaxKey: maxKey, ItemCount: itemCount}
	return nil
}

// ReopenForReading opens a dedicated read-only handle on a finalized file.
func (f *DataFile) ReopenForReading() error {
	rh, err := os.Open(f.path)
	if err != nil {
		return errors.Wrapf(err, "datastore: cannot reopen %s for reading", f.path)
	}
	f.readHandle = rh
	return nil
}

// OpenFileForReading opens an already-finalized file fresh (e.g. after a
// restart), parsing its header and footer.
func OpenFileForReading(path string) (*DataFile, error) {
	rh, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "datastore: cannot open %s", path)
	}

	header := make([]byte, headerSize)
	if _, err := io.ReadFull(rh, header); err != nil {
		rh.Close()
		return nil, &errs.DataFileError{File: path, Msg: "truncated header"}
	}
	var magic [4]byte
	copy(magic[:], header[0:4])
	if magic != fileMagic {
		rh.Close()
		return nil, &errs.DataFileError{File: path, Msg: "bad magic"}
	}
	fileIndex := int64(binary.BigEndian.Uint64(header[8:16]))
	creationNanos := int64(binary.BigEndian.Uint64(header[16:24]))
	itemVersion := binary.BigEndian.Uint32(header[24:28])

	info, err := rh.Stat()
	if err != nil {
		rh.Close()
		return nil, err
	}
	var trailer [8]byte
	if _, err := rh.ReadAt(trailer[:], info.Size()-8); err != nil {
		rh.Close()
		return nil, &errs.DataFileError{File: path, Offset: info.Size() - 8, Msg: "truncated footer trailer"}
	}
	footerStart := int64(binary.BigEndian.Uint64(trailer[:]))

	footerRegion := io.NewSectionReader(rh, footerStart, info.Size()-8-footerStart)
	br := bufio.NewReader(footerRegion)
	footerLen, err := binary.ReadUvarint(br)
	if err != nil {
		rh.Close()
		return nil, &errs.DataFileError{File: path, Offset: footerStart, Msg: "corrupt footer length"}
	}
	footerBytes := make([]byte, footerLen)
	if _, err := io.ReadFull(br, footerBytes); err != nil {
		rh.Close()
		return nil, &errs.DataFileError{File: path, Offset: footerStart, Msg: "truncated footer"}
	}
	parsedFooter, err := decodeFooter(footerBytes)
	if err != nil {
		rh.Close()
		return nil, &errs.DataFileError{File: path, Offset: footerStart, Msg: "corrupt footer contents"}
	}

	return &DataFile{
		path:        path,
		index:       fileIndex,
		creation:    time.Unix(0, creationNanos),
		itemVersion: itemVersion,
		readHandle:  rh,
		footerStart: footerStart,
		footer:      parsedFooter,
	}, nil
}

// ReadAt resolves one item at offset within this file.
func (f *DataFile) ReadAt(offset int64) ([]byte, error) {
	if f.readHandle == nil {
		return nil, &errs.DataFileError{File: f.path, Offset: offset, Msg: "read on a file not open for reading"}
	}
	length := f.footerStart - offset
	if length <= 0 {
		return nil, &errs.DataFileError{File: f.path, Offset: offset, Msg: "offset past the footer"}
	}
	sr := io.NewSectionReader(f.readHandle, offset, length)
	br := bufio.NewReader(sr)
	itemLen, err := binary.ReadUvarint(br)
	if err != nil {
		return nil, &errs.DataFileError{File: f.path, Offset: offset, Msg: "corrupt item length"}
	}
	buf := make([]byte, itemLen)
	if _, err := io.ReadFull(br, buf); err != nil {
		return nil, &errs.DataFileError{File: f.path, Offset: offset, Msg: "truncated item"}
	}
	return buf, nil
}

// Scan iterates every item in file order, calling visit(location, item)
// for each. Used by the merge algorithm's source cursors.
func (f *DataFile) Scan(visit func(Location, []byte) error) error {
	if f.readHandle == nil {
		return &errs.DataFileError{File: f.path, Msg: "scan on a file not open for reading"}
	}
	offset := int64(headerSize)
	for offset < f.footerStart {
		item, err := f.ReadAt(offset)
		if err != nil {
			return err
		}
		loc := Location{FileIndex: f.index, Offset: offset}
		if err := visit(loc, item); err != nil {
			return err
		}
		var scratch [binary.MaxVarintLen64]byte
		n := binary.PutUvarint(scratch[:], uint64(len(item)))
		offset += int64(n) + int64(len(item))
	}
	return nil
}

// Close releases whichever handle is open.
func (f *DataFile) Close() error {
	if f.writeHandle != nil {
		err := f.writeHandle.Close()
		f.writeHandle = nil
		return err
	}
	if f.readHandle != nil {
		err := f.readHandle.Close()
		f.readHandle = nil
		return err
	}
	return nil
}

// Remove closes and deletes the underlying file, used once a merge or a
// failed write has made it obsolete.
func (f *DataFile) Remove() error {
	_ = f.Close()
	return os.Remove(f.path)
}

func (f *DataFile) Index() int64        { return f.index }
func (f *DataFile) Creation() time.Time { return f.creation }
func (f *DataFile) Path() string        { return f.path }
func (f *DataFile) ItemCount() uint32   { return f.footer.ItemCount }
func (f *DataFile) MinKey() Key         { return f.footer.MinKey }
func (f *DataFile) MaxKey() Key         { return f.footer.MaxKey }
