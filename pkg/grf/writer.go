package grf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/Faultbox/polyweld/pkg/encoding"
)

// Writer builds a version 0x200 archive. Entries are buffered in memory and
// the whole archive is emitted by Close.
type Writer struct {
	w      io.Writer
	body   bytes.Buffer
	table  bytes.Buffer
	count  uint32
	names  map[string]bool
	closed bool
}

// NewWriter returns a Writer that emits the archive to w on Close.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, names: make(map[string]bool)}
}

// Add compresses data and stores it under name. Names use forward slashes
// and are stored with backslashes, the way the client expects. Non-ASCII
// names must already be EUC-KR encoded.
func (w *Writer) Add(name string, data []byte) error {
	if w.closed {
		return fmt.Errorf("grf: add %s after close", name)
	}
	key := encoding.NormalizePath(name)
	if w.names[key] {
		return fmt.Errorf("grf: duplicate entry %s", name)
	}
	w.names[key] = true

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(data); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}

	stored := compressed.Bytes()
	if len(stored) == len(data) {
		// Equal sizes mark an uncompressed entry.
		stored = data
	}

	aligned := uint32(len(stored))
	if aligned%8 != 0 {
		aligned += 8 - aligned%8
	}
	offset := uint32(w.body.Len())
	w.body.Write(stored)
	w.body.Write(make([]byte, int(aligned)-len(stored)))

	w.table.WriteString(strings.ReplaceAll(name, "/", "\\"))
	w.table.WriteByte(0)
	var entry [entrySize]byte
	binary.LittleEndian.PutUint32(entry[0:], uint32(len(stored)))
	binary.LittleEndian.PutUint32(entry[4:], aligned)
	binary.LittleEndian.PutUint32(entry[8:], uint32(len(data)))
	entry[12] = flagFile
	binary.LittleEndian.PutUint32(entry[13:], offset)
	w.table.Write(entry[:])

	w.count++
	return nil
}

// Close writes the header, entry data and compressed file table.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	var compressedTable bytes.Buffer
	zw := zlib.NewWriter(&compressedTable)
	if _, err := zw.Write(w.table.Bytes()); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}

	header := make([]byte, headerSize)
	copy(header, grfMagic)
	binary.LittleEndian.PutUint32(header[30:], uint32(w.body.Len()))
	binary.LittleEndian.PutUint32(header[34:], 0)
	binary.LittleEndian.PutUint32(header[38:], w.count+7)
	binary.LittleEndian.PutUint32(header[42:], grfVersion)

	var sizes [8]byte
	binary.LittleEndian.PutUint32(sizes[0:], uint32(compressedTable.Len()))
	binary.LittleEndian.PutUint32(sizes[4:], uint32(w.table.Len()))

	for _, part := range [][]byte{header, w.body.Bytes(), sizes[:], compressedTable.Bytes()} {
		if _, err := w.w.Write(part); err != nil {
			return fmt.Errorf("grf: writing archive: %w", err)
		}
	}
	return nil
}
