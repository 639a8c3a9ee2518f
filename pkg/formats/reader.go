package formats

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/Faultbox/polyweld/pkg/encoding"
)

// binReader reads little-endian fields and remembers the first error, so a
// parser can read a whole block and check once.
type binReader struct {
	r   *bytes.Reader
	err error
}

func newBinReader(data []byte) *binReader {
	return &binReader{r: bytes.NewReader(data)}
}

func (b *binReader) read(v any) {
	if b.err != nil {
		return
	}
	if err := binary.Read(b.r, binary.LittleEndian, v); err != nil {
		b.err = io.ErrUnexpectedEOF
	}
}

func (b *binReader) u32() uint32 {
	var v uint32
	b.read(&v)
	return v
}

func (b *binReader) i32() int32 {
	var v int32
	b.read(&v)
	return v
}

func (b *binReader) f32() float32 {
	var v float32
	b.read(&v)
	return v
}

func (b *binReader) vec3() [3]float32 {
	var v [3]float32
	b.read(&v)
	return v
}

// raw reads n bytes.
func (b *binReader) raw(n int) []byte {
	if b.err != nil {
		return nil
	}
	if n < 0 || n > b.r.Len() {
		b.err = io.ErrUnexpectedEOF
		return nil
	}
	buf := make([]byte, n)
	_, _ = io.ReadFull(b.r, buf)
	return buf
}

// skip advances n bytes.
func (b *binReader) skip(n int) {
	b.raw(n)
}

// fixedString reads an n-byte NUL-padded EUC-KR string.
func (b *binReader) fixedString(n int) string {
	return encoding.FixedStringToUTF8(b.raw(n))
}

// fits reports whether count records of size bytes each remain.
func (b *binReader) fits(count, size int) bool {
	return count >= 0 && count <= b.r.Len()/size
}

func (b *binReader) remaining() int {
	return b.r.Len()
}
