package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func createBinarySTL(header string, triangles [][3][3]float32) []byte {
	buf := new(bytes.Buffer)
	h := make([]byte, stlHeaderSize)
	copy(h, header)
	buf.Write(h)
	binary.Write(buf, binary.LittleEndian, uint32(len(triangles)))
	for _, tri := range triangles {
		binary.Write(buf, binary.LittleEndian, [3]float32{0, 0, 1})
		binary.Write(buf, binary.LittleEndian, tri)
		binary.Write(buf, binary.LittleEndian, uint16(0))
	}
	return buf.Bytes()
}

func TestParseSTL_Binary(t *testing.T) {
	tris := [][3][3]float32{
		{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}},
		{{0, 0, 0}, {1, 1, 0}, {0, 1, 0}},
	}
	// A binary header may start with "solid" too.
	data := createBinarySTL("solid exported", tris)

	m, err := ParseSTL(data)
	if err != nil {
		t.Fatalf("ParseSTL failed: %v", err)
	}
	if m.Name != "solid exported" {
		t.Errorf("Name = %q", m.Name)
	}
	if m.TriangleCount() != 2 || len(m.Positions) != 6 {
		t.Fatalf("got %d triangles, %d positions; want 2, 6", m.TriangleCount(), len(m.Positions))
	}
	if got := m.Positions[4].Array(); got != [3]float32{1, 1, 0} {
		t.Errorf("Positions[4] = %v", got)
	}
}

func TestParseSTL_ASCII(t *testing.T) {
	src := `solid plate
  facet normal 0 0 1
    outer loop
      vertex 0 0 0
      vertex 1 0 0
      vertex 1 1 0
    endloop
  endfacet
  facet normal 0 0 1
    outer loop
      vertex 0 0 0
      vertex 1 1 0
      vertex 0 1 0
    endloop
  endfacet
endsolid plate
`
	m, err := ParseSTL([]byte(src))
	if err != nil {
		t.Fatalf("ParseSTL failed: %v", err)
	}
	if m.Name != "plate" {
		t.Errorf("Name = %q, want plate", m.Name)
	}
	want := []int{0, 1, 2, 3, 4, 5}
	if len(m.Indices) != len(want) {
		t.Fatalf("Indices = %v, want %v", m.Indices, want)
	}
	for i := range want {
		if m.Indices[i] != want[i] {
			t.Fatalf("Indices = %v, want %v", m.Indices, want)
		}
	}
}

func TestParseSTL_Errors(t *testing.T) {
	binaryData := createBinarySTL("bin", [][3][3]float32{{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}})

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty", nil, ErrTruncatedSTLData},
		{"short binary", binaryData[:len(binaryData)-1], ErrTruncatedSTLData},
		{"stray vertex", []byte("solid x\nvertex 0 0 0\n"), ErrInvalidSTL},
		{"two vertex facet", []byte("solid x\nouter loop\nvertex 0 0 0\nvertex 1 0 0\nendloop\n"), ErrInvalidSTL},
		{"unterminated loop", []byte("solid x\nouter loop\nvertex 0 0 0\n"), ErrTruncatedSTLData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSTL(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}
