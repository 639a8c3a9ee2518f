package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func writeIFSString(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.LittleEndian, uint32(len(s)+1))
	buf.WriteString(s)
	buf.WriteByte(0)
}

func createTestIFS(version float32, name string, vertices [][3]float32, triangles [][3]uint32) []byte {
	buf := new(bytes.Buffer)
	writeIFSString(buf, "IFS")
	binary.Write(buf, binary.LittleEndian, version)
	writeIFSString(buf, name)
	writeIFSString(buf, "VERTICES")
	binary.Write(buf, binary.LittleEndian, uint32(len(vertices)))
	binary.Write(buf, binary.LittleEndian, vertices)
	writeIFSString(buf, "TRIANGLES")
	binary.Write(buf, binary.LittleEndian, uint32(len(triangles)))
	binary.Write(buf, binary.LittleEndian, triangles)
	return buf.Bytes()
}

var squareVertices = [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}
var squareTriangles = [][3]uint32{{0, 1, 2}, {0, 2, 3}}

func TestParseIFS(t *testing.T) {
	data := createTestIFS(1.0, "square", squareVertices, squareTriangles)

	ifs, err := ParseIFS(data)
	if err != nil {
		t.Fatalf("ParseIFS failed: %v", err)
	}
	if ifs.Name != "square" {
		t.Errorf("Name = %q, want square", ifs.Name)
	}
	if len(ifs.Vertices) != 4 || len(ifs.Triangles) != 2 {
		t.Fatalf("got %d vertices, %d triangles; want 4, 2", len(ifs.Vertices), len(ifs.Triangles))
	}
	if ifs.Vertices[2] != [3]float32{1, 1, 0} {
		t.Errorf("Vertices[2] = %v", ifs.Vertices[2])
	}

	m := ifs.TriMesh()
	want := []int{0, 1, 2, 0, 2, 3}
	for i, idx := range want {
		if m.Indices[i] != idx {
			t.Fatalf("Indices = %v, want %v", m.Indices, want)
		}
	}
	if m.Name != "square" || m.TriangleCount() != 2 {
		t.Errorf("TriMesh = %q with %d triangles", m.Name, m.TriangleCount())
	}
}

func TestParseIFS_TrailingTexCoords(t *testing.T) {
	data := createTestIFS(1.1, "square", squareVertices, squareTriangles)
	buf := bytes.NewBuffer(data)
	writeIFSString(buf, "TEXTURECOORD")
	binary.Write(buf, binary.LittleEndian, uint32(0))

	if _, err := ParseIFS(buf.Bytes()); err != nil {
		t.Fatalf("ParseIFS failed: %v", err)
	}
}

func TestParseIFS_Errors(t *testing.T) {
	valid := createTestIFS(1.0, "square", squareVertices, squareTriangles)

	badMagic := new(bytes.Buffer)
	writeIFSString(badMagic, "OFF")

	badVersion := createTestIFS(2.0, "square", squareVertices, squareTriangles)

	badBlock := bytes.Replace(valid, []byte("VERTICES"), []byte("VERTEXES"), 1)

	hugeCount := append([]byte(nil), valid...)
	// Vertex count follows the "VERTICES" block name.
	at := bytes.Index(hugeCount, []byte("VERTICES")) + len("VERTICES") + 1
	binary.LittleEndian.PutUint32(hugeCount[at:], 1<<30)

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty", nil, ErrTruncatedIFSData},
		{"bad magic", badMagic.Bytes(), ErrInvalidIFSMagic},
		{"bad version", badVersion, ErrUnsupportedIFSVersion},
		{"bad block", badBlock, ErrInvalidIFSBlock},
		{"huge vertex count", hugeCount, ErrTruncatedIFSData},
		{"truncated triangles", valid[:len(valid)-5], ErrTruncatedIFSData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseIFS(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}
