package formats

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Faultbox/polyweld/pkg/math"
)

// IFS format errors.
var (
	ErrInvalidIFSMagic       = errors.New("invalid IFS magic: expected 'IFS'")
	ErrUnsupportedIFSVersion = errors.New("unsupported IFS version")
	ErrTruncatedIFSData      = errors.New("truncated IFS data")
	ErrInvalidIFSBlock       = errors.New("invalid IFS block header")
)

// IFS is a G3D indexed face set: a named list of vertices and triangles.
//
// Layout (little endian): string "IFS", float32 version (1.0 or 1.1), string
// model name, string "VERTICES", uint32 count, count*(3 float32), string
// "TRIANGLES", uint32 count, count*(3 uint32). Version 1.1 may append a
// "TEXTURECOORD" block, which is skipped. Strings are a uint32 byte length
// (terminating NUL included) followed by the bytes.
type IFS struct {
	Version   float32
	Name      string
	Vertices  [][3]float32
	Triangles [][3]uint32
}

// ParseIFS parses IFS data from a byte slice.
func ParseIFS(data []byte) (*IFS, error) {
	r := newBinReader(data)

	if magic, err := readIFSString(r); err != nil {
		return nil, err
	} else if magic != "IFS" {
		return nil, ErrInvalidIFSMagic
	}

	ifs := &IFS{Version: r.f32()}
	if r.err != nil {
		return nil, ErrTruncatedIFSData
	}
	if ifs.Version != 1.0 && ifs.Version != 1.1 {
		return nil, fmt.Errorf("%w: %g", ErrUnsupportedIFSVersion, ifs.Version)
	}

	name, err := readIFSString(r)
	if err != nil {
		return nil, err
	}
	ifs.Name = name

	if err := expectIFSBlock(r, "VERTICES"); err != nil {
		return nil, err
	}
	count := int(r.u32())
	if r.err != nil || !r.fits(count, 12) {
		return nil, fmt.Errorf("%w: %d vertices", ErrTruncatedIFSData, count)
	}
	ifs.Vertices = make([][3]float32, count)
	for i := range ifs.Vertices {
		ifs.Vertices[i] = r.vec3()
	}

	if err := expectIFSBlock(r, "TRIANGLES"); err != nil {
		return nil, err
	}
	count = int(r.u32())
	if r.err != nil || !r.fits(count, 12) {
		return nil, fmt.Errorf("%w: %d triangles", ErrTruncatedIFSData, count)
	}
	ifs.Triangles = make([][3]uint32, count)
	for i := range ifs.Triangles {
		r.read(&ifs.Triangles[i])
	}
	if r.err != nil {
		return nil, ErrTruncatedIFSData
	}

	return ifs, nil
}

// TriMesh returns the face set as a triangle mesh.
func (ifs *IFS) TriMesh() *TriMesh {
	m := &TriMesh{
		Name:      ifs.Name,
		Positions: make([]math.Vec3, len(ifs.Vertices)),
		Indices:   make([]int, 0, 3*len(ifs.Triangles)),
	}
	for i, v := range ifs.Vertices {
		m.Positions[i] = math.V3(v)
	}
	for _, tri := range ifs.Triangles {
		m.addTriangle(int(tri[0]), int(tri[1]), int(tri[2]))
	}
	return m
}

func readIFSString(r *binReader) (string, error) {
	n := int(r.u32())
	buf := r.raw(n)
	if r.err != nil {
		return "", ErrTruncatedIFSData
	}
	return strings.TrimRight(string(buf), "\x00"), nil
}

func expectIFSBlock(r *binReader, want string) error {
	got, err := readIFSString(r)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: got %q, want %q", ErrInvalidIFSBlock, got, want)
	}
	return nil
}
