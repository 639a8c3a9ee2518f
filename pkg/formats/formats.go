// Package formats reads 3D model files into indexed triangle lists.
//
// Supported inputs: G3D indexed face sets (.ifs), Wavefront OBJ (.obj),
// binary and ASCII STL (.stl), Ragnarok Online models (.rsm) and Ragnarok
// Online map ground (.gnd).
// Readers do not weld; coincident corners may still carry distinct indices.
package formats

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Faultbox/polyweld/pkg/math"
)

// TriMesh is raw model geometry: positions and three indices per triangle.
type TriMesh struct {
	Name      string
	Positions []math.Vec3
	Indices   []int
}

// TriangleCount returns the number of triangles.
func (m *TriMesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// addTriangle appends a triangle referencing existing positions.
func (m *TriMesh) addTriangle(a, b, c int) {
	m.Indices = append(m.Indices, a, b, c)
}

// Kind identifies a model file format.
type Kind string

const (
	KindIFS Kind = "ifs"
	KindOBJ Kind = "obj"
	KindSTL Kind = "stl"
	KindRSM Kind = "rsm"
	KindGND Kind = "gnd"
)

// Kinds lists every supported format.
var Kinds = []Kind{KindIFS, KindOBJ, KindSTL, KindRSM, KindGND}

// KindOf returns the format implied by a file extension.
func KindOf(path string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ifs":
		return KindIFS, nil
	case ".obj":
		return KindOBJ, nil
	case ".stl":
		return KindSTL, nil
	case ".rsm":
		return KindRSM, nil
	case ".gnd":
		return KindGND, nil
	default:
		return "", fmt.Errorf("unsupported model format: %q", filepath.Ext(path))
	}
}

// Parse decodes data of the given kind into a triangle mesh named name.
func Parse(kind Kind, name string, data []byte) (*TriMesh, error) {
	var (
		mesh *TriMesh
		err  error
	)
	switch kind {
	case KindIFS:
		var ifs *IFS
		if ifs, err = ParseIFS(data); err == nil {
			mesh = ifs.TriMesh()
		}
	case KindOBJ:
		mesh, err = ParseOBJ(data)
	case KindSTL:
		mesh, err = ParseSTL(data)
	case KindRSM:
		var rsm *RSM
		if rsm, err = ParseRSM(data); err == nil {
			mesh = rsm.TriMesh()
		}
	case KindGND:
		var gnd *GND
		if gnd, err = ParseGND(data); err == nil {
			mesh = gnd.TriMesh()
		}
	default:
		return nil, fmt.Errorf("unsupported model format: %q", kind)
	}
	if err != nil {
		return nil, err
	}
	if mesh.Name == "" {
		mesh.Name = name
	}
	return mesh, nil
}
