// Package meshio serializes polygon meshes. JSON keeps the vertex_array /
// face_array / edge_array layout read by the dice viewer; the protobuf wire
// form carries the same document in binary.
package meshio

import (
	"fmt"

	"github.com/Faultbox/polyweld/pkg/math"
	"github.com/Faultbox/polyweld/pkg/polymesh"
)

// TidyEpsilon is the largest magnitude that Tidy snaps to zero.
const TidyEpsilon float32 = 7e-7

// NoFace is the face index written for the empty slot of a boundary edge.
const NoFace = -1

// Tidy returns 0 for values within TidyEpsilon of zero, so that rounding
// noise such as -1.2e-8 is written as a plain 0.
func Tidy(x float32) float32 {
	if x >= -TidyEpsilon && x <= TidyEpsilon {
		return 0
	}
	return x
}

// Vec3 is a serialized point or direction.
type Vec3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

func tidyVec(v math.Vec3) Vec3 {
	return Vec3{X: Tidy(v.X), Y: Tidy(v.Y), Z: Tidy(v.Z)}
}

// Face is a serialized polygon.
type Face struct {
	IndexArray []int `json:"index_array"`
	Normal     Vec3  `json:"normal"`
}

// Edge is a serialized edge. FaceIndexArray holds NoFace for a missing side.
type Edge struct {
	IndexArray     [2]int `json:"index_array"`
	FaceIndexArray [2]int `json:"face_index_array"`
	Normal         Vec3   `json:"normal"`
}

// Document is the serialized form of a mesh.
type Document struct {
	VertexArray []Vec3 `json:"vertex_array"`
	FaceArray   []Face `json:"face_array"`
	EdgeArray   []Edge `json:"edge_array"`
}

// NewDocument snapshots a compacted mesh. Meshes still holding merged-away
// faces or edges are rejected, since their indices are not final.
func NewDocument(m *polymesh.Mesh) (*Document, error) {
	doc := &Document{
		VertexArray: make([]Vec3, len(m.Positions)),
		FaceArray:   make([]Face, len(m.Faces)),
		EdgeArray:   make([]Edge, len(m.Edges)),
	}

	for i, p := range m.Positions {
		doc.VertexArray[i] = tidyVec(p)
	}

	for i := range m.Faces {
		f := &m.Faces[i]
		if f.Removed() {
			return nil, fmt.Errorf("face %d is removed: mesh not compacted", i)
		}
		doc.FaceArray[i] = Face{
			IndexArray: append([]int(nil), f.Vertices...),
			Normal:     tidyVec(f.Normal),
		}
	}

	for i := range m.Edges {
		e := &m.Edges[i]
		if e.Removed() {
			return nil, fmt.Errorf("edge %d is removed: mesh not compacted", i)
		}
		out := Edge{
			IndexArray: e.Vertices,
			Normal:     tidyVec(e.Normal),
		}
		for s, ref := range e.Faces {
			out.FaceIndexArray[s] = NoFace
			if f, ok := ref.Get(); ok {
				out.FaceIndexArray[s] = f
			}
		}
		doc.EdgeArray[i] = out
	}

	return doc, nil
}
