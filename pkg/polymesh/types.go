// Package polymesh builds face/edge adjacency for indexed triangle meshes and
// merges near-coplanar neighbours into larger polygons.
//
// The pipeline is strictly forward: a Soup (welded positions plus a flat
// triangle index list) goes through BuildAdjacency to produce a Mesh, Remesh
// fuses faces in place, and the final Mesh is handed to a serializer.
// Vertex indices are never renumbered; only the face and edge arrays change.
package polymesh

import (
	"fmt"

	"github.com/Faultbox/polyweld/pkg/math"
)

// FaceRef names the face on one side of an edge. The zero value is NoFace,
// which marks the open side of a boundary edge.
type FaceRef struct {
	index int
	ok    bool
}

// NoFace is the missing neighbour of a boundary edge.
var NoFace = FaceRef{}

// FaceAt returns a reference to face i.
func FaceAt(i int) FaceRef {
	return FaceRef{index: i, ok: true}
}

// Get returns the referenced face index and whether there is one.
func (r FaceRef) Get() (int, bool) {
	return r.index, r.ok
}

// Valid reports whether the reference names a face.
func (r FaceRef) Valid() bool {
	return r.ok
}

// String returns the index or "none".
func (r FaceRef) String() string {
	if !r.ok {
		return "none"
	}
	return fmt.Sprintf("%d", r.index)
}

// Face is a planar polygon: a cyclic loop of vertex indices plus its unit normal.
type Face struct {
	Vertices []int
	Normal   math.Vec3

	// removed is set when the face was absorbed by a neighbour and is waiting
	// for Compact.
	removed bool
}

// Removed reports whether the face was merged away and awaits compaction.
func (f *Face) Removed() bool {
	return f.removed
}

// Edge is an undirected vertex pair with the faces on either side.
//
// Vertices[0] -> Vertices[1] is the direction in which Faces[0] walks the
// edge; Faces[1], when present, walks it the other way.
type Edge struct {
	Vertices [2]int
	Normal   math.Vec3
	Faces    [2]FaceRef

	removed bool
}

// Removed reports whether the edge was merged away and awaits compaction.
func (e *Edge) Removed() bool {
	return e.removed
}

// IsBoundary reports whether the edge borders only one face.
func (e *Edge) IsBoundary() bool {
	return e.Faces[0].Valid() != e.Faces[1].Valid()
}

// Mesh is a polygon mesh with explicit edge adjacency.
type Mesh struct {
	Positions []math.Vec3
	Faces     []Face
	Edges     []Edge
}

// VertexPair is an undirected vertex pair stored smallest index first.
type VertexPair [2]int

// MakePair returns the normalized pair for a and b.
func MakePair(a, b int) VertexPair {
	if b < a {
		a, b = b, a
	}
	return VertexPair{a, b}
}

// BoundaryPairs returns the vertex pairs of every live boundary edge.
func (m *Mesh) BoundaryPairs() map[VertexPair]struct{} {
	pairs := make(map[VertexPair]struct{})
	for i := range m.Edges {
		e := &m.Edges[i]
		if e.removed || !e.IsBoundary() {
			continue
		}
		pairs[MakePair(e.Vertices[0], e.Vertices[1])] = struct{}{}
	}
	return pairs
}

// LiveFaceCount returns the number of faces not marked removed.
func (m *Mesh) LiveFaceCount() int {
	n := 0
	for i := range m.Faces {
		if !m.Faces[i].removed {
			n++
		}
	}
	return n
}

// Soup is the ingestion output: welded positions and a flat triangle index
// list where every three consecutive entries form one triangle.
type Soup struct {
	Positions []math.Vec3
	Indices   []int
}

// TriangleCount returns the number of complete triangles in the index list.
func (s Soup) TriangleCount() int {
	return len(s.Indices) / 3
}

// Validate checks the index list shape and bounds.
func (s Soup) Validate() error {
	if len(s.Indices)%3 != 0 {
		return fmt.Errorf("%w: index count %d is not a multiple of 3", ErrInvalidSoup, len(s.Indices))
	}
	for i, idx := range s.Indices {
		if idx < 0 || idx >= len(s.Positions) {
			return fmt.Errorf("%w: index %d at position %d out of range [0,%d)", ErrInvalidSoup, idx, i, len(s.Positions))
		}
	}
	return nil
}
