package polymesh

import "github.com/Faultbox/polyweld/pkg/math"

// directedPair is an edge as walked by one face.
type directedPair struct {
	from, to int
}

// FaceNormal returns the unit normal of triangle tri, taken as
// (p1 - p0) x (p2 - p0) in the given winding. Degenerate triangles yield zero.
func FaceNormal(positions []math.Vec3, tri [3]int) math.Vec3 {
	p0 := positions[tri[0]]
	e1 := positions[tri[1]].Sub(p0)
	e2 := positions[tri[2]].Sub(p0)
	return e1.Cross(e2).Normalize()
}

// BuildAdjacency turns a triangle soup into a Mesh with one face per triangle
// and one edge per shared (or open) vertex pair.
//
// A directed side a->b is paired with an earlier, still unpaired side b->a.
// Otherwise it opens a new edge owned by the current face, so a third face on
// the same vertex pair gets an edge of its own.
func BuildAdjacency(soup Soup) (*Mesh, error) {
	if err := soup.Validate(); err != nil {
		return nil, err
	}

	n := soup.TriangleCount()
	m := &Mesh{
		Positions: soup.Positions,
		Faces:     make([]Face, n),
		Edges:     make([]Edge, 0, n*3/2+1),
	}

	for f := 0; f < n; f++ {
		tri := [3]int{soup.Indices[3*f], soup.Indices[3*f+1], soup.Indices[3*f+2]}
		m.Faces[f] = Face{
			Vertices: []int{tri[0], tri[1], tri[2]},
			Normal:   FaceNormal(soup.Positions, tri),
		}
	}

	open := make(map[directedPair]int, n*3/2+1)
	for f := range m.Faces {
		loop := m.Faces[f].Vertices
		for i := range loop {
			a, b := loop[i], loop[(i+1)%len(loop)]

			if e, ok := open[directedPair{b, a}]; ok {
				m.Edges[e].Faces[1] = FaceAt(f)
				delete(open, directedPair{b, a})
				continue
			}

			open[directedPair{a, b}] = len(m.Edges)
			m.Edges = append(m.Edges, Edge{
				Vertices: [2]int{a, b},
				Faces:    [2]FaceRef{FaceAt(f), NoFace},
			})
		}
	}

	for i := range m.Edges {
		m.Edges[i].Normal = m.edgeNormal(&m.Edges[i])
	}
	return m, nil
}

// edgeNormal is the normalized sum of the adjacent face normals, or zero when
// the sum degenerates.
func (m *Mesh) edgeNormal(e *Edge) math.Vec3 {
	var sum math.Vec3
	for _, ref := range e.Faces {
		if f, ok := ref.Get(); ok {
			sum = sum.Add(m.Faces[f].Normal)
		}
	}
	return sum.DirectionOrZero()
}
