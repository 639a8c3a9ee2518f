package polymesh

import (
	"fmt"

	"go.uber.org/multierr"
)

// Validate checks the mesh invariants and returns every violation found,
// combined into one error. Removed faces and edges are ignored except that
// no live edge may reference a removed face.
//
//   - every live face is a loop of at least three distinct, in-range vertices;
//   - every live edge has a face in slot 0 and only in-range, live faces;
//   - each edge's endpoints are consecutive in each adjacent face loop;
//   - each side of each live face is covered by a live edge naming that face.
func (m *Mesh) Validate() error {
	var errs error

	for f := range m.Faces {
		face := &m.Faces[f]
		if face.removed {
			continue
		}
		if len(face.Vertices) < 3 {
			errs = multierr.Append(errs, fmt.Errorf("face %d: %d vertices", f, len(face.Vertices)))
			continue
		}
		seen := make(map[int]struct{}, len(face.Vertices))
		for _, v := range face.Vertices {
			if v < 0 || v >= len(m.Positions) {
				errs = multierr.Append(errs, fmt.Errorf("face %d: vertex %d out of range", f, v))
			}
			if _, dup := seen[v]; dup {
				errs = multierr.Append(errs, fmt.Errorf("face %d: vertex %d repeated", f, v))
			}
			seen[v] = struct{}{}
		}
	}

	type side struct {
		face int
		pair VertexPair
	}
	covered := make(map[side]struct{})

	for e := range m.Edges {
		edge := &m.Edges[e]
		if edge.removed {
			continue
		}
		if !edge.Faces[0].Valid() {
			errs = multierr.Append(errs, fmt.Errorf("edge %d: no face in slot 0", e))
		}
		for _, ref := range edge.Faces {
			f, ok := ref.Get()
			if !ok {
				continue
			}
			if f < 0 || f >= len(m.Faces) {
				errs = multierr.Append(errs, fmt.Errorf("edge %d: face %d out of range", e, f))
				continue
			}
			if m.Faces[f].removed {
				errs = multierr.Append(errs, fmt.Errorf("edge %d: references removed face %d", e, f))
				continue
			}
			if !isSide(m.Faces[f].Vertices, edge.Vertices[0], edge.Vertices[1]) {
				errs = multierr.Append(errs, fmt.Errorf("edge %d: %d-%d is not a side of face %d",
					e, edge.Vertices[0], edge.Vertices[1], f))
				continue
			}
			covered[side{f, MakePair(edge.Vertices[0], edge.Vertices[1])}] = struct{}{}
		}
	}

	for f := range m.Faces {
		face := &m.Faces[f]
		if face.removed || len(face.Vertices) < 3 {
			continue
		}
		for i, v := range face.Vertices {
			next := face.Vertices[(i+1)%len(face.Vertices)]
			if _, ok := covered[side{f, MakePair(v, next)}]; !ok {
				errs = multierr.Append(errs, fmt.Errorf("face %d: side %d-%d has no edge", f, v, next))
			}
		}
	}

	return errs
}

// isSide reports whether u and w are consecutive (in either order) in loop.
func isSide(loop []int, u, w int) bool {
	n := len(loop)
	for i, v := range loop {
		next := loop[(i+1)%n]
		if (v == u && next == w) || (v == w && next == u) {
			return true
		}
	}
	return false
}
