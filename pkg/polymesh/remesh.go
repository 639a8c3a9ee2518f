package polymesh

// DefaultCoplanarThreshold is the normal dot product above which two adjacent
// faces are fused (about 8 degrees apart).
const DefaultCoplanarThreshold float32 = 0.99

// Stats summarizes the work done by MergePass, Remesh or RemeshUntilStable.
type Stats struct {
	Passes int
	// Merged counts fused face pairs; each removes one face and one edge.
	Merged int
	// Rejected counts coplanar pairs left apart because the merged loop would
	// visit a vertex twice (the faces touch along more than the merge edge).
	Rejected int
	// Seams counts edges whose two sides already name the same face.
	Seams int
}

func (s *Stats) add(other Stats) {
	s.Passes += other.Passes
	s.Merged += other.Merged
	s.Rejected += other.Rejected
	s.Seams += other.Seams
}

// Remesh runs one MergePass followed by Compact.
//
// A single scan does not always reach a fixed point: an edge rejected early
// may become mergeable once one of its faces is absorbed later in the scan.
// Callers that want full convergence use RemeshUntilStable.
func Remesh(m *Mesh, threshold float32) (Stats, error) {
	stats, err := MergePass(m, threshold)
	if err != nil {
		return stats, err
	}
	if err := Compact(m); err != nil {
		return stats, err
	}
	return stats, nil
}

// RemeshUntilStable repeats Remesh until a pass merges nothing or maxPasses
// passes have run. maxPasses < 1 is treated as 1.
func RemeshUntilStable(m *Mesh, threshold float32, maxPasses int) (Stats, error) {
	if maxPasses < 1 {
		maxPasses = 1
	}

	var total Stats
	for pass := 0; pass < maxPasses; pass++ {
		stats, err := Remesh(m, threshold)
		total.add(stats)
		if err != nil {
			return total, err
		}
		if stats.Merged == 0 {
			break
		}
	}
	return total, nil
}

// MergePass scans the edge list once, in order, and fuses the two faces of
// every interior edge whose normals have a dot product above threshold.
//
// The face in slot 1 is absorbed into the face in slot 0: its loop is spliced
// into the survivor, it is marked removed, every other edge pointing at it is
// re-pointed at the survivor, and the shared edge is marked removed. Nothing
// is physically deleted; Compact does that afterwards. Boundary edges are
// never candidates.
func MergePass(m *Mesh, threshold float32) (Stats, error) {
	stats := Stats{Passes: 1}
	faceEdges := m.faceEdgeIndex()

	for e := range m.Edges {
		edge := &m.Edges[e]
		if edge.removed {
			continue
		}

		a, okA := edge.Faces[0].Get()
		b, okB := edge.Faces[1].Get()
		if !okA || !okB {
			continue
		}
		if err := m.checkLive(e, a); err != nil {
			return stats, err
		}
		if err := m.checkLive(e, b); err != nil {
			return stats, err
		}
		if a == b {
			stats.Seams++
			continue
		}

		if m.Faces[a].Normal.Dot(m.Faces[b].Normal) <= threshold {
			continue
		}

		merged, err := m.spliceFaces(e, a, b)
		if err != nil {
			return stats, err
		}
		if !merged {
			stats.Rejected++
			continue
		}

		m.Faces[b].removed = true
		edge.removed = true
		for _, other := range faceEdges[b] {
			oe := &m.Edges[other]
			if oe.removed {
				continue
			}
			for slot := range oe.Faces {
				if f, ok := oe.Faces[slot].Get(); ok && f == b {
					oe.Faces[slot] = FaceAt(a)
				}
			}
		}
		faceEdges[a] = append(faceEdges[a], faceEdges[b]...)
		faceEdges[b] = nil

		stats.Merged++
	}
	return stats, nil
}

// spliceFaces inserts the loop of face b into face a around edge e.
// It returns false without touching anything when the result would not be a
// simple loop.
func (m *Mesh) spliceFaces(e, a, b int) (bool, error) {
	edge := &m.Edges[e]
	fa, fb := &m.Faces[a], &m.Faces[b]
	na, nb := len(fa.Vertices), len(fb.Vertices)

	u, w := edge.Vertices[0], edge.Vertices[1]
	iA := indexOf(fa.Vertices, u)
	if iA < 0 {
		return false, inconsistent(e, a, "vertex %d not in face loop", u)
	}
	iB := indexOf(fb.Vertices, u)
	if iB < 0 {
		return false, inconsistent(e, b, "vertex %d not in face loop", u)
	}

	if fa.Vertices[(iA+1)%na] != w {
		// Face a walks the edge w -> u; anchor the splice on w instead.
		u, w = w, u
		iA = indexOf(fa.Vertices, u)
		iB = indexOf(fb.Vertices, u)
		if iA < 0 || iB < 0 || fa.Vertices[(iA+1)%na] != w {
			return false, inconsistent(e, a, "vertices %d and %d are not a side of the face", u, w)
		}
	}
	if fb.Vertices[(iB+nb-1)%nb] != w {
		return false, inconsistent(e, b, "face does not walk %d -> %d opposite to face %d", w, u, a)
	}

	// Face b reads w, u, x1 ... x(nb-2); the x's go between u and w in face a.
	insert := make([]int, 0, nb-2)
	for i := 1; i <= nb-2; i++ {
		v := fb.Vertices[(iB+i)%nb]
		if indexOf(fa.Vertices, v) >= 0 {
			return false, nil
		}
		insert = append(insert, v)
	}

	loop := make([]int, 0, na+len(insert))
	loop = append(loop, fa.Vertices[:iA+1]...)
	loop = append(loop, insert...)
	loop = append(loop, fa.Vertices[iA+1:]...)
	fa.Vertices = loop
	return true, nil
}

// Compact drops removed faces and edges and renumbers the face references of
// the surviving edges. The mesh is left untouched if any surviving edge still
// names a removed face.
func Compact(m *Mesh) error {
	oldToNew := make([]FaceRef, len(m.Faces))
	faces := make([]Face, 0, len(m.Faces))
	for f := range m.Faces {
		if m.Faces[f].removed {
			continue
		}
		oldToNew[f] = FaceAt(len(faces))
		faces = append(faces, m.Faces[f])
	}

	edges := make([]Edge, 0, len(m.Edges))
	for i := range m.Edges {
		edge := m.Edges[i]
		if edge.removed {
			continue
		}
		for slot, ref := range edge.Faces {
			old, ok := ref.Get()
			if !ok {
				continue
			}
			if old < 0 || old >= len(oldToNew) || !oldToNew[old].Valid() {
				return inconsistent(i, old, "surviving edge references a removed face")
			}
			edge.Faces[slot] = oldToNew[old]
		}
		edges = append(edges, edge)
	}

	m.Faces = faces
	m.Edges = edges
	return nil
}

// faceEdgeIndex maps every face to the edges that reference it.
func (m *Mesh) faceEdgeIndex() [][]int {
	index := make([][]int, len(m.Faces))
	for e := range m.Edges {
		if m.Edges[e].removed {
			continue
		}
		for _, ref := range m.Edges[e].Faces {
			if f, ok := ref.Get(); ok && f >= 0 && f < len(index) {
				index[f] = append(index[f], e)
			}
		}
	}
	return index
}

func (m *Mesh) checkLive(e, f int) error {
	if f < 0 || f >= len(m.Faces) {
		return inconsistent(e, f, "face index out of range [0,%d)", len(m.Faces))
	}
	if m.Faces[f].removed {
		return inconsistent(e, f, "edge references a removed face")
	}
	return nil
}

func indexOf(loop []int, v int) int {
	for i, x := range loop {
		if x == v {
			return i
		}
	}
	return -1
}
