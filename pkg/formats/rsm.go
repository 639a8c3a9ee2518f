package formats

import (
	"errors"
	"fmt"

	"github.com/Faultbox/polyweld/pkg/math"
)

// RSM format errors.
var (
	ErrInvalidRSMMagic       = errors.New("invalid RSM magic: expected 'GRSM'")
	ErrUnsupportedRSMVersion = errors.New("unsupported RSM version")
	ErrTruncatedRSMData      = errors.New("truncated RSM data")
	ErrInvalidNodeCount      = errors.New("invalid RSM node count")
)

const (
	rsmNameSize  = 40
	rsmMaxNodes  = 10000
	rsmHeaderLen = 6
)

// RSMVersion represents the RSM file version.
type RSMVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v RSMVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast returns true if version is >= major.minor.
func (v RSMVersion) AtLeast(major, minor uint8) bool {
	return v.Major > major || (v.Major == major && v.Minor >= minor)
}

// RSMFace is a triangle of a node. Only geometry is kept; texture
// coordinate and texture references are read past.
type RSMFace struct {
	VertexIDs [3]uint16
	TwoSide   int32
}

// RSMNode is one mesh in the model hierarchy.
type RSMNode struct {
	Name   string
	Parent string

	Matrix   [9]float32 // column-major 3x3, applied to vertices only
	Offset   [3]float32 // applied to vertices only
	Position [3]float32
	RotAngle float32
	RotAxis  [3]float32
	Scale    [3]float32

	Vertices [][3]float32
	Faces    []RSMFace

	// First rotation and scale keyframes, if any. The rest pose uses
	// frame 0 only, so later keys are skipped.
	RotKey   *math.Quat
	ScaleKey *[3]float32
}

// RSM is the geometry of a Ragnarok Online model (versions 1.1 to 1.5).
type RSM struct {
	Version  RSMVersion
	Textures []string
	RootNode string
	Nodes    []RSMNode
}

// ParseRSM parses RSM data from a byte slice. Every count in the file is
// checked against the bytes that remain, so a truncated or corrupt file
// fails with ErrTruncatedRSMData instead of yielding partial nodes.
func ParseRSM(data []byte) (*RSM, error) {
	if len(data) < rsmHeaderLen {
		return nil, ErrTruncatedRSMData
	}
	if string(data[:4]) != "GRSM" {
		return nil, ErrInvalidRSMMagic
	}

	rsm := &RSM{Version: RSMVersion{Major: data[4], Minor: data[5]}}
	if rsm.Version.Major != 1 || rsm.Version.Minor < 1 || rsm.Version.Minor > 5 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRSMVersion, rsm.Version)
	}

	r := newBinReader(data[rsmHeaderLen:])
	r.skip(4 + 4) // animation length, shading
	if rsm.Version.AtLeast(1, 4) {
		r.skip(1) // alpha
	}
	r.skip(16) // reserved

	textureCount := int(r.i32())
	if r.err != nil || !r.fits(textureCount, rsmNameSize) {
		return nil, ErrTruncatedRSMData
	}
	rsm.Textures = make([]string, textureCount)
	for i := range rsm.Textures {
		rsm.Textures[i] = r.fixedString(rsmNameSize)
	}

	rsm.RootNode = r.fixedString(rsmNameSize)
	nodeCount := int(r.i32())
	if r.err != nil {
		return nil, ErrTruncatedRSMData
	}
	if nodeCount < 0 || nodeCount > rsmMaxNodes {
		return nil, fmt.Errorf("%w: %d", ErrInvalidNodeCount, nodeCount)
	}

	rsm.Nodes = make([]RSMNode, nodeCount)
	for i := range rsm.Nodes {
		if err := parseRSMNode(r, rsm.Version, &rsm.Nodes[i]); err != nil {
			return nil, fmt.Errorf("parsing node %d: %w", i, err)
		}
	}

	// Volume boxes follow; they carry no geometry.
	return rsm, nil
}

func parseRSMNode(r *binReader, version RSMVersion, node *RSMNode) error {
	node.Name = r.fixedString(rsmNameSize)
	node.Parent = r.fixedString(rsmNameSize)

	if err := skipRecords(r, 4); err != nil { // texture ids
		return err
	}

	r.read(&node.Matrix)
	node.Offset = r.vec3()
	node.Position = r.vec3()
	node.RotAngle = r.f32()
	node.RotAxis = r.vec3()
	node.Scale = r.vec3()

	count := int(r.i32())
	if r.err != nil || !r.fits(count, 12) {
		return ErrTruncatedRSMData
	}
	node.Vertices = make([][3]float32, count)
	for i := range node.Vertices {
		node.Vertices[i] = r.vec3()
	}

	texCoordSize := 8
	if version.AtLeast(1, 2) {
		texCoordSize += 4 // vertex color
	}
	if err := skipRecords(r, texCoordSize); err != nil {
		return err
	}

	faceSize := 20
	if version.AtLeast(1, 2) {
		faceSize += 4 // smoothing group
	}
	count = int(r.i32())
	if r.err != nil || !r.fits(count, faceSize) {
		return ErrTruncatedRSMData
	}
	node.Faces = make([]RSMFace, count)
	for i := range node.Faces {
		f := &node.Faces[i]
		r.read(&f.VertexIDs)
		r.skip(3*2 + 2 + 2) // texcoord ids, texture id, padding
		f.TwoSide = r.i32()
		if version.AtLeast(1, 2) {
			r.skip(4)
		}
	}

	if !version.AtLeast(1, 5) {
		if err := skipRecords(r, 16); err != nil { // position keys
			return err
		}
	}

	count = int(r.i32())
	if r.err != nil || !r.fits(count, 20) {
		return ErrTruncatedRSMData
	}
	for i := 0; i < count; i++ {
		r.skip(4) // frame
		var q [4]float32
		r.read(&q)
		if i == 0 {
			node.RotKey = &math.Quat{X: q[0], Y: q[1], Z: q[2], W: q[3]}
		}
	}

	if version.AtLeast(1, 5) {
		count = int(r.i32())
		if r.err != nil || !r.fits(count, 16) {
			return ErrTruncatedRSMData
		}
		for i := 0; i < count; i++ {
			r.skip(4)
			s := r.vec3()
			if i == 0 {
				node.ScaleKey = &s
			}
		}
	}

	if r.err != nil {
		return ErrTruncatedRSMData
	}
	return nil
}

// skipRecords reads a count and skips that many fixed-size records.
func skipRecords(r *binReader, size int) error {
	count := int(r.i32())
	if r.err != nil || !r.fits(count, size) {
		return ErrTruncatedRSMData
	}
	r.skip(count * size)
	return nil
}

// VertexCount returns the number of vertices across all nodes.
func (rsm *RSM) VertexCount() int {
	total := 0
	for _, node := range rsm.Nodes {
		total += len(node.Vertices)
	}
	return total
}

// FaceCount returns the number of faces across all nodes.
func (rsm *RSM) FaceCount() int {
	total := 0
	for _, node := range rsm.Nodes {
		total += len(node.Faces)
	}
	return total
}

// NodeByName returns a node by its name, or nil if not found.
func (rsm *RSM) NodeByName(name string) *RSMNode {
	for i := range rsm.Nodes {
		if rsm.Nodes[i].Name == name {
			return &rsm.Nodes[i]
		}
	}
	return nil
}

// NodeMatrix returns the rest-pose transform applied to a node's vertices:
// the inherited hierarchy, then the node's own offset and 3x3 matrix.
func (rsm *RSM) NodeMatrix(node *RSMNode) math.Mat4 {
	m := rsm.hierarchyMatrix(node, make(map[string]bool))
	m = m.Mul(math.Translate(math.V3(node.Offset)))
	return m.Mul(math.FromMat3x3(node.Matrix))
}

// hierarchyMatrix is what children inherit: parent * position * rotation * scale.
func (rsm *RSM) hierarchyMatrix(node *RSMNode, visited map[string]bool) math.Mat4 {
	if visited[node.Name] {
		return math.Identity()
	}
	visited[node.Name] = true

	local := math.Translate(math.V3(node.Position))
	if node.RotKey != nil {
		local = local.Mul(node.RotKey.ToMat4())
	} else if node.RotAngle != 0 {
		local = local.Mul(math.RotateAxis(math.V3(node.RotAxis), node.RotAngle))
	}
	local = local.Mul(math.Scale(math.V3(node.Scale)))
	if node.ScaleKey != nil {
		local = local.Mul(math.Scale(math.V3(*node.ScaleKey)))
	}

	if node.Parent != "" && node.Parent != node.Name {
		if parent := rsm.NodeByName(node.Parent); parent != nil {
			return rsm.hierarchyMatrix(parent, visited).Mul(local)
		}
	}
	return local
}

// TriMesh flattens every node into one triangle mesh at the rest pose.
// Y is negated into a Y-up frame, and the winding is reversed whenever the
// combined transform mirrors, so faces keep their outward orientation.
// Faces that reference missing vertices are dropped.
func (rsm *RSM) TriMesh() *TriMesh {
	m := &TriMesh{
		Name:      rsm.RootNode,
		Positions: make([]math.Vec3, 0, rsm.VertexCount()),
		Indices:   make([]int, 0, 3*rsm.FaceCount()),
	}
	for i := range rsm.Nodes {
		node := &rsm.Nodes[i]
		mat := rsm.NodeMatrix(node)
		base := len(m.Positions)
		for _, v := range node.Vertices {
			p := mat.TransformPoint(math.V3(v))
			p.Y = -p.Y
			m.Positions = append(m.Positions, p)
		}

		// The Y flip mirrors once; a negative determinant mirrors again.
		reverse := mat.Determinant3() >= 0
		for _, f := range node.Faces {
			a, b, c := int(f.VertexIDs[0]), int(f.VertexIDs[1]), int(f.VertexIDs[2])
			if a >= len(node.Vertices) || b >= len(node.Vertices) || c >= len(node.Vertices) {
				continue
			}
			if reverse {
				b, c = c, b
			}
			m.addTriangle(base+a, base+b, base+c)
		}
	}
	return m
}
