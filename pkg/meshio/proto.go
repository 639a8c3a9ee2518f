package meshio

import (
	"errors"
	"fmt"
	stdmath "math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/Faultbox/polyweld/pkg/polymesh"
)

// Protobuf layout of a Document:
//
//	message Vec3 { fixed32 x = 1; fixed32 y = 2; fixed32 z = 3; } // IEEE-754 bits
//	message Face { repeated uint32 index = 1 [packed]; Vec3 normal = 2; }
//	message Edge { repeated uint32 index = 1 [packed]; repeated sint32 face_index = 2 [packed]; Vec3 normal = 3; }
//	message Mesh { repeated Vec3 vertex = 1; repeated Face face = 2; repeated Edge edge = 3; }
const (
	fieldMeshVertex = 1
	fieldMeshFace   = 2
	fieldMeshEdge   = 3

	fieldVecX = 1
	fieldVecY = 2
	fieldVecZ = 3

	fieldFaceIndex  = 1
	fieldFaceNormal = 2

	fieldEdgeIndex     = 1
	fieldEdgeFaceIndex = 2
	fieldEdgeNormal    = 3
)

// ErrInvalidProto is returned for malformed protobuf documents.
var ErrInvalidProto = errors.New("invalid protobuf mesh")

// EncodeProto returns m in protobuf wire format.
func EncodeProto(m *polymesh.Mesh) ([]byte, error) {
	doc, err := NewDocument(m)
	if err != nil {
		return nil, err
	}
	return doc.MarshalProto(), nil
}

// MarshalProto encodes the document in protobuf wire format.
func (d *Document) MarshalProto() []byte {
	var b []byte
	for _, v := range d.VertexArray {
		b = protowire.AppendTag(b, fieldMeshVertex, protowire.BytesType)
		b = protowire.AppendBytes(b, v.marshal())
	}
	for _, f := range d.FaceArray {
		var fb []byte
		fb = appendPackedUint(fb, fieldFaceIndex, f.IndexArray)
		fb = protowire.AppendTag(fb, fieldFaceNormal, protowire.BytesType)
		fb = protowire.AppendBytes(fb, f.Normal.marshal())

		b = protowire.AppendTag(b, fieldMeshFace, protowire.BytesType)
		b = protowire.AppendBytes(b, fb)
	}
	for _, e := range d.EdgeArray {
		var eb []byte
		eb = appendPackedUint(eb, fieldEdgeIndex, e.IndexArray[:])

		var packed []byte
		for _, f := range e.FaceIndexArray {
			packed = protowire.AppendVarint(packed, protowire.EncodeZigZag(int64(f)))
		}
		eb = protowire.AppendTag(eb, fieldEdgeFaceIndex, protowire.BytesType)
		eb = protowire.AppendBytes(eb, packed)

		eb = protowire.AppendTag(eb, fieldEdgeNormal, protowire.BytesType)
		eb = protowire.AppendBytes(eb, e.Normal.marshal())

		b = protowire.AppendTag(b, fieldMeshEdge, protowire.BytesType)
		b = protowire.AppendBytes(b, eb)
	}
	return b
}

func (v Vec3) marshal() []byte {
	var b []byte
	for i, c := range [3]float32{v.X, v.Y, v.Z} {
		b = protowire.AppendTag(b, protowire.Number(fieldVecX+i), protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, stdmath.Float32bits(c))
	}
	return b
}

func appendPackedUint(b []byte, num protowire.Number, values []int) []byte {
	var packed []byte
	for _, v := range values {
		packed = protowire.AppendVarint(packed, uint64(v))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

// DecodeProto parses a document written by EncodeProto. Unknown fields are
// skipped.
func DecodeProto(data []byte) (*Document, error) {
	doc := &Document{
		VertexArray: []Vec3{},
		FaceArray:   []Face{},
		EdgeArray:   []Edge{},
	}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, field []byte) error {
		if typ != protowire.BytesType {
			return nil
		}
		switch num {
		case fieldMeshVertex:
			v, err := unmarshalVec3(field)
			if err != nil {
				return err
			}
			doc.VertexArray = append(doc.VertexArray, v)
		case fieldMeshFace:
			f, err := unmarshalFace(field)
			if err != nil {
				return err
			}
			doc.FaceArray = append(doc.FaceArray, f)
		case fieldMeshEdge:
			e, err := unmarshalEdge(field)
			if err != nil {
				return err
			}
			doc.EdgeArray = append(doc.EdgeArray, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// walkFields calls fn for every top-level field of a message. field holds
// the payload for bytes fields and the raw value bytes otherwise.
func walkFields(data []byte, fn func(num protowire.Number, typ protowire.Type, field []byte) error) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrInvalidProto, protowire.ParseError(n))
		}
		data = data[n:]

		var field []byte
		if typ == protowire.BytesType {
			v, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return fmt.Errorf("%w: field %d: %v", ErrInvalidProto, num, protowire.ParseError(m))
			}
			field, n = v, m
		} else {
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return fmt.Errorf("%w: field %d: %v", ErrInvalidProto, num, protowire.ParseError(n))
			}
			field = data[:n]
		}
		if err := fn(num, typ, field); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

func unmarshalVec3(data []byte) (Vec3, error) {
	var c [3]float32
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, field []byte) error {
		if typ != protowire.Fixed32Type || num < fieldVecX || num > fieldVecZ {
			return nil
		}
		bits, _ := protowire.ConsumeFixed32(field)
		c[num-fieldVecX] = stdmath.Float32frombits(bits)
		return nil
	})
	return Vec3{X: c[0], Y: c[1], Z: c[2]}, err
}

func unmarshalFace(data []byte) (Face, error) {
	var f Face
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, field []byte) error {
		switch {
		case num == fieldFaceIndex && typ == protowire.BytesType:
			values, err := consumePacked(field, false)
			f.IndexArray = append(f.IndexArray, values...)
			return err
		case num == fieldFaceNormal && typ == protowire.BytesType:
			v, err := unmarshalVec3(field)
			f.Normal = v
			return err
		}
		return nil
	})
	return f, err
}

func unmarshalEdge(data []byte) (Edge, error) {
	var e Edge
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, field []byte) error {
		if typ != protowire.BytesType {
			return nil
		}
		switch num {
		case fieldEdgeIndex, fieldEdgeFaceIndex:
			values, err := consumePacked(field, num == fieldEdgeFaceIndex)
			if err != nil {
				return err
			}
			if len(values) != 2 {
				return fmt.Errorf("%w: edge field %d has %d values", ErrInvalidProto, num, len(values))
			}
			if num == fieldEdgeIndex {
				e.IndexArray = [2]int{values[0], values[1]}
			} else {
				e.FaceIndexArray = [2]int{values[0], values[1]}
			}
		case fieldEdgeNormal:
			v, err := unmarshalVec3(field)
			e.Normal = v
			return err
		}
		return nil
	})
	return e, err
}

func consumePacked(data []byte, zigzag bool) ([]int, error) {
	var out []int
	for len(data) > 0 {
		v, n := protowire.ConsumeVarint(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrInvalidProto, protowire.ParseError(n))
		}
		if zigzag {
			out = append(out, int(protowire.DecodeZigZag(v)))
		} else {
			out = append(out, int(v))
		}
		data = data[n:]
	}
	return out, nil
}
