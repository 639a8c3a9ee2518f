package formats

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	stdmath "math"
	"strconv"
	"strings"

	"github.com/Faultbox/polyweld/pkg/math"
)

// STL format errors.
var (
	ErrTruncatedSTLData = errors.New("truncated STL data")
	ErrInvalidSTL       = errors.New("invalid STL data")
)

const (
	stlHeaderSize   = 80
	stlTriangleSize = 50 // normal + 3 corners (12 float32) + attribute word
)

// ParseSTL reads binary or ASCII STL. STL stores each triangle with its own
// three corners, so the result has 3 positions per triangle and needs welding
// before adjacency can be built.
//
// Data is treated as binary when its size matches the triangle count in the
// binary header; some binary exporters also start the header with "solid".
func ParseSTL(data []byte) (*TriMesh, error) {
	if len(data) >= stlHeaderSize+4 {
		n := int(binary.LittleEndian.Uint32(data[stlHeaderSize:]))
		if n <= (len(data)-stlHeaderSize-4)/stlTriangleSize && len(data) == stlHeaderSize+4+n*stlTriangleSize {
			return parseBinarySTL(data, n), nil
		}
	}
	if bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("solid")) {
		return parseASCIISTL(data)
	}
	return nil, ErrTruncatedSTLData
}

func parseBinarySTL(data []byte, n int) *TriMesh {
	m := &TriMesh{
		Name:      strings.TrimSpace(strings.TrimRight(string(data[:stlHeaderSize]), "\x00")),
		Positions: make([]math.Vec3, 0, 3*n),
		Indices:   make([]int, 0, 3*n),
	}
	for i := 0; i < n; i++ {
		rec := data[stlHeaderSize+4+i*stlTriangleSize:]
		for v := 0; v < 3; v++ {
			var p [3]float32
			for c := range p {
				const start = 3 * 4 // facet normal is recomputed downstream
				p[c] = stdmath.Float32frombits(binary.LittleEndian.Uint32(rec[start+12*v+4*c:]))
			}
			m.Positions = append(m.Positions, math.V3(p))
		}
		base := len(m.Positions) - 3
		m.addTriangle(base, base+1, base+2)
	}
	return m
}

func parseASCIISTL(data []byte) (*TriMesh, error) {
	m := &TriMesh{}
	scanner := bufio.NewScanner(bytes.NewReader(data))

	var loop []int
	inLoop := false
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "solid":
			if m.Name == "" && len(fields) > 1 {
				m.Name = strings.Join(fields[1:], " ")
			}
		case "outer":
			inLoop = true
			loop = loop[:0]
		case "vertex":
			if !inLoop || len(fields) != 4 {
				return nil, fmt.Errorf("%w: line %d: stray vertex", ErrInvalidSTL, line)
			}
			var p [3]float32
			for c := 0; c < 3; c++ {
				f, err := strconv.ParseFloat(fields[1+c], 32)
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidSTL, line, err)
				}
				p[c] = float32(f)
			}
			loop = append(loop, len(m.Positions))
			m.Positions = append(m.Positions, math.V3(p))
		case "endloop":
			if len(loop) < 3 {
				return nil, fmt.Errorf("%w: line %d: facet with %d vertices", ErrInvalidSTL, line, len(loop))
			}
			for i := 1; i+1 < len(loop); i++ {
				m.addTriangle(loop[0], loop[i], loop[i+1])
			}
			inLoop = false
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading STL: %w", err)
	}
	if inLoop {
		return nil, ErrTruncatedSTLData
	}
	return m, nil
}
