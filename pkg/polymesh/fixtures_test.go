package polymesh

import (
	"testing"

	"github.com/Faultbox/polyweld/pkg/math"
)

// unitSquare is two counter-clockwise triangles sharing the 0-2 diagonal.
func unitSquare() Soup {
	return Soup{
		Positions: []math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 0}},
		Indices:   []int{0, 1, 2, 0, 2, 3},
	}
}

// cube is an axis-aligned unit cube, two outward-facing triangles per side.
func cube() Soup {
	return Soup{
		Positions: []math.Vec3{
			{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 0},
			{X: 0, Y: 0, Z: 1}, {X: 1, Y: 0, Z: 1}, {X: 1, Y: 1, Z: 1}, {X: 0, Y: 1, Z: 1},
		},
		Indices: []int{
			0, 3, 2, 0, 2, 1, // z = 0
			4, 5, 6, 4, 6, 7, // z = 1
			0, 1, 5, 0, 5, 4, // y = 0
			3, 7, 6, 3, 6, 2, // y = 1
			0, 4, 7, 0, 7, 3, // x = 0
			1, 2, 6, 1, 6, 5, // x = 1
		},
	}
}

// hinge is two triangles sharing the 0-1 edge at a right angle.
func hinge() Soup {
	return Soup{
		Positions: []math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 0, Y: 0, Z: 1}},
		Indices:   []int{0, 1, 2, 1, 0, 3},
	}
}

// fan is a flat square split into four triangles around a centre vertex.
func fan() Soup {
	return Soup{
		Positions: []math.Vec3{{X: 0.5, Y: 0.5, Z: 0}, {X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 0}},
		Indices:   []int{0, 1, 2, 0, 2, 3, 0, 3, 4, 0, 4, 1},
	}
}

func mustBuild(t *testing.T, soup Soup) *Mesh {
	t.Helper()
	m, err := BuildAdjacency(soup)
	if err != nil {
		t.Fatalf("BuildAdjacency: %v", err)
	}
	return m
}

func mustRemesh(t *testing.T, m *Mesh) Stats {
	t.Helper()
	stats, err := Remesh(m, DefaultCoplanarThreshold)
	if err != nil {
		t.Fatalf("Remesh: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("mesh invalid after remesh: %v", err)
	}
	return stats
}

func samePairs(a, b map[VertexPair]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for p := range a {
		if _, ok := b[p]; !ok {
			return false
		}
	}
	return true
}
