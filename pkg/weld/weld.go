// Package weld merges coincident vertex positions so that triangles sharing a
// corner also share a vertex index.
package weld

import (
	stdmath "math"

	"github.com/Faultbox/polyweld/pkg/math"
)

// DefaultEpsilon is the distance below which two positions are considered the same point.
const DefaultEpsilon float32 = 1e-5

// Result is a welded position array plus the remapped index list.
type Result struct {
	Positions []math.Vec3
	Indices   []int
	// ToNew maps every input position to its welded index.
	ToNew []int
}

// Merged returns how many input positions were folded into an earlier one.
func (r Result) Merged() int {
	return len(r.ToNew) - len(r.Positions)
}

type cell struct {
	x, y, z int64
}

// Weld folds every position lying within epsilon of an earlier kept position
// into that position. Kept positions retain their first-seen order and are
// never moved. An epsilon <= 0 only merges bit-identical positions.
//
// Positions are bucketed into a grid of epsilon-sized cells and each lookup
// scans the 27 surrounding cells.
func Weld(positions []math.Vec3, indices []int, epsilon float32) Result {
	res := Result{
		Positions: make([]math.Vec3, 0, len(positions)),
		Indices:   make([]int, len(indices)),
		ToNew:     make([]int, len(positions)),
	}

	if epsilon <= 0 {
		exact := make(map[math.Vec3]int, len(positions))
		for i, p := range positions {
			idx, ok := exact[p]
			if !ok {
				idx = len(res.Positions)
				res.Positions = append(res.Positions, p)
				exact[p] = idx
			}
			res.ToNew[i] = idx
		}
	} else {
		grid := make(map[cell][]int, len(positions))
		eps2 := epsilon * epsilon
		inv := 1 / float64(epsilon)

		key := func(p math.Vec3) cell {
			return cell{
				x: int64(stdmath.Floor(float64(p.X) * inv)),
				y: int64(stdmath.Floor(float64(p.Y) * inv)),
				z: int64(stdmath.Floor(float64(p.Z) * inv)),
			}
		}

		for i, p := range positions {
			c := key(p)
			found := -1
		search:
			for dx := int64(-1); dx <= 1; dx++ {
				for dy := int64(-1); dy <= 1; dy++ {
					for dz := int64(-1); dz <= 1; dz++ {
						for _, idx := range grid[cell{c.x + dx, c.y + dy, c.z + dz}] {
							d := res.Positions[idx].Sub(p)
							if d.Dot(d) <= eps2 {
								found = idx
								break search
							}
						}
					}
				}
			}
			if found < 0 {
				found = len(res.Positions)
				res.Positions = append(res.Positions, p)
				grid[c] = append(grid[c], found)
			}
			res.ToNew[i] = found
		}
	}

	for i, idx := range indices {
		res.Indices[i] = res.ToNew[idx]
	}
	return res
}
