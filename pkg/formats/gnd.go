package formats

import (
	"errors"
	"fmt"

	"github.com/Faultbox/polyweld/pkg/math"
)

// GND format errors.
var (
	ErrInvalidGNDMagic       = errors.New("invalid GND magic: expected 'GRGN'")
	ErrUnsupportedGNDVersion = errors.New("unsupported GND version")
	ErrTruncatedGNDData      = errors.New("truncated GND data")
	ErrInvalidGNDDimensions  = errors.New("invalid GND dimensions")
)

const (
	gndMaxSide     = 1024
	gndSurfaceSize = 4*4 + 4*4 + 2 + 2 + 4 // u, v, texture, lightmap, color
	gndTileSize    = 4*4 + 3*4             // altitudes, surface ids
)

// GNDVersion represents the GND file version.
type GNDVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v GNDVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// GNDTile is one cell of the ground grid.
type GNDTile struct {
	Altitude     [4]float32 // bottom-left, bottom-right, top-left, top-right
	TopSurface   int32      // -1 = none
	FrontSurface int32      // wall towards the tile at y+1, -1 = none
	RightSurface int32      // wall towards the tile at x+1, -1 = none
}

// GND is the terrain of a Ragnarok Online map: a height grid whose cells
// carry a top quad and optional walls to their front and right neighbours.
// Textures and lightmaps are read past.
type GND struct {
	Version GNDVersion
	Width   uint32
	Height  uint32
	Zoom    float32
	Tiles   []GNDTile
}

// ParseGND parses a GND file from raw bytes.
func ParseGND(data []byte) (*GND, error) {
	if len(data) < 6 {
		return nil, ErrTruncatedGNDData
	}
	if string(data[0:4]) != "GRGN" {
		return nil, ErrInvalidGNDMagic
	}

	gnd := &GND{Version: GNDVersion{Major: data[4], Minor: data[5]}}
	if gnd.Version.Major != 1 || gnd.Version.Minor < 5 || gnd.Version.Minor > 9 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGNDVersion, gnd.Version)
	}

	r := newBinReader(data[6:])
	gnd.Width = r.u32()
	gnd.Height = r.u32()
	gnd.Zoom = r.f32()
	if r.err != nil {
		return nil, fmt.Errorf("%w: reading dimensions", ErrTruncatedGNDData)
	}
	if gnd.Width == 0 || gnd.Height == 0 || gnd.Width > gndMaxSide || gnd.Height > gndMaxSide {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidGNDDimensions, gnd.Width, gnd.Height)
	}

	textureCount := int(r.u32())
	nameLen := int(r.u32())
	if r.err != nil || nameLen <= 0 || !r.fits(textureCount, nameLen) {
		return nil, fmt.Errorf("%w: reading textures", ErrTruncatedGNDData)
	}
	r.skip(textureCount * nameLen)

	lightmapCount := int(r.u32())
	pixels := int(r.u32()) * int(r.u32()) * int(r.u32()) // width * height * cells
	if r.err != nil || pixels < 0 || (pixels > 0 && !r.fits(lightmapCount, 4*pixels)) {
		return nil, fmt.Errorf("%w: reading lightmaps", ErrTruncatedGNDData)
	}
	r.skip(lightmapCount * 4 * pixels) // brightness + rgb

	surfaceCount := int(r.u32())
	if r.err != nil || !r.fits(surfaceCount, gndSurfaceSize) {
		return nil, fmt.Errorf("%w: reading surfaces", ErrTruncatedGNDData)
	}
	r.skip(surfaceCount * gndSurfaceSize)

	tileCount := int(gnd.Width) * int(gnd.Height)
	if !r.fits(tileCount, gndTileSize) {
		return nil, fmt.Errorf("%w: reading %d tiles", ErrTruncatedGNDData, tileCount)
	}
	gnd.Tiles = make([]GNDTile, tileCount)
	for i := range gnd.Tiles {
		t := &gnd.Tiles[i]
		r.read(&t.Altitude)
		t.TopSurface = r.i32()
		t.FrontSurface = r.i32()
		t.RightSurface = r.i32()
	}
	if r.err != nil {
		return nil, ErrTruncatedGNDData
	}

	return gnd, nil
}

// Tile returns the tile at the given coordinates, or nil when out of bounds.
func (g *GND) Tile(x, y int) *GNDTile {
	if x < 0 || y < 0 || x >= int(g.Width) || y >= int(g.Height) {
		return nil
	}
	return &g.Tiles[y*int(g.Width)+x]
}

// AltitudeRange returns the minimum and maximum corner altitude.
func (g *GND) AltitudeRange() (lo, hi float32) {
	if len(g.Tiles) == 0 {
		return 0, 0
	}
	lo, hi = g.Tiles[0].Altitude[0], g.Tiles[0].Altitude[0]
	for _, tile := range g.Tiles {
		for _, h := range tile.Altitude {
			lo = min(lo, h)
			hi = max(hi, h)
		}
	}
	return lo, hi
}

// corner returns a tile corner in a Y-up frame; altitudes grow downwards.
func (g *GND) corner(x, y int, alt float32) math.Vec3 {
	return math.Vec3{X: float32(x) * g.Zoom, Y: -alt, Z: float32(y) * g.Zoom}
}

// TriMesh builds the ground surface: two triangles per top surface and two
// per wall. Every quad gets its own corners, so neighbouring tiles only
// share vertices after welding. Walls between equal heights have no area
// and are left out.
//
// Top quads are wound to face up. A wall walks its shared sides opposite to
// the tops it joins, which keeps the surface consistently oriented.
func (g *GND) TriMesh() *TriMesh {
	m := &TriMesh{}
	quad := func(a, b, c, d math.Vec3) {
		base := len(m.Positions)
		m.Positions = append(m.Positions, a, b, c, d)
		m.addTriangle(base, base+1, base+2)
		m.addTriangle(base, base+2, base+3)
	}

	for y := 0; y < int(g.Height); y++ {
		for x := 0; x < int(g.Width); x++ {
			t := g.Tile(x, y)
			bl := g.corner(x, y, t.Altitude[0])
			br := g.corner(x+1, y, t.Altitude[1])
			tl := g.corner(x, y+1, t.Altitude[2])
			tr := g.corner(x+1, y+1, t.Altitude[3])

			if t.TopSurface >= 0 {
				quad(bl, tl, tr, br)
			}
			if n := g.Tile(x, y+1); t.FrontSurface >= 0 && n != nil &&
				(t.Altitude[2] != n.Altitude[0] || t.Altitude[3] != n.Altitude[1]) {
				quad(tr, tl, g.corner(x, y+1, n.Altitude[0]), g.corner(x+1, y+1, n.Altitude[1]))
			}
			if n := g.Tile(x+1, y); t.RightSurface >= 0 && n != nil &&
				(t.Altitude[1] != n.Altitude[0] || t.Altitude[3] != n.Altitude[2]) {
				quad(br, tr, g.corner(x+1, y+1, n.Altitude[2]), g.corner(x+1, y, n.Altitude[0]))
			}
		}
	}
	return m
}
