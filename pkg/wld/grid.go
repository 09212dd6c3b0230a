package wld

import (
	"fmt"
	"image/color"
)

// Global identifies a fixed palette entry.
type Global uint8

// Global palette entries.
const (
	GlobalSky Global = iota
	GlobalEarth
	GlobalRock
	GlobalHell
	GlobalWater
	GlobalLava
	GlobalHoney
	GlobalShimmer
)

// Palette supplies 0xRRGGBB map colors.
type Palette interface {
	TileColor(t *Tile) uint32
	WallColor(wall uint16) uint32
	GlobalColor(g Global) uint32
}

// Depth holds the background band thresholds in tile rows.
type Depth struct {
	Ground int
	Rock   int
	Hell   int
}

// NewDepth derives the band thresholds from header values.
func NewDepth(tilesHigh, groundLevel, rockLevel int) Depth {
	hell := ((tilesHigh - 330) - groundLevel) / 6
	return Depth{
		Ground: groundLevel,
		Rock:   rockLevel,
		Hell:   hell*6 + groundLevel - 5,
	}
}

// Background returns the palette entry for an empty cell at row y.
func (d Depth) Background(y int) Global {
	switch {
	case y < d.Ground:
		return GlobalSky
	case y < d.Rock:
		return GlobalEarth
	case y < d.Hell:
		return GlobalRock
	}
	return GlobalHell
}

// Grid is the decoded tile grid in row-major order, with one RGBA color per cell.
type Grid struct {
	Width  int
	Height int
	Tiles  []Tile
	Colors []byte
}

func newGrid(width, height int) *Grid {
	return &Grid{
		Width:  width,
		Height: height,
		Tiles:  make([]Tile, width*height),
		Colors: make([]byte, width*height*4),
	}
}

// At returns the cell at (x, y), or nil when out of range.
func (g *Grid) At(x, y int) *Tile {
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return nil
	}
	return &g.Tiles[y*g.Width+x]
}

// Color returns the derived map color at (x, y).
func (g *Grid) Color(x, y int) color.RGBA {
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return color.RGBA{}
	}
	p := g.Colors[(y*g.Width+x)*4:]
	return color.RGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
}

// liquidAlpha is the blend weight of each liquid over the cell color.
var liquidAlpha = map[LiquidKind]float64{
	LiquidWater:   0.5,
	LiquidHoney:   0.85,
	LiquidShimmer: 0.85,
	LiquidLava:    0.9,
}

var liquidGlobal = map[LiquidKind]Global{
	LiquidWater:   GlobalWater,
	LiquidHoney:   GlobalHoney,
	LiquidShimmer: GlobalShimmer,
	LiquidLava:    GlobalLava,
}

// MapColor returns the 0xRRGGBB flat color of t at row y.
func MapColor(p Palette, d Depth, t *Tile, y int) uint32 {
	var c uint32
	switch {
	case t.Active():
		c = p.TileColor(t)
	case t.Wall > 0:
		c = p.WallColor(t.Wall)
	default:
		c = p.GlobalColor(d.Background(y))
	}

	kind := t.LiquidKind()
	if kind == LiquidNone {
		return c
	}
	lc := p.GlobalColor(liquidGlobal[kind])
	alpha := liquidAlpha[kind]
	blend := func(shift uint) uint32 {
		base := float64((c>>shift)&0xff) / 255.0
		liquid := float64((lc>>shift)&0xff) / 255.0
		return uint32((liquid*alpha+base*(1-alpha))*255) << shift
	}
	return blend(16) | blend(8) | blend(0)
}

// expandGrid decodes the tile section into g. Cells are stored column by
// column; a record's repeat count copies it into the following cells.
func expandGrid(c *Cursor, frames FrameTable, p Palette, d Depth, g *Grid) error {
	cells := g.Width * g.Height
	for i := 0; i < cells; {
		x, y := i/g.Height, i%g.Height
		off := y*g.Width + x
		rle, err := decodeTile(c, frames, &g.Tiles[off])
		if err != nil {
			return fmt.Errorf("tile %d,%d: %w", x, y, err)
		}

		rgb := MapColor(p, d, &g.Tiles[off], y)
		px := g.Colors[off*4 : off*4+4]
		px[0], px[1], px[2], px[3] = byte(rgb>>16), byte(rgb>>8), byte(rgb), 0xff

		if rle > cells-i-1 {
			return fmt.Errorf("%w: run of %d at tile %d,%d passes the end of the grid", ErrCorrupt, rle, x, y)
		}
		for j := i + 1; j <= i+rle; j++ {
			dst := (j%g.Height)*g.Width + j/g.Height
			g.Tiles[dst] = g.Tiles[off]
			copy(g.Colors[dst*4:dst*4+4], px)
		}
		i += rle + 1
	}
	return nil
}
