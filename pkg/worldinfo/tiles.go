package worldinfo

import (
	"encoding/json"
	"fmt"

	"go.uber.org/multierr"

	"github.com/Faultbox/terrafirma/pkg/wld"
)

// TileStatues is the statue tile type. Its frames repeat every statueWrap
// pixels vertically for each facing.
const (
	TileStatues = 105
	statueWrap  = 162
)

const defaultFrameSize = 18

// TileFlags are tile traits used by rendering and blending.
type TileFlags uint16

// Tile traits.
const (
	TileSolid       TileFlags = 0x001
	TileTransparent TileFlags = 0x002
	TileDirt        TileFlags = 0x004
	TileStone       TileFlags = 0x008
	TileGrass       TileFlags = 0x010
	TilePile        TileFlags = 0x020
	TileFlip        TileFlags = 0x040
	TileBrick       TileFlags = 0x080
	TileMoss        TileFlags = 0x100
	TileMerge       TileFlags = 0x200
	TileLarge       TileFlags = 0x400
)

// TileInfo describes a tile type or one of its frame variants. Variants hold
// arena indices; a bound of -1 means unconstrained.
type TileInfo struct {
	ID     int16
	Name   string
	Color  uint32
	Light  [3]float64
	Flags  TileFlags
	Width  int
	Height int
	SkipY  int
	TopPad int

	U, V       int
	MinU, MaxU int
	MinV, MaxV int

	Variants []int
}

// Solid reports whether the tile blocks movement.
func (t *TileInfo) Solid() bool { return t.Flags&TileSolid != 0 }

// matches reports whether frame (u, v) satisfies every bound of the variant.
func (t *TileInfo) matches(u, v int) bool {
	return (t.U < 0 || t.U == u) &&
		(t.V < 0 || t.V == v) &&
		(t.MinU < 0 || t.MinU <= u) &&
		(t.MinV < 0 || t.MinV <= v) &&
		(t.MaxU < 0 || t.MaxU > u) &&
		(t.MaxV < 0 || t.MaxV > v)
}

type tileEntry struct {
	ID     int16       `json:"id"`
	Ref    *int32      `json:"ref"`
	Name   string      `json:"name"`
	Color  string      `json:"color"`
	Flags  TileFlags   `json:"flags"`
	R      *float64    `json:"r"`
	G      *float64    `json:"g"`
	B      *float64    `json:"b"`
	W      int         `json:"w"`
	H      int         `json:"h"`
	SkipY  int         `json:"skipy"`
	TopPad *int        `json:"toppad"`
	X      *int        `json:"x"`
	Y      *int        `json:"y"`
	MinX   *int        `json:"minx"`
	MaxX   *int        `json:"maxx"`
	MinY   *int        `json:"miny"`
	MaxY   *int        `json:"maxy"`
	Var    []tileEntry `json:"var"`
}

func (i *Info) parseTiles(data []byte) error {
	var entries []tileEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	var errs error
	for _, e := range entries {
		if _, dup := i.roots[e.ID]; dup {
			errs = multierr.Append(errs, fmt.Errorf("duplicate tile %d", e.ID))
			continue
		}
		root, err := i.addTile(e, -1)
		errs = multierr.Append(errs, err)
		i.roots[e.ID] = root
	}
	return errs
}

// addTile appends e and its variants to the arena. Variants inherit unset
// fields from parent.
func (i *Info) addTile(e tileEntry, parent int) (int, error) {
	t := TileInfo{ID: e.ID, Name: i.refName(e.Ref, e.Name)}
	color, err := parseColor(e.Color)
	if err != nil {
		err = fmt.Errorf("tile %d: %w", e.ID, err)
	}

	if parent < 0 {
		t.Color = color
		t.Flags = e.Flags
		t.Width, t.Height = e.W, e.H
		if t.Width == 0 {
			t.Width = defaultFrameSize
		}
		if t.Height == 0 {
			t.Height = defaultFrameSize
		}
		t.SkipY = e.SkipY
		t.Light = [3]float64{deref(e.R, 0), deref(e.G, 0), deref(e.B, 0)}
		t.TopPad = derefInt(e.TopPad, 0)
	} else {
		p := i.arena[parent]
		t.ID = p.ID
		if t.Name == "" {
			t.Name = p.Name
		}
		t.Color = p.Color
		if e.Color != "" {
			t.Color = color
		}
		t.Flags = p.Flags
		t.Width, t.Height, t.SkipY = p.Width, p.Height, p.SkipY
		t.Light = [3]float64{deref(e.R, p.Light[0]), deref(e.G, p.Light[1]), deref(e.B, p.Light[2])}
		t.TopPad = derefInt(e.TopPad, p.TopPad)

		rowHeight := t.Height + t.SkipY
		t.U = scaled(e.X, t.Width)
		t.V = scaled(e.Y, rowHeight)
		t.MinU = scaled(e.MinX, t.Width)
		t.MaxU = scaled(e.MaxX, t.Width)
		t.MinV = scaled(e.MinY, rowHeight)
		t.MaxV = scaled(e.MaxY, rowHeight)
	}

	idx := len(i.arena)
	i.arena = append(i.arena, t)
	for _, v := range e.Var {
		child, verr := i.addTile(v, idx)
		err = multierr.Append(err, verr)
		i.arena[idx].Variants = append(i.arena[idx].Variants, child)
	}
	return idx, err
}

func deref(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func derefInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

// scaled converts a frame index to pixels; unset bounds are -1.
func scaled(p *int, size int) int {
	if p == nil {
		return -1
	}
	return *p * size
}

// TileByID returns the base entry of a tile type.
func (i *Info) TileByID(id int16) (*TileInfo, bool) {
	idx, ok := i.roots[id]
	if !ok {
		return nil, false
	}
	return &i.arena[idx], true
}

// Find returns the most specific variant of tile type id for frame (u, v).
// The returned entry is shared and must not be modified.
func (i *Info) Find(id int16, u, v int) (*TileInfo, bool) {
	idx, ok := i.roots[id]
	if !ok {
		return nil, false
	}
	return &i.arena[i.find(idx, u, v)], true
}

func (i *Info) find(idx, u, v int) int {
	for _, child := range i.arena[idx].Variants {
		if i.arena[child].matches(u, v) {
			return i.find(child, u, v)
		}
	}
	return idx
}

// Tile returns the entry describing a decoded tile.
func (i *Info) Tile(t *wld.Tile) (*TileInfo, bool) {
	v := int(t.V)
	if t.Type == TileStatues {
		v %= statueWrap
	}
	return i.Find(t.Type, int(t.U), v)
}

// TileColor returns the map color of an active tile, or black when unknown.
func (i *Info) TileColor(t *wld.Tile) uint32 {
	info, ok := i.Tile(t)
	if !ok {
		return 0
	}
	return info.Color
}
