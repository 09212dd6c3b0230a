package wld

import "fmt"

// TileAir is the Type of a cell without an active tile.
const TileAir int16 = -1

// TileFlags is the per-tile attribute bitset.
type TileFlags uint16

// Tile attribute bits.
const (
	FlagActive     TileFlags = 0x0001
	FlagLava       TileFlags = 0x0002
	FlagHoney      TileFlags = 0x0004
	FlagShimmer    TileFlags = 0x0008
	FlagRedWire    TileFlags = 0x0010
	FlagBlueWire   TileFlags = 0x0020
	FlagGreenWire  TileFlags = 0x0040
	FlagYellowWire TileFlags = 0x0080
	FlagActuator   TileFlags = 0x0100
	FlagInactive   TileFlags = 0x0200
	FlagHalfBrick  TileFlags = 0x1000
	FlagSeen       TileFlags = 0x8000
)

// LiquidKind is the kind of liquid in a cell.
type LiquidKind uint8

// Liquid kinds.
const (
	LiquidNone LiquidKind = iota
	LiquidWater
	LiquidLava
	LiquidHoney
	LiquidShimmer
)

// String returns the liquid name.
func (k LiquidKind) String() string {
	switch k {
	case LiquidNone:
		return "None"
	case LiquidWater:
		return "Water"
	case LiquidLava:
		return "Lava"
	case LiquidHoney:
		return "Honey"
	case LiquidShimmer:
		return "Shimmer"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// Tile is one grid cell.
// U/V and WallU/WallV of -1 mean the frame has not been resolved yet.
type Tile struct {
	Type      int16
	U, V      int16
	WallU     int16
	WallV     int16
	Wall      uint16
	Liquid    uint8
	Paint     uint8
	WallPaint uint8
	Slope     uint8
	Flags     TileFlags
}

func (t *Tile) has(f TileFlags) bool { return t.Flags&f != 0 }

// Active reports whether the cell holds a tile.
func (t *Tile) Active() bool { return t.has(FlagActive) }

// Lava reports the lava liquid bit.
func (t *Tile) Lava() bool { return t.has(FlagLava) }

// Honey reports the honey liquid bit.
func (t *Tile) Honey() bool { return t.has(FlagHoney) }

// Shimmer reports the shimmer liquid bit.
func (t *Tile) Shimmer() bool { return t.has(FlagShimmer) }

// HalfBrick reports whether the tile is a half block.
func (t *Tile) HalfBrick() bool { return t.has(FlagHalfBrick) }

// Actuator reports whether an actuator is attached.
func (t *Tile) Actuator() bool { return t.has(FlagActuator) }

// Inactive reports whether the tile is actuated off.
func (t *Tile) Inactive() bool { return t.has(FlagInactive) }

// Seen reports the bestiary-seen bit.
func (t *Tile) Seen() bool { return t.has(FlagSeen) }

// SetSeen sets or clears the bestiary-seen bit.
func (t *Tile) SetSeen(seen bool) {
	if seen {
		t.Flags |= FlagSeen
	} else {
		t.Flags &^= FlagSeen
	}
}

// Wires returns the wire bits of the tile.
func (t *Tile) Wires() TileFlags {
	return t.Flags & (FlagRedWire | FlagBlueWire | FlagGreenWire | FlagYellowWire)
}

// LiquidKind returns the liquid occupying the cell. Shimmer takes precedence.
func (t *Tile) LiquidKind() LiquidKind {
	switch {
	case t.Liquid == 0:
		return LiquidNone
	case t.Shimmer():
		return LiquidShimmer
	case t.Honey():
		return LiquidHoney
	case t.Lava():
		return LiquidLava
	}
	return LiquidWater
}

// FrameTable marks, per tile type id, whether tiles of that type store explicit frame coordinates.
type FrameTable []bool

// Has reports whether type id stores frame coordinates.
func (f FrameTable) Has(id int16) bool {
	return id >= 0 && int(id) < len(f) && f[id]
}

// readFrameTable reads a bit-packed table of count entries. Bits are consumed
// from the least significant bit of each byte.
func readFrameTable(c *Cursor, count int) (FrameTable, error) {
	table := make(FrameTable, count)
	var bits uint8
	for i := 0; i < count; i++ {
		if i%8 == 0 {
			b, err := c.U8()
			if err != nil {
				return nil, err
			}
			bits = b
		}
		table[i] = bits&(1<<(i%8)) != 0
	}
	return table, nil
}

// Flag bytes, each with a continuation bit in bit 0.
type (
	flags1 uint8
	flags2 uint8
	flags3 uint8
)

func (f flags1) hasFlags2() bool { return f&0x01 != 0 }
func (f flags1) active() bool    { return f&0x02 != 0 }
func (f flags1) hasWall() bool   { return f&0x04 != 0 }
func (f flags1) water() bool     { return f&0x08 != 0 }
func (f flags1) lava() bool      { return f&0x10 != 0 }
func (f flags1) tile16() bool    { return f&0x20 != 0 }
func (f flags1) rle() uint8      { return uint8(f) >> 6 }

func (f flags2) hasFlags3() bool { return f&0x01 != 0 }
func (f flags2) redWire() bool   { return f&0x02 != 0 }
func (f flags2) blueWire() bool  { return f&0x04 != 0 }
func (f flags2) greenWire() bool { return f&0x08 != 0 }
func (f flags2) slope() uint8    { return uint8(f) >> 4 }

func (f flags3) hasFlags4() bool  { return f&0x01 != 0 }
func (f flags3) actuator() bool   { return f&0x02 != 0 }
func (f flags3) inactive() bool   { return f&0x04 != 0 }
func (f flags3) paint() bool      { return f&0x08 != 0 }
func (f flags3) wallPaint() bool  { return f&0x10 != 0 }
func (f flags3) yellowWire() bool { return f&0x20 != 0 }
func (f flags3) wall16() bool     { return f&0x40 != 0 }
func (f flags3) shimmer() bool    { return f&0x80 != 0 }

// decodeTile reads one packed tile record into t and returns its repeat count.
func decodeTile(c *Cursor, frames FrameTable, t *Tile) (int, error) {
	*t = Tile{Type: TileAir, U: -1, V: -1, WallU: -1, WallV: -1}

	b, err := c.U8()
	if err != nil {
		return 0, err
	}
	f1 := flags1(b)
	var f2 flags2
	var f3 flags3
	if f1.hasFlags2() {
		if b, err = c.U8(); err != nil {
			return 0, err
		}
		f2 = flags2(b)
	}
	if f2.hasFlags3() {
		if b, err = c.U8(); err != nil {
			return 0, err
		}
		f3 = flags3(b)
	}
	if f3.hasFlags4() {
		// Only light transparency bits live here; the grid keeps none of them.
		if _, err = c.U8(); err != nil {
			return 0, err
		}
	}

	if f1.active() {
		t.Flags |= FlagActive
		lo, err := c.U8()
		if err != nil {
			return 0, err
		}
		id := uint16(lo)
		if f1.tile16() {
			hi, err := c.U8()
			if err != nil {
				return 0, err
			}
			id |= uint16(hi) << 8
		}
		t.Type = int16(id)
		if int(t.Type) < 0 || int(t.Type) >= len(frames) {
			return 0, fmt.Errorf("%w: tile type %d outside frame table of %d", ErrCorrupt, id, len(frames))
		}
		if frames[t.Type] {
			if t.U, err = c.I16(); err != nil {
				return 0, err
			}
			if t.V, err = c.I16(); err != nil {
				return 0, err
			}
		}
		if f3.paint() {
			if t.Paint, err = c.U8(); err != nil {
				return 0, err
			}
		}
	}

	if f1.hasWall() {
		lo, err := c.U8()
		if err != nil {
			return 0, err
		}
		t.Wall = uint16(lo)
		if f3.wallPaint() {
			if t.WallPaint, err = c.U8(); err != nil {
				return 0, err
			}
		}
	}

	if f1.water() || f1.lava() {
		if t.Liquid, err = c.U8(); err != nil {
			return 0, err
		}
		switch {
		case f1.water() && f1.lava():
			t.Flags |= FlagHoney
		case f1.lava():
			t.Flags |= FlagLava
		}
		if f3.shimmer() {
			t.Flags |= FlagShimmer
		}
	}

	if f2.redWire() {
		t.Flags |= FlagRedWire
	}
	if f2.blueWire() {
		t.Flags |= FlagBlueWire
	}
	if f2.greenWire() {
		t.Flags |= FlagGreenWire
	}
	if f3.yellowWire() {
		t.Flags |= FlagYellowWire
	}
	switch s := f2.slope(); {
	case s == 1:
		t.Flags |= FlagHalfBrick
	case s > 1:
		t.Slope = s - 1
	}
	if f3.actuator() {
		t.Flags |= FlagActuator
	}
	if f3.inactive() {
		t.Flags |= FlagInactive
	}

	// The high wall byte follows the liquid byte in the stream.
	if f3.wall16() {
		hi, err := c.U8()
		if err != nil {
			return 0, err
		}
		t.Wall |= uint16(hi) << 8
	}

	switch f1.rle() {
	case 1:
		n, err := c.U8()
		return int(n), err
	case 2:
		n, err := c.U16()
		return int(n), err
	}
	return 0, nil
}
