package wld

import (
	"errors"
	"image/color"
	"testing"
)

func TestNewDepth(t *testing.T) {
	d := NewDepth(1200, 300, 400)
	// (1200-330-300)/6 = 95 -> 95*6 + 300 - 5
	if d.Hell != 865 {
		t.Errorf("expected hell level 865, got %d", d.Hell)
	}
	tests := []struct {
		y    int
		want Global
	}{
		{0, GlobalSky},
		{299, GlobalSky},
		{300, GlobalEarth},
		{400, GlobalRock},
		{864, GlobalRock},
		{865, GlobalHell},
	}
	for _, tt := range tests {
		if got := d.Background(tt.y); got != tt.want {
			t.Errorf("row %d: expected %d, got %d", tt.y, tt.want, got)
		}
	}
}

func TestMapColor(t *testing.T) {
	p := testRegistry{}
	d := NewDepth(1200, 300, 400)

	air := Tile{Type: TileAir}
	if got := MapColor(p, d, &air, 10); got != testSky {
		t.Errorf("expected sky %#x, got %#x", testSky, got)
	}
	if got := MapColor(p, d, &air, 350); got != testEarth {
		t.Errorf("expected earth %#x, got %#x", testEarth, got)
	}

	wall := Tile{Type: TileAir, Wall: 4}
	if got := MapColor(p, d, &wall, 10); got != 0x200004 {
		t.Errorf("expected wall color, got %#x", got)
	}
	active := Tile{Type: 7, Wall: 4, Flags: FlagActive}
	if got := MapColor(p, d, &active, 10); got != 0x100007 {
		t.Errorf("expected tile color over wall, got %#x", got)
	}

	// Black wall under water: each channel is half the water channel.
	var black blackPalette
	wet := Tile{Type: TileAir, Wall: 1, Liquid: 255}
	if got := MapColor(black, d, &wet, 10); got != 0x7f7f7f {
		t.Errorf("expected 0x7f7f7f, got %#x", got)
	}
	lava := Tile{Type: TileAir, Wall: 1, Liquid: 255, Flags: FlagLava}
	if got := MapColor(black, d, &lava, 10); got != 0xe5e5e5 {
		t.Errorf("expected 0xe5e5e5, got %#x", got)
	}
}

// blackPalette colors walls black and every liquid white.
type blackPalette struct{}

func (blackPalette) TileColor(*Tile) uint32  { return 0 }
func (blackPalette) WallColor(uint16) uint32 { return 0 }

func (blackPalette) GlobalColor(g Global) uint32 {
	if g >= GlobalWater {
		return 0xffffff
	}
	return 0
}

func TestExpandGrid_RunCopiesRecord(t *testing.T) {
	frames := make(FrameTable, 10)
	frames[3] = true
	// One framed tile repeated down the whole 1x5 column.
	data := []byte{0x42, 3, 18, 0, 0, 0, 4}
	g := newGrid(1, 5)
	d := NewDepth(5, 2, 4)
	if err := expandGrid(NewCursor(data), frames, testRegistry{}, d, g); err != nil {
		t.Fatalf("expandGrid failed: %v", err)
	}
	first := *g.At(0, 0)
	for y := 0; y < 5; y++ {
		if *g.At(0, y) != first {
			t.Errorf("row %d: expected copy of first record, got %+v", y, *g.At(0, y))
		}
		if g.Color(0, y) != g.Color(0, 0) {
			t.Errorf("row %d: expected copied color, got %v", y, g.Color(0, y))
		}
	}
	if first.Type != 3 || first.U != 18 {
		t.Errorf("unexpected first record %+v", first)
	}
	if want := (color.RGBA{R: 0x10, G: 0x00, B: 0x03, A: 0xff}); g.Color(0, 4) != want {
		t.Errorf("expected %v, got %v", want, g.Color(0, 4))
	}
}

func TestExpandGrid_RunCrossesColumns(t *testing.T) {
	// 2x2 grid, one air record repeated 3 times.
	g := newGrid(2, 2)
	if err := expandGrid(NewCursor([]byte{0x40, 3}), nil, testRegistry{}, NewDepth(2, 10, 20), g); err != nil {
		t.Fatalf("expandGrid failed: %v", err)
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			if g.At(x, y).Active() {
				t.Errorf("cell %d,%d: expected air", x, y)
			}
			if c := g.Color(x, y); c != (color.RGBA{R: 0x84, G: 0xaa, B: 0xf8, A: 0xff}) {
				t.Errorf("cell %d,%d: expected sky, got %v", x, y, c)
			}
		}
	}
}

func TestExpandGrid_RunPastEnd(t *testing.T) {
	g := newGrid(2, 2)
	err := expandGrid(NewCursor([]byte{0x40, 4}), nil, testRegistry{}, NewDepth(2, 10, 20), g)
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}
}

func TestGrid_OutOfRange(t *testing.T) {
	g := newGrid(2, 3)
	if g.At(2, 0) != nil || g.At(0, 3) != nil || g.At(-1, 0) != nil {
		t.Error("expected nil outside the grid")
	}
	if g.Color(5, 5) != (color.RGBA{}) {
		t.Error("expected zero color outside the grid")
	}
}
