// Package wldtest builds synthetic world files for tests of packages that
// consume decoded worlds.
package wldtest

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/terrafirma/pkg/encoding"
	"github.com/Faultbox/terrafirma/pkg/wld"
)

// FrameTableSize covers every tile id a fixture may place.
const FrameTableSize = 700

// Item is a chest slot. Slots are filled in order.
type Item struct {
	ID     int32
	Stack  int16
	Prefix uint8
}

// Chest is a chest to store in the fixture.
type Chest struct {
	X, Y  int32
	Name  string
	Items []Item
}

// Sign is a sign to store in the fixture.
type Sign struct {
	X, Y int32
	Text string
}

// NPC is a town NPC to store in the fixture. Fixtures with NPCs need
// Version 190 or later.
type NPC struct {
	Sprite int32
	Name   string
	X, Y   float32
}

// World describes a synthetic world file. Zero fields take small defaults.
type World struct {
	Version int // 300 when zero
	Name    string
	Width   int // 4 when zero
	Height  int // 4 when zero

	// GroundLevel and RockLevel default to a third and two thirds of Height.
	GroundLevel float64
	RockLevel   float64

	// Tile reports the frameless tile at a cell; ok false leaves it empty.
	Tile func(x, y int) (id uint16, ok bool)

	Chests []Chest
	Signs  []Sign
	NPCs   []NPC
	Kills  map[string]int32
}

type writer struct {
	bytes.Buffer
}

func (w *writer) put(v any) *writer {
	if err := binary.Write(&w.Buffer, binary.LittleEndian, v); err != nil {
		panic(err)
	}
	return w
}

func (w *writer) str(s string) *writer {
	w.Write(encoding.EncodeString(s))
	return w
}

func (w World) withDefaults() World {
	if w.Version == 0 {
		w.Version = 300
	}
	if w.Width == 0 {
		w.Width = 4
	}
	if w.Height == 0 {
		w.Height = 4
	}
	if w.GroundLevel == 0 {
		w.GroundLevel = float64(w.Height) / 3
	}
	if w.RockLevel == 0 {
		w.RockLevel = float64(w.Height) * 2 / 3
	}
	return w
}

// Bytes encodes the world file.
func (w World) Bytes(t testing.TB) []byte {
	t.Helper()
	w = w.withDefaults()
	cat, err := wld.DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog failed: %v", err)
	}

	sections := [][]byte{
		w.header(cat),
		w.tiles(),
		w.chests(),
		w.signs(),
		w.npcs(),
		zeroCount(),
		zeroCount(),
		zeroCount(),
		w.bestiary(),
	}

	var out writer
	out.put(uint32(w.Version))
	if w.Version >= 135 {
		out.WriteString("relogic")
		out.put(uint8(2)).put(uint32(0)).put(uint64(0))
	}
	tableAt := out.Len()
	out.put(uint16(len(sections)))
	for range sections {
		out.put(uint32(0))
	}
	out.put(uint16(FrameTableSize))
	out.Write(make([]byte, (FrameTableSize+7)/8))

	data := out.Bytes()
	for i, body := range sections {
		binary.LittleEndian.PutUint32(data[tableAt+2+4*i:], uint32(len(data)))
		data = append(data, body...)
	}
	return data
}

// WriteFile encodes the world into dir and returns its path.
func (w World) WriteFile(t testing.TB, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, w.Bytes(t), 0o644); err != nil {
		t.Fatalf("failed to write world: %v", err)
	}
	return path
}

func (w World) header(cat *wld.Catalog) []byte {
	values := map[string]any{
		"name":        w.Name,
		"tilesWide":   int64(w.Width),
		"tilesHigh":   int64(w.Height),
		"groundLevel": w.GroundLevel,
		"rockLevel":   w.RockLevel,
	}

	var out writer
	for _, f := range cat.Fields() {
		if !f.PresentIn(w.Version) {
			continue
		}
		n, _ := values[f.Name].(int64)
		fl, _ := values[f.Name].(float64)
		switch f.Type {
		case wld.FieldBool, wld.FieldU8:
			out.put(uint8(n))
		case wld.FieldI16:
			out.put(int16(n))
		case wld.FieldI32:
			out.put(int32(n))
		case wld.FieldI64:
			out.put(n)
		case wld.FieldF32:
			out.put(float32(fl))
		case wld.FieldF64:
			out.put(fl)
		case wld.FieldString:
			s, _ := values[f.Name].(string)
			out.str(s)
		default:
			// Length-prefixed arrays read a zero count; fixed ones are zero-filled.
			if f.LengthRef != "" {
				continue
			}
			for i := 0; i < f.Length; i++ {
				switch f.Type {
				case wld.FieldBytes:
					out.put(uint8(0))
				case wld.FieldInt32s:
					out.put(int32(0))
				default:
					out.str("")
				}
			}
		}
	}
	return out.Bytes()
}

// tiles stores every cell without run-length compression.
func (w World) tiles() []byte {
	var out writer
	for x := 0; x < w.Width; x++ {
		for y := 0; y < w.Height; y++ {
			var id uint16
			ok := false
			if w.Tile != nil {
				id, ok = w.Tile(x, y)
			}
			switch {
			case !ok:
				out.put(uint8(0))
			case id > 0xff:
				out.put(uint8(0x22)).put(id)
			default:
				out.put(uint8(0x02)).put(uint8(id))
			}
		}
	}
	return out.Bytes()
}

func (w World) chests() []byte {
	var out writer
	out.put(uint16(len(w.Chests)))
	if w.Version < 294 {
		out.put(uint16(40))
	}
	for _, c := range w.Chests {
		out.put(c.X).put(c.Y).str(c.Name)
		if w.Version >= 294 {
			out.put(int32(40))
		}
		for slot := 0; slot < 40; slot++ {
			if slot >= len(c.Items) {
				out.put(int16(0))
				continue
			}
			it := c.Items[slot]
			out.put(it.Stack).put(it.ID).put(it.Prefix)
		}
	}
	return out.Bytes()
}

func (w World) signs() []byte {
	var out writer
	out.put(uint16(len(w.Signs)))
	for _, s := range w.Signs {
		out.str(s.Text).put(s.X).put(s.Y)
	}
	return out.Bytes()
}

func (w World) npcs() []byte {
	var out writer
	if w.Version >= 268 {
		out.put(int32(0))
	}
	for _, n := range w.NPCs {
		out.put(uint8(1)).put(n.Sprite).str(n.Name).put(n.X).put(n.Y)
		out.put(uint8(1)).put(int32(0)).put(int32(0))
		if w.Version >= 213 {
			out.put(uint8(0))
		}
		if w.Version >= 315 {
			out.put(uint8(0))
		}
	}
	out.put(uint8(0))
	out.put(uint8(0))
	return out.Bytes()
}

func (w World) bestiary() []byte {
	var out writer
	names := make([]string, 0, len(w.Kills))
	for name := range w.Kills {
		names = append(names, name)
	}
	encoding.SortNames(names)
	out.put(int32(len(names)))
	for _, name := range names {
		out.str(name).put(w.Kills[name])
	}
	out.put(int32(0)).put(int32(0))
	return out.Bytes()
}

func zeroCount() []byte {
	return []byte{0, 0, 0, 0}
}
