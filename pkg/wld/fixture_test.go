package wld

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/Faultbox/terrafirma/pkg/encoding"
)

// writer builds little-endian test fixtures.
type writer struct {
	bytes.Buffer
}

func (w *writer) put(v any) *writer {
	if err := binary.Write(&w.Buffer, binary.LittleEndian, v); err != nil {
		panic(err)
	}
	return w
}

func (w *writer) u8(v uint8) *writer    { return w.put(v) }
func (w *writer) u16(v uint16) *writer  { return w.put(v) }
func (w *writer) u32(v uint32) *writer  { return w.put(v) }
func (w *writer) i16(v int16) *writer   { return w.put(v) }
func (w *writer) i32(v int32) *writer   { return w.put(v) }
func (w *writer) f32(v float32) *writer { return w.put(v) }
func (w *writer) str(s string) *writer {
	w.Write(encoding.EncodeString(s))
	return w
}

func asInt(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case bool:
		if n {
			return 1
		}
	}
	return 0
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}

// encodeHeader writes the header section for version from values.
// Missing fields are written as zero values.
func encodeHeader(t *testing.T, cat *Catalog, version int, values map[string]any) []byte {
	t.Helper()
	var w writer
	for _, f := range cat.Fields() {
		if !f.PresentIn(version) {
			continue
		}
		v := values[f.Name]
		switch f.Type {
		case FieldBool, FieldU8:
			w.u8(uint8(asInt(v)))
		case FieldI16:
			w.i16(int16(asInt(v)))
		case FieldI32:
			w.i32(int32(asInt(v)))
		case FieldI64:
			w.put(asInt(v))
		case FieldF32:
			w.f32(float32(asFloat(v)))
		case FieldF64:
			w.put(asFloat(v))
		case FieldString:
			s, _ := v.(string)
			w.str(s)
		default:
			n := int64(f.Length)
			if f.LengthRef != "" {
				n = asInt(values[f.LengthRef])
			}
			for i := 0; i < int(n); i++ {
				switch items := v.(type) {
				case []int:
					if f.Type == FieldBytes {
						w.u8(uint8(items[i]))
					} else {
						w.i32(int32(items[i]))
					}
				case []string:
					w.str(items[i])
				default:
					switch f.Type {
					case FieldBytes:
						w.u8(0)
					case FieldInt32s:
						w.i32(0)
					default:
						w.str("")
					}
				}
			}
		}
	}
	return w.Bytes()
}

// worldFixture assembles a world file from section bodies.
type worldFixture struct {
	version  int
	revision uint32
	favorite uint64
	magic    string
	fileType uint8
	frames   []bool
	sections [][]byte
}

func (f worldFixture) bytes() []byte {
	magic, fileType := f.magic, f.fileType
	if magic == "" {
		magic = "relogic"
	}
	if fileType == 0 {
		fileType = worldFileType
	}

	var w writer
	w.u32(uint32(f.version))
	if f.version >= 135 {
		w.WriteString(magic)
		w.u8(fileType).u32(f.revision).put(f.favorite)
	}
	tableAt := w.Len()
	w.u16(uint16(len(f.sections)))
	for range f.sections {
		w.u32(0)
	}
	w.u16(uint16(len(f.frames)))
	var bits uint8
	for i, set := range f.frames {
		if set {
			bits |= 1 << (i % 8)
		}
		if i%8 == 7 || i == len(f.frames)-1 {
			w.u8(bits)
			bits = 0
		}
	}

	out := w.Bytes()
	for i, body := range f.sections {
		binary.LittleEndian.PutUint32(out[tableAt+2+4*i:], uint32(len(out)))
		out = append(out, body...)
	}
	return out
}

// Registry colors used by tests.
const (
	testSky   = 0x84aaf8
	testEarth = 0x583d2e
	testRock  = 0x4a433c
	testHell  = 0x330000
	testWater = 0x0a2cff
	testLava  = 0xfd2003
	testHoney = 0xfe9a00
	testShim  = 0xbe8ae3
)

type testRegistry struct{}

func (testRegistry) TileColor(t *Tile) uint32     { return 0x100000 | uint32(t.Type) }
func (testRegistry) WallColor(wall uint16) uint32 { return 0x200000 | uint32(wall) }

func (testRegistry) GlobalColor(g Global) uint32 {
	return [...]uint32{testSky, testEarth, testRock, testHell, testWater, testLava, testHoney, testShim}[g]
}

func (testRegistry) ItemName(id int32) string {
	return map[int32]string{1: "Iron Pickaxe", 2: "Dirt Block", 22: "Iron Bar", 29: "Life Crystal"}[id]
}

func (testRegistry) PrefixName(id uint8) string {
	return map[uint8]string{81: "Legendary"}[id]
}

var testNPCs = []NPCInfo{
	{ID: 22, Title: "Guide", Head: 1},
	{ID: 17, Title: "Merchant", Head: 2},
	{ID: 637, Title: "Town Cat", Head: 0},
}

func (testRegistry) NPCByID(id int32) (NPCInfo, bool) {
	for _, n := range testNPCs {
		if int32(n.ID) == id {
			return n, true
		}
	}
	return NPCInfo{}, false
}

func (testRegistry) NPCByName(name string) (NPCInfo, bool) {
	for _, n := range testNPCs {
		if n.Title == name {
			return n, true
		}
	}
	return NPCInfo{}, false
}

func testDecoder(t *testing.T) *Decoder {
	t.Helper()
	d, err := NewDecoder(testRegistry{}, DecoderConfig{}, nil)
	if err != nil {
		t.Fatalf("NewDecoder failed: %v", err)
	}
	return d
}

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	cat, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog failed: %v", err)
	}
	return cat
}

// minimalWorld is a version 300 world of 2x2 air cells stored as a single run.
func minimalWorld(t *testing.T) []byte {
	t.Helper()
	header := encodeHeader(t, testCatalog(t), 300, map[string]any{
		"name":        "Tiny",
		"tilesWide":   2,
		"tilesHigh":   2,
		"groundLevel": 10.0,
		"rockLevel":   20.0,
	})
	return worldFixture{
		version:  300,
		frames:   make([]bool, 10),
		sections: [][]byte{header, {0x40, 0x03}},
	}.bytes()
}

func fullHeader(t *testing.T, version int) []byte {
	t.Helper()
	guid := make([]int, 16)
	for i := range guid {
		guid[i] = i + 1
	}
	return encodeHeader(t, testCatalog(t), version, map[string]any{
		"name":        "Fixture",
		"tilesWide":   3,
		"tilesHigh":   2,
		"groundLevel": 1.0,
		"rockLevel":   2.0,
		"guid":        guid,
		"treeX":       []int{10, 20, 30},
		"numTreeTops": 4,
		"treeTops":    []int{0, 1, 2, 3},
		"hardMode":    true,
	})
}

// fullTiles is a 3x2 grid: a run of dirt, a framed tile over water with a
// 16-bit wall below it, and an air run.
func fullTiles() []byte {
	var w writer
	w.u8(0x42).u8(1).u8(1)
	w.u8(0x0e).u8(5).i16(18).i16(36).u8(4).u8(255)
	w.u8(0x05).u8(0x01).u8(0x40).u8(0x2c).u8(0x01)
	w.u8(0x80).u16(1)
	return w.Bytes()
}

func fullChests() []byte {
	var w writer
	w.u16(2)
	w.i32(10).i32(20).str("Loot").i32(3)
	w.i16(1).i32(1).u8(81)
	w.i16(0)
	w.i16(50).i32(2).u8(0)
	w.i32(30).i32(40).str("").i32(1)
	w.i16(5).i32(2).u8(0)
	return w.Bytes()
}

func fullSigns() []byte {
	var w writer
	w.u16(1).str("Hello").i32(5).i32(6)
	return w.Bytes()
}

func fullNPCs() []byte {
	var w writer
	w.i32(1).i32(17)
	w.u8(1).i32(22).str("Andrew").f32(100.5).f32(200.25).u8(0).i32(5).i32(6).u8(1).i32(1)
	w.u8(1).i32(17).str("Bob").f32(1).f32(2).u8(1).i32(0).i32(0).u8(0)
	w.u8(0)
	w.u8(1).i32(637).f32(3).f32(4)
	w.u8(0)
	return w.Bytes()
}

func fullEntities() []byte {
	var w writer
	w.i32(7)
	w.u8(0).i32(0).i16(1).i16(2).i16(-1)
	w.u8(1).i32(1).i16(3).i16(4).i16(29).u8(0).i16(1)
	w.u8(2).i32(2).i16(5).i16(6).u8(1).u8(1)
	w.u8(3).i32(3).i16(7).i16(8).u8(0x05).u8(0x02)
	w.i16(100).u8(0).i16(1)
	w.i16(102).u8(0).i16(1)
	w.i16(1007).u8(0).i16(1)
	w.u8(4).i32(4).i16(9).i16(10).i16(4).u8(0).i16(1)
	w.u8(5).i32(5).i16(11).i16(12).u8(0x05)
	w.i16(200).u8(0).i16(1)
	w.i16(1008).u8(0).i16(1)
	w.u8(6).i32(6).i16(13).i16(14).i16(353).u8(0).i16(1)
	return w.Bytes()
}

func fullBestiary() []byte {
	var w writer
	w.i32(2).str("Zombie").i32(10).str("Blue Slime").i32(10)
	w.i32(1).str("Bunny")
	w.i32(1).str("Guide")
	return w.Bytes()
}

// fullWorld is a version 300 world carrying every section.
func fullWorld(t *testing.T) []byte {
	t.Helper()
	frames := make([]bool, 10)
	frames[5] = true
	var empty writer
	empty.i32(0)
	return worldFixture{
		version:  300,
		revision: 7,
		favorite: 1,
		frames:   frames,
		sections: [][]byte{
			fullHeader(t, 300),
			fullTiles(),
			fullChests(),
			fullSigns(),
			fullNPCs(),
			fullEntities(),
			empty.Bytes(),
			empty.Bytes(),
			fullBestiary(),
		},
	}.bytes()
}
