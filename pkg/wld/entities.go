package wld

import (
	"fmt"
	"sort"

	"github.com/Faultbox/terrafirma/pkg/encoding"
)

// NPCInfo is registry data about an NPC type.
type NPCInfo struct {
	ID    int16
	Title string
	Head  uint16
}

// Registry resolves ids stored in the world to names and colors.
type Registry interface {
	Palette
	ItemName(id int32) string
	PrefixName(id uint8) string
	NPCByID(id int32) (NPCInfo, bool)
	NPCByName(name string) (NPCInfo, bool)
}

// ChestItem is a non-empty chest slot.
type ChestItem struct {
	Slot     int
	Stack    int16
	ID       int32
	Name     string
	PrefixID uint8
	Prefix   string
}

// Label returns the item name, or "Item #<id>" when the registry has none.
func (it ChestItem) Label() string {
	if it.Name != "" {
		return it.Name
	}
	return fmt.Sprintf("Item #%d", it.ID)
}

// Chest is a placed container. Index is its position in the chest section.
type Chest struct {
	Index    int
	X, Y     int32
	Name     string
	Capacity int
	Items    []ChestItem
}

// Label returns the chest name, or "Chest #<index>" for unnamed chests.
func (c *Chest) Label() string {
	if c.Name != "" {
		return c.Name
	}
	return fmt.Sprintf("Chest #%d", c.Index)
}

// Sign is a placed sign or tombstone.
type Sign struct {
	X, Y int32
	Text string
}

// NPC is a town NPC or, when Pet is set, a town pet.
type NPC struct {
	Title           string
	Name            string
	X, Y            float32
	Homeless        bool
	HomelessDespawn bool
	HomeX, HomeY    int32
	TownVariation   int32
	Sprite          int32
	Head            uint16
	Pet             bool
	Shimmered       bool
}

// Entity is the common part of placed tile entities.
type Entity struct {
	ID   int32
	X, Y int16
}

// TrainingDummy is a target dummy.
type TrainingDummy struct {
	Entity
	NPC int16
}

// ItemFrame displays one item.
type ItemFrame struct {
	Entity
	Item   int16
	Prefix uint8
	Stack  int16
}

// LogicSensor is a wiring sensor.
type LogicSensor struct {
	Entity
	Kind int8
	On   bool
}

// DisplayDoll is a mannequin. Slots without an item hold 0.
type DisplayDoll struct {
	Entity
	Armor [8]uint16
	Dyes  [8]uint16
}

// WeaponsRack displays one weapon.
type WeaponsRack struct {
	Entity
	Item uint16
}

// HatRack holds up to two hats and their dyes.
type HatRack struct {
	Entity
	Hats [2]uint16
	Dyes [2]uint16
}

// FoodPlatter displays one food item.
type FoodPlatter struct {
	Entity
	Item uint16
}

// Entities groups the placed tile entities of a world.
type Entities struct {
	Dummies      []TrainingDummy
	ItemFrames   []ItemFrame
	LogicSensors []LogicSensor
	Dolls        []DisplayDoll
	WeaponsRacks []WeaponsRack
	HatRacks     []HatRack
	FoodPlatters []FoodPlatter
}

// Len returns the total number of entities.
func (e *Entities) Len() int {
	return len(e.Dummies) + len(e.ItemFrames) + len(e.LogicSensors) + len(e.Dolls) +
		len(e.WeaponsRacks) + len(e.HatRacks) + len(e.FoodPlatters)
}

// Kill is one bestiary kill tally.
type Kill struct {
	NPC   string
	Count int32
}

// Bestiary holds kill tallies and unlocked creature lists.
type Bestiary struct {
	Kills map[string]int32
	Seen  []string
	Chats []string
}

// KillsSorted returns kill tallies by count, most first, ties by name.
func (b *Bestiary) KillsSorted() []Kill {
	kills := make([]Kill, 0, len(b.Kills))
	for npc, n := range b.Kills {
		kills = append(kills, Kill{NPC: npc, Count: n})
	}
	encoding.SortByName(kills, func(k Kill) string { return k.NPC })
	sort.SliceStable(kills, func(i, j int) bool {
		return kills[i].Count > kills[j].Count
	})
	return kills
}

// fieldReader wraps a Cursor and keeps the first error, so record readers
// can check once per record.
type fieldReader struct {
	c   *Cursor
	err error
}

func (r *fieldReader) u8() uint8 {
	if r.err != nil {
		return 0
	}
	v, err := r.c.U8()
	r.err = err
	return v
}

func (r *fieldReader) bool() bool {
	return r.u8() != 0
}

func (r *fieldReader) u16() uint16 {
	if r.err != nil {
		return 0
	}
	v, err := r.c.U16()
	r.err = err
	return v
}

func (r *fieldReader) i16() int16 {
	return int16(r.u16())
}

func (r *fieldReader) i32() int32 {
	if r.err != nil {
		return 0
	}
	v, err := r.c.I32()
	r.err = err
	return v
}

func (r *fieldReader) f32() float32 {
	if r.err != nil {
		return 0
	}
	v, err := r.c.F32()
	r.err = err
	return v
}

func (r *fieldReader) str() string {
	if r.err != nil {
		return ""
	}
	v, err := r.c.VarString()
	r.err = err
	return v
}

// count reads an i32 element count and rejects negative values.
func (r *fieldReader) count() int {
	n := r.i32()
	if r.err == nil && n < 0 {
		r.err = fmt.Errorf("%w: negative count %d", ErrCorrupt, n)
	}
	return int(n)
}

func decodeChests(c *Cursor, version int, reg Registry) ([]Chest, error) {
	r := &fieldReader{c: c}
	n := int(r.u16())
	perChest := 0
	if version < 294 {
		perChest = int(r.u16())
	}
	if r.err != nil {
		return nil, r.err
	}

	var chests []Chest
	for i := 0; i < n; i++ {
		chest := Chest{
			Index: i,
			X:     r.i32(),
			Y:     r.i32(),
			Name:  r.str(),
		}
		if version >= 294 {
			perChest = r.count()
		}
		chest.Capacity = perChest
		for slot := 0; slot < perChest && r.err == nil; slot++ {
			stack := r.i16()
			if stack <= 0 {
				continue
			}
			item := ChestItem{Slot: slot, Stack: stack, ID: r.i32(), PrefixID: r.u8()}
			item.Name = reg.ItemName(item.ID)
			item.Prefix = reg.PrefixName(item.PrefixID)
			chest.Items = append(chest.Items, item)
		}
		if r.err != nil {
			return chests, fmt.Errorf("chest %d: %w", i, r.err)
		}
		chests = append(chests, chest)
	}
	return chests, nil
}

func decodeSigns(c *Cursor) ([]Sign, error) {
	r := &fieldReader{c: c}
	n := int(r.u16())
	var signs []Sign
	for i := 0; i < n && r.err == nil; i++ {
		sign := Sign{Text: r.str()}
		sign.X = r.i32()
		sign.Y = r.i32()
		if r.err == nil {
			signs = append(signs, sign)
		}
	}
	if r.err != nil {
		return signs, fmt.Errorf("sign %d: %w", len(signs), r.err)
	}
	return signs, nil
}

// readNPCKind reads the sprite id (190+) or the legacy title and resolves the other.
func readNPCKind(r *fieldReader, version int, reg Registry, npc *NPC) {
	if version >= 190 {
		npc.Sprite = r.i32()
		if info, ok := reg.NPCByID(npc.Sprite); ok {
			npc.Title = info.Title
			npc.Head = info.Head
		}
		return
	}
	npc.Title = r.str()
	if info, ok := reg.NPCByName(npc.Title); ok {
		npc.Sprite = int32(info.ID)
		npc.Head = info.Head
	}
}

func decodeNPCs(c *Cursor, version int, reg Registry) ([]NPC, []int32, error) {
	r := &fieldReader{c: c}

	var shimmered []int32
	shimmerSet := make(map[int32]bool)
	if version >= 268 {
		n := r.count()
		for i := 0; i < n && r.err == nil; i++ {
			id := r.i32()
			shimmered = append(shimmered, id)
			shimmerSet[id] = true
		}
	}

	var npcs []NPC
	for r.err == nil && r.bool() {
		var npc NPC
		readNPCKind(r, version, reg, &npc)
		npc.Name = r.str()
		npc.X = r.f32()
		npc.Y = r.f32()
		npc.Homeless = r.bool()
		npc.HomeX = r.i32()
		npc.HomeY = r.i32()
		if version >= 213 && r.bool() {
			npc.TownVariation = r.i32()
		}
		if version >= 315 {
			npc.HomelessDespawn = r.bool()
		}
		npc.Shimmered = shimmerSet[npc.Sprite]
		if r.err == nil {
			npcs = append(npcs, npc)
		}
	}

	if version >= 140 {
		for r.err == nil && r.bool() {
			npc := NPC{Homeless: true, Pet: true}
			readNPCKind(r, version, reg, &npc)
			npc.Head = 0
			npc.X = r.f32()
			npc.Y = r.f32()
			if r.err == nil {
				npcs = append(npcs, npc)
			}
		}
	}

	if r.err != nil {
		return npcs, shimmered, fmt.Errorf("npc %d: %w", len(npcs), r.err)
	}
	return npcs, shimmered, nil
}

// decodeLegacyDummies reads the pre-122 training dummy list.
func decodeLegacyDummies(c *Cursor) ([]TrainingDummy, error) {
	r := &fieldReader{c: c}
	n := r.count()
	var dummies []TrainingDummy
	for i := 0; i < n && r.err == nil; i++ {
		d := TrainingDummy{Entity: Entity{ID: int32(i)}, NPC: -1}
		d.X = r.i16()
		d.Y = r.i16()
		if r.err == nil {
			dummies = append(dummies, d)
		}
	}
	if r.err != nil {
		return dummies, fmt.Errorf("dummy %d: %w", len(dummies), r.err)
	}
	return dummies, nil
}

// Tagged entity kinds.
const (
	entityDummy       = 0
	entityItemFrame   = 1
	entityLogicSensor = 2
	entityDisplayDoll = 3
	entityWeaponsRack = 4
	entityHatRack     = 5
	entityFoodPlatter = 6
)

// UnknownEntityError stops entity decoding at a kind whose layout is not known.
type UnknownEntityError struct {
	Kind  uint8
	Index int
}

func (e *UnknownEntityError) Error() string {
	return fmt.Sprintf("unknown entity kind %d at index %d", e.Kind, e.Index)
}

func (e *UnknownEntityError) Unwrap() error {
	return ErrCorrupt
}

// readSlotItem reads an (item, prefix, stack) triple and keeps the item id.
func readSlotItem(r *fieldReader) uint16 {
	item := r.u16()
	r.u8()
	r.i16()
	return item
}

func decodeEntities(c *Cursor) (Entities, error) {
	r := &fieldReader{c: c}
	var ents Entities
	n := r.count()
	for i := 0; i < n && r.err == nil; i++ {
		kind := r.u8()
		base := Entity{ID: r.i32(), X: r.i16(), Y: r.i16()}
		if r.err != nil {
			break
		}
		switch kind {
		case entityDummy:
			d := TrainingDummy{Entity: base, NPC: r.i16()}
			ents.Dummies = append(ents.Dummies, d)
		case entityItemFrame:
			f := ItemFrame{Entity: base, Item: r.i16(), Prefix: r.u8(), Stack: r.i16()}
			ents.ItemFrames = append(ents.ItemFrames, f)
		case entityLogicSensor:
			s := LogicSensor{Entity: base, Kind: int8(r.u8()), On: r.bool()}
			ents.LogicSensors = append(ents.LogicSensors, s)
		case entityDisplayDoll:
			doll := DisplayDoll{Entity: base}
			items, dyes := r.u8(), r.u8()
			for b := 0; b < 8; b++ {
				if items&(1<<b) != 0 {
					doll.Armor[b] = readSlotItem(r)
				}
			}
			for b := 0; b < 8; b++ {
				if dyes&(1<<b) != 0 {
					doll.Dyes[b] = readSlotItem(r)
				}
			}
			ents.Dolls = append(ents.Dolls, doll)
		case entityWeaponsRack:
			ents.WeaponsRacks = append(ents.WeaponsRacks, WeaponsRack{Entity: base, Item: readSlotItem(r)})
		case entityHatRack:
			rack := HatRack{Entity: base}
			present := r.u8()
			for b := 0; b < 2; b++ {
				if present&(1<<b) != 0 {
					rack.Hats[b] = readSlotItem(r)
				}
			}
			for b := 0; b < 2; b++ {
				if present&(1<<(b+2)) != 0 {
					rack.Dyes[b] = readSlotItem(r)
				}
			}
			ents.HatRacks = append(ents.HatRacks, rack)
		case entityFoodPlatter:
			ents.FoodPlatters = append(ents.FoodPlatters, FoodPlatter{Entity: base, Item: readSlotItem(r)})
		default:
			return ents, &UnknownEntityError{Kind: kind, Index: i}
		}
	}
	if r.err != nil {
		return ents, fmt.Errorf("entity %d: %w", ents.Len(), r.err)
	}
	return ents, nil
}

func decodeBestiary(c *Cursor) (Bestiary, error) {
	r := &fieldReader{c: c}
	b := Bestiary{Kills: make(map[string]int32)}

	n := r.count()
	for i := 0; i < n && r.err == nil; i++ {
		npc := r.str()
		b.Kills[npc] = r.i32()
	}
	n = r.count()
	for i := 0; i < n && r.err == nil; i++ {
		b.Seen = append(b.Seen, r.str())
	}
	n = r.count()
	for i := 0; i < n && r.err == nil; i++ {
		b.Chats = append(b.Chats, r.str())
	}
	if r.err != nil {
		return b, fmt.Errorf("bestiary: %w", r.err)
	}
	return b, nil
}
