package wld

import (
	"errors"
	"testing"
)

func TestDecodeChests(t *testing.T) {
	chests, err := decodeChests(NewCursor(fullChests()), 300, testRegistry{})
	if err != nil {
		t.Fatalf("decodeChests failed: %v", err)
	}
	if len(chests) != 2 {
		t.Fatalf("expected 2 chests, got %d", len(chests))
	}

	loot := chests[0]
	if loot.X != 10 || loot.Y != 20 || loot.Name != "Loot" || loot.Capacity != 3 {
		t.Errorf("unexpected chest %+v", loot)
	}
	if len(loot.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(loot.Items))
	}
	pick := loot.Items[0]
	if pick.Name != "Iron Pickaxe" || pick.Prefix != "Legendary" || pick.Stack != 1 || pick.Slot != 0 {
		t.Errorf("unexpected first item %+v", pick)
	}
	dirt := loot.Items[1]
	if dirt.Slot != 2 || dirt.Stack != 50 || dirt.Name != "Dirt Block" {
		t.Errorf("unexpected second item %+v", dirt)
	}
}

func TestDecodeChests_SharedCapacity(t *testing.T) {
	var w writer
	w.u16(1).u16(2)
	w.i32(1).i32(2).str("Old")
	w.i16(3).i32(22).u8(0)
	w.i16(0)

	c := NewCursor(w.Bytes())
	chests, err := decodeChests(c, 200, testRegistry{})
	if err != nil {
		t.Fatalf("decodeChests failed: %v", err)
	}
	if len(chests) != 1 || chests[0].Capacity != 2 {
		t.Fatalf("expected one chest of 2 slots, got %+v", chests)
	}
	if chests[0].Items[0].Name != "Iron Bar" {
		t.Errorf("expected Iron Bar, got %q", chests[0].Items[0].Name)
	}
	if c.Remaining() != 0 {
		t.Errorf("expected section fully consumed, %d left", c.Remaining())
	}
}

func TestDecodeSigns(t *testing.T) {
	signs, err := decodeSigns(NewCursor(fullSigns()))
	if err != nil {
		t.Fatalf("decodeSigns failed: %v", err)
	}
	if len(signs) != 1 || signs[0] != (Sign{X: 5, Y: 6, Text: "Hello"}) {
		t.Errorf("unexpected signs %+v", signs)
	}
}

func TestDecodeNPCs(t *testing.T) {
	npcs, shimmered, err := decodeNPCs(NewCursor(fullNPCs()), 300, testRegistry{})
	if err != nil {
		t.Fatalf("decodeNPCs failed: %v", err)
	}
	if len(shimmered) != 1 || shimmered[0] != 17 {
		t.Errorf("expected shimmered [17], got %v", shimmered)
	}
	if len(npcs) != 3 {
		t.Fatalf("expected 2 town npcs and 1 pet, got %d", len(npcs))
	}

	guide := npcs[0]
	if guide.Title != "Guide" || guide.Name != "Andrew" || guide.Head != 1 {
		t.Errorf("unexpected guide %+v", guide)
	}
	if guide.X != 100.5 || guide.Y != 200.25 || guide.HomeX != 5 || guide.HomeY != 6 {
		t.Errorf("unexpected guide position %+v", guide)
	}
	if guide.TownVariation != 1 || guide.Shimmered {
		t.Errorf("expected variation 1 and not shimmered, got %+v", guide)
	}

	merchant := npcs[1]
	if merchant.Title != "Merchant" || !merchant.Homeless || !merchant.Shimmered {
		t.Errorf("unexpected merchant %+v", merchant)
	}

	cat := npcs[2]
	if !cat.Pet || !cat.Homeless || cat.Title != "Town Cat" || cat.X != 3 || cat.Y != 4 {
		t.Errorf("unexpected pet %+v", cat)
	}
}

func TestDecodeNPCs_LegacyTitles(t *testing.T) {
	var w writer
	w.u8(1).str("Merchant").str("Bob").f32(1).f32(2).u8(0).i32(3).i32(4)
	w.u8(0)

	c := NewCursor(w.Bytes())
	npcs, _, err := decodeNPCs(c, 120, testRegistry{})
	if err != nil {
		t.Fatalf("decodeNPCs failed: %v", err)
	}
	if len(npcs) != 1 || npcs[0].Sprite != 17 || npcs[0].Head != 2 {
		t.Errorf("expected merchant resolved by name, got %+v", npcs)
	}
	if c.Remaining() != 0 {
		t.Errorf("expected no pet list before version 140, %d bytes left", c.Remaining())
	}
}

func TestDecodeNPCs_HomelessDespawn(t *testing.T) {
	var w writer
	w.i32(0)
	w.u8(1).i32(22).str("Andrew").f32(0).f32(0).u8(1).i32(0).i32(0).u8(0).u8(1)
	w.u8(0)
	w.u8(0)

	c := NewCursor(w.Bytes())
	npcs, _, err := decodeNPCs(c, 315, testRegistry{})
	if err != nil {
		t.Fatalf("decodeNPCs failed: %v", err)
	}
	if len(npcs) != 1 || !npcs[0].HomelessDespawn {
		t.Errorf("expected homeless despawn set, got %+v", npcs)
	}
	if c.Remaining() != 0 {
		t.Errorf("expected section fully consumed, %d left", c.Remaining())
	}
}

func TestDecodeEntities(t *testing.T) {
	ents, err := decodeEntities(NewCursor(fullEntities()))
	if err != nil {
		t.Fatalf("decodeEntities failed: %v", err)
	}
	if ents.Len() != 7 {
		t.Fatalf("expected 7 entities, got %d", ents.Len())
	}
	if d := ents.Dummies[0]; d.X != 1 || d.Y != 2 || d.NPC != -1 {
		t.Errorf("unexpected dummy %+v", d)
	}
	if f := ents.ItemFrames[0]; f.Item != 29 || f.Stack != 1 || f.ID != 1 {
		t.Errorf("unexpected item frame %+v", f)
	}
	if s := ents.LogicSensors[0]; s.Kind != 1 || !s.On {
		t.Errorf("unexpected sensor %+v", s)
	}
	doll := ents.Dolls[0]
	if doll.Armor != [8]uint16{100, 0, 102} || doll.Dyes != [8]uint16{0, 1007} {
		t.Errorf("unexpected doll %+v", doll)
	}
	if r := ents.WeaponsRacks[0]; r.Item != 4 || r.X != 9 {
		t.Errorf("unexpected weapons rack %+v", r)
	}
	if h := ents.HatRacks[0]; h.Hats != [2]uint16{200, 0} || h.Dyes != [2]uint16{1008, 0} {
		t.Errorf("unexpected hat rack %+v", h)
	}
	if p := ents.FoodPlatters[0]; p.Item != 353 {
		t.Errorf("unexpected food platter %+v", p)
	}
}

func TestDecodeEntities_UnknownKind(t *testing.T) {
	var w writer
	w.i32(3)
	w.u8(1).i32(0).i16(3).i16(4).i16(29).u8(0).i16(1)
	w.u8(42).i32(1).i16(0).i16(0)

	ents, err := decodeEntities(NewCursor(w.Bytes()))
	var unknown *UnknownEntityError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownEntityError, got %v", err)
	}
	if unknown.Kind != 42 || unknown.Index != 1 {
		t.Errorf("unexpected error %+v", unknown)
	}
	if !errors.Is(err, ErrCorrupt) {
		t.Error("expected unknown kind to unwrap to ErrCorrupt")
	}
	if len(ents.ItemFrames) != 1 {
		t.Errorf("expected entities before the unknown kind kept, got %d", ents.Len())
	}
}

func TestDecodeLegacyDummies(t *testing.T) {
	var w writer
	w.i32(2).i16(1).i16(2).i16(3).i16(4)
	dummies, err := decodeLegacyDummies(NewCursor(w.Bytes()))
	if err != nil {
		t.Fatalf("decodeLegacyDummies failed: %v", err)
	}
	if len(dummies) != 2 || dummies[1].X != 3 || dummies[1].Y != 4 || dummies[1].ID != 1 {
		t.Errorf("unexpected dummies %+v", dummies)
	}
}

func TestDecodeBestiary(t *testing.T) {
	b, err := decodeBestiary(NewCursor(fullBestiary()))
	if err != nil {
		t.Fatalf("decodeBestiary failed: %v", err)
	}
	kills := b.KillsSorted()
	if len(kills) != 2 || kills[0].NPC != "Blue Slime" || kills[1].NPC != "Zombie" {
		t.Errorf("expected ties ordered by name, got %v", kills)
	}
	if len(b.Seen) != 1 || b.Seen[0] != "Bunny" || len(b.Chats) != 1 || b.Chats[0] != "Guide" {
		t.Errorf("unexpected lists %v %v", b.Seen, b.Chats)
	}
}

func TestKillsSorted_ByCount(t *testing.T) {
	b := Bestiary{Kills: map[string]int32{"a": 1, "b": 30, "c": 5}}
	kills := b.KillsSorted()
	if kills[0].NPC != "b" || kills[1].NPC != "c" || kills[2].NPC != "a" {
		t.Errorf("expected descending counts, got %v", kills)
	}
}

func TestDecodeEntities_NegativeCount(t *testing.T) {
	var w writer
	w.i32(-5)
	if _, err := decodeEntities(NewCursor(w.Bytes())); !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}
}
