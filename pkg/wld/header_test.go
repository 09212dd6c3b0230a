package wld

import (
	"errors"
	"testing"
)

func gatedCatalog(t *testing.T) *Catalog {
	t.Helper()
	cat, err := NewCatalog([]FieldDescriptor{
		{Name: "before", Type: FieldI32, MaxVersion: 315},
		{Name: "gated", Type: FieldI32, MinVersion: 200, MaxVersion: 315},
		{Name: "after", Type: FieldI16, MaxVersion: 315},
	})
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}
	return cat
}

func TestDecodeHeader_VersionGating(t *testing.T) {
	cat := gatedCatalog(t)

	t.Run("below min version", func(t *testing.T) {
		var w writer
		w.i32(1).i16(3)
		c := NewCursor(w.Bytes())
		h, err := decodeHeader(c, cat, 150)
		if err != nil {
			t.Fatalf("decodeHeader failed: %v", err)
		}
		if c.Remaining() != 0 {
			t.Errorf("expected all 6 bytes consumed, %d left", c.Remaining())
		}
		if _, err := h.Get("gated"); !errors.Is(err, ErrMissingKey) {
			t.Errorf("expected ErrMissingKey, got %v", err)
		}
		if h.Has("gated") || h.Is("gated") {
			t.Error("expected gated field to be absent")
		}
		if v, _ := h.Int("after"); v != 3 {
			t.Errorf("expected after=3, got %d", v)
		}
	})

	t.Run("at or above min version", func(t *testing.T) {
		var w writer
		w.i32(1).i32(2).i16(3)
		c := NewCursor(w.Bytes())
		h, err := decodeHeader(c, cat, 250)
		if err != nil {
			t.Fatalf("decodeHeader failed: %v", err)
		}
		if c.Remaining() != 0 {
			t.Errorf("expected all 10 bytes consumed, %d left", c.Remaining())
		}
		if v, err := h.Int("gated"); err != nil || v != 2 {
			t.Errorf("expected gated=2, got %d (%v)", v, err)
		}
		if got := h.Keys(); len(got) != 3 || got[1] != "gated" {
			t.Errorf("expected keys in catalog order, got %v", got)
		}
	})
}

func TestDecodeHeader_Arrays(t *testing.T) {
	cat, err := NewCatalog([]FieldDescriptor{
		{Name: "n", Type: FieldU8, MaxVersion: 315},
		{Name: "names", Type: FieldStrings, LengthRef: "n", MaxVersion: 315},
		{Name: "raw", Type: FieldBytes, Length: 3, MaxVersion: 315},
		{Name: "ids", Type: FieldInt32s, Length: 2, MaxVersion: 315},
	})
	if err != nil {
		t.Fatal(err)
	}

	var w writer
	w.u8(2).str("Andrew").str("Bob").u8(7).u8(8).u8(9).i32(-1).i32(40)
	h, err := decodeHeader(NewCursor(w.Bytes()), cat, 300)
	if err != nil {
		t.Fatalf("decodeHeader failed: %v", err)
	}

	names, _ := h.Get("names")
	if names.Kind() != KindList || names.Len() != 2 {
		t.Fatalf("expected list of 2 names, got %v", names)
	}
	if second, _ := names.At(1); second.Str() != "Bob" {
		t.Errorf("expected Bob, got %q", second.Str())
	}
	if _, err := names.At(2); !errors.Is(err, ErrMissingKey) {
		t.Errorf("expected ErrMissingKey for index 2, got %v", err)
	}
	raw, _ := h.Get("raw")
	if raw.Len() != 3 || raw.Items()[2].Int() != 9 {
		t.Errorf("expected raw [7 8 9], got %v", raw)
	}
	ids, _ := h.Get("ids")
	if first, _ := ids.At(0); first.Int() != -1 {
		t.Errorf("expected sign-extended -1, got %d", first.Int())
	}
}

func TestDecodeHeader_ArrayLongerThanData(t *testing.T) {
	cat, err := NewCatalog([]FieldDescriptor{
		{Name: "n", Type: FieldI32, MaxVersion: 315},
		{Name: "ids", Type: FieldInt32s, LengthRef: "n", MaxVersion: 315},
	})
	if err != nil {
		t.Fatal(err)
	}
	var w writer
	w.i32(1 << 30).i32(1)
	if _, err := decodeHeader(NewCursor(w.Bytes()), cat, 300); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("expected ErrOutOfBounds, got %v", err)
	}

	w.Reset()
	w.i32(-1)
	if _, err := decodeHeader(NewCursor(w.Bytes()), cat, 300); !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt for negative length, got %v", err)
	}
}

func TestValue_NumericViews(t *testing.T) {
	f := FloatValue(12.75)
	if f.Int() != 12 || f.Float() != 12.75 {
		t.Errorf("expected 12 / 12.75, got %d / %v", f.Int(), f.Float())
	}
	i := IntValue(-4)
	if i.Float() != -4 || !i.Bool() {
		t.Errorf("expected -4.0 and true, got %v / %v", i.Float(), i.Bool())
	}
	if IntValue(0).Bool() {
		t.Error("expected zero to be false")
	}
	if s := f.String(); s != "12.75" {
		t.Errorf("expected \"12.75\", got %q", s)
	}
	if s := i.String(); s != "-4" {
		t.Errorf("expected \"-4\", got %q", s)
	}
}

func TestHeader_Helpers(t *testing.T) {
	data := fullHeader(t, 300)
	h, err := decodeHeader(NewCursor(data), testCatalog(t), 300)
	if err != nil {
		t.Fatalf("decodeHeader failed: %v", err)
	}

	if name, _ := h.Str("name"); name != "Fixture" {
		t.Errorf("expected name Fixture, got %q", name)
	}
	if !h.Is("hardMode") {
		t.Error("expected hardMode")
	}
	if h.Is("expertMode") {
		t.Error("expertMode is not stored after version 208")
	}

	styles := []struct{ x, want int }{{5, 0}, {10, 0}, {15, 6}, {25, 7}, {100, 8}}
	for _, s := range styles {
		got, err := h.TreeStyle(s.x)
		if err != nil {
			t.Fatalf("TreeStyle(%d) failed: %v", s.x, err)
		}
		if got != s.want {
			t.Errorf("TreeStyle(%d): expected %d, got %d", s.x, s.want, got)
		}
	}

	id, err := h.GUID()
	if err != nil {
		t.Fatalf("GUID failed: %v", err)
	}
	if id.String() != "01020304-0506-0708-090a-0b0c0d0e0f10" {
		t.Errorf("unexpected guid %s", id)
	}
}

func TestHeader_OldVersionLacksNewFields(t *testing.T) {
	data := fullHeader(t, 150)
	h, err := decodeHeader(NewCursor(data), testCatalog(t), 150)
	if err != nil {
		t.Fatalf("decodeHeader failed: %v", err)
	}
	if _, err := h.GUID(); !errors.Is(err, ErrMissingKey) {
		t.Errorf("expected ErrMissingKey for guid, got %v", err)
	}
	if _, err := h.TreeStyle(0); !errors.Is(err, ErrMissingKey) {
		t.Errorf("expected ErrMissingKey for tree tops, got %v", err)
	}
}
