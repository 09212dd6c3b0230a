package wld_test

import (
	"bytes"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/Faultbox/terrafirma/pkg/wld"
	"github.com/Faultbox/terrafirma/pkg/wld/wldtest"
)

func newDecoder(t *testing.T, cfg wld.DecoderConfig) *wld.Decoder {
	t.Helper()
	d, err := wld.NewDecoder(nil, cfg, nil)
	if err != nil {
		t.Fatalf("NewDecoder failed: %v", err)
	}
	return d
}

func TestDecode_ConfiguredVersionRange(t *testing.T) {
	raw := wldtest.World{Name: "Tiny"}.Bytes(t)
	d := newDecoder(t, wld.DecoderConfig{MinVersion: 301})
	if _, err := d.Decode(raw, nil); !errors.Is(err, wld.ErrUnsupportedVersion) {
		t.Errorf("expected ErrUnsupportedVersion below configured minimum, got %v", err)
	}

	d = newDecoder(t, wld.DecoderConfig{MaxVersion: 320})
	if f, _ := d.Catalog.Field("name"); f.MaxVersion != 320 {
		t.Errorf("expected catalog extended to 320, got %d", f.MaxVersion)
	}
}

func TestDecodeFile_Compressed(t *testing.T) {
	raw := wldtest.World{Name: "Tiny", Width: 2, Height: 2}.Bytes(t)
	dir := t.TempDir()

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	if _, err := zw.Write(raw); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatal(err)
	}
	zst := enc.EncodeAll(raw, nil)
	enc.Close()

	files := map[string][]byte{
		"plain.wld":      raw,
		"backup.wld.gz":  gz.Bytes(),
		"backup.wld.zst": zst,
	}
	d := newDecoder(t, wld.DecoderConfig{})
	for name, data := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
		w, err := d.DecodeFile(path, nil)
		if err != nil {
			t.Errorf("%s: DecodeFile failed: %v", name, err)
			continue
		}
		if w.Name() != "Tiny" {
			t.Errorf("%s: expected Tiny, got %q", name, w.Name())
		}
	}

	if _, err := d.DecodeFile(filepath.Join(dir, "missing.wld"), nil); !errors.Is(err, wld.ErrOpen) {
		t.Errorf("expected ErrOpen, got %v", err)
	}
}

func TestDecoder_ZeroValue(t *testing.T) {
	var d wld.Decoder
	w, err := d.Decode(wldtest.World{Name: "Tiny"}.Bytes(t), nil)
	if err != nil {
		t.Fatalf("zero Decoder failed: %v", err)
	}
	if c := w.Grid.Color(0, 0); c != (color.RGBA{A: 0xff}) {
		t.Errorf("expected black without a registry, got %v", c)
	}
}

func TestDecode_UnnamedChestItems(t *testing.T) {
	raw := wldtest.World{
		Name: "Stash",
		Chests: []wldtest.Chest{
			{X: 1, Y: 2, Items: []wldtest.Item{{ID: 4242, Stack: 3}}},
			{X: 3, Y: 4, Name: "Ores", Items: []wldtest.Item{{ID: 4242, Stack: 1}}},
		},
	}.Bytes(t)

	w, err := newDecoder(t, wld.DecoderConfig{}).Decode(raw, nil)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	groups := w.ChestsByItem("")
	if len(groups) != 1 || groups[0].Item != "Item #4242" || len(groups[0].Chests) != 2 {
		t.Fatalf("expected one fallback group in 2 chests, got %+v", groups)
	}
	if got := groups[0].Chests[0].Label(); got != "Chest #0" {
		t.Errorf("expected Chest #0, got %q", got)
	}
	if got := groups[0].Chests[1].Label(); got != "Ores" {
		t.Errorf("expected Ores, got %q", got)
	}
}
