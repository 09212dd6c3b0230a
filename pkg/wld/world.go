// Package wld decodes Terraria world (.wld) save files into an in-memory model.
package wld

import (
	"bytes"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/terrafirma/pkg/encoding"
	"github.com/Faultbox/terrafirma/pkg/wld/schema"
)

// DefaultMaxGridCells bounds the tile grid allocation. The largest
// vanilla world is 8400x2400.
const DefaultMaxGridCells = 64 << 20

// worldMagic follows the version number from 135 on.
var worldMagic = []byte("relogic")

const worldFileType = 2

// Section table slots.
const (
	sectionHeader = iota
	sectionTiles
	sectionChests
	sectionSigns
	sectionNPCs
	sectionEntities
	sectionPressurePlates
	sectionTownManager
	sectionBestiary
)

// World is a decoded world save.
type World struct {
	Version  int
	Revision uint32
	Favorite uint64
	Sections []int64
	Frames   FrameTable

	Header *Header
	Depth  Depth
	Grid   *Grid

	Chests        []Chest
	Signs         []Sign
	NPCs          []NPC
	ShimmeredNPCs []int32
	Entities      Entities
	Bestiary      Bestiary

	// Failed is set when decoding stopped early; the rest of the model is partial.
	Failed bool
}

// Width returns the grid width in tiles.
func (w *World) Width() int {
	if w.Grid == nil {
		return 0
	}
	return w.Grid.Width
}

// Height returns the grid height in tiles.
func (w *World) Height() int {
	if w.Grid == nil {
		return 0
	}
	return w.Grid.Height
}

// Name returns the world name, or "" when the header was not decoded.
func (w *World) Name() string {
	if w.Header == nil {
		return ""
	}
	name, _ := w.Header.Str("name")
	return name
}

// ItemChests lists the chests holding one item.
type ItemChests struct {
	Item   string
	Chests []*Chest
}

// ChestsByItem groups chests by the items they hold, sorted by item label.
// Items the registry cannot name are grouped under "Item #<id>". A non-empty
// filter keeps items whose label contains it, ignoring case.
func (w *World) ChestsByItem(filter string) []ItemChests {
	byItem := make(map[string][]*Chest)
	for i := range w.Chests {
		chest := &w.Chests[i]
		seen := make(map[string]bool)
		for _, item := range chest.Items {
			label := item.Label()
			if seen[label] {
				continue
			}
			if filter != "" && !encoding.ContainsFold(label, filter) {
				continue
			}
			seen[label] = true
			byItem[label] = append(byItem[label], chest)
		}
	}

	names := make([]string, 0, len(byItem))
	for name := range byItem {
		names = append(names, name)
	}
	encoding.SortNames(names)

	out := make([]ItemChests, 0, len(names))
	for _, name := range names {
		out = append(out, ItemChests{Item: name, Chests: byItem[name]})
	}
	return out
}

// Decoder turns world file bytes into a World. A Decoder holds no per-load
// state and may be shared between goroutines.
type Decoder struct {
	Catalog      *Catalog
	Registry     Registry
	MinVersion   int
	MaxVersion   int
	MaxGridCells int
	Logger       *zap.Logger
}

// DecoderConfig holds the decoder limits. Zero values select the defaults.
type DecoderConfig struct {
	MinVersion   int
	MaxVersion   int
	MaxGridCells int
}

// NewDecoder builds a decoder over the bundled header catalog. When the
// configured maximum version is newer than the catalog's, open-ended fields
// are extended to it.
func NewDecoder(reg Registry, cfg DecoderConfig, log *zap.Logger) (*Decoder, error) {
	d := &Decoder{
		Registry:     reg,
		MinVersion:   cfg.MinVersion,
		MaxVersion:   cfg.MaxVersion,
		MaxGridCells: cfg.MaxGridCells,
		Logger:       log,
	}
	d.applyDefaults()

	var err error
	if d.MaxVersion > DefaultMaxVersion {
		d.Catalog, err = ParseCatalog(schema.HeaderJSON, d.MaxVersion)
	} else {
		d.Catalog, err = DefaultCatalog()
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Decoder) applyDefaults() {
	if d.MinVersion == 0 {
		d.MinVersion = DefaultMinVersion
	}
	if d.MaxVersion == 0 {
		d.MaxVersion = DefaultMaxVersion
	}
	if d.MaxGridCells == 0 {
		d.MaxGridCells = DefaultMaxGridCells
	}
}

// DecodeFile reads, inflates and decodes a world file.
func (d *Decoder) DecodeFile(path string, progress func(string)) (*World, error) {
	data, err := ReadWorldFile(path)
	if err != nil {
		return &World{Failed: true}, &LoadError{Stage: "opening world", Err: err}
	}
	return d.Decode(data, progress)
}

// Decode decodes a complete world from data. progress, when non-nil, receives
// a status line at each stage. On error the returned World is partial and
// has Failed set.
func (d *Decoder) Decode(data []byte, progress func(string)) (*World, error) {
	l := &load{
		Decoder:  *d,
		c:        NewCursor(data),
		w:        &World{Failed: true},
		progress: progress,
	}
	l.applyDefaults()
	if l.Logger == nil {
		l.Logger = zap.NewNop()
	}
	if l.Registry == nil {
		l.Registry = blankRegistry{}
	}
	if l.Catalog == nil {
		cat, err := DefaultCatalog()
		if err != nil {
			return l.w, &LoadError{Stage: "loading schema", Err: err}
		}
		l.Catalog = cat
	}

	if err := l.run(); err != nil {
		l.Logger.Debug("world load failed", zap.Error(err))
		return l.w, err
	}
	l.w.Failed = false
	l.report("Done")
	l.Logger.Info("world loaded",
		zap.String("name", l.w.Name()),
		zap.Int("version", l.w.Version),
		zap.Int("width", l.w.Width()),
		zap.Int("height", l.w.Height()),
		zap.Int("chests", len(l.w.Chests)),
		zap.Int("signs", len(l.w.Signs)),
		zap.Int("npcs", len(l.w.NPCs)),
		zap.Int("entities", l.w.Entities.Len()),
	)
	return l.w, nil
}

// load is the state of one Decode call.
type load struct {
	Decoder
	c        *Cursor
	w        *World
	progress func(string)
}

func (l *load) report(status string) {
	if l.progress != nil {
		l.progress(status)
	}
}

func (l *load) fail(stage string, err error) error {
	return &LoadError{Stage: stage, Err: err}
}

// seek positions the cursor at a section. ok is false when the file does
// not declare that section.
func (l *load) seek(section int) (ok bool, err error) {
	if section >= len(l.w.Sections) {
		return false, nil
	}
	return true, l.c.SeekTo(l.w.Sections[section])
}

func (l *load) run() error {
	if err := l.readPreamble(); err != nil {
		return err
	}
	if err := l.readHeader(); err != nil {
		return err
	}
	if err := l.readTiles(); err != nil {
		return err
	}

	v := l.w.Version
	steps := []struct {
		section int
		minVer  int
		status  string
		stage   string
		decode  func() error
	}{
		{sectionChests, 0, "Loading chests", "loading chests", l.readChests},
		{sectionSigns, 0, "Loading signs", "loading signs", l.readSigns},
		{sectionNPCs, 0, "Loading npcs", "loading npcs", l.readNPCs},
		{sectionEntities, 116, "Loading entities", "loading entities", l.readEntities},
		{sectionBestiary, 210, "Loading bestiary", "loading bestiary", l.readBestiary},
	}
	for _, s := range steps {
		if v < s.minVer {
			continue
		}
		ok, err := l.seek(s.section)
		if err != nil {
			return l.fail(s.stage, err)
		}
		if !ok {
			l.Logger.Warn("section not declared, skipping",
				zap.String("section", s.stage), zap.Int("count", len(l.w.Sections)))
			continue
		}
		l.report(s.status)
		l.Logger.Debug(s.stage, zap.Int64("offset", l.w.Sections[s.section]))
		if err := s.decode(); err != nil {
			return l.fail(s.stage, err)
		}
	}

	if v >= 170 && len(l.w.Sections) > sectionPressurePlates {
		l.Logger.Debug("skipping pressure plates")
	}
	if v >= 189 && len(l.w.Sections) > sectionTownManager {
		l.Logger.Debug("skipping town manager")
	}
	if len(l.w.Sections) > sectionBestiary+1 {
		l.Logger.Debug("skipping trailing sections", zap.Int("count", len(l.w.Sections)-sectionBestiary-1))
	}
	return nil
}

func (l *load) readPreamble() error {
	const stage = "reading version"
	version, err := l.c.U32()
	if err != nil {
		return l.fail(stage, err)
	}
	l.report(fmt.Sprintf("Loading map version %d", version))
	if int64(version) < int64(l.MinVersion) || int64(version) > int64(l.MaxVersion) {
		return l.fail(stage, fmt.Errorf("%w: %d (supported %d to %d)",
			ErrUnsupportedVersion, version, l.MinVersion, l.MaxVersion))
	}
	l.w.Version = int(version)
	l.Logger.Debug("world version", zap.Int("version", l.w.Version))

	if l.w.Version >= 135 {
		magic, err := l.c.Fixed(len(worldMagic))
		if err != nil {
			return l.fail("reading magic", err)
		}
		if !bytes.Equal(magic, worldMagic) {
			return l.fail("reading magic", fmt.Errorf("%w: magic %q", ErrBadMagic, magic))
		}
		kind, err := l.c.U8()
		if err != nil {
			return l.fail("reading magic", err)
		}
		if kind != worldFileType {
			return l.fail("reading magic", fmt.Errorf("%w: file type %d", ErrBadMagic, kind))
		}
		if l.w.Revision, err = l.c.U32(); err != nil {
			return l.fail("reading magic", err)
		}
		if l.w.Favorite, err = l.c.U64(); err != nil {
			return l.fail("reading magic", err)
		}
	}

	const tableStage = "reading sections"
	count, err := l.c.U16()
	if err != nil {
		return l.fail(tableStage, err)
	}
	l.w.Sections = make([]int64, 0, count)
	for i := 0; i < int(count); i++ {
		off, err := l.c.U32()
		if err != nil {
			return l.fail(tableStage, err)
		}
		l.w.Sections = append(l.w.Sections, int64(off))
	}

	types, err := l.c.U16()
	if err != nil {
		return l.fail(tableStage, err)
	}
	if l.w.Frames, err = readFrameTable(l.c, int(types)); err != nil {
		return l.fail(tableStage, err)
	}
	return nil
}

func (l *load) readHeader() error {
	const stage = "loading header"
	ok, err := l.seek(sectionHeader)
	if err == nil && !ok {
		err = fmt.Errorf("%w: no header section", ErrCorrupt)
	}
	if err != nil {
		return l.fail(stage, err)
	}
	l.report("Loading header")
	if l.w.Header, err = decodeHeader(l.c, l.Catalog, l.w.Version); err != nil {
		return l.fail(stage, err)
	}
	return nil
}

func (l *load) readTiles() error {
	const stage = "loading tiles"
	h := l.w.Header
	wide, err := h.Int("tilesWide")
	if err != nil {
		return l.fail(stage, err)
	}
	high, err := h.Int("tilesHigh")
	if err != nil {
		return l.fail(stage, err)
	}
	if wide <= 0 || high <= 0 || wide*high > int64(l.MaxGridCells) {
		return l.fail(stage, fmt.Errorf("%w: grid %dx%d", ErrCorrupt, wide, high))
	}
	ground, err := h.Float("groundLevel")
	if err != nil {
		return l.fail(stage, err)
	}
	rock, err := h.Float("rockLevel")
	if err != nil {
		return l.fail(stage, err)
	}
	l.w.Depth = NewDepth(int(high), int(ground), int(rock))

	ok, err := l.seek(sectionTiles)
	if err == nil && !ok {
		err = fmt.Errorf("%w: no tile section", ErrCorrupt)
	}
	if err != nil {
		return l.fail(stage, err)
	}
	l.report("Loading tiles")
	l.Logger.Debug("expanding grid", zap.Int64("width", wide), zap.Int64("height", high))
	l.w.Grid = newGrid(int(wide), int(high))
	if err := expandGrid(l.c, l.w.Frames, l.Registry, l.w.Depth, l.w.Grid); err != nil {
		return l.fail(stage, err)
	}
	return nil
}

func (l *load) readChests() error {
	var err error
	l.w.Chests, err = decodeChests(l.c, l.w.Version, l.Registry)
	return err
}

func (l *load) readSigns() error {
	var err error
	l.w.Signs, err = decodeSigns(l.c)
	return err
}

func (l *load) readNPCs() error {
	var err error
	l.w.NPCs, l.w.ShimmeredNPCs, err = decodeNPCs(l.c, l.w.Version, l.Registry)
	return err
}

func (l *load) readEntities() error {
	if l.w.Version < 122 {
		var err error
		l.w.Entities.Dummies, err = decodeLegacyDummies(l.c)
		return err
	}
	ents, err := decodeEntities(l.c)
	l.w.Entities = ents
	var unknown *UnknownEntityError
	if errors.As(err, &unknown) {
		l.Logger.Warn("unknown entity kind, remaining entities skipped",
			zap.Uint8("kind", unknown.Kind), zap.Int("index", unknown.Index))
		return nil
	}
	return err
}

func (l *load) readBestiary() error {
	var err error
	l.w.Bestiary, err = decodeBestiary(l.c)
	return err
}

// blankRegistry resolves nothing and colors everything black.
type blankRegistry struct{}

func (blankRegistry) TileColor(*Tile) uint32           { return 0 }
func (blankRegistry) WallColor(uint16) uint32          { return 0 }
func (blankRegistry) GlobalColor(Global) uint32        { return 0 }
func (blankRegistry) ItemName(int32) string            { return "" }
func (blankRegistry) PrefixName(uint8) string          { return "" }
func (blankRegistry) NPCByID(int32) (NPCInfo, bool)    { return NPCInfo{}, false }
func (blankRegistry) NPCByName(string) (NPCInfo, bool) { return NPCInfo{}, false }

