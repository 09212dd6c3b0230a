// Package worldinfo is the static registry of items, prefixes, tiles, walls,
// NPCs and palette colors used to interpret world files.
package worldinfo

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"sync"

	"go.uber.org/multierr"

	"github.com/Faultbox/terrafirma/pkg/wld"
)

//go:embed data/*.json
var dataFS embed.FS

// ErrData reports malformed registry data.
var ErrData = errors.New("invalid registry data")

// Data file names inside a registry directory.
const (
	ItemsFile    = "items.json"
	PrefixesFile = "prefixes.json"
	TilesFile    = "tiles.json"
	WallsFile    = "walls.json"
	NPCsFile     = "npcs.json"
	GlobalsFile  = "globals.json"
)

// Sources holds the raw JSON documents of a registry.
type Sources struct {
	Items    []byte
	Prefixes []byte
	Tiles    []byte
	Walls    []byte
	NPCs     []byte
	Globals  []byte
}

// WallInfo describes a wall type.
type WallInfo struct {
	Name  string
	Color uint32
	Blend uint16
}

// Info is a loaded registry. It is read-only after construction and safe for
// concurrent use. Info implements wld.Registry.
type Info struct {
	items    map[int32]string
	prefixes map[uint8]string

	arena []TileInfo
	roots map[int16]int

	walls map[uint16]WallInfo

	npcsByID     map[int32]wld.NPCInfo
	npcsByBanner map[int32]wld.NPCInfo
	npcsByName   map[string]wld.NPCInfo

	globals [wld.GlobalShimmer + 1]uint32
}

var _ wld.Registry = (*Info)(nil)

var (
	defaultOnce sync.Once
	defaultInfo *Info
	defaultErr  error
)

// Default returns the bundled registry, parsed once per process.
func Default() (*Info, error) {
	defaultOnce.Do(func() {
		sub, err := fs.Sub(dataFS, "data")
		if err != nil {
			defaultErr = err
			return
		}
		defaultInfo, defaultErr = Load(sub)
	})
	return defaultInfo, defaultErr
}

// Load reads the six registry documents from the root of fsys.
func Load(fsys fs.FS) (*Info, error) {
	var src Sources
	files := []struct {
		name string
		dst  *[]byte
	}{
		{ItemsFile, &src.Items},
		{PrefixesFile, &src.Prefixes},
		{TilesFile, &src.Tiles},
		{WallsFile, &src.Walls},
		{NPCsFile, &src.NPCs},
		{GlobalsFile, &src.Globals},
	}
	for _, f := range files {
		data, err := fs.ReadFile(fsys, f.name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrData, err)
		}
		*f.dst = data
	}
	return Parse(src)
}

type namedEntry struct {
	ID   int32  `json:"id"`
	Name string `json:"name"`
}

type wallEntry struct {
	ID    int32   `json:"id"`
	Ref   *int32  `json:"ref"`
	Name  string  `json:"name"`
	Color string  `json:"color"`
	Blend *uint16 `json:"blend"`
}

type npcEntry struct {
	ID     int16  `json:"id"`
	Name   string `json:"name"`
	Head   uint16 `json:"head"`
	Banner int32  `json:"banner"`
}

type globalEntry struct {
	ID    string `json:"id"`
	Color string `json:"color"`
}

var globalIDs = map[string]wld.Global{
	"sky":     wld.GlobalSky,
	"earth":   wld.GlobalEarth,
	"rock":    wld.GlobalRock,
	"hell":    wld.GlobalHell,
	"water":   wld.GlobalWater,
	"lava":    wld.GlobalLava,
	"honey":   wld.GlobalHoney,
	"shimmer": wld.GlobalShimmer,
}

// Parse builds a registry from its JSON documents. Items are parsed first so
// tiles and walls can take their names from item references.
func Parse(src Sources) (*Info, error) {
	info := &Info{
		items:        make(map[int32]string),
		prefixes:     make(map[uint8]string),
		roots:        make(map[int16]int),
		walls:        make(map[uint16]WallInfo),
		npcsByID:     make(map[int32]wld.NPCInfo),
		npcsByBanner: make(map[int32]wld.NPCInfo),
		npcsByName:   make(map[string]wld.NPCInfo),
	}

	var errs error
	add := func(doc string, err error) {
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", doc, err))
		}
	}
	add(ItemsFile, info.parseItems(src.Items))
	add(PrefixesFile, info.parsePrefixes(src.Prefixes))
	add(TilesFile, info.parseTiles(src.Tiles))
	add(WallsFile, info.parseWalls(src.Walls))
	add(NPCsFile, info.parseNPCs(src.NPCs))
	add(GlobalsFile, info.parseGlobals(src.Globals))
	if errs != nil {
		return nil, fmt.Errorf("%w: %w", ErrData, errs)
	}
	return info, nil
}

func (i *Info) parseItems(data []byte) error {
	var entries []namedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	var errs error
	for _, e := range entries {
		if _, dup := i.items[e.ID]; dup {
			errs = multierr.Append(errs, fmt.Errorf("duplicate item %d", e.ID))
		}
		i.items[e.ID] = e.Name
	}
	return errs
}

func (i *Info) parsePrefixes(data []byte) error {
	var entries []namedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	var errs error
	for _, e := range entries {
		if e.ID < 0 || e.ID > 255 {
			errs = multierr.Append(errs, fmt.Errorf("prefix id %d out of range", e.ID))
			continue
		}
		i.prefixes[uint8(e.ID)] = e.Name
	}
	return errs
}

func (i *Info) parseWalls(data []byte) error {
	var entries []wallEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	var errs error
	for _, e := range entries {
		if e.ID < 0 || e.ID > 0xffff {
			errs = multierr.Append(errs, fmt.Errorf("wall id %d out of range", e.ID))
			continue
		}
		color, err := parseColor(e.Color)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("wall %d: %w", e.ID, err))
		}
		w := WallInfo{Name: i.refName(e.Ref, e.Name), Color: color, Blend: uint16(e.ID)}
		if e.Blend != nil {
			w.Blend = *e.Blend
		}
		i.walls[uint16(e.ID)] = w
	}
	return errs
}

func (i *Info) parseNPCs(data []byte) error {
	var entries []npcEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	var errs error
	for _, e := range entries {
		npc := wld.NPCInfo{ID: e.ID, Title: e.Name, Head: e.Head}
		if _, dup := i.npcsByID[int32(e.ID)]; dup {
			errs = multierr.Append(errs, fmt.Errorf("duplicate npc %d", e.ID))
		}
		i.npcsByID[int32(e.ID)] = npc
		switch _, named := i.npcsByName[e.Name]; {
		case e.Banner != 0:
			i.npcsByBanner[e.Banner] = npc
		case !named:
			i.npcsByName[e.Name] = npc
		}
	}
	return errs
}

func (i *Info) parseGlobals(data []byte) error {
	var entries []globalEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	var errs error
	seen := make(map[wld.Global]bool)
	for _, e := range entries {
		g, ok := globalIDs[e.ID]
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("unknown global %q", e.ID))
			continue
		}
		color, err := parseColor(e.Color)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("global %s: %w", e.ID, err))
		}
		i.globals[g] = color
		seen[g] = true
	}
	for name, g := range globalIDs {
		if !seen[g] {
			errs = multierr.Append(errs, fmt.Errorf("missing global %q", name))
		}
	}
	return errs
}

// refName resolves an item reference, falling back to name.
func (i *Info) refName(ref *int32, name string) string {
	if ref != nil {
		if item, ok := i.items[*ref]; ok {
			return item
		}
	}
	return name
}

// parseColor parses an RRGGBB hex string. An empty string is black.
func parseColor(s string) (uint32, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil || v > 0xffffff {
		return 0, fmt.Errorf("bad color %q", s)
	}
	return uint32(v), nil
}

// ItemName returns the item's display name, or "" when unknown.
func (i *Info) ItemName(id int32) string {
	return i.items[id]
}

// PrefixName returns the prefix's display name, or "" for none.
func (i *Info) PrefixName(id uint8) string {
	return i.prefixes[id]
}

// ItemCount returns the number of known items.
func (i *Info) ItemCount() int {
	return len(i.items)
}

// NPCByID looks up an NPC by its type id.
func (i *Info) NPCByID(id int32) (wld.NPCInfo, bool) {
	n, ok := i.npcsByID[id]
	return n, ok
}

// NPCByBanner looks up an NPC by its banner id.
func (i *Info) NPCByBanner(banner int32) (wld.NPCInfo, bool) {
	n, ok := i.npcsByBanner[banner]
	return n, ok
}

// NPCByName looks up an NPC without a banner by title. Older worlds store
// town NPCs by title.
func (i *Info) NPCByName(name string) (wld.NPCInfo, bool) {
	n, ok := i.npcsByName[name]
	return n, ok
}

// Wall looks up a wall type.
func (i *Info) Wall(id uint16) (WallInfo, bool) {
	w, ok := i.walls[id]
	return w, ok
}

// WallColor returns the wall's map color, or black when unknown.
func (i *Info) WallColor(id uint16) uint32 {
	return i.walls[id].Color
}

// GlobalColor returns a fixed palette color.
func (i *Info) GlobalColor(g wld.Global) uint32 {
	if int(g) >= len(i.globals) {
		return 0
	}
	return i.globals[g]
}
