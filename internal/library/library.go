// Package library lists world saves on disk and caches decoded worlds.
package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unsafe"

	"github.com/dgraph-io/ristretto/v2"
	"go.uber.org/zap"

	"github.com/Faultbox/terrafirma/pkg/encoding"
	"github.com/Faultbox/terrafirma/pkg/wld"
)

// ErrNotFound is returned by Resolve when no world matches.
var ErrNotFound = errors.New("library: world not found")

// worldExts are the file suffixes treated as world saves, longest first.
var worldExts = []string{".wld.bak", ".wld.gz", ".wld.zst", ".wld"}

// Entry is a world file found in a world folder.
type Entry struct {
	Path    string
	Name    string
	Dir     string
	Size    int64
	ModTime time.Time
	Backup  bool
}

// Options configures the decoded-world cache.
type Options struct {
	CacheMaxMB int // 0 disables caching
	CacheTTL   time.Duration
}

// Library manages the configured world folders.
type Library struct {
	dirs []string
	dec  *wld.Decoder
	log  *zap.Logger
	ttl  time.Duration

	cache *ristretto.Cache[string, *wld.World]

	mu     sync.Mutex
	hits   int
	misses int
}

// New creates a library over dirs. A nil logger discards output.
func New(dirs []string, dec *wld.Decoder, opts Options, log *zap.Logger) (*Library, error) {
	if log == nil {
		log = zap.NewNop()
	}
	l := &Library{
		dirs: append([]string(nil), dirs...),
		dec:  dec,
		log:  log,
		ttl:  opts.CacheTTL,
	}
	if opts.CacheMaxMB > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config[string, *wld.World]{
			NumCounters: 1000,
			MaxCost:     int64(opts.CacheMaxMB) << 20,
			BufferItems: 64,
		})
		if err != nil {
			return nil, fmt.Errorf("creating world cache: %w", err)
		}
		l.cache = cache
	}
	return l, nil
}

// Dirs returns the scanned folders.
func (l *Library) Dirs() []string {
	return l.dirs
}

// worldName strips a world suffix from a file name.
func worldName(file string) (name string, backup, ok bool) {
	lower := strings.ToLower(file)
	for _, ext := range worldExts {
		if strings.HasSuffix(lower, ext) {
			return file[:len(file)-len(ext)], ext == ".wld.bak", true
		}
	}
	return "", false, false
}

// List returns the worlds in every folder, sorted by name.
// Missing folders are skipped.
func (l *Library) List() ([]Entry, error) {
	var entries []Entry
	for _, dir := range l.dirs {
		files, err := os.ReadDir(dir)
		if errors.Is(err, os.ErrNotExist) {
			l.log.Debug("world folder missing", zap.String("dir", dir))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", dir, err)
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			name, backup, ok := worldName(f.Name())
			if !ok {
				continue
			}
			info, err := f.Info()
			if err != nil {
				continue
			}
			entries = append(entries, Entry{
				Path:    filepath.Join(dir, f.Name()),
				Name:    name,
				Dir:     dir,
				Size:    info.Size(),
				ModTime: info.ModTime(),
				Backup:  backup,
			})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return !entries[i].Backup && entries[j].Backup
	})
	encoding.SortByName(entries, func(e Entry) string { return e.Name })
	return entries, nil
}

// Resolve maps a world name or file path to a path. Existing paths are
// returned unchanged; otherwise the folders are searched for a world whose
// name matches, ignoring case. Backups lose to the live save.
func (l *Library) Resolve(nameOrPath string) (string, error) {
	if _, err := os.Stat(nameOrPath); err == nil {
		return nameOrPath, nil
	}
	entries, err := l.List()
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if strings.EqualFold(e.Name, nameOrPath) {
			return e.Path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, nameOrPath)
}

// cacheKey changes whenever the file is rewritten.
func cacheKey(path string, info os.FileInfo) string {
	return fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())
}

// worldCost estimates the memory held by a decoded world.
func worldCost(w *wld.World) int64 {
	if w.Grid == nil {
		return 1
	}
	cells := int64(len(w.Grid.Tiles))
	return cells*int64(unsafe.Sizeof(wld.Tile{})) + int64(len(w.Grid.Colors)) + 1
}

// Open decodes the world at path, serving repeated opens of an unchanged
// file from the cache. Failed loads are never cached.
func (l *Library) Open(path string, progress func(string)) (*wld.World, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &wld.LoadError{Stage: "opening world", Err: fmt.Errorf("%w: %w", wld.ErrOpen, err)}
	}

	key := cacheKey(path, info)
	if l.cache != nil {
		if w, ok := l.cache.Get(key); ok {
			l.count(true)
			l.log.Debug("world cache hit", zap.String("path", path))
			return w, nil
		}
	}
	l.count(false)

	w, err := l.dec.DecodeFile(path, progress)
	if err != nil {
		return w, err
	}
	if l.cache != nil {
		cost := worldCost(w)
		if !l.cache.SetWithTTL(key, w, cost, l.ttl) {
			l.log.Debug("world cache rejected entry", zap.String("path", path), zap.Int64("cost", cost))
		}
		l.cache.Wait()
	}
	return w, nil
}

func (l *Library) count(hit bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if hit {
		l.hits++
	} else {
		l.misses++
	}
}

// Stats returns cache statistics.
func (l *Library) Stats() (hits, misses int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hits, l.misses
}

// Clear drops every cached world.
func (l *Library) Clear() {
	if l.cache != nil {
		l.cache.Clear()
	}
	l.mu.Lock()
	l.hits, l.misses = 0, 0
	l.mu.Unlock()
}

// Close releases the cache.
func (l *Library) Close() {
	if l.cache != nil {
		l.cache.Close()
	}
}
