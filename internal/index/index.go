// Package index keeps a SQLite index of chest contents across worlds.
package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/Faultbox/terrafirma/pkg/wld"
)

// Index is a chest item index backed by a SQLite file.
type Index struct {
	db  *sql.DB
	log *zap.Logger
}

// WorldRow is an indexed world.
type WorldRow struct {
	Path      string
	Name      string
	Version   int
	Chests    int
	IndexedAt time.Time
}

// Hit is one chest slot matching a search.
type Hit struct {
	World     string
	WorldPath string
	X, Y      int32
	Chest     string
	Slot      int
	Item      string
	ItemID    int32
	Stack     int16
	Prefix    string
}

// Open opens or creates the index at path. A nil logger discards output.
func Open(path string, log *zap.Logger) (*Index, error) {
	if path == "" {
		return nil, errors.New("index: empty db path")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Debug("index opened", zap.String("path", path))
	return &Index{db: db, log: log}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS worlds (
			id INTEGER PRIMARY KEY,
			path TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			version INTEGER NOT NULL,
			indexed_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS chests (
			id INTEGER PRIMARY KEY,
			world_id INTEGER NOT NULL REFERENCES worlds(id) ON DELETE CASCADE,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			name TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS chest_items (
			chest_id INTEGER NOT NULL REFERENCES chests(id) ON DELETE CASCADE,
			slot INTEGER NOT NULL,
			item_id INTEGER NOT NULL,
			item TEXT NOT NULL,
			stack INTEGER NOT NULL,
			prefix TEXT NOT NULL,
			PRIMARY KEY (chest_id, slot)
		);`,
		`CREATE INDEX IF NOT EXISTS chest_items_item ON chest_items(item);`,
		`CREATE INDEX IF NOT EXISTS chests_world ON chests(world_id);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (x *Index) Close() error {
	return x.db.Close()
}

// IndexWorld replaces the rows stored for path with the chests of w.
func (x *Index) IndexWorld(ctx context.Context, path string, w *wld.World) (err error) {
	if w == nil || w.Failed {
		return fmt.Errorf("index: refusing to index a failed world: %s", path)
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM worlds WHERE path = ?`, path); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO worlds(path, name, version, indexed_at) VALUES(?, ?, ?, ?)`,
		path, w.Name(), w.Version, time.Now().Unix())
	if err != nil {
		return err
	}
	worldID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	chestStmt, err := tx.PrepareContext(ctx, `INSERT INTO chests(world_id, x, y, name) VALUES(?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer chestStmt.Close()
	itemStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chest_items(chest_id, slot, item_id, item, stack, prefix) VALUES(?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer itemStmt.Close()

	items := 0
	for i := range w.Chests {
		c := &w.Chests[i]
		res, err = chestStmt.ExecContext(ctx, worldID, c.X, c.Y, c.Label())
		if err != nil {
			return err
		}
		var chestID int64
		if chestID, err = res.LastInsertId(); err != nil {
			return err
		}
		for _, it := range c.Items {
			if _, err = itemStmt.ExecContext(ctx, chestID, it.Slot, it.ID, it.Label(), it.Stack, it.Prefix); err != nil {
				return err
			}
			items++
		}
	}

	if err = tx.Commit(); err != nil {
		return err
	}
	x.log.Info("world indexed",
		zap.String("path", path),
		zap.Int("chests", len(w.Chests)),
		zap.Int("items", items))
	return nil
}

// Remove drops a world and its chests from the index.
func (x *Index) Remove(ctx context.Context, path string) error {
	_, err := x.db.ExecContext(ctx, `DELETE FROM worlds WHERE path = ?`, path)
	return err
}

// Worlds lists the indexed worlds by name.
func (x *Index) Worlds(ctx context.Context) ([]WorldRow, error) {
	rows, err := x.db.QueryContext(ctx, `
		SELECT w.path, w.name, w.version, w.indexed_at, COUNT(c.id)
		FROM worlds w LEFT JOIN chests c ON c.world_id = w.id
		GROUP BY w.id
		ORDER BY w.name, w.path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WorldRow
	for rows.Next() {
		var r WorldRow
		var at int64
		if err := rows.Scan(&r.Path, &r.Name, &r.Version, &at, &r.Chests); err != nil {
			return nil, err
		}
		r.IndexedAt = time.Unix(at, 0)
		out = append(out, r)
	}
	return out, rows.Err()
}

// escapeLike escapes the LIKE wildcards in s.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Search finds chest slots whose item name contains query, ignoring ASCII
// case. An empty query matches every item.
func (x *Index) Search(ctx context.Context, query string) ([]Hit, error) {
	rows, err := x.db.QueryContext(ctx, `
		SELECT w.name, w.path, c.x, c.y, c.name, i.slot, i.item, i.item_id, i.stack, i.prefix
		FROM chest_items i
		JOIN chests c ON c.id = i.chest_id
		JOIN worlds w ON w.id = c.world_id
		WHERE i.item LIKE ? ESCAPE '\'
		ORDER BY i.item, w.name, c.x, c.y, i.slot`,
		"%"+escapeLike(query)+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.World, &h.WorldPath, &h.X, &h.Y, &h.Chest, &h.Slot, &h.Item, &h.ItemID, &h.Stack, &h.Prefix); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
