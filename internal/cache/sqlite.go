package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/mqtt-tools/hivemq-tui/internal/resource"
)

// MemoryDSN keeps the SQLite database in process memory.
const MemoryDSN = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS records (
    seq        INTEGER PRIMARY KEY AUTOINCREMENT,
    collection TEXT    NOT NULL,
    id         TEXT    NOT NULL,
    payload    TEXT    NOT NULL,
    UNIQUE (collection, id)
);
`

// DB is a SQLite database shared by the stores of several collections.
type DB struct {
	db *sql.DB
}

// OpenDB opens (or creates) the cache database at path. An empty path or
// MemoryDSN keeps everything in memory.
func OpenDB(path string) (*DB, error) {
	dsn := path
	if dsn == "" || dsn == MemoryDSN {
		dsn = MemoryDSN
	} else {
		if err := os.MkdirAll(filepath.Dir(dsn), 0700); err != nil {
			return nil, fmt.Errorf("%w: create cache dir: %v", resource.ErrStorage, err)
		}
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %v", resource.ErrStorage, err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: apply schema: %v", resource.ErrStorage, err)
	}
	return &DB{db: db}, nil
}

// Close releases the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Collection returns the store for one resource type. Records of a previous
// process are discarded: a collection always starts empty.
func (d *DB) Collection(name string) (*SQLite, error) {
	s := &SQLite{db: d.db, collection: name}
	if err := s.Clear(); err != nil {
		return nil, err
	}
	return s, nil
}

// SQLite is a Store persisted in a SQLite table, one collection per instance.
type SQLite struct {
	db         *sql.DB
	collection string
	owned      bool
}

// NewSQLite opens a private database at path holding a single collection.
// Closing the store closes the database.
func NewSQLite(path, collection string) (*SQLite, error) {
	d, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	s, err := d.Collection(collection)
	if err != nil {
		d.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

func (s *SQLite) Put(id string, item resource.Item) error {
	_, err := s.db.Exec(
		`INSERT INTO records (collection, id, payload) VALUES (?, ?, ?)
		 ON CONFLICT (collection, id) DO UPDATE SET payload = excluded.payload`,
		s.collection, id, string(item.Document),
	)
	if err != nil {
		return storageErr("put "+id, err)
	}
	return nil
}

func (s *SQLite) Get(id string) (resource.Item, bool, error) {
	var payload string
	err := s.db.QueryRow(
		`SELECT payload FROM records WHERE collection = ? AND id = ?`,
		s.collection, id,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return resource.Item{}, false, nil
	}
	if err != nil {
		return resource.Item{}, false, storageErr("get "+id, err)
	}
	return resource.Item{ID: id, Document: []byte(payload)}, true, nil
}

func (s *SQLite) ListIDs() ([]string, error) {
	rows, err := s.db.Query(
		`SELECT id FROM records WHERE collection = ? ORDER BY seq`, s.collection)
	if err != nil {
		return nil, storageErr("list ids", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storageErr("scan id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list ids", err)
	}
	return ids, nil
}

func (s *SQLite) Remove(id string) error {
	if _, err := s.db.Exec(
		`DELETE FROM records WHERE collection = ? AND id = ?`, s.collection, id,
	); err != nil {
		return storageErr("remove "+id, err)
	}
	return nil
}

// Query resolves path with SQLite's JSON functions; json_type is NULL when the
// path is absent, which excludes the row.
func (s *SQLite) Query(path string, m Matcher) ([]resource.Item, error) {
	p, err := normalizePath(path)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(
		`SELECT id, payload, json_type(payload, ?), json_extract(payload, ?) FROM records
		 WHERE collection = ? AND json_valid(payload) AND json_type(payload, ?) IS NOT NULL
		 ORDER BY seq`,
		p, p, s.collection, p,
	)
	if err != nil {
		if isJSONPathError(err) {
			return nil, fmt.Errorf("%w: path %q: %v", resource.ErrInvalidFilter, path, err)
		}
		return nil, storageErr("query", err)
	}
	defer rows.Close()

	var out []resource.Item
	for rows.Next() {
		var (
			id, payload, kind string
			value             interface{}
		)
		if err := rows.Scan(&id, &payload, &kind, &value); err != nil {
			return nil, storageErr("scan query row", err)
		}
		text := scalarText(value)
		switch kind {
		case "true", "false", "null":
			text = kind
		}
		if m.Match(text) {
			out = append(out, resource.Item{ID: id, Document: []byte(payload)})
		}
	}
	if err := rows.Err(); err != nil {
		if isJSONPathError(err) {
			return nil, fmt.Errorf("%w: path %q: %v", resource.ErrInvalidFilter, path, err)
		}
		return nil, storageErr("query", err)
	}
	return out, nil
}

func (s *SQLite) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM records WHERE collection = ?`, s.collection); err != nil {
		return storageErr("clear", err)
	}
	return nil
}

func (s *SQLite) Len() (int, error) {
	var n int
	if err := s.db.QueryRow(
		`SELECT COUNT(*) FROM records WHERE collection = ?`, s.collection,
	).Scan(&n); err != nil {
		return 0, storageErr("count", err)
	}
	return n, nil
}

// Close closes the database when the store owns it.
func (s *SQLite) Close() error {
	if s.owned {
		return s.db.Close()
	}
	return nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", resource.ErrStorage, op, err)
}

func isJSONPathError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "json path") || strings.Contains(msg, "bad json path")
}
