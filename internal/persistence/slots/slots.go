// Package slots stores save documents in a SQLite database. Every handle is
// bound to one deployment namespace and can neither see nor overwrite the
// rows of another.
package slots

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/AaroAskala/Suomidle-sub000/internal/persistence/save"
	"github.com/AaroAskala/Suomidle-sub000/internal/persistence/snapshot"
)

var ErrNotFound = errors.New("slots: save not found")

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	db        *sql.DB
	namespace string
}

type Info struct {
	Slot       string
	StorageKey string
	Version    int
	UpdatedAt  int64
	Size       int
}

type Record struct {
	Info
	Header   snapshot.Header
	Document []byte
}

// Open opens (creating if needed) the database at path and migrates it to
// the latest schema.
func Open(path, namespace string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if namespace == "" {
		namespace = "local"
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
	if err := migrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, namespace: namespace}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("migrations source: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("migrations driver: %w", err)
	}
	// Closing m would close db as well, so it is left to the GC.
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

func (s *Store) Namespace() string { return s.namespace }

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put writes doc into slot, replacing whatever the slot held.
func (s *Store) Put(ctx context.Context, slot string, version int, doc []byte, savedAt int64) error {
	key := save.StorageKey(s.namespace, slot)
	payload, err := snapshot.Encode(snapshot.NewHeader(version, s.namespace, slot, savedAt), doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO saves(namespace, slot, storage_key, version, payload, updated_at)
VALUES(?, ?, ?, ?, ?, ?)
ON CONFLICT(namespace, slot) DO UPDATE SET
  version=excluded.version,
  payload=excluded.payload,
  updated_at=excluded.updated_at
`, s.namespace, slot, key, version, payload, savedAt)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, slot string) (Record, error) {
	var rec Record
	var payload []byte
	err := s.db.QueryRowContext(ctx, `
SELECT slot, storage_key, version, updated_at, payload
FROM saves WHERE namespace = ? AND slot = ?
`, s.namespace, slot).Scan(&rec.Slot, &rec.StorageKey, &rec.Version, &rec.UpdatedAt, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, fmt.Errorf("%w: %s", ErrNotFound, save.StorageKey(s.namespace, slot))
	}
	if err != nil {
		return rec, err
	}
	rec.Size = len(payload)
	rec.Header, rec.Document, err = snapshot.Decode(payload)
	if err != nil {
		return rec, fmt.Errorf("decode %s: %w", rec.StorageKey, err)
	}
	return rec, nil
}

// List returns the namespace's slots, most recently saved first.
func (s *Store) List(ctx context.Context) ([]Info, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT slot, storage_key, version, updated_at, length(payload)
FROM saves WHERE namespace = ?
ORDER BY updated_at DESC, slot ASC
`, s.namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Info
	for rows.Next() {
		var in Info
		if err := rows.Scan(&in.Slot, &in.StorageKey, &in.Version, &in.UpdatedAt, &in.Size); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (s *Store) Delete(ctx context.Context, slot string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM saves WHERE namespace = ? AND slot = ?`, s.namespace, slot)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, save.StorageKey(s.namespace, slot))
	}
	return nil
}
