// Package snapshot caches expensive load results in a SQLite database keyed
// by layer name and source modification time. A snapshot whose stored mtime
// no longer matches the source files is considered stale and ignored.
package snapshot

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/gob"
	"os"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Store persists gob-encoded layer payloads, one row per layer.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the snapshot database at the given path
// and configures WAL mode.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "snapshot: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "snapshot: exec %s", pragma)
		}
	}
	const migration = `
CREATE TABLE IF NOT EXISTS snapshots (
	layer        TEXT PRIMARY KEY,
	source_mtime INTEGER NOT NULL,
	payload      BLOB NOT NULL
);`
	if _, err := db.Exec(migration); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "snapshot: migrate")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Load decodes the cached payload for layer into v if the stored source
// mtime matches. Returns false without error when the snapshot is missing
// or stale.
func (s *Store) Load(ctx context.Context, layer string, sourceMtime int64, v any) (bool, error) {
	var storedMtime int64
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT source_mtime, payload FROM snapshots WHERE layer = ?`, layer,
	).Scan(&storedMtime, &payload)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "snapshot: query %s", layer)
	}
	if storedMtime != sourceMtime {
		return false, nil
	}
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(v); err != nil {
		// A payload that no longer decodes is treated as stale.
		return false, nil
	}
	return true, nil
}

// Save encodes v and upserts it as the snapshot for layer.
func (s *Store) Save(ctx context.Context, layer string, sourceMtime int64, v any) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return eris.Wrapf(err, "snapshot: encode %s", layer)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (layer, source_mtime, payload) VALUES (?, ?, ?)
		 ON CONFLICT(layer) DO UPDATE SET source_mtime = excluded.source_mtime, payload = excluded.payload`,
		layer, sourceMtime, buf.Bytes())
	return eris.Wrapf(err, "snapshot: save %s", layer)
}

// SourceMtime returns the most recent Unix modification time across the
// given paths. Missing files contribute zero.
func SourceMtime(paths ...string) int64 {
	var latest int64
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if mt := info.ModTime().Unix(); mt > latest {
			latest = mt
		}
	}
	return latest
}
