// Package sqlite persiste los snapshots por kind y el registro de settings
// en SQLite local del device.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/Jarrodhale08/petpal-app/internal/ports/snapshot"
)

const settingsKey = "reminder_settings"

type Store struct {
	db *sql.DB
}

// Open abre (o crea) la base en dataDir y asegura el schema. Pasar
// ":memory:" como dataDir para una base in-memory (tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "petpal.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Una sola conexión para evitar "database is locked".
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			kind  TEXT PRIMARY KEY,
			state TEXT NOT NULL,
			saved_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS settings (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, kind string) (snapshot.State, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT state FROM snapshots WHERE kind = ?", kind).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return snapshot.State{}, false, nil
	}
	if err != nil {
		return snapshot.State{}, false, err
	}

	var st snapshot.State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return snapshot.State{}, false, fmt.Errorf("decode snapshot %s: %w", kind, err)
	}
	return st, true, nil
}

func (s *Store) Save(ctx context.Context, kind string, st snapshot.State) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (kind, state, saved_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(kind) DO UPDATE SET state = excluded.state, saved_at = CURRENT_TIMESTAMP
	`, kind, string(b))
	return err
}

func (s *Store) LoadSettings(ctx context.Context) (snapshot.Settings, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM settings WHERE key = ?", settingsKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return snapshot.Settings{}, false, nil
	}
	if err != nil {
		return snapshot.Settings{}, false, err
	}

	var st snapshot.Settings
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return snapshot.Settings{}, false, fmt.Errorf("decode settings: %w", err)
	}
	return st, true, nil
}

func (s *Store) SaveSettings(ctx context.Context, st snapshot.Settings) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, settingsKey, string(b))
	return err
}
