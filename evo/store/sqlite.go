package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gonum.org/v1/gonum/mat"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps every population in one SQLite database file.
type SQLiteStore struct {
	path string

	mu sync.Mutex
	db *sql.DB
}

// NewSQLiteStore returns a store backed by the database at path. The file is
// opened, and the schema created, on first use.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	return &SQLiteStore{path: path}, nil
}

func (s *SQLiteStore) getDB(ctx context.Context) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return s.db, nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s.db = db
	return db, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) Save(ctx context.Context, name string, snap Snapshot) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	db, err := s.getDB(ctx)
	if err != nil {
		return err
	}

	meta, err := EncodeMetadata(snap.Metadata)
	if err != nil {
		return err
	}
	payloads := make([][]byte, len(snap.Networks))
	for i, layers := range snap.Networks {
		payloads[i], err = EncodeNetwork(layers)
		if err != nil {
			return fmt.Errorf("network %d: %w", i, err)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM networks WHERE population = ?`, name); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO populations (name, metadata)
		VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET metadata = excluded.metadata
	`, name, meta); err != nil {
		return err
	}
	for i, payload := range payloads {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO networks (population, idx, codec_version, payload)
			VALUES (?, ?, ?, ?)
		`, name, i, CodecVersion, payload); err != nil {
			return fmt.Errorf("failed to insert network %d: %w", i, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Load(ctx context.Context, name string) (Snapshot, error) {
	if err := ValidateName(name); err != nil {
		return Snapshot{}, err
	}
	db, err := s.getDB(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	var metaPayload []byte
	err = db.QueryRowContext(ctx, `SELECT metadata FROM populations WHERE name = ?`, name).Scan(&metaPayload)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return Snapshot{}, err
	}
	meta, err := DecodeMetadata(metaPayload)
	if err != nil {
		return Snapshot{}, fmt.Errorf("population %s: %w", name, err)
	}

	rows, err := db.QueryContext(ctx, `SELECT idx, payload FROM networks WHERE population = ? ORDER BY idx`, name)
	if err != nil {
		return Snapshot{}, err
	}
	defer rows.Close()

	networks := [][]*mat.Dense{}
	for rows.Next() {
		var (
			idx     int
			payload []byte
		)
		if err := rows.Scan(&idx, &payload); err != nil {
			return Snapshot{}, err
		}
		layers, err := DecodeNetwork(payload)
		if err != nil {
			return Snapshot{}, fmt.Errorf("decode network %s/%d: %w", name, idx, err)
		}
		networks = append(networks, layers)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, err
	}
	if len(networks) == 0 {
		return Snapshot{}, fmt.Errorf("%w: no networks stored for %s", ErrNotFound, name)
	}

	return Snapshot{Networks: networks, Metadata: meta}, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Summary, error) {
	db, err := s.getDB(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT p.name, p.metadata, COUNT(n.idx)
		FROM populations p
		LEFT JOIN networks n ON n.population = p.name
		GROUP BY p.name
		ORDER BY p.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var (
			name        string
			metaPayload []byte
			size        int
		)
		if err := rows.Scan(&name, &metaPayload, &size); err != nil {
			return nil, err
		}
		meta, err := DecodeMetadata(metaPayload)
		if err != nil {
			return nil, fmt.Errorf("population %s: %w", name, err)
		}
		out = append(out, Summary{Name: name, Size: size, Generation: meta.Generation})
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	db, err := s.getDB(ctx)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM networks WHERE population = ?`, name); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM populations WHERE name = ?`, name); err != nil {
		return err
	}
	return tx.Commit()
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS populations (
			name TEXT PRIMARY KEY,
			metadata BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS networks (
			population TEXT NOT NULL,
			idx INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (population, idx)
		);
	`)
	return err
}
