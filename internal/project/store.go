package project

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// ErrNotFound is returned when no project is stored under the requested ID.
var ErrNotFound = errors.New("project not found")

// ErrNoAnalysis is returned when a project exists but has not been analyzed.
var ErrNoAnalysis = errors.New("project has no stored analysis")

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	snapshot TEXT NOT NULL,
	analysis TEXT
);`

// Store persists snapshots and their analyses in a SQLite database. The
// documents are stored as JSON; the relational layer carries only identity
// and timestamps for listing and ordering.
type Store struct {
	db *sql.DB
}

// Open opens the project database at path, creating it and its schema when
// missing.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open project database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize project schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists snap. A snapshot without an ID is assigned one; timestamps
// are backfilled the same way. Saving an existing ID replaces the stored
// snapshot and clears nothing else.
func (s *Store) Save(ctx context.Context, snap *Snapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = now
	}
	snap.UpdatedAt = now

	doc, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, created_at, updated_at, snapshot)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			updated_at = excluded.updated_at,
			snapshot = excluded.snapshot`,
		snap.ID, snap.Name, snap.CreatedAt, snap.UpdatedAt, string(doc))
	if err != nil {
		return fmt.Errorf("save project %s: %w", snap.ID, err)
	}
	return nil
}

// Get loads the snapshot stored under id. The record's updated_at column is
// authoritative: analysis writes bump it without rewriting the snapshot.
func (s *Store) Get(ctx context.Context, id string) (*Snapshot, error) {
	var doc string
	var updatedAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT snapshot, updated_at FROM projects WHERE id = ?`, id).Scan(&doc, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load project %s: %w", id, err)
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(doc), &snap); err != nil {
		return nil, fmt.Errorf("decode project %s: %w", id, err)
	}
	snap.UpdatedAt = updatedAt
	return &snap, nil
}

// List returns summaries of every stored project, newest first.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT snapshot, updated_at, analysis IS NOT NULL
		FROM projects
		ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var doc string
		var updatedAt time.Time
		var analyzed bool
		if err := rows.Scan(&doc, &updatedAt, &analyzed); err != nil {
			return nil, fmt.Errorf("scan project row: %w", err)
		}

		var snap Snapshot
		if err := json.Unmarshal([]byte(doc), &snap); err != nil {
			return nil, fmt.Errorf("decode project row: %w", err)
		}
		summaries = append(summaries, Summary{
			ID:          snap.ID,
			Name:        snap.Name,
			ProjectType: snap.ProjectType,
			TotalFiles:  snap.TotalFiles,
			TotalLines:  snap.TotalLines,
			Analyzed:    analyzed,
			CreatedAt:   snap.CreatedAt,
			UpdatedAt:   updatedAt,
		})
	}
	return summaries, rows.Err()
}

// Delete removes the project stored under id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete project %s: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveAnalysis stores the analysis for the project under id and bumps its
// updated_at timestamp.
func (s *Store) SaveAnalysis(ctx context.Context, id string, analysis *BugAnalysis) error {
	doc, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET analysis = ?, updated_at = ? WHERE id = ?`,
		string(doc), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("save analysis for %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save analysis for %s: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Analysis loads the stored analysis for the project under id.
func (s *Store) Analysis(ctx context.Context, id string) (*BugAnalysis, error) {
	var doc sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT analysis FROM projects WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load analysis for %s: %w", id, err)
	}
	if !doc.Valid {
		return nil, ErrNoAnalysis
	}

	var analysis BugAnalysis
	if err := json.Unmarshal([]byte(doc.String), &analysis); err != nil {
		return nil, fmt.Errorf("decode analysis for %s: %w", id, err)
	}
	return &analysis, nil
}
