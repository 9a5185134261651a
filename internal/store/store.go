// Package store handles SQLite persistence of the attempt history.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/tuipass/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// timestampLayout is fixed width and UTC so stored values sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// Store wraps SQLite access for attempt data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS attempts (
			id INTEGER PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			mode TEXT NOT NULL,
			samples INTEGER NOT NULL,
			clicks INTEGER NOT NULL,
			position_score REAL NOT NULL,
			time_score REAL NOT NULL,
			sequence_score REAL NOT NULL,
			similarity REAL NOT NULL,
			threshold REAL NOT NULL,
			accepted INTEGER NOT NULL,
			click_mismatch INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_ended_at ON attempts(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_mode ON attempts(mode);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertAttempt stores a closed capture window.
func (s *Store) InsertAttempt(ctx context.Context, a model.Attempt) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts (started_at, ended_at, mode, samples, clicks, position_score, time_score, sequence_score, similarity, threshold, accepted, click_mismatch)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		formatTime(a.StartedAt),
		formatTime(a.EndedAt),
		a.Mode,
		a.Samples,
		a.Clicks,
		a.PositionScore,
		a.TimeScore,
		a.SequenceScore,
		a.Similarity,
		a.Threshold,
		boolToInt(a.Accepted),
		boolToInt(a.ClickMismatch),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListAttempts returns attempts filtered by the history config, oldest first.
func (s *Store) ListAttempts(ctx context.Context, cfg model.HistoryConfig) ([]model.Attempt, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Mode != "" {
		clauses = append(clauses, "mode = ?")
		args = append(args, cfg.Mode)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, formatTime(*cfg.Since))
	}
	query := fmt.Sprintf(`SELECT id, started_at, ended_at, mode, samples, clicks, position_score, time_score, sequence_score, similarity, threshold, accepted, click_mismatch
		FROM attempts
		WHERE %s
		ORDER BY ended_at ASC, id ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var attempts []model.Attempt
	for rows.Next() {
		var (
			a                  model.Attempt
			startedAt, endedAt string
			accepted, mismatch int
		)
		if err := rows.Scan(&a.ID, &startedAt, &endedAt, &a.Mode, &a.Samples, &a.Clicks,
			&a.PositionScore, &a.TimeScore, &a.SequenceScore, &a.Similarity, &a.Threshold,
			&accepted, &mismatch); err != nil {
			return nil, err
		}
		if a.StartedAt, err = time.Parse(timestampLayout, startedAt); err != nil {
			return nil, err
		}
		if a.EndedAt, err = time.Parse(timestampLayout, endedAt); err != nil {
			return nil, err
		}
		a.Accepted = accepted != 0
		a.ClickMismatch = mismatch != 0
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return attempts, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
