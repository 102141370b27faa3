// Package store persists call records in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ava-voice/ava-agent/src/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS calls (
	call_id    TEXT PRIMARY KEY,
	channel_id TEXT NOT NULL,
	pipeline   TEXT NOT NULL,
	status     TEXT NOT NULL,
	started_at TIMESTAMP NOT NULL,
	ended_at   TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_calls_status ON calls(status);
`

// CallRecord is one persisted call
type CallRecord struct {
	CallID    string
	ChannelID string
	Pipeline  string
	Status    string
	StartedAt time.Time
	EndedAt   *time.Time
}

// Store wraps the SQLite database holding call records
type Store struct {
	db  *sql.DB
	log *logger.Logger
}

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// SQLite permits a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}

	return &Store{db: db, log: logger.WithPrefix("[Store]")}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateCall inserts a new call in its starting status
func (s *Store) CreateCall(ctx context.Context, callID, channelID, pipelineName string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO calls (call_id, channel_id, pipeline, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		callID, channelID, pipelineName, "ACTIVE", time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("create call: %w", err)
	}
	return nil
}

// UpdateCallStatus records a status change; terminal statuses also
// stamp the end time
func (s *Store) UpdateCallStatus(ctx context.Context, callID, status string) error {
	var endedAt interface{}
	if status == "ENDED" || status == "EXITED" {
		endedAt = time.Now().UTC()
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE calls SET status = ?, ended_at = COALESCE(?, ended_at) WHERE call_id = ?`,
		status, endedAt, callID,
	)
	if err != nil {
		return fmt.Errorf("update call: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("update call: unknown call %s", callID)
	}
	return nil
}

// GetCall fetches one call record
func (s *Store) GetCall(ctx context.Context, callID string) (*CallRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT call_id, channel_id, pipeline, status, started_at, ended_at FROM calls WHERE call_id = ?`,
		callID,
	)
	var rec CallRecord
	var endedAt sql.NullTime
	if err := row.Scan(&rec.CallID, &rec.ChannelID, &rec.Pipeline, &rec.Status, &rec.StartedAt, &endedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("call %s not found", callID)
		}
		return nil, err
	}
	if endedAt.Valid {
		rec.EndedAt = &endedAt.Time
	}
	return &rec, nil
}

// ListCalls returns the most recent calls, newest first
func (s *Store) ListCalls(ctx context.Context, limit int) ([]CallRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT call_id, channel_id, pipeline, status, started_at, ended_at FROM calls ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []CallRecord
	for rows.Next() {
		var rec CallRecord
		var endedAt sql.NullTime
		if err := rows.Scan(&rec.CallID, &rec.ChannelID, &rec.Pipeline, &rec.Status, &rec.StartedAt, &endedAt); err != nil {
			return nil, err
		}
		if endedAt.Valid {
			rec.EndedAt = &endedAt.Time
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
