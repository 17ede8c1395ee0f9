package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var sqliteSchema string

const offsetCheckpoint = "poll_offset"

// SQLiteStoreConfig configures the SQLite store.
type SQLiteStoreConfig struct {
	// DSN is the database connection string (a file path in the common
	// case).
	DSN string

	// RetentionAge deletes records older than this duration on Prune
	// (0 = no age pruning).
	RetentionAge time.Duration

	// RetentionCount keeps at most this many records on Prune
	// (0 = no count pruning).
	RetentionCount int
}

// SQLiteStore persists offsets and evaluation records to SQLite in WAL
// mode. Pruning is driven externally (the run command schedules it).
type SQLiteStore struct {
	db  *sql.DB
	cfg SQLiteStoreConfig
}

// NewSQLiteStore opens (or creates) the database and applies the schema.
func NewSQLiteStore(cfg SQLiteStoreConfig) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}

	// Enable WAL mode for concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: set WAL mode: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}

	return &SQLiteStore{db: db, cfg: cfg}, nil
}

// Offset returns the checkpointed long-poll offset (0 if none).
func (s *SQLiteStore) Offset(ctx context.Context) (int64, error) {
	var offset int64
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM checkpoints WHERE name = ?`, offsetCheckpoint,
	).Scan(&offset)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("store: read offset: %w", err)
	}
	return offset, nil
}

// SetOffset checkpoints the long-poll offset.
func (s *SQLiteStore) SetOffset(ctx context.Context, offset int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO checkpoints (name, value) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value`,
		offsetCheckpoint, offset,
	)
	if err != nil {
		return fmt.Errorf("store: set offset: %w", err)
	}
	return nil
}

// Append stores an evaluation record.
func (s *SQLiteStore) Append(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO evaluations (rec_id, update_id, chat_id, input, ok, result, elapsed, time)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.UpdateID,
		rec.ChatID,
		rec.Input,
		boolToInt(rec.OK),
		rec.Result,
		int64(rec.Elapsed),
		rec.Time.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("store: append: %w", err)
	}
	return nil
}

// List returns the most recent records, newest first.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Record, error) {
	query := `SELECT rec_id, update_id, chat_id, input, ok, result, elapsed, time
	           FROM evaluations ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec         Record
			ok          int
			elapsedNano int64
			timeStr     string
		)
		if err := rows.Scan(&rec.ID, &rec.UpdateID, &rec.ChatID, &rec.Input, &ok, &rec.Result, &elapsedNano, &timeStr); err != nil {
			return nil, fmt.Errorf("store: scan record: %w", err)
		}
		rec.OK = ok != 0
		rec.Elapsed = time.Duration(elapsedNano)
		t, err := time.Parse(time.RFC3339Nano, timeStr)
		if err != nil {
			return nil, fmt.Errorf("store: parse time %q: %w", timeStr, err)
		}
		rec.Time = t
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Prune applies the configured retention policy.
func (s *SQLiteStore) Prune(ctx context.Context) error {
	if s.cfg.RetentionAge > 0 {
		cutoff := time.Now().Add(-s.cfg.RetentionAge).UTC().Format(time.RFC3339Nano)
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM evaluations WHERE time < ?`, cutoff,
		); err != nil {
			return fmt.Errorf("store: prune by age: %w", err)
		}
	}
	if s.cfg.RetentionCount > 0 {
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM evaluations WHERE id NOT IN (
				SELECT id FROM evaluations ORDER BY id DESC LIMIT ?
			)`, s.cfg.RetentionCount,
		); err != nil {
			return fmt.Errorf("store: prune by count: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Compile-time interface check.
var _ Store = (*SQLiteStore)(nil)
