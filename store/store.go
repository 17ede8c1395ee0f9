// Package store persists the bot's operational state: the long-poll offset
// checkpoint and an audit log of handled evaluations. No conversation state
// is kept — records exist for operations, not for dialogue.
package store

import (
	"context"
	"time"
)

// Record is one handled evaluation.
type Record struct {
	// ID is a correlation ID assigned by the poller.
	ID string

	// UpdateID is the Telegram update that carried the input.
	UpdateID int64

	// ChatID is the originating chat.
	ChatID int64

	// Input is the raw expression text.
	Input string

	// OK reports whether evaluation succeeded.
	OK bool

	// Result is the rendered value when OK.
	Result string

	// Elapsed is the evaluation duration.
	Elapsed time.Duration

	// Time is when the update was handled.
	Time time.Time
}

// Store is the persistence interface the poller depends on.
type Store interface {
	// Offset returns the checkpointed long-poll offset (0 if none).
	Offset(ctx context.Context) (int64, error)

	// SetOffset checkpoints the long-poll offset.
	SetOffset(ctx context.Context, offset int64) error

	// Append stores an evaluation record.
	Append(ctx context.Context, rec Record) error

	// List returns the most recent records, newest first, up to limit
	// (0 = no limit).
	List(ctx context.Context, limit int) ([]Record, error)

	// Prune applies the configured retention policy.
	Prune(ctx context.Context) error

	// Close releases underlying resources.
	Close() error
}
