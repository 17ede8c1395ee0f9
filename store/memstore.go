package store

import (
	"context"
	"sync"
	"time"
)

// MemStoreConfig configures a MemStore.
type MemStoreConfig struct {
	// RetentionAge drops records older than this duration on Prune
	// (0 = no age pruning).
	RetentionAge time.Duration

	// RetentionCount keeps at most this many records on Prune
	// (0 = no count pruning).
	RetentionCount int
}

// MemStore is the in-memory Store used when no SQLite path is configured.
// State does not survive a restart, which matches the bot's default
// stateless posture.
type MemStore struct {
	cfg MemStoreConfig

	mu      sync.Mutex
	offset  int64
	records []Record
}

// NewMemStore creates an in-memory store.
func NewMemStore(cfg MemStoreConfig) *MemStore {
	return &MemStore{cfg: cfg}
}

// Offset returns the checkpointed offset.
func (s *MemStore) Offset(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset, nil
}

// SetOffset checkpoints the offset.
func (s *MemStore) SetOffset(_ context.Context, offset int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offset = offset
	return nil
}

// Append stores a record.
func (s *MemStore) Append(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// List returns records newest first.
func (s *MemStore) List(_ context.Context, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.records)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Record, 0, n)
	for i := len(s.records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}

// Prune applies the retention policy.
func (s *MemStore) Prune(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.RetentionAge > 0 {
		cutoff := time.Now().Add(-s.cfg.RetentionAge)
		kept := s.records[:0]
		for _, rec := range s.records {
			if !rec.Time.Before(cutoff) {
				kept = append(kept, rec)
			}
		}
		s.records = kept
	}
	if s.cfg.RetentionCount > 0 && len(s.records) > s.cfg.RetentionCount {
		s.records = append([]Record(nil), s.records[len(s.records)-s.cfg.RetentionCount:]...)
	}
	return nil
}

// Close is a no-op.
func (s *MemStore) Close() error { return nil }

// Compile-time interface check.
var _ Store = (*MemStore)(nil)
