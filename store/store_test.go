package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newSQLiteStore(t *testing.T, cfg SQLiteStoreConfig) *SQLiteStore {
	t.Helper()
	if cfg.DSN == "" {
		cfg.DSN = filepath.Join(t.TempDir(), "mathbot.db")
	}
	s, err := NewSQLiteStore(cfg)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func testStoreSuite(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("offset roundtrip", func(t *testing.T) {
		offset, err := s.Offset(ctx)
		if err != nil {
			t.Fatalf("Offset failed: %v", err)
		}
		if offset != 0 {
			t.Errorf("initial offset = %d, want 0", offset)
		}

		if err := s.SetOffset(ctx, 1234); err != nil {
			t.Fatalf("SetOffset failed: %v", err)
		}
		if err := s.SetOffset(ctx, 1240); err != nil {
			t.Fatalf("SetOffset overwrite failed: %v", err)
		}

		offset, err = s.Offset(ctx)
		if err != nil {
			t.Fatalf("Offset failed: %v", err)
		}
		if offset != 1240 {
			t.Errorf("offset = %d, want 1240", offset)
		}
	})

	t.Run("append and list", func(t *testing.T) {
		base := time.Now().UTC().Truncate(time.Millisecond)
		for i := 0; i < 3; i++ {
			rec := Record{
				ID:       string(rune('a' + i)),
				UpdateID: int64(100 + i),
				ChatID:   7,
				Input:    "2+2",
				OK:       true,
				Result:   "4",
				Elapsed:  time.Millisecond,
				Time:     base.Add(time.Duration(i) * time.Second),
			}
			if err := s.Append(ctx, rec); err != nil {
				t.Fatalf("Append failed: %v", err)
			}
		}

		records, err := s.List(ctx, 2)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("got %d records, want 2", len(records))
		}
		// Newest first.
		if records[0].UpdateID != 102 || records[1].UpdateID != 101 {
			t.Errorf("unexpected order: %d, %d", records[0].UpdateID, records[1].UpdateID)
		}
		if !records[0].OK || records[0].Result != "4" {
			t.Errorf("unexpected record: %+v", records[0])
		}
	})
}

func TestMemStore(t *testing.T) {
	testStoreSuite(t, NewMemStore(MemStoreConfig{}))
}

func TestSQLiteStore(t *testing.T) {
	testStoreSuite(t, newSQLiteStore(t, SQLiteStoreConfig{}))
}

func TestSQLiteStore_OffsetSurvivesReopen(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "mathbot.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(SQLiteStoreConfig{DSN: dsn})
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	if err := s.SetOffset(ctx, 999); err != nil {
		t.Fatalf("SetOffset failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := newSQLiteStore(t, SQLiteStoreConfig{DSN: dsn})
	offset, err := reopened.Offset(ctx)
	if err != nil {
		t.Fatalf("Offset failed: %v", err)
	}
	if offset != 999 {
		t.Errorf("offset = %d, want 999", offset)
	}
}

func TestPrune_ByCount(t *testing.T) {
	stores := map[string]Store{
		"mem":    NewMemStore(MemStoreConfig{RetentionCount: 2}),
		"sqlite": newSQLiteStore(t, SQLiteStoreConfig{RetentionCount: 2}),
	}

	ctx := context.Background()
	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 5; i++ {
				rec := Record{
					UpdateID: int64(i),
					Input:    "1+1",
					OK:       true,
					Result:   "2",
					Time:     time.Now().UTC(),
				}
				if err := s.Append(ctx, rec); err != nil {
					t.Fatalf("Append failed: %v", err)
				}
			}

			if err := s.Prune(ctx); err != nil {
				t.Fatalf("Prune failed: %v", err)
			}
			records, err := s.List(ctx, 0)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(records) != 2 {
				t.Fatalf("got %d records after prune, want 2", len(records))
			}
			if records[0].UpdateID != 4 || records[1].UpdateID != 3 {
				t.Errorf("kept wrong records: %d, %d", records[0].UpdateID, records[1].UpdateID)
			}
		})
	}
}

func TestPrune_ByAge(t *testing.T) {
	stores := map[string]Store{
		"mem":    NewMemStore(MemStoreConfig{RetentionAge: time.Hour}),
		"sqlite": newSQLiteStore(t, SQLiteStoreConfig{RetentionAge: time.Hour}),
	}

	ctx := context.Background()
	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			old := Record{UpdateID: 1, Time: time.Now().Add(-2 * time.Hour).UTC()}
			fresh := Record{UpdateID: 2, Time: time.Now().UTC()}
			for _, rec := range []Record{old, fresh} {
				if err := s.Append(ctx, rec); err != nil {
					t.Fatalf("Append failed: %v", err)
				}
			}

			if err := s.Prune(ctx); err != nil {
				t.Fatalf("Prune failed: %v", err)
			}
			records, err := s.List(ctx, 0)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(records) != 1 || records[0].UpdateID != 2 {
				t.Errorf("unexpected records after prune: %+v", records)
			}
		})
	}
}
