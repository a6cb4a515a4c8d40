package history

import (
	"context"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	entries := []Entry{
		{Role: "tx", Device: "/dev/ttyS0", FileName: "a.bin", StartedAt: now, EndedAt: now.Add(time.Second), BytesSent: 10},
		{Role: "rx", Device: "/dev/ttyS0", FileName: "b.bin", StartedAt: now.Add(time.Minute), EndedAt: now.Add(2 * time.Minute), BytesReceived: 20},
	}
	for _, e := range entries {
		if err := store.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	// Most recently started first.
	if got[0].FileName != "b.bin" || got[1].FileName != "a.bin" {
		t.Errorf("order = [%s, %s], want [b.bin, a.bin]", got[0].FileName, got[1].FileName)
	}
}

func TestRecordGeneratesID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Record(ctx, Entry{Role: "tx", Device: "x", StartedAt: time.Now(), EndedAt: time.Now()}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := store.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 || got[0].ID == "" {
		t.Fatalf("expected one entry with a generated ID, got %+v", got)
	}
}

func TestGetByID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	now := time.Now()
	e := Entry{ID: "fixed-id", Role: "tx", Device: "x", FileName: "f.bin", StartedAt: now, EndedAt: now}
	if err := store.Record(ctx, e); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := store.Get(ctx, "fixed-id")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.FileName != "f.bin" {
		t.Errorf("FileName = %q, want f.bin", got.FileName)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	// The bootstrapped table must still be usable after the second run.
	e := Entry{Role: "tx", Device: "x", StartedAt: time.Now(), EndedAt: time.Now()}
	if err := store.Record(ctx, e); err != nil {
		t.Fatalf("Record after re-migrate: %v", err)
	}
}
