package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/flowpbx/promptaudit/internal/usage"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordRunRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	usages := usage.Map{
		"welcome.wav": {"Receptionist: 100 Main"},
		"hold.wav":    {"Queue OnHoldFile: 800 Support", "Conference: MusicOnHold"},
	}
	rec := RunRecord{
		SnapshotID:   "snap-1",
		CapturedAt:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Source:       "pbx.example.com",
		PromptsTotal: 5,
		PromptsUsed:  2,
	}

	if err := db.RecordRun(ctx, &rec, usages); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if rec.ID == 0 {
		t.Fatal("RecordRun should set the run ID")
	}

	runs, err := db.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	got := runs[0]
	if got.SnapshotID != "snap-1" || got.Source != "pbx.example.com" {
		t.Errorf("unexpected run: %+v", got)
	}
	if got.PromptsTotal != 5 || got.PromptsUsed != 2 {
		t.Errorf("unexpected counts: %+v", got)
	}

	counts, err := db.UsageCounts(ctx, rec.ID)
	if err != nil {
		t.Fatalf("UsageCounts: %v", err)
	}
	if counts["welcome.wav"] != 1 || counts["hold.wav"] != 2 {
		t.Errorf("unexpected counts: %v", counts)
	}
}

func TestRecentRunsOrderAndLimit(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for i, id := range []string{"snap-a", "snap-b", "snap-c"} {
		rec := RunRecord{
			SnapshotID: id,
			CapturedAt: time.Date(2026, 8, 1+i, 0, 0, 0, 0, time.UTC),
			Source:     "pbx.example.com",
		}
		if err := db.RecordRun(ctx, &rec, nil); err != nil {
			t.Fatalf("RecordRun %s: %v", id, err)
		}
	}

	runs, err := db.RecentRuns(ctx, 2)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].SnapshotID != "snap-c" || runs[1].SnapshotID != "snap-b" {
		t.Errorf("runs out of order: %v, %v", runs[0].SnapshotID, runs[1].SnapshotID)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	db.Close()

	// A second open must not re-run applied migrations.
	db, err = Open(path)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	db.Close()
}
