// Command promptaudit queries a PBX administrative API, caches a snapshot of
// every configuration entity that can reference an audio prompt, and prints
// a report of which prompt files are in use and where.
//
// When the cache directory already holds a snapshot, the run is served
// entirely from cache and no network request is made.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/flowpbx/promptaudit/internal/config"
	"github.com/flowpbx/promptaudit/internal/history"
	"github.com/flowpbx/promptaudit/internal/report"
	"github.com/flowpbx/promptaudit/internal/snapshot"
	"github.com/flowpbx/promptaudit/internal/usage"
	"github.com/flowpbx/promptaudit/internal/xapi"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr so the report on stdout stays pipeable.
	logger := slog.New(cfg.SlogHandler(os.Stderr))
	slog.SetDefault(logger)

	if err := run(cfg); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()
	store := snapshot.NewStore(cfg.CacheDir)

	if cfg.ClearCache {
		if err := store.Clear(); err != nil {
			return err
		}
		slog.Info("cache cleared", "cache_dir", cfg.CacheDir)
	}

	snap, err := obtainSnapshot(ctx, cfg, store)
	if err != nil {
		return err
	}

	known := snap.PromptFilenames()
	usages := usage.Resolve(known, usage.Sources{
		Receptionists: snap.Receptionists,
		Queues:        snap.Queues,
		Groups:        snap.Groups,
		MusicOnHold:   snap.MusicOnHold,
		Conference:    snap.Conference,
		CallParking:   snap.CallParking,
	})

	report.Render(os.Stdout, usages)
	report.RenderCallFlowApps(os.Stdout, snap.CallFlowApps)

	if !cfg.NoHistory {
		recordHistory(ctx, cfg, snap, known, usages)
	}
	return nil
}

// obtainSnapshot serves the run from cache when a snapshot is present,
// otherwise collects one live and writes it to the cache.
func obtainSnapshot(ctx context.Context, cfg *config.Config, store *snapshot.Store) (*snapshot.Snapshot, error) {
	if store.Present() {
		slog.Info("using cached snapshot", "cache_dir", cfg.CacheDir)
		return store.Load()
	}

	if cfg.FQDN == "" {
		return nil, fmt.Errorf("no cached snapshot in %s and no -fqdn configured", cfg.CacheDir)
	}
	if cfg.Token() == "" {
		slog.Warn("no bearer token configured, the PBX will likely reject requests")
	}

	client := xapi.NewClient(cfg.BaseURL(), cfg.Token(), cfg.Timeout)
	snap, err := snapshot.Collect(ctx, client, cfg.FQDN)
	if err != nil {
		return nil, err
	}

	if err := store.Save(snap); err != nil {
		return nil, err
	}
	slog.Info("snapshot cached", "cache_dir", cfg.CacheDir)
	return snap, nil
}

// recordHistory appends the run to the history database. Best-effort: any
// failure is logged and swallowed, the printed report is the product.
func recordHistory(ctx context.Context, cfg *config.Config, snap *snapshot.Snapshot, known map[string]struct{}, usages usage.Map) {
	db, err := history.Open(cfg.HistoryDB)
	if err != nil {
		slog.Warn("skipping run history", "error", err)
		return
	}
	defer db.Close()

	rec := history.RunRecord{
		SnapshotID:   snap.Meta.ID,
		CapturedAt:   snap.Meta.CapturedAt,
		Source:       snap.Meta.Source,
		PromptsTotal: len(known),
		PromptsUsed:  len(usages),
	}
	if err := db.RecordRun(ctx, &rec, usages); err != nil {
		slog.Warn("failed to record run history", "error", err)
		return
	}
	slog.Debug("run recorded", "run_id", rec.ID, "snapshot_id", rec.SnapshotID)
}
