// Package history keeps a small SQLite record of past audit runs, so usage
// of a prompt can be traced across snapshots ("when did welcome.wav stop
// being referenced?"). Recording is best-effort: the report never fails
// because history could not be written.
package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/flowpbx/promptaudit/internal/usage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps the run-history database connection.
type DB struct {
	*sql.DB
}

// RunRecord is one audit run as stored in the runs table.
type RunRecord struct {
	ID           int64
	SnapshotID   string
	CapturedAt   time.Time
	Source       string
	PromptsTotal int
	PromptsUsed  int
	CreatedAt    time.Time
}

// Open creates or opens the history database at path with WAL mode enabled
// and runs any pending migrations.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)", path)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging history database: %w", err)
	}

	// SQLite performs best with a single writer connection.
	sqlDB.SetMaxOpenConns(1)

	db := &DB{DB: sqlDB}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	slog.Debug("history database opened", "path", path)
	return db, nil
}

// migrate runs all pending SQL migration files in order.
func (db *DB) migrate() error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at DATETIME DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version := strings.TrimSuffix(entry.Name(), ".sql")

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version).Scan(&count); err != nil {
			return fmt.Errorf("checking migration %s: %w", version, err)
		}
		if count > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile(filepath.Join("migrations", entry.Name()))
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", version, err)
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %s: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", version, err)
		}
	}
	return nil
}

// RecordRun stores one run row plus a prompt_usages row per used filename,
// in a single transaction. rec.ID is set on success.
func (db *DB) RecordRun(ctx context.Context, rec *RunRecord, usages usage.Map) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning run transaction: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO runs (snapshot_id, captured_at, source, prompts_total, prompts_used)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.SnapshotID, rec.CapturedAt.UTC(), rec.Source, rec.PromptsTotal, rec.PromptsUsed,
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("inserting run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("getting run id: %w", err)
	}

	for filename, entries := range usages {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO prompt_usages (run_id, filename, usage_count) VALUES (?, ?, ?)`,
			runID, filename, len(entries),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting usage for %s: %w", filename, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run: %w", err)
	}

	rec.ID = runID
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (db *DB) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, snapshot_id, captured_at, source, prompts_total, prompts_used, created_at
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.SnapshotID, &r.CapturedAt, &r.Source,
			&r.PromptsTotal, &r.PromptsUsed, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// UsageCounts returns the recorded per-filename usage counts for a run.
func (db *DB) UsageCounts(ctx context.Context, runID int64) (map[string]int, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT filename, usage_count FROM prompt_usages WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying prompt usages: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var filename string
		var count int
		if err := rows.Scan(&filename, &count); err != nil {
			return nil, fmt.Errorf("scanning usage row: %w", err)
		}
		counts[filename] = count
	}
	return counts, rows.Err()
}
