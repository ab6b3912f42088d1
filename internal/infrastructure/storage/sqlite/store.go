// Package sqlite хранит сводки прогонов симулятора баланса.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"fourad-server/internal/infrastructure/storage/sqlite/migrations"
	"fourad-server/pkg/logger"

	_ "modernc.org/sqlite"
)

const migrationTable = "schema_migrations"

var ErrNotConfigured = errors.New("storage is not configured")

// Run - одна сводка прогона.
type Run struct {
	ID         int64
	Scenario   string
	Seed       uint32
	Trials     int
	Victories  int
	Wipes      int
	Escapes    int
	Stalemates int
	HeroDeaths int
	AvgRounds  float64
	CreatedAt  time.Time
}

// Store - хранилище прогонов в SQLite.
type Store struct {
	db *sql.DB
}

// Open открывает базу и применяет встроенные миграции.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Один писатель: сводки пишет только cmd/simulate.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close закрывает соединение.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun записывает сводку и возвращает ее ID.
func (s *Store) SaveRun(ctx context.Context, run Run) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.db == nil {
		return 0, ErrNotConfigured
	}
	if strings.TrimSpace(run.Scenario) == "" {
		return 0, fmt.Errorf("scenario is required")
	}
	if run.Trials <= 0 {
		return 0, fmt.Errorf("trials must be greater than zero")
	}
	created := run.CreatedAt.UTC()
	if run.CreatedAt.IsZero() {
		created = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sim_runs (
		   scenario, seed, trials, victories, wipes, escapes, stalemates, hero_deaths, avg_rounds, created_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Scenario,
		int64(run.Seed),
		run.Trials,
		run.Victories,
		run.Wipes,
		run.Escapes,
		run.Stalemates,
		run.HeroDeaths,
		run.AvgRounds,
		created.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("save sim run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("save sim run: %w", err)
	}

	logger.Component("sqlite").WithField("run_id", id).Debug("Sim run saved.")
	return id, nil
}

// ListRuns возвращает последние прогоны сценария (пустой сценарий - все), новые первыми.
func (s *Store) ListRuns(ctx context.Context, scenario string, limit int) ([]Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, ErrNotConfigured
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, scenario, seed, trials, victories, wipes, escapes, stalemates, hero_deaths, avg_rounds, created_at
		   FROM sim_runs
		  WHERE ? = '' OR scenario = ?
		  ORDER BY created_at DESC, id DESC
		  LIMIT ?`,
		scenario, scenario, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sim runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r       Run
			seed    int64
			created int64
		)
		if err := rows.Scan(&r.ID, &r.Scenario, &seed, &r.Trials, &r.Victories, &r.Wipes,
			&r.Escapes, &r.Stalemates, &r.HeroDeaths, &r.AvgRounds, &created); err != nil {
			return nil, fmt.Errorf("scan sim run: %w", err)
		}
		r.Seed = uint32(seed)
		r.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sim runs: %w", err)
	}
	return out, nil
}

// applyMigrations выполняет каждый .sql файл не больше одного раза, по порядку имен.
func applyMigrations(ctx context.Context, db *sql.DB, migrationFS fs.FS) error {
	entries, err := fs.ReadDir(migrationFS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+migrationTable+` (
	    name TEXT PRIMARY KEY,
	    applied_at INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, name := range files {
		var n int
		if err := db.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM `+migrationTable+` WHERE name = ?`, name).Scan(&n); err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if n > 0 {
			continue
		}

		content, err := fs.ReadFile(migrationFS, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO `+migrationTable+` (name, applied_at) VALUES (?, ?)`,
			name, time.Now().UTC().UnixMilli()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", name, err)
		}
	}
	return nil
}
