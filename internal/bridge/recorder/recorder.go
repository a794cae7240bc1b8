// Package recorder persists per-spin summaries to sqlite for offline
// inspection of what the bridge published.
package recorder

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/velodyne.bridge/internal/bridge"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Recorder writes spin summaries to a sqlite database.
type Recorder struct {
	db *sql.DB
}

// New opens (or creates) the database at path and applies any pending
// migrations.
func New(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spin database: %w", err)
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Recorder{db: db}, nil
}

func migrateUp(db *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// migrateLogger implements migrate.Logger interface
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	log.Printf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return false
}

// RecordSpin inserts one spin summary.
func (r *Recorder) RecordSpin(ctx context.Context, s bridge.SpinSummary) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO spins (spin_id, stamp_ns, frame_id, packets, points, mean_range, std_range, min_range, max_range, mean_intensity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), s.StampNs, s.FrameID, s.Packets, s.Points,
		s.MeanRange, s.StdRange, s.MinRange, s.MaxRange, s.MeanIntensity)
	if err != nil {
		return fmt.Errorf("failed to insert spin: %w", err)
	}
	return nil
}

// RecentSpins returns up to limit summaries, newest first.
func (r *Recorder) RecentSpins(ctx context.Context, limit int) ([]bridge.SpinSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT stamp_ns, frame_id, packets, points, mean_range, std_range, min_range, max_range, mean_intensity
		FROM spins ORDER BY stamp_ns DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query spins: %w", err)
	}
	defer rows.Close()

	var out []bridge.SpinSummary
	for rows.Next() {
		var s bridge.SpinSummary
		if err := rows.Scan(&s.StampNs, &s.FrameID, &s.Packets, &s.Points,
			&s.MeanRange, &s.StdRange, &s.MinRange, &s.MaxRange, &s.MeanIntensity); err != nil {
			return nil, fmt.Errorf("failed to scan spin: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (r *Recorder) Close() error {
	return r.db.Close()
}
