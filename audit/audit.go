// Package audit keeps a local, file-backed record of administrative
// finalize runs: which container reached which step, and whether it
// succeeded. It exists alongside the flag store (which only ever holds the
// current lifecycle latches) so an operator can answer "what did the last
// finalize sweep actually do" after the fact, the way boxer.go's sqlite-backed
// sandbox table answers "what sandboxes exist" for sand.
package audit

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store persists finalize-run audit rows in a local sqlite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite database at path, enables
// WAL mode for concurrent readers, and applies any pending migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: enable WAL: %w", err)
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func migrateUp(db *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("audit: load migrations: %w", err)
	}
	target, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("audit: migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", target)
	if err != nil {
		return fmt.Errorf("audit: new migrator: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("audit: apply migrations: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record is one row of the finalize_runs table: a single step of a single
// container's finalize attempt.
type Record struct {
	ID          string
	Namespace   string
	ContainerID string
	Step        string
	OK          bool
	Detail      string
	StartedAt   time.Time
}

// RecordStep inserts one audit row. Failures to record are logged rather
// than propagated: a finalize sweep's actual checkpoint/kill/rm steps must
// never be blocked on the audit log being writable.
func (s *Store) RecordStep(ctx context.Context, ns, id, step string, ok bool, detail string) {
	rec := Record{
		ID:          uuid.NewString(),
		Namespace:   ns,
		ContainerID: id,
		Step:        step,
		OK:          ok,
		Detail:      detail,
		StartedAt:   time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO finalize_runs (id, namespace, container_id, step, ok, detail, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Namespace, rec.ContainerID, rec.Step, boolToInt(rec.OK), rec.Detail, rec.StartedAt.Format(time.RFC3339))
	if err != nil {
		slog.WarnContext(ctx, "audit.RecordStep: insert failed", "ns", ns, "id", id, "step", step, "err", err)
	}
}

// ForContainer returns every recorded step for (ns, id), oldest first.
func (s *Store) ForContainer(ctx context.Context, ns, id string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, namespace, container_id, step, ok, detail, started_at
		 FROM finalize_runs WHERE namespace = ? AND container_id = ? ORDER BY started_at ASC`,
		ns, id)
	if err != nil {
		return nil, fmt.Errorf("audit: query %s/%s: %w", ns, id, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var ok int
		var started string
		if err := rows.Scan(&rec.ID, &rec.Namespace, &rec.ContainerID, &rec.Step, &ok, &rec.Detail, &started); err != nil {
			return nil, fmt.Errorf("audit: scan row: %w", err)
		}
		rec.OK = ok != 0
		rec.StartedAt, _ = time.Parse(time.RFC3339, started)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
