package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore creates a new SQLite store and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to open database", ErrConnectionFailed)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// Deployment History
// =============================================================================

// deploymentRow is the database shape of a DeploymentRecord. Timestamps are
// stored as RFC3339 strings so SQLite can compare them lexically.
type deploymentRow struct {
	ID            string `db:"id"`
	ContainerName string `db:"container_name"`
	Image         string `db:"image"`
	FinalState    string `db:"final_state"`
	Reason        string `db:"reason"`
	Diagnostic    string `db:"diagnostic"`
	Attempts      int    `db:"attempts"`
	Source        string `db:"source"`
	StartedAt     string `db:"started_at"`
	FinishedAt    string `db:"finished_at"`
}

func (s *SQLiteStore) RecordDeployment(ctx context.Context, rec *DeploymentRecord) error {
	query := `
		INSERT INTO deployments (
			id, container_name, image, final_state, reason, diagnostic,
			attempts, source, started_at, finished_at
		) VALUES (
			:id, :container_name, :image, :final_state, :reason, :diagnostic,
			:attempts, :source, :started_at, :finished_at
		)`

	row := map[string]any{
		"id":             rec.ID,
		"container_name": rec.ContainerName,
		"image":          rec.Image,
		"final_state":    rec.FinalState,
		"reason":         rec.Reason,
		"diagnostic":     rec.Diagnostic,
		"attempts":       rec.Attempts,
		"source":         rec.Source,
		"started_at":     rec.StartedAt.UTC().Format(time.RFC3339Nano),
		"finished_at":    rec.FinishedAt.UTC().Format(time.RFC3339Nano),
	}

	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: deployments.id") {
			return NewStoreError("RecordDeployment", "deployment", rec.ID, "record with this ID already exists", ErrDuplicateID)
		}
		return NewStoreError("RecordDeployment", "deployment", rec.ID, err.Error(), err)
	}

	return nil
}

func (s *SQLiteStore) GetDeployment(ctx context.Context, id string) (*DeploymentRecord, error) {
	query := `SELECT * FROM deployments WHERE id = ?`

	var row deploymentRow
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetDeployment", "deployment", id, "record not found", ErrNotFound)
		}
		return nil, NewStoreError("GetDeployment", "deployment", id, err.Error(), err)
	}

	return rowToRecord(&row)
}

func (s *SQLiteStore) ListDeployments(ctx context.Context, opts ListOptions) ([]DeploymentRecord, error) {
	opts = opts.Normalize()
	query := `SELECT * FROM deployments ORDER BY finished_at DESC LIMIT ? OFFSET ?`

	var rows []deploymentRow
	if err := s.db.SelectContext(ctx, &rows, query, opts.Limit, opts.Offset); err != nil {
		return nil, NewStoreError("ListDeployments", "deployment", "", err.Error(), err)
	}

	return rowsToRecords(rows)
}

func (s *SQLiteStore) ListDeploymentsByName(ctx context.Context, name string, opts ListOptions) ([]DeploymentRecord, error) {
	opts = opts.Normalize()
	query := `SELECT * FROM deployments WHERE container_name = ? ORDER BY finished_at DESC LIMIT ? OFFSET ?`

	var rows []deploymentRow
	if err := s.db.SelectContext(ctx, &rows, query, name, opts.Limit, opts.Offset); err != nil {
		return nil, NewStoreError("ListDeploymentsByName", "deployment", name, err.Error(), err)
	}

	return rowsToRecords(rows)
}

func (s *SQLiteStore) PruneDeployments(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM deployments WHERE finished_at < ?`

	result, err := s.db.ExecContext(ctx, query, cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, NewStoreError("PruneDeployments", "deployment", "", err.Error(), err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, NewStoreError("PruneDeployments", "deployment", "", err.Error(), err)
	}
	return removed, nil
}

// =============================================================================
// Row Conversion
// =============================================================================

func rowToRecord(row *deploymentRow) (*DeploymentRecord, error) {
	startedAt, err := time.Parse(time.RFC3339Nano, row.StartedAt)
	if err != nil {
		return nil, NewStoreError("rowToRecord", "deployment", row.ID, "invalid started_at timestamp", err)
	}
	finishedAt, err := time.Parse(time.RFC3339Nano, row.FinishedAt)
	if err != nil {
		return nil, NewStoreError("rowToRecord", "deployment", row.ID, "invalid finished_at timestamp", err)
	}

	return &DeploymentRecord{
		ID:            row.ID,
		ContainerName: row.ContainerName,
		Image:         row.Image,
		FinalState:    row.FinalState,
		Reason:        row.Reason,
		Diagnostic:    row.Diagnostic,
		Attempts:      row.Attempts,
		Source:        row.Source,
		StartedAt:     startedAt,
		FinishedAt:    finishedAt,
	}, nil
}

func rowsToRecords(rows []deploymentRow) ([]DeploymentRecord, error) {
	records := make([]DeploymentRecord, 0, len(rows))
	for i := range rows {
		rec, err := rowToRecord(&rows[i])
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, nil
}
