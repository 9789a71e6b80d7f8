package migration

import (
	"context"
	"fmt"

	"abtest/internal/errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

var _ Migrator = (*MigrationRunner)(nil)

// MigrationRunner creates the observation table
type MigrationRunner struct {
	version          string
	observationTable string
}

// NewRunner creates a new migration runner for the given observation table
func NewRunner(observationTable string) *MigrationRunner {
	if observationTable == "" {
		observationTable = "daily_observations"
	}
	return &MigrationRunner{
		version:          "1.0.0",
		observationTable: observationTable,
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in order. Every statement is
// idempotent.
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createObservationsTable(ctx, db); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrapf(err, "failed to create %s table", r.observationTable))
	}

	if err := r.createArmIndex(ctx, db); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrapf(err, "failed to index %s", r.observationTable))
	}

	return nil
}

func (r *MigrationRunner) createObservationsTable(ctx context.Context, db *sqlx.DB) error {
	table := pq.QuoteIdentifier(r.observationTable)
	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			arm VARCHAR(20) NOT NULL CHECK (arm IN ('Control', 'Experiment')),
			date VARCHAR(64) NOT NULL,
			pageviews BIGINT NOT NULL CHECK (pageviews >= 0),
			clicks BIGINT NOT NULL CHECK (clicks >= 0),
			enrollments BIGINT CHECK (enrollments >= 0),
			payments BIGINT CHECK (payments >= 0),
			UNIQUE (arm, date)
		)
	`, table))
	return err
}

func (r *MigrationRunner) createArmIndex(ctx context.Context, db *sqlx.DB) error {
	index := pq.QuoteIdentifier("idx_" + r.observationTable + "_arm")
	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s ON %s(arm, id)
	`, index, pq.QuoteIdentifier(r.observationTable)))
	return err
}
