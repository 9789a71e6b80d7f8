package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"abtest/domain/core"
	"abtest/domain/experiment"
	"abtest/ports"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// DefaultObservationTable is the table created by the migration runner
const DefaultObservationTable = "daily_observations"

type observationRow struct {
	Arm         string        `db:"arm"`
	Date        string        `db:"date"`
	Pageviews   sql.NullInt64 `db:"pageviews"`
	Clicks      sql.NullInt64 `db:"clicks"`
	Enrollments sql.NullInt64 `db:"enrollments"`
	Payments    sql.NullInt64 `db:"payments"`
}

// ObservationRepository reads and writes the daily table in PostgreSQL
type ObservationRepository struct {
	db    *sqlx.DB
	table string
}

var _ ports.ObservationSource = (*ObservationRepository)(nil)

// NewObservationRepository creates a repository over the given table
func NewObservationRepository(db *sqlx.DB, table string) *ObservationRepository {
	if table == "" {
		table = DefaultObservationTable
	}
	return &ObservationRepository{db: db, table: table}
}

// Describe names the backing table
func (r *ObservationRepository) Describe() string {
	return "postgres:" + r.table
}

// Load reads every row, splitting by arm. Rows keep their database order
// within each arm (by row id, so insertion order).
func (r *ObservationRepository) Load(ctx context.Context) (experiment.Table, error) {
	query := fmt.Sprintf(`
		SELECT arm, date, pageviews, clicks, enrollments, payments
		FROM %s
		ORDER BY id
	`, pq.QuoteIdentifier(r.table))

	var rows []observationRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return experiment.Table{}, fmt.Errorf("failed to load observations from %s: %w", r.table, err)
	}

	var table experiment.Table
	for i, row := range rows {
		arm, err := experiment.ParseArm(row.Arm)
		if err != nil {
			return experiment.Table{}, fmt.Errorf("row %d: %w", i+1, err)
		}
		if !row.Pageviews.Valid || !row.Clicks.Valid {
			return experiment.Table{}, core.NewDataShapeError("%s %s: pageviews and clicks are required", arm, row.Date)
		}

		obs := experiment.DailyObservation{
			Date:      row.Date,
			Pageviews: row.Pageviews.Int64,
			Clicks:    row.Clicks.Int64,
		}
		if row.Enrollments.Valid {
			obs.Enrollments = experiment.Count(row.Enrollments.Int64)
		}
		if row.Payments.Valid {
			obs.Payments = experiment.Count(row.Payments.Int64)
		}

		if arm == experiment.ArmControl {
			table.Control = append(table.Control, obs)
		} else {
			table.Experiment = append(table.Experiment, obs)
		}
	}

	if err := table.Validate(); err != nil {
		return experiment.Table{}, err
	}
	return table, nil
}

// Replace swaps the stored table for the given one in a single transaction
func (r *ObservationRepository) Replace(ctx context.Context, table experiment.Table) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	quoted := pq.QuoteIdentifier(r.table)
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, quoted)); err != nil {
		return fmt.Errorf("failed to clear %s: %w", r.table, err)
	}

	insert := fmt.Sprintf(`
		INSERT INTO %s (arm, date, pageviews, clicks, enrollments, payments)
		VALUES (:arm, :date, :pageviews, :clicks, :enrollments, :payments)
	`, quoted)
	for _, arm := range []experiment.Arm{experiment.ArmControl, experiment.ArmExperiment} {
		for _, obs := range table.Rows(arm) {
			if _, err := tx.NamedExecContext(ctx, insert, toRow(arm, obs)); err != nil {
				return fmt.Errorf("failed to insert %s %s: %w", arm, obs.Date, err)
			}
		}
	}

	return tx.Commit()
}

func toRow(arm experiment.Arm, obs experiment.DailyObservation) observationRow {
	row := observationRow{
		Arm:       string(arm),
		Date:      obs.Date,
		Pageviews: sql.NullInt64{Int64: obs.Pageviews, Valid: true},
		Clicks:    sql.NullInt64{Int64: obs.Clicks, Valid: true},
	}
	if obs.Enrollments != nil {
		row.Enrollments = sql.NullInt64{Int64: *obs.Enrollments, Valid: true}
	}
	if obs.Payments != nil {
		row.Payments = sql.NullInt64{Int64: *obs.Payments, Valid: true}
	}
	return row
}
