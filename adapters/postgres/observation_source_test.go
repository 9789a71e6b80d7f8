package postgres

import (
	"context"
	"regexp"
	"testing"

	"abtest/domain/core"
	"abtest/domain/experiment"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var observationColumns = []string{"arm", "date", "pageviews", "clicks", "enrollments", "payments"}

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func TestObservationRepository_Load(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT arm, date, pageviews, clicks, enrollments, payments`)).
		WillReturnRows(sqlmock.NewRows(observationColumns).
			AddRow("Control", "Sat, Oct 11", 7723, 687, 134, 70).
			AddRow("Experiment", "Sat, Oct 11", 7716, 686, 105, 34).
			AddRow("control", "Mon, Nov 3", 9437, 788, nil, nil).
			AddRow("experiment", "Mon, Nov 3", 9420, 781, nil, nil))

	table, err := NewObservationRepository(db, "").Load(context.Background())
	require.NoError(t, err)

	require.Len(t, table.Control, 2)
	require.Len(t, table.Experiment, 2)
	assert.Equal(t, int64(7723), table.Control[0].Pageviews)
	assert.Equal(t, int64(105), *table.Experiment[0].Enrollments)
	assert.Nil(t, table.Control[1].Enrollments)
	assert.Nil(t, table.Experiment[1].Payments)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestObservationRepository_LoadQuotesTableName(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "udacity results"`)).
		WillReturnRows(sqlmock.NewRows(observationColumns).
			AddRow("Control", "d1", 10, 1, 1, 1).
			AddRow("Experiment", "d1", 10, 1, 1, 1))

	repo := NewObservationRepository(db, "udacity results")
	_, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "postgres:udacity results", repo.Describe())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestObservationRepository_LoadRejectsMissingClicks(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT arm, date`)).
		WillReturnRows(sqlmock.NewRows(observationColumns).
			AddRow("Control", "d1", 10, nil, 1, 1))

	_, err := NewObservationRepository(db, "").Load(context.Background())
	assert.ErrorIs(t, err, core.ErrDataShape)
}

func TestObservationRepository_LoadRejectsUnknownArm(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT arm, date`)).
		WillReturnRows(sqlmock.NewRows(observationColumns).
			AddRow("Treatment", "d1", 10, 1, 1, 1))

	_, err := NewObservationRepository(db, "").Load(context.Background())
	assert.ErrorIs(t, err, core.ErrDataShape)
}

func TestObservationRepository_Replace(t *testing.T) {
	db, mock := newMockDB(t)

	table := experiment.Table{
		Control:    []experiment.DailyObservation{{Date: "d1", Pageviews: 10, Clicks: 2, Enrollments: experiment.Count(1)}},
		Experiment: []experiment.DailyObservation{{Date: "d1", Pageviews: 11, Clicks: 3}},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "daily_observations"`)).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "daily_observations"`)).
		WithArgs("Control", "d1", int64(10), int64(2), int64(1), nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "daily_observations"`)).
		WithArgs("Experiment", "d1", int64(11), int64(3), nil, nil).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	require.NoError(t, NewObservationRepository(db, "").Replace(context.Background(), table))
	assert.NoError(t, mock.ExpectationsWereMet())
}
