package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"regexp"
	"testing"

	"abtest/domain/stats"
	"abtest/internal"
	"abtest/internal/errors"
	"abtest/internal/migration"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LOG_LEVEL", "")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level", "ERROR"))
	err := cmd.Execute()
	return out.String(), err
}

func TestSignTestCommand(t *testing.T) {
	out, err := run(t, "signtest", "--successes", "4", "--trials", "23")
	require.NoError(t, err)
	assert.Contains(t, out, "p = 0.0026, significant at alpha 0.05")

	out, err = run(t, "signtest", "--successes", "10", "--trials", "23", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"p_value": 0.6776`)

	_, err = run(t, "signtest", "--successes", "30", "--trials", "23")
	assert.Error(t, err)
}

func TestPlanCommand(t *testing.T) {
	out, err := run(t, "plan", "--format", "json")
	require.NoError(t, err)

	var plan stats.ExperimentPlan
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	assert.Equal(t, 4741212.0, plan.TotalPageviews)
	require.Len(t, plan.Metrics, 3)
	assert.Equal(t, int64(25835), plan.Metrics[0].SampleSize)
}

func TestGenerateThenAnalyze(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.xlsx")

	out, err := run(t, "generate", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, "fingerprint ")

	out, err = run(t, "analyze", path, "--format", "json")
	require.NoError(t, err)

	var report stats.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 23, report.EligibleDays)
	assert.Equal(t, 37, report.Control.Days)
	require.Len(t, report.Metrics, 2)
	assert.NotNil(t, report.Metrics[0].Effect)

	again, err := run(t, "analyze", path, "--format", "json")
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestAnalyzeWithoutInput(t *testing.T) {
	_, err := run(t, "analyze")
	require.Error(t, err)
	assert.Equal(t, 2, errors.ExitCode(err))
}

func TestAnalyzeMissingFile(t *testing.T) {
	_, err := run(t, "analyze", filepath.Join(t.TempDir(), "absent.xlsx"))
	assert.Error(t, err)
}

func TestApplySchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "daily_observations"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE INDEX IF NOT EXISTS "idx_daily_observations_arm"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	var buf bytes.Buffer
	logger := internal.NewLoggerWithWriter(internal.LogLevelInfo, &buf)
	require.NoError(t, applySchema(context.Background(), migration.NewRunner(""), sqlx.NewDb(db, "postgres"), logger))
	assert.Contains(t, buf.String(), "schema version 1.0.0 applied")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateRequiresDatabaseURL(t *testing.T) {
	_, err := run(t, "migrate")
	require.Error(t, err)
	assert.Equal(t, 2, errors.ExitCode(err))
}
