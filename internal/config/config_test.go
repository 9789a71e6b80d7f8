package config

import (
	"os"
	"path/filepath"
	"testing"

	"abtest/domain/core"
	"abtest/domain/experiment"
	"abtest/domain/stats"
	"abtest/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("DATABASE_URL", "")
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, stats.DefaultParameters(), cfg.Analysis)
	assert.Equal(t, stats.DefaultPlanSettings(), cfg.Plan)
	assert.Equal(t, "Control", cfg.Source.ControlSheet)
	assert.Equal(t, "daily_observations", cfg.Source.Table)
}

func TestLoad_YAMLOverridesAndReplacesLists(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "abtest.yaml", `
log_level: debug
analysis:
  alpha: 0.01
  metrics:
    - name: retention
      numerator: payments
      denominator: enrollments
      mde: 0.01
plan:
  traffic_fractions: [0.5]
source:
  file: results.xlsx
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 0.01, cfg.Analysis.Alpha)
	assert.Equal(t, stats.DefaultZMultiplier, cfg.Analysis.ZMultiplier)
	require.Len(t, cfg.Analysis.Metrics, 1)
	assert.Equal(t, experiment.FieldPayments, cfg.Analysis.Metrics[0].Numerator)
	assert.Equal(t, experiment.FieldEnrollments, cfg.Analysis.Metrics[0].Denominator)
	assert.Equal(t, []float64{0.5}, cfg.Plan.TrafficFractions)
	assert.Len(t, cfg.Plan.Metrics, 3)
	assert.Equal(t, "results.xlsx", cfg.Source.Excel().FilePath)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ABTEST_ANALYSIS_Z_MULTIPLIER", "2.576")
	t.Setenv("ABTEST_SOURCE_TABLE", "screener_results")
	t.Setenv("DATABASE_URL", "postgres://localhost/abtest")
	t.Setenv("LOG_LEVEL", "trace")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 2.576, cfg.Analysis.ZMultiplier)
	assert.Equal(t, "screener_results", cfg.Source.Table)
	assert.Equal(t, "postgres://localhost/abtest", cfg.Source.DatabaseURL)
	assert.Equal(t, "trace", cfg.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)

	path := writeFile(t, "bad.yaml", "analysis:\n  alpha: 1.5\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
	assert.ErrorIs(t, err, core.ErrInvalidParameter)

	path = writeFile(t, "bad_field.yaml", `
analysis:
  metrics:
    - name: bogus
      numerator: signups
      denominator: clicks
`)
	_, err = Load(path)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestLoadDotEnv(t *testing.T) {
	const key = "ABTEST_DOTENV_PROBE"
	t.Cleanup(func() { os.Unsetenv(key) })

	path := writeFile(t, ".env", key+"=from-dotenv\n")
	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "absent.env")))
	assert.Equal(t, "from-dotenv", os.Getenv(key))
}
