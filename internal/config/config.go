package config

import (
	"fmt"
	"os"
	"strings"

	"abtest/adapters/excel"
	"abtest/domain/experiment"
	"abtest/domain/stats"
	"abtest/internal/errors"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override (ABTEST_ANALYSIS_ALPHA, ...)
const EnvPrefix = "ABTEST"

// Config represents the complete application configuration
type Config struct {
	LogLevel string             `mapstructure:"log_level"`
	Analysis stats.Parameters   `mapstructure:"analysis"`
	Plan     stats.PlanSettings `mapstructure:"plan"`
	Source   SourceConfig       `mapstructure:"source"`
}

// SourceConfig says where the daily table comes from: a workbook/CSV file or
// a PostgreSQL table when DatabaseURL is set
type SourceConfig struct {
	File            string `mapstructure:"file"`
	ControlSheet    string `mapstructure:"control_sheet"`
	ExperimentSheet string `mapstructure:"experiment_sheet"`
	ArmColumn       string `mapstructure:"arm_column"`
	DatabaseURL     string `mapstructure:"database_url"`
	Table           string `mapstructure:"table"`
}

// Excel returns the reader configuration for the file source
func (s SourceConfig) Excel() excel.ExcelConfig {
	return excel.ExcelConfig{
		FilePath:        s.File,
		ControlSheet:    s.ControlSheet,
		ExperimentSheet: s.ExperimentSheet,
		ArmColumn:       s.ArmColumn,
	}
}

// Default returns the settings of the original free-trial screener analysis
func Default() *Config {
	xl := excel.DefaultExcelConfig()
	return &Config{
		LogLevel: "INFO",
		Analysis: stats.DefaultParameters(),
		Plan:     stats.DefaultPlanSettings(),
		Source: SourceConfig{
			ControlSheet:    xl.ControlSheet,
			ExperimentSheet: xl.ExperimentSheet,
			ArmColumn:       xl.ArmColumn,
			Table:           "daily_observations",
		},
	}
}

// scalar keys that may be overridden from the environment
var envKeys = []string{
	"log_level",
	"analysis.z_multiplier",
	"analysis.null_proportion",
	"analysis.precision",
	"analysis.alpha",
	"analysis.min_recorded_fields",
	"plan.sample_pageviews",
	"plan.traffic_fractions",
	"plan.alpha",
	"plan.power",
	"plan.precision",
	"plan.baseline.pageviews_per_day",
	"plan.baseline.clicks_per_day",
	"plan.baseline.enrollments_per_day",
	"source.file",
	"source.control_sheet",
	"source.experiment_sheet",
	"source.arm_column",
	"source.database_url",
	"source.table",
}

// Load starts from Default, overlays the YAML/JSON/TOML file at path (when
// non-empty) and then ABTEST_* environment variables, and validates the
// result. LOG_LEVEL and DATABASE_URL are honoured as unprefixed fallbacks.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, errors.Wrapf(err, "failed to bind %s", key)
		}
	}
	if os.Getenv(EnvPrefix+"_LOG_LEVEL") == "" {
		if level := os.Getenv("LOG_LEVEL"); level != "" {
			v.Set("log_level", level)
		}
	}
	if os.Getenv(EnvPrefix+"_SOURCE_DATABASE_URL") == "" {
		if url := os.Getenv("DATABASE_URL"); url != "" {
			v.Set("source.database_url", url)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf("failed to read config file: %w", err))
		}
	}

	cfg := Default()
	// lists replace the defaults instead of merging element-wise
	if v.IsSet("analysis.metrics") {
		cfg.Analysis.Metrics = nil
	}
	if v.IsSet("plan.metrics") {
		cfg.Plan.Metrics = nil
	}
	if v.IsSet("plan.traffic_fractions") {
		cfg.Plan.TrafficFractions = nil
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf("failed to parse config: %w", err))
	}
	if err := normalizeFields(cfg); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, err)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

// LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if _, err := os.Stat(file); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf("failed to load %s: %w", file, err))
		}
	}
	return nil
}

// normalizeFields maps case-insensitive column names from the file onto the
// canonical field constants
func normalizeFields(cfg *Config) error {
	for i, m := range cfg.Analysis.Metrics {
		num, err := experiment.ParseField(string(m.Numerator))
		if err != nil {
			return fmt.Errorf("analysis metric %s: %w", m.Name, err)
		}
		den, err := experiment.ParseField(string(m.Denominator))
		if err != nil {
			return fmt.Errorf("analysis metric %s: %w", m.Name, err)
		}
		cfg.Analysis.Metrics[i].Numerator, cfg.Analysis.Metrics[i].Denominator = num, den
	}
	for i, m := range cfg.Plan.Metrics {
		unit, err := experiment.ParseField(string(m.Unit))
		if err != nil {
			return fmt.Errorf("plan metric %s: %w", m.Name, err)
		}
		cfg.Plan.Metrics[i].Unit = unit
	}
	return nil
}

func validateConfig(cfg *Config) error {
	if err := cfg.Analysis.Validate(); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	if cfg.Plan.Alpha <= 0 || cfg.Plan.Alpha >= 1 {
		return errors.ConfigInvalid("plan.alpha must be in (0,1)")
	}
	if cfg.Plan.Power <= 0 || cfg.Plan.Power >= 1 {
		return errors.ConfigInvalid("plan.power must be in (0,1)")
	}
	for _, f := range cfg.Plan.TrafficFractions {
		if f <= 0 || f > 1 {
			return errors.ConfigInvalid(fmt.Sprintf("plan.traffic_fractions: %v is outside (0,1]", f))
		}
	}
	if cfg.Plan.Baseline.PageviewsPerDay <= 0 {
		return errors.ConfigInvalid("plan.baseline.pageviews_per_day must be positive")
	}
	if cfg.Source.ControlSheet == cfg.Source.ExperimentSheet {
		return errors.ConfigInvalid("source.control_sheet and source.experiment_sheet must differ")
	}
	return nil
}
