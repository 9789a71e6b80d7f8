package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"abtest/adapters/excel"
	"abtest/adapters/postgres"
	"abtest/adapters/stats/inference"
	"abtest/app"
	"abtest/domain/stats"
	"abtest/internal"
	"abtest/internal/config"
	"abtest/internal/errors"
	"abtest/internal/migration"
	"abtest/internal/report"
	"abtest/internal/testkit"
	"abtest/ports"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *internal.Logger
}

func (o *rootOptions) load(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	o.cfg = cfg
	o.logger = internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel))
	return nil
}

func connect(ctx context.Context, url string) (*sqlx.DB, error) {
	if url == "" {
		return nil, errors.ConfigInvalid("a database URL is required (--database-url or DATABASE_URL)")
	}
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to database", err)
	}
	return db, nil
}

func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	var format string
	var databaseURL string
	var table string
	var strict bool

	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Analyze a finished experiment",
		Long: `Run invariant checks, effect sizes and sign tests on the daily table.

The table is read from an xlsx workbook with Control and Experiment sheets, a
long-format CSV file with an Arm column, or a PostgreSQL table when a database
URL is given.

Example: abtest analyze "Final Project Results.xlsx" --format markdown`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return errors.InvalidInput(err.Error())
			}

			cfg := opts.cfg
			if len(args) == 1 {
				cfg.Source.File = args[0]
			}
			if databaseURL != "" {
				cfg.Source.DatabaseURL = databaseURL
			}
			if table != "" {
				cfg.Source.Table = table
			}

			ctx := cmd.Context()
			svc := app.NewAnalysisService(cfg.Analysis, opts.logger)

			var source ports.ObservationSource
			switch {
			case cfg.Source.File != "":
				source = excel.NewDataReader(cfg.Source.Excel(), opts.logger)
			case cfg.Source.DatabaseURL != "":
				db, err := connect(ctx, cfg.Source.DatabaseURL)
				if err != nil {
					return err
				}
				defer db.Close()
				source = postgres.NewObservationRepository(db, cfg.Source.Table)
			default:
				return errors.InvalidInput("no input: pass a file or --database-url")
			}

			result, err := svc.Run(ctx, source)
			if err != nil {
				return errors.Wrap(err, "analysis failed")
			}

			if err := report.NewRenderer(cmd.OutOrStdout(), f).Report(result); err != nil {
				return err
			}
			if strict && !result.InvariantsPassed {
				return errors.InvariantFailure(result.FailedInvariants())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json, markdown or html")
	cmd.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL URL to read observations from")
	cmd.Flags().StringVar(&table, "table", "", "Observation table name")
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit with status 5 when an invariant check fails")

	return cmd
}

func newPlanCmd(opts *rootOptions) *cobra.Command {
	var format string
	var fractions []float64

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Size an experiment from baseline traffic",
		Long: `Compute baseline standard errors, per-group sample sizes, the pageviews they
require and the experiment duration at each traffic fraction.

Baseline figures and metrics come from the plan section of the config.

Example: abtest plan --fractions 1,0.6,0.4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return errors.InvalidInput(err.Error())
			}

			settings := opts.cfg.Plan
			if len(fractions) > 0 {
				settings.TrafficFractions = fractions
			}

			plan, err := app.NewPlanService(opts.logger).Plan(cmd.Context(), settings)
			if err != nil {
				return errors.Wrap(err, "planning failed")
			}
			return report.NewRenderer(cmd.OutOrStdout(), f).Plan(plan)
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json, markdown or html")
	cmd.Flags().Float64SliceVar(&fractions, "fractions", nil, "Traffic fractions to report durations for")

	return cmd
}

func newSignTestCmd(opts *rootOptions) *cobra.Command {
	var successes, trials int
	var format string

	cmd := &cobra.Command{
		Use:   "signtest",
		Short: "Exact two-sided binomial sign test",
		Long: `Compute the two-sided binomial p-value of observing the given number of
successes out of trials under the configured null proportion.

Example: abtest signtest --successes 4 --trials 23`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return errors.InvalidInput(err.Error())
			}

			params := opts.cfg.Analysis
			p, err := inference.BinomialTwoSided(successes, trials, params.NullProportion)
			if err != nil {
				return errors.Wrap(err, "sign test failed")
			}

			result := &stats.SignTestResult{
				Metric:    "ad hoc",
				Successes: successes,
				Trials:    trials,
				PValue:    inference.Round(p, params.Precision),
			}
			return report.NewRenderer(cmd.OutOrStdout(), f).SignTest(result, params.Alpha)
		},
	}

	cmd.Flags().IntVar(&successes, "successes", 0, "Days on which the experiment rate was higher")
	cmd.Flags().IntVar(&trials, "trials", 0, "Non-tied days")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	_ = cmd.MarkFlagRequired("trials")

	return cmd
}

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	var out string
	var databaseURL string
	var seed int64
	var days, missing int

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic two-arm daily table",
		Long: `Generate a deterministic synthetic experiment table shaped like the free-trial
screener results: both arms, trailing days without enrollment data.

The output format follows the file extension (.xlsx or .csv). With
--database-url the table replaces the contents of the observation table.

Example: abtest generate --out results.xlsx --seed 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gen := testkit.DefaultScreenerConfig()
			gen.Seed = seed
			if days > 0 {
				gen.Days = days
			}
			if missing >= 0 {
				gen.MissingTailDays = missing
			}
			table := testkit.NewScreenerDataGenerator(gen).Generate()

			if out == "" && databaseURL == "" {
				return errors.InvalidInput("nothing to write: pass --out or --database-url")
			}

			if out != "" {
				var err error
				switch strings.ToLower(filepath.Ext(out)) {
				case ".csv":
					err = excel.WriteCSV(out, table)
				case ".xlsx":
					err = excel.WriteXLSX(out, table)
				default:
					return errors.InvalidInput(fmt.Sprintf("unsupported output extension %q", filepath.Ext(out)))
				}
				if err != nil {
					return errors.Wrapf(err, "failed to write %s", out)
				}
				opts.logger.Info("wrote %d days per arm to %s", len(table.Control), out)
			}

			if databaseURL != "" {
				ctx := cmd.Context()
				db, err := connect(ctx, databaseURL)
				if err != nil {
					return err
				}
				defer db.Close()

				repo := postgres.NewObservationRepository(db, opts.cfg.Source.Table)
				if err := repo.Replace(ctx, table); err != nil {
					return errors.DatabaseError("failed to write observations", err)
				}
				opts.logger.Info("replaced %s", repo.Describe())
			}

			fmt.Fprintf(cmd.OutOrStdout(), "fingerprint %s\n", table.Fingerprint().Short())
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Output file (.xlsx or .csv)")
	cmd.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL URL to write the table to")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic generation")
	cmd.Flags().IntVar(&days, "days", 0, "Days per arm (default 37)")
	cmd.Flags().IntVar(&missing, "missing-days", -1, "Trailing days without enrollments and payments (default 14)")

	return cmd
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the observation table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if databaseURL == "" {
				databaseURL = opts.cfg.Source.DatabaseURL
			}
			ctx := cmd.Context()
			db, err := connect(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			return applySchema(ctx, migration.NewRunner(opts.cfg.Source.Table), db, opts.logger)
		},
	}

	cmd.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL URL (defaults to DATABASE_URL)")

	return cmd
}

func applySchema(ctx context.Context, m migration.Migrator, db *sqlx.DB, logger *internal.Logger) error {
	if err := m.Run(ctx, db); err != nil {
		return err
	}
	logger.Info("schema version %s applied", m.Version())
	return nil
}
