package main

import (
	"fmt"
	"os"

	"abtest/internal/errors"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(errors.ExitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "abtest",
		Short: "Post-experiment analysis and sizing for two-arm A/B tests",
		Long: `abtest analyses a daily two-arm experiment table: invariant sanity checks,
effect-size confidence intervals, exact binomial sign tests and, before the
experiment runs, sample size and duration estimates.

Configuration is read from defaults, an optional YAML file (--config), a .env
file and ABTEST_* environment variables, in that order of precedence.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: opts.load,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML/JSON/TOML config file")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: ERROR, WARN, INFO, DEBUG or TRACE")

	rootCmd.AddCommand(
		newAnalyzeCmd(opts),
		newPlanCmd(opts),
		newSignTestCmd(opts),
		newGenerateCmd(opts),
		newMigrateCmd(opts),
	)

	return rootCmd
}
