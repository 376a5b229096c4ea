// Command claimsearchctl runs claim-note searches against a local dataset file.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/claimsearch/internal/dataset"
	logpkg "github.com/kailas-cloud/claimsearch/internal/logger"
	"github.com/kailas-cloud/claimsearch/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:          "claimsearchctl",
		Short:        "Search insurance claim notes from the command line",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := logpkg.NewLogger(logpkg.EnvCLI, logLevel)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			cmd.SetContext(logpkg.ContextWithLogger(cmd.Context(), logger))
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error; default warn)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version of claimsearchctl",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "claimsearchctl "+version.String())
		},
	}

	rootCmd.AddCommand(newQueryCmd(), newOptionsCmd(), versionCmd)
	return rootCmd
}

// sourceFlags locate the dataset file.
type sourceFlags struct {
	path   string
	format string
	table  string
}

func (s *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.path, "data", "", "Dataset file (csv, parquet or sqlite)")
	cmd.Flags().StringVar(&s.format, "data-format", "", "Dataset format (default: from the file extension)")
	cmd.Flags().StringVar(&s.table, "table", dataset.DefaultTable, "SQLite table name")
	_ = cmd.MarkFlagRequired("data")
}

func (s *sourceFlags) open(logger *zap.Logger) (*dataset.File, error) {
	f, err := dataset.NewFile(dataset.Source{
		Path:   s.path,
		Format: dataset.Format(s.format),
		Table:  s.table,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	return f, nil
}
