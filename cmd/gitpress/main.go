package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"gitpress/internal/config"
	"gitpress/internal/logging"
	"gitpress/internal/store"
)

var (
	// Global flags
	verbose    bool
	dataDir    string
	configPath string

	// Logger for CLI-level events; component logs go to category files.
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "gitpress",
	Short: "gitpress - repository-grounded article pipeline",
	Long: `gitpress ingests open-source repositories, builds a bounded source
context by negotiating file selections with a language model, generates
articles about each repository, and routes them through a review
workflow (approve, reject, revise).

State lives under the data directory: the SQLite database, cloned
repositories, per-task job logs, and exported articles.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if err := logging.Initialize(dataDir); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", ".gitpress", "data directory")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "model config file (json or yaml)")

	rootCmd.AddCommand(pullCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(recordsCmd)
	rootCmd.AddCommand(configCmd)
}

// openStore opens the database under the data directory.
func openStore() (*store.Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return store.Open(filepath.Join(dataDir, "gitpress.db"))
}

// resolveConfig returns the effective model configuration, consulting
// the store row when st is non-nil.
func resolveConfig(st *store.Store) config.Config {
	return config.Resolve(st, effectiveConfigPath())
}

// effectiveConfigPath falls back to <data>/config.json when --config is
// not given, so the logging and model config can share one file.
func effectiveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return filepath.Join(dataDir, "config.json")
}

func reposDir() string   { return filepath.Join(dataDir, "repos") }
func exportsDir() string { return filepath.Join(dataDir, "exports") }

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
