package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"library-console/library"
)

var (
	cfg    library.Config
	logger *slog.Logger

	dbPath string
)

var rootCmd = &cobra.Command{
	Use:   "library-console",
	Short: "Single-operator library management console",
	Long: `library-console tracks users, books, categories and loan transactions
against a SQLite store, enforcing loan limits, overdue blocking and
availability accounting through an interactive prompt loop.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelWarn,
		}))
		slog.SetDefault(logger)

		cfg = library.LoadConfig()
		if dbPath != "" {
			cfg.DBPath = dbPath
		}
	},
	// Running without a subcommand drops into the interactive console.
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConsole()
	},
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the SQLite database (overrides LIBRARY_DB_PATH)")
}

func openManager() (*library.Manager, error) {
	mgr, err := library.NewManager(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := mgr.EnsureAdmin(); err != nil {
		mgr.Close()
		return nil, err
	}
	return mgr, nil
}
