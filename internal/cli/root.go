package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lazypower/forgeone/internal/config"
	"github.com/lazypower/forgeone/internal/engine"
	"github.com/lazypower/forgeone/internal/logging"
	"github.com/lazypower/forgeone/internal/store"
)

var (
	envFiles []string
	dbFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "forgeone",
	Short: "Work memory for people who build things",
	Long: "ForgeOne records work moments and entries, groups moments into threads, " +
		"and summarizes where your time and friction went.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "Read configuration from these .env files (default ./.env when present)")
	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "Database path (overrides FORGEONE_DB)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(insightsCmd)
	rootCmd.AddCommand(threadsCmd)
	rootCmd.AddCommand(timelineCmd)
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if dbFlag != "" {
		cfg.Database.Path = dbFlag
	}
	return cfg, nil
}

// openDB opens the configured database, falling back to the default path.
func openDB(cfg config.Config) (*store.DB, error) {
	dbPath := cfg.Database.Path
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve db path: %w", err)
		}
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func newEngine(db *store.DB, cfg config.Config, log logging.Logger) (*engine.Engine, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return engine.New(db, engine.Options{Location: loc, Logger: log}), nil
}
