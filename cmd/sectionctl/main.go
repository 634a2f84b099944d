// Command sectionctl is the operator CLI: schema migration, catalog sync,
// shop registration and the section lifecycle operations run against a
// single store.
package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iliyamo/theme-section-installer/internal/config"
	"github.com/iliyamo/theme-section-installer/internal/database"
	"github.com/iliyamo/theme-section-installer/internal/logging"
)

func main() {
	var envFile string

	rootCmd := &cobra.Command{
		Use:   "sectionctl",
		Short: "Manage the theme section catalog and per-shop installations",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if envFile != "" {
				config.LoadDotEnv(envFile)
			} else {
				config.LoadDotEnv()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load variables from this file instead of .env")

	rootCmd.AddCommand(
		migrateCmd(),
		catalogCmd(),
		shopCmd(),
		sectionsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// env holds what every database-backed command needs.
type env struct {
	cfg config.Config
	log *logrus.Logger
	db  *sql.DB
}

func openEnv() (*env, error) {
	cfg := config.Load()
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &env{cfg: cfg, log: logging.New(cfg.Env, cfg.LogLevel), db: db}, nil
}

func (e *env) Close() error { return e.db.Close() }

// printJSON writes v indented, the way the API would return it.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
