package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"securitypassport/internal/platform/config"
	"securitypassport/internal/platform/logger"
	"securitypassport/internal/platform/postgres"
)

type contextKey string

const (
	dbKey  contextKey = "db"
	cfgKey contextKey = "cfg"
)

var rootCmd = &cobra.Command{
	Use:   "passportctl",
	Short: "Security passport exports from the command line",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.FromEnv()
		if err != nil {
			return err
		}
		ctx := context.WithValue(cmd.Context(), cfgKey, cfg)

		conn, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		cmd.SetContext(context.WithValue(ctx, dbKey, conn))
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
		if conn := getDB(cmd); conn != nil {
			return conn.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	rootCmd.AddCommand(newExportCmd(), newSchemaCmd(), newMigrateCmd())
}

func getCfg(cmd *cobra.Command) config.Server {
	cfg, _ := cmd.Context().Value(cfgKey).(config.Server)
	return cfg
}

func getDB(cmd *cobra.Command) *sql.DB {
	conn, _ := cmd.Context().Value(dbKey).(*sql.DB)
	return conn
}

func getLogger() *slog.Logger {
	return logger.New()
}

// Execute runs the root command and returns an exit code.
func Execute() int {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}
