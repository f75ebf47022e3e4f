package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/Rauan228/HackNU2/internal/db"
	"github.com/Rauan228/HackNU2/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the PostgreSQL schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDatabase(cmd, func(ctx context.Context, database *db.DB, log *zap.Logger) error {
			return migrateUp(ctx, database, log)
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List migrations and whether they are applied",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDatabase(cmd, func(ctx context.Context, database *db.DB, _ *zap.Logger) error {
			statuses, err := database.MigrationStatus(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VERSION\tAPPLIED\tAPPLIED AT")
			for _, st := range statuses {
				at := "-"
				if st.AppliedAt != nil {
					at = st.AppliedAt.Format(time.RFC3339)
				}
				fmt.Fprintf(tw, "%s\t%t\t%s\n", st.Version, st.Applied, at)
			}
			return tw.Flush()
		})
	},
}

func init() {
	migrateCmd.PersistentFlags().String("database-url", "", "PostgreSQL connection string")
	migrateCmd.AddCommand(migrateUpCmd, migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}

// withDatabase connects to the configured database for the duration of fn.
func withDatabase(cmd *cobra.Command, fn func(ctx context.Context, database *db.DB, log *zap.Logger) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if url, _ := cmd.Flags().GetString("database-url"); url != "" {
		cfg.Database.URL = url
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("database URL is required (set DATABASE_URL or use --database-url)")
	}
	log, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx := cmd.Context()
	database, err := db.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer database.Close()
	return fn(ctx, database, log)
}

// migrator is implemented by stores with a schema.
type migrator interface {
	Migrate(ctx context.Context) ([]string, error)
}

// migrateUp applies pending migrations when st has a schema.
func migrateUp(ctx context.Context, st any, log *zap.Logger) error {
	m, ok := st.(migrator)
	if !ok {
		log.Debug("store has no schema to migrate")
		return nil
	}
	applied, err := m.Migrate(ctx)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		log.Info("schema is up to date")
		return nil
	}
	log.Info("migrations applied", zap.Strings("versions", applied))
	return nil
}
