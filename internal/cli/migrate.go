package cli

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/truthengine/backend-go/app/bootstrap"
	"github.com/truthengine/backend-go/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Create the vector extension, notes table and index",
	Long: `Applies all pending migrations and verifies that the vector extension,
the community_notes table and its HNSW index exist. Safe to run repeatedly.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withSQL(cmd, func(ctx context.Context, db *sql.DB, log *logrus.Logger) error {
			if err := database.NewSchemaInitializer(db, log).Initialize(ctx); err != nil {
				return err
			}
			cmd.Println("Schema is ready.")
			return nil
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrations(cmd, func(mm *database.MigrationManager) error {
			if err := mm.Down(); err != nil {
				return err
			}
			return printVersion(cmd, mm)
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrations(cmd, func(mm *database.MigrationManager) error {
			return printVersion(cmd, mm)
		})
	},
}

var migrateForceCmd = &cobra.Command{
	Use:   "force [version]",
	Short: "Set the schema version without running migrations",
	Long: `Marks the schema as being at the given version and clears the dirty flag.
Use it after fixing a migration that failed halfway.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}
		return withMigrations(cmd, func(mm *database.MigrationManager) error {
			if err := mm.ForceVersion(version); err != nil {
				return err
			}
			return printVersion(cmd, mm)
		})
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd, migrateForceCmd)
	rootCmd.AddCommand(migrateCmd)
}

// withSQL 迁移使用独立的 lib/pq 连接
func withSQL(cmd *cobra.Command, fn func(ctx context.Context, db *sql.DB, log *logrus.Logger) error) error {
	return withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
		return app.Invoke(func(log *logrus.Logger) error {
			db, err := database.OpenSQL(ctx, app.Config.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			return fn(ctx, db, log)
		})
	})
}

func withMigrations(cmd *cobra.Command, fn func(mm *database.MigrationManager) error) error {
	return withSQL(cmd, func(ctx context.Context, db *sql.DB, log *logrus.Logger) error {
		mm, err := database.NewMigrationManager(ctx, db, log)
		if err != nil {
			return err
		}
		defer mm.Close()

		return fn(mm)
	})
}

func printVersion(cmd *cobra.Command, mm *database.MigrationManager) error {
	version, dirty, err := mm.Version()
	if err != nil {
		return err
	}
	if dirty {
		cmd.Printf("Schema version: %d (dirty)\n", version)
		return nil
	}
	cmd.Printf("Schema version: %d\n", version)
	return nil
}
