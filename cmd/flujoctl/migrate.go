package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"flujo/internal/storage"
)

func migrateCmd() *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the SQLite schema migrations",
		Long: `Migrate brings the SQLite database at SQLITE_DB_PATH (or --db) to the
latest schema version. The server applies the same migrations on start.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dbPath := appConfig.SQLiteDBPath
			if dbPath == "" {
				return errors.New("no database path: set SQLITE_DB_PATH or --db")
			}

			if !status {
				logger.Info("Running database migrations", "database", dbPath)
				if err := storage.RunMigrations(dbPath); err != nil {
					return err
				}
			}

			version, dirty, err := storage.MigrationVersion(dbPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database %s at version %d", dbPath, version)
			if dirty {
				fmt.Fprint(cmd.OutOrStdout(), " (dirty)")
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "show the schema version without applying migrations")
	return cmd
}
