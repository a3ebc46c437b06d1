package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/shared-ledger/internal/cli"
	"github.com/Veraticus/shared-ledger/internal/storage"
)

func (a *app) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Long: `Initialize or update the database schema to the latest version.

Every other command migrates on open as well; run this explicitly to
check the schema of an existing database.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			slog.Info("Running database migrations", "database", a.cfg.DatabasePath)

			store, err := a.openStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			version, err := store.SchemaVersion(cmd.Context())
			if err != nil {
				return err
			}

			cmd.Println(cli.FormatSuccess(fmt.Sprintf("Database at schema version %d (expected %d)", version, storage.ExpectedSchemaVersion)))
			return nil
		},
	}
	return cmd
}
