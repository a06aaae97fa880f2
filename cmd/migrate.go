package cmd

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/thientv98/slack-oauth/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database tables and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.UsesMemoryStore() {
			return errors.New("migrate needs a Postgres DATABASE_URL")
		}

		db, err := storage.OpenPostgres(cmd.Context(), cfg.DatabaseURL, cfg.DatabaseSSLMode)
		if err != nil {
			return err
		}
		store := storage.NewPostgresStore(db)
		defer store.Close()

		if err := store.InitSchema(cmd.Context()); err != nil {
			return err
		}
		slog.Info("Schema is up to date")
		return nil
	},
}
