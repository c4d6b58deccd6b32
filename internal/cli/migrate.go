package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yourusername/quiz-reward-api/internal/config"
	"github.com/yourusername/quiz-reward-api/pkg/database"
)

// NewMigrateCmd применяет или откатывает миграции
func NewMigrateCmd(configPath *string) *cobra.Command {
	var down int
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations (or roll back with --down N)",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(*configPath, false)
			if err != nil {
				return err
			}
			defer e.Close()

			path := e.cfg.Database.MigrationsPath
			if down > 0 {
				if err := database.RollbackDB(e.db, path, down); err != nil {
					return err
				}
			} else if err := database.MigrateDB(e.db, path); err != nil {
				return err
			}

			version, dirty, err := database.MigrationVersion(e.db, path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t)\n", version, dirty)
			return nil
		},
	}
	cmd.Flags().IntVar(&down, "down", 0, "number of migrations to roll back")

	cmd.AddCommand(&cobra.Command{
		Use:   "force <version>",
		Short: "Clear a dirty migration state by forcing the schema version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var version int
			if _, err := fmt.Sscanf(args[0], "%d", &version); err != nil {
				return fmt.Errorf("version must be an integer: %w", err)
			}
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if err := database.ForceMigrationVersion(cfg.Database.PostgresURL(), cfg.Database.MigrationsPath, version); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version forced to %d\n", version)
			return nil
		},
	})
	return cmd
}
