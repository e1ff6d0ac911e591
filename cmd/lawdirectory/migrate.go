package main

import (
	"errors"
	"strings"

	"github.com/smallbiznis/lawdirectory/internal/config"
	"github.com/smallbiznis/lawdirectory/internal/migration"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var rollbackSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd.Context(), func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
			if err := migration.Apply(conn, cfg.DBType); err != nil {
				return err
			}
			log.Info("schema migrated", zap.String("type", cfg.DBType))
			return nil
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations (postgres only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd.Context(), func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
			if !strings.EqualFold(strings.TrimSpace(cfg.DBType), "postgres") {
				return errors.New("rollback is only supported on postgres")
			}
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := migration.RollbackMigrations(sqlDB, rollbackSteps); err != nil {
				return err
			}
			log.Info("schema rolled back", zap.Int("steps", rollbackSteps))
			return nil
		})
	},
}

func init() {
	migrateDownCmd.Flags().IntVar(&rollbackSteps, "steps", 1, "number of migrations to roll back")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
}
