package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"campusconnect/internal/db"
)

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	gormDB, err := db.NewMySQL(cfg.MySQLDSN, cfg.IsDevelopment(), logger)
	if err != nil {
		logger.Error("migrate.connect_failed", zap.Error(err))
		return err
	}

	if err := db.Migrate(gormDB, cfg.ResetDB, logger); err != nil {
		logger.Error("migrate.failed", zap.Error(err))
		return err
	}
	cmd.Println("Migrations completed successfully")
	return nil
}
