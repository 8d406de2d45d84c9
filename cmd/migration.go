package cmd

import (
	"context"

	coreconfig "github.com/AzielCF/az-crm/core/config"
	coreDB "github.com/AzielCF/az-crm/core/database"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the CRM tables",
	Long:  `Creates the customers, follow_up_tasks and follow_up_events tables (and their indexes) without starting any server.`,
	Run:   runMigrations,
}

func init() {
	migrateCmd.Flags().Bool("dry-run", false, "run the migrations against an in-memory SQLite database")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrations(cmd *cobra.Command, _ []string) {
	ctx := context.Background()

	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		db, err := coreDB.OpenInMemory("migrate-dry-run")
		if err != nil {
			logrus.Fatalf("[MIGRATION] %v", err)
		}
		if err := migrateSchema(ctx, db); err != nil {
			logrus.Fatalf("[MIGRATION] %v", err)
		}
		logrus.Info("[MIGRATION] Dry run finished, schema is consistent")
		return
	}

	cfg := coreconfig.Global
	logrus.Infof("[MIGRATION] Migrating %s database %s...", cfg.Database.Driver, cfg.Database.Name)
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		logrus.Fatalf("[MIGRATION] %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logrus.Info("[MIGRATION] Schema up to date")
}
