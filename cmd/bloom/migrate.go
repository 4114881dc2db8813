package main

import (
	"fmt"

	"github.com/bloomforlungs/bloom/db"
	"github.com/bloomforlungs/bloom/internal/impact"
	"github.com/bloomforlungs/bloom/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the pledge tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := connect(); err != nil {
			return err
		}

		if err := db.MigrateDatabase(); err != nil {
			return err
		}

		logger.Info("database migrated", zap.String("driver", cfg.DatabaseDriver))
		return nil
	},
}

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the pledge total and its impact figures",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := connect(); err != nil {
			return err
		}

		n, err := store.New(db.DB, nil).CountPledges(cmd.Context())
		if err != nil {
			return err
		}

		stats := impact.For(n)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "pledges:           %d\n", stats.Pledges)
		fmt.Fprintf(out, "lives impacted:    %d\n", stats.LivesImpacted)
		fmt.Fprintf(out, "tobacco-free days: %d\n", stats.TobaccoFreeDays)
		fmt.Fprintf(out, "lung health:       %s (%d%%)\n", stats.HealthStatus, stats.FillPercentage)
		return nil
	},
}

func connect() error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is not set")
	}
	return db.ConnectDatabase(cfg.DatabaseDriver, cfg.DatabaseURL)
}
