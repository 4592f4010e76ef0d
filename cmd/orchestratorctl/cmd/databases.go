package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/techappsUT/social-queue/internal/bootstrap"
	"github.com/techappsUT/social-queue/internal/config"
)

var databasesCmd = &cobra.Command{
	Use:   "databases",
	Short: "List the platform catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		o, _, err := bootstrap.New(context.Background(), cfg)
		if err != nil {
			return fmt.Errorf("initialize orchestrator: %w", err)
		}
		defer o.Close()

		entries, err := o.Databases()
		if err != nil {
			return fmt.Errorf("list databases: %w", err)
		}
		for _, e := range entries {
			fmt.Printf("%-15s %-40s default=%v\n", e.Platform, e.DBPath, e.IsDefault)
		}
		return nil
	},
}
