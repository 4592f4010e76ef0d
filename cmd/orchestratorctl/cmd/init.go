package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/techappsUT/social-queue/internal/bootstrap"
	"github.com/techappsUT/social-queue/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the meta store and every configured platform's store",
	Long: `init reads the run config, opens (creating if needed) the meta
store and every configured client's PlatformStore, and registers each
platform in the catalog. It is safe to run repeatedly ("Creation is idempotent").`,
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

		dbs, err := o.Databases()
		if err != nil {
			return fmt.Errorf("list databases: %w", err)
		}
		for _, db := range dbs {
			fmt.Printf("%s -> %s (default=%v)\n", db.Platform, db.DBPath, db.IsDefault)
		}
		return nil
	},
}
