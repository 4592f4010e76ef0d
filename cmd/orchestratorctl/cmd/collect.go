package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/techappsUT/social-queue/internal/bootstrap"
	"github.com/techappsUT/social-queue/internal/config"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run one collection pass across every active platform",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		ctx := context.Background()
		o, _, err := bootstrap.New(ctx, cfg)
		if err != nil {
			return fmt.Errorf("initialize orchestrator: %w", err)
		}
		defer o.Close()

		results, err := o.Collect(ctx)
		if err != nil {
			return fmt.Errorf("collect: %w", err)
		}

		for _, r := range results {
			if r.Err != nil {
				fmt.Printf("%s: error: %v\n", r.Platform, r.Err)
				continue
			}
			fmt.Printf("%s: %d task(s) processed\n", r.Platform, len(r.Outcomes))
		}
		return nil
	},
}
