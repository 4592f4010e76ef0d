package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/techappsUT/social-queue/internal/bootstrap"
	"github.com/techappsUT/social-queue/internal/config"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset every non-DONE task back to INIT",
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

		affected, err := o.ResetNonDoneTasks()
		if err != nil {
			return fmt.Errorf("reset non-done tasks: %w", err)
		}
		for platform, n := range affected {
			fmt.Printf("%-15s reset %d task(s)\n", platform, n)
		}
		return nil
	},
}
