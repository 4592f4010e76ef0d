package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/techappsUT/social-queue/internal/bootstrap"
	"github.com/techappsUT/social-queue/internal/config"
)

var statusShowTasks bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-platform status",
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

		rows, err := o.Status(statusShowTasks)
		if err != nil {
			return fmt.Errorf("read status: %w", err)
		}

		for _, row := range rows {
			if row.Err != nil {
				fmt.Printf("%-15s error: %v\n", row.Platform, row.Err)
				continue
			}
			fmt.Printf("%-15s posts=%-8d size=%-10d default=%v\n", row.Platform, row.TotalPosts, row.FileSizeB, row.IsDefault)
			if statusShowTasks {
				for status, count := range row.TaskCounts {
					fmt.Printf("  %-12s %d\n", status, count)
				}
			}
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusShowTasks, "tasks", false, "include per-status task counts")
}
