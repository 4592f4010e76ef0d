package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/techappsUT/social-queue/internal/bootstrap"
	"github.com/techappsUT/social-queue/internal/config"
	"github.com/techappsUT/social-queue/internal/taskparser"
)

var submitCmd = &cobra.Command{
	Use:   "submit <task-file>",
	Short: "Submit a task file (single task, array, or task group)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read task file: %w", err)
		}

		ctx := context.Background()
		o, _, err := bootstrap.New(ctx, cfg)
		if err != nil {
			return fmt.Errorf("initialize orchestrator: %w", err)
		}
		defer o.Close()

		tasks, err := taskparser.ParseTaskData(data)
		if err != nil {
			return fmt.Errorf("parse task file: %w", err)
		}

		added, allAdded, err := o.Submit(ctx, tasks)
		if err != nil {
			return fmt.Errorf("submit tasks: %w", err)
		}

		fmt.Printf("added %d task(s): %v\n", len(added), added)
		if !allAdded {
			fmt.Println("warning: not every task was accepted (see log output)")
		}
		return nil
	},
}
