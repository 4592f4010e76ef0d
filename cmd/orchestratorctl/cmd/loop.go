package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/techappsUT/social-queue/internal/bootstrap"
	"github.com/techappsUT/social-queue/internal/config"
)

var loopCmd = &cobra.Command{
	Use:   "loop",
	Short: "Run the collection loop forever, until interrupted",
	Long: `loop runs full collection passes (scan for new task files, reset
stuck tasks, progress pending tasks) on two independent tickers, a task
scan cadence and a collect cadence, until SIGINT/SIGTERM is received,
matching the donor's worker main.go signal-handling shutdown pattern.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		o, logger, err := bootstrap.New(ctx, cfg)
		if err != nil {
			return fmt.Errorf("initialize orchestrator: %w", err)
		}
		defer o.Close()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-quit
			logger.Info("received shutdown signal, stopping collection loop")
			cancel()
		}()

		return o.RunCollectLoop(ctx)
	},
}
