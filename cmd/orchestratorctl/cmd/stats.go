package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/techappsUT/social-queue/internal/platformtypes"
	"github.com/techappsUT/social-queue/internal/store"
)

var statsBucket string

var statsCmd = &cobra.Command{
	Use:   "stats <platform> <db-path>",
	Short: "Show per-database post counts by day, month, or year",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		platform, dbPath := args[0], args[1]

		s, err := store.OpenPlatformStore(platformtypes.Platform(platform), dbPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer s.Close()

		rows, err := s.Stats(store.StatsBucket(statsBucket))
		if err != nil {
			return fmt.Errorf("compute stats: %w", err)
		}
		for _, row := range rows {
			fmt.Printf("%-10s %d\n", row.Bucket, row.Count)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsBucket, "by", "month", "bucket granularity: day, month, or year")
}
