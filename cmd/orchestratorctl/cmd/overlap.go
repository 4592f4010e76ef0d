package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/techappsUT/social-queue/internal/platformtypes"
	"github.com/techappsUT/social-queue/internal/store"
)

var overlapCmd = &cobra.Command{
	Use:   "overlap <platform> <db-path-a> <db-path-b>",
	Short: "Count posts shared by two per-platform store files",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		platform := platformtypes.Platform(args[0])

		a, err := store.OpenPlatformStore(platform, args[1])
		if err != nil {
			return fmt.Errorf("open %s: %w", args[1], err)
		}
		defer a.Close()

		b, err := store.OpenPlatformStore(platform, args[2])
		if err != nil {
			return fmt.Errorf("open %s: %w", args[2], err)
		}
		defer b.Close()

		count, err := a.Overlap(b)
		if err != nil {
			return fmt.Errorf("compute overlap: %w", err)
		}
		fmt.Printf("%d overlapping post(s)\n", count)
		return nil
	},
}
