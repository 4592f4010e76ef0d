package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/techappsUT/social-queue/internal/platformtypes"
	"github.com/techappsUT/social-queue/internal/store"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <platform> <dest-db-path> <src-db-path>",
	Short: "Merge a source store's posts into a destination store, deduping by platform_id",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		platform := platformtypes.Platform(args[0])

		dest, err := store.OpenPlatformStore(platform, args[1])
		if err != nil {
			return fmt.Errorf("open destination %s: %w", args[1], err)
		}
		defer dest.Close()

		src, err := store.OpenPlatformStore(platform, args[2])
		if err != nil {
			return fmt.Errorf("open source %s: %w", args[2], err)
		}
		defer src.Close()

		inserted, err := dest.MergeFrom(src)
		if err != nil {
			return fmt.Errorf("merge: %w", err)
		}
		fmt.Printf("merged %d new post(s) into %s\n", inserted, args[1])
		return nil
	},
}
