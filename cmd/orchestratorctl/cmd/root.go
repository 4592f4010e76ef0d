// Package cmd implements orchestratorctl's cobra command tree, grounded in
// the retrieval pack's cobra CLI shape (firestige-Otus/cmd/root.go): a
// package-level rootCmd, a persistent --config flag, subcommands added in
// init.
package cmd

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "orchestratorctl",
	Short: "Operate a social-media collection orchestrator",
	Long: `orchestratorctl manages a collection orchestrator's meta store and
per-platform task stores: submitting tasks, running collection passes,
inspecting status, and maintaining store files.`,
}

// Execute runs the root command. Called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "orchestrator.yaml", "run config file path")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(loopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(databasesCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(overlapCmd)
	rootCmd.AddCommand(mergeCmd)
}
