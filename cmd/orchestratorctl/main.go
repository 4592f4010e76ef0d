// Command orchestratorctl is the CLI surface for operating the
// collection orchestrator:
// initialize the meta store, submit tasks, run a collection pass or the
// collection loop, inspect status/catalog, reset non-DONE tasks, and
// maintain per-platform store files (stats/overlap/merge).
package main

import (
	"fmt"
	"os"

	"github.com/techappsUT/social-queue/cmd/orchestratorctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
