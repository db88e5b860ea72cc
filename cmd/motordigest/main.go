package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var debug bool

	root := &cobra.Command{
		Use:          "motordigest",
		Short:        "motordigest - daily bilingual motorsport news digest",
		Long:         "Collects motorsport news, scores relevance, removes near-duplicate stories and publishes a FR/EN digest page.",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	root.AddCommand(
		runCmd(&debug),
		regenerateCmd(&debug),
		serveCmd(&debug),
		topCmd(&debug),
		adjustCmd(&debug),
		estimateCmd(&debug),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
