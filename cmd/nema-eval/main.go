// Package main provides the nema-eval command line tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nema-eval",
		Short: "nema-eval - music information retrieval evaluation",
		Long: `nema-eval scores the output of music information retrieval systems
against ground-truth annotations, fold by fold.

Supported tasks: chord, key, melody, tempo.

Run 'nema-eval evaluate -m manifest.yaml' to evaluate an experiment.
Run 'nema-eval --help' for available commands.`,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().StringP("config", "c", "", "config file path")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	cmd.PersistentFlags().String("format", "text", "output format (text, json)")

	cmd.AddCommand(
		evaluateCmd(),
		resultsCmd(),
		eventsCmd(),
		versionCmd(),
	)

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "nema-eval %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}
}
