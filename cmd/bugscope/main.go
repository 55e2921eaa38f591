package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0" // Overwritten at build time

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bugscope",
		Short: "Model-assisted bug analysis for project source trees",
		Long: `bugscope ingests a project, classifies its files, runs lightweight static
analysis and asks a model backend for root causes, fix recommendations and
implementation plans. It runs as an HTTP API, as an MCP stdio server for
coding agents, or as a one-shot CLI.`,
		SilenceUsage: true,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(
		newServeCmd(),
		newMCPCmd(),
		newAnalyzeCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("bugscope version %s\n", version)
		},
	}
}
