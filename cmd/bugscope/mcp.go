package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mpetrov/bugscope/internal/config"
	"github.com/mpetrov/bugscope/internal/diagnose"
	"github.com/mpetrov/bugscope/internal/ingest"
	"github.com/mpetrov/bugscope/internal/logging"
	"github.com/mpetrov/bugscope/internal/project"
	"github.com/mpetrov/bugscope/internal/server"
)

func newMCPCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server on stdio",
		Long: `Serves the ingestion and analysis tools over the Model Context Protocol,
for use from coding agents and MCP-capable editors.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(cfgPath)
			if err != nil {
				return err
			}
			logging.Init(cfg.Logging)
			// MCP uses stdout for JSON-RPC; logs must never land there.
			logrus.SetOutput(os.Stderr)

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			store, err := project.Open(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			srv := server.New(cfg, store, ingest.New(), diagnose.NewService(newClient(cfg)), version)
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "bugscope.yaml", "Path to the configuration file")
	return cmd
}
