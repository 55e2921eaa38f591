package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mpetrov/bugscope/internal/api"
	"github.com/mpetrov/bugscope/internal/config"
	"github.com/mpetrov/bugscope/internal/diagnose"
	"github.com/mpetrov/bugscope/internal/ingest"
	"github.com/mpetrov/bugscope/internal/llm"
	"github.com/mpetrov/bugscope/internal/logging"
	"github.com/mpetrov/bugscope/internal/project"
)

func newServeCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Serves the upload, analysis and implementation endpoints under /api, plus a
WebSocket feed of pipeline events under /api/ws.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(cfgPath)
			if err != nil {
				return err
			}
			logging.Init(cfg.Logging)
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "bugscope.yaml", "Path to the configuration file")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := project.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	srv := api.NewServer(cfg.Server, store, ingest.New(), diagnose.NewService(newClient(cfg)), version)
	go srv.Hub().Run(ctx)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      srv.Handler(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logrus.Infof("bugscope API listening on http://%s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Errorf("HTTP server error: %v", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logrus.Info("shutting down")

	// The parent context is already cancelled, so the shutdown deadline needs
	// a fresh one.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}

// newClient builds the configured model client. A backend that cannot be
// constructed (typically a missing API key) is replaced by the always-failing
// client, so every analysis path degrades instead of crashing at startup.
func newClient(cfg *config.Config) llm.Client {
	client, err := llm.New(cfg.Model)
	if err != nil {
		logrus.Warnf("model backend unavailable, analyses will use fallbacks: %v", err)
		return llm.Unavailable{Reason: err.Error()}
	}
	return client
}
