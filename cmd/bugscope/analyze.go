package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/briandowns/spinner"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mpetrov/bugscope/internal/config"
	"github.com/mpetrov/bugscope/internal/diagnose"
	"github.com/mpetrov/bugscope/internal/ingest"
	"github.com/mpetrov/bugscope/internal/logging"
	"github.com/mpetrov/bugscope/internal/project"
)

func newAnalyzeCmd() *cobra.Command {
	var (
		cfgPath string
		bug     string
		name    string
		format  string
	)

	cmd := &cobra.Command{
		Use:   "analyze PATH",
		Short: "Analyze a bug in a local project without starting a server",
		Long: `Ingests the project at PATH, sends one analysis request to the configured
model backend and prints the result. The snapshot and analysis are stored, so
the fix IDs stay usable from the API and the MCP tools afterwards.

Examples:
  # Analyze a reported bug
  bugscope analyze ./shop --bug "checkout logs users out after redirect"

  # General audit with machine-readable output
  bugscope analyze ./shop -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(cfgPath)
			if err != nil {
				return err
			}
			logging.Init(cfg.Logging)
			return runAnalyze(cmd.Context(), cfg, args[0], name, bug, format)
		},
	}

	cmd.Flags().StringVarP(&bug, "bug", "b", "", "Description of the bug (empty requests a general audit)")
	cmd.Flags().StringVar(&name, "name", "", "Project name (defaults to the directory name)")
	cmd.Flags().StringVarP(&format, "output", "o", "human", "Output format (human, json, yaml)")
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "bugscope.yaml", "Path to the configuration file")
	return cmd
}

func runAnalyze(ctx context.Context, cfg *config.Config, path, name, bug, format string) error {
	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond)
	s.Suffix = " Reading project files..."
	s.Start()

	files, err := ingest.Collect(path, cfg.Ignore)
	if err != nil {
		s.Stop()
		return fmt.Errorf("collecting files: %w", err)
	}
	if len(files) == 0 {
		s.Stop()
		return fmt.Errorf("no files found under %s", path)
	}

	if name == "" {
		if abs, err := filepath.Abs(path); err == nil {
			name = filepath.Base(abs)
		}
	}

	snap := ingest.New().ProcessFiles(ctx, name, files)
	s.Stop()
	printSuccess(fmt.Sprintf("Ingested %d files (%s)", snap.TotalFiles, snap.ProjectType))

	store, err := project.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Save(ctx, snap); err != nil {
		return err
	}

	s.Suffix = fmt.Sprintf(" Analyzing with %s...", cfg.Model.Provider)
	s.Start()
	analysis := diagnose.NewService(newClient(cfg)).AnalyzeBug(ctx, snap, bug)
	s.Stop()
	printSuccess("Analysis complete")

	if err := store.SaveAnalysis(ctx, snap.ID, analysis); err != nil {
		logrus.Warnf("storing analysis: %v", err)
	}

	return displayAnalysis(snap, analysis, format)
}
