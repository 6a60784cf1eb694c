package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/twilog/twilogd/internal/config"
	"github.com/twilog/twilogd/internal/daemon"
	"github.com/twilog/twilogd/internal/embedder"
	"github.com/twilog/twilogd/internal/logging"
)

// newHiddenDaemonCmd builds the _daemon subcommand. It is never invoked
// directly by users: the front process (runStart) execs it detached via
// daemon.StartDetached, and it runs the actual service loop.
func newHiddenDaemonCmd() *cobra.Command {
	var contentDir, reasoningDir, summaryDir string

	cmd := &cobra.Command{
		Use:    "_daemon",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHiddenDaemon(cmd, contentDir, reasoningDir, summaryDir)
		},
	}

	cmd.Flags().StringVarP(&contentDir, "content-dir", "e", "", "Content vector store directory")
	cmd.Flags().StringVarP(&reasoningDir, "reasoning-dir", "r", "", "Reasoning vector store directory")
	cmd.Flags().StringVarP(&summaryDir, "summary-dir", "s", "", "Summary vector store directory")

	return cmd
}

func runHiddenDaemon(cmd *cobra.Command, contentDir, reasoningDir, summaryDir string) error {
	logCfg := logging.DefaultConfig()
	if logger, cleanup, err := logging.Setup(logCfg); err == nil {
		slog.SetDefault(logger)
		defer cleanup()
	}

	dcfg, err := loadDaemonConfig(contentDir, reasoningDir, summaryDir)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if err := dcfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	cfg, err := config.Load(".")
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	embedFunc := embedder.NewHTTPFunc(embedder.HTTPConfig{
		BaseURL:  cfg.Embedding.BaseURL,
		Model:    cfg.Embedding.Model,
		PoolSize: cfg.Embedding.PoolSize,
	})

	slog.Info("daemon starting",
		slog.String("socket", dcfg.SocketPath),
		slog.String("content_dir", dcfg.ContentDir))

	watchPath := config.ResolvedConfigPath(".")
	if watchPath == "" && config.UserConfigExists() {
		watchPath = config.GetUserConfigPath()
	}
	if err := daemon.WatchConfigFile(cmd.Context(), watchPath); err != nil {
		slog.Warn("config watcher unavailable", slog.String("error", err.Error()))
	}

	return daemon.RunDaemon(cmd.Context(), dcfg, embedFunc)
}
