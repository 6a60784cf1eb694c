package cmd

import (
	"time"

	"github.com/twilog/twilogd/internal/config"
	"github.com/twilog/twilogd/internal/daemon"
)

// loadDaemonConfig loads the layered configuration from the current
// directory and adapts it into a daemon.Config, applying CLI overrides
// for the vector store directories.
func loadDaemonConfig(contentDir, reasoningDir, summaryDir string) (daemon.Config, error) {
	cfg, err := config.Load(".")
	if err != nil {
		return daemon.Config{}, err
	}

	dcfg := daemon.Config{
		SocketPath:          cfg.Daemon.SocketPath,
		PIDPath:             cfg.Daemon.PIDPath,
		Timeout:             time.Duration(cfg.Daemon.TimeoutSeconds) * time.Second,
		ShutdownGracePeriod: time.Duration(cfg.Daemon.ShutdownGraceSeconds) * time.Second,
		AutoStart:           cfg.Daemon.AutoStart,
		ContentDir:          cfg.Vectors.ContentDir,
		ReasoningDir:        cfg.Vectors.ReasoningDir,
		SummaryDir:          cfg.Vectors.SummaryDir,
		PostCSVPath:         cfg.Archive.PostCSVPath,
		SummaryJSONLPath:    cfg.Archive.SummaryJSONLPath,
		StatsCachePath:      cfg.Cache.StatsCachePath,
		EmbedCacheSize:      cfg.Cache.EmbedCacheSize,
		ModelName:           cfg.Embedding.Model,
	}

	if contentDir != "" {
		dcfg.ContentDir = contentDir
	}
	if reasoningDir != "" {
		dcfg.ReasoningDir = reasoningDir
	}
	if summaryDir != "" {
		dcfg.SummaryDir = summaryDir
	}

	return dcfg, nil
}
