package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/twilog/twilogd/internal/daemon"
	"github.com/twilog/twilogd/internal/output"
)

func newStartCmd() *cobra.Command {
	var contentDir, reasoningDir, summaryDir string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the background daemon",
		Long: `Start the search daemon in the background.

The daemon keeps the embedding model and vector stores resident in
memory so that repeated searches skip the load cost.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd, contentDir, reasoningDir, summaryDir)
		},
	}

	cmd.Flags().StringVarP(&contentDir, "content-dir", "e", "", "Override the content vector store directory")
	cmd.Flags().StringVarP(&reasoningDir, "reasoning-dir", "r", "", "Override the reasoning vector store directory")
	cmd.Flags().StringVarP(&summaryDir, "summary-dir", "s", "", "Override the summary vector store directory")

	return cmd
}

func runStart(cmd *cobra.Command, contentDir, reasoningDir, summaryDir string) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := loadDaemonConfig(contentDir, reasoningDir, summaryDir)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if err := cfg.EnsureDir(); err != nil {
		return err
	}

	client := daemon.NewClient(cfg)
	if client.IsRunning() {
		out.Status("", "Daemon is already running")
		return nil
	}

	daemonArgs := []string{"_daemon"}
	if contentDir != "" {
		daemonArgs = append(daemonArgs, "-e", contentDir)
	}
	if reasoningDir != "" {
		daemonArgs = append(daemonArgs, "-r", reasoningDir)
	}
	if summaryDir != "" {
		daemonArgs = append(daemonArgs, "-s", summaryDir)
	}

	out.Status("", "Starting daemon in background...")

	pid, err := daemon.StartDetached(cfg, daemonArgs, func(msg string) {
		out.Status("", msg)
	})
	if err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	out.Success(fmt.Sprintf("Daemon started (pid: %d)", pid))
	return nil
}
