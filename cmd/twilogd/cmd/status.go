package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/twilog/twilogd/internal/daemon"
	"github.com/twilog/twilogd/internal/output"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Long:  `Show whether the daemon is running, its readiness, and which embedding model it's serving.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func runStatus(cmd *cobra.Command, jsonOutput bool) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := loadDaemonConfig("", "", "")
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	client := daemon.NewClient(cfg)

	if !client.IsRunning() {
		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"running": false})
		}
		out.Status("", "Daemon is not running")
		out.Status("", "Run 'twilogd start' to start it")
		return nil
	}

	status, err := client.GetStatus(cmd.Context())
	if err != nil {
		return fmt.Errorf("get status: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	out.Status("", "Daemon is running")
	out.Status("", fmt.Sprintf("  Status: %s", status.Status))
	out.Status("", fmt.Sprintf("  Ready:  %t", status.Ready))
	out.Status("", fmt.Sprintf("  Model:  %s", status.Model))
	out.Status("", fmt.Sprintf("  Socket: %s", cfg.SocketPath))

	return nil
}
