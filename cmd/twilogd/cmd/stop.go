package cmd

import (
	"fmt"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/twilog/twilogd/internal/daemon"
	"github.com/twilog/twilogd/internal/output"
)

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		Long:  `Send stop_server to the running daemon, escalating to SIGKILL if it doesn't exit in time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStop(cmd)
		},
	}
}

func runStop(cmd *cobra.Command) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := loadDaemonConfig("", "", "")
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	pidFile := daemon.NewPIDFile(cfg.PIDPath)

	if !pidFile.IsRunning() {
		out.Status("", "Daemon is not running")
		return nil
	}

	pid, err := pidFile.Read()
	if err != nil {
		return fmt.Errorf("read PID: %w", err)
	}

	client := daemon.NewClient(cfg)
	if err := client.StopServer(cmd.Context()); err != nil {
		return fmt.Errorf("stop daemon: %w", err)
	}

	for i := 0; i < 50; i++ {
		time.Sleep(100 * time.Millisecond)
		if !pidFile.IsRunning() {
			out.Success(fmt.Sprintf("Daemon stopped (was pid: %d)", pid))
			return nil
		}
	}

	out.Status("", "Daemon not responding, sending SIGKILL...")
	if err := pidFile.Signal(syscall.SIGKILL); err != nil {
		return fmt.Errorf("kill daemon: %w", err)
	}

	out.Success("Daemon killed")
	return nil
}
