package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/twilog/twilogd/internal/config"
	"github.com/twilog/twilogd/internal/output"
)

// newConfigCmd builds the config management command group: init, show,
// and path operate on the user/global configuration file at
// ~/.config/twilogd/config.yaml, separate from the archive-local
// twilog.yaml that loadDaemonConfig reads per invocation.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage user configuration",
		Long: `Manage the user/global configuration file.

User configuration contains machine-wide defaults that apply to every
archive on this machine (embedding backend, daemon socket/PID
locations, cache sizes). Per-archive settings belong in an
archive-local twilog.yaml instead.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/twilogd/config.yaml)
  3. Archive-local config (twilog.yaml)
  4. Environment variables (TWILOGD_*)`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create user configuration file",
		Long: `Create the user/global configuration file with default values.

Run again with --force to back up the existing file and rewrite it,
preserving every setting already present.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Back up and rewrite an existing configuration")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long:  `Show the effective configuration after merging defaults, user config, archive-local config, and environment overrides.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print user config file path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return nil
		},
	}
}

func runConfigInit(cmd *cobra.Command, force bool) error {
	out := output.New(cmd.OutOrStdout())

	configPath := config.GetUserConfigPath()
	configDir := config.GetUserConfigDir()

	if config.UserConfigExists() {
		if !force {
			out.Warning("User configuration already exists")
			out.Statusf("", "Location: %s", configPath)
			out.Newline()
			out.Status("", "Use --force to back it up and rewrite it")
			return nil
		}
		return runConfigUpgrade(out, configPath)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", configDir, err)
	}

	if err := config.NewConfig().WriteYAML(configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out.Success("Created user configuration")
	out.Statusf("", "Location: %s", configPath)
	return nil
}

// runConfigUpgrade backs up the existing user config, then rewrites it
// with this version's defaults merged underneath the existing settings
// so nothing the user already configured is lost.
func runConfigUpgrade(out *output.Writer, configPath string) error {
	backupPath, err := config.BackupUserConfig()
	if err != nil {
		return fmt.Errorf("failed to back up config: %w", err)
	}

	existing, err := config.LoadUserConfig()
	if err != nil {
		return fmt.Errorf("failed to load existing config: %w", err)
	}
	if existing == nil {
		return fmt.Errorf("config file disappeared during upgrade")
	}

	merged := config.NewConfig()
	merged.MergeWith(existing)

	if err := merged.WriteYAML(configPath); err != nil {
		return fmt.Errorf("failed to write upgraded config: %w", err)
	}

	out.Success("Configuration upgraded")
	out.Statusf("", "Location: %s", configPath)
	out.Statusf("", "Backup: %s", backupPath)
	return nil
}

func runConfigShow(cmd *cobra.Command, jsonOutput bool) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := config.Load(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}

	out.Status("", "Effective configuration (defaults + user + archive-local + env):")
	out.Newline()
	out.Statusf("", "archive.post_csv_path:      %s", cfg.Archive.PostCSVPath)
	out.Statusf("", "archive.summary_jsonl_path: %s", cfg.Archive.SummaryJSONLPath)
	out.Statusf("", "vectors.content_dir:        %s", cfg.Vectors.ContentDir)
	out.Statusf("", "vectors.reasoning_dir:      %s", cfg.Vectors.ReasoningDir)
	out.Statusf("", "vectors.summary_dir:        %s", cfg.Vectors.SummaryDir)
	out.Statusf("", "embedding.model:            %s", cfg.Embedding.Model)
	out.Statusf("", "embedding.base_url:         %s", cfg.Embedding.BaseURL)
	out.Statusf("", "daemon.socket_path:         %s", cfg.Daemon.SocketPath)
	out.Statusf("", "daemon.pid_path:            %s", cfg.Daemon.PIDPath)
	out.Statusf("", "cache.stats_cache_path:     %s", cfg.Cache.StatsCachePath)

	return nil
}
