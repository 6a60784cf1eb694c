package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	cfg := NewConfig()

	if cfg.Version != 1 {
		t.Errorf("expected version 1, got %d", cfg.Version)
	}
	if cfg.Embedding.Model == "" {
		t.Error("expected a default embedding model")
	}
	if cfg.Embedding.BaseURL == "" {
		t.Error("expected a default embedding base URL")
	}
	if cfg.Daemon.SocketPath == "" {
		t.Error("expected a default daemon socket path")
	}
	if cfg.Daemon.PIDPath == "" {
		t.Error("expected a default daemon PID path")
	}
	if cfg.Daemon.TimeoutSeconds <= 0 {
		t.Error("expected a positive default timeout")
	}
	if cfg.Cache.EmbedCacheSize <= 0 {
		t.Error("expected a positive default embed cache size")
	}
}

func TestNewConfig_Validate_FailsWithoutArchive(t *testing.T) {
	cfg := NewConfig()
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation to fail without archive.post_csv_path and vectors.content_dir")
	}
}

func TestLoad_NoConfigFile_UsesDefaultsAndFailsValidation(t *testing.T) {
	tmpDir := t.TempDir()

	origXDG := os.Getenv("XDG_CONFIG_HOME")
	os.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "empty-xdg"))
	defer os.Setenv("XDG_CONFIG_HOME", origXDG)

	_, err := Load(tmpDir)
	if err == nil {
		t.Error("expected Load to fail validation without a post archive configured")
	}
}

func TestLoad_YamlFile_OverridesDefaults(t *testing.T) {
	tmpDir := t.TempDir()

	origXDG := os.Getenv("XDG_CONFIG_HOME")
	os.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "empty-xdg"))
	defer os.Setenv("XDG_CONFIG_HOME", origXDG)

	content := `
version: 1
archive:
  post_csv_path: /data/posts.csv
vectors:
  content_dir: /data/vectors/content
embedding:
  model: custom-model
`
	if err := os.WriteFile(filepath.Join(tmpDir, "twilog.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write project config: %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Archive.PostCSVPath != "/data/posts.csv" {
		t.Errorf("expected overridden post_csv_path, got %s", cfg.Archive.PostCSVPath)
	}
	if cfg.Vectors.ContentDir != "/data/vectors/content" {
		t.Errorf("expected overridden content_dir, got %s", cfg.Vectors.ContentDir)
	}
	if cfg.Embedding.Model != "custom-model" {
		t.Errorf("expected overridden model, got %s", cfg.Embedding.Model)
	}
}

func TestLoad_YmlExtension_IsRecognized(t *testing.T) {
	tmpDir := t.TempDir()

	origXDG := os.Getenv("XDG_CONFIG_HOME")
	os.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "empty-xdg"))
	defer os.Setenv("XDG_CONFIG_HOME", origXDG)

	content := "archive:\n  post_csv_path: /data/posts.csv\nvectors:\n  content_dir: /data/vectors\n"
	if err := os.WriteFile(filepath.Join(tmpDir, "twilog.yml"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write project config: %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Archive.PostCSVPath != "/data/posts.csv" {
		t.Errorf("expected post_csv_path from .yml file, got %s", cfg.Archive.PostCSVPath)
	}
}

func TestLoad_YamlPreferredOverYml(t *testing.T) {
	tmpDir := t.TempDir()

	origXDG := os.Getenv("XDG_CONFIG_HOME")
	os.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "empty-xdg"))
	defer os.Setenv("XDG_CONFIG_HOME", origXDG)

	yaml := "archive:\n  post_csv_path: /from-yaml.csv\nvectors:\n  content_dir: /v\n"
	yml := "archive:\n  post_csv_path: /from-yml.csv\nvectors:\n  content_dir: /v\n"
	if err := os.WriteFile(filepath.Join(tmpDir, "twilog.yaml"), []byte(yaml), 0644); err != nil {
		t.Fatalf("failed to write twilog.yaml: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "twilog.yml"), []byte(yml), 0644); err != nil {
		t.Fatalf("failed to write twilog.yml: %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Archive.PostCSVPath != "/from-yaml.csv" {
		t.Errorf("expected .yaml to take precedence over .yml, got %s", cfg.Archive.PostCSVPath)
	}
}

func TestLoad_InvalidYaml_ReturnsError(t *testing.T) {
	tmpDir := t.TempDir()

	origXDG := os.Getenv("XDG_CONFIG_HOME")
	os.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "empty-xdg"))
	defer os.Setenv("XDG_CONFIG_HOME", origXDG)

	if err := os.WriteFile(filepath.Join(tmpDir, "twilog.yaml"), []byte("not: [valid: yaml"), 0644); err != nil {
		t.Fatalf("failed to write project config: %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Error("expected an error for malformed YAML")
	}
}

func TestLoad_EnvVarOverridesModel(t *testing.T) {
	tmpDir := t.TempDir()

	origXDG := os.Getenv("XDG_CONFIG_HOME")
	os.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "empty-xdg"))
	defer os.Setenv("XDG_CONFIG_HOME", origXDG)

	content := "archive:\n  post_csv_path: /data/posts.csv\nvectors:\n  content_dir: /data/vectors\n"
	if err := os.WriteFile(filepath.Join(tmpDir, "twilog.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write project config: %v", err)
	}

	os.Setenv("TWILOGD_EMBEDDING_MODEL", "env-model")
	defer os.Unsetenv("TWILOGD_EMBEDDING_MODEL")

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Embedding.Model != "env-model" {
		t.Errorf("expected env override, got %s", cfg.Embedding.Model)
	}
}

func TestLoad_EnvVarOverridesLogLevel(t *testing.T) {
	tmpDir := t.TempDir()

	origXDG := os.Getenv("XDG_CONFIG_HOME")
	os.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "empty-xdg"))
	defer os.Setenv("XDG_CONFIG_HOME", origXDG)

	content := "archive:\n  post_csv_path: /data/posts.csv\nvectors:\n  content_dir: /data/vectors\n"
	if err := os.WriteFile(filepath.Join(tmpDir, "twilog.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write project config: %v", err)
	}

	os.Setenv("TWILOGD_LOG_LEVEL", "debug")
	defer os.Unsetenv("TWILOGD_LOG_LEVEL")

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Daemon.LogLevel != "debug" {
		t.Errorf("expected debug log level, got %s", cfg.Daemon.LogLevel)
	}
}

func TestLoad_EnvVarEmptyString_DoesNotOverride(t *testing.T) {
	tmpDir := t.TempDir()

	origXDG := os.Getenv("XDG_CONFIG_HOME")
	os.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "empty-xdg"))
	defer os.Setenv("XDG_CONFIG_HOME", origXDG)

	content := "archive:\n  post_csv_path: /data/posts.csv\nvectors:\n  content_dir: /data/vectors\nembedding:\n  model: from-yaml\n"
	if err := os.WriteFile(filepath.Join(tmpDir, "twilog.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write project config: %v", err)
	}

	os.Unsetenv("TWILOGD_EMBEDDING_MODEL")

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Embedding.Model != "from-yaml" {
		t.Errorf("expected unset env var to leave YAML value intact, got %s", cfg.Embedding.Model)
	}
}

func TestGetUserConfigPath_DefaultsToXDGLocation(t *testing.T) {
	origXDG := os.Getenv("XDG_CONFIG_HOME")
	os.Setenv("XDG_CONFIG_HOME", "/custom/xdg")
	defer os.Setenv("XDG_CONFIG_HOME", origXDG)

	path := GetUserConfigPath()
	expected := filepath.Join("/custom/xdg", "twilogd", "config.yaml")
	if path != expected {
		t.Errorf("expected %s, got %s", expected, path)
	}
}

func TestGetUserConfigDir_ReturnsParentOfConfigPath(t *testing.T) {
	dir := GetUserConfigDir()
	path := GetUserConfigPath()
	if filepath.Dir(path) != dir {
		t.Errorf("expected dir %s to be parent of %s", dir, path)
	}
}

func TestUserConfigExists_ReturnsFalseWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()
	origXDG := os.Getenv("XDG_CONFIG_HOME")
	os.Setenv("XDG_CONFIG_HOME", tmpDir)
	defer os.Setenv("XDG_CONFIG_HOME", origXDG)

	if UserConfigExists() {
		t.Error("expected no user config to exist")
	}
}

func TestUserConfigExists_ReturnsTrueWhenPresent(t *testing.T) {
	tmpDir := t.TempDir()
	origXDG := os.Getenv("XDG_CONFIG_HOME")
	os.Setenv("XDG_CONFIG_HOME", tmpDir)
	defer os.Setenv("XDG_CONFIG_HOME", origXDG)

	configDir := filepath.Join(tmpDir, "twilogd")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte("version: 1\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if !UserConfigExists() {
		t.Error("expected user config to exist")
	}
}

func TestLoad_UserConfigOverridesDefaults(t *testing.T) {
	xdgDir := t.TempDir()
	origXDG := os.Getenv("XDG_CONFIG_HOME")
	os.Setenv("XDG_CONFIG_HOME", xdgDir)
	defer os.Setenv("XDG_CONFIG_HOME", origXDG)

	configDir := filepath.Join(xdgDir, "twilogd")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	userContent := "archive:\n  post_csv_path: /user/posts.csv\nvectors:\n  content_dir: /user/vectors\nembedding:\n  model: user-model\n"
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(userContent), 0644); err != nil {
		t.Fatalf("failed to write user config: %v", err)
	}

	projectDir := t.TempDir()
	cfg, err := Load(projectDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Embedding.Model != "user-model" {
		t.Errorf("expected user config model, got %s", cfg.Embedding.Model)
	}
}

func TestLoad_ProjectConfigOverridesUserConfig(t *testing.T) {
	xdgDir := t.TempDir()
	origXDG := os.Getenv("XDG_CONFIG_HOME")
	os.Setenv("XDG_CONFIG_HOME", xdgDir)
	defer os.Setenv("XDG_CONFIG_HOME", origXDG)

	configDir := filepath.Join(xdgDir, "twilogd")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	userContent := "archive:\n  post_csv_path: /user/posts.csv\nvectors:\n  content_dir: /user/vectors\nembedding:\n  model: user-model\n"
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(userContent), 0644); err != nil {
		t.Fatalf("failed to write user config: %v", err)
	}

	projectDir := t.TempDir()
	projectContent := "embedding:\n  model: project-model\n"
	if err := os.WriteFile(filepath.Join(projectDir, "twilog.yaml"), []byte(projectContent), 0644); err != nil {
		t.Fatalf("failed to write project config: %v", err)
	}

	cfg, err := Load(projectDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Embedding.Model != "project-model" {
		t.Errorf("expected project config to override user config, got %s", cfg.Embedding.Model)
	}
	if cfg.Archive.PostCSVPath != "/user/posts.csv" {
		t.Errorf("expected user config value to survive where project didn't override, got %s", cfg.Archive.PostCSVPath)
	}
}

func TestLoad_InvalidUserConfig_ReturnsError(t *testing.T) {
	xdgDir := t.TempDir()
	origXDG := os.Getenv("XDG_CONFIG_HOME")
	os.Setenv("XDG_CONFIG_HOME", xdgDir)
	defer os.Setenv("XDG_CONFIG_HOME", origXDG)

	configDir := filepath.Join(xdgDir, "twilogd")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte("not: [valid"), 0644); err != nil {
		t.Fatalf("failed to write user config: %v", err)
	}

	if _, err := Load(t.TempDir()); err == nil {
		t.Error("expected an error for malformed user config")
	}
}

func TestLoad_ZeroValuesNotMerged(t *testing.T) {
	tmpDir := t.TempDir()
	origXDG := os.Getenv("XDG_CONFIG_HOME")
	os.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "empty-xdg"))
	defer os.Setenv("XDG_CONFIG_HOME", origXDG)

	content := "archive:\n  post_csv_path: /data/posts.csv\nvectors:\n  content_dir: /data/vectors\n"
	if err := os.WriteFile(filepath.Join(tmpDir, "twilog.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write project config: %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defaults := NewConfig()
	if cfg.Cache.EmbedCacheSize != defaults.Cache.EmbedCacheSize {
		t.Errorf("expected default embed cache size to survive, got %d", cfg.Cache.EmbedCacheSize)
	}
	if cfg.Daemon.TimeoutSeconds != defaults.Daemon.TimeoutSeconds {
		t.Errorf("expected default timeout to survive, got %d", cfg.Daemon.TimeoutSeconds)
	}
}

func TestValidate_RejectsInvalidLogLevel(t *testing.T) {
	cfg := NewConfig()
	cfg.Archive.PostCSVPath = "/posts.csv"
	cfg.Vectors.ContentDir = "/vectors"
	cfg.Daemon.LogLevel = "verbose"

	if err := cfg.Validate(); err == nil {
		t.Error("expected an error for an invalid log level")
	}
}

func TestValidate_RejectsNonPositiveTimeout(t *testing.T) {
	cfg := NewConfig()
	cfg.Archive.PostCSVPath = "/posts.csv"
	cfg.Vectors.ContentDir = "/vectors"
	cfg.Daemon.TimeoutSeconds = 0

	if err := cfg.Validate(); err == nil {
		t.Error("expected an error for a non-positive timeout")
	}
}
