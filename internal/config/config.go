package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is twilogd's persisted configuration: the archive, vector
// store, and embedding-backend settings a user tunes once and expects
// to carry across `twilogd start` invocations.
type Config struct {
	Version   int             `yaml:"version" json:"version"`
	Archive   ArchiveConfig   `yaml:"archive" json:"archive"`
	Vectors   VectorsConfig   `yaml:"vectors" json:"vectors"`
	Embedding EmbeddingConfig `yaml:"embedding" json:"embedding"`
	Daemon    DaemonConfig    `yaml:"daemon" json:"daemon"`
	Cache     CacheConfig     `yaml:"cache" json:"cache"`
}

// ArchiveConfig locates the source-of-truth post archive and its
// optional auxiliary summary records.
type ArchiveConfig struct {
	// PostCSVPath is the Twilog CSV export.
	PostCSVPath string `yaml:"post_csv_path" json:"post_csv_path"`
	// SummaryJSONLPath is an optional per-post record file (tags, notes).
	SummaryJSONLPath string `yaml:"summary_jsonl_path" json:"summary_jsonl_path"`
}

// VectorsConfig locates the chunked vector-store directories. Only
// ContentDir is required; ReasoningDir and SummaryDir may be empty to
// run with a single embedding space loaded.
type VectorsConfig struct {
	ContentDir   string `yaml:"content_dir" json:"content_dir"`
	ReasoningDir string `yaml:"reasoning_dir" json:"reasoning_dir"`
	SummaryDir   string `yaml:"summary_dir" json:"summary_dir"`
}

// EmbeddingConfig configures the HTTP-backed embedding call the
// daemon uses to vectorize queries at search time.
type EmbeddingConfig struct {
	// Model is reported by get_status and mixed into the embedder's
	// result cache key.
	Model string `yaml:"model" json:"model"`
	// BaseURL is the embedding HTTP endpoint, e.g. http://localhost:11434/api/embed.
	BaseURL string `yaml:"base_url" json:"base_url"`
	// PoolSize bounds the embedding HTTP client's idle connection pool.
	PoolSize int `yaml:"pool_size" json:"pool_size"`
}

// DaemonConfig configures the background service's socket, PID file,
// and request handling.
type DaemonConfig struct {
	SocketPath           string `yaml:"socket_path" json:"socket_path"`
	PIDPath              string `yaml:"pid_path" json:"pid_path"`
	TimeoutSeconds       int    `yaml:"timeout_seconds" json:"timeout_seconds"`
	ShutdownGraceSeconds int    `yaml:"shutdown_grace_seconds" json:"shutdown_grace_seconds"`
	// AutoStart is passed on to the daemon config; no CLI command reads
	// it, so the CLI never starts the daemon on its own.
	AutoStart bool `yaml:"auto_start" json:"auto_start"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// CacheConfig bounds the daemon's in-memory and on-disk caches.
type CacheConfig struct {
	// EmbedCacheSize bounds the embedder's LRU result cache; 0 disables it.
	EmbedCacheSize int `yaml:"embed_cache_size" json:"embed_cache_size"`
	// StatsCachePath is the SQLite statistics cache path. Empty uses an
	// in-memory cache (recomputed on every restart).
	StatsCachePath string `yaml:"stats_cache_path" json:"stats_cache_path"`
}

// NewConfig returns a Config with sensible defaults rooted at ~/.twilogd.
func NewConfig() *Config {
	dir := defaultStateDir()
	return &Config{
		Version: 1,
		Archive: ArchiveConfig{
			PostCSVPath:      "",
			SummaryJSONLPath: "",
		},
		Vectors: VectorsConfig{
			ContentDir:   "",
			ReasoningDir: "",
			SummaryDir:   "",
		},
		Embedding: EmbeddingConfig{
			Model:    "nomic-embed-text",
			BaseURL:  "http://localhost:11434/api/embed",
			PoolSize: 4,
		},
		Daemon: DaemonConfig{
			SocketPath:           filepath.Join(dir, "daemon.sock"),
			PIDPath:              filepath.Join(dir, "daemon.pid"),
			TimeoutSeconds:       30,
			ShutdownGraceSeconds: 10,
			AutoStart:            true,
			LogLevel:             "info",
		},
		Cache: CacheConfig{
			EmbedCacheSize: 1024,
			StatsCachePath: filepath.Join(dir, "stats.db"),
		},
	}
}

// defaultStateDir returns ~/.twilogd, falling back to a temp directory
// if the home directory is unavailable.
func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".twilogd")
	}
	return filepath.Join(home, ".twilogd")
}

// GetUserConfigPath returns the path to the user/global configuration
// file, following the XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/twilogd/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/twilogd/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "twilogd", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "twilogd", "config.yaml")
	}
	return filepath.Join(home, ".config", "twilogd", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if it
// exists. Returns nil config and nil error if the file doesn't exist.
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}
	return cfg, nil
}

// LoadUserConfig loads the user configuration file. Returns nil config
// and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}

// MergeWith merges non-zero values from other into c. Exported so
// callers can layer a loaded config's settings onto a fresh set of
// defaults, e.g. when upgrading a user config file to pick up new
// default fields without losing existing settings.
func (c *Config) MergeWith(other *Config) {
	c.mergeWith(other)
}

// Load loads configuration for the archive rooted at dir, applying
// configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/twilogd/config.yaml)
//  3. Archive-local config (twilog.yaml in dir)
//  4. Environment variables (TWILOGD_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from twilog.yaml or
// twilog.yml in dir.
func (c *Config) loadFromFile(dir string) error {
	path := ResolvedConfigPath(dir)
	if path == "" {
		return nil
	}
	return c.loadYAML(path)
}

// ResolvedConfigPath returns the archive-local config file Load would
// read from dir (twilog.yaml, falling back to twilog.yml), or "" if
// neither exists. Used by the daemon to know which file to watch for
// changes after startup.
func ResolvedConfigPath(dir string) string {
	yamlPath := filepath.Join(dir, "twilog.yaml")
	if fileExists(yamlPath) {
		return yamlPath
	}

	ymlPath := filepath.Join(dir, "twilog.yml")
	if fileExists(ymlPath) {
		return ymlPath
	}

	return ""
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Archive.PostCSVPath != "" {
		c.Archive.PostCSVPath = other.Archive.PostCSVPath
	}
	if other.Archive.SummaryJSONLPath != "" {
		c.Archive.SummaryJSONLPath = other.Archive.SummaryJSONLPath
	}

	if other.Vectors.ContentDir != "" {
		c.Vectors.ContentDir = other.Vectors.ContentDir
	}
	if other.Vectors.ReasoningDir != "" {
		c.Vectors.ReasoningDir = other.Vectors.ReasoningDir
	}
	if other.Vectors.SummaryDir != "" {
		c.Vectors.SummaryDir = other.Vectors.SummaryDir
	}

	if other.Embedding.Model != "" {
		c.Embedding.Model = other.Embedding.Model
	}
	if other.Embedding.BaseURL != "" {
		c.Embedding.BaseURL = other.Embedding.BaseURL
	}
	if other.Embedding.PoolSize != 0 {
		c.Embedding.PoolSize = other.Embedding.PoolSize
	}

	if other.Daemon.SocketPath != "" {
		c.Daemon.SocketPath = other.Daemon.SocketPath
	}
	if other.Daemon.PIDPath != "" {
		c.Daemon.PIDPath = other.Daemon.PIDPath
	}
	if other.Daemon.TimeoutSeconds != 0 {
		c.Daemon.TimeoutSeconds = other.Daemon.TimeoutSeconds
	}
	if other.Daemon.ShutdownGraceSeconds != 0 {
		c.Daemon.ShutdownGraceSeconds = other.Daemon.ShutdownGraceSeconds
	}
	if other.Daemon.LogLevel != "" {
		c.Daemon.LogLevel = other.Daemon.LogLevel
	}
	// AutoStart can be explicitly set to false, so only merge if the
	// rest of the daemon section was present.
	if other.Daemon.SocketPath != "" || other.Daemon.PIDPath != "" || other.Daemon.LogLevel != "" {
		c.Daemon.AutoStart = other.Daemon.AutoStart
	}

	if other.Cache.EmbedCacheSize != 0 {
		c.Cache.EmbedCacheSize = other.Cache.EmbedCacheSize
	}
	if other.Cache.StatsCachePath != "" {
		c.Cache.StatsCachePath = other.Cache.StatsCachePath
	}
}

// applyEnvOverrides applies TWILOGD_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("TWILOGD_POST_CSV_PATH"); v != "" {
		c.Archive.PostCSVPath = v
	}
	if v := os.Getenv("TWILOGD_SUMMARY_JSONL_PATH"); v != "" {
		c.Archive.SummaryJSONLPath = v
	}
	if v := os.Getenv("TWILOGD_CONTENT_DIR"); v != "" {
		c.Vectors.ContentDir = v
	}
	if v := os.Getenv("TWILOGD_REASONING_DIR"); v != "" {
		c.Vectors.ReasoningDir = v
	}
	if v := os.Getenv("TWILOGD_SUMMARY_DIR"); v != "" {
		c.Vectors.SummaryDir = v
	}
	if v := os.Getenv("TWILOGD_EMBEDDING_MODEL"); v != "" {
		c.Embedding.Model = v
	}
	if v := os.Getenv("TWILOGD_EMBEDDING_BASE_URL"); v != "" {
		c.Embedding.BaseURL = v
	}
	if v := os.Getenv("TWILOGD_SOCKET_PATH"); v != "" {
		c.Daemon.SocketPath = v
	}
	if v := os.Getenv("TWILOGD_PID_PATH"); v != "" {
		c.Daemon.PIDPath = v
	}
	if v := os.Getenv("TWILOGD_LOG_LEVEL"); v != "" {
		c.Daemon.LogLevel = v
	}
	if v := os.Getenv("TWILOGD_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Daemon.TimeoutSeconds = n
		}
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Archive.PostCSVPath == "" {
		return fmt.Errorf("archive.post_csv_path must be set")
	}
	if c.Vectors.ContentDir == "" {
		return fmt.Errorf("vectors.content_dir must be set")
	}
	if c.Daemon.SocketPath == "" {
		return fmt.Errorf("daemon.socket_path must be set")
	}
	if c.Daemon.PIDPath == "" {
		return fmt.Errorf("daemon.pid_path must be set")
	}
	if c.Daemon.TimeoutSeconds <= 0 {
		return fmt.Errorf("daemon.timeout_seconds must be positive, got %d", c.Daemon.TimeoutSeconds)
	}
	if c.Daemon.ShutdownGraceSeconds <= 0 {
		return fmt.Errorf("daemon.shutdown_grace_seconds must be positive, got %d", c.Daemon.ShutdownGraceSeconds)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Daemon.LogLevel)] {
		return fmt.Errorf("daemon.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Daemon.LogLevel)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
