// Package daemon implements the twilogd background service: it keeps the
// embedding model and every post/vector/summary store resident in
// memory so that repeated searches skip the load cost, exposing them
// over a JSON-RPC Unix socket.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds the paths and tunables for one daemon instance.
type Config struct {
	// SocketPath is the Unix domain socket the daemon serves JSON-RPC on.
	// Default: ~/.twilogd/daemon.sock
	SocketPath string

	// PIDPath is the file path recording the daemon's process id, also
	// used as the advisory single-instance lock file.
	// Default: ~/.twilogd/daemon.pid
	PIDPath string

	// Timeout bounds client-daemon round-trips.
	// Default: 30s
	Timeout time.Duration

	// ShutdownGracePeriod is loaded and validated but not read by the
	// server: stop_server closes the listener without a drain deadline.
	// Default: 10s
	ShutdownGracePeriod time.Duration

	// AutoStart is carried from the user config; no CLI command reads
	// it, so the CLI never starts the daemon on its own.
	// Default: false
	AutoStart bool

	// ContentDir, ReasoningDir, SummaryDir are chunked vector-store
	// directories (meta.json + NNNN.safetensors). ReasoningDir/SummaryDir
	// may be empty to run with only the content space loaded.
	ContentDir   string
	ReasoningDir string
	SummaryDir   string

	// PostCSVPath is the source-of-truth post archive.
	PostCSVPath string

	// SummaryJSONLPath is the optional per-post auxiliary record file.
	SummaryJSONLPath string

	// StatsCachePath is the SQLite statistics cache path. Empty uses an
	// in-memory cache (recomputed on every restart).
	StatsCachePath string

	// EmbedCacheSize bounds the embedder's LRU result cache; 0 disables it.
	EmbedCacheSize int

	// ModelName is reported by get_status and used as part of the
	// embedder result cache key.
	ModelName string
}

// frontSocketSuffix names the sibling reverse-channel socket the front
// process listens on for the duration of the init handshake.
const frontSocketSuffix = ".front"

// FrontSocketPath returns the sibling path used for the reverse
// progress/init channel during daemon startup.
func (c Config) FrontSocketPath() string {
	return c.SocketPath + frontSocketSuffix
}

// DefaultConfig returns a Config with sensible defaults rooted at
// ~/.twilogd.
func DefaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "/tmp"
	}

	dir := filepath.Join(home, ".twilogd")

	return Config{
		SocketPath:          filepath.Join(dir, "daemon.sock"),
		PIDPath:             filepath.Join(dir, "daemon.pid"),
		Timeout:             30 * time.Second,
		ShutdownGracePeriod: 10 * time.Second,
		AutoStart:           false,
		StatsCachePath:      filepath.Join(dir, "stats.db"),
		EmbedCacheSize:      1024,
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.SocketPath == "" {
		return fmt.Errorf("socket path cannot be empty")
	}
	if c.PIDPath == "" {
		return fmt.Errorf("PID path cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.ShutdownGracePeriod <= 0 {
		return fmt.Errorf("shutdown grace period must be positive")
	}
	if c.ContentDir == "" {
		return fmt.Errorf("content vector directory must be set")
	}
	if c.PostCSVPath == "" {
		return fmt.Errorf("post CSV path must be set")
	}
	return nil
}

// EnsureDir creates the directories backing the socket, PID, and stats
// cache paths.
func (c Config) EnsureDir() error {
	dirs := map[string]struct{}{
		filepath.Dir(c.SocketPath): {},
		filepath.Dir(c.PIDPath):    {},
	}
	if c.StatsCachePath != "" {
		dirs[filepath.Dir(c.StatsCachePath)] = struct{}{}
	}
	for d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", d, err)
		}
	}
	return nil
}
