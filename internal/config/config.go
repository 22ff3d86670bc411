package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"ytqueue/internal/job"
)

//go:embed sample_config.toml
var sampleConfig string

// Storage backend names.
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
)

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	LogDir    string `toml:"log_dir"`
	OutputDir string `toml:"output_dir"`
	APIBind   string `toml:"api_bind"`
	APIToken  string `toml:"api_token"`
}

// Storage selects the queue persistence backend.
type Storage struct {
	Backend string `toml:"backend"`
}

// Engine describes the external generate and upload commands. Each command
// receives a JSON request on stdin and reports progress on stdout.
type Engine struct {
	GenerateCommand string   `toml:"generate_command"`
	GenerateArgs    []string `toml:"generate_args"`
	UploadCommand   string   `toml:"upload_command"`
	UploadArgs      []string `toml:"upload_args"`
	TimeoutSeconds  int      `toml:"timeout_seconds"`
}

// Runner contains queue processing policy.
type Runner struct {
	// MaxRetries caps how often a failed item is returned to pending. Zero is unlimited.
	MaxRetries          int    `toml:"max_retries"`
	Schedule            string `toml:"schedule"`
	ScheduleRetryFailed bool   `toml:"schedule_retry_failed"`
}

// Watch configures the directory watcher that enqueues new audio files.
type Watch struct {
	Enabled     bool     `toml:"enabled"`
	Dir         string   `toml:"dir"`
	PollSeconds int      `toml:"poll_seconds"`
	AutoUpload  bool     `toml:"auto_upload"`
	Profile     string   `toml:"profile"`
	Extensions  []string `toml:"extensions"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Queue          bool   `toml:"queue"`
	Jobs           bool   `toml:"jobs"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for ytqueue.
//
// Configuration sections by subsystem:
//   - Paths: data, log and output directories plus the HTTP API bind
//   - Storage: queue backend selection
//   - Engine: external generate/upload commands
//   - Runner: retry ceiling and scheduled runs
//   - Watch: directory watcher
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
//   - Profiles: named GenerateParams defaults
type Config struct {
	Paths         Paths                         `toml:"paths"`
	Storage       Storage                       `toml:"storage"`
	Engine        Engine                        `toml:"engine"`
	Runner        Runner                        `toml:"runner"`
	Watch         Watch                         `toml:"watch"`
	Notifications Notifications                 `toml:"notifications"`
	Logging       Logging                       `toml:"logging"`
	Profiles      map[string]job.GenerateParams `toml:"profiles"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/ytqueue/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("ytqueue.toml")
	if err != nil {
		return "", false, err
	}

	for _, candidate := range []string{defaultPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SocketPath returns the IPC socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.DataDir, "ytqueue.sock")
}

// ProcessorLockPath returns the lock file held by whichever process runs the queue.
func (c *Config) ProcessorLockPath() string {
	return filepath.Join(c.Paths.DataDir, "ytqueue.lock")
}

// Profile returns the named profile. An empty name yields empty params.
func (c *Config) Profile(name string) (job.GenerateParams, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return job.GenerateParams{}, nil
	}
	params, ok := c.Profiles[name]
	if !ok {
		names := c.ProfileNames()
		if len(names) == 0 {
			return job.GenerateParams{}, fmt.Errorf("profile %q not found (no profiles configured)", name)
		}
		return job.GenerateParams{}, fmt.Errorf("profile %q not found (available: %s)", name, strings.Join(names, ", "))
	}
	return params, nil
}

// ProfileNames returns the configured profile names in sorted order.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
