package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains on-disk locations.
type Paths struct {
	StateDir     string `toml:"state_dir"`
	DatabasePath string `toml:"database_path"`
	LogDir       string `toml:"log_dir"`
}

// Matching holds the confidence decision thresholds.
type Matching struct {
	AutoApplyThreshold float64 `toml:"auto_apply_threshold"`
	ReviewFloor        float64 `toml:"review_floor"`
}

// Batch sizes the observation worker pool.
type Batch struct {
	Workers int `toml:"workers"`

	// MinDelayMillis is the minimum gap between candidate lookups made by one worker.
	MinDelayMillis int `toml:"min_delay_ms"`
}

// Tier sets how large a drop below baseline a source may show before it is flagged.
type Tier struct {
	// DropPercent is negative: -30 flags anything falling more than 30% below baseline.
	DropPercent float64 `toml:"drop_percent"`
}

// Anomaly configures per-source health checks.
type Anomaly struct {
	WindowDays        int             `toml:"window_days"`
	MinimumCountGuard float64         `toml:"minimum_count_guard"`
	MaxRunAgeDays     int             `toml:"max_run_age_days"`
	SpikePercent      float64         `toml:"spike_percent"`
	SpikeMinimumDelta float64         `toml:"spike_minimum_delta"`
	DefaultTier       string          `toml:"default_tier"`
	Tiers             map[string]Tier `toml:"tiers"`

	// Sources maps each monitored source id to its tier name.
	Sources map[string]string `toml:"sources"`
}

// Monitor controls the scheduled health check daemon.
type Monitor struct {
	IntervalSeconds int    `toml:"interval_seconds"`
	LockPath        string `toml:"lock_path"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic          string `toml:"ntfy_topic"`
	RequestTimeout     int    `toml:"request_timeout"`
	Anomalies          bool   `toml:"anomalies"`
	Review             bool   `toml:"review"`
	Merges             bool   `toml:"merges"`
	DedupWindowSeconds int    `toml:"dedup_window_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// Config encapsulates all configuration values for postboxd.
//
// Configuration sections by subsystem:
//   - Paths: state directory, SQLite database, and log directory
//   - Matching: auto-apply and review thresholds for candidate scoring
//   - Batch: worker pool size and per-worker lookup delay
//   - Anomaly: baseline window, guards, tier thresholds, and source tiers
//   - Monitor: health check cadence and single-instance lock
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and rotation
type Config struct {
	Paths         Paths         `toml:"paths"`
	Matching      Matching      `toml:"matching"`
	Batch         Batch         `toml:"batch"`
	Anomaly       Anomaly       `toml:"anomaly"`
	Monitor       Monitor       `toml:"monitor"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
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
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("postboxd.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the state, database, and log directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.StateDir, filepath.Dir(c.Paths.DatabasePath), c.Paths.LogDir, filepath.Dir(c.Monitor.LockPath)}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// TierFor returns the tier name configured for sourceID, or the default tier.
func (c *Config) TierFor(sourceID string) string {
	if tier, ok := c.Anomaly.Sources[strings.TrimSpace(sourceID)]; ok && tier != "" {
		return tier
	}
	return c.Anomaly.DefaultTier
}

// MonitoredSources returns the configured source ids in a stable order.
func (c *Config) MonitoredSources() []string {
	sources := make([]string, 0, len(c.Anomaly.Sources))
	for id := range c.Anomaly.Sources {
		sources = append(sources, id)
	}
	sort.Strings(sources)
	return sources
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
