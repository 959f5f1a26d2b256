package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/jamesbarge/postboxd-sub001/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.DatabasePath = filepath.Join(base, "state", "postboxd.db")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Monitor.LockPath = filepath.Join(base, "state", "monitor.lock")
	cfgVal.Batch.MinDelayMillis = 0
	cfgVal.Notifications.NtfyTopic = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithSourceTier assigns sourceID to tier on the test config.
func WithSourceTier(sourceID, tier string) ConfigOption {
	return func(b *configBuilder) {
		if b.cfg.Anomaly.Sources == nil {
			b.cfg.Anomaly.Sources = map[string]string{}
		}
		b.cfg.Anomaly.Sources[sourceID] = tier
	}
}

// WithNtfyTopic points notifications at topic, typically an httptest URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithWorkers sets the batch worker count.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Batch.Workers = n
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
