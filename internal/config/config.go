// Package config loads, defaults, and validates the buildcheck.yaml
// configuration. Every key is optional so a repository without a config file
// still gets a complete working setup.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/buildcheck/internal/logfields"
)

// DefaultFile is the configuration file looked up when no --config flag is
// given.
const DefaultFile = "buildcheck.yaml"

// Config represents the application configuration.
type Config struct {
	Package   PackageConfig   `yaml:"package"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Matrix    MatrixConfig    `yaml:"matrix"`
	Store     StoreConfig     `yaml:"store"`
	Daemon    *DaemonConfig   `yaml:"daemon,omitempty"`
	Notify    *NotifyConfig   `yaml:"notify,omitempty"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// PackageConfig locates the package under validation and its downstream
// consumer project.
type PackageConfig struct {
	Dir            string `yaml:"dir"`             // directory holding the dependency manifest
	ConsumerDir    string `yaml:"consumer_dir"`    // downstream consumer project
	ConsumerBinary string `yaml:"consumer_binary"` // binary the consumer project produces
}

// WorkspaceConfig fixes where generated directories live.
type WorkspaceConfig struct {
	Root string `yaml:"root"`
}

// MatrixConfig tunes matrix execution.
type MatrixConfig struct {
	Parallel   int  `yaml:"parallel"`    // concurrent cells; 1 keeps runs strictly sequential
	ForceClean bool `yaml:"force_clean"` // delete generated directories even on failure
}

// StoreConfig configures the run history database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// DaemonConfig configures scheduled validation.
type DaemonConfig struct {
	Schedule    string `yaml:"schedule"`     // cron expression or "@every <duration>"
	Watch       bool   `yaml:"watch"`        // re-validate when the manifest changes
	DebounceMS  int    `yaml:"debounce_ms"`  // watch debounce window
	MetricsAddr string `yaml:"metrics_addr"` // Prometheus /metrics listen address
}

// Debounce returns the watch debounce window as a duration.
func (d *DaemonConfig) Debounce() time.Duration {
	return time.Duration(d.DebounceMS) * time.Millisecond
}

// NotifyConfig configures run-event publishing.
type NotifyConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// Load loads configuration from path. An empty path means DefaultFile, and a
// missing DefaultFile is not an error: the defaults alone form a complete
// configuration. An explicitly given path must exist.
func Load(path string) (*Config, error) {
	// Load .env if present; absence is the normal case.
	if err := loadEnvFile(); err != nil {
		slog.Debug("No .env file loaded", logfields.Error(err))
	}

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if !explicit {
				cfg := &Config{}
				applyDefaults(cfg)
				return cfg, nil
			}
			return nil, fmt.Errorf("configuration file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content before parsing.
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// loadEnvFile loads the first .env style file found. Existing process
// environment variables are never overwritten.
func loadEnvFile() error {
	for _, name := range []string{".env", ".env.local"} {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			return fmt.Errorf("failed to load %s: %w", name, err)
		}
		slog.Debug("Loaded environment variables", logfields.Path(name))
		return nil
	}
	return fmt.Errorf("no .env file found")
}
