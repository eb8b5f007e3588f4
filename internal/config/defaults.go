package config

import "path/filepath"

// Defaults for every tunable. The zero Config plus these forms a complete
// working configuration for a repository with a manifest at its root and a
// consumer project under test_package/.
const (
	DefaultPackageDir     = "."
	DefaultConsumerDir    = "test_package"
	DefaultConsumerBinary = "example"
	DefaultWorkspaceRoot  = ".buildcheck"
	DefaultParallel       = 1
	DefaultStoreFile      = "runs.db"
	DefaultSchedule       = "0 */4 * * *" // every 4 hours
	DefaultDebounceMS     = 300
	DefaultMetricsAddr    = ":9090"
)

// applyDefaults fills every zero-valued field. Called after unmarshal and
// before validation so canonical values drive the checks.
func applyDefaults(cfg *Config) {
	if cfg.Package.Dir == "" {
		cfg.Package.Dir = DefaultPackageDir
	}
	if cfg.Package.ConsumerDir == "" {
		cfg.Package.ConsumerDir = DefaultConsumerDir
	}
	if cfg.Package.ConsumerBinary == "" {
		cfg.Package.ConsumerBinary = DefaultConsumerBinary
	}
	if cfg.Workspace.Root == "" {
		cfg.Workspace.Root = DefaultWorkspaceRoot
	}
	if cfg.Matrix.Parallel == 0 {
		cfg.Matrix.Parallel = DefaultParallel
	}
	if cfg.Store.Path == "" {
		// Next to the generated trees; survives artifact cleanup.
		cfg.Store.Path = filepath.Join(cfg.Workspace.Root, DefaultStoreFile)
	}
	if cfg.Daemon != nil {
		if cfg.Daemon.Schedule == "" {
			cfg.Daemon.Schedule = DefaultSchedule
		}
		if cfg.Daemon.DebounceMS == 0 {
			cfg.Daemon.DebounceMS = DefaultDebounceMS
		}
		if cfg.Daemon.MetricsAddr == "" {
			cfg.Daemon.MetricsAddr = DefaultMetricsAddr
		}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = LogLevelInfo
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = LogFormatText
	}
}
