package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/buildcheck/internal/config"
)

// Global context passed to subcommands if we need to share global state later.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags - used by commands that need access to root config.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (defaults to buildcheck.yaml when present)"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Matrix        MatrixCmd        `cmd:"" help:"Run the full build matrix against the local working tree"`
	Baseline      BaselineCmd      `cmd:"" help:"Check that the pinned dependency baseline is fresh and resolvable"`
	Overlay       OverlayCmd       `cmd:"" help:"Synthesize the overlay port without running the matrix"`
	Presets       PresetsCmd       `cmd:"" help:"Inject ambient CC/CXX into environment-dependent CMake presets"`
	Init          InitCmd          `cmd:"" help:"Initialize a new configuration file"`
	InstallHook   InstallHookCmd   `cmd:"" name:"install-hook" help:"Install the git pre-push baseline guard"`
	History       HistoryCmd       `cmd:"" help:"List or inspect recorded runs"`
	Daemon        DaemonCmd        `cmd:"" help:"Run scheduled validation with manifest watching and metrics"`
	MergeRegistry MergeRegistryCmd `cmd:"" name:"merge-registry" help:"Append a git registry entry to vcpkg-configuration.json"`
	VersionCmd    VersionCmd       `cmd:"" name:"version" help:"Show detailed version information"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// LoadConfig loads the configuration the root flags point at and applies its
// logging section.
func (c *CLI) LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	ApplyLogging(cfg, c.Verbose)
	return cfg, nil
}

// ApplyLogging reconfigures the global logger from the loaded configuration.
// The --verbose flag always wins over the configured level.
func ApplyLogging(cfg *config.Config, verbose bool) {
	level := slogLevel(cfg.Logging.Level)
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Logging.Format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func slogLevel(l config.LogLevel) slog.Level {
	switch l {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// CopyDir recursively copies a directory tree, preserving file permissions.
func CopyDir(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dst, srcInfo.Mode()); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			if err := CopyDir(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(srcPath, dstPath); err != nil {
			return err
		}
	}
	return nil
}

// copyFile copies a single file from src to dst.
func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = srcFile.Close()
	}()

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		_ = dstFile.Close()
	}()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return err
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	return os.Chmod(dst, srcInfo.Mode())
}
