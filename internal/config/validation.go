package config

import (
	"fmt"
	"strings"
	"time"

	"git.home.luguber.info/inful/buildcheck/internal/errdefs"
)

// Validate checks a configuration after defaults have been applied. Errors
// carry the config category so the CLI can classify them.
func Validate(cfg *Config) error {
	v := &validator{cfg: cfg}
	return v.validate()
}

type validator struct {
	cfg *Config
}

func (v *validator) validate() error {
	if err := v.validatePackage(); err != nil {
		return err
	}
	if err := v.validateMatrix(); err != nil {
		return err
	}
	if err := v.validateDaemon(); err != nil {
		return err
	}
	if err := v.validateNotify(); err != nil {
		return err
	}
	v.normalizeLogging()
	return nil
}

func (v *validator) validatePackage() error {
	if strings.ContainsAny(v.cfg.Package.ConsumerBinary, `/\`) {
		return errdefs.New(errdefs.CategoryConfig, errdefs.SeverityFatal,
			fmt.Sprintf("package.consumer_binary must be a bare file name, got %q", v.cfg.Package.ConsumerBinary))
	}
	return nil
}

func (v *validator) validateMatrix() error {
	if v.cfg.Matrix.Parallel < 1 {
		return errdefs.New(errdefs.CategoryConfig, errdefs.SeverityFatal,
			fmt.Sprintf("matrix.parallel must be at least 1, got %d", v.cfg.Matrix.Parallel))
	}
	return nil
}

func (v *validator) validateDaemon() error {
	d := v.cfg.Daemon
	if d == nil {
		return nil
	}
	if err := validateSchedule(d.Schedule); err != nil {
		return errdefs.Wrap(err, errdefs.CategoryConfig, errdefs.SeverityFatal,
			"daemon.schedule is not a usable expression")
	}
	if d.DebounceMS < 0 {
		return errdefs.New(errdefs.CategoryConfig, errdefs.SeverityFatal,
			fmt.Sprintf("daemon.debounce_ms cannot be negative: %d", d.DebounceMS))
	}
	return nil
}

func (v *validator) validateNotify() error {
	n := v.cfg.Notify
	if n == nil {
		return nil
	}
	if strings.TrimSpace(n.URL) == "" {
		return errdefs.New(errdefs.CategoryConfig, errdefs.SeverityFatal,
			"notify.url is required when the notify section is present")
	}
	return nil
}

// normalizeLogging canonicalizes level and format, folding case and unknown
// values onto the defaults.
func (v *validator) normalizeLogging() {
	v.cfg.Logging.Level = NormalizeLogLevel(string(v.cfg.Logging.Level))
	v.cfg.Logging.Format = NormalizeLogFormat(string(v.cfg.Logging.Format))
}

// validateSchedule accepts "@every <duration>" or a 5-field cron pattern.
// Full cron parsing happens when the scheduler registers the job; this only
// rejects expressions that cannot possibly work.
func validateSchedule(expr string) error {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return fmt.Errorf("schedule is empty")
	}
	if rem, ok := strings.CutPrefix(expr, "@every "); ok {
		d, err := time.ParseDuration(strings.TrimSpace(rem))
		if err != nil {
			return fmt.Errorf("invalid @every duration %q: %w", rem, err)
		}
		if d <= 0 {
			return fmt.Errorf("@every duration must be positive, got %s", d)
		}
		return nil
	}
	if fields := strings.Fields(expr); len(fields) != 5 {
		return fmt.Errorf("expected 5 cron fields or @every form, got %q", expr)
	}
	return nil
}
