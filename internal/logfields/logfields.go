package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyCell       = "cell"
	KeyStage      = "stage"
	KeyTool       = "tool"
	KeyPath       = "path"
	KeyOutcome    = "outcome"
	KeyDurationMS = "duration_ms"
	KeyExitCode   = "exit_code"
	KeyProfile    = "profile"
	KeyComponent  = "component"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Cell(c string) slog.Attr         { return slog.String(KeyCell, c) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Tool(name string) slog.Attr      { return slog.String(KeyTool, name) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Outcome(o string) slog.Attr      { return slog.String(KeyOutcome, o) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func ExitCode(code int) slog.Attr     { return slog.Int(KeyExitCode, code) }
func Profile(name string) slog.Attr   { return slog.String(KeyProfile, name) }
func Component(name string) slog.Attr { return slog.String(KeyComponent, name) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
