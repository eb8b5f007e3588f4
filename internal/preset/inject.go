package preset

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/buildcheck/internal/logfields"
)

// InjectResult reports what an injection pass changed.
type InjectResult struct {
	Updated   []string // preset names that received the ambient pair
	Untouched []string // compiler-specific presets preserved as-is
}

// InjectCompilers rewrites a CMake presets document so that every
// environment-dependent configure preset carries the ambient compiler pair in
// its environment block. Compiler-specific presets are never modified. The
// document is written back with stable key order and a trailing newline, so
// repeated runs with identical inputs are byte-identical.
//
// When the ambient pair is incomplete the document is left untouched and an
// empty result is returned; partial injection is never performed.
func InjectCompilers(path string, ambient Compilers) (InjectResult, error) {
	var res InjectResult

	data, err := os.ReadFile(path)
	if err != nil {
		return res, fmt.Errorf("read presets file: %w", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return res, fmt.Errorf("decode presets file %s: %w", path, err)
	}

	if !ambient.bothSet() {
		slog.Debug("Ambient compiler pair incomplete; presets left untouched",
			logfields.Path(path))
		return res, nil
	}

	rawPresets, ok := doc["configurePresets"].([]any)
	if !ok {
		return res, fmt.Errorf("presets file %s has no configurePresets array", path)
	}

	for _, rp := range rawPresets {
		p, ok := rp.(map[string]any)
		if !ok {
			continue
		}
		name, _ := p["name"].(string)
		if Classify(name) != EnvironmentDependent {
			res.Untouched = append(res.Untouched, name)
			continue
		}
		env, ok := p["environment"].(map[string]any)
		if !ok {
			env = map[string]any{}
			p["environment"] = env
		}
		env["CC"] = ambient.CC
		env["CXX"] = ambient.CXX
		res.Updated = append(res.Updated, name)
		slog.Info("Injected ambient compilers into preset",
			logfields.Profile(name),
			slog.String("cc", ambient.CC),
			slog.String("cxx", ambient.CXX))
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return res, fmt.Errorf("encode presets file: %w", err)
	}
	out = append(out, '\n')

	if err := os.WriteFile(path, out, 0o644); err != nil {
		return res, fmt.Errorf("write presets file: %w", err)
	}
	return res, nil
}
