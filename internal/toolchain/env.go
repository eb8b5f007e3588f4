package toolchain

import (
	"fmt"
	"os"
	"runtime"

	"git.home.luguber.info/inful/buildcheck/internal/errdefs"
)

// EnvToolchainFile names the environment variable supplying the package
// manager's cmake integration file. The matrix aborts before any cell runs
// when it is unset or the referenced file does not exist.
const EnvToolchainFile = "VCPKG_TOOLCHAIN_FILE"

// Tool names treated as black-box CLIs.
const (
	ToolCMake = "cmake"
	ToolVcpkg = "vcpkg"
)

// ToolchainFile resolves the toolchain integration file from the environment
// and verifies it exists.
func ToolchainFile() (string, error) {
	path := os.Getenv(EnvToolchainFile)
	if path == "" {
		return "", errdefs.ToolchainFileMissing(EnvToolchainFile, "")
	}
	if st, err := os.Stat(path); err != nil || st.IsDir() {
		return "", errdefs.ToolchainFileMissing(EnvToolchainFile, path)
	}
	return path, nil
}

// RequireTools verifies each named tool is invocable, failing with a
// descriptive precondition error on the first miss.
func RequireTools(r Runner, tools ...string) error {
	for _, tool := range tools {
		if _, err := r.LookPath(tool); err != nil {
			return errdefs.Wrap(errdefs.ErrToolNotFound, errdefs.CategoryToolchain, errdefs.SeverityFatal,
				fmt.Sprintf("%s is required but not on PATH", tool))
		}
	}
	return nil
}

// DynamicLibPathVar returns the platform's dynamic-library search path
// variable. Shared-linkage consumer runs extend it with the cell's install lib
// directory. Darwin uses DYLD_LIBRARY_PATH; everything else gets the ELF
// loader convention.
func DynamicLibPathVar() string {
	if runtime.GOOS == "darwin" {
		return "DYLD_LIBRARY_PATH"
	}
	return "LD_LIBRARY_PATH"
}

// ExtendPathVar builds a KEY=VALUE assignment that prepends dir to the
// variable's current value, preserving anything already set.
func ExtendPathVar(name, dir string) string {
	current := os.Getenv(name)
	if current == "" {
		return fmt.Sprintf("%s=%s", name, dir)
	}
	return fmt.Sprintf("%s=%s%c%s", name, dir, os.PathListSeparator, current)
}
