package config

import (
	"fmt"
	"os"
)

// starterConfig is the scaffold written by Init. Every uncommented value is
// the default, so the file works untouched.
const starterConfig = `# buildcheck configuration. Every key is optional; the values below are the
# defaults. Environment variables in the form ${VAR} are expanded before
# parsing, and a .env file next to this one is loaded first.

package:
  # Directory containing the dependency manifest (vcpkg.json).
  dir: .
  # Downstream consumer project built against the installed package.
  consumer_dir: test_package
  # Binary the consumer project produces.
  consumer_binary: example

workspace:
  # Scratch root for the generated build/install/consumer/overlay/log trees.
  root: .buildcheck

matrix:
  # Cells built concurrently. 1 keeps runs strictly sequential.
  parallel: 1
  # Delete generated directories even when a run fails.
  force_clean: false

store:
  # Run history database. Sits next to the generated trees and survives
  # artifact cleanup.
  path: .buildcheck/runs.db

logging:
  level: info   # debug|info|warn|error
  format: text  # text|json

# Uncomment for scheduled validation with a Prometheus /metrics endpoint.
#daemon:
#  schedule: "0 */4 * * *"
#  watch: true
#  debounce_ms: 300
#  metrics_addr: ":9090"

# Uncomment to publish run events to NATS.
#notify:
#  url: nats://127.0.0.1:4222
#  subject: buildcheck.runs
`

// Init writes a commented starter configuration file.
func Init(path string, force bool) error {
	if path == "" {
		path = DefaultFile
	}
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
	}
	if err := os.WriteFile(path, []byte(starterConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
