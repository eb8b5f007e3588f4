package daemon

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNew_RequiresRunFunc(t *testing.T) {
	if _, err := New(Options{Schedule: "@every 1h"}); err == nil {
		t.Fatal("Expected error when no run function is given")
	}
}

func TestJobDefinition(t *testing.T) {
	if _, err := jobDefinition("@every 5m"); err != nil {
		t.Errorf("jobDefinition(@every 5m) failed: %v", err)
	}
	if _, err := jobDefinition("@every junk"); err == nil {
		t.Error("Expected error for invalid @every duration")
	}
	def, err := jobDefinition("0 */4 * * *")
	if err != nil || def == nil {
		t.Errorf("jobDefinition(cron) = %v, %v", def, err)
	}
}

func TestDaemon_StartupPassRuns(t *testing.T) {
	runs := make(chan struct{}, 4)
	d, err := New(Options{
		Schedule: "@every 1h",
		Debounce: 10 * time.Millisecond,
		Run: func(context.Context) error {
			runs <- struct{}{}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer d.Stop(context.Background())

	select {
	case <-runs:
	case <-time.After(3 * time.Second):
		t.Fatal("Startup validation pass never ran")
	}
}

func TestDaemon_WatchTriggersValidation(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "vcpkg.json")
	if err := os.WriteFile(manifest, []byte(`{"name":"widget"}`), 0o644); err != nil {
		t.Fatalf("Failed to write manifest: %v", err)
	}

	runs := make(chan struct{}, 8)
	d, err := New(Options{
		Schedule:     "@every 1h",
		Watch:        true,
		ManifestPath: manifest,
		Debounce:     20 * time.Millisecond,
		Run: func(context.Context) error {
			runs <- struct{}{}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer d.Stop(context.Background())

	// Absorb the startup pass before mutating the manifest so the change
	// trigger is observed on its own.
	select {
	case <-runs:
	case <-time.After(3 * time.Second):
		t.Fatal("Startup pass never ran")
	}

	if err := os.WriteFile(manifest, []byte(`{"name":"widget","version":"2"}`), 0o644); err != nil {
		t.Fatalf("Failed to modify manifest: %v", err)
	}

	select {
	case <-runs:
	case <-time.After(3 * time.Second):
		t.Fatal("Manifest change never triggered a validation pass")
	}
}

func TestDaemon_BurstCollapsesToOneFollowUp(t *testing.T) {
	runs := make(chan struct{}, 16)
	gate := make(chan struct{})
	d, err := New(Options{
		Schedule: "@every 1h",
		Debounce: time.Millisecond,
		Run: func(context.Context) error {
			runs <- struct{}{}
			<-gate
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.triggerLoop(ctx)

	d.trigger("first")
	select {
	case <-runs:
	case <-time.After(3 * time.Second):
		t.Fatal("First pass never started")
	}

	// A burst while the pass is blocked must queue exactly one follow-up.
	for range 5 {
		d.trigger("burst")
		time.Sleep(5 * time.Millisecond)
	}

	close(gate)
	select {
	case <-runs:
	case <-time.After(3 * time.Second):
		t.Fatal("Follow-up pass never ran")
	}
	select {
	case <-runs:
		t.Fatal("More than one follow-up pass ran")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDaemon_MetricsEndpoint(t *testing.T) {
	d, err := New(Options{
		Schedule:    "@every 1h",
		MetricsAddr: "127.0.0.1:0",
		Run:         func(context.Context) error { return nil },
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer d.Stop(context.Background())

	base := d.MetricsURL()
	if base == "" {
		t.Fatal("MetricsURL() is empty with a configured metrics address")
	}

	resp, err := http.Get(base + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /healthz status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(base + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /metrics status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Error("Expected runtime collector metrics in /metrics output")
	}
}
