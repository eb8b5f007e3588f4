package notify

import (
	"context"
	"testing"
	"time"

	"git.home.luguber.info/inful/buildcheck/internal/report"
	"git.home.luguber.info/inful/buildcheck/internal/retry"
)

func TestFromReport(t *testing.T) {
	r := &report.RunReport{
		RunID:   "run-1",
		Package: "widget",
		Version: "1.2.3",
		Commit:  "abc1234",
		Branch:  "main",
		Outcome: "failed",
		Passed:  3,
		Total:   4,
	}

	event := FromReport(r)

	if event.RunID != "run-1" {
		t.Errorf("RunID = %q, want run-1", event.RunID)
	}
	if event.Package != "widget" || event.Version != "1.2.3" {
		t.Errorf("package/version = %q/%q", event.Package, event.Version)
	}
	if event.Commit != "abc1234" || event.Branch != "main" {
		t.Errorf("commit/branch = %q/%q", event.Commit, event.Branch)
	}
	if event.Outcome != "failed" {
		t.Errorf("Outcome = %q, want failed", event.Outcome)
	}
	if event.Passed != 3 || event.Total != 4 {
		t.Errorf("passed/total = %d/%d, want 3/4", event.Passed, event.Total)
	}
	if !event.Timestamp.IsZero() {
		t.Error("Timestamp should be unset until publish")
	}
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	if err := p.PublishRun(context.Background(), RunEvent{RunID: "x"}); err != nil {
		t.Fatalf("PublishRun: %v", err)
	}
	p.Close()
}

// The port is reserved and never listened on, so dialing fails immediately.
func TestNewNATSPublisherWithRetryExhaustsAttempts(t *testing.T) {
	policy := retry.NewPolicy(retry.BackoffFixed, time.Millisecond, time.Millisecond, 2)

	start := time.Now()
	_, err := NewNATSPublisherWithRetry(context.Background(), "nats://127.0.0.1:1", "", policy)
	if err == nil {
		t.Fatal("expected connect error for unreachable server")
	}
	if elapsed := time.Since(start); elapsed < 2*time.Millisecond {
		t.Fatalf("expected two backoff waits, finished in %v", elapsed)
	}
}

func TestNewNATSPublisherWithRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	policy := retry.NewPolicy(retry.BackoffFixed, time.Minute, time.Minute, 1)
	_, err := NewNATSPublisherWithRetry(ctx, "nats://127.0.0.1:1", "", policy)
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
