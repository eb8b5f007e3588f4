// Package metrics provides observability hooks for matrix runs.
//
// The package implements the Null Object pattern: components receive a
// Recorder through dependency injection and default to NoopRecorder, so no
// call site needs a nil check and the no-op methods inline to nothing when
// metrics are disabled.
//
// One-shot CLI runs use NoopRecorder. The watch daemon registers a
// PrometheusRecorder and serves the registry over HTTP so repeated runs can
// be scraped and graphed over time.
package metrics
