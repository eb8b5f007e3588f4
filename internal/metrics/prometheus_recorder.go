package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once           sync.Once
	stageDuration  *prom.HistogramVec
	stageResults   *prom.CounterVec
	cellDuration   *prom.HistogramVec
	cellOutcomes   *prom.CounterVec
	runDuration    prom.Histogram
	runOutcomes    *prom.CounterVec
	baselineStatus *prom.CounterVec
	parallelCells  prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "buildcheck",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual stages per matrix cell",
			Buckets:   prom.DefBuckets,
		}, []string{"cell", "stage"})
		pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "buildcheck",
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"cell", "stage", "result"})
		pr.cellDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "buildcheck",
			Name:      "cell_duration_seconds",
			Help:      "Duration of full matrix cells",
			Buckets:   prom.DefBuckets,
		}, []string{"cell"})
		pr.cellOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "buildcheck",
			Name:      "cell_outcomes_total",
			Help:      "Cell outcomes by final status",
		}, []string{"cell", "outcome"})
		pr.runDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "buildcheck",
			Name:      "run_duration_seconds",
			Help:      "Total matrix run duration",
			Buckets:   prom.DefBuckets,
		})
		pr.runOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "buildcheck",
			Name:      "run_outcomes_total",
			Help:      "Matrix run outcomes by final status",
		}, []string{"outcome"})
		pr.baselineStatus = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "buildcheck",
			Name:      "baseline_checks_total",
			Help:      "Baseline freshness checks by status",
		}, []string{"status"})
		pr.parallelCells = prom.NewGauge(prom.GaugeOpts{
			Namespace: "buildcheck",
			Name:      "parallel_cells",
			Help:      "Observed cell concurrency for the last matrix run",
		})
		reg.MustRegister(pr.stageDuration, pr.stageResults, pr.cellDuration, pr.cellOutcomes, pr.runDuration, pr.runOutcomes, pr.baselineStatus, pr.parallelCells)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(cell, stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(cell, stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(cell, stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(cell, stage, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveCellDuration(cell string, d time.Duration) {
	if p == nil || p.cellDuration == nil {
		return
	}
	p.cellDuration.WithLabelValues(cell).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncCellOutcome(cell string, passed bool) {
	if p == nil || p.cellOutcomes == nil {
		return
	}
	outcome := "failed"
	if passed {
		outcome = "passed"
	}
	p.cellOutcomes.WithLabelValues(cell, outcome).Inc()
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil || p.runDuration == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRunOutcome(outcome RunOutcomeLabel) {
	if p == nil || p.runOutcomes == nil {
		return
	}
	p.runOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncBaselineStatus(status string) {
	if p == nil || p.baselineStatus == nil {
		return
	}
	p.baselineStatus.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) SetParallelCells(n int) {
	if p == nil || p.parallelCells == nil {
		return
	}
	p.parallelCells.Set(float64(n))
}
