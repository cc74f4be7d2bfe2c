package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "webbuilder"

// PrometheusRecorder implements Recorder with collectors registered on a
// caller-owned registry, one per run.
type PrometheusRecorder struct {
	stageDuration    *prom.HistogramVec
	runDuration      prom.Histogram
	stageResults     *prom.CounterVec
	runOutcome       *prom.CounterVec
	retries          *prom.CounterVec
	retriesExhausted *prom.CounterVec
	unitDuration     prom.Histogram
	unitFlags        *prom.CounterVec
	issues           *prom.CounterVec
	sectionWorkers   prom.Gauge
}

func counter(name, help string, labels ...string) *prom.CounterVec {
	return prom.NewCounterVec(prom.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
}

func histogram(name, help string, buckets []float64) prom.Histogram {
	return prom.NewHistogram(prom.HistogramOpts{Namespace: namespace, Name: name, Help: help, Buckets: buckets})
}

// NewPrometheusRecorder registers the pipeline collectors on reg. A nil reg
// gets a private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	p := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent in each pipeline stage",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		runDuration: histogram("run_duration_seconds", "Wall time of a whole build",
			[]float64{1, 5, 15, 30, 60, 120, 300, 600, 1200}),
		stageResults:     counter("stage_results_total", "Stage outcomes", "stage", "result"),
		runOutcome:       counter("run_outcomes_total", "Build outcomes", "outcome"),
		retries:          counter("generation_retries_total", "Service calls retried after a transient failure", "stage"),
		retriesExhausted: counter("generation_retries_exhausted_total", "Service calls that ran out of attempts", "stage"),
		unitDuration: histogram("unit_generation_duration_seconds", "Time to generate one section, retries included",
			[]float64{1, 5, 10, 20, 40, 80, 160, 320}),
		unitFlags: counter("units_total", "Generated sections by post-processing flag", "flag"),
		issues:    counter("validation_issues_total", "Review issues by check and severity", "check", "severity"),
		sectionWorkers: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "section_workers",
			Help:      "Worker bound of the last sections stage",
		}),
	}
	reg.MustRegister(p.stageDuration, p.runDuration, p.stageResults, p.runOutcome,
		p.retries, p.retriesExhausted, p.unitDuration, p.unitFlags, p.issues, p.sectionWorkers)
	return p
}

// All methods are no-ops on a nil recorder.

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p != nil {
		p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	}
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p != nil {
		p.runDuration.Observe(d.Seconds())
	}
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p != nil {
		p.stageResults.WithLabelValues(stage, string(result)).Inc()
	}
}

func (p *PrometheusRecorder) IncRunOutcome(outcome string) {
	if p != nil {
		p.runOutcome.WithLabelValues(outcome).Inc()
	}
}

func (p *PrometheusRecorder) IncRetry(stage string) {
	if p != nil {
		p.retries.WithLabelValues(stage).Inc()
	}
}

func (p *PrometheusRecorder) IncRetriesExhausted(stage string) {
	if p != nil {
		p.retriesExhausted.WithLabelValues(stage).Inc()
	}
}

func (p *PrometheusRecorder) ObserveUnitDuration(d time.Duration) {
	if p != nil {
		p.unitDuration.Observe(d.Seconds())
	}
}

func (p *PrometheusRecorder) IncUnitFlag(flag UnitFlag) {
	if p != nil {
		p.unitFlags.WithLabelValues(string(flag)).Inc()
	}
}

func (p *PrometheusRecorder) IncIssue(check, severity string) {
	if p != nil {
		p.issues.WithLabelValues(check, severity).Inc()
	}
}

func (p *PrometheusRecorder) SetSectionWorkers(n int) {
	if p != nil {
		p.sectionWorkers.Set(float64(n))
	}
}

// WriteTextfile exports g in the node exporter textfile format. The library
// writes through a temporary file, so collectors never read a partial file.
func WriteTextfile(path string, g prom.Gatherer) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("ensure metrics dir: %w", err)
	}
	if err := prom.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
