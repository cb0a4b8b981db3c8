package observer

import (
	"context"
	"sync"
	"time"

	"github.com/dcshock/autodpp/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records run and stage metrics in its own Prometheus registry. A
// training job is short-lived, so the registry is written out with
// WriteTextfile for a node exporter textfile collector instead of being
// scraped.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal     *prometheus.CounterVec
	runDuration   *prometheus.GaugeVec
	stageDuration *prometheus.HistogramVec
	stageErrors   *prometheus.CounterVec
	lastSuccess   *prometheus.GaugeVec

	mu   sync.Mutex
	runs map[string]runInfo
}

type runInfo struct {
	name  string
	start time.Time
}

// NewMetrics returns a Metrics observer with a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autodpp_training_runs_total",
				Help: "Total training runs by outcome",
			},
			[]string{"pipeline", "status"},
		),
		runDuration: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "autodpp_training_run_duration_seconds",
				Help: "Wall time of the most recent training run",
			},
			[]string{"pipeline"},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "autodpp_stage_duration_seconds",
				Help:    "Time spent in each training stage",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"pipeline", "stage"},
		),
		stageErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autodpp_stage_errors_total",
				Help: "Total training stage failures",
			},
			[]string{"pipeline", "stage"},
		),
		lastSuccess: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "autodpp_last_success_timestamp_seconds",
				Help: "Unix time of the last successful training run",
			},
			[]string{"pipeline"},
		),
		runs: make(map[string]runInfo),
	}
}

// Registry returns the registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// WriteTextfile writes the current metrics to path in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) BeforePipeline(ctx context.Context, runID, name string, payload interface{}) error {
	m.mu.Lock()
	m.runs[runID] = runInfo{name: name, start: time.Now()}
	m.mu.Unlock()
	return nil
}

func (m *Metrics) AfterPipeline(ctx context.Context, runID string, result interface{}, err error) error {
	m.mu.Lock()
	info := m.runs[runID]
	delete(m.runs, runID)
	m.mu.Unlock()

	m.runsTotal.WithLabelValues(info.name, status(err)).Inc()
	if !info.start.IsZero() {
		m.runDuration.WithLabelValues(info.name).Set(time.Since(info.start).Seconds())
	}
	if err == nil {
		m.lastSuccess.WithLabelValues(info.name).SetToCurrentTime()
	}
	return nil
}

func (m *Metrics) BeforeStage(ctx context.Context, runID string, stageIndex int, input interface{}) error {
	return nil
}

func (m *Metrics) AfterStage(ctx context.Context, runID string, stageIndex int, input, output interface{}, stageErr error, duration time.Duration) error {
	m.mu.Lock()
	name := m.runs[runID].name
	m.mu.Unlock()

	stage := pipeline.StageName(ctx)
	m.stageDuration.WithLabelValues(name, stage).Observe(duration.Seconds())
	if stageErr != nil {
		m.stageErrors.WithLabelValues(name, stage).Inc()
	}
	return nil
}
