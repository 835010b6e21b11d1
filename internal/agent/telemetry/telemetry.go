package telemetry

import (
	"log"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mohammad-safakhou/vidsum/config"
)

// Telemetry records pipeline events to the log and exposes Prometheus
// metrics. All methods are nil-safe so callers never guard their calls.
type Telemetry struct {
	logger       *log.Logger
	costTracking bool

	runs          *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	stageFailures *prometheus.CounterVec
	tokens        *prometheus.CounterVec
	cost          prometheus.Counter
	questions     *prometheus.CounterVec
}

func New(cfg config.TelemetryConfig, logger *log.Logger) *Telemetry {
	if !cfg.Enabled {
		return nil
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags)
	}
	if cfg.LogFile != "" {
		if f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			logger = log.New(f, "[TELEMETRY] ", log.LstdFlags)
		} else {
			logger.Printf("cannot open telemetry log file %s: %v", cfg.LogFile, err)
		}
	}

	return &Telemetry{
		logger:       logger,
		costTracking: cfg.CostTracking,
		runs: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vidsum_runs_total",
			Help: "Summarization runs by mode and outcome.",
		}, []string{"mode", "status"}),
		stageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vidsum_stage_duration_seconds",
			Help:    "Stage execution time.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"stage"}),
		stageFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vidsum_stage_failures_total",
			Help: "Stage failures by stage and whether they were fatal to the run.",
		}, []string{"stage", "fatal"}),
		tokens: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vidsum_llm_tokens_total",
			Help: "LLM tokens consumed by model and direction.",
		}, []string{"model", "direction"}),
		cost: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vidsum_llm_cost_dollars_total",
			Help: "Estimated LLM spend in dollars.",
		}),
		questions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vidsum_questions_total",
			Help: "Answered questions by confidence label.",
		}, []string{"confidence"}),
	}
}

func (t *Telemetry) RecordRun(mode string, success bool, d time.Duration) {
	if t == nil {
		return
	}
	status := "ok"
	if !success {
		status = "failed"
	}
	t.runs.WithLabelValues(mode, status).Inc()
	t.logger.Printf("run mode=%s status=%s duration=%s", mode, status, d)
}

func (t *Telemetry) RecordStage(stage string, d time.Duration, success, fatal bool) {
	if t == nil {
		return
	}
	t.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	if !success {
		fatalLabel := "false"
		if fatal {
			fatalLabel = "true"
		}
		t.stageFailures.WithLabelValues(stage, fatalLabel).Inc()
	}
}

func (t *Telemetry) RecordTokens(model string, input, output int64, cost float64) {
	if t == nil {
		return
	}
	t.tokens.WithLabelValues(model, "input").Add(float64(input))
	t.tokens.WithLabelValues(model, "output").Add(float64(output))
	if t.costTracking {
		t.cost.Add(cost)
		t.logger.Printf("llm model=%s in=%d out=%d cost=%.5f", model, input, output, cost)
	}
}

func (t *Telemetry) RecordQuestion(confidence string) {
	if t == nil {
		return
	}
	t.questions.WithLabelValues(confidence).Inc()
}
