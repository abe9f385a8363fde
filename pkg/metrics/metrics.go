// Package metrics pushes one batch of run observations to a Prometheus
// Pushgateway. Reporting is optional: no configured gateway means no
// push, and a failed push never affects the verdict.
package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/LucerneSecurity/commitgate/pkg/gate"
	"github.com/LucerneSecurity/commitgate/pkg/httpclient"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rs/zerolog/log"
)

const (
	namespace = "commitgate"
	jobName   = "commitgate"
)

// RunMetrics is one run's worth of observations.
type RunMetrics struct {
	Status         gate.Status
	Duration       time.Duration
	StageDurations map[string]time.Duration
	FinishedAt     time.Time
}

// Reporter pushes run metrics to a Pushgateway.
type Reporter struct {
	url string
}

func NewReporter(url string) *Reporter {
	return &Reporter{url: url}
}

// Enabled reports whether a Pushgateway is configured.
func (r *Reporter) Enabled() bool {
	return r != nil && r.url != ""
}

// Report pushes the run's metrics under the commitgate job. Each run
// builds its own registry; the push replaces the job's previous values.
func (r *Reporter) Report(ctx context.Context, run RunMetrics) error {
	if !r.Enabled() {
		log.Debug().Msg("No Pushgateway configured, skipping metrics push")
		return nil
	}

	registry := prometheus.NewRegistry()

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Gate runs by verdict status.",
	}, []string{"status"})

	duration := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Wall time of the last gate run.",
	})

	stageDuration := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Wall time of the last run, per stage.",
	}, []string{"stage"})

	lastRun := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix timestamp of the last gate run.",
	})

	registry.MustRegister(runs, duration, stageDuration, lastRun)

	runs.WithLabelValues(strings.ToLower(string(run.Status))).Inc()
	duration.Set(run.Duration.Seconds())
	for stage, d := range run.StageDurations {
		stageDuration.WithLabelValues(stage).Set(d.Seconds())
	}

	finished := run.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	lastRun.Set(float64(finished.Unix()))

	err := push.New(r.url, jobName).
		Gatherer(registry).
		Client(httpclient.GetGateHTTPClient(nil).StandardClient()).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("pushing run metrics: %w", err)
	}

	log.Debug().Str("url", r.url).Str("status", string(run.Status)).Msg("Pushed run metrics")
	return nil
}
