package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Recorder collects run metrics on a private registry.
// 배치 작업이므로 스크레이프 대신 Pushgateway로 전송
type Recorder struct {
	registry *prometheus.Registry

	fetchTotal     *prometheus.CounterVec
	alertsTotal    *prometheus.CounterVec
	compositeScore prometheus.Gauge
	liquidityScore prometheus.Gauge
	runDuration    *prometheus.HistogramVec
	lastSuccess    *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		fetchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macro_fetch_total",
				Help: "Indicator fetches by outcome",
			},
			[]string{"indicator", "outcome"},
		),
		alertsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macro_alerts_total",
				Help: "Alerts raised by severity and rule",
			},
			[]string{"severity", "rule"},
		),
		compositeScore: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "macro_composite_score",
				Help: "Latest composite macro score (0-100)",
			},
		),
		liquidityScore: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "macro_liquidity_score",
				Help: "Latest liquidity category score (0-100)",
			},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "macro_run_duration_seconds",
				Help:    "Duration of engine runs in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"mode"},
		),
		lastSuccess: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "macro_last_success_timestamp_seconds",
				Help: "Unix time of the last completed run",
			},
			[]string{"mode"},
		),
	}
}

// RecordFetch records one indicator fetch outcome.
func (r *Recorder) RecordFetch(indicator string, available bool) {
	outcome := "available"
	if !available {
		outcome = "unavailable"
	}
	r.fetchTotal.WithLabelValues(indicator, outcome).Inc()
}

// RecordAlert records a raised alert.
func (r *Recorder) RecordAlert(severity, rule string) {
	r.alertsTotal.WithLabelValues(severity, rule).Inc()
}

// RecordScores records the composite and liquidity scores of a full run.
func (r *Recorder) RecordScores(composite, liquidity float64) {
	r.compositeScore.Set(composite)
	r.liquidityScore.Set(liquidity)
}

// RecordRun records a completed run of the given mode.
func (r *Recorder) RecordRun(mode string, d time.Duration) {
	r.runDuration.WithLabelValues(mode).Observe(d.Seconds())
	r.lastSuccess.WithLabelValues(mode).SetToCurrentTime()
}

// Registry exposes the registry (tests, custom gatherers).
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Push sends all collected metrics to a Pushgateway under the given job name.
func (r *Recorder) Push(ctx context.Context, gatewayURL, job string) error {
	pusher := push.New(gatewayURL, job).Gatherer(r.registry)
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
