// Package prometheus records request pipeline metrics.
package prometheus

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
)

// Ensure Observer implements the interface.
var _ driven.RunObserver = (*Observer)(nil)

const namespace = "mnemo"

// Observer holds the pipeline metrics.
type Observer struct {
	registry *prometheus.Registry

	RunsStarted    prometheus.Counter
	RunsFinished   *prometheus.CounterVec
	RunsDebounced  *prometheus.CounterVec
	AttemptsFailed *prometheus.CounterVec
	RunDuration    *prometheus.HistogramVec
	TokensTotal    *prometheus.CounterVec
	CostUSDTotal   prometheus.Counter
}

// NewObserver creates and registers all metrics on a private registry.
func NewObserver() *Observer {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Observer{
		registry: reg,
		RunsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_started_total",
			Help:      "Runs that took the operator's run guard",
		}),
		RunsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_finished_total",
			Help:      "Dispatched runs by final state",
		}, []string{"state"}),
		RunsDebounced: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_debounced_total",
			Help:      "Triggers dropped as duplicates",
		}, []string{"reason"}),
		AttemptsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_attempts_failed_total",
			Help:      "Failed model attempts by reason and class",
		}, []string{"reason", "class"}),
		RunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of dispatched runs",
			Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 20, 40, 60, 120},
		}, []string{"state"}),
		TokensTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_tokens_total",
			Help:      "Tokens reported for successful runs",
		}, []string{"direction", "model"}),
		CostUSDTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_cost_usd_total",
			Help:      "Estimated spend of successful runs",
		}),
	}
}

// RunStarted counts a run once the guard is held.
func (o *Observer) RunStarted() {
	o.RunsStarted.Inc()
}

// RunDebounced counts a dropped trigger.
func (o *Observer) RunDebounced(reason string) {
	o.RunsDebounced.WithLabelValues(reason).Inc()
}

// AttemptFailed counts one failed model attempt.
func (o *Observer) AttemptFailed(reason string, transient bool) {
	class := string(domain.ClassPermanent)
	if transient {
		class = string(domain.ClassTransient)
	}
	o.AttemptsFailed.WithLabelValues(reason, class).Inc()
}

// RunFinished records the outcome, duration and usage of a run.
func (o *Observer) RunFinished(state domain.RunState, elapsed time.Duration, usage domain.Usage) {
	o.RunsFinished.WithLabelValues(string(state)).Inc()
	o.RunDuration.WithLabelValues(string(state)).Observe(elapsed.Seconds())
	if state != domain.RunSucceeded {
		return
	}
	o.TokensTotal.WithLabelValues("in", usage.Model).Add(float64(usage.TokensIn))
	o.TokensTotal.WithLabelValues("out", usage.Model).Add(float64(usage.TokensOut))
	o.CostUSDTotal.Add(usage.CostUSD)
}

// Registry exposes the registry for custom collectors.
func (o *Observer) Registry() *prometheus.Registry {
	return o.registry
}

// Handler serves the metrics in the Prometheus text format.
func (o *Observer) Handler() http.Handler {
	return promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{})
}
