package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jeevan-health/triage/pkg/schema"
)

// Traversal step outcomes.
const (
	StepQuestion = "question"
	StepResult   = "result"
	StepDegraded = "degraded"
)

// Collector holds the Prometheus metrics of one process. Every method is
// safe on a nil receiver so components can run without metrics.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Engine metrics
	TraversalSteps *prometheus.CounterVec
	ScoreRuns      *prometheus.CounterVec

	// Sync metrics
	Ingested     *prometheus.CounterVec
	Flushes      *prometheus.CounterVec
	PendingCount prometheus.Gauge
	Online       prometheus.Gauge
}

// NewCollector creates a collector with its own registry.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		TraversalSteps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "traversal_steps_total",
				Help:      "Protocol traversal steps by outcome",
			},
			[]string{"outcome"},
		),
		ScoreRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "score_runs_total",
				Help:      "Symptom scoring runs by resulting risk level",
			},
			[]string{"risk"},
		),
		Ingested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "assessments_ingested_total",
				Help:      "Assessment records received by the server, by outcome",
			},
			[]string{"outcome"},
		),
		Flushes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_flushes_total",
				Help:      "Pending-queue flush attempts by outcome",
			},
			[]string{"outcome"},
		),
		PendingCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sync_pending_records",
				Help:      "Records not yet confirmed on the server",
			},
		),
		Online: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "connectivity_online",
				Help:      "1 when the last connectivity check succeeded",
			},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.TraversalSteps,
		c.ScoreRuns,
		c.Ingested,
		c.Flushes,
		c.PendingCount,
		c.Online,
	)
	return c
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (c *Collector) ObserveStep(view *schema.StepView) {
	if c == nil || view == nil {
		return
	}
	outcome := StepQuestion
	if view.Done {
		outcome = StepResult
		if view.Result != nil && view.Result.Degraded {
			outcome = StepDegraded
		}
	}
	c.TraversalSteps.WithLabelValues(outcome).Inc()
}

func (c *Collector) ObserveScore(res *schema.TriageResult) {
	if c == nil || res == nil {
		return
	}
	c.ScoreRuns.WithLabelValues(string(res.RiskLevel)).Inc()
}

func (c *Collector) ObserveIngest(res schema.PushResult) {
	if c == nil {
		return
	}
	c.Ingested.WithLabelValues("inserted").Add(float64(res.Inserted))
	c.Ingested.WithLabelValues("skipped").Add(float64(res.Skipped))
}

func (c *Collector) ObserveFlush(ok bool, pending int) {
	if c == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	c.Flushes.WithLabelValues(outcome).Inc()
	if pending >= 0 {
		c.PendingCount.Set(float64(pending))
	}
}

// SetPending sets the pending gauge; a negative n (unknown) is ignored.
func (c *Collector) SetPending(n int) {
	if c == nil || n < 0 {
		return
	}
	c.PendingCount.Set(float64(n))
}

func (c *Collector) SetOnline(online bool) {
	if c == nil {
		return
	}
	if online {
		c.Online.Set(1)
	} else {
		c.Online.Set(0)
	}
}
