// Package metrics exposes watcher counters for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Poll outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Recorder is what the watcher reports into.
type Recorder interface {
	RecordPoll(boardID, outcome string, latency time.Duration)
	RecordPublished(boardID, kind string, count int)
	RecordPublishFailure(boardID, kind string)
	RecordListed(boardID string, n int)
}

// Collector records watcher activity into Prometheus metrics.
type Collector struct {
	polls           *prometheus.CounterVec
	pollLatency     *prometheus.HistogramVec
	published       *prometheus.CounterVec
	publishFailures *prometheus.CounterVec
	listed          *prometheus.GaugeVec
}

// NewCollector builds a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "boardwatch_polls_total",
			Help: "Board listing polls by outcome.",
		}, []string{"board", "outcome"}),
		pollLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "boardwatch_poll_latency_seconds",
			Help:    "Latency of board listing polls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"board"}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "boardwatch_events_published_total",
			Help: "Article events delivered to at least one publisher.",
		}, []string{"board", "kind"}),
		publishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "boardwatch_publish_failures_total",
			Help: "Article events that failed on one or more publishers.",
		}, []string{"board", "kind"}),
		listed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "boardwatch_articles_listed",
			Help: "Articles returned by the latest listing.",
		}, []string{"board"}),
	}

	reg.MustRegister(c.polls, c.pollLatency, c.published, c.publishFailures, c.listed)
	return c
}

func (c *Collector) RecordPoll(boardID, outcome string, latency time.Duration) {
	c.polls.WithLabelValues(boardID, outcome).Inc()
	c.pollLatency.WithLabelValues(boardID).Observe(latency.Seconds())
}

func (c *Collector) RecordPublished(boardID, kind string, count int) {
	c.published.WithLabelValues(boardID, kind).Add(float64(count))
}

func (c *Collector) RecordPublishFailure(boardID, kind string) {
	c.publishFailures.WithLabelValues(boardID, kind).Inc()
}

// RecordListed stores the size of the latest listing for a board.
func (c *Collector) RecordListed(boardID string, n int) {
	c.listed.WithLabelValues(boardID).Set(float64(n))
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordPoll(string, string, time.Duration) {}
func (Nop) RecordPublished(string, string, int)      {}
func (Nop) RecordPublishFailure(string, string)      {}
func (Nop) RecordListed(string, int)                 {}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Router mounts the scrape handler at /metrics plus a /healthz probe.
func Router(gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", Handler(gatherer))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}
