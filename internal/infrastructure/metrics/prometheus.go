// Package metrics exposes the Prometheus collectors of the gradebook service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gradebook"

// Metrics implements the recorder interfaces of the application and HTTP layers.
type Metrics struct {
	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	rewardDraws       *prometheus.CounterVec
	rewardRedemptions *prometheus.CounterVec

	standingsCache   *prometheus.CounterVec
	standingsLatency prometheus.Histogram
	standingsSize    prometheus.Gauge

	mutations *prometheus.CounterVec

	jobRuns    *prometheus.CounterVec
	jobLatency *prometheus.HistogramVec
}

// New registers all collectors with reg. Pass prometheus.DefaultRegisterer in
// production and prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, route pattern and status code.",
			},
			[]string{"method", "route", "status"},
		),
		httpLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by method and route pattern.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		rewardDraws: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reward_draws_total",
				Help:      "Slot machine draws by reward category.",
			},
			[]string{"category"},
		),
		rewardRedemptions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reward_redemptions_total",
				Help:      "Redeemed rewards by category.",
			},
			[]string{"category"},
		),

		standingsCache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "standings_cache_lookups_total",
				Help:      "Standings cache lookups by result (hit, miss, error).",
			},
			[]string{"result"},
		),
		standingsLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "standings_compute_duration_seconds",
				Help:      "Time to load records and compute class standings.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		standingsSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "standings_students",
				Help:      "Number of students in the last computed standings.",
			},
		),

		mutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mutations_total",
				Help:      "Successful gradebook writes by kind.",
			},
			[]string{"kind"},
		),

		jobRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "job_runs_total",
				Help:      "Background job runs by job and outcome (ok, error).",
			},
			[]string{"job", "outcome"},
		),
		jobLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "job_duration_seconds",
				Help:      "Background job run time.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"job"},
		),
	}
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

// DrawRecorded counts a draw.
func (m *Metrics) DrawRecorded(category string) {
	m.rewardDraws.WithLabelValues(category).Inc()
}

// RewardRedeemed counts a redemption.
func (m *Metrics) RewardRedeemed(category string) {
	m.rewardRedemptions.WithLabelValues(category).Inc()
}

// StandingsCacheLookup counts a cache lookup. result is hit, miss or error.
func (m *Metrics) StandingsCacheLookup(result string) {
	m.standingsCache.WithLabelValues(result).Inc()
}

// StandingsComputed records a fresh computation.
func (m *Metrics) StandingsComputed(students int, d time.Duration) {
	m.standingsLatency.Observe(d.Seconds())
	m.standingsSize.Set(float64(students))
}

// Mutation counts a successful write such as "grade.recorded".
func (m *Metrics) Mutation(kind string) {
	m.mutations.WithLabelValues(kind).Inc()
}

// JobRun records one background job execution.
func (m *Metrics) JobRun(job string, success bool, d time.Duration) {
	outcome := "ok"
	if !success {
		outcome = "error"
	}
	m.jobRuns.WithLabelValues(job, outcome).Inc()
	m.jobLatency.WithLabelValues(job).Observe(d.Seconds())
}
