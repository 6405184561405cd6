package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records checkout outcomes and upstream latency.
// A nil *CheckoutMetrics is valid and records nothing.
type CheckoutMetrics struct {
	submissions    *prometheus.CounterVec
	pixSessions    *prometheus.CounterVec
	distance       *prometheus.CounterVec
	upstream       *prometheus.HistogramVec
	activeSessions prometheus.Gauge
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_submissions_total",
		Help: "Order submissions by result.",
	}, []string{"result"})
	pixSessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_pix_sessions_total",
		Help: "PIX session events by kind.",
	}, []string{"event"})
	distance := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "delivery_distance_lookups_total",
		Help: "Distance lookups by outcome.",
	}, []string{"outcome"})
	upstream := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "upstream_request_duration_seconds",
		Help:    "Duration of calls to the store backend and third-party APIs.",
		Buckets: prometheus.DefBuckets,
	}, []string{"service", "result"})
	activeSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "checkout_active_sessions",
		Help: "Checkout sessions currently held in memory.",
	})
	reg.MustRegister(submissions, pixSessions, distance, upstream, activeSessions)
	return &CheckoutMetrics{
		submissions:    submissions,
		pixSessions:    pixSessions,
		distance:       distance,
		upstream:       upstream,
		activeSessions: activeSessions,
	}
}

// IncSubmission counts a submission attempt: success, failure or rejected.
func (c *CheckoutMetrics) IncSubmission(result string) {
	if c == nil || c.submissions == nil {
		return
	}
	c.submissions.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncPixSession counts created, reused, failed or invalidated PIX sessions.
func (c *CheckoutMetrics) IncPixSession(event string) {
	if c == nil || c.pixSessions == nil {
		return
	}
	c.pixSessions.WithLabelValues(normalizeLabel(event)).Inc()
}

// IncDistanceLookup counts a distance lookup outcome.
func (c *CheckoutMetrics) IncDistanceLookup(outcome string) {
	if c == nil || c.distance == nil {
		return
	}
	c.distance.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveUpstream records the duration of one upstream call.
func (c *CheckoutMetrics) ObserveUpstream(service string, err error, duration time.Duration) {
	if c == nil || c.upstream == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.upstream.WithLabelValues(normalizeLabel(service), result).Observe(duration.Seconds())
}

// SetActiveSessions publishes the number of live checkout sessions.
func (c *CheckoutMetrics) SetActiveSessions(n int) {
	if c == nil || c.activeSessions == nil {
		return
	}
	c.activeSessions.Set(float64(n))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
