// Package metrics defines the Prometheus collectors for the relationship and
// visit layer. Every recorder is nil-safe so callers can skip wiring in tests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pilgrim"

// Transition results.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Recorder records relationship transitions, store conflicts and summary latency.
type Recorder struct {
	transitions *prometheus.CounterVec
	conflicts   *prometheus.CounterVec
	summary     prometheus.Histogram
	requests    *prometheus.CounterVec
}

// New registers the collectors on reg. A nil reg yields a recorder that drops everything.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		return &Recorder{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "relationship_transitions_total",
		Help:      "Friend relationship operations by outcome.",
	}, []string{"op", "result"})
	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_txn_conflicts_total",
		Help:      "Multi-record transactions aborted by a concurrent commit.",
	}, []string{"op"})
	summary := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "friend_summary_duration_seconds",
		Help:      "Time to build a caller's friend summary.",
		Buckets:   prometheus.DefBuckets,
	})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route pattern and status class.",
	}, []string{"method", "route", "status"})
	reg.MustRegister(transitions, conflicts, summary, requests)
	return &Recorder{
		transitions: transitions,
		conflicts:   conflicts,
		summary:     summary,
		requests:    requests,
	}
}

// Transition counts one relationship operation.
func (r *Recorder) Transition(op, result string) {
	if r == nil || r.transitions == nil {
		return
	}
	r.transitions.WithLabelValues(normalizeLabel(op), normalizeLabel(result)).Inc()
}

// TxnConflict counts one commit conflict.
func (r *Recorder) TxnConflict(op string) {
	if r == nil || r.conflicts == nil {
		return
	}
	r.conflicts.WithLabelValues(normalizeLabel(op)).Inc()
}

// ObserveSummary records how long a friend summary took.
func (r *Recorder) ObserveSummary(d time.Duration) {
	if r == nil || r.summary == nil {
		return
	}
	r.summary.Observe(d.Seconds())
}

// Request counts one HTTP request. status is collapsed to its class ("2xx").
func (r *Recorder) Request(method, route string, status int) {
	if r == nil || r.requests == nil {
		return
	}
	r.requests.WithLabelValues(method, normalizeLabel(route), statusClass(status)).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
