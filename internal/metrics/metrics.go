// Package metrics holds the prometheus collectors shared by the audit engine.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	labelOutcome = "outcome"
	labelKind    = "kind"
)

// Metrics bundles the engine's collectors.
type Metrics struct {
	FetchDuration *prometheus.HistogramVec
	Fetches       *prometheus.CounterVec
	Probes        *prometheus.CounterVec
	PagesCrawled  prometheus.Counter
	Audits        *prometheus.CounterVec
	AuditDuration prometheus.Histogram
	AutoFixes     *prometheus.CounterVec
}

// New creates the collectors and registers them on reg. A nil reg leaves
// them unregistered, which keeps parallel tests from colliding.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "auditsmith_fetch_duration_seconds",
				Help:    "page fetch duration including body read",
				Buckets: prometheus.DefBuckets,
			},
			[]string{labelOutcome},
		),
		Fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auditsmith_fetches_total",
				Help: "page fetch attempts by outcome",
			},
			[]string{labelOutcome},
		),
		Probes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auditsmith_link_probes_total",
				Help: "link existence probes by outcome",
			},
			[]string{labelOutcome},
		),
		PagesCrawled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auditsmith_pages_crawled_total",
			Help: "pages recorded by the crawler",
		}),
		Audits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auditsmith_audits_total",
				Help: "audits by result kind",
			},
			[]string{labelKind},
		),
		AuditDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "auditsmith_audit_duration_seconds",
			Help:    "wall clock duration of a whole audit",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		}),
		AutoFixes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auditsmith_autofixes_total",
				Help: "auto-fix attempts by outcome",
			},
			[]string{labelOutcome},
		),
	}
	if reg != nil {
		reg.MustRegister(
			m.FetchDuration,
			m.Fetches,
			m.Probes,
			m.PagesCrawled,
			m.Audits,
			m.AuditDuration,
			m.AutoFixes,
		)
	}
	return m
}
