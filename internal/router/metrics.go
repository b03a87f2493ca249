// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package router

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the router's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	turns         *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	stageFailures *prometheus.CounterVec
	rejected      prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deskbot",
			Subsystem: "router",
			Name:      "turns_total",
			Help:      "Routed messages by answering stage and envelope kind.",
		}, []string{"stage", "kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "deskbot",
			Subsystem: "router",
			Name:      "turn_duration_seconds",
			Help:      "Time to route one message, by answering stage.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
		}, []string{"stage"}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deskbot",
			Subsystem: "router",
			Name:      "stage_failures_total",
			Help:      "Swallowed failures by stage.",
		}, []string{"stage"}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "deskbot",
			Subsystem: "query",
			Name:      "rejected_total",
			Help:      "Generated queries refused by the safety gate.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.turns, m.duration, m.stageFailures, m.rejected)
	}
	return m
}

func (m *Metrics) observe(stage Stage, kind Kind, d time.Duration) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(string(stage), string(kind)).Inc()
	m.duration.WithLabelValues(string(stage)).Observe(d.Seconds())
}

func (m *Metrics) failure(stage Stage) {
	if m == nil {
		return
	}
	m.stageFailures.WithLabelValues(string(stage)).Inc()
}

func (m *Metrics) rejectedQuery() {
	if m == nil {
		return
	}
	m.rejected.Inc()
}
