package event

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	firedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scalr",
		Subsystem: "events",
		Name:      "fired_total",
		Help:      "Lifecycle events fired, by kind and dispatch result.",
	}, []string{"event", "result"})

	observerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "scalr",
		Subsystem: "events",
		Name:      "observer_duration_seconds",
		Help:      "Per-observer handler time.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"observer", "event"})
)
