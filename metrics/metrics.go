package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the settlement engine's collectors.
	Registry = prometheus.NewRegistry()

	drawsProvisioned = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "winzone",
			Subsystem: "draws",
			Name:      "provisioned_total",
			Help:      "Draw records created by the provisioner.",
		},
		[]string{"mode", "variant"},
	)

	drawsSettled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "winzone",
			Subsystem: "draws",
			Name:      "settled_total",
			Help:      "Draws settled, by selection tier.",
		},
		[]string{"mode", "variant", "tier"},
	)

	settlementFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "winzone",
			Subsystem: "settlement",
			Name:      "failures_total",
			Help:      "Draw settlements rolled back and left pending.",
		},
		[]string{"mode", "variant"},
	)

	passDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "winzone",
			Subsystem: "settlement",
			Name:      "pass_duration_seconds",
			Help:      "Duration of one scheduler pass for a mode.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"mode"},
	)

	payoutCeiling = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "winzone",
			Subsystem: "settlement",
			Name:      "payout_ceiling",
			Help:      "Allowed payout ceiling per settled draw.",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 10),
		},
		[]string{"variant"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		drawsProvisioned,
		drawsSettled,
		settlementFailures,
		passDuration,
		payoutCeiling,
	)
}

func RecordProvisioned(mode int, variant string) {
	drawsProvisioned.WithLabelValues(strconv.Itoa(mode), variant).Inc()
}

func RecordSettled(mode int, variant, tier string, ceiling float64) {
	drawsSettled.WithLabelValues(strconv.Itoa(mode), variant, tier).Inc()
	if tier != "override" {
		payoutCeiling.WithLabelValues(variant).Observe(ceiling)
	}
}

func RecordFailure(mode int, variant string) {
	settlementFailures.WithLabelValues(strconv.Itoa(mode), variant).Inc()
}

func ObservePass(mode int, started time.Time) {
	passDuration.WithLabelValues(strconv.Itoa(mode)).Observe(time.Since(started).Seconds())
}

// Handler exposes Registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
