// Package metrics defines the Prometheus instrumentation for voxrelay.
// All collectors are registered with the default registry in init() and
// exposed by the HTTP server on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "voxrelay"

// Pipeline counters (incremented by the orchestrator).
var (
	UtterancesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "utterances_total",
		Help:      "Utterances processed, by final outcome.",
	}, []string{"outcome"})

	StageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Duration of each pipeline stage in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stage"})

	StageFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stage_failures_total",
		Help:      "Pipeline stage failures, by stage.",
	}, []string{"stage"})

	VoiceClonesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "voice_clones_total",
		Help:      "Voice clone requests, by outcome.",
	}, []string{"outcome"})
)

// Channel counters (incremented by the relay hub).
var (
	ParticipantsConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "participants_connected",
		Help:      "Participants currently connected over WebSocket.",
	})

	BroadcastFramesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broadcast_frames_total",
		Help:      "Frames fanned out to participants, by kind.",
	}, []string{"kind"})

	MalformedControlTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "malformed_control_total",
		Help:      "Inbound text frames discarded as unparseable.",
	})
)

func init() {
	prometheus.MustRegister(
		UtterancesTotal,
		StageDuration,
		StageFailuresTotal,
		VoiceClonesTotal,
		ParticipantsConnected,
		BroadcastFramesTotal,
		MalformedControlTotal,
	)
}
