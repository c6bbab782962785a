// Copyright 2025 Certen Protocol
//
// Prometheus instrumentation for the PoDA device.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the device's Prometheus collectors. A nil *Recorder is
// safe to use: every method is a no-op on a nil receiver, so callers that
// don't want metrics can leave Device.Metrics nil.
type Recorder struct {
	verifyTotal     *prometheus.CounterVec
	quorumMet       prometheus.Counter
	peerPollSeconds prometheus.Histogram
}

// NewRecorder creates and registers the device's collectors against reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		verifyTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "poda_verify_total",
			Help: "Outcomes of the PoDA attestation verifier, labeled by result.",
		}, []string{"result"}),
		quorumMet: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "poda_quorum_met_total",
			Help: "Inbound process messages that met their configured quorum.",
		}),
		peerPollSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "poda_peer_poll_seconds",
			Help:    "Latency of a single peer compute-attestation poll during push.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(r.verifyTotal, r.quorumMet, r.peerPollSeconds)
	return r
}

// RecordVerify increments the verify-outcome counter for result, which is
// either "ok" or one of the Reason strings from poda.Reason.
func (r *Recorder) RecordVerify(result string) {
	if r == nil {
		return
	}
	r.verifyTotal.WithLabelValues(result).Inc()
}

// RecordQuorumMet increments the quorum-met counter.
func (r *Recorder) RecordQuorumMet() {
	if r == nil {
		return
	}
	r.quorumMet.Inc()
}

// ObservePeerPoll records the latency of a single peer poll.
func (r *Recorder) ObservePeerPoll(d time.Duration) {
	if r == nil {
		return
	}
	r.peerPollSeconds.Observe(d.Seconds())
}
