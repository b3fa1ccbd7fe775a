// Package offline implements the offline mutation queue.
//
// This file exposes Prometheus collectors for the queue. Labels are bounded:
// "table" is one of the five synced entity tables and "action" one of
// create/update/delete.
package offline

import "github.com/prometheus/client_golang/prometheus"

var (
	// queueDepth gauges the number of mutations currently buffered per table.
	queueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "offline_queue_depth",
			Help: "Number of mutations currently buffered in the offline queue.",
		},
		[]string{"table"},
	)

	// replaysDrained counts mutations successfully replayed against the backend.
	replaysDrained = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_replays_total",
			Help: "Total number of queued mutations successfully replayed.",
		},
		[]string{"table", "action"},
	)

	// replaysFailed counts replay attempts that failed and were kept for retry.
	replaysFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_replay_failures_total",
			Help: "Total number of replay attempts that failed and were requeued.",
		},
		[]string{"table", "action"},
	)
)

func init() {
	prometheus.MustRegister(queueDepth, replaysDrained, replaysFailed)
}
