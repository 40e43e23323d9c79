// Package metrics holds the Prometheus collectors shared by the API server
// and the trade recorder.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpstreamRequests counts calls to third-party APIs by upstream and outcome.
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arbsocial",
		Name:      "upstream_requests_total",
		Help:      "Calls to upstream APIs partitioned by upstream and outcome.",
	}, []string{"upstream", "outcome"})

	// ReceiptLookups counts per-chain receipt waits.
	ReceiptLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arbsocial",
		Name:      "receipt_lookups_total",
		Help:      "Receipt waits partitioned by chain and result.",
	}, []string{"chain", "result"})

	// TradesStored counts POST /trade persistence outcomes.
	TradesStored = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arbsocial",
		Name:      "trades_stored_total",
		Help:      "Trade inserts partitioned by outcome (inserted, duplicate, invalid, error).",
	}, []string{"outcome"})

	// RecorderOutcomes counts finished recorder tasks.
	RecorderOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arbsocial",
		Name:      "recorder_outcomes_total",
		Help:      "Recorder task outcomes partitioned by final state and submit result.",
	}, []string{"state", "submitted"})
)
