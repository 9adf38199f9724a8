package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation result labels.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
)

var (
	LedgerOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "operations_total",
			Help:      "Ledger mutations by operation and result",
		},
		[]string{"operation", "result"},
	)

	ReconcileDrift = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "reconcile_drift_total",
			Help:      "Accounts whose stored balance disagreed with their ledger",
		},
	)

	EventsPublishFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "events_publish_failed_total",
			Help:      "Events that could not be written to their stream",
		},
		[]string{"type"},
	)
)
