// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recalculation outcomes, used as the "result" label.
const (
	ResultOK       = "ok"
	ResultResidual = "residual"
	ResultError    = "error"
)

// ─── Settlement Engine ──────────────────────────────────────────────────────

// Recalculations counts settlement recalculations by outcome.
var Recalculations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "splitledger",
	Subsystem: "settlement",
	Name:      "recalculations_total",
	Help:      "Total settlement recalculations by result.",
}, []string{"result"})

// RecalculationDuration tracks how long a full recalculation takes,
// lock wait included.
var RecalculationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "splitledger",
	Subsystem: "settlement",
	Name:      "recalculation_duration_seconds",
	Help:      "Duration of settlement recalculations.",
	Buckets:   prometheus.DefBuckets,
})

// TransfersPerGroup tracks the size of the settlement set produced.
var TransfersPerGroup = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "splitledger",
	Subsystem: "settlement",
	Name:      "transfers",
	Help:      "Number of transfers in a recalculated settlement set.",
	Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64},
})

// PaidCarriedOver counts paid settlements that survived a recalculation.
var PaidCarriedOver = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "splitledger",
	Subsystem: "settlement",
	Name:      "paid_carried_over_total",
	Help:      "Paid settlements whose flag was preserved across recalculation.",
})

// ─── Recalculation Queue ────────────────────────────────────────────────────

// QueueMessages counts recalculation requests by direction and outcome.
var QueueMessages = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "splitledger",
	Subsystem: "queue",
	Name:      "messages_total",
	Help:      "Recalculation queue messages by operation and result.",
}, []string{"op", "result"})
