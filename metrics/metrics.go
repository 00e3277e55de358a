package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BetsPlaced counts successfully committed bet placements
	BetsPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contestbet_bets_placed_total",
		Help: "Number of bets successfully placed",
	})

	// BetsRejected counts recoverable placement rejections by reason
	BetsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contestbet_bets_rejected_total",
		Help: "Number of bet placements rejected, by reason",
	}, []string{"reason"})

	// SettlementRuns counts settlement invocations, including no-ops
	SettlementRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contestbet_settlement_runs_total",
		Help: "Number of settlement invocations",
	})

	// BetsPaidOut counts winning bets paid
	BetsPaidOut = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contestbet_bets_paid_out_total",
		Help: "Number of winning bets paid out",
	})
)
