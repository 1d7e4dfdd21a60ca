// Package metrics exposes Prometheus counters/gauges for the engine's
// observable surface (component J): pairs admitted, signals emitted,
// skipped pairs, backtest PnL. Grounded directly on
// chidi150c-coinbase's metrics.go (package-level vectors, registered
// in init, thin Inc/Set helpers).
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	PairsAdmitted = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "statarb_pairs_admitted",
		Help: "Number of pairs currently admitted by the pair finder.",
	})

	PairsSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "statarb_pairs_skipped_total",
		Help: "Candidate pairs skipped, split by the gate that rejected them.",
	}, []string{"gate"})

	SignalsEmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "statarb_signals_emitted_total",
		Help: "Signals emitted by the signal engine, split by signal type.",
	}, []string{"signal_type"})

	SignalsSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "statarb_signals_skipped_total",
		Help: "Pair/bar evaluations that produced no signal, split by cause.",
	}, []string{"cause"})

	BacktestNetPnL = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "statarb_backtest_net_pnl",
		Help: "Net PnL of the most recent backtest run, by portfolio.",
	}, []string{"portfolio"})

	BacktestTrades = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "statarb_backtest_trades_total",
		Help: "Closed trades in a backtest run, split by portfolio and exit reason.",
	}, []string{"portfolio", "exit_reason"})

	RecalcDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "statarb_pair_recalc_seconds",
		Help:    "Wall-clock duration of one pair-finder recalculation pass.",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		PairsAdmitted, PairsSkipped, SignalsEmitted, SignalsSkipped,
		BacktestNetPnL, BacktestTrades, RecalcDuration,
	)
}

// IncSkipped records a pair rejected by gate (one of "stationarity",
// "singular_design", "cointegration", "halflife").
func IncSkipped(gate string) { PairsSkipped.WithLabelValues(gate).Inc() }

// IncSignal records one emitted signal by its type string.
func IncSignal(signalType string) { SignalsEmitted.WithLabelValues(signalType).Inc() }

// IncSkippedSignal records one pair/bar that produced no signal
// (cause: "missing_symbol", "error", "sigma_guard_or_window").
func IncSkippedSignal(cause string) { SignalsSkipped.WithLabelValues(cause).Inc() }
