// Package live implements the live driver (component F): a periodic
// cycle that refreshes bars, recalculates admitted pairs when the
// strategy cache goes stale, evaluates the signal engine for every
// admitted pair with no tracked position, and renders a report.
// Grounded directly on original_source/main.py's `while True` cycle,
// reimplemented with context.Context cancellation in place of
// time.sleep, teacher-pack style (chidi150c/live.go's ticker+select loop).
package live

import (
	"context"
	"log"
	"math"
	"time"

	"statarb/internal/cache"
	"statarb/internal/candles"
	"statarb/internal/config"
	"statarb/internal/metrics"
	"statarb/internal/pairfinder"
	"statarb/internal/signal"
)

// Report is one pair's rendered output for one cycle: the signal, the
// current leg prices (every signal, not just ENTER), and — for ENTER
// signals — the target/stop plan.
type Report struct {
	Signal  signal.PairSignal
	S1Price float64
	S2Price float64
	Plan    *TradePlan
}

// Reporter is the external collaborator that consumes rendered
// reports: a Gin/WebSocket surface (component K) in a real deployment,
// a recording fake in tests.
type Reporter interface {
	Report(ctx context.Context, cycleReports []Report) error
}

// Driver runs the live cycle loop.
type Driver struct {
	Store  *candles.Store
	Cache  *cache.Cache
	Cfg    config.Config
	Report Reporter

	PairParams   pairfinder.Params
	SignalParams signal.Params
}

// Run executes the cycle loop until ctx is cancelled. On cancellation
// it completes the in-flight pair (never leaves the cache mid-write)
// and returns nil.
func (d *Driver) Run(ctx context.Context) error {
	interval := time.Duration(d.Cfg.CycleInterval) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run the first cycle immediately rather than waiting a full interval.
	if err := d.runCycle(ctx); err != nil {
		log.Printf("[LiveDriver] cycle error: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			log.Println("[LiveDriver] shutdown")
			return nil
		case <-ticker.C:
			if err := d.runCycle(ctx); err != nil {
				log.Printf("[LiveDriver] cycle error: %v", err)
			}
		}
	}
}

func (d *Driver) runCycle(ctx context.Context) error {
	// FormationPeriodDays is taken directly as a bar count here (exact for
	// TFDaily only; for weekly or intraday timeframes a real deployment would
	// convert via a trading-calendar bars-per-day table, out of scope for
	// this core).
	formationLen := d.Cfg.FormationPeriodDays
	tailLen := d.SignalParams.RollingWindow + 10
	if formationLen > tailLen {
		tailLen = formationLen
	}

	matrix, err := d.Store.AlignClose(ctx, d.Cfg.Symbols, d.Cfg.Timeframe, tailLen)
	if err != nil {
		log.Printf("[LiveDriver] align_close failed: %v", err)
		return err
	}

	if d.Cache.StaleByClock(time.Now(), time.Duration(d.Cfg.PairRecalcPeriodDays)*24*time.Hour) {
		formationWindow := matrix.Tail(formationLen)
		params := d.PairParams
		params.FormationLength = formationLen
		admitted := pairfinder.Find(formationWindow, params)
		d.Cache.Store(cache.Snapshot{Pairs: admitted, LastRecalc: time.Now()})
		metrics.PairsAdmitted.Set(float64(len(admitted)))
		log.Printf("[LiveDriver] recalculated: %d pairs admitted", len(admitted))
	}

	snap := d.Cache.Load()
	reports := make([]Report, 0, len(snap.Pairs))
	for _, pi := range snap.Pairs {
		select {
		case <-ctx.Done():
			return nil // stop before the next pair; reports gathered so far are not sent
		default:
		}

		report, ok := d.evaluatePair(pi, matrix)
		if !ok {
			continue
		}
		reports = append(reports, report)
		metrics.IncSignal(report.Signal.Type.String())
	}

	if d.Report != nil && len(reports) > 0 {
		if err := d.Report.Report(ctx, reports); err != nil {
			log.Printf("[LiveDriver] report failed: %v", err)
		}
	}
	return nil
}

func (d *Driver) evaluatePair(pi pairfinder.PairInfo, matrix candles.AlignedCloseMatrix) (Report, bool) {
	logP1 := candles.LogPrices(matrix.Column(pi.S1))
	logP2 := candles.LogPrices(matrix.Column(pi.S2))
	if len(logP1) == 0 || len(logP2) == 0 {
		metrics.IncSkippedSignal("missing_symbol")
		return Report{}, false
	}

	data := signal.PairData{LogP1: logP1, LogP2: logP2}
	info := signal.PairInfo{S1: pi.S1, S2: pi.S2, HalfLife: pi.HalfLife}

	sig, err := signal.Evaluate(data, info, nil, d.SignalParams)
	if err != nil {
		metrics.IncSkippedSignal("error")
		return Report{}, false
	}
	if sig == nil {
		metrics.IncSkippedSignal("sigma_guard_or_window")
		return Report{}, false
	}

	rep := Report{Signal: *sig, S1Price: math.Exp(sig.LogP1), S2Price: math.Exp(sig.LogP2)}
	if sig.Type == signal.EnterLong || sig.Type == signal.EnterShort {
		plan := computeTradePlan(
			sig.Type == signal.EnterLong,
			sig.Alpha, sig.Beta, sig.Mu, sig.Sigma,
			d.SignalParams.ZExit, d.SignalParams.ZStop,
			sig.LogP1, sig.LogP2, rep.S1Price, rep.S2Price,
		)
		rep.Plan = &plan
	}
	return rep, true
}
