package backtest

import (
	"sort"

	"statarb/internal/candles"
	"statarb/internal/metrics"
	"statarb/internal/pairfinder"
	"statarb/internal/signal"
)

// Result is the outcome of one backtest run.
type Result struct {
	Realistic   *Portfolio
	Theoretical *Portfolio
}

// Config bundles every knob the backtest driver needs beyond the
// aligned price matrix: gate parameters, signal thresholds, sizing,
// and the formation/recalc cadence.
type Config struct {
	PairParams   pairfinder.Params
	SignalParams signal.Params
	PortParams   Params

	FormationPeriod int
	RecalcPeriod    int
	DaysPerBar      float64 // for borrow-cost day counting; 1.0 for daily bars
}

// Run replays matrix bar by bar from FormationPeriod to len-1
// (spec.md §4.G), maintaining a realistic (capacity-capped) and a
// theoretical (uncapped) portfolio with independent state.
func Run(matrix candles.AlignedCloseMatrix, cfg Config) Result {
	realistic := NewPortfolio("realistic", true, cfg.PortParams.MaxConcurrentPairs,
		cfg.PortParams.TradeNotionalPerPair, cfg.PortParams.InitialCapital)
	theoretical := NewPortfolio("theoretical", false, 0,
		cfg.PortParams.FixedTheoreticalNotional, cfg.PortParams.InitialCapital)

	var admitted []pairfinder.PairInfo
	serial := 0

	last := matrix.Len()
	for i := cfg.FormationPeriod; i < last-1; i++ {
		if (i-cfg.FormationPeriod)%cfg.RecalcPeriod == 0 {
			formationWindow := matrix.Slice(i-cfg.FormationPeriod, i)
			params := cfg.PairParams
			params.FormationLength = cfg.FormationPeriod
			admitted = pairfinder.Find(formationWindow, params)
			metrics.PairsAdmitted.Set(float64(len(admitted)))
		}

		pairsInPlay := pairsInPlaySet(admitted, realistic, theoretical)

		nextOpen := nextBarOpenPrices(matrix, i+1)

		for _, pi := range pairsInPlay {
			pairKey := pi.S1 + "_" + pi.S2
			data, ok := sliceForBar(matrix, pi.S1, pi.S2, i, cfg.SignalParams.RollingWindow)
			if !ok {
				continue
			}
			info := signal.PairInfo{S1: pi.S1, S2: pi.S2, HalfLife: pi.HalfLife}

			stepPortfolio(realistic, pairKey, pi, info, data, i, nextOpen, cfg, &serial)
			stepPortfolio(theoretical, pairKey, pi, info, data, i, nextOpen, cfg, &serial)
		}
	}

	metrics.BacktestNetPnL.WithLabelValues(realistic.Name).Set(realistic.Capital - cfg.PortParams.InitialCapital)
	metrics.BacktestNetPnL.WithLabelValues(theoretical.Name).Set(theoretical.Capital - cfg.PortParams.InitialCapital)

	return Result{Realistic: realistic, Theoretical: theoretical}
}

// stepPortfolio evaluates EXIT (against the current open position, if
// any) then ENTER (from FLAT) independently for one portfolio, per
// spec.md §4.G step 3. Execution happens at bar i+1's open (nextOpen).
func stepPortfolio(p *Portfolio, pairKey string, pi pairfinder.PairInfo, info signal.PairInfo, data signal.PairData, i int, nextOpen map[string]float64, cfg Config, serial *int) {
	p1Exec, haveP1 := nextOpen[pi.S1]
	p2Exec, haveP2 := nextOpen[pi.S2]
	if !haveP1 || !haveP2 {
		return
	}

	if ot, open := p.Open[pairKey]; open {
		var openPos *signal.OpenPosition = &signal.OpenPosition{
			Direction: ot.Direction, EntryZScore: ot.ZScoreEntry, BarsHeld: i - ot.EntryBar,
		}
		exitSig, err := signal.Evaluate(data, info, openPos, cfg.SignalParams)
		if err == nil && exitSig != nil && isExit(exitSig.Type) {
			*serial++
			p.close(ot, i+1, exitSig.ZScore, exitSig.Reason, p1Exec, p2Exec, cfg.DaysPerBar, cfg.PortParams, *serial)
			metrics.BacktestTrades.WithLabelValues(p.Name, exitSig.Reason).Inc()
		}
	}

	if _, stillOpen := p.Open[pairKey]; !stillOpen {
		enterSig, err := signal.Evaluate(data, info, nil, cfg.SignalParams)
		if err == nil && enterSig != nil && isEnter(enterSig.Type) {
			p.open(pairKey, pi, *enterSig, i+1, p1Exec, p2Exec, cfg.PortParams)
		}
	}
}

func isExit(t signal.SignalType) bool {
	return t == signal.ExitLong || t == signal.ExitShort
}

func isEnter(t signal.SignalType) bool {
	return t == signal.EnterLong || t == signal.EnterShort
}

// pairsInPlaySet is the union of currently admitted pairs and pairs
// with an open position in either portfolio (spec.md §4.G step 2).
func pairsInPlaySet(admitted []pairfinder.PairInfo, realistic, theoretical *Portfolio) []pairfinder.PairInfo {
	seen := make(map[string]pairfinder.PairInfo, len(admitted))
	for _, pi := range admitted {
		seen[pi.S1+"_"+pi.S2] = pi
	}
	addOpen := func(p *Portfolio) {
		for key, ot := range p.Open {
			if _, ok := seen[key]; !ok {
				seen[key] = pairfinder.PairInfo{S1: ot.S1Symbol, S2: ot.S2Symbol, HalfLife: ot.HalfLife, Alpha: ot.Alpha, Beta: ot.Beta}
			}
		}
	}
	addOpen(realistic)
	addOpen(theoretical)

	out := make([]pairfinder.PairInfo, 0, len(seen))
	for _, pi := range seen {
		out = append(out, pi)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].S1 != out[j].S1 {
			return out[i].S1 < out[j].S1
		}
		return out[i].S2 < out[j].S2
	})
	return out
}

// sliceForBar materializes a ROLLING_WINDOW+1-length log-price data
// slice ending at bar i (spec.md §4.G step 3).
func sliceForBar(matrix candles.AlignedCloseMatrix, s1, s2 string, i, rollingWindow int) (signal.PairData, bool) {
	c1 := matrix.Column(s1)
	c2 := matrix.Column(s2)
	if c1 == nil || c2 == nil || i+1 > len(c1) || i+1 > len(c2) {
		return signal.PairData{}, false
	}
	start := i + 1 - (rollingWindow + 1)
	if start < 0 {
		return signal.PairData{}, false
	}
	return signal.PairData{
		LogP1: candles.LogPrices(c1[start : i+1]),
		LogP2: candles.LogPrices(c2[start : i+1]),
	}, true
}

// nextBarOpenPrices reads bar idx's open prices (spec.md §4.G step 4:
// "next-bar open-price execution") for every symbol in matrix.
func nextBarOpenPrices(matrix candles.AlignedCloseMatrix, idx int) map[string]float64 {
	out := make(map[string]float64, len(matrix.Symbols))
	if idx >= matrix.Len() {
		return out
	}
	for _, sym := range matrix.Symbols {
		col := matrix.OpenColumn(sym)
		if idx < len(col) {
			out[sym] = col[idx]
		}
	}
	return out
}
