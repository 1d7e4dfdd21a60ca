// Package pairfinder implements the three-gate pair admission pipeline
// (correlation screen → stationarity precheck → cointegration → half-life
// gate) over an aligned close-price matrix, grounded on
// original_source/strategy_logic/stat_arb.py's find_cointegrated_pairs.
package pairfinder

import (
	"math"
	"sort"

	"statarb/internal/candles"
	"statarb/internal/metrics"
	"statarb/internal/stats"
)

// Params configures the three gates. Mirrors spec.md §6's pair-finder
// configuration block.
type Params struct {
	CorrThreshold float64
	ADFP          float64
	MinHalfLife   float64
	MaxHalfLife   float64

	// FormationLength is the number of bars the caller expects the
	// formation window to contain; symbols with fewer than
	// 0.8*FormationLength aligned observations are dropped before
	// correlation is even computed.
	FormationLength int

	// Workers bounds the per-pair gate worker pool. 0 or negative means
	// run gates sequentially (no pool).
	Workers int

	// ClusterPruneThreshold: when the number of data-sufficient symbols
	// exceeds this, build a correlation graph and restrict candidate
	// pairs to within-connected-component pairs before running the
	// expensive gates. Below it, enumerate all pairs directly.
	ClusterPruneThreshold int
}

// DefaultParams returns spec.md §6's documented defaults.
func DefaultParams() Params {
	return Params{
		CorrThreshold:         0.90,
		ADFP:                  0.01,
		MinHalfLife:           5.0,
		MaxHalfLife:           100.0,
		FormationLength:       252,
		Workers:               8,
		ClusterPruneThreshold: 40,
	}
}

// PairInfo is an admitted pair: the cointegrating relationship found
// on the formation window.
type PairInfo struct {
	S1, S2   string
	HalfLife float64
	Alpha    float64
	Beta     float64
}

// Pair returns the two symbols in the pair's canonical (lexicographic) order.
func Pair(s1, s2 string) (string, string) {
	if s1 <= s2 {
		return s1, s2
	}
	return s2, s1
}

// Find runs the full pipeline over an aligned close matrix, returning
// admitted pairs in deterministic (lexicographic by s1 then s2) order.
// No single pair's failure aborts the batch (spec.md §4.C, §7):
// singular OLS, ADF internal error, or a failed gate simply excludes
// that candidate.
func Find(matrix candles.AlignedCloseMatrix, p Params) []PairInfo {
	logPrices := make(map[string][]float64, len(matrix.Symbols))
	minObs := int(0.8 * float64(p.FormationLength))

	eligible := make([]string, 0, len(matrix.Symbols))
	for _, sym := range matrix.Symbols {
		closes := matrix.Column(sym)
		if len(closes) < minObs {
			continue
		}
		logPrices[sym] = candles.LogPrices(closes)
		eligible = append(eligible, sym)
	}
	sort.Strings(eligible)

	candidates := correlationScreen(eligible, logPrices, p)

	results := make([]PairInfo, 0, len(candidates))
	if p.Workers > 0 && len(candidates) > 0 {
		results = evaluateParallel(candidates, logPrices, p)
	} else {
		for _, c := range candidates {
			if info, ok := evaluatePair(c.s1, c.s2, logPrices[c.s1], logPrices[c.s2], p); ok {
				results = append(results, info)
			}
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].S1 != results[j].S1 {
			return results[i].S1 < results[j].S1
		}
		return results[i].S2 < results[j].S2
	})
	return results
}

type candidatePair struct{ s1, s2 string }

// correlationScreen enumerates candidate pairs with Pearson correlation
// above the threshold, pruning the O(N²) enumeration via connected
// components of a correlation graph once the eligible set is large
// enough to make that worthwhile (see clusterByCorrelation).
func correlationScreen(symbols []string, logPrices map[string][]float64, p Params) []candidatePair {
	cols := make(map[string][]float64, len(symbols))
	for _, s := range symbols {
		cols[s] = logPrices[s]
	}
	corr := stats.CorrelationMatrix(cols)

	var candidates []candidatePair
	if len(symbols) > p.ClusterPruneThreshold {
		for _, cluster := range clusterByCorrelation(symbols, corr, p.CorrThreshold) {
			candidates = append(candidates, pairsWithinCluster(cluster, corr, p.CorrThreshold)...)
		}
	} else {
		candidates = pairsWithinCluster(symbols, corr, p.CorrThreshold)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].s1 != candidates[j].s1 {
			return candidates[i].s1 < candidates[j].s1
		}
		return candidates[i].s2 < candidates[j].s2
	})
	return candidates
}

func pairsWithinCluster(symbols []string, corr map[string]map[string]float64, threshold float64) []candidatePair {
	var out []candidatePair
	for i := 0; i < len(symbols); i++ {
		for j := i + 1; j < len(symbols); j++ {
			s1, s2 := Pair(symbols[i], symbols[j])
			if corr[s1][s2] > threshold {
				out = append(out, candidatePair{s1, s2})
			}
		}
	}
	return out
}

// evaluatePair runs the stationarity precheck, cointegration test, and
// half-life gate for one candidate pair. Returns ok=false if any gate
// fails or any internal computation errors out (spec.md §7:
// StatisticalFailure / SingularDesign never abort the batch).
func evaluatePair(s1, s2 string, x1, x2 []float64, p Params) (PairInfo, bool) {
	if len(x1) == 0 || len(x2) == 0 || len(x1) != len(x2) {
		return PairInfo{}, false
	}

	// Gate 2: per-leg stationarity precheck. Both legs must fail to
	// reject the unit-root null (both non-stationary) — the
	// econometrically correct reading; see DESIGN.md Open Questions.
	if stats.ADF(x1) < p.ADFP || stats.ADF(x2) < p.ADFP {
		metrics.IncSkipped("stationarity")
		return PairInfo{}, false
	}

	// Gate 3: cointegration via OLS hedge ratio + ADF on the residual spread.
	fit, err := stats.OLS(x1, x2)
	if err != nil {
		metrics.IncSkipped("singular_design")
		return PairInfo{}, false
	}
	if stats.ADF(fit.Residuals) >= p.ADFP {
		metrics.IncSkipped("cointegration")
		return PairInfo{}, false
	}

	// Gate 4: half-life of mean reversion.
	hl := stats.HalfLife(fit.Residuals)
	if hl == stats.NoReversion || math.IsNaN(hl) {
		metrics.IncSkipped("halflife")
		return PairInfo{}, false
	}
	if hl < p.MinHalfLife || hl > p.MaxHalfLife {
		metrics.IncSkipped("halflife")
		return PairInfo{}, false
	}

	return PairInfo{S1: s1, S2: s2, HalfLife: hl, Alpha: fit.Alpha, Beta: fit.Beta}, true
}
