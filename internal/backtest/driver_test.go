package backtest

import (
	"math"
	"math/rand"
	"testing"

	"statarb/internal/candles"
	"statarb/internal/pairfinder"
	"statarb/internal/signal"
)

// cointegratedPair mirrors pairfinder's synthetic generator: log(p1) =
// alpha + beta*log(p2) + spread, spread a mean-reverting AR(1) process.
func cointegratedPair(n int, alpha, beta float64, seed int64) (p1, p2 []float64) {
	rnd := rand.New(rand.NewSource(seed))
	logP2 := make([]float64, n)
	logP2[0] = 4.0
	for i := 1; i < n; i++ {
		logP2[i] = logP2[i-1] + 0.01*rnd.NormFloat64()
	}
	spread := make([]float64, n)
	lambda := -0.08
	for i := 1; i < n; i++ {
		spread[i] = spread[i-1] + lambda*spread[i-1] + 0.03*rnd.NormFloat64()
	}
	logP1 := make([]float64, n)
	for i := range logP1 {
		logP1[i] = alpha + beta*logP2[i] + spread[i]
	}
	p1 = make([]float64, n)
	p2 = make([]float64, n)
	for i := range p1 {
		p1[i] = math.Exp(logP1[i])
		p2[i] = math.Exp(logP2[i])
	}
	return p1, p2
}

func buildMatrix(cols map[string][]float64) candles.AlignedCloseMatrix {
	var symbols []string
	var n int
	for s, c := range cols {
		symbols = append(symbols, s)
		n = len(c)
	}
	rows := make([]int64, n)
	for i := range rows {
		rows[i] = int64(i)
	}
	// Opens mirror Closes: these fixtures have no separate open series,
	// so next-bar execution happens at the next bar's close, standing in
	// as its open.
	opens := make(map[string][]float64, len(cols))
	for s, c := range cols {
		opens[s] = c
	}
	return candles.AlignedCloseMatrix{Symbols: symbols, Rows: rows, Closes: cols, Opens: opens}
}

func testConfig() Config {
	return Config{
		PairParams:      pairfinder.DefaultParams(),
		SignalParams:    signal.DefaultParams(),
		FormationPeriod: 250,
		RecalcPeriod:    30,
		DaysPerBar:      1.0,
		PortParams: Params{
			InitialCapital:           100000,
			MaxConcurrentPairs:       5,
			TradeNotionalPerPair:     10000,
			FixedTheoreticalNotional: 10000,
			TransactionCostBps:       5,
			AnnualBorrowCostPct:      2,
		},
	}
}

func TestRun_AdmitsAndTradesCointegratedPair(t *testing.T) {
	p1, p2 := cointegratedPair(800, 0.0, 1.0, 7)
	m := buildMatrix(map[string][]float64{"AAA": p1, "BBB": p2})
	cfg := testConfig()

	result := Run(m, cfg)

	if len(result.Realistic.Closed) == 0 && len(result.Theoretical.Closed) == 0 {
		t.Fatalf("expected at least one closed trade across either portfolio")
	}
}

func TestRun_BookkeepingInvariant(t *testing.T) {
	p1, p2 := cointegratedPair(800, 0.0, 1.0, 7)
	m := buildMatrix(map[string][]float64{"AAA": p1, "BBB": p2})
	cfg := testConfig()

	result := Run(m, cfg)

	for _, p := range []*Portfolio{result.Realistic, result.Theoretical} {
		var sumNet float64
		for _, tr := range p.Closed {
			sumNet += tr.NetPnL
		}
		got := p.Capital - cfg.PortParams.InitialCapital
		if math.Abs(got-sumNet) > 1e-6 {
			t.Errorf("%s: final_capital - initial_capital (%v) != sum(net_pnl) (%v)", p.Name, got, sumNet)
		}
	}
}

func TestRun_Deterministic(t *testing.T) {
	p1, p2 := cointegratedPair(800, 0.0, 1.0, 7)
	m := buildMatrix(map[string][]float64{"AAA": p1, "BBB": p2})
	cfg := testConfig()

	r1 := Run(m, cfg)
	r2 := Run(m, cfg)

	if len(r1.Realistic.Closed) != len(r2.Realistic.Closed) {
		t.Fatalf("non-deterministic trade count: %d vs %d", len(r1.Realistic.Closed), len(r2.Realistic.Closed))
	}
	for i := range r1.Realistic.Closed {
		if r1.Realistic.Closed[i] != r2.Realistic.Closed[i] {
			t.Errorf("trade %d differs between runs: %+v vs %+v", i, r1.Realistic.Closed[i], r2.Realistic.Closed[i])
		}
	}
}

func TestRun_RespectsCapacityCap(t *testing.T) {
	p1, p2 := cointegratedPair(800, 0.0, 1.0, 7)
	p3, p4 := cointegratedPair(800, 0.5, 0.8, 13)
	m := buildMatrix(map[string][]float64{"AAA": p1, "BBB": p2, "CCC": p3, "DDD": p4})
	cfg := testConfig()
	cfg.PortParams.MaxConcurrentPairs = 1

	result := Run(m, cfg)

	for _, snapshotLen := range []int{len(result.Realistic.Open)} {
		if snapshotLen > cfg.PortParams.MaxConcurrentPairs {
			t.Errorf("realistic portfolio exceeded MaxConcurrentPairs: %d open", snapshotLen)
		}
	}
}

func TestMechanicalWinRate_ExcludesTimeStops(t *testing.T) {
	trades := []Trade{
		{ExitReason: signal.ReasonProfitTarget},
		{ExitReason: signal.ReasonProfitTarget},
		{ExitReason: signal.ReasonStatisticalStop},
		{ExitReason: signal.ReasonTimeStop},
	}
	got := MechanicalWinRate(trades)
	want := 2.0 / 3.0
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("MechanicalWinRate = %v, want %v", got, want)
	}
}

func TestMechanicalWinRate_NoQualifyingExits(t *testing.T) {
	trades := []Trade{{ExitReason: signal.ReasonTimeStop}}
	if got := MechanicalWinRate(trades); got != 0 {
		t.Errorf("MechanicalWinRate with no TP/SL exits = %v, want 0", got)
	}
}
