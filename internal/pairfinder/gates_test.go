package pairfinder

import (
	"math"
	"math/rand"
	"testing"

	"statarb/internal/candles"
)

// cointegratedPair generates two log-price series related by
// log(p1) = alpha + beta*log(p2) + spread, where spread is a
// mean-reverting AR(1) process and log(p2) is a random walk.
func cointegratedPair(n int, alpha, beta float64, seed int64) (p1, p2 []float64) {
	rnd := rand.New(rand.NewSource(seed))
	logP2 := make([]float64, n)
	logP2[0] = 4.0
	for i := 1; i < n; i++ {
		logP2[i] = logP2[i-1] + 0.01*rnd.NormFloat64()
	}

	spread := make([]float64, n)
	lambda := -0.05
	for i := 1; i < n; i++ {
		spread[i] = spread[i-1] + lambda*spread[i-1] + 0.02*rnd.NormFloat64()
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
	return candles.AlignedCloseMatrix{Symbols: symbols, Rows: rows, Closes: cols}
}

func TestFind_AdmitsCointegratedPair(t *testing.T) {
	p1, p2 := cointegratedPair(600, 0.0, 1.0, 11)
	unrelated := make([]float64, 600)
	rnd := rand.New(rand.NewSource(99))
	unrelated[0] = 50
	for i := 1; i < len(unrelated); i++ {
		unrelated[i] = unrelated[i-1] + rnd.NormFloat64()
	}
	for i := range unrelated {
		unrelated[i] = math.Exp(unrelated[i] / 10)
	}

	m := buildMatrix(map[string][]float64{"AAA": p1, "BBB": p2, "CCC": unrelated})
	params := DefaultParams()
	params.FormationLength = 600

	got := Find(m, params)
	foundAAABBB := false
	for _, pi := range got {
		if pi.S1 == "AAA" && pi.S2 == "BBB" {
			foundAAABBB = true
			if pi.HalfLife < params.MinHalfLife || pi.HalfLife > params.MaxHalfLife {
				t.Errorf("half-life %v out of [%v,%v]", pi.HalfLife, params.MinHalfLife, params.MaxHalfLife)
			}
			if math.Abs(pi.Beta-1.0) > 0.3 {
				t.Errorf("beta = %v, want close to 1.0", pi.Beta)
			}
		}
		if (pi.S1 == "CCC" || pi.S2 == "CCC") && pi.S1 != pi.S2 {
			t.Errorf("unrelated series CCC should not be admitted in any pair, got %+v", pi)
		}
	}
	if !foundAAABBB {
		t.Fatalf("expected AAA-BBB to be admitted, got %+v", got)
	}
}

func TestFind_DeterministicOrder(t *testing.T) {
	p1, p2 := cointegratedPair(600, 0.0, 1.0, 11)
	m := buildMatrix(map[string][]float64{"AAA": p1, "BBB": p2})
	params := DefaultParams()
	params.FormationLength = 600

	first := Find(m, params)
	second := Find(m, params)
	if len(first) != len(second) {
		t.Fatalf("non-deterministic result count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("result %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestFind_DropsShortSymbols(t *testing.T) {
	p1, p2 := cointegratedPair(600, 0.0, 1.0, 11)
	m := buildMatrix(map[string][]float64{"AAA": p1, "BBB": p2})
	params := DefaultParams()
	params.FormationLength = 2000 // 0.8*2000 = 1600 > 600 available: every symbol filtered out
	got := Find(m, params)
	if len(got) != 0 {
		t.Errorf("expected no admissions when FormationLength filter rejects all symbols, got %+v", got)
	}
}

func TestEvaluatePair_RejectsRandomWalkPair(t *testing.T) {
	rnd := rand.New(rand.NewSource(5))
	n := 400
	x1 := make([]float64, n)
	x2 := make([]float64, n)
	for i := 1; i < n; i++ {
		x1[i] = x1[i-1] + rnd.NormFloat64()
		x2[i] = x2[i-1] + rnd.NormFloat64()
	}
	p := DefaultParams()
	if _, ok := evaluatePair("A", "B", x1, x2, p); ok {
		t.Error("two independent random walks should not cointegrate")
	}
}

func TestPair_Canonical(t *testing.T) {
	s1, s2 := Pair("BBB", "AAA")
	if s1 != "AAA" || s2 != "BBB" {
		t.Errorf("Pair(BBB, AAA) = (%s, %s), want (AAA, BBB)", s1, s2)
	}
}
