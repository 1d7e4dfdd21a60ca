package stats

import (
	"math/rand"
	"testing"
)

func TestADF_StationarySeriesLowPValue(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	series := make([]float64, 300)
	for i := range series {
		series[i] = 0.3*rnd.NormFloat64() + 0 // i.i.d. noise around 0, strongly stationary
	}
	p := ADF(series)
	if p > 0.10 {
		t.Errorf("ADF p-value for white noise = %v, want <= 0.10", p)
	}
}

func TestADF_RandomWalkHighPValue(t *testing.T) {
	rnd := rand.New(rand.NewSource(2))
	series := make([]float64, 300)
	for i := 1; i < len(series); i++ {
		series[i] = series[i-1] + rnd.NormFloat64()
	}
	p := ADF(series)
	if p < 0.50 {
		t.Errorf("ADF p-value for a random walk = %v, want >= 0.50", p)
	}
}

func TestADF_TooShortReturnsOne(t *testing.T) {
	if p := ADF([]float64{1, 2, 3}); p != 1.0 {
		t.Errorf("ADF on 3 points = %v, want 1.0", p)
	}
}

func TestDickeyFullerPValue_Monotone(t *testing.T) {
	prev := -1.0
	for _, stat := range []float64{-6, -4, -3.43, -2.86, -1, 0, 1, 4} {
		p := dickeyFullerPValue(stat)
		if p < prev {
			t.Errorf("p-value not monotone increasing at stat=%v: %v < %v", stat, p, prev)
		}
		prev = p
	}
}
