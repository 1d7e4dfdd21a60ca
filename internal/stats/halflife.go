package stats

import "math"

// NoReversion is the half-life sentinel returned when the spread shows
// no mean-reverting tendency (λ ≥ 0) or λ is too close to zero to trust.
const NoReversion = -1.0

// minHalfLifeSamples is the Python's `if len(df) < 10: return -1` guard.
const minHalfLifeSamples = 10

// HalfLife fits Δs_t = λ·s_{t-1} + c via OLS on the spread series and
// returns -ln(2)/λ (the time to close half the distance to the mean).
// Returns NoReversion if there isn't enough data, the fit is singular,
// λ ≥ 0 (no reversion), or |λ| < 1e-6 (division-by-near-zero guard).
func HalfLife(spread []float64) float64 {
	n := len(spread)
	if n < 2 {
		return NoReversion
	}

	delta := make([]float64, 0, n-1)
	lag := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		delta = append(delta, spread[i]-spread[i-1])
		lag = append(lag, spread[i-1])
	}
	if len(delta) < minHalfLifeSamples {
		return NoReversion
	}

	fit, err := OLS(delta, lag)
	if err != nil {
		return NoReversion
	}

	lambda := fit.Beta
	if math.IsNaN(lambda) || math.Abs(lambda) < 1e-6 || lambda >= 0 {
		return NoReversion
	}
	return -math.Log(2) / lambda
}
