// Package stats implements the pure, side-effect-free statistical
// kernels gating pair admission and signal generation: OLS regression,
// the Augmented Dickey-Fuller unit-root test, half-life of mean
// reversion, and pairwise Pearson correlation. Grounded on the original
// Python's statsmodels-based implementation (original_source/strategy_logic/stat_arb.py),
// reimplemented natively since no statsmodels binding exists anywhere
// in the retrieved pack.
package stats

import (
	"errors"
	"math"
)

// ErrSingularDesign is returned when OLS is fit on a degenerate design
// (constant regressor, or fewer than 2 observations).
var ErrSingularDesign = errors.New("stats: singular design")

// OLSResult is the fitted simple linear regression y = alpha + beta*x + eps.
type OLSResult struct {
	Alpha     float64
	Beta      float64
	Residuals []float64
}

// OLS fits y = alpha + beta*x by ordinary least squares. Fails with
// ErrSingularDesign if x is (numerically) constant or the sample is
// too small.
func OLS(y, x []float64) (OLSResult, error) {
	n := len(y)
	if n != len(x) {
		return OLSResult{}, errors.New("stats: OLS: y and x length mismatch")
	}
	if n < 2 {
		return OLSResult{}, ErrSingularDesign
	}

	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += x[i]
		sumY += y[i]
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var sxx, sxy float64
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		sxx += dx * dx
		sxy += dx * (y[i] - meanY)
	}
	if sxx < 1e-12 {
		return OLSResult{}, ErrSingularDesign
	}

	beta := sxy / sxx
	alpha := meanY - beta*meanX

	residuals := make([]float64, n)
	for i := 0; i < n; i++ {
		residuals[i] = y[i] - (alpha + beta*x[i])
	}
	if math.IsNaN(alpha) || math.IsNaN(beta) {
		return OLSResult{}, ErrSingularDesign
	}
	return OLSResult{Alpha: alpha, Beta: beta, Residuals: residuals}, nil
}

// Mean returns the arithmetic mean of xs. Returns 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// StdDev returns the sample standard deviation of xs (n-1 denominator,
// matching pandas' default ddof=1 used by the original implementation).
func StdDev(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	mean := Mean(xs)
	var sumSq float64
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n-1))
}
