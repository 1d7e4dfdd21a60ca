package stats

import (
	"math"
	"testing"
)

func TestOLS_PerfectLine(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := make([]float64, len(x))
	for i, xi := range x {
		y[i] = 2.0 + 3.0*xi
	}

	fit, err := OLS(y, x)
	if err != nil {
		t.Fatalf("OLS: %v", err)
	}
	if math.Abs(fit.Alpha-2.0) > 1e-9 {
		t.Errorf("alpha = %v, want 2.0", fit.Alpha)
	}
	if math.Abs(fit.Beta-3.0) > 1e-9 {
		t.Errorf("beta = %v, want 3.0", fit.Beta)
	}
	for _, r := range fit.Residuals {
		if math.Abs(r) > 1e-9 {
			t.Errorf("residual = %v, want ~0", r)
		}
	}
}

func TestOLS_SingularDesign(t *testing.T) {
	x := []float64{5, 5, 5, 5}
	y := []float64{1, 2, 3, 4}
	if _, err := OLS(y, x); err != ErrSingularDesign {
		t.Fatalf("OLS with constant x: err = %v, want ErrSingularDesign", err)
	}
}

func TestOLS_LengthMismatch(t *testing.T) {
	if _, err := OLS([]float64{1, 2}, []float64{1}); err == nil {
		t.Fatal("expected error on length mismatch")
	}
}

func TestMeanStdDev(t *testing.T) {
	xs := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	if got := Mean(xs); math.Abs(got-5.0) > 1e-9 {
		t.Errorf("Mean = %v, want 5.0", got)
	}
	if got := StdDev(xs); math.Abs(got-2.138089935) > 1e-6 {
		t.Errorf("StdDev = %v, want ~2.1381", got)
	}
}

func TestStdDev_TooShort(t *testing.T) {
	if got := StdDev([]float64{1}); got != 0 {
		t.Errorf("StdDev of single value = %v, want 0", got)
	}
}
