package stats

// multiOLS fits y = X*beta by ordinary least squares via the normal
// equations (XᵀX)β = Xᵀy, solved by Gaussian elimination with partial
// pivoting. X rows must include a leading constant column if an
// intercept is wanted. Used internally by the ADF regression, which
// needs more than one regressor (level + lagged differences) and so
// can't use the two-variable OLS in ols.go.
func multiOLS(y []float64, x [][]float64) (beta []float64, residuals []float64, ok bool) {
	n := len(y)
	if n == 0 || len(x) != n {
		return nil, nil, false
	}
	k := len(x[0])
	if n < k {
		return nil, nil, false
	}

	// Build XtX (k x k) and Xty (k).
	xtx := make([][]float64, k)
	for i := range xtx {
		xtx[i] = make([]float64, k)
	}
	xty := make([]float64, k)

	for row := 0; row < n; row++ {
		xi := x[row]
		for a := 0; a < k; a++ {
			xty[a] += xi[a] * y[row]
			for b := 0; b < k; b++ {
				xtx[a][b] += xi[a] * xi[b]
			}
		}
	}

	beta, ok = solveLinearSystem(xtx, xty)
	if !ok {
		return nil, nil, false
	}

	residuals = make([]float64, n)
	for row := 0; row < n; row++ {
		var fitted float64
		for a := 0; a < k; a++ {
			fitted += x[row][a] * beta[a]
		}
		residuals[row] = y[row] - fitted
	}
	return beta, residuals, true
}

// solveLinearSystem solves A*x = b via Gaussian elimination with
// partial pivoting. Returns ok=false on a singular (or near-singular)
// matrix.
func solveLinearSystem(a [][]float64, b []float64) ([]float64, bool) {
	n := len(b)
	// Work on a copy to avoid mutating the caller's matrix.
	m := make([][]float64, n)
	rhs := make([]float64, n)
	copy(rhs, b)
	for i := range a {
		m[i] = append([]float64(nil), a[i]...)
	}

	for col := 0; col < n; col++ {
		pivot := col
		maxAbs := absF(m[col][col])
		for row := col + 1; row < n; row++ {
			if v := absF(m[row][col]); v > maxAbs {
				maxAbs = v
				pivot = row
			}
		}
		if maxAbs < 1e-12 {
			return nil, false
		}
		if pivot != col {
			m[col], m[pivot] = m[pivot], m[col]
			rhs[col], rhs[pivot] = rhs[pivot], rhs[col]
		}

		for row := col + 1; row < n; row++ {
			factor := m[row][col] / m[col][col]
			if factor == 0 {
				continue
			}
			for c := col; c < n; c++ {
				m[row][c] -= factor * m[col][c]
			}
			rhs[row] -= factor * rhs[col]
		}
	}

	x := make([]float64, n)
	for row := n - 1; row >= 0; row-- {
		sum := rhs[row]
		for c := row + 1; c < n; c++ {
			sum -= m[row][c] * x[c]
		}
		x[row] = sum / m[row][row]
	}
	return x, true
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// diagInverse returns the (row, row) diagonal entry of (XtX)^-1 needed
// for the standard error of beta[row], computed by solving XtX*e = unit.
func diagInverse(xtx [][]float64, row int) (float64, bool) {
	n := len(xtx)
	unit := make([]float64, n)
	unit[row] = 1
	sol, ok := solveLinearSystem(xtx, unit)
	if !ok {
		return 0, false
	}
	return sol[row], true
}
