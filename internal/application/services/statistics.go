package services

// estimateGaussian computes the sample mean and the inverse covariance
// matrix of the given feature vectors. It reports ok=false when the
// covariance matrix is singular (or near enough that inversion is
// unreliable), which callers treat as "Mahalanobis stage skipped".
func estimateGaussian(features [][]float64) (mean []float64, covInv [][]float64, ok bool) {
	n := len(features)
	if n == 0 {
		return nil, nil, false
	}
	dims := len(features[0])

	mean = make([]float64, dims)
	for _, f := range features {
		for d := 0; d < dims; d++ {
			mean[d] += f[d]
		}
	}
	for d := 0; d < dims; d++ {
		mean[d] /= float64(n)
	}

	cov := make([][]float64, dims)
	for i := range cov {
		cov[i] = make([]float64, dims)
	}
	for _, f := range features {
		diff := make([]float64, dims)
		for d := 0; d < dims; d++ {
			diff[d] = f[d] - mean[d]
		}
		for i := 0; i < dims; i++ {
			for j := 0; j < dims; j++ {
				cov[i][j] += diff[i] * diff[j]
			}
		}
	}
	denom := float64(n - 1)
	if denom < 1 {
		denom = 1
	}
	for i := 0; i < dims; i++ {
		for j := 0; j < dims; j++ {
			cov[i][j] /= denom
		}
	}

	covInv, ok = invertMatrix(cov)
	return mean, covInv, ok
}

// mahalanobisDistanceSquared computes (x-mean)^T * covInv * (x-mean).
func mahalanobisDistanceSquared(x, mean []float64, covInv [][]float64) float64 {
	dims := len(x)
	diff := make([]float64, dims)
	for d := 0; d < dims; d++ {
		diff[d] = x[d] - mean[d]
	}

	tmp := make([]float64, dims)
	for i := 0; i < dims; i++ {
		for j := 0; j < dims; j++ {
			tmp[i] += covInv[i][j] * diff[j]
		}
	}

	sum := 0.0
	for d := 0; d < dims; d++ {
		sum += diff[d] * tmp[d]
	}
	return sum
}

// invertMatrix inverts a square matrix via Gauss-Jordan elimination with
// partial pivoting. It reports ok=false on a singular (or numerically
// unreliable) matrix rather than dividing by a near-zero pivot.
func invertMatrix(m [][]float64) ([][]float64, bool) {
	n := len(m)
	aug := make([][]float64, n)
	for i := 0; i < n; i++ {
		aug[i] = make([]float64, 2*n)
		copy(aug[i], m[i])
		aug[i][n+i] = 1
	}

	const epsilon = 1e-10
	for col := 0; col < n; col++ {
		pivotRow := col
		maxVal := abs(aug[col][col])
		for row := col + 1; row < n; row++ {
			if v := abs(aug[row][col]); v > maxVal {
				maxVal = v
				pivotRow = row
			}
		}
		if maxVal < epsilon {
			return nil, false
		}
		aug[col], aug[pivotRow] = aug[pivotRow], aug[col]

		pivot := aug[col][col]
		for k := 0; k < 2*n; k++ {
			aug[col][k] /= pivot
		}
		for row := 0; row < n; row++ {
			if row == col {
				continue
			}
			factor := aug[row][col]
			for k := 0; k < 2*n; k++ {
				aug[row][k] -= factor * aug[col][k]
			}
		}
	}

	inv := make([][]float64, n)
	for i := 0; i < n; i++ {
		inv[i] = make([]float64, n)
		copy(inv[i], aug[i][n:])
	}
	return inv, true
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
