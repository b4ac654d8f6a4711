package model

import (
	"math"

	"github.com/transitmate/backend/internal/feature"
)

// fitRidge solves the ridge-regularized least squares problem in closed form:
// (XᵀX + λI)β = Xᵀy over the intercept-augmented design matrix. The intercept
// is not penalized. Feature counts are tiny (12 unknowns), so a dense solve is
// plenty; the regularizer keeps the system well-conditioned even when feedback
// covers few distinct trips.
func fitRidge(vectors []feature.Vector, targets []float64, ridge float64) LinearModel {
	const p = feature.VectorLen + 1

	var gram [p][p]float64
	var moment [p]float64

	for n, v := range vectors {
		var row [p]float64
		row[0] = 1
		for i := 0; i < feature.VectorLen; i++ {
			row[i+1] = v[i]
		}
		for i := 0; i < p; i++ {
			for j := 0; j < p; j++ {
				gram[i][j] += row[i] * row[j]
			}
			moment[i] += row[i] * targets[n]
		}
	}
	for i := 1; i < p; i++ {
		gram[i][i] += ridge
	}

	beta := solveLinearSystem(gram, moment)

	var m LinearModel
	m.Intercept = beta[0]
	copy(m.Weights[:], beta[1:])
	return m
}

// solveLinearSystem runs Gaussian elimination with partial pivoting on a small
// dense system. The ridge term guarantees a non-singular matrix in practice; a
// degenerate pivot falls back to the zero solution for that column.
func solveLinearSystem(a [feature.VectorLen + 1][feature.VectorLen + 1]float64, b [feature.VectorLen + 1]float64) [feature.VectorLen + 1]float64 {
	const p = feature.VectorLen + 1

	for col := 0; col < p; col++ {
		pivot := col
		for row := col + 1; row < p; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			continue
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for row := col + 1; row < p; row++ {
			factor := a[row][col] / a[col][col]
			for k := col; k < p; k++ {
				a[row][k] -= factor * a[col][k]
			}
			b[row] -= factor * b[col]
		}
	}

	var x [feature.VectorLen + 1]float64
	for col := p - 1; col >= 0; col-- {
		if math.Abs(a[col][col]) < 1e-12 {
			x[col] = 0
			continue
		}
		sum := b[col]
		for k := col + 1; k < p; k++ {
			sum -= a[col][k] * x[k]
		}
		x[col] = sum / a[col][col]
	}
	return x
}
