// Package denseoracle independently solves a square system of linear
// equations by Gaussian elimination, for cross-checking small
// required-equality-only Cassowary systems against a method that performs
// no simplex pivoting at all.
//
// It follows felipends-revised-simplex/model/model.go's and
// simplex/simplex.go's gonum.org/v1/gonum/mat.Dense-based matrix
// construction (NewDense, DenseCopyOf), retargeted from a revised-simplex
// tableau to a single direct solve.
package denseoracle

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Solve finds x such that a*x = b for a square, non-degenerate a (n x n,
// row-major, len(a) == n*n) and b (length n). It returns an error if a is
// singular.
func Solve(n int, a []float64, b []float64) ([]float64, error) {
	if len(a) != n*n {
		return nil, fmt.Errorf("denseoracle: matrix has %d entries, want %d for n=%d", len(a), n*n, n)
	}
	if len(b) != n {
		return nil, fmt.Errorf("denseoracle: rhs has %d entries, want %d", len(b), n)
	}

	A := mat.NewDense(n, n, a)
	B := mat.NewDense(n, 1, b)

	var x mat.Dense
	if err := x.Solve(A, B); err != nil {
		return nil, fmt.Errorf("denseoracle: singular system: %w", err)
	}

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = x.At(i, 0)
	}
	return out, nil
}
