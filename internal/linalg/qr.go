package linalg

import (
	"fmt"
	"math"

	"tiepoint/internal/status"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// SolveQR solves the least-squares problems a·x ≈ bx and a·y ≈ by sharing one
// gonum Householder factorization of a. a must have at least as many rows as
// columns. An all-zero column fails with status.ErrSingular, as does a
// diagonal of R at or below Epsilon times the largest one.
func (k Kernel) SolveQR(a *Matrix, bx, by []float64) ([]float64, []float64, error) {
	m, n := a.rows, a.cols
	if m < n {
		return nil, nil, fmt.Errorf("qr: %dx%d system is underdetermined", m, n)
	}
	if len(bx) != m || len(by) != m {
		return nil, nil, fmt.Errorf("qr: right-hand sides have %d and %d rows, want %d", len(bx), len(by), m)
	}

	for col := 0; col < n; col++ {
		zero := true
		for i := 0; i < m && zero; i++ {
			zero = a.At(i, col) == 0
		}
		if zero {
			k.dump(fmt.Sprintf("qr column %d has zero scale", col), a)
			return nil, nil, errors.Wrapf(status.ErrSingular, "qr: column %d has zero scale", col)
		}
	}

	var qr mat.QR
	qr.Factorize(a)

	var r mat.Dense
	qr.RTo(&r)
	maxD := 0.0
	for i := 0; i < n; i++ {
		maxD = math.Max(maxD, math.Abs(r.At(i, i)))
	}
	for i := 0; i < n; i++ {
		if d := r.At(i, i); math.Abs(d) <= k.Epsilon*maxD {
			k.dump(fmt.Sprintf("qr diagonal %d is %g", i, d), a)
			return nil, nil, errors.Wrapf(status.ErrSingular, "qr: diagonal %d is %g", i, d)
		}
	}

	solve := func(b []float64) ([]float64, error) {
		var x mat.VecDense
		if err := qr.SolveVecTo(&x, false, mat.NewVecDense(m, b)); err != nil && !isCondition(err) {
			return nil, errors.Wrap(err, "qr solve")
		}
		out := make([]float64, n)
		for i := range out {
			out[i] = x.AtVec(i)
		}
		return out, nil
	}
	x, err := solve(bx)
	if err != nil {
		return nil, nil, err
	}
	y, err := solve(by)
	if err != nil {
		return nil, nil, err
	}
	return x, y, nil
}
