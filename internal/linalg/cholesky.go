package linalg

import (
	"fmt"
	"math"

	"tiepoint/internal/status"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// SolveLeastSquares solves a·x ≈ b for every column of b through the normal
// equations aᵗa·x = aᵗb, Cholesky-factorized by gonum. A matrix that is not
// positive definite, or a squared pivot at or below Epsilon times its
// original diagonal entry, means the columns of a are dependent and the call
// fails with status.ErrSingular.
func (k Kernel) SolveLeastSquares(a, b *Matrix) (*Matrix, error) {
	if a.rows != b.rows {
		return nil, fmt.Errorf("least squares: %d design rows but %d observation rows", a.rows, b.rows)
	}

	n, err := MulTN(a, a)
	if err != nil {
		return nil, err
	}
	rhs, err := MulTN(a, b)
	if err != nil {
		return nil, err
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(mat.NewSymDense(n.rows, n.data)); !ok {
		k.dump("normal matrix is not positive definite", n)
		return nil, errors.Wrap(status.ErrSingular, "cholesky: normal matrix is not positive definite")
	}
	var l mat.TriDense
	chol.LTo(&l)
	for j := 0; j < n.rows; j++ {
		pivot := l.At(j, j) * l.At(j, j)
		if pivot <= k.Epsilon*math.Abs(n.At(j, j)) {
			k.dump(fmt.Sprintf("cholesky pivot %d is %g", j, pivot), n)
			return nil, errors.Wrapf(status.ErrSingular, "cholesky pivot %d is %g", j, pivot)
		}
	}

	var x mat.Dense
	if err := chol.SolveTo(&x, rhs); err != nil && !isCondition(err) {
		return nil, errors.Wrap(err, "cholesky solve")
	}
	return fromDense(&x)
}

// isCondition reports a gonum conditioning warning. The result is still
// computed; the pivot tests above decide singularity.
func isCondition(err error) bool {
	var c mat.Condition
	return errors.As(err, &c)
}

func fromDense(d *mat.Dense) (*Matrix, error) {
	r, c := d.Dims()
	out, err := New(r, c)
	if err != nil {
		return nil, err
	}
	for i := 0; i < r; i++ {
		mat.Row(out.Row(i), i, d)
	}
	return out, nil
}

func (k Kernel) dump(why string, m *Matrix) {
	if k.Log != nil {
		k.Log.Debugf("%s:\n%v", why, m)
	}
}
