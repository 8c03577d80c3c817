package transform

import (
	"math"

	"tiepoint/internal/status"
	"tiepoint/pkg/geometry"

	"github.com/pkg/errors"
)

// Matrix is a caller-assigned affine matrix. Its direct coefficients are set
// directly (identity until then); fitting only derives the inverse.
type Matrix struct{ linear }

func (Matrix) Meta() Meta {
	return Meta{Kind: KindMatrix, Name: "matrix"}
}

// Fit is not available: matrix models consume no control points.
func (Matrix) Fit(_, _ []geometry.Point3D, _ FitOptions) (Coefficients, FitInfo, error) {
	return Coefficients{}, FitInfo{}, errors.Wrap(status.ErrUnsupported, "matrix models are assigned, not fitted")
}

// deriveInverse solves the 2x2 linear block by cofactors.
func (Matrix) deriveInverse(direct *Coefficients, opts FitOptions) (Coefficients, error) {
	a, b, tx := direct.Terms[0][1], direct.Terms[0][2], direct.Terms[0][0]
	c, d, ty := direct.Terms[1][1], direct.Terms[1][2], direct.Terms[1][0]

	// Fold a non-zero origin into the offsets first: x' = tx + a(x-ox) + b(y-oy).
	tx -= a*direct.Origin.X + b*direct.Origin.Y
	ty -= c*direct.Origin.X + d*direct.Origin.Y

	det := a*d - b*c
	if math.Abs(det) < opts.Kernel.Epsilon {
		return Coefficients{}, errors.Wrapf(status.ErrSingular, "matrix determinant %g", det)
	}
	inv := 1 / det
	ia, ib := d*inv, -b*inv
	ic, id := -c*inv, a*inv
	return linearTerms(geometry.Point3D{},
		[3]float64{-(ia*tx + ib*ty), ia, ib},
		[3]float64{-(ic*tx + id*ty), ic, id}), nil
}

// MatrixCoefficients converts an affine transform into direct coefficients of
// a matrix model.
func MatrixCoefficients(t geometry.AffineTransform) Coefficients {
	return linearTerms(geometry.Point3D{},
		[3]float64{t.TX, t.A, t.B},
		[3]float64{t.TY, t.C, t.D})
}

// AffineOf reads linear coefficients back as an affine transform in absolute
// coordinates. It is meaningful for every family built on the linear evaluator.
func AffineOf(c *Coefficients) geometry.AffineTransform {
	a, b := c.Terms[0][1], c.Terms[0][2]
	cc, d := c.Terms[1][1], c.Terms[1][2]
	return geometry.AffineTransform{
		A: a, B: b, TX: c.Terms[0][0] - a*c.Origin.X - b*c.Origin.Y,
		C: cc, D: d, TY: c.Terms[1][0] - cc*c.Origin.X - d*c.Origin.Y,
	}
}
