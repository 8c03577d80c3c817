package transform

import (
	"math"

	"tiepoint/internal/linalg"
	"tiepoint/internal/points"
	"tiepoint/pkg/geometry"
)

// Helmert is a rigid planar motion: rotation by θ plus translation, no scale.
// θ enters through sin and cos, so the fit is a Gauss-Newton iteration.
type Helmert struct{ linear }

func (Helmert) Meta() Meta {
	return Meta{Kind: KindHelmert, Name: "helmert", MinPoints: 2}
}

func (Helmert) Fit(src, dst []geometry.Point3D, opts FitOptions) (Coefficients, FitInfo, error) {
	cs, cd := points.Center(src), points.Center(dst)
	n := len(src)
	info := FitInfo{Points: n}

	// Start from the angle between the centroid-to-first-point vectors.
	s0, d0 := cs.Points[0], cd.Points[0]
	theta := math.Atan2(d0.Y, d0.X) - math.Atan2(s0.Y, s0.X)
	var tx, ty float64

	a, err := linalg.New(2*n, 3)
	if err != nil {
		return Coefficients{}, info, err
	}
	r, err := linalg.New(2*n, 1)
	if err != nil {
		return Coefficients{}, info, err
	}

	for info.Iterations < opts.MaxIterations {
		info.Iterations++
		sin, cos := math.Sincos(theta)
		for i := 0; i < n; i++ {
			s, d := cs.Points[i], cd.Points[i]
			rx := cos*s.X - sin*s.Y
			ry := sin*s.X + cos*s.Y

			a.Set(2*i, 0, -ry)
			a.Set(2*i, 1, 1)
			a.Set(2*i, 2, 0)
			r.Set(2*i, 0, d.X-(rx+tx))

			a.Set(2*i+1, 0, rx)
			a.Set(2*i+1, 1, 0)
			a.Set(2*i+1, 2, 1)
			r.Set(2*i+1, 0, d.Y-(ry+ty))
		}

		delta, err := opts.Kernel.SolveLeastSquares(a, r)
		if err != nil {
			return Coefficients{}, info, err
		}
		dTheta, dx, dy := delta.At(0, 0), delta.At(1, 0), delta.At(2, 0)
		theta += dTheta
		tx += dx
		ty += dy

		if math.Abs(dTheta) < opts.AngularTolerance &&
			math.Abs(dx) < opts.LinearTolerance && math.Abs(dy) < opts.LinearTolerance {
			info.Converged = true
			break
		}
	}
	// Hitting the iteration cap is not an error: the last estimate stands.

	sin, cos := math.Sincos(theta)
	c := linearTerms(cs.Mean,
		[3]float64{cd.Mean.X + tx, cos, -sin},
		[3]float64{cd.Mean.Y + ty, sin, cos})
	return c, info, nil
}

// Angle returns the rotation encoded in linear coefficients.
func Angle(c *Coefficients) float64 {
	return math.Atan2(c.Terms[1][1], c.Terms[0][1])
}
