package transform

import (
	"math"

	"tiepoint/internal/linalg"
	"tiepoint/internal/points"
	"tiepoint/pkg/geometry"
)

// Projective is the eight-parameter homography
//
//	x' = (a0 + a1*u + a2*v) / (1 + c1*u + c2*v)
//	y' = (b0 + b1*u + b2*v) / (1 + c1*u + c2*v)
//
// Terms[0] = {mean x', a0, a1, a2, c1, c2}, Terms[1] = {mean y', b0, b1, b2, c1, c2}.
type Projective struct{}

func (Projective) Meta() Meta {
	return Meta{Kind: KindProjective, Name: "projective", MinPoints: 4}
}

func (Projective) Fit(src, dst []geometry.Point3D, opts FitOptions) (Coefficients, FitInfo, error) {
	cs, cd := points.Center(src), points.Center(dst)
	n := len(src)

	// Scale both sides to unit RMS radius so the products u*x' stay near 1.
	ks, kd := rmsScale(cs.Points), rmsScale(cd.Points)

	a, err := linalg.New(2*n, 8)
	if err != nil {
		return Coefficients{}, FitInfo{}, err
	}
	b, err := linalg.New(2*n, 1)
	if err != nil {
		return Coefficients{}, FitInfo{}, err
	}
	for i := 0; i < n; i++ {
		u, v := cs.Points[i].X*ks, cs.Points[i].Y*ks
		x, y := cd.Points[i].X*kd, cd.Points[i].Y*kd

		row := a.Row(2 * i)
		row[0], row[1], row[2] = 1, u, v
		row[6], row[7] = -u*x, -v*x
		b.Set(2*i, 0, x)

		row = a.Row(2*i + 1)
		row[3], row[4], row[5] = 1, u, v
		row[6], row[7] = -u*y, -v*y
		b.Set(2*i+1, 0, y)
	}

	h, err := opts.Kernel.SolveLeastSquares(a, b)
	if err != nil {
		return Coefficients{}, FitInfo{}, err
	}

	// Undo the scaling: numerators pick up ks/kd, denominators ks.
	r := ks / kd
	c1, c2 := h.At(6, 0)*ks, h.At(7, 0)*ks
	var c Coefficients
	c.Origin = cs.Mean
	c.Count = [3]int{6, 6, 0}
	c.Terms[0] = [MaxTerms]float64{cd.Mean.X, h.At(0, 0) / kd, h.At(1, 0) * r, h.At(2, 0) * r, c1, c2}
	c.Terms[1] = [MaxTerms]float64{cd.Mean.Y, h.At(3, 0) / kd, h.At(4, 0) * r, h.At(5, 0) * r, c1, c2}
	c.Valid = true
	return c, FitInfo{Points: n}, nil
}

// Prep terms: {a0 + a2*v, b0 + b2*v, 1 + c2*v}.
func (Projective) Prep(c *Coefficients, p geometry.Point3D, terms []float64) []float64 {
	v := p.Y - c.Origin.Y
	tx, ty := &c.Terms[0], &c.Terms[1]
	return append(terms[:0], tx[1]+tx[3]*v, ty[1]+ty[3]*v, 1+tx[5]*v)
}

// Do divides by the homogeneous denominator. Points on the vanishing line map
// to ±Inf or NaN, which resampling treats as outside the source.
func (Projective) Do(c *Coefficients, p geometry.Point3D, terms []float64) geometry.Point3D {
	u := p.X - c.Origin.X
	tx, ty := &c.Terms[0], &c.Terms[1]
	den := terms[2] + tx[4]*u
	return geometry.Point3D{
		X: tx[0] + (terms[0]+tx[2]*u)/den,
		Y: ty[0] + (terms[1]+ty[2]*u)/den,
		Z: p.Z,
	}
}

// rmsScale returns 1/RMS radius of centred points, or 1 if they all coincide.
func rmsScale(pts []geometry.Point3D) float64 {
	var ms float64
	for i, p := range pts {
		ms += (p.X*p.X + p.Y*p.Y - ms) / float64(i+1)
	}
	if ms == 0 {
		return 1
	}
	return 1 / math.Sqrt(ms)
}
