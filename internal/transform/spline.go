package transform

import (
	"math"

	"tiepoint/internal/linalg"
	"tiepoint/internal/status"
	"tiepoint/pkg/geometry"

	"github.com/pkg/errors"
)

// Spline is a thin-plate spline: an affine part plus one r²·log(r²) radial
// term per control point. It interpolates every control point exactly.
//
// The fitted function is a displacement added to the input point, so
// Terms[0] = {a0, 1 + a1, a2} and Terms[1] = {b0, b1, 1 + b2} with a zero origin.
type Spline struct{}

func (Spline) Meta() Meta {
	return Meta{Kind: KindSpline, Name: "spline", MinPoints: 4}
}

// radial is the thin-plate kernel of a squared distance.
func radial(r2 float64) float64 {
	if r2 == 0 {
		return 0
	}
	return r2 * math.Log(r2)
}

func (Spline) Fit(src, dst []geometry.Point3D, opts FitOptions) (Coefficients, FitInfo, error) {
	n := len(src)
	if i, j, ok := firstCoincident(src); ok {
		return Coefficients{}, FitInfo{}, errors.Wrapf(status.ErrDegenerate, "source points %d and %d coincide", i, j)
	}
	if i, j, ok := firstCoincident(dst); ok {
		return Coefficients{}, FitInfo{}, errors.Wrapf(status.ErrDegenerate, "destination points %d and %d coincide", i, j)
	}

	// Solve in a unit-ish box: q = (p - min) / extent.
	var min geometry.Point3D
	scale := 1.0
	if n > opts.SplineStabilityMinPoints {
		box := geometry.BoundingBox(src)
		min = geometry.Point3D{X: box.X, Y: box.Y}
		if e := box.MaxExtent(); e > 0 {
			scale = e
		}
	}
	q := make([]geometry.Point3D, n)
	for i, p := range src {
		q[i] = geometry.Point3D{X: (p.X - min.X) / scale, Y: (p.Y - min.Y) / scale}
	}

	size := n + 3
	k, err := linalg.New(size, size)
	if err != nil {
		return Coefficients{}, FitInfo{}, err
	}
	bx := make([]float64, size)
	by := make([]float64, size)
	for i := 0; i < n; i++ {
		row := k.Row(i)
		for j := 0; j < n; j++ {
			if i != j {
				dx, dy := q[i].X-q[j].X, q[i].Y-q[j].Y
				row[j] = radial(dx*dx + dy*dy)
			}
		}
		row[n], row[n+1], row[n+2] = 1, q[i].X, q[i].Y
		k.Set(n, i, 1)
		k.Set(n+1, i, q[i].X)
		k.Set(n+2, i, q[i].Y)

		bx[i] = dst[i].X - src[i].X
		by[i] = dst[i].Y - src[i].Y
	}

	wx, wy, err := opts.Kernel.SolveQR(k, bx, by)
	if err != nil {
		return Coefficients{}, FitInfo{}, err
	}

	sources, err := linalg.New(n, 2)
	if err != nil {
		return Coefficients{}, FitInfo{}, err
	}
	for i, p := range src {
		sources.Set(i, 0, p.X)
		sources.Set(i, 1, p.Y)
	}

	// Map the weights back to unscaled coordinates. With s the scale,
	// U(|q-qi|²) = (U(|p-pi|²) - |p-pi|²·ln s²) / s², and the side conditions
	// Σw = Σw·q = 0 reduce the second part to the constant -ln s²·Σ w|qi|².
	sp := &SplineTerms{Sources: sources}
	ls2 := math.Log(scale * scale)
	inv2 := 1 / (scale * scale)
	var c Coefficients
	c.Count = [3]int{3, 3, 0}
	for axis, w := range [2][]float64{wx, wy} {
		weights := make([]float64, n)
		var bend float64
		for i := 0; i < n; i++ {
			weights[i] = w[i] * inv2
			bend += w[i] * (q[i].X*q[i].X + q[i].Y*q[i].Y)
		}
		sp.Weights[axis] = weights

		a0, a1, a2 := w[n], w[n+1], w[n+2]
		t := &c.Terms[axis]
		t[0] = a0 - (a1*min.X+a2*min.Y)/scale - ls2*bend
		t[1] = a1 / scale
		t[2] = a2 / scale
		t[1+axis]++
	}
	c.Spline = sp
	c.Valid = true
	return c, FitInfo{Points: n}, nil
}

// firstCoincident returns the first pair of points equal in X and Y.
func firstCoincident(pts []geometry.Point3D) (int, int, bool) {
	for i := range pts {
		for j := i + 1; j < len(pts); j++ {
			if pts[i].SamePlanar(pts[j]) {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

// Prep terms: the affine part of X and Y at this row, then (y - yi)² per source.
func (Spline) Prep(c *Coefficients, p geometry.Point3D, terms []float64) []float64 {
	terms = append(terms[:0],
		c.Terms[0][0]+c.Terms[0][2]*p.Y,
		c.Terms[1][0]+c.Terms[1][2]*p.Y)
	n := c.Spline.Len()
	for i := 0; i < n; i++ {
		dy := p.Y - c.Spline.Sources.At(i, 1)
		terms = append(terms, dy*dy)
	}
	return terms
}

func (Spline) Do(c *Coefficients, p geometry.Point3D, terms []float64) geometry.Point3D {
	x := terms[0] + c.Terms[0][1]*p.X
	y := terms[1] + c.Terms[1][1]*p.X
	sp := c.Spline
	wx, wy := sp.Weights[0], sp.Weights[1]
	for i, dy2 := range terms[2:] {
		dx := p.X - sp.Sources.At(i, 0)
		u := radial(dx*dx + dy2)
		x += wx[i] * u
		y += wy[i] * u
	}
	return geometry.Point3D{X: x, Y: y, Z: p.Z}
}
