package transform

import (
	"tiepoint/internal/linalg"
	"tiepoint/internal/points"
	"tiepoint/pkg/geometry"
)

// linear evaluates X and Y as t0 + t1*u + t2*v, where (u, v) is the input point
// relative to the coefficient origin. Z gets Terms[2][0] added when Count[2] > 0.
type linear struct{}

func (linear) Prep(c *Coefficients, p geometry.Point3D, terms []float64) []float64 {
	v := p.Y - c.Origin.Y
	return append(terms[:0],
		c.Terms[0][0]+c.Terms[0][2]*v,
		c.Terms[1][0]+c.Terms[1][2]*v)
}

func (linear) Do(c *Coefficients, p geometry.Point3D, terms []float64) geometry.Point3D {
	u := p.X - c.Origin.X
	out := geometry.Point3D{
		X: terms[0] + c.Terms[0][1]*u,
		Y: terms[1] + c.Terms[1][1]*u,
		Z: p.Z,
	}
	if c.Count[2] > 0 {
		out.Z += c.Terms[2][0]
	}
	return out
}

// Translation shifts every point by the offset of the first active pair.
type Translation struct{ linear }

func (Translation) Meta() Meta {
	return Meta{Kind: KindTranslation, Name: "translation", MinPoints: 1, DefaultMin: 1, DefaultMax: 1}
}

func (Translation) Fit(src, dst []geometry.Point3D, _ FitOptions) (Coefficients, FitInfo, error) {
	t := dst[0].Sub(src[0])
	c := linearTerms(geometry.Point3D{}, [3]float64{t.X, 1, 0}, [3]float64{t.Y, 0, 1})
	c.Count[2] = 1
	c.Terms[2][0] = t.Z
	return c, FitInfo{Points: len(src)}, nil
}

// Similarity is rotation, uniform scale and translation:
//
//	x' = a*u - b*v + mean(x')
//	y' = b*u + a*v + mean(y')
type Similarity struct{ linear }

func (Similarity) Meta() Meta {
	return Meta{Kind: KindSimilarity, Name: "similarity", MinPoints: 2, DefaultMin: 2, DefaultMax: 2}
}

func (Similarity) Fit(src, dst []geometry.Point3D, opts FitOptions) (Coefficients, FitInfo, error) {
	cs, cd := points.Center(src), points.Center(dst)
	n := len(src)

	a, err := linalg.New(2*n, 2)
	if err != nil {
		return Coefficients{}, FitInfo{}, err
	}
	b, err := linalg.New(2*n, 1)
	if err != nil {
		return Coefficients{}, FitInfo{}, err
	}
	for i := 0; i < n; i++ {
		s, d := cs.Points[i], cd.Points[i]
		a.Set(2*i, 0, s.X)
		a.Set(2*i, 1, -s.Y)
		b.Set(2*i, 0, d.X)

		a.Set(2*i+1, 0, s.Y)
		a.Set(2*i+1, 1, s.X)
		b.Set(2*i+1, 0, d.Y)
	}

	x, err := opts.Kernel.SolveLeastSquares(a, b)
	if err != nil {
		return Coefficients{}, FitInfo{}, err
	}
	sa, sb := x.At(0, 0), x.At(1, 0)
	c := linearTerms(cs.Mean,
		[3]float64{cd.Mean.X, sa, -sb},
		[3]float64{cd.Mean.Y, sb, sa})
	return c, FitInfo{Points: n}, nil
}

// Affine is the general six-parameter planar linear map.
type Affine struct{ linear }

func (Affine) Meta() Meta {
	return Meta{Kind: KindAffine, Name: "affine", MinPoints: 3, DefaultMin: 3, DefaultMax: 5}
}

func (Affine) Fit(src, dst []geometry.Point3D, opts FitOptions) (Coefficients, FitInfo, error) {
	cs, cd := points.Center(src), points.Center(dst)
	n := len(src)

	a, err := linalg.New(n, 2)
	if err != nil {
		return Coefficients{}, FitInfo{}, err
	}
	b, err := linalg.New(n, 2)
	if err != nil {
		return Coefficients{}, FitInfo{}, err
	}
	for i := 0; i < n; i++ {
		s, d := cs.Points[i], cd.Points[i]
		a.Set(i, 0, s.X)
		a.Set(i, 1, s.Y)
		b.Set(i, 0, d.X)
		b.Set(i, 1, d.Y)
	}

	x, err := opts.Kernel.SolveLeastSquares(a, b)
	if err != nil {
		return Coefficients{}, FitInfo{}, err
	}
	c := linearTerms(cs.Mean,
		[3]float64{cd.Mean.X, x.At(0, 0), x.At(1, 0)},
		[3]float64{cd.Mean.Y, x.At(0, 1), x.At(1, 1)})
	return c, FitInfo{Points: n}, nil
}
