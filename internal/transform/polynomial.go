package transform

import (
	"fmt"
	"math"

	"tiepoint/internal/linalg"
	"tiepoint/internal/points"
	"tiepoint/internal/status"
	"tiepoint/pkg/geometry"

	"github.com/pkg/errors"
)

// Polynomial maps each axis through a bivariate polynomial of total degree
// Degree (1..MaxPolynomialDegree). Terms are ordered by total degree and, within
// a degree, by falling power of u: 1, u, v, u², uv, v², u³, u²v, ...
// The zero-order term is the destination mean; only the terms of degree
// 1..Degree are fitted.
type Polynomial struct {
	Degree int
}

// TermCount is the number of monomials of total degree <= degree.
func TermCount(degree int) int {
	return (degree + 1) * (degree + 2) / 2
}

// Unknowns is the number of fitted coefficients per axis, degree(degree+3)/2.
func Unknowns(degree int) int {
	return TermCount(degree) - 1
}

// termIndex locates u^i v^j in the canonical ordering.
func termIndex(i, j int) int {
	d := i + j
	return d*(d+1)/2 + j
}

func (p Polynomial) Meta() Meta {
	m := Meta{
		Kind:      KindPolynomial1 + Kind(p.Degree-1),
		Name:      fmt.Sprintf("polynomial%d", p.Degree),
		MinPoints: Unknowns(p.Degree),
	}
	switch p.Degree {
	case 2:
		m.DefaultMin, m.DefaultMax = 6, 9
	case 3:
		m.DefaultMin, m.DefaultMax = 10, -1
	}
	return m
}

func (p Polynomial) Fit(src, dst []geometry.Point3D, opts FitOptions) (Coefficients, FitInfo, error) {
	if p.Degree < 1 || p.Degree > MaxPolynomialDegree {
		return Coefficients{}, FitInfo{}, errors.Wrapf(status.ErrUnsupported, "polynomial degree %d outside 1..%d", p.Degree, MaxPolynomialDegree)
	}
	cs, cd := points.Center(src), points.Center(dst)
	n := len(src)
	terms := TermCount(p.Degree)

	// Scale centred sources into [-1,1] so high powers stay representable.
	k := 0.0
	for _, s := range cs.Points {
		k = math.Max(k, math.Max(math.Abs(s.X), math.Abs(s.Y)))
	}
	if k == 0 {
		k = 1
	}
	k = 1 / k

	a, err := linalg.New(n, terms-1)
	if err != nil {
		return Coefficients{}, FitInfo{}, err
	}
	b, err := linalg.New(n, 2)
	if err != nil {
		return Coefficients{}, FitInfo{}, err
	}
	var upow, vpow [MaxPolynomialDegree + 1]float64
	for r := 0; r < n; r++ {
		powers(cs.Points[r].X*k, p.Degree, upow[:])
		powers(cs.Points[r].Y*k, p.Degree, vpow[:])
		row := a.Row(r)
		for d := 1; d <= p.Degree; d++ {
			for j := 0; j <= d; j++ {
				row[termIndex(d-j, j)-1] = upow[d-j] * vpow[j]
			}
		}
		b.Set(r, 0, cd.Points[r].X)
		b.Set(r, 1, cd.Points[r].Y)
	}

	x, err := opts.Kernel.SolveLeastSquares(a, b)
	if err != nil {
		return Coefficients{}, FitInfo{}, err
	}

	var c Coefficients
	c.Origin = cs.Mean
	c.Count = [3]int{terms, terms, 0}
	c.Terms[0][0] = cd.Mean.X
	c.Terms[1][0] = cd.Mean.Y
	for d := 1; d <= p.Degree; d++ {
		kd := math.Pow(k, float64(d))
		for j := 0; j <= d; j++ {
			t := termIndex(d-j, j)
			c.Terms[0][t] = x.At(t-1, 0) * kd
			c.Terms[1][t] = x.At(t-1, 1) * kd
		}
	}
	c.Valid = true
	return c, FitInfo{Points: n}, nil
}

func powers(x float64, degree int, out []float64) {
	out[0] = 1
	for i := 1; i <= degree; i++ {
		out[i] = out[i-1] * x
	}
}

// Prep collapses the v-dependence: for each power i of u it stores
// Σ_j c(i,j)·v^j, X axis first then Y, Degree+1 entries each.
func (p Polynomial) Prep(c *Coefficients, pt geometry.Point3D, terms []float64) []float64 {
	var vpow [MaxPolynomialDegree + 1]float64
	powers(pt.Y-c.Origin.Y, p.Degree, vpow[:])
	terms = terms[:0]
	for axis := 0; axis < 2; axis++ {
		for i := 0; i <= p.Degree; i++ {
			s := 0.0
			for j := 0; i+j <= p.Degree; j++ {
				s += c.Terms[axis][termIndex(i, j)] * vpow[j]
			}
			terms = append(terms, s)
		}
	}
	return terms
}

// Do evaluates the per-power sums from Prep in u by Horner's rule.
func (p Polynomial) Do(c *Coefficients, pt geometry.Point3D, terms []float64) geometry.Point3D {
	u := pt.X - c.Origin.X
	stride := p.Degree + 1
	var x, y float64
	for i := p.Degree; i >= 0; i-- {
		x = x*u + terms[i]
		y = y*u + terms[stride+i]
	}
	return geometry.Point3D{X: x, Y: y, Z: pt.Z}
}
