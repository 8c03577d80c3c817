package transform

import (
	"tiepoint/internal/config"
	"tiepoint/internal/linalg"
	"tiepoint/internal/logger"
	"tiepoint/internal/points"
	"tiepoint/internal/status"
	"tiepoint/pkg/geometry"

	"github.com/pkg/errors"
)

// Model is one live transformation: a family, its tie points and its fitted
// coefficients. A Model is not safe for concurrent use.
type Model struct {
	Description      string
	CoordinateSystem string
	Points           *points.Store

	// AngularTolerance and LinearTolerance bound the Helmert iteration.
	AngularTolerance float64
	LinearTolerance  float64

	family Family
	coef   CoefficientSet
	opts   FitOptions
}

// NewModel creates an untyped model with an empty point store.
func NewModel(s config.Settings) *Model {
	return &Model{
		Points:           points.NewStore(),
		AngularTolerance: s.HelmertAngularTolerance,
		LinearTolerance:  s.HelmertLinearTolerance,
		opts: FitOptions{
			Kernel:                   linalg.Kernel{Epsilon: s.SingularEpsilon},
			MaxIterations:            s.HelmertMaxIterations,
			SplineStabilityMinPoints: s.SplineStabilityMinPoints,
		},
	}
}

// SetLogger routes the solvers' debug dumps of singular systems to l.
func (m *Model) SetLogger(l logger.ILogger) {
	m.opts.Kernel.Log = l
}

// Kind returns the model's family code, KindNone until SetKind is called.
func (m *Model) Kind() Kind {
	if m.family == nil {
		return KindNone
	}
	return m.family.Meta().Kind
}

// Family returns the selected family or nil.
func (m *Model) Family() Family {
	return m.family
}

// SetKind selects the family and discards any coefficients. A matrix model
// starts as the identity.
func (m *Model) SetKind(k Kind) error {
	f, err := Lookup(k)
	if err != nil {
		return err
	}
	m.family = f
	m.coef = CoefficientSet{}
	if k == KindMatrix {
		m.coef.Direct = MatrixCoefficients(geometry.Identity())
	}
	return nil
}

func (m *Model) fitOptions() FitOptions {
	o := m.opts
	o.AngularTolerance = m.AngularTolerance
	o.LinearTolerance = m.LinearTolerance
	return o
}

// Fit computes coefficients for one or both directions from the active pairs.
// On failure the existing coefficients are left untouched.
func (m *Model) Fit(dir Direction) (FitInfo, error) {
	if m.family == nil {
		return FitInfo{}, errors.Wrap(status.ErrUnsupported, "model has no type")
	}
	opts := m.fitOptions()

	if a, ok := m.family.(assigned); ok {
		if dir == Direct {
			return FitInfo{}, nil
		}
		inv, err := a.deriveInverse(&m.coef.Direct, opts)
		if err != nil {
			return FitInfo{}, err
		}
		m.coef.Inverse = inv
		return FitInfo{}, nil
	}

	meta := m.family.Meta()
	if n := m.Points.ActiveCount(); n < meta.MinPoints {
		return FitInfo{Points: n}, errors.Wrapf(status.ErrInsufficientPoints,
			"%s needs %d active pairs, have %d", meta.Name, meta.MinPoints, n)
	}

	fit := func(swap bool) (Coefficients, FitInfo, error) {
		src, dst := m.Points.Active(swap)
		return m.family.Fit(src, dst, opts)
	}

	switch dir {
	case Direct, Inverse:
		c, info, err := fit(dir == Inverse)
		if err != nil {
			return info, err
		}
		*m.coef.For(dir) = c
		return info, nil
	case Both:
		d, info, err := fit(false)
		if err != nil {
			return info, err
		}
		i, iinfo, err := fit(true)
		if err != nil {
			return iinfo, err
		}
		m.coef.Direct, m.coef.Inverse = d, i
		info.Iterations += iinfo.Iterations
		info.Converged = info.Converged && iinfo.Converged
		return info, nil
	}
	return FitInfo{}, errors.Wrapf(status.ErrUnsupported, "direction %v", dir)
}

func (m *Model) ready(dir Direction) (*Coefficients, error) {
	if m.family == nil {
		return nil, errors.Wrap(status.ErrUnsupported, "model has no type")
	}
	if dir != Direct && dir != Inverse {
		return nil, errors.Wrapf(status.ErrUnsupported, "cannot evaluate direction %v", dir)
	}
	c := m.coef.For(dir)
	if !c.Valid {
		return nil, errors.Wrapf(status.ErrUnsupported, "%v coefficients not computed", dir)
	}
	return c, nil
}

// Prepared holds the per-scanline terms of one direction.
type Prepared struct {
	Direction Direction
	Y, Z      float64
	Terms     []float64
}

// Prep computes the terms shared by every point on p's scanline.
func (m *Model) Prep(dir Direction, p geometry.Point3D) (Prepared, error) {
	return m.PrepInto(dir, p, nil)
}

// PrepInto is Prep reusing the storage of buf.
func (m *Model) PrepInto(dir Direction, p geometry.Point3D, buf []float64) (Prepared, error) {
	c, err := m.ready(dir)
	if err != nil {
		return Prepared{}, err
	}
	return Prepared{Direction: dir, Y: p.Y, Z: p.Z, Terms: m.family.Prep(c, p, buf)}, nil
}

// Final maps a point at x on the prepared scanline.
func (m *Model) Final(x float64, pr Prepared) (geometry.Point3D, error) {
	c, err := m.ready(pr.Direction)
	if err != nil {
		return geometry.Point3D{}, err
	}
	return m.family.Do(c, geometry.Point3D{X: x, Y: pr.Y, Z: pr.Z}, pr.Terms), nil
}

// Transform maps a single point.
func (m *Model) Transform(dir Direction, p geometry.Point3D) (geometry.Point3D, error) {
	c, err := m.ready(dir)
	if err != nil {
		return geometry.Point3D{}, err
	}
	var buf [2 * (MaxPolynomialDegree + 1)]float64
	return Full(m.family, c, p, buf[:0]), nil
}

// Scanline maps n points x0, x0+dx, ... on the prepared scanline into out,
// which is grown as needed and returned. A negative n is ErrUnsupported.
func (m *Model) Scanline(x0, dx float64, n int, pr Prepared, out []geometry.Point3D) ([]geometry.Point3D, error) {
	if n < 0 {
		return nil, errors.Wrapf(status.ErrUnsupported, "scanline length %d", n)
	}
	c, err := m.ready(pr.Direction)
	if err != nil {
		return nil, err
	}
	return DoScanline(m.family, c, x0, dx, n, pr, out), nil
}

// Coefficients returns a deep copy of both directions.
func (m *Model) Coefficients() CoefficientSet {
	return m.coef.Clone()
}

// SetCoefficients replaces the coefficients. Only matrix models accept this.
func (m *Model) SetCoefficients(cs CoefficientSet) error {
	if m.Kind() != KindMatrix {
		return errors.Wrapf(status.ErrUnsupported, "cannot assign coefficients to a %v model", m.Kind())
	}
	cs = cs.Clone()
	cs.Direct.Spline, cs.Inverse.Spline = nil, nil
	m.coef = cs
	return nil
}

// Release drops the coefficient and point storage.
func (m *Model) Release() {
	m.coef = CoefficientSet{}
	m.Points.Clear()
	m.family = nil
}

// Full runs Prep then Do for an isolated point.
func Full(f Family, c *Coefficients, p geometry.Point3D, buf []float64) geometry.Point3D {
	return f.Do(c, p, f.Prep(c, p, buf))
}

// DoScanline evaluates n points starting at x0 with step dx, reusing the
// prepared terms. Each x is computed as x0 + i*dx so the result is identical to
// calling Full on that point. A negative n yields an empty slice.
func DoScanline(f Family, c *Coefficients, x0, dx float64, n int, pr Prepared, out []geometry.Point3D) []geometry.Point3D {
	n = max(n, 0)
	if cap(out) < n {
		out = make([]geometry.Point3D, n)
	}
	out = out[:n]
	for i := range out {
		p := geometry.Point3D{X: x0 + float64(i)*dx, Y: pr.Y, Z: pr.Z}
		out[i] = f.Do(c, p, pr.Terms)
	}
	return out
}
