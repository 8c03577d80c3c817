package transform

import (
	"tiepoint/internal/linalg"
	"tiepoint/pkg/geometry"
)

// MaxTerms is the fixed per-axis coefficient capacity: the term count of a
// degree-5 polynomial, the largest fixed-size family.
const MaxTerms = (MaxPolynomialDegree + 1) * (MaxPolynomialDegree + 2) / 2

// Coefficients is one direction of a fitted model.
type Coefficients struct {
	// Origin is subtracted from an input point before the terms are applied
	// (the mean of the fitted source points).
	Origin geometry.Point3D
	// Count is the number of meaningful entries per axis in Terms.
	Count [3]int
	// Terms holds per-axis coefficients. Terms[axis][0] is the zero-order term
	// and already contains the destination mean.
	Terms [3][MaxTerms]float64

	// Spline is set for thin-plate-spline models only.
	Spline *SplineTerms

	Valid bool
}

// SplineTerms are the radial-basis weights of a thin-plate spline.
type SplineTerms struct {
	// Sources is an N x 2 matrix of the source control points.
	Sources *linalg.Matrix
	// Weights[axis][i] multiplies the kernel of source point i.
	Weights [2][]float64
}

// Len returns the number of radial terms.
func (s *SplineTerms) Len() int {
	if s == nil || s.Sources == nil {
		return 0
	}
	n, _ := s.Sources.Dims()
	return n
}

func (c Coefficients) clone() Coefficients {
	if c.Spline != nil {
		sp := &SplineTerms{Sources: c.Spline.Sources.Clone()}
		for a := range sp.Weights {
			sp.Weights[a] = append([]float64(nil), c.Spline.Weights[a]...)
		}
		c.Spline = sp
	}
	return c
}

// CoefficientSet is both directions of a model.
type CoefficientSet struct {
	Direct  Coefficients
	Inverse Coefficients
}

// For returns the record of one direction.
func (s *CoefficientSet) For(d Direction) *Coefficients {
	if d == Inverse {
		return &s.Inverse
	}
	return &s.Direct
}

// Clone returns a deep copy.
func (s CoefficientSet) Clone() CoefficientSet {
	return CoefficientSet{Direct: s.Direct.clone(), Inverse: s.Inverse.clone()}
}

// FitOptions are the numeric knobs of the solvers.
type FitOptions struct {
	Kernel linalg.Kernel

	AngularTolerance float64 // Helmert, radians
	LinearTolerance  float64 // Helmert, coordinate units
	MaxIterations    int     // Helmert

	// SplineStabilityMinPoints: source points are rescaled into a unit box
	// before a spline solve when there are more than this many.
	SplineStabilityMinPoints int
}

// DefaultFitOptions mirrors config.Default.
func DefaultFitOptions() FitOptions {
	return FitOptions{
		Kernel:                   linalg.Default,
		AngularTolerance:         1e-10,
		LinearTolerance:          1e-8,
		MaxIterations:            30,
		SplineStabilityMinPoints: 3,
	}
}

// linearTerms fills X and Y as t0 + t1*u + t2*v with the given origin.
func linearTerms(origin geometry.Point3D, x, y [3]float64) Coefficients {
	var c Coefficients
	c.Origin = origin
	c.Count = [3]int{3, 3, 0}
	copy(c.Terms[0][:], x[:])
	copy(c.Terms[1][:], y[:])
	c.Valid = true
	return c
}
