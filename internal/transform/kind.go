// Package transform fits coordinate-transformation models to tie points and
// evaluates them. Each model family is one variant of the Family interface;
// the variant carries its own metadata so dispatch and point-count rules can
// never drift apart.
package transform

import (
	"fmt"
	"strings"

	"tiepoint/internal/status"
	"tiepoint/pkg/geometry"

	"github.com/pkg/errors"
)

// Direction selects which way a model maps.
type Direction int

const (
	// Direct maps observed coordinates to reference coordinates.
	Direct Direction = iota
	// Inverse maps reference coordinates back to observed coordinates.
	Inverse
	// Both is only meaningful for fitting.
	Both
)

func (d Direction) String() string {
	switch d {
	case Direct:
		return "direct"
	case Inverse:
		return "inverse"
	case Both:
		return "both"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Kind is the fixed type code of a model family.
type Kind int

const (
	KindNone Kind = iota
	KindTranslation
	KindSimilarity
	KindHelmert
	KindAffine
	KindProjective
	KindPolynomial1
	KindPolynomial2
	KindPolynomial3
	KindPolynomial4
	KindPolynomial5
	KindSpline
	KindMatrix
)

// MaxPolynomialDegree is the highest polynomial degree supported.
const MaxPolynomialDegree = 5

// Meta is the constant per-family data callers use to pick a model.
type Meta struct {
	Kind      Kind
	Name      string
	MinPoints int // active pairs required to fit; 0 when no points are used

	// DefaultMin..DefaultMax is the point-count range for which this family is
	// the conventional automatic choice. DefaultMax < 0 means unbounded.
	DefaultMin, DefaultMax int
}

func (m Meta) isDefaultFor(n int) bool {
	if m.DefaultMin == 0 {
		return false
	}
	return n >= m.DefaultMin && (m.DefaultMax < 0 || n <= m.DefaultMax)
}

// FitInfo reports details of a successful fit.
type FitInfo struct {
	Points     int
	Iterations int // Helmert only
	Converged  bool
}

// Family is one model family.
type Family interface {
	Meta() Meta

	// Fit computes coefficients mapping src onto dst. len(src) == len(dst) and
	// is at least Meta().MinPoints.
	Fit(src, dst []geometry.Point3D, opts FitOptions) (Coefficients, FitInfo, error)

	// Prep computes the terms of a mapping that depend on p.Y (and p.Z) only,
	// appending to terms[:0]. The result is valid for every point on the
	// same scanline.
	Prep(c *Coefficients, p geometry.Point3D, terms []float64) []float64

	// Do finishes the mapping of p using the terms from Prep.
	Do(c *Coefficients, p geometry.Point3D, terms []float64) geometry.Point3D
}

// assigned is implemented by families whose direct coefficients are set by the
// caller rather than fitted.
type assigned interface {
	deriveInverse(direct *Coefficients, opts FitOptions) (Coefficients, error)
}

var families = []Family{
	Translation{},
	Similarity{},
	Helmert{},
	Affine{},
	Projective{},
	Polynomial{Degree: 1},
	Polynomial{Degree: 2},
	Polynomial{Degree: 3},
	Polynomial{Degree: 4},
	Polynomial{Degree: 5},
	Spline{},
	Matrix{},
}

// Lookup returns the family for a kind.
func Lookup(k Kind) (Family, error) {
	for _, f := range families {
		if f.Meta().Kind == k {
			return f, nil
		}
	}
	return nil, errors.Wrapf(status.ErrUnsupported, "unknown model kind %d", int(k))
}

// Families lists every supported family in type-code order.
func Families() []Family {
	out := make([]Family, len(families))
	copy(out, families)
	return out
}

// String returns the family name.
func (k Kind) String() string {
	if k == KindNone {
		return "none"
	}
	if f, err := Lookup(k); err == nil {
		return f.Meta().Name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind accepts the names returned by Kind.String, case-insensitively.
func ParseKind(s string) (Kind, error) {
	for _, f := range families {
		if strings.EqualFold(f.Meta().Name, s) {
			return f.Meta().Kind, nil
		}
	}
	return KindNone, errors.Wrapf(status.ErrUnsupported, "unknown model kind %q", s)
}

// PolynomialKind returns the kind for a polynomial of the given degree.
func PolynomialKind(degree int) (Kind, error) {
	if degree < 1 || degree > MaxPolynomialDegree {
		return KindNone, errors.Wrapf(status.ErrUnsupported,
			"polynomial degree %d outside 1..%d", degree, MaxPolynomialDegree)
	}
	return KindPolynomial1 + Kind(degree-1), nil
}

// DefaultKindFor picks the conventional family for n active tie points.
func DefaultKindFor(n int) (Kind, error) {
	for _, f := range families {
		if f.Meta().isDefaultFor(n) {
			return f.Meta().Kind, nil
		}
	}
	return KindNone, errors.Wrapf(status.ErrInsufficientPoints, "no default model for %d points", n)
}
