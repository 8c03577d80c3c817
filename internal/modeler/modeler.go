// Package modeler builds planar affine transforms from elementary operations
// (rotation, scale, translation, mirroring) accumulated on one homogeneous
// 4x4 matrix. The result feeds a matrix-kind transform model.
package modeler

import (
	"math"

	"tiepoint/internal/linalg"
	"tiepoint/internal/transform"
	"tiepoint/pkg/geometry"
)

// Modeler accumulates operations. Each call applies after the ones before it,
// so Rotate then Translate rotates first. The zero value is not ready; use New.
type Modeler struct {
	m      linalg.Mat4
	kernel linalg.Kernel
}

// New returns a modeler holding the identity.
func New() *Modeler {
	return &Modeler{m: linalg.Identity4(), kernel: linalg.Default}
}

// WithKernel sets the numeric tolerances used by Inverse.
func (md *Modeler) WithKernel(k linalg.Kernel) *Modeler {
	md.kernel = k
	return md
}

// Reset returns to the identity.
func (md *Modeler) Reset() *Modeler {
	md.m = linalg.Identity4()
	return md
}

func (md *Modeler) then(op linalg.Mat4) *Modeler {
	md.m = op.Mul(md.m)
	return md
}

// Rotate turns counter-clockwise by angle radians about the origin.
func (md *Modeler) Rotate(angle float64) *Modeler {
	s, c := math.Sincos(angle)
	op := linalg.Identity4()
	op[0], op[1] = c, -s
	op[4], op[5] = s, c
	return md.then(op)
}

// RotateAbout turns by angle radians about (cx, cy).
func (md *Modeler) RotateAbout(angle, cx, cy float64) *Modeler {
	return md.Translate(-cx, -cy).Rotate(angle).Translate(cx, cy)
}

// Scale scales each axis independently.
func (md *Modeler) Scale(sx, sy float64) *Modeler {
	op := linalg.Identity4()
	op[0], op[5] = sx, sy
	return md.then(op)
}

// Translate shifts by (tx, ty).
func (md *Modeler) Translate(tx, ty float64) *Modeler {
	op := linalg.Identity4()
	op[3], op[7] = tx, ty
	return md.then(op)
}

// MirrorX reflects across the X axis (negates Y).
func (md *Modeler) MirrorX() *Modeler {
	return md.Scale(1, -1)
}

// MirrorY reflects across the Y axis (negates X).
func (md *Modeler) MirrorY() *Modeler {
	return md.Scale(-1, 1)
}

// Matrix returns the accumulated homogeneous matrix.
func (md *Modeler) Matrix() linalg.Mat4 {
	return md.m
}

// Inverse returns the inverse of the accumulated matrix.
func (md *Modeler) Inverse() (linalg.Mat4, error) {
	return md.kernel.Invert4x4(md.m)
}

// Apply maps a point through the accumulated matrix.
func (md *Modeler) Apply(p geometry.Point3D) geometry.Point3D {
	return Apply(md.m, p)
}

// Apply maps a point through a homogeneous matrix with w = 1.
func Apply(m linalg.Mat4, p geometry.Point3D) geometry.Point3D {
	return geometry.Point3D{
		X: m[0]*p.X + m[1]*p.Y + m[2]*p.Z + m[3],
		Y: m[4]*p.X + m[5]*p.Y + m[6]*p.Z + m[7],
		Z: m[8]*p.X + m[9]*p.Y + m[10]*p.Z + m[11],
	}
}

// Affine returns the planar part of the accumulated matrix.
func (md *Modeler) Affine() geometry.AffineTransform {
	return affineOf(md.m)
}

func affineOf(m linalg.Mat4) geometry.AffineTransform {
	return geometry.AffineTransform{A: m[0], B: m[1], TX: m[3], C: m[4], D: m[5], TY: m[7]}
}

// Coefficients returns both directions of a matrix model equivalent to the
// accumulated operations.
func (md *Modeler) Coefficients() (transform.CoefficientSet, error) {
	inv, err := md.Inverse()
	if err != nil {
		return transform.CoefficientSet{}, err
	}
	return transform.CoefficientSet{
		Direct:  transform.MatrixCoefficients(md.Affine()),
		Inverse: transform.MatrixCoefficients(affineOf(inv)),
	}, nil
}
