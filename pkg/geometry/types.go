// Package geometry provides the coordinate value types shared by the transform engine.
package geometry

import (
	"math"
)

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	return math.Hypot(p.X-other.X, p.Y-other.Y)
}

// Point3D represents a coordinate in one of the two spaces a model relates.
// Most model families are planar and pass Z through unchanged.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z,omitempty"`
}

// NewPoint3D creates a new Point3D.
func NewPoint3D(x, y, z float64) Point3D {
	return Point3D{X: x, Y: y, Z: z}
}

// XY drops the Z component.
func (p Point3D) XY() Point2D {
	return Point2D{X: p.X, Y: p.Y}
}

// Add returns the component-wise sum.
func (p Point3D) Add(other Point3D) Point3D {
	return Point3D{X: p.X + other.X, Y: p.Y + other.Y, Z: p.Z + other.Z}
}

// Sub returns the component-wise difference.
func (p Point3D) Sub(other Point3D) Point3D {
	return Point3D{X: p.X - other.X, Y: p.Y - other.Y, Z: p.Z - other.Z}
}

// Axis returns component i (0=X, 1=Y, 2=Z).
func (p Point3D) Axis(i int) float64 {
	switch i {
	case 0:
		return p.X
	case 1:
		return p.Y
	default:
		return p.Z
	}
}

// SetAxis sets component i (0=X, 1=Y, 2=Z).
func (p *Point3D) SetAxis(i int, v float64) {
	switch i {
	case 0:
		p.X = v
	case 1:
		p.Y = v
	default:
		p.Z = v
	}
}

// PlanarDistance is the distance in the XY plane.
func (p Point3D) PlanarDistance(other Point3D) float64 {
	return math.Hypot(p.X-other.X, p.Y-other.Y)
}

// SamePlanar reports whether two points coincide in X and Y.
func (p Point3D) SamePlanar(other Point3D) bool {
	return p.X == other.X && p.Y == other.Y
}

// Rect represents a rectangle with floating-point coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains returns true if the point is inside the rectangle.
func (r Rect) Contains(p Point2D) bool {
	return p.X >= r.X && p.X <= r.X+r.Width &&
		p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// MaxExtent is the larger of Width and Height.
func (r Rect) MaxExtent() float64 {
	return math.Max(r.Width, r.Height)
}

// BoundingBox computes the axis-aligned XY bounding box of a set of points.
func BoundingBox(points []Point3D) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Centroid computes the mean position of a set of points. Each sample is folded
// into a running mean so large coordinates never accumulate into one big sum.
func Centroid(points []Point3D) Point3D {
	var c Point3D
	for i, p := range points {
		n := float64(i + 1)
		c.X += (p.X - c.X) / n
		c.Y += (p.Y - c.Y) / n
		c.Z += (p.Z - c.Z) / n
	}
	return c
}

// AffineTransform represents a 2x3 affine transformation matrix.
// [a b tx]
// [c d ty]
type AffineTransform struct {
	A, B, TX float64
	C, D, TY float64
}

// Identity returns the identity transform.
func Identity() AffineTransform {
	return AffineTransform{A: 1, D: 1}
}

// Apply applies the transform to a point, leaving Z untouched.
func (t AffineTransform) Apply(p Point3D) Point3D {
	return Point3D{
		X: t.A*p.X + t.B*p.Y + t.TX,
		Y: t.C*p.X + t.D*p.Y + t.TY,
		Z: p.Z,
	}
}

// Compose returns this transform composed with another (this * other).
func (t AffineTransform) Compose(other AffineTransform) AffineTransform {
	return AffineTransform{
		A:  t.A*other.A + t.B*other.C,
		B:  t.A*other.B + t.B*other.D,
		TX: t.A*other.TX + t.B*other.TY + t.TX,
		C:  t.C*other.A + t.D*other.C,
		D:  t.C*other.B + t.D*other.D,
		TY: t.C*other.TX + t.D*other.TY + t.TY,
	}
}

// Determinant of the linear 2x2 block.
func (t AffineTransform) Determinant() float64 {
	return t.A*t.D - t.B*t.C
}
