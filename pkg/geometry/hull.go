package geometry

import (
	"math"
	"sort"
)

// Hull is a convex polygon in counter-clockwise order.
type Hull []Point2D

// ConvexHull returns the convex hull of the planar part of points. Fewer than
// three distinct non-collinear points give a degenerate hull that contains
// nothing.
func ConvexHull(points []Point3D) Hull {
	pts := make([]Point2D, len(points))
	for i, p := range points {
		pts[i] = p.XY()
	}
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})
	if len(pts) < 3 {
		return Hull(pts)
	}

	// Monotone chain: lower hull left to right, then upper hull back.
	hull := make([]Point2D, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return Hull(hull[:len(hull)-1])
}

// Area is the enclosed area; zero for a degenerate hull.
func (h Hull) Area() float64 {
	if len(h) < 3 {
		return 0
	}
	a := 0.0
	for i := range h {
		j := (i + 1) % len(h)
		a += h[i].X*h[j].Y - h[j].X*h[i].Y
	}
	return math.Abs(a) / 2
}

// Contains reports whether p lies inside the hull or on its boundary.
func (h Hull) Contains(p Point2D) bool {
	if len(h) < 3 {
		return false
	}
	for i := range h {
		if cross(h[i], h[(i+1)%len(h)], p) < 0 {
			return false
		}
	}
	return true
}

// Bounds is the axis-aligned box of the hull.
func (h Hull) Bounds() Rect {
	pts := make([]Point3D, len(h))
	for i, p := range h {
		pts[i] = Point3D{X: p.X, Y: p.Y}
	}
	return BoundingBox(pts)
}

// cross is the z component of OA x OB.
func cross(o, a, b Point2D) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}
