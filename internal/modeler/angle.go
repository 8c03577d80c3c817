package modeler

import "math"

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// NormalizeAngle folds an angle in radians into (-π, π].
func NormalizeAngle(rad float64) float64 {
	a := math.Mod(rad, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// AngleBetween returns the signed angle that turns direction (ax, ay) onto
// (bx, by), in (-π, π].
func AngleBetween(ax, ay, bx, by float64) float64 {
	return NormalizeAngle(math.Atan2(by, bx) - math.Atan2(ay, ax))
}
