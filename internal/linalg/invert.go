package linalg

import (
	"math"

	"tiepoint/internal/status"

	"github.com/pkg/errors"
)

// Mat4 is a row-major 4x4 matrix.
type Mat4 [16]float64

// Identity4 returns the 4x4 identity.
func Identity4() Mat4 {
	return Mat4{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
}

// Mul returns m·o.
func (m Mat4) Mul(o Mat4) Mat4 {
	var r Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var v float64
			for k := 0; k < 4; k++ {
				v += m[i*4+k] * o[k*4+j]
			}
			r[i*4+j] = v
		}
	}
	return r
}

// Determinant by Laplace expansion over the 2x2 minors of the top and bottom row pairs.
func (m Mat4) Determinant() float64 {
	s, c := m.minors()
	return s[0]*c[5] - s[1]*c[4] + s[2]*c[3] + s[3]*c[2] - s[4]*c[1] + s[5]*c[0]
}

// minors returns the six 2x2 minors of rows 0-1 (s) and rows 2-3 (c).
func (m Mat4) minors() (s, c [6]float64) {
	s[0] = m[0]*m[5] - m[4]*m[1]
	s[1] = m[0]*m[6] - m[4]*m[2]
	s[2] = m[0]*m[7] - m[4]*m[3]
	s[3] = m[1]*m[6] - m[5]*m[2]
	s[4] = m[1]*m[7] - m[5]*m[3]
	s[5] = m[2]*m[7] - m[6]*m[3]

	c[0] = m[8]*m[13] - m[12]*m[9]
	c[1] = m[8]*m[14] - m[12]*m[10]
	c[2] = m[8]*m[15] - m[12]*m[11]
	c[3] = m[9]*m[14] - m[13]*m[10]
	c[4] = m[9]*m[15] - m[13]*m[11]
	c[5] = m[10]*m[15] - m[14]*m[11]
	return s, c
}

// Invert4x4 returns the adjugate of m divided by its determinant. A determinant
// within Epsilon of zero fails with status.ErrSingular.
func (k Kernel) Invert4x4(m Mat4) (Mat4, error) {
	s, c := m.minors()
	det := s[0]*c[5] - s[1]*c[4] + s[2]*c[3] + s[3]*c[2] - s[4]*c[1] + s[5]*c[0]
	if math.Abs(det) < k.Epsilon {
		return Mat4{}, errors.Wrapf(status.ErrSingular, "4x4 determinant %g", det)
	}
	inv := 1 / det

	var r Mat4
	r[0] = (m[5]*c[5] - m[6]*c[4] + m[7]*c[3]) * inv
	r[1] = (-m[1]*c[5] + m[2]*c[4] - m[3]*c[3]) * inv
	r[2] = (m[13]*s[5] - m[14]*s[4] + m[15]*s[3]) * inv
	r[3] = (-m[9]*s[5] + m[10]*s[4] - m[11]*s[3]) * inv

	r[4] = (-m[4]*c[5] + m[6]*c[2] - m[7]*c[1]) * inv
	r[5] = (m[0]*c[5] - m[2]*c[2] + m[3]*c[1]) * inv
	r[6] = (-m[12]*s[5] + m[14]*s[2] - m[15]*s[1]) * inv
	r[7] = (m[8]*s[5] - m[10]*s[2] + m[11]*s[1]) * inv

	r[8] = (m[4]*c[4] - m[5]*c[2] + m[7]*c[0]) * inv
	r[9] = (-m[0]*c[4] + m[1]*c[2] - m[3]*c[0]) * inv
	r[10] = (m[12]*s[4] - m[13]*s[2] + m[15]*s[0]) * inv
	r[11] = (-m[8]*s[4] + m[9]*s[2] - m[11]*s[0]) * inv

	r[12] = (-m[4]*c[3] + m[5]*c[1] - m[6]*c[0]) * inv
	r[13] = (m[0]*c[3] - m[1]*c[1] + m[2]*c[0]) * inv
	r[14] = (-m[12]*s[3] + m[13]*s[1] - m[14]*s[0]) * inv
	r[15] = (m[8]*s[3] - m[9]*s[1] + m[10]*s[0]) * inv
	return r, nil
}
