// Package linalg is the dense linear algebra kernel behind the coefficient solvers:
// row-major matrices, transposed products, Cholesky and Householder QR least
// squares, and closed-form 4x4 inversion.
package linalg

import (
	"fmt"

	"tiepoint/internal/logger"
	"tiepoint/internal/status"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// MaxElements caps the size of a single matrix. Requests above it fail with
// status.ErrAllocation instead of letting a huge control-point set exhaust memory.
const MaxElements = 1 << 26

// DefaultEpsilon is the relative pivot and absolute determinant threshold used
// when no Kernel is configured.
const DefaultEpsilon = 1e-14

// Matrix is a dense row-major matrix. It implements gonum's mat.Matrix so it can
// be handed to mat.Formatted or any gonum routine that accepts a read-only matrix.
type Matrix struct {
	rows, cols int
	data       []float64
}

var _ mat.Matrix = (*Matrix)(nil)

// New allocates a zeroed rows x cols matrix.
func New(rows, cols int) (*Matrix, error) {
	if rows <= 0 || cols <= 0 || rows > MaxElements/cols {
		return nil, errors.Wrapf(status.ErrAllocation, "matrix %dx%d", rows, cols)
	}
	return &Matrix{rows: rows, cols: cols, data: make([]float64, rows*cols)}, nil
}

// NewFromRows builds a matrix from a slice of equal-length rows.
func NewFromRows(rows [][]float64) (*Matrix, error) {
	if len(rows) == 0 {
		return nil, errors.Wrap(status.ErrAllocation, "matrix with no rows")
	}
	m, err := New(len(rows), len(rows[0]))
	if err != nil {
		return nil, err
	}
	for i, r := range rows {
		if len(r) != m.cols {
			return nil, fmt.Errorf("row %d has %d columns, want %d", i, len(r), m.cols)
		}
		copy(m.data[i*m.cols:], r)
	}
	return m, nil
}

// Dims returns the number of rows and columns.
func (m *Matrix) Dims() (int, int) {
	return m.rows, m.cols
}

// At returns element (i, j).
func (m *Matrix) At(i, j int) float64 {
	return m.data[i*m.cols+j]
}

// Set assigns element (i, j).
func (m *Matrix) Set(i, j int, v float64) {
	m.data[i*m.cols+j] = v
}

// T returns a transposed view, as required by mat.Matrix.
func (m *Matrix) T() mat.Matrix {
	return mat.Transpose{Matrix: m}
}

// Row returns row i as a slice aliasing the matrix storage.
func (m *Matrix) Row(i int) []float64 {
	return m.data[i*m.cols : (i+1)*m.cols]
}

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	c := &Matrix{rows: m.rows, cols: m.cols, data: make([]float64, len(m.data))}
	copy(c.data, m.data)
	return c
}

// String formats the matrix for the kernel's debug dumps.
func (m *Matrix) String() string {
	return fmt.Sprintf("%v", mat.Formatted(m, mat.Squeeze()))
}

// Mul returns a·b.
func Mul(a, b *Matrix) (*Matrix, error) {
	return mul(a, b, false, false)
}

// MulTN returns aᵗ·b without materialising the transpose.
func MulTN(a, b *Matrix) (*Matrix, error) {
	return mul(a, b, true, false)
}

// MulNT returns a·bᵗ.
func MulNT(a, b *Matrix) (*Matrix, error) {
	return mul(a, b, false, true)
}

// MulTT returns aᵗ·bᵗ.
func MulTT(a, b *Matrix) (*Matrix, error) {
	return mul(a, b, true, true)
}

func mul(a, b *Matrix, ta, tb bool) (*Matrix, error) {
	ar, ac := a.rows, a.cols
	if ta {
		ar, ac = ac, ar
	}
	br, bc := b.rows, b.cols
	if tb {
		br, bc = bc, br
	}
	if ac != br {
		return nil, fmt.Errorf("dimension mismatch: %dx%d times %dx%d", ar, ac, br, bc)
	}

	out, err := New(ar, bc)
	if err != nil {
		return nil, err
	}

	at := func(i, k int) float64 {
		if ta {
			return a.data[k*a.cols+i]
		}
		return a.data[i*a.cols+k]
	}
	bt := func(k, j int) float64 {
		if tb {
			return b.data[j*b.cols+k]
		}
		return b.data[k*b.cols+j]
	}

	for i := 0; i < ar; i++ {
		row := out.data[i*bc : (i+1)*bc]
		for k := 0; k < ac; k++ {
			v := at(i, k)
			if v == 0 {
				continue
			}
			for j := range row {
				row[j] += v * bt(k, j)
			}
		}
	}
	return out, nil
}

// Kernel carries the numeric thresholds for the factorizations.
type Kernel struct {
	// Epsilon is relative for Cholesky pivots and QR diagonals, absolute for the
	// 4x4 determinant.
	Epsilon float64

	// Log, when set, receives a Debug dump of any system found singular.
	Log logger.ILogger
}

// Default is the kernel used by the package-level helpers.
var Default = Kernel{Epsilon: DefaultEpsilon}

// SolveLeastSquares solves a·x ≈ b with Default.
func SolveLeastSquares(a, b *Matrix) (*Matrix, error) {
	return Default.SolveLeastSquares(a, b)
}

// SolveQR solves a·x ≈ bx and a·y ≈ by with Default.
func SolveQR(a *Matrix, bx, by []float64) ([]float64, []float64, error) {
	return Default.SolveQR(a, bx, by)
}

// Invert4x4 inverts m with Default.
func Invert4x4(m Mat4) (Mat4, error) {
	return Default.Invert4x4(m)
}
