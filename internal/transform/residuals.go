package transform

import (
	"math"

	"tiepoint/internal/points"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Residual is the misfit of one active pair.
type Residual struct {
	Index  int // position in the point store
	DX, DY float64
}

// Distance is the planar length of the residual.
func (r Residual) Distance() float64 {
	return math.Hypot(r.DX, r.DY)
}

// ResidualReport summarises how well a fitted direction reproduces its pairs.
type ResidualReport struct {
	Direction Direction
	Points    []Residual
	RMS       float64
	Max       float64
}

// Residuals evaluates every active pair through the fitted direction, records
// target-minus-mapped on the pairs themselves and returns the summary.
func (m *Model) Residuals(dir Direction) (ResidualReport, error) {
	if _, err := m.ready(dir); err != nil {
		return ResidualReport{}, err
	}
	report := ResidualReport{Direction: dir}
	var sq, dist []float64

	var firstErr error
	m.Points.EachActive(func(i int, p points.Pair) {
		if firstErr != nil {
			return
		}
		src, dst := p.Observed, p.Reference
		if dir == Inverse {
			src, dst = dst, src
		}
		got, err := m.Transform(dir, src)
		if err != nil {
			firstErr = err
			return
		}
		r := Residual{Index: i, DX: dst.X - got.X, DY: dst.Y - got.Y}
		m.Points.SetResidual(i, r.DX, r.DY)
		report.Points = append(report.Points, r)
		d := r.Distance()
		dist = append(dist, d)
		sq = append(sq, d*d)
	})
	if firstErr != nil {
		return ResidualReport{}, firstErr
	}
	if len(sq) > 0 {
		report.RMS = math.Sqrt(stat.Mean(sq, nil))
		report.Max = floats.Max(dist)
	}
	return report, nil
}
