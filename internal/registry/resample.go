package registry

import (
	"tiepoint/internal/resample"
	"tiepoint/internal/status"
	"tiepoint/internal/transform"

	"github.com/pkg/errors"
)

// ResampleScanline maps n output pixels x0 + i*dx of a prepared scanline into
// input pixel space and writes their values to buf.Output.
func ResampleScanline[T resample.Sample](r *Registry, h Handle, dir transform.Direction,
	x0, dx float64, n int, pr transform.Prepared,
	buf *resample.BufferInfo[T], color *resample.ColorInfo[T]) (resample.Path, error) {

	r.mu.Lock()
	defer r.mu.Unlock()
	m, err := r.lookup(h)
	if err != nil {
		return 0, err
	}
	if pr.Direction != dir {
		return 0, errors.Wrapf(status.ErrUnsupported, "terms prepared for %v, resampling %v", pr.Direction, dir)
	}
	coords, err := m.Scanline(x0, dx, n, pr, r.scratch)
	if err != nil {
		return 0, err
	}
	r.scratch = coords
	path, err := resample.Resample(coords, buf, color)
	if err != nil {
		r.log.Errorf("model %d: resample failed: %v", h, err)
		return 0, err
	}
	return path, nil
}
