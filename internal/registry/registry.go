// Package registry holds the live transformation models of one caller and
// mediates every operation on them through integer handles.
package registry

import (
	"sync"

	"tiepoint/internal/config"
	"tiepoint/internal/logger"
	"tiepoint/internal/points"
	"tiepoint/internal/status"
	"tiepoint/internal/transform"
	"tiepoint/pkg/geometry"

	"github.com/pkg/errors"
)

// Handle identifies a model slot. Handles of destroyed models are not reused.
type Handle int

// NoHandle is returned alongside errors and by Current before any lookup.
const NoHandle Handle = -1

// Registry is a table of models. Create one with New; a Registry is safe
// for concurrent use, but the models it hands out through Model are not.
type Registry struct {
	mu sync.Mutex

	settings config.Settings
	log      logger.ILogger

	models  []*transform.Model
	current Handle
	live    bool

	scratch []geometry.Point3D
}

// New returns an initialised registry. A nil logger discards output. Settings
// that fail validation are replaced by config.Default().
func New(s config.Settings, log logger.ILogger) *Registry {
	if log == nil {
		log = logger.NullLogger{}
	}
	if err := s.Validate(); err != nil {
		log.Errorf("invalid engine settings, using defaults: %v", err)
		s = config.Default()
	}
	return &Registry{settings: s, log: log, current: NoHandle, live: true}
}

// Shutdown releases every model. Later calls fail with ErrNotInitialized.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.live {
		return
	}
	for i, m := range r.models {
		if m != nil {
			m.Release()
			r.models[i] = nil
		}
	}
	r.models = nil
	r.current = NoHandle
	r.live = false
	r.log.Infof("registry shut down")
}

// Settings returns the settings new models are created with.
func (r *Registry) Settings() config.Settings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings
}

// lookup makes h current and returns its model. Callers hold mu.
func (r *Registry) lookup(h Handle) (*transform.Model, error) {
	if !r.live {
		return nil, status.ErrNotInitialized
	}
	if h < 0 || int(h) >= len(r.models) || r.models[h] == nil {
		return nil, errors.Wrapf(status.ErrInvalidHandle, "handle %d", h)
	}
	r.current = h
	return r.models[h], nil
}

// with runs fn on the model of h under the lock.
func (r *Registry) with(h Handle, fn func(m *transform.Model) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, err := r.lookup(h)
	if err != nil {
		return err
	}
	return fn(m)
}

// Current returns the handle most recently looked up, or NoHandle.
func (r *Registry) Current() Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Count returns the number of slots, destroyed ones included.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.models)
}

// CreateModel adds an untyped model and returns its handle.
func (r *Registry) CreateModel() (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.live {
		return NoHandle, status.ErrNotInitialized
	}
	m := transform.NewModel(r.settings)
	m.SetLogger(r.log)
	r.models = append(r.models, m)
	h := Handle(len(r.models) - 1)
	r.current = h
	r.log.Infof("created model %d", h)
	return h, nil
}

// DestroyModel releases a model. Its slot stays empty so other handles keep
// their meaning.
func (r *Registry) DestroyModel(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, err := r.lookup(h)
	if err != nil {
		return err
	}
	m.Release()
	r.models[h] = nil
	r.current = NoHandle
	r.log.Infof("destroyed model %d", h)
	return nil
}

// Model returns the model behind h for direct use.
func (r *Registry) Model(h Handle) (*transform.Model, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookup(h)
}

// SetKind selects the model family, discarding coefficients.
func (r *Registry) SetKind(h Handle, k transform.Kind) error {
	return r.with(h, func(m *transform.Model) error {
		if err := m.SetKind(k); err != nil {
			return err
		}
		r.log.Debugf("model %d: type %v", h, k)
		return nil
	})
}

// Kind returns the model family.
func (r *Registry) Kind(h Handle) (transform.Kind, error) {
	var k transform.Kind
	err := r.with(h, func(m *transform.Model) error {
		k = m.Kind()
		return nil
	})
	return k, err
}

// AutoKind selects the conventional family for the current active point count.
func (r *Registry) AutoKind(h Handle) (transform.Kind, error) {
	var k transform.Kind
	err := r.with(h, func(m *transform.Model) error {
		var err error
		if k, err = transform.DefaultKindFor(m.Points.ActiveCount()); err != nil {
			return err
		}
		return m.SetKind(k)
	})
	return k, err
}

// SetCoordinateSystem stores the free-form coordinate system label.
func (r *Registry) SetCoordinateSystem(h Handle, label string) error {
	return r.with(h, func(m *transform.Model) error {
		m.CoordinateSystem = label
		return nil
	})
}

// CoordinateSystem returns the coordinate system label.
func (r *Registry) CoordinateSystem(h Handle) (string, error) {
	var s string
	err := r.with(h, func(m *transform.Model) error {
		s = m.CoordinateSystem
		return nil
	})
	return s, err
}

// SetDescription stores the free-form description.
func (r *Registry) SetDescription(h Handle, text string) error {
	return r.with(h, func(m *transform.Model) error {
		m.Description = text
		return nil
	})
}

// Description returns the free-form description.
func (r *Registry) Description(h Handle) (string, error) {
	var s string
	err := r.with(h, func(m *transform.Model) error {
		s = m.Description
		return nil
	})
	return s, err
}

// SetTolerances sets the Helmert convergence tolerances.
func (r *Registry) SetTolerances(h Handle, angular, linear float64) error {
	return r.with(h, func(m *transform.Model) error {
		if angular <= 0 || linear <= 0 {
			return errors.Wrapf(status.ErrUnsupported, "tolerances must be positive, got %g and %g", angular, linear)
		}
		m.AngularTolerance, m.LinearTolerance = angular, linear
		return nil
	})
}

// CalcCoefficients fits one or both directions.
func (r *Registry) CalcCoefficients(h Handle, dir transform.Direction) (transform.FitInfo, error) {
	var info transform.FitInfo
	err := r.with(h, func(m *transform.Model) error {
		var err error
		info, err = m.Fit(dir)
		if err != nil {
			r.log.Errorf("model %d: %v fit (%v) failed: %v", h, m.Kind(), dir, err)
			return err
		}
		if m.Kind() == transform.KindHelmert {
			r.log.Debugf("model %d: helmert %v fit on %d points, %d iterations, converged=%v",
				h, dir, info.Points, info.Iterations, info.Converged)
		} else {
			r.log.Debugf("model %d: %v %v fit on %d points", h, m.Kind(), dir, info.Points)
		}
		return nil
	})
	return info, err
}

// GetCoefficients returns a copy of both directions.
func (r *Registry) GetCoefficients(h Handle) (transform.CoefficientSet, error) {
	var cs transform.CoefficientSet
	err := r.with(h, func(m *transform.Model) error {
		cs = m.Coefficients()
		return nil
	})
	return cs, err
}

// SetCoefficients assigns coefficients; only matrix models accept them.
func (r *Registry) SetCoefficients(h Handle, cs transform.CoefficientSet) error {
	return r.with(h, func(m *transform.Model) error {
		return m.SetCoefficients(cs)
	})
}

// Residuals records and summarises the misfit of every active pair.
func (r *Registry) Residuals(h Handle, dir transform.Direction) (transform.ResidualReport, error) {
	var rep transform.ResidualReport
	err := r.with(h, func(m *transform.Model) error {
		var err error
		rep, err = m.Residuals(dir)
		return err
	})
	return rep, err
}

// ControlHull is the convex hull of the active points dir maps from: the
// observed points for Direct, the reference points for Inverse.
func (r *Registry) ControlHull(h Handle, dir transform.Direction) (geometry.Hull, error) {
	var hull geometry.Hull
	err := r.with(h, func(m *transform.Model) error {
		if dir == transform.Both {
			return errors.Wrap(status.ErrUnsupported, "control hull of both directions")
		}
		src, _ := m.Points.Active(dir == transform.Inverse)
		hull = geometry.ConvexHull(src)
		return nil
	})
	return hull, err
}

// TransformPoint maps one point.
func (r *Registry) TransformPoint(h Handle, p geometry.Point3D, dir transform.Direction) (geometry.Point3D, error) {
	var out geometry.Point3D
	err := r.with(h, func(m *transform.Model) error {
		var err error
		out, err = m.Transform(dir, p)
		return err
	})
	return out, err
}

// TransformPrep computes the scanline terms for p's row.
func (r *Registry) TransformPrep(h Handle, p geometry.Point3D, dir transform.Direction) (transform.Prepared, error) {
	var pr transform.Prepared
	err := r.with(h, func(m *transform.Model) error {
		var err error
		pr, err = m.Prep(dir, p)
		return err
	})
	return pr, err
}

// TransformFinal maps the point at x on a prepared scanline.
func (r *Registry) TransformFinal(h Handle, x float64, pr transform.Prepared) (geometry.Point3D, error) {
	var out geometry.Point3D
	err := r.with(h, func(m *transform.Model) error {
		var err error
		out, err = m.Final(x, pr)
		return err
	})
	return out, err
}

// TransformScanline maps n points x0 + i*dx of a prepared scanline into out.
func (r *Registry) TransformScanline(h Handle, x0, dx float64, n int, pr transform.Prepared, out []geometry.Point3D) ([]geometry.Point3D, error) {
	err := r.with(h, func(m *transform.Model) error {
		var err error
		out, err = m.Scanline(x0, dx, n, pr, out)
		return err
	})
	return out, err
}

// Point operations act at the store's cursor.

// AppendPoint adds a pair at the end and moves the cursor onto it.
func (r *Registry) AppendPoint(h Handle, p points.Pair) error {
	return r.with(h, func(m *transform.Model) error {
		m.Points.Append(p)
		return nil
	})
}

// InsertPoint adds a pair at the cursor.
func (r *Registry) InsertPoint(h Handle, p points.Pair) error {
	return r.with(h, func(m *transform.Model) error {
		m.Points.Insert(p)
		return nil
	})
}

// DeletePoint removes the pair at the cursor.
func (r *Registry) DeletePoint(h Handle) error {
	return r.with(h, func(m *transform.Model) error {
		return m.Points.Delete()
	})
}

// GetPoint returns the pair at the cursor.
func (r *Registry) GetPoint(h Handle) (points.Pair, error) {
	var p points.Pair
	err := r.with(h, func(m *transform.Model) error {
		var err error
		p, err = m.Points.Get()
		return err
	})
	return p, err
}

// SetPoint replaces the pair at the cursor.
func (r *Registry) SetPoint(h Handle, p points.Pair) error {
	return r.with(h, func(m *transform.Model) error {
		return m.Points.Set(p)
	})
}

// SeekPoint moves the cursor.
func (r *Registry) SeekPoint(h Handle, index int) error {
	return r.with(h, func(m *transform.Model) error {
		return m.Points.Seek(index)
	})
}

// PointCount returns the number of stored pairs.
func (r *Registry) PointCount(h Handle) (int, error) {
	var n int
	err := r.with(h, func(m *transform.Model) error {
		n = m.Points.Len()
		return nil
	})
	return n, err
}

// SetPointActive flags the pair at index as used or ignored by fitting.
func (r *Registry) SetPointActive(h Handle, index int, active bool) error {
	return r.with(h, func(m *transform.Model) error {
		return m.Points.SetActive(index, active)
	})
}
