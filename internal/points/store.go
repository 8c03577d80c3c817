// Package points holds the ordered control-point store each model owns.
package points

import (
	"fmt"

	"tiepoint/pkg/geometry"
)

// Pair is one tie point: the same feature seen in the observed (uncorrected)
// space and in the reference space.
type Pair struct {
	Observed  geometry.Point3D `json:"observed"`
	Reference geometry.Point3D `json:"reference"`
	Active    bool             `json:"active"`

	// Residuals are filled in by diagnostics after a fit; solvers ignore them.
	ResidualX float64 `json:"residual_x,omitempty"`
	ResidualY float64 `json:"residual_y,omitempty"`
}

// NewPair returns an active pair.
func NewPair(observed, reference geometry.Point3D) Pair {
	return Pair{Observed: observed, Reference: reference, Active: true}
}

// Store is an ordered list of pairs with a cursor. Insert, Delete, Get and Set
// operate at the cursor; Append adds at the end and moves the cursor there.
type Store struct {
	pairs  []Pair
	cursor int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Len returns the number of pairs, active or not.
func (s *Store) Len() int {
	return len(s.pairs)
}

// Cursor returns the current position.
func (s *Store) Cursor() int {
	return s.cursor
}

// Seek moves the cursor. Index Len() is allowed so Insert can append.
func (s *Store) Seek(index int) error {
	if index < 0 || index > len(s.pairs) {
		return fmt.Errorf("cursor %d out of range [0,%d]", index, len(s.pairs))
	}
	s.cursor = index
	return nil
}

// Append adds p at the end and leaves the cursor on it.
func (s *Store) Append(p Pair) {
	s.pairs = append(s.pairs, p)
	s.cursor = len(s.pairs) - 1
}

// Insert places p at the cursor, shifting later pairs back. The cursor stays on p.
func (s *Store) Insert(p Pair) {
	s.pairs = append(s.pairs, Pair{})
	copy(s.pairs[s.cursor+1:], s.pairs[s.cursor:])
	s.pairs[s.cursor] = p
}

// Delete removes the pair at the cursor. The cursor then refers to the pair
// that followed it, or the new last pair.
func (s *Store) Delete() error {
	if s.cursor >= len(s.pairs) {
		return fmt.Errorf("no pair at cursor %d", s.cursor)
	}
	s.pairs = append(s.pairs[:s.cursor], s.pairs[s.cursor+1:]...)
	if s.cursor >= len(s.pairs) && s.cursor > 0 {
		s.cursor = len(s.pairs) - 1
	}
	return nil
}

// Get returns the pair at the cursor.
func (s *Store) Get() (Pair, error) {
	if s.cursor >= len(s.pairs) {
		return Pair{}, fmt.Errorf("no pair at cursor %d", s.cursor)
	}
	return s.pairs[s.cursor], nil
}

// Set replaces the pair at the cursor.
func (s *Store) Set(p Pair) error {
	if s.cursor >= len(s.pairs) {
		return fmt.Errorf("no pair at cursor %d", s.cursor)
	}
	s.pairs[s.cursor] = p
	return nil
}

// At returns pair i without moving the cursor.
func (s *Store) At(i int) Pair {
	return s.pairs[i]
}

// SetActive flags pair i as used or ignored by fitting.
func (s *Store) SetActive(i int, active bool) error {
	if i < 0 || i >= len(s.pairs) {
		return fmt.Errorf("no pair %d of %d", i, len(s.pairs))
	}
	s.pairs[i].Active = active
	return nil
}

// SetResidual records the fit residual for pair i.
func (s *Store) SetResidual(i int, dx, dy float64) {
	s.pairs[i].ResidualX = dx
	s.pairs[i].ResidualY = dy
}

// Clear removes every pair.
func (s *Store) Clear() {
	s.pairs = nil
	s.cursor = 0
}

// ActiveCount returns how many pairs take part in fitting.
func (s *Store) ActiveCount() int {
	n := 0
	for _, p := range s.pairs {
		if p.Active {
			n++
		}
	}
	return n
}

// EachActive calls fn with the store index and pair of every active pair, in order.
func (s *Store) EachActive(fn func(i int, p Pair)) {
	for i, p := range s.pairs {
		if p.Active {
			fn(i, p)
		}
	}
}

// Active returns the observed and reference coordinates of the active pairs.
// With swap set the roles are exchanged, which is how inverse fits are built.
func (s *Store) Active(swap bool) (src, dst []geometry.Point3D) {
	n := s.ActiveCount()
	src = make([]geometry.Point3D, 0, n)
	dst = make([]geometry.Point3D, 0, n)
	s.EachActive(func(_ int, p Pair) {
		if swap {
			src = append(src, p.Reference)
			dst = append(dst, p.Observed)
		} else {
			src = append(src, p.Observed)
			dst = append(dst, p.Reference)
		}
	})
	return src, dst
}

// Centered is a mean-centred copy of a set of active coordinates.
type Centered struct {
	Points []geometry.Point3D
	Mean   geometry.Point3D
}

// Center subtracts the running mean from a copy of pts.
func Center(pts []geometry.Point3D) Centered {
	mean := geometry.Centroid(pts)
	out := make([]geometry.Point3D, len(pts))
	for i, p := range pts {
		out[i] = p.Sub(mean)
	}
	return Centered{Points: out, Mean: mean}
}
