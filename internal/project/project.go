// Package project provides tie-point project file handling and persistence.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tiepoint/internal/points"
	"tiepoint/internal/registry"
	"tiepoint/internal/transform"
)

// CurrentVersion is written by Save.
const CurrentVersion = 1

// File is a tie-point project (.tpproj): a set of control points plus the
// model and warp choices made for them.
type File struct {
	Version          int       `json:"version"`
	Name             string    `json:"name"`
	Created          time.Time `json:"created"`
	Modified         time.Time `json:"modified"`
	Description      string    `json:"description,omitempty"`
	CoordinateSystem string    `json:"coordinate_system,omitempty"`

	// Model is a transform kind name; empty picks one from the point count.
	Model string `json:"model,omitempty"`

	// Image path (relative to project file)
	ImagePath string `json:"image,omitempty"`

	Points []points.Pair `json:"points"`

	Settings Settings `json:"settings,omitempty"`
}

// Settings holds the warp preferences for the project.
type Settings struct {
	PixelSize  float64 `json:"pixel_size,omitempty"`
	Kernel     string  `json:"kernel,omitempty"`
	Background uint16  `json:"background,omitempty"`
}

// New creates a new project file with default settings.
func New(name string) *File {
	now := time.Now()
	return &File{
		Version:  CurrentVersion,
		Name:     name,
		Created:  now,
		Modified: now,
		Settings: Settings{PixelSize: 1, Kernel: "nearest"},
	}
}

// Load loads a project from a .tpproj file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	proj := New("")
	if err := json.Unmarshal(data, proj); err != nil {
		return nil, fmt.Errorf("failed to parse project %s: %w", path, err)
	}
	if proj.Version > CurrentVersion {
		return nil, fmt.Errorf("project %s has version %d, newest supported is %d", path, proj.Version, CurrentVersion)
	}
	if proj.Model != "" {
		if _, err := transform.ParseKind(proj.Model); err != nil {
			return nil, fmt.Errorf("project %s: %w", path, err)
		}
	}
	return proj, nil
}

// Save saves the project to a file.
func (p *File) Save(path string) error {
	p.Version = CurrentVersion
	p.Modified = time.Now()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// SetImage sets the image path (relative to project).
func (p *File) SetImage(projectPath, imagePath string) {
	rel, err := filepath.Rel(filepath.Dir(projectPath), imagePath)
	if err != nil {
		p.ImagePath = imagePath
	} else {
		p.ImagePath = rel
	}
	p.Modified = time.Now()
}

// GetImagePath returns the absolute path to the image.
func (p *File) GetImagePath(projectPath string) string {
	if p.ImagePath == "" {
		return ""
	}
	if filepath.IsAbs(p.ImagePath) {
		return p.ImagePath
	}
	return filepath.Join(filepath.Dir(projectPath), p.ImagePath)
}

// Kind resolves the model kind, choosing the default for the active point
// count when none is named.
func (p *File) Kind() (transform.Kind, error) {
	if p.Model != "" {
		return transform.ParseKind(p.Model)
	}
	n := 0
	for _, pt := range p.Points {
		if pt.Active {
			n++
		}
	}
	return transform.DefaultKindFor(n)
}

// Build creates a model in r holding the project's points, labels and kind.
func (p *File) Build(r *registry.Registry) (registry.Handle, error) {
	kind, err := p.Kind()
	if err != nil {
		return registry.NoHandle, err
	}
	h, err := r.CreateModel()
	if err != nil {
		return registry.NoHandle, err
	}
	for _, pt := range p.Points {
		if err := r.AppendPoint(h, pt); err != nil {
			return h, err
		}
	}
	if err := r.SetDescription(h, p.Description); err != nil {
		return h, err
	}
	if err := r.SetCoordinateSystem(h, p.CoordinateSystem); err != nil {
		return h, err
	}
	return h, r.SetKind(h, kind)
}

// CaptureResiduals copies the residuals recorded on model h back into the
// project's points.
func (p *File) CaptureResiduals(r *registry.Registry, h registry.Handle) error {
	m, err := r.Model(h)
	if err != nil {
		return err
	}
	if m.Points.Len() != len(p.Points) {
		return fmt.Errorf("model has %d points, project %d", m.Points.Len(), len(p.Points))
	}
	for i := range p.Points {
		got := m.Points.At(i)
		p.Points[i].ResidualX, p.Points[i].ResidualY = got.ResidualX, got.ResidualY
	}
	p.Modified = time.Now()
	return nil
}
