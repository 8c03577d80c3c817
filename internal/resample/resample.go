// Package resample turns a scanline of mapped input coordinates into output
// pixels: out-of-image points get the default value, the rest are read from
// the input window or produced by a sampler, then pass through transparency
// substitution, clamping and an optional remap table.
//
// Several specialised loops cover common cases (a covered window, no colour
// processing, constant row or column). Each produces exactly what General
// produces for the same input.
package resample

import (
	"math"

	"tiepoint/internal/status"
	"tiepoint/pkg/geometry"

	"github.com/pkg/errors"
)

// Sample is a single-channel pixel value.
type Sample interface {
	~uint8 | ~uint16
}

// MaxValue returns the largest value of T.
func MaxValue[T Sample]() T {
	var zero T
	return ^zero
}

// Sampler produces a value for an in-image coordinate that is not read
// directly. index is row*ImageWidth + col of the pixel containing (x, y).
// Samplers must be pure: the engine may call them in any order.
type Sampler[T Sample] func(x, y float64, index int) T

// BufferInfo describes the output row and the input window it is resampled
// from. The window is a sub-rectangle of a larger image.
type BufferInfo[T Sample] struct {
	Output []T

	Input       []T
	InputStride int // 0 means InputWidth
	InputX      int
	InputY      int
	InputWidth  int
	InputHeight int

	ImageWidth  int
	ImageHeight int
}

func (b *BufferInfo[T]) stride() int {
	if b.InputStride > 0 {
		return b.InputStride
	}
	return b.InputWidth
}

func (b *BufferInfo[T]) validate(n int) error {
	if len(b.Output) < n {
		return errors.Wrapf(status.ErrUnsupported, "output holds %d pixels, scanline has %d", len(b.Output), n)
	}
	if b.ImageWidth <= 0 || b.ImageHeight <= 0 {
		return errors.Wrapf(status.ErrUnsupported, "image size %dx%d", b.ImageWidth, b.ImageHeight)
	}
	if b.InputWidth == 0 || b.InputHeight == 0 {
		return nil
	}
	if b.InputX < 0 || b.InputY < 0 ||
		b.InputX+b.InputWidth > b.ImageWidth || b.InputY+b.InputHeight > b.ImageHeight {
		return errors.Wrapf(status.ErrUnsupported, "input window %dx%d+%d+%d outside %dx%d image",
			b.InputWidth, b.InputHeight, b.InputX, b.InputY, b.ImageWidth, b.ImageHeight)
	}
	if need := b.stride()*(b.InputHeight-1) + b.InputWidth; len(b.Input) < need {
		return errors.Wrapf(status.ErrUnsupported, "input holds %d samples, window needs %d", len(b.Input), need)
	}
	return nil
}

// inImage is false for NaN and infinite coordinates.
func (b *BufferInfo[T]) inImage(x, y float64) bool {
	return x >= 0 && x < float64(b.ImageWidth) && y >= 0 && y < float64(b.ImageHeight)
}

func (b *BufferInfo[T]) inWindow(col, row int) bool {
	return col >= b.InputX && col < b.InputX+b.InputWidth &&
		row >= b.InputY && row < b.InputY+b.InputHeight
}

func (b *BufferInfo[T]) inWindowF(x, y float64) bool {
	return x >= float64(b.InputX) && x < float64(b.InputX+b.InputWidth) &&
		y >= float64(b.InputY) && y < float64(b.InputY+b.InputHeight)
}

func (b *BufferInfo[T]) offset(col, row int) int {
	return (row-b.InputY)*b.stride() + col - b.InputX
}

// ColorInfo is the per-pixel value policy.
type ColorInfo[T Sample] struct {
	// Default is written for points outside the image, and for points outside
	// the window when there is no Sampler.
	Default T
	Sampler Sampler[T]
	// DirectReads allows taking in-window pixels from BufferInfo.Input.
	DirectReads bool

	Min, Max T
	// Pixels equal to Untouched skip clamping when HasUntouched is set.
	Untouched    T
	HasUntouched bool

	Transparent      []T
	TransparentValue T

	// Remap replaces v with Remap[v] when v < len(Remap).
	Remap []T
}

// NewColorInfo returns a policy that reads directly, clamps to the full range
// of T and does no colour mapping.
func NewColorInfo[T Sample](def T) ColorInfo[T] {
	return ColorInfo[T]{Default: def, DirectReads: true, Max: MaxValue[T]()}
}

func (c *ColorInfo[T]) finish(v T) T {
	for _, t := range c.Transparent {
		if v == t {
			v = c.TransparentValue
			break
		}
	}
	if !c.HasUntouched || v != c.Untouched {
		if v < c.Min {
			v = c.Min
		} else if v > c.Max {
			v = c.Max
		}
	}
	if int(v) < len(c.Remap) {
		v = c.Remap[int(v)]
	}
	return v
}

// Path is the set of conditions that held for one scanline.
type Path uint8

const (
	// HorizontalOnly: every mapped point has the same Y.
	HorizontalOnly Path = 1 << iota
	// VerticalOnly: every mapped point has the same X.
	VerticalOnly
	// Covered: direct reads are allowed and every mapped point is inside the window.
	Covered
	// NoColorMap: no transparent set and no remap table.
	NoColorMap
	// FullRange: the clamp range is the whole range of the sample type.
	FullRange
)

// Has reports whether every bit of q is set.
func (p Path) Has(q Path) bool {
	return p&q == q
}

// Classify computes the path bits of a scanline.
func Classify[T Sample](coords []geometry.Point3D, b *BufferInfo[T], c *ColorInfo[T]) Path {
	var p Path
	if len(c.Transparent) == 0 && len(c.Remap) == 0 {
		p |= NoColorMap
	}
	if c.Min == 0 && c.Max == MaxValue[T]() {
		p |= FullRange
	}
	if len(coords) == 0 {
		return p
	}

	horizontal, vertical := true, true
	covered := c.DirectReads && b.InputWidth > 0 && b.InputHeight > 0
	x0, y0 := coords[0].X, coords[0].Y
	for _, q := range coords {
		// NaN compares unequal, which clears both bits.
		horizontal = horizontal && q.Y == y0
		vertical = vertical && q.X == x0
		covered = covered && b.inWindowF(q.X, q.Y)
	}
	if horizontal {
		p |= HorizontalOnly
	}
	if vertical {
		p |= VerticalOnly
	}
	if covered {
		p |= Covered
	}
	return p
}

const plainCopy = Covered | NoColorMap | FullRange

// Resample writes len(coords) pixels to b.Output and returns the path taken.
func Resample[T Sample](coords []geometry.Point3D, b *BufferInfo[T], c *ColorInfo[T]) (Path, error) {
	if err := b.validate(len(coords)); err != nil {
		return 0, err
	}
	p := Classify(coords, b, c)
	switch {
	case p.Has(plainCopy | HorizontalOnly | VerticalOnly):
		fill(coords, b)
	case p.Has(plainCopy | HorizontalOnly):
		copyRow(coords, b)
	case p.Has(plainCopy | VerticalOnly):
		copyColumn(coords, b)
	case p.Has(plainCopy):
		copyDirect(coords, b)
	case p.Has(Covered):
		directFinish(coords, b, c)
	default:
		general(coords, b, c)
	}
	return p, nil
}

// General resamples through the fully checked loop, ignoring every fast path.
func General[T Sample](coords []geometry.Point3D, b *BufferInfo[T], c *ColorInfo[T]) error {
	if err := b.validate(len(coords)); err != nil {
		return err
	}
	general(coords, b, c)
	return nil
}

func cell(q geometry.Point3D) (int, int) {
	return int(math.Floor(q.X)), int(math.Floor(q.Y))
}

func general[T Sample](coords []geometry.Point3D, b *BufferInfo[T], c *ColorInfo[T]) {
	out := b.Output
	for i, q := range coords {
		if !b.inImage(q.X, q.Y) {
			out[i] = c.Default
			continue
		}
		col, row := cell(q)
		var v T
		switch {
		case c.DirectReads && b.inWindow(col, row):
			v = b.Input[b.offset(col, row)]
		case c.Sampler != nil:
			v = c.Sampler(q.X, q.Y, row*b.ImageWidth+col)
		default:
			out[i] = c.Default
			continue
		}
		out[i] = c.finish(v)
	}
}

func directFinish[T Sample](coords []geometry.Point3D, b *BufferInfo[T], c *ColorInfo[T]) {
	out := b.Output
	for i, q := range coords {
		col, row := cell(q)
		out[i] = c.finish(b.Input[b.offset(col, row)])
	}
}

func copyDirect[T Sample](coords []geometry.Point3D, b *BufferInfo[T]) {
	out := b.Output
	for i, q := range coords {
		col, row := cell(q)
		out[i] = b.Input[b.offset(col, row)]
	}
}

func copyRow[T Sample](coords []geometry.Point3D, b *BufferInfo[T]) {
	_, row := cell(coords[0])
	line := b.Input[b.offset(b.InputX, row):]
	out := b.Output
	for i, q := range coords {
		out[i] = line[int(math.Floor(q.X))-b.InputX]
	}
}

func copyColumn[T Sample](coords []geometry.Point3D, b *BufferInfo[T]) {
	col, _ := cell(coords[0])
	base, stride := b.offset(col, b.InputY), b.stride()
	out := b.Output
	for i, q := range coords {
		out[i] = b.Input[base+(int(math.Floor(q.Y))-b.InputY)*stride]
	}
}

func fill[T Sample](coords []geometry.Point3D, b *BufferInfo[T]) {
	col, row := cell(coords[0])
	v := b.Input[b.offset(col, row)]
	out := b.Output[:len(coords)]
	for i := range out {
		out[i] = v
	}
}
