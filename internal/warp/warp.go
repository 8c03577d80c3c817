// Package warp resamples whole images through a fitted model, one output
// row at a time.
package warp

import (
	"encoding/binary"
	"image"
	"math"
	"strings"

	"tiepoint/internal/registry"
	"tiepoint/internal/resample"
	"tiepoint/internal/status"
	"tiepoint/internal/transform"
	"tiepoint/pkg/geometry"

	"github.com/pkg/errors"
)

// Grid places the output raster in model coordinates. The centre of output
// pixel (i, j) is (OriginX + (i+0.5)*PixelSizeX, OriginY + (j+0.5)*PixelSizeY).
type Grid struct {
	Width, Height          int
	OriginX, OriginY       float64
	PixelSizeX, PixelSizeY float64
}

// Options controls a warp.
type Options struct {
	Grid Grid
	// Direction maps output coordinates to input pixel coordinates,
	// normally transform.Inverse.
	Direction transform.Direction
	// Kernel is a resample.ByName kernel name.
	Kernel string
	// Background fills output pixels that map outside the input, in the
	// sample range of the image (saturated to 255 for 8-bit images).
	Background uint16
	// ClipToHull fills output pixels whose centre lies outside the convex
	// hull of the control points with Background instead of extrapolating.
	ClipToHull bool
}

// Extent maps the corners of a w x h input through the direct model and
// returns a grid covering them at the given pixel size.
func Extent(r *registry.Registry, h registry.Handle, w, hgt int, pixelSize float64) (Grid, error) {
	if pixelSize <= 0 {
		return Grid{}, errors.Wrapf(status.ErrUnsupported, "pixel size %g", pixelSize)
	}
	corners := []geometry.Point3D{
		geometry.NewPoint3D(0, 0, 0), geometry.NewPoint3D(float64(w), 0, 0),
		geometry.NewPoint3D(0, float64(hgt), 0), geometry.NewPoint3D(float64(w), float64(hgt), 0),
	}
	for i, c := range corners {
		p, err := r.TransformPoint(h, c, transform.Direct)
		if err != nil {
			return Grid{}, err
		}
		corners[i] = p
	}
	box := geometry.BoundingBox(corners)
	return Grid{
		Width:      int(math.Ceil(box.Width / pixelSize)),
		Height:     int(math.Ceil(box.Height / pixelSize)),
		OriginX:    box.X,
		OriginY:    box.Y,
		PixelSizeX: pixelSize,
		PixelSizeY: pixelSize,
	}, nil
}

// Gray warps an 8-bit image.
func Gray(r *registry.Registry, h registry.Handle, src *image.Gray, opts Options) (*image.Gray, error) {
	b := src.Bounds()
	in := &resample.Plane[uint8]{
		Pix:    src.Pix[src.PixOffset(b.Min.X, b.Min.Y):],
		Stride: src.Stride,
		Width:  b.Dx(),
		Height: b.Dy(),
	}
	out, err := Plane(r, h, in, uint8(min(opts.Background, 255)), opts)
	if err != nil {
		return nil, err
	}
	return &image.Gray{Pix: out.Pix, Stride: out.Stride, Rect: image.Rect(0, 0, out.Width, out.Height)}, nil
}

// Gray16 warps a 16-bit image.
func Gray16(r *registry.Registry, h registry.Handle, src *image.Gray16, opts Options) (*image.Gray16, error) {
	b := src.Bounds()
	in := resample.NewPlane[uint16](b.Dx(), b.Dy())
	for y := 0; y < in.Height; y++ {
		row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := 0; x < in.Width; x++ {
			in.Pix[y*in.Stride+x] = binary.BigEndian.Uint16(row[2*x:])
		}
	}
	out, err := Plane(r, h, in, opts.Background, opts)
	if err != nil {
		return nil, err
	}
	dst := image.NewGray16(image.Rect(0, 0, out.Width, out.Height))
	for y := 0; y < out.Height; y++ {
		row := dst.Pix[y*dst.Stride:]
		for x := 0; x < out.Width; x++ {
			binary.BigEndian.PutUint16(row[2*x:], out.Pix[y*out.Stride+x])
		}
	}
	return dst, nil
}

// Plane warps a single-channel plane onto opts.Grid.
func Plane[T resample.Sample](r *registry.Registry, h registry.Handle, in *resample.Plane[T], background T, opts Options) (*resample.Plane[T], error) {
	g := opts.Grid
	if g.Width <= 0 || g.Height <= 0 {
		return nil, errors.Wrapf(status.ErrUnsupported, "output grid %dx%d", g.Width, g.Height)
	}
	sampler, err := resample.ByName(opts.Kernel, in)
	if err != nil {
		return nil, err
	}
	color := resample.NewColorInfo(background)
	color.Sampler = sampler
	// Reading the containing pixel is exactly what nearest does.
	k := strings.ToLower(opts.Kernel)
	color.DirectReads = k == "" || k == "nearest"

	var hull geometry.Hull
	if opts.ClipToHull {
		if hull, err = r.ControlHull(h, opts.Direction); err != nil {
			return nil, err
		}
	}

	out := resample.NewPlane[T](g.Width, g.Height)
	buf := in.Window()
	x0 := g.OriginX + 0.5*g.PixelSizeX
	for j := 0; j < g.Height; j++ {
		y := g.OriginY + (float64(j)+0.5)*g.PixelSizeY
		pr, err := r.TransformPrep(h, geometry.NewPoint3D(x0, y, 0), opts.Direction)
		if err != nil {
			return nil, err
		}
		buf.Output = out.Pix[j*out.Stride : j*out.Stride+g.Width]
		if _, err := registry.ResampleScanline(r, h, opts.Direction, x0, g.PixelSizeX, g.Width, pr, &buf, &color); err != nil {
			return nil, errors.Wrapf(err, "row %d", j)
		}
		if opts.ClipToHull {
			for i := range buf.Output {
				if !hull.Contains(geometry.Point2D{X: x0 + float64(i)*g.PixelSizeX, Y: y}) {
					buf.Output[i] = background
				}
			}
		}
	}
	return out, nil
}
