package resample

import (
	"math"
	"strings"

	"tiepoint/internal/status"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"
)

// Plane is a whole single-channel image that samplers read from.
type Plane[T Sample] struct {
	Pix    []T
	Stride int
	Width  int
	Height int
}

// NewPlane allocates a zeroed w x h plane.
func NewPlane[T Sample](w, h int) *Plane[T] {
	return &Plane[T]{Pix: make([]T, w*h), Stride: w, Width: w, Height: h}
}

// At returns the pixel at (x, y) with coordinates clamped to the edges.
func (p *Plane[T]) At(x, y int) T {
	x = clampInt(x, 0, p.Width-1)
	y = clampInt(y, 0, p.Height-1)
	return p.Pix[y*p.Stride+x]
}

// Set writes v at (x, y). Out-of-range coordinates are ignored.
func (p *Plane[T]) Set(x, y int, v T) {
	if x < 0 || y < 0 || x >= p.Width || y >= p.Height {
		return
	}
	p.Pix[y*p.Stride+x] = v
}

// Window returns BufferInfo input fields covering the whole plane.
func (p *Plane[T]) Window() BufferInfo[T] {
	return BufferInfo[T]{
		Input: p.Pix, InputStride: p.Stride,
		InputWidth: p.Width, InputHeight: p.Height,
		ImageWidth: p.Width, ImageHeight: p.Height,
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func toSample[T Sample](f float64) T {
	max := float64(MaxValue[T]())
	f = math.Round(f)
	if f <= 0 {
		return 0
	}
	if f >= max {
		return T(max)
	}
	return T(f)
}

// Nearest returns the pixel containing (x, y).
func Nearest[T Sample](p *Plane[T]) Sampler[T] {
	return func(x, y float64, _ int) T {
		return p.At(int(math.Floor(x)), int(math.Floor(y)))
	}
}

// Kernel resamples with a separable filter kernel centred on (x, y). Pixel
// centres sit at integer + 0.5; taps past the edges repeat the edge pixel.
func Kernel[T Sample](p *Plane[T], k *draw.Kernel) Sampler[T] {
	taps := int(math.Ceil(k.Support))*2 + 1
	return func(x, y float64, _ int) T {
		cx, cy := x-0.5, y-0.5
		x0 := int(math.Floor(cx - k.Support))
		y0 := int(math.Floor(cy - k.Support))

		wx := make([]float64, taps)
		var sumX float64
		for i := range wx {
			if t := math.Abs(cx - float64(x0+i)); t < k.Support {
				wx[i] = k.At(t)
				sumX += wx[i]
			}
		}

		var acc, sumY float64
		for j := 0; j < taps; j++ {
			t := math.Abs(cy - float64(y0+j))
			if t >= k.Support {
				continue
			}
			w := k.At(t)
			if w == 0 {
				continue
			}
			var row float64
			for i, wi := range wx {
				if wi != 0 {
					row += wi * float64(p.At(x0+i, y0+j))
				}
			}
			acc += w * row
			sumY += w
		}
		if sumX == 0 || sumY == 0 {
			return p.At(int(math.Floor(x)), int(math.Floor(y)))
		}
		return toSample[T](acc / (sumX * sumY))
	}
}

// CatmullRom is the 4x4 bicubic Catmull-Rom sampler with explicit weights.
// It agrees with Kernel(p, draw.CatmullRom) to rounding.
func CatmullRom[T Sample](p *Plane[T]) Sampler[T] {
	return func(x, y float64, _ int) T {
		cx, cy := x-0.5, y-0.5
		fx, fy := math.Floor(cx), math.Floor(cy)
		ix, iy := int(fx), int(fy)

		var xw, yw [4]float64
		catromWeights(cx-fx, xw[:])
		catromWeights(cy-fy, yw[:])

		var acc float64
		for j := 0; j < 4; j++ {
			var row float64
			for i := 0; i < 4; i++ {
				row += xw[i] * float64(p.At(ix-1+i, iy-1+j))
			}
			acc += yw[j] * row
		}
		return toSample[T](acc)
	}
}

// catromWeights fills the four Catmull-Rom weights for a fractional offset
// x in [0, 1) between the second and third tap.
func catromWeights(x float64, weights []float64) {
	alpha := 1.0 - x
	beta := -0.5 * x * alpha
	weights[0] = alpha * beta
	weights[3] = x * beta
	gamma := weights[3] - weights[0]
	weights[1] = alpha - weights[0] + gamma
	weights[2] = x - weights[3] - gamma
}

// Lanczos3 is a three-lobe Lanczos kernel.
var Lanczos3 = &draw.Kernel{Support: 3, At: func(t float64) float64 {
	if t == 0 {
		return 1
	}
	if t >= 3 {
		return 0
	}
	pt := math.Pi * t
	return 3 * math.Sin(pt) * math.Sin(pt/3) / (pt * pt)
}}

// KernelNames lists the names accepted by ByName.
var KernelNames = []string{"nearest", "bilinear", "catmullrom", "lanczos3"}

// ByName returns the sampler with the given name over p.
func ByName[T Sample](name string, p *Plane[T]) (Sampler[T], error) {
	switch strings.ToLower(name) {
	case "nearest", "":
		return Nearest(p), nil
	case "bilinear":
		return Kernel(p, draw.BiLinear), nil
	case "catmullrom", "bicubic":
		return CatmullRom(p), nil
	case "lanczos3", "lanczos":
		return Kernel(p, Lanczos3), nil
	}
	return nil, errors.Wrapf(status.ErrUnsupported, "unknown resampling kernel %q", name)
}
