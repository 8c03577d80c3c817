package resample

import (
	"math"
	"testing"

	"tiepoint/internal/status"

	"golang.org/x/image/draw"
)

func TestCatromWeights(t *testing.T) {
	var weights [4]float64
	for x := 0.0; x < 1.0; x += 0.001 {
		catromWeights(x, weights[:])
		sum := weights[0] + weights[1] + weights[2] + weights[3]
		if math.Abs(sum-1.0) > 1e-12 {
			t.Fatalf("bad weight sum %f at %f, %v", sum, x, weights)
		}
	}
}

func TestKernelsExactAtPixelCentres(t *testing.T) {
	p := testPlane()
	samplers := map[string]Sampler[uint8]{
		"nearest":    Nearest(p),
		"bilinear":   Kernel(p, draw.BiLinear),
		"catmullrom": CatmullRom(p),
		"kernel-cr":  Kernel(p, draw.CatmullRom),
		"lanczos3":   Kernel(p, Lanczos3),
	}
	for name, s := range samplers {
		for y := 0; y < p.Height; y++ {
			for x := 0; x < p.Width; x++ {
				if got, want := s(float64(x)+0.5, float64(y)+0.5, 0), p.At(x, y); got != want {
					t.Errorf("%s at (%d,%d) = %d, want %d", name, x, y, got, want)
				}
			}
		}
	}
}

func TestBilinearMidpoint(t *testing.T) {
	p := testPlane()
	s := Kernel(p, draw.BiLinear)
	// Halfway between (2,2) and (3,3): mean of four corners 76, 79, 106, 109.
	if got := s(3, 3, 0); got != 93 {
		t.Errorf("bilinear midpoint = %d, want 93", got)
	}
}

func TestCatmullRomMatchesKernel(t *testing.T) {
	p := testPlane()
	explicit, viaKernel := CatmullRom(p), Kernel(p, draw.CatmullRom)
	for y := 1.0; y < 5; y += 0.37 {
		for x := 1.0; x < 7; x += 0.41 {
			a, b := int(explicit(x, y, 0)), int(viaKernel(x, y, 0))
			if d := a - b; d < -1 || d > 1 {
				t.Errorf("(%.2f,%.2f): explicit %d, kernel %d", x, y, a, b)
			}
		}
	}
}

func TestToSampleSaturates(t *testing.T) {
	if got := toSample[uint8](300); got != 255 {
		t.Errorf("toSample(300) = %d", got)
	}
	if got := toSample[uint8](-4); got != 0 {
		t.Errorf("toSample(-4) = %d", got)
	}
	if got := toSample[uint16](1234.4); got != 1234 {
		t.Errorf("toSample(1234.4) = %d", got)
	}
}

func TestByName(t *testing.T) {
	p := testPlane()
	for _, name := range KernelNames {
		if _, err := ByName(name, p); err != nil {
			t.Errorf("ByName(%q): %v", name, err)
		}
	}
	if _, err := ByName("sinc", p); status.CodeOf(err) != status.Unsupported {
		t.Errorf("ByName(sinc): %v", err)
	}
}
