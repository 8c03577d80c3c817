package main

import (
	"image"
	"image/color"
	"testing"
)

func TestGreyConversion(t *testing.T) {
	src := image.NewRGBA(image.Rect(2, 3, 5, 5))
	src.Set(2, 3, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	g := toGray(src)
	if g.Bounds() != image.Rect(0, 0, 3, 2) {
		t.Fatalf("bounds %v", g.Bounds())
	}
	if g.GrayAt(0, 0).Y != 255 || g.GrayAt(1, 0).Y != 0 {
		t.Errorf("pixels %v %v", g.GrayAt(0, 0), g.GrayAt(1, 0))
	}
	if g16 := toGray16(src); g16.Gray16At(0, 0).Y != 0xffff {
		t.Errorf("16-bit pixel %v", g16.Gray16At(0, 0))
	}

	if deep(src) || !deep(image.NewGray16(image.Rect(0, 0, 1, 1))) {
		t.Error("deep misclassifies sample depth")
	}
	if firstNonEmpty("", "bilinear", "nearest") != "bilinear" || firstNonEmpty() != "" {
		t.Error("firstNonEmpty")
	}
}
