// Command warptest rectifies an image through the model fitted to a project's
// tie points and writes the result as PNG or PGM.
package main

import (
	"flag"
	"fmt"
	"image"
	"os"
	"strings"

	"tiepoint/internal/config"
	imgio "tiepoint/internal/image"
	"tiepoint/internal/logger"
	"tiepoint/internal/project"
	"tiepoint/internal/registry"
	"tiepoint/internal/resample"
	"tiepoint/internal/transform"
	"tiepoint/internal/version"
	"tiepoint/internal/warp"

	"golang.org/x/image/draw"
)

func main() {
	projectPath := flag.String("p", "", "Path to tie-point project (.tpproj)")
	imagePath := flag.String("i", "", "Input image (default: the project's image)")
	outPath := flag.String("o", "warped.png", "Output image (.png or .pgm)")
	kernel := flag.String("kernel", "", "Resampling kernel: "+strings.Join(resample.KernelNames, ", "))
	pixel := flag.Float64("pixel", 0, "Output pixel size in model units (default: project setting)")
	clip := flag.Bool("clip", false, "Blank pixels outside the convex hull of the tie points")
	configPath := flag.String("config", config.DefaultPath(), "Settings file")
	verbose := flag.Bool("v", false, "Debug logging")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("warptest"))
		return
	}
	if *projectPath == "" {
		fmt.Println("Usage: warptest -p <project.tpproj> [-i <image>] [-o <out.png|out.pgm>] [-kernel <name>] [-pixel <size>]")
		os.Exit(1)
	}

	settings, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load settings: %v\n", err)
		os.Exit(1)
	}
	level := logger.LogInfo
	if *verbose {
		level = logger.LogDebug
	}
	log := logger.NewStdErrLogger(level)

	proj, err := project.Load(*projectPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load project: %v\n", err)
		os.Exit(1)
	}
	if *imagePath == "" {
		*imagePath = proj.GetImagePath(*projectPath)
	}
	if *imagePath == "" {
		fmt.Fprintln(os.Stderr, "No input image: pass -i or set one in the project")
		os.Exit(1)
	}

	opts := warp.Options{
		Direction:  transform.Inverse,
		Kernel:     firstNonEmpty(*kernel, proj.Settings.Kernel, settings.DefaultKernel),
		Background: proj.Settings.Background,
		ClipToHull: *clip,
	}
	pixelSize := *pixel
	if pixelSize <= 0 {
		pixelSize = proj.Settings.PixelSize
	}

	src, err := imgio.Load(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load image: %v\n", err)
		os.Exit(1)
	}
	log.Infof("loaded %s: %dx%d %s, %.0f dpi", src.Path, src.Width(), src.Height(), src.Format, src.DPI)

	reg := registry.New(settings, log)
	defer reg.Shutdown()

	h, err := proj.Build(reg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up model: %v\n", err)
		os.Exit(1)
	}
	if _, err := reg.CalcCoefficients(h, transform.Both); err != nil {
		fmt.Fprintf(os.Stderr, "Fit failed: %v\n", err)
		os.Exit(2)
	}

	opts.Grid, err = warp.Extent(reg, h, src.Width(), src.Height(), pixelSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to compute output extent: %v\n", err)
		os.Exit(2)
	}
	log.Infof("output grid %dx%d at (%.3f, %.3f), pixel %g, kernel %s",
		opts.Grid.Width, opts.Grid.Height, opts.Grid.OriginX, opts.Grid.OriginY, pixelSize, opts.Kernel)

	var out image.Image
	if deep(src.Image) {
		out, err = warp.Gray16(reg, h, toGray16(src.Image), opts)
	} else {
		out, err = warp.Gray(reg, h, toGray(src.Image), opts)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warp failed: %v\n", err)
		os.Exit(2)
	}

	if err := imgio.Save(*outPath, out); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to save %s: %v\n", *outPath, err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s (%dx%d)\n", *outPath, opts.Grid.Width, opts.Grid.Height)
}

func firstNonEmpty(s ...string) string {
	for _, v := range s {
		if v != "" {
			return v
		}
	}
	return ""
}

// deep reports whether img carries more than 8 bits per sample.
func deep(img image.Image) bool {
	switch img.(type) {
	case *image.Gray16, *image.RGBA64, *image.NRGBA64:
		return true
	}
	return false
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

func toGray16(img image.Image) *image.Gray16 {
	if g, ok := img.(*image.Gray16); ok {
		return g
	}
	b := img.Bounds()
	dst := image.NewGray16(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
