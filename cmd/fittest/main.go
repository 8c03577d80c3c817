// Command fittest fits a transformation model to the tie points of a project
// and prints the coefficients and per-point residuals.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"tiepoint/internal/config"
	"tiepoint/internal/logger"
	"tiepoint/internal/modeler"
	"tiepoint/internal/project"
	"tiepoint/internal/registry"
	"tiepoint/internal/status"
	"tiepoint/internal/transform"
	"tiepoint/internal/version"
)

func main() {
	projectPath := flag.String("p", "", "Path to tie-point project (.tpproj)")
	model := flag.String("model", "", "Model kind (translation, similarity, helmert, affine, projective, polynomial1-5, spline); default from project")
	dirName := flag.String("dir", "both", "Direction to fit: direct, inverse or both")
	configPath := flag.String("config", config.DefaultPath(), "Settings file")
	verbose := flag.Bool("v", false, "Debug logging")
	save := flag.Bool("save", false, "Write residuals back into the project")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("fittest"))
		return
	}
	if *projectPath == "" {
		fmt.Println("Usage: fittest -p <project.tpproj> [-model <kind>] [-dir direct|inverse|both] [-save]")
		os.Exit(1)
	}

	settings, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load settings: %v\n", err)
		os.Exit(1)
	}
	level, err := logger.ParseLevel(settings.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if *verbose {
		level = logger.LogDebug
	}
	log := logger.NewStdErrLogger(level)

	dir, err := parseDirection(*dirName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	proj, err := project.Load(*projectPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load project: %v\n", err)
		os.Exit(1)
	}
	if *model != "" {
		proj.Model = *model
	}

	reg := registry.New(settings, log)
	defer reg.Shutdown()

	h, err := proj.Build(reg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up model: %v\n", err)
		os.Exit(1)
	}
	kind, _ := reg.Kind(h)
	fmt.Printf("=== %s: %d tie points, %s model ===\n", proj.Name, len(proj.Points), kind)

	info, err := reg.CalcCoefficients(h, dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fit failed (%s): %v\n", status.CodeOf(err), err)
		os.Exit(2)
	}
	if kind == transform.KindHelmert {
		fmt.Printf("Helmert: %d iterations, converged=%v\n", info.Iterations, info.Converged)
	}

	cs, _ := reg.GetCoefficients(h)
	for _, d := range directions(dir) {
		c := cs.Direct
		if d == transform.Inverse {
			c = cs.Inverse
		}
		fmt.Printf("\n=== %s coefficients ===\n", d)
		printCoefficients(kind, &c)

		rep, err := reg.Residuals(h, d)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Residuals failed: %v\n", err)
			os.Exit(2)
		}
		printResiduals(rep)
		if hull, err := reg.ControlHull(h, d); err == nil {
			b := hull.Bounds()
			fmt.Printf("Control hull: %d vertices, area %.3f, bounds %.3fx%.3f\n", len(hull), hull.Area(), b.Width, b.Height)
		}
	}

	if *save {
		if err := proj.CaptureResiduals(reg, h); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to record residuals: %v\n", err)
			os.Exit(1)
		}
		if err := proj.Save(*projectPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to save project: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nSaved residuals to %s\n", *projectPath)
	}
}

func parseDirection(s string) (transform.Direction, error) {
	switch strings.ToLower(s) {
	case "direct":
		return transform.Direct, nil
	case "inverse":
		return transform.Inverse, nil
	case "both":
		return transform.Both, nil
	}
	return transform.Direct, fmt.Errorf("unknown direction %q", s)
}

func directions(d transform.Direction) []transform.Direction {
	if d == transform.Both {
		return []transform.Direction{transform.Direct, transform.Inverse}
	}
	return []transform.Direction{d}
}

func printCoefficients(kind transform.Kind, c *transform.Coefficients) {
	fmt.Printf("Origin: (%.6f, %.6f)\n", c.Origin.X, c.Origin.Y)
	for axis, name := range []string{"X", "Y", "Z"} {
		if c.Count[axis] == 0 {
			continue
		}
		fmt.Printf("%s:", name)
		for _, v := range c.Terms[axis][:c.Count[axis]] {
			fmt.Printf(" %.9g", v)
		}
		fmt.Println()
	}
	if n := c.Spline.Len(); n > 0 {
		fmt.Printf("Radial terms: %d\n", n)
	}

	switch kind {
	case transform.KindTranslation, transform.KindSimilarity, transform.KindHelmert,
		transform.KindAffine, transform.KindPolynomial1, transform.KindMatrix:
		a := transform.AffineOf(c)
		fmt.Printf("Affine: [%.6f %.6f %.4f; %.6f %.6f %.4f]\n", a.A, a.B, a.TX, a.C, a.D, a.TY)
		fmt.Printf("Rotation: %.4f°  Determinant: %.6f\n", modeler.Degrees(transform.Angle(c)), a.Determinant())
	}
}

func printResiduals(rep transform.ResidualReport) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "#\tdX\tdY\t|d|\t")
	for _, r := range rep.Points {
		fmt.Fprintf(w, "%d\t%.4f\t%.4f\t%.4f\t\n", r.Index, r.DX, r.DY, r.Distance())
	}
	_ = w.Flush()
	fmt.Printf("RMS: %.4f  Max: %.4f\n", rep.RMS, rep.Max)
}
