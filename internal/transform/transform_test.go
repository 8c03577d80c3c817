package transform

import (
	"math"
	"testing"

	"tiepoint/internal/config"
	"tiepoint/internal/points"
	"tiepoint/internal/status"
	"tiepoint/pkg/geometry"
)

func pt(x, y float64) geometry.Point3D {
	return geometry.NewPoint3D(x, y, 0)
}

func affineMap(p geometry.Point3D) geometry.Point3D {
	return geometry.NewPoint3D(2+1.1*p.X-0.2*p.Y, -3+0.3*p.X+0.9*p.Y, p.Z)
}

func perspectiveMap(p geometry.Point3D) geometry.Point3D {
	den := 1 + 0.004*p.X + 0.002*p.Y
	return geometry.NewPoint3D((5+0.9*p.X+0.1*p.Y)/den, (-2-0.2*p.X+1.05*p.Y)/den, p.Z)
}

func rigidMap(p geometry.Point3D) geometry.Point3D {
	s, c := math.Sincos(0.3)
	return geometry.NewPoint3D(c*p.X-s*p.Y+5, s*p.X+c*p.Y-2, p.Z)
}

func similarityMap(p geometry.Point3D) geometry.Point3D {
	s, c := math.Sincos(-0.7)
	return geometry.NewPoint3D(1.5*(c*p.X-s*p.Y)+40, 1.5*(s*p.X+c*p.Y)+7, p.Z)
}

var spread = []geometry.Point3D{
	pt(0, 0), pt(10, 1), pt(3, 12), pt(11, 9), pt(6, 5),
	pt(1, 7), pt(8, 3), pt(4, 10), pt(12, 12), pt(2, 4),
}

func grid(n int, step float64) []geometry.Point3D {
	var out []geometry.Point3D
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out = append(out, pt(float64(i)*step, float64(j)*step+0.5*float64(i)))
		}
	}
	return out
}

func newModel(t *testing.T, k Kind, src []geometry.Point3D, f func(geometry.Point3D) geometry.Point3D) *Model {
	t.Helper()
	m := NewModel(config.Default())
	for _, s := range src {
		m.Points.Append(points.NewPair(s, f(s)))
	}
	if err := m.SetKind(k); err != nil {
		t.Fatalf("SetKind(%v): %v", k, err)
	}
	return m
}

func fitted(t *testing.T, k Kind, src []geometry.Point3D, f func(geometry.Point3D) geometry.Point3D) *Model {
	t.Helper()
	m := newModel(t, k, src, f)
	if _, err := m.Fit(Both); err != nil {
		t.Fatalf("Fit(%v): %v", k, err)
	}
	return m
}

func near(a, b geometry.Point3D, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol
}

func TestTranslationIdentity(t *testing.T) {
	m := NewModel(config.Default())
	m.Points.Append(points.NewPair(pt(10, 10), pt(13, 14)))
	if err := m.SetKind(KindTranslation); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Fit(Both); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	c := m.Coefficients()
	if c.Direct.Terms[0][0] != 3 || c.Direct.Terms[1][0] != 4 {
		t.Errorf("direct offsets = (%v, %v), want (3, 4)", c.Direct.Terms[0][0], c.Direct.Terms[1][0])
	}
	got, _ := m.Transform(Direct, pt(10, 10))
	if got != pt(13, 14) {
		t.Errorf("direct (10,10) = %v, want (13,14)", got)
	}
	got, _ = m.Transform(Inverse, pt(13, 14))
	if got != pt(10, 10) {
		t.Errorf("inverse (13,14) = %v, want (10,10)", got)
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		src  []geometry.Point3D
		f    func(geometry.Point3D) geometry.Point3D
		tol  float64
	}{
		{"translation", KindTranslation, spread[:1], affineMap, 1e-9},
		{"similarity", KindSimilarity, spread, similarityMap, 1e-6},
		{"helmert", KindHelmert, spread[:3], rigidMap, 1e-3},
		{"affine", KindAffine, spread, affineMap, 1e-6},
		{"projective", KindProjective, spread, perspectiveMap, 1e-6},
		{"polynomial1", KindPolynomial1, spread, affineMap, 1e-6},
		{"polynomial2", KindPolynomial2, spread, affineMap, 1e-6},
		{"polynomial3", KindPolynomial3, grid(4, 7), affineMap, 1e-6},
		{"polynomial4", KindPolynomial4, grid(5, 6), affineMap, 1e-4},
		{"polynomial5", KindPolynomial5, grid(6, 5), affineMap, 1e-4},
		{"spline", KindSpline, spread, affineMap, 1e-6},
	}
	samples := []geometry.Point3D{pt(5, 5), pt(2.5, 9.25), pt(11, 0.5)}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := fitted(t, tt.kind, tt.src, tt.f)
			for _, p := range samples {
				fwd, err := m.Transform(Direct, p)
				if err != nil {
					t.Fatalf("direct: %v", err)
				}
				back, err := m.Transform(Inverse, fwd)
				if err != nil {
					t.Fatalf("inverse: %v", err)
				}
				if !near(back, p, tt.tol) {
					t.Errorf("%v -> %v -> %v", p, fwd, back)
				}
			}
		})
	}
}

func TestExactInterpolation(t *testing.T) {
	warp := func(p geometry.Point3D) geometry.Point3D {
		return geometry.NewPoint3D(p.X+0.05*p.X*p.Y, p.Y-0.03*p.X*p.X+1, 0)
	}
	tests := []struct {
		name string
		kind Kind
		src  []geometry.Point3D
		f    func(geometry.Point3D) geometry.Point3D
	}{
		{"similarity", KindSimilarity, spread[:2], warp},
		{"affine", KindAffine, spread[:3], warp},
		{"projective", KindProjective, spread[:4], warp},
		{"polynomial2", KindPolynomial2, spread[:5], warp},
		{"polynomial3", KindPolynomial3, spread[:9], warp},
		{"spline", KindSpline, spread, warp},
		{"spline-perspective", KindSpline, grid(4, 9), perspectiveMap},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := fitted(t, tt.kind, tt.src, tt.f)
			for _, s := range tt.src {
				got, err := m.Transform(Direct, s)
				if err != nil {
					t.Fatal(err)
				}
				if want := tt.f(s); !near(got, want, 1e-6) {
					t.Errorf("%v maps to %v, want %v", s, got, want)
				}
			}
		})
	}
}

func TestDegenerateInputs(t *testing.T) {
	collinear := []geometry.Point3D{pt(0, 0), pt(1, 2), pt(2, 4), pt(3, 6)}
	same := []geometry.Point3D{pt(5, 5), pt(5, 5)}
	duplicated := append([]geometry.Point3D{pt(0, 0)}, spread[:5]...)

	tests := []struct {
		name string
		kind Kind
		src  []geometry.Point3D
		want status.Code
	}{
		{"translation-empty", KindTranslation, nil, status.InsufficientPoints},
		{"affine-two", KindAffine, spread[:2], status.InsufficientPoints},
		{"projective-three", KindProjective, spread[:3], status.InsufficientPoints},
		{"polynomial2-four", KindPolynomial2, spread[:4], status.InsufficientPoints},
		{"polynomial3-eight", KindPolynomial3, spread[:8], status.InsufficientPoints},
		{"spline-three", KindSpline, spread[:3], status.InsufficientPoints},
		{"similarity-coincident", KindSimilarity, same, status.SingularSystem},
		{"helmert-coincident", KindHelmert, same, status.SingularSystem},
		{"affine-collinear", KindAffine, collinear[:3], status.SingularSystem},
		{"projective-collinear", KindProjective, collinear, status.SingularSystem},
		{"spline-duplicate", KindSpline, duplicated, status.DegenerateControlPoints},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newModel(t, tt.kind, tt.src, affineMap)
			_, err := m.Fit(Direct)
			if got := status.CodeOf(err); got != tt.want {
				t.Errorf("Fit error %v (%v), want %v", err, got, tt.want)
			}
		})
	}
}

func TestPolynomialZeroOrderIsMean(t *testing.T) {
	square := func(p geometry.Point3D) geometry.Point3D {
		return geometry.NewPoint3D(p.X*p.X, p.Y*p.Y, 0)
	}
	for degree := 1; degree <= MaxPolynomialDegree; degree++ {
		k, _ := PolynomialKind(degree)
		f, _ := Lookup(k)
		if got, want := f.Meta().MinPoints, degree*(degree+3)/2; got != want {
			t.Errorf("degree %d needs %d points, want %d", degree, got, want)
		}
	}

	src := spread[:8]
	m := newModel(t, KindPolynomial2, src, square)
	if _, err := m.Fit(Direct); err != nil {
		t.Fatal(err)
	}
	var dst []geometry.Point3D
	for _, s := range src {
		dst = append(dst, square(s))
	}
	mean := geometry.Centroid(dst)
	c := m.Coefficients().Direct
	if c.Terms[0][0] != mean.X || c.Terms[1][0] != mean.Y {
		t.Errorf("zero-order terms (%v, %v), want destination mean (%v, %v)",
			c.Terms[0][0], c.Terms[1][0], mean.X, mean.Y)
	}
	if c.Count[0] != TermCount(2) {
		t.Errorf("Count = %v", c.Count)
	}
}

func TestSplineDuplicateDestination(t *testing.T) {
	collapse := func(p geometry.Point3D) geometry.Point3D {
		if p.X == 10 {
			return pt(0, 0)
		}
		return p
	}
	m := newModel(t, KindSpline, spread[:5], collapse)
	_, err := m.Fit(Direct)
	if status.CodeOf(err) != status.DegenerateControlPoints {
		t.Errorf("got %v, want degenerate control points", err)
	}
}

func TestFailedFitKeepsCoefficients(t *testing.T) {
	m := fitted(t, KindAffine, spread[:3], affineMap)
	before := m.Coefficients()

	for i := 0; i < 3; i++ {
		if err := m.Points.Seek(i); err != nil {
			t.Fatal(err)
		}
		p, _ := m.Points.Get()
		p.Active = i == 0
		if err := m.Points.Set(p); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := m.Fit(Both); status.CodeOf(err) != status.InsufficientPoints {
		t.Fatalf("Fit = %v, want insufficient points", err)
	}
	if after := m.Coefficients(); after.Direct != before.Direct || after.Inverse != before.Inverse {
		t.Errorf("coefficients changed after failed fit")
	}
}

func TestScanlineMatchesPointTransform(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		src  []geometry.Point3D
		f    func(geometry.Point3D) geometry.Point3D
	}{
		{"translation", KindTranslation, spread, affineMap},
		{"similarity", KindSimilarity, spread, similarityMap},
		{"helmert", KindHelmert, spread, rigidMap},
		{"affine", KindAffine, spread, affineMap},
		{"projective", KindProjective, spread, perspectiveMap},
		{"polynomial3", KindPolynomial3, grid(4, 7), perspectiveMap},
		{"polynomial5", KindPolynomial5, grid(6, 5), perspectiveMap},
		{"spline", KindSpline, spread, perspectiveMap},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := fitted(t, tt.kind, tt.src, tt.f)
			for _, dir := range []Direction{Direct, Inverse} {
				const x0, dx, y, n = -2.0, 0.75, 3.5, 17
				pr, err := m.Prep(dir, pt(x0, y))
				if err != nil {
					t.Fatal(err)
				}
				line, err := m.Scanline(x0, dx, n, pr, nil)
				if err != nil {
					t.Fatal(err)
				}
				for i, got := range line {
					want, _ := m.Transform(dir, pt(x0+float64(i)*dx, y))
					if got != want {
						t.Errorf("%v pixel %d: scanline %v, point %v", dir, i, got, want)
					}
					single, _ := m.Final(x0+float64(i)*dx, pr)
					if single != want {
						t.Errorf("%v pixel %d: final %v, point %v", dir, i, single, want)
					}
				}
			}
		})
	}
}

func TestScanlineNegativeLength(t *testing.T) {
	m := fitted(t, KindAffine, spread, affineMap)
	pr, err := m.Prep(Direct, pt(0, 1))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Scanline(0, 1, -1, pr, nil); status.CodeOf(err) != status.Unsupported {
		t.Errorf("n = -1: %v", err)
	}
	if out := DoScanline(m.family, &m.coef.Direct, 0, 1, -3, pr, nil); len(out) != 0 {
		t.Errorf("DoScanline(n = -3) = %v", out)
	}
}

func TestHelmertConvergence(t *testing.T) {
	m := newModel(t, KindHelmert, []geometry.Point3D{pt(100, 200), pt(340, -15)}, rigidMap)
	info, err := m.Fit(Direct)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if info.Iterations < 1 || info.Iterations > config.Default().HelmertMaxIterations {
		t.Errorf("iterations = %d", info.Iterations)
	}
	if !info.Converged {
		t.Errorf("rigid data should converge")
	}
	for _, s := range []geometry.Point3D{pt(100, 200), pt(340, -15)} {
		got, _ := m.Transform(Direct, s)
		if !near(got, rigidMap(s), 1e-6) {
			t.Errorf("%v maps to %v, want %v", s, got, rigidMap(s))
		}
	}
	c := m.Coefficients()
	if a := Angle(&c.Direct); math.Abs(a-0.3) > 1e-9 {
		t.Errorf("angle = %v, want 0.3", a)
	}
}

func TestHelmertStopsAtIterationCap(t *testing.T) {
	s := config.Default()
	s.HelmertMaxIterations = 1
	m := NewModel(s)
	// Sheared data has no exact rigid solution and the first-point angle is off,
	// so one step cannot satisfy the tolerances.
	for _, p := range spread[:4] {
		m.Points.Append(points.NewPair(p, affineMap(p)))
	}
	if err := m.SetKind(KindHelmert); err != nil {
		t.Fatal(err)
	}
	info, err := m.Fit(Direct)
	if err != nil {
		t.Fatalf("hitting the cap must not be an error: %v", err)
	}
	if info.Iterations != 1 || info.Converged {
		t.Errorf("info = %+v", info)
	}
}

func TestMatrixModel(t *testing.T) {
	m := NewModel(config.Default())
	if err := m.SetKind(KindMatrix); err != nil {
		t.Fatal(err)
	}
	// identity until assigned
	if _, err := m.Fit(Both); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if got, _ := m.Transform(Inverse, pt(3, 4)); got != pt(3, 4) {
		t.Errorf("identity inverse = %v", got)
	}

	tr := geometry.AffineTransform{A: 2, B: 0.5, TX: 10, C: -0.25, D: 1.5, TY: -4}
	if err := m.SetCoefficients(CoefficientSet{Direct: MatrixCoefficients(tr)}); err != nil {
		t.Fatalf("SetCoefficients: %v", err)
	}
	if _, err := m.Fit(Inverse); err != nil {
		t.Fatalf("Fit inverse: %v", err)
	}
	p := pt(7, -3)
	fwd, _ := m.Transform(Direct, p)
	if !near(fwd, tr.Apply(p), 1e-12) {
		t.Errorf("direct = %v, want %v", fwd, tr.Apply(p))
	}
	back, _ := m.Transform(Inverse, fwd)
	if !near(back, p, 1e-9) {
		t.Errorf("round trip = %v, want %v", back, p)
	}

	singular := geometry.AffineTransform{A: 1, B: 2, C: 2, D: 4}
	if err := m.SetCoefficients(CoefficientSet{Direct: MatrixCoefficients(singular)}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Fit(Inverse); status.CodeOf(err) != status.SingularSystem {
		t.Errorf("singular matrix: got %v", err)
	}
}

func TestSetCoefficientsOnlyForMatrix(t *testing.T) {
	m := fitted(t, KindAffine, spread, affineMap)
	err := m.SetCoefficients(m.Coefficients())
	if status.CodeOf(err) != status.Unsupported {
		t.Errorf("got %v, want unsupported", err)
	}
}

func TestAffineOfRecoversMap(t *testing.T) {
	m := fitted(t, KindAffine, spread, affineMap)
	c := m.Coefficients()
	a := AffineOf(&c.Direct)
	want := geometry.AffineTransform{A: 1.1, B: -0.2, TX: 2, C: 0.3, D: 0.9, TY: -3}
	for _, d := range [][2]float64{{a.A, want.A}, {a.B, want.B}, {a.TX, want.TX}, {a.C, want.C}, {a.D, want.D}, {a.TY, want.TY}} {
		if math.Abs(d[0]-d[1]) > 1e-9 {
			t.Errorf("AffineOf = %+v, want %+v", a, want)
			break
		}
	}
}

func TestUnfittedModel(t *testing.T) {
	m := NewModel(config.Default())
	if _, err := m.Fit(Direct); status.CodeOf(err) != status.Unsupported {
		t.Errorf("untyped fit: %v", err)
	}
	if err := m.SetKind(KindAffine); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Transform(Direct, pt(0, 0)); status.CodeOf(err) != status.Unsupported {
		t.Errorf("transform before fit: %v", err)
	}
	if _, err := m.Transform(Both, pt(0, 0)); status.CodeOf(err) != status.Unsupported {
		t.Errorf("transform with Both: %v", err)
	}
}

func TestResiduals(t *testing.T) {
	noisy := func(p geometry.Point3D) geometry.Point3D {
		q := affineMap(p)
		if p.X == 6 {
			q.X += 0.5
		}
		return q
	}
	m := fitted(t, KindAffine, spread, noisy)
	r, err := m.Residuals(Direct)
	if err != nil {
		t.Fatalf("Residuals: %v", err)
	}
	if len(r.Points) != len(spread) {
		t.Fatalf("%d residuals, want %d", len(r.Points), len(spread))
	}
	if r.RMS <= 0 || r.Max < r.RMS {
		t.Errorf("RMS %v, Max %v", r.RMS, r.Max)
	}
	worst := r.Points[4]
	if worst.Distance() != r.Max {
		t.Errorf("largest residual should be the perturbed pair, got %+v (max %v)", worst, r.Max)
	}
	if got := m.Points.At(4).ResidualX; got != worst.DX {
		t.Errorf("stored residual %v, want %v", got, worst.DX)
	}
}

func TestKinds(t *testing.T) {
	if _, err := PolynomialKind(6); status.CodeOf(err) != status.Unsupported {
		t.Errorf("degree 6: %v", err)
	}
	if k, _ := PolynomialKind(3); k != KindPolynomial3 {
		t.Errorf("PolynomialKind(3) = %v", k)
	}
	for _, f := range Families() {
		k, err := ParseKind(f.Meta().Name)
		if err != nil || k != f.Meta().Kind {
			t.Errorf("ParseKind(%q) = %v, %v", f.Meta().Name, k, err)
		}
	}
	if _, err := Lookup(Kind(99)); status.CodeOf(err) != status.Unsupported {
		t.Errorf("Lookup(99): %v", err)
	}

	defaults := map[int]Kind{1: KindTranslation, 2: KindSimilarity, 3: KindAffine, 5: KindAffine,
		6: KindPolynomial2, 9: KindPolynomial2, 10: KindPolynomial3, 200: KindPolynomial3}
	for n, want := range defaults {
		if got, err := DefaultKindFor(n); err != nil || got != want {
			t.Errorf("DefaultKindFor(%d) = %v, %v; want %v", n, got, err, want)
		}
	}
	if _, err := DefaultKindFor(0); status.CodeOf(err) != status.InsufficientPoints {
		t.Errorf("DefaultKindFor(0): %v", err)
	}
}
