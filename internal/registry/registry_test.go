package registry

import (
	"strings"
	"testing"

	"tiepoint/internal/config"
	"tiepoint/internal/logger"
	"tiepoint/internal/points"
	"tiepoint/internal/resample"
	"tiepoint/internal/status"
	"tiepoint/internal/transform"
	"tiepoint/pkg/geometry"
)

func pair(ox, oy, rx, ry float64) points.Pair {
	return points.NewPair(geometry.NewPoint3D(ox, oy, 0), geometry.NewPoint3D(rx, ry, 0))
}

func TestLifecycle(t *testing.T) {
	log := &logger.MemLogger{}
	r := New(config.Default(), log)

	a, err := r.CreateModel()
	if err != nil {
		t.Fatal(err)
	}
	b, _ := r.CreateModel()
	if a != 0 || b != 1 {
		t.Fatalf("handles %d, %d", a, b)
	}
	if r.Current() != b {
		t.Errorf("current = %d, want %d", r.Current(), b)
	}

	if err := r.DestroyModel(a); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Kind(a); status.CodeOf(err) != status.InvalidHandle {
		t.Errorf("destroyed handle: %v", err)
	}
	if _, err := r.Kind(b); err != nil {
		t.Errorf("surviving handle: %v", err)
	}
	if r.Current() != b {
		t.Errorf("lookup should make %d current", b)
	}
	c, _ := r.CreateModel()
	if c != 2 || r.Count() != 3 {
		t.Errorf("new handle %d with %d slots; slots must not be reused or compacted", c, r.Count())
	}
	for _, h := range []Handle{-1, 3, 99} {
		if err := r.SetKind(h, transform.KindAffine); status.CodeOf(err) != status.InvalidHandle {
			t.Errorf("handle %d: %v", h, err)
		}
	}

	r.Shutdown()
	if _, err := r.CreateModel(); status.CodeOf(err) != status.NotInitialized {
		t.Errorf("create after shutdown: %v", err)
	}
	if _, err := r.Kind(b); status.CodeOf(err) != status.NotInitialized {
		t.Errorf("kind after shutdown: %v", err)
	}
	r.Shutdown()

	joined := strings.Join(log.Lines, "\n")
	for _, want := range []string{"created model 0", "destroyed model 0", "registry shut down"} {
		if !strings.Contains(joined, want) {
			t.Errorf("log missing %q:\n%s", want, joined)
		}
	}
}

func TestNewRejectsInvalidSettings(t *testing.T) {
	log := &logger.MemLogger{}
	r := New(config.Settings{}, log)
	if r.Settings() != config.Default() {
		t.Errorf("settings = %+v, want defaults", r.Settings())
	}
	if len(log.Lines) == 0 || !strings.HasPrefix(log.Lines[0], "ERROR") {
		t.Errorf("invalid settings not logged: %v", log.Lines)
	}

	good := config.Default()
	good.HelmertMaxIterations = 7
	if got := New(good, nil).Settings(); got != good {
		t.Errorf("valid settings replaced: %+v", got)
	}
}

func TestLabels(t *testing.T) {
	r := New(config.Default(), nil)
	h, _ := r.CreateModel()
	if err := r.SetDescription(h, "scan 12"); err != nil {
		t.Fatal(err)
	}
	if err := r.SetCoordinateSystem(h, "EPSG:32633"); err != nil {
		t.Fatal(err)
	}
	if d, _ := r.Description(h); d != "scan 12" {
		t.Errorf("description %q", d)
	}
	if cs, _ := r.CoordinateSystem(h); cs != "EPSG:32633" {
		t.Errorf("coordinate system %q", cs)
	}
	if err := r.SetTolerances(h, 0, 1); status.CodeOf(err) != status.Unsupported {
		t.Errorf("zero tolerance: %v", err)
	}
}

func TestPointsAndFit(t *testing.T) {
	log := &logger.MemLogger{}
	r := New(config.Default(), log)
	h, _ := r.CreateModel()

	if err := r.SetKind(h, transform.KindTranslation); err != nil {
		t.Fatal(err)
	}
	if _, err := r.CalcCoefficients(h, transform.Both); status.CodeOf(err) != status.InsufficientPoints {
		t.Errorf("empty fit: %v", err)
	}

	if err := r.AppendPoint(h, pair(10, 10, 13, 14)); err != nil {
		t.Fatal(err)
	}
	if err := r.AppendPoint(h, pair(0, 0, 100, 100)); err != nil {
		t.Fatal(err)
	}
	if err := r.SeekPoint(h, 0); err != nil {
		t.Fatal(err)
	}
	if err := r.DeletePoint(h); err != nil {
		t.Fatal(err)
	}
	if err := r.InsertPoint(h, pair(10, 10, 13, 14)); err != nil {
		t.Fatal(err)
	}
	if n, _ := r.PointCount(h); n != 2 {
		t.Fatalf("count = %d", n)
	}
	got, err := r.GetPoint(h)
	if err != nil || got.Reference.X != 13 {
		t.Fatalf("GetPoint = %+v, %v", got, err)
	}

	if _, err := r.CalcCoefficients(h, transform.Both); err != nil {
		t.Fatal(err)
	}
	p, err := r.TransformPoint(h, geometry.NewPoint3D(10, 10, 0), transform.Direct)
	if err != nil || p != geometry.NewPoint3D(13, 14, 0) {
		t.Errorf("direct = %v, %v", p, err)
	}
	p, _ = r.TransformPoint(h, geometry.NewPoint3D(13, 14, 0), transform.Inverse)
	if p != geometry.NewPoint3D(10, 10, 0) {
		t.Errorf("inverse = %v", p)
	}

	if err := r.SetCoefficients(h, transform.CoefficientSet{}); status.CodeOf(err) != status.Unsupported {
		t.Errorf("SetCoefficients on translation: %v", err)
	}
	if err := r.SetPointActive(h, 5, false); err == nil {
		t.Errorf("SetPointActive out of range should fail")
	}

	var sawFailure bool
	for _, l := range log.Lines {
		if strings.HasPrefix(l, "ERROR") && strings.Contains(l, "translation") {
			sawFailure = true
		}
	}
	if !sawFailure {
		t.Errorf("failed fit not logged: %v", log.Lines)
	}
}

func TestAutoKind(t *testing.T) {
	r := New(config.Default(), nil)
	h, _ := r.CreateModel()
	for _, p := range []points.Pair{pair(0, 0, 1, 1), pair(5, 0, 6, 2), pair(0, 5, 0, 7), pair(5, 5, 6, 7)} {
		if err := r.AppendPoint(h, p); err != nil {
			t.Fatal(err)
		}
	}
	k, err := r.AutoKind(h)
	if err != nil || k != transform.KindAffine {
		t.Errorf("AutoKind = %v, %v", k, err)
	}
	if err := r.SetPointActive(h, 0, false); err != nil {
		t.Fatal(err)
	}
	if err := r.SetPointActive(h, 1, false); err != nil {
		t.Fatal(err)
	}
	if k, _ := r.AutoKind(h); k != transform.KindSimilarity {
		t.Errorf("two active points: %v", k)
	}
}

func TestResampleScanlineMatchesPointTransform(t *testing.T) {
	r := New(config.Default(), nil)
	h, _ := r.CreateModel()
	for _, p := range []points.Pair{
		pair(0, 0, 1, 2), pair(20, 0, 19, 4), pair(0, 20, 3, 21), pair(20, 20, 22, 19), pair(9, 11, 10, 12),
	} {
		if err := r.AppendPoint(h, p); err != nil {
			t.Fatal(err)
		}
	}
	if err := r.SetKind(h, transform.KindProjective); err != nil {
		t.Fatal(err)
	}
	if _, err := r.CalcCoefficients(h, transform.Both); err != nil {
		t.Fatal(err)
	}

	plane := resample.NewPlane[uint8](24, 24)
	for y := 0; y < 24; y++ {
		for x := 0; x < 24; x++ {
			plane.Set(x, y, uint8(x*7+y*3))
		}
	}
	color := resample.NewColorInfo[uint8](0)
	color.Sampler = resample.Nearest(plane)

	const x0, dx, n = -3.0, 1.0, 30
	for row := -2.0; row < 26; row += 3.5 {
		pr, err := r.TransformPrep(h, geometry.NewPoint3D(x0, row, 0), transform.Inverse)
		if err != nil {
			t.Fatal(err)
		}
		buf := plane.Window()
		buf.Output = make([]uint8, n)
		if _, err := ResampleScanline(r, h, transform.Inverse, x0, dx, n, pr, &buf, &color); err != nil {
			t.Fatal(err)
		}

		for i := 0; i < n; i++ {
			q, _ := r.TransformPoint(h, geometry.NewPoint3D(x0+float64(i)*dx, row, 0), transform.Inverse)
			one := plane.Window()
			one.Output = make([]uint8, 1)
			if err := resample.General([]geometry.Point3D{q}, &one, &color); err != nil {
				t.Fatal(err)
			}
			if buf.Output[i] != one.Output[0] {
				t.Errorf("row %v pixel %d: scanline %d, point %d", row, i, buf.Output[i], one.Output[0])
			}
		}
	}

	pr, _ := r.TransformPrep(h, geometry.NewPoint3D(0, 0, 0), transform.Direct)
	buf := plane.Window()
	buf.Output = make([]uint8, 1)
	if _, err := ResampleScanline(r, h, transform.Inverse, 0, 1, 1, pr, &buf, &color); status.CodeOf(err) != status.Unsupported {
		t.Errorf("direction mismatch: %v", err)
	}
}

func TestNegativeScanlineLength(t *testing.T) {
	r := New(config.Default(), nil)
	h, _ := r.CreateModel()
	for _, p := range []points.Pair{pair(0, 0, 1, 1), pair(5, 0, 6, 2), pair(0, 5, 0, 7)} {
		if err := r.AppendPoint(h, p); err != nil {
			t.Fatal(err)
		}
	}
	if err := r.SetKind(h, transform.KindAffine); err != nil {
		t.Fatal(err)
	}
	if _, err := r.CalcCoefficients(h, transform.Both); err != nil {
		t.Fatal(err)
	}
	pr, err := r.TransformPrep(h, geometry.NewPoint3D(0, 2, 0), transform.Inverse)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.TransformScanline(h, 0, 1, -1, pr, nil); status.CodeOf(err) != status.Unsupported {
		t.Errorf("TransformScanline(n = -1): %v", err)
	}

	plane := resample.NewPlane[uint8](4, 4)
	color := resample.NewColorInfo[uint8](0)
	color.Sampler = resample.Nearest(plane)
	buf := plane.Window()
	if _, err := ResampleScanline(r, h, transform.Inverse, 0, 1, -5, pr, &buf, &color); status.CodeOf(err) != status.Unsupported {
		t.Errorf("ResampleScanline(n = -5): %v", err)
	}
}
