package diffimage

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"transient-finder/internal/frame"
	"transient-finder/pkg/geometry"
)

// noisyFrame builds a frame of seeded Gaussian background noise.
func noisyFrame(t *testing.T, w, h int, sigma float64, seed int64) *frame.Image {
	t.Helper()
	img, err := frame.New(w, h)
	if err != nil {
		t.Fatalf("frame.New: %v", err)
	}
	rng := rand.New(rand.NewSource(seed))
	for i := range img.Pix {
		img.Pix[i] = rng.NormFloat64() * sigma
	}
	return img
}

// addBlob injects a Gaussian point source.
func addBlob(img *frame.Image, cx, cy, peak, sigma float64) {
	r := int(4 * sigma)
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			x, y := int(cx)+dx, int(cy)+dy
			fx := float64(x) - cx
			fy := float64(y) - cy
			img.Set(x, y, img.At(x, y)+peak*math.Exp(-(fx*fx+fy*fy)/(2*sigma*sigma)))
		}
	}
}

func countNonZero(img *frame.Image) int {
	n := 0
	for _, v := range img.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

func TestCompute_IdenticalImagesZeroResidual(t *testing.T) {
	ref := noisyFrame(t, 64, 64, 3.0, 7)
	addBlob(ref, 30, 30, 200, 2)
	sci := ref.Clone()

	dm, err := Compute(ref, sci, geometry.IdentityTransform(), DefaultParams())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if !dm.AllZero {
		t.Error("AllZero = false, want true for identical frames")
	}
	if n := countNonZero(dm.Img); n != 0 {
		t.Errorf("difference has %d non-zero pixels, want 0", n)
	}
}

func TestClean_RetainsRawResidual(t *testing.T) {
	ref := noisyFrame(t, 80, 80, 1.0, 21)
	sci := noisyFrame(t, 80, 80, 1.0, 23)
	addBlob(sci, 40, 40, 120, 2)
	addBlob(sci, 20, 60, -120, 2)

	dm, err := Compute(ref, sci, geometry.IdentityTransform(), DefaultParams())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if dm.Residual == nil {
		t.Fatal("Residual is nil, want the pre-cleaning residual retained")
	}

	// Cleaning zeroes the near-noise pixels of the cleaned map but must leave
	// the retained residual untouched; the negative source survives there at
	// full depth.
	zeroedInClean := 0
	for i, v := range dm.Img.Pix {
		if v == 0 && dm.Residual.Pix[i] != 0 {
			zeroedInClean++
		}
	}
	if zeroedInClean == 0 {
		t.Error("no pixel differs between cleaned map and retained residual")
	}
	if v := dm.Residual.At(20, 60); v > -60 {
		t.Errorf("residual at the negative source = %g, want a deep negative value", v)
	}
}

func TestCompute_RecoversInjectedSource(t *testing.T) {
	ref := noisyFrame(t, 80, 80, 1.0, 11)
	sci := noisyFrame(t, 80, 80, 1.0, 13)
	addBlob(sci, 40, 36, 120, 2)

	dm, err := Compute(ref, sci, geometry.IdentityTransform(), DefaultParams())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if dm.AllZero {
		t.Fatal("AllZero = true, want a surviving source")
	}
	if dm.NoiseSigma <= 0 {
		t.Errorf("NoiseSigma = %g, want positive", dm.NoiseSigma)
	}

	// Every surviving pixel should sit near the injected source.
	for i, v := range dm.Img.Pix {
		if v == 0 {
			continue
		}
		x, y := i%80, i/80
		dx, dy := float64(x)-40, float64(y)-36
		if math.Sqrt(dx*dx+dy*dy) > 12 {
			t.Errorf("non-zero pixel at (%d, %d), far from the injected source", x, y)
		}
	}
	if dm.Peak <= 0 {
		t.Errorf("Peak = %g, want positive", dm.Peak)
	}
}

func TestResample_IdentityIsExact(t *testing.T) {
	src := noisyFrame(t, 33, 21, 5.0, 3)
	out, covered, err := Resample(src, geometry.IdentityTransform(), 33, 21)
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}
	for i := range src.Pix {
		if out.Pix[i] != src.Pix[i] {
			t.Fatalf("pixel %d changed under identity: %g vs %g", i, out.Pix[i], src.Pix[i])
		}
		if !covered[i] {
			t.Fatalf("pixel %d uncovered under identity", i)
		}
	}
}

func TestResample_IntegerTranslation(t *testing.T) {
	src := noisyFrame(t, 24, 24, 5.0, 5)
	tr := geometry.FromAffine(geometry.Translation(3, -2))
	out, covered, err := Resample(src, tr, 24, 24)
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}
	// out(x, y) = src(x-3, y+2) wherever that sample exists.
	for y := 0; y < 24; y++ {
		for x := 0; x < 24; x++ {
			sx, sy := x-3, y+2
			idx := y*24 + x
			if sx < 0 || sx >= 24 || sy >= 24 {
				if covered[idx] {
					t.Fatalf("pixel (%d, %d) covered despite out-of-frame sample", x, y)
				}
				continue
			}
			if got, want := out.Pix[idx], src.Pix[sy*24+sx]; got != want {
				t.Fatalf("pixel (%d, %d) = %g, want %g", x, y, got, want)
			}
		}
	}
}

func TestClean_MinAreaRemovesIsolatedPixel(t *testing.T) {
	raw := noisyFrame(t, 32, 32, 0, 0) // all zero
	raw.Set(16, 16, 500)

	p := DefaultParams()
	p.MinComponentArea = 3
	p.EnableMorphology = false
	p.EnableSmoothing = false

	dm, err := Clean(raw, p)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if n := countNonZero(dm.Img); n != 0 {
		t.Errorf("isolated pixel survived the size filter: %d non-zero pixels", n)
	}
}

func TestClean_AllEqualResidualSkipsThreshold(t *testing.T) {
	raw, err := frame.New(16, 16)
	if err != nil {
		t.Fatal(err)
	}
	for i := range raw.Pix {
		raw.Pix[i] = 2.5
	}

	p := DefaultParams()
	p.EnableSizeFilter = false
	p.EnableMorphology = false
	p.EnableSmoothing = false

	dm, err := Clean(raw, p)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	// Zero spread: the threshold stage degrades to a pass-through instead of
	// zeroing the whole frame.
	if dm.NoiseSigma != 0 {
		t.Errorf("NoiseSigma = %g, want 0", dm.NoiseSigma)
	}
	if n := countNonZero(dm.Img); n != 16*16 {
		t.Errorf("%d non-zero pixels survive, want all %d", n, 16*16)
	}
}

func TestCompute_MalformedInput(t *testing.T) {
	bad := &frame.Image{Width: 9, Height: 0, Pix: make([]float64, 9)}
	good := noisyFrame(t, 8, 8, 1, 1)

	_, err := Compute(bad, good, geometry.IdentityTransform(), DefaultParams())
	var inputErr *frame.InputError
	if !errors.As(err, &inputErr) {
		t.Errorf("Compute(bad ref) error = %v, want InputError", err)
	}
	_, err = Compute(good, bad, geometry.IdentityTransform(), DefaultParams())
	if !errors.As(err, &inputErr) {
		t.Errorf("Compute(bad sci) error = %v, want InputError", err)
	}
}

func TestParams_ValidateRejectsOutOfRange(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Params)
	}{
		{"negative kappa", func(p *Params) { p.NoiseKappa = -1 }},
		{"floor fraction 1", func(p *Params) { p.AbsoluteFloorFrac = 1 }},
		{"zero min area", func(p *Params) { p.MinComponentArea = 0 }},
		{"zero morph radius", func(p *Params) { p.MorphRadius = 0 }},
	}
	for _, c := range cases {
		p := DefaultParams()
		c.mutate(&p)
		var cfgErr *frame.ConfigError
		if !errors.As(p.Validate(), &cfgErr) {
			t.Errorf("%s: Validate() = %v, want ConfigError", c.name, p.Validate())
		}
	}
}
