package pipeline

import (
	"math"
	"math/rand"
	"testing"

	"transient-finder/internal/frame"
	"transient-finder/pkg/geometry"
)

// renderStar adds a Gaussian point source.
func renderStar(img *frame.Image, cx, cy, peak, sigma float64) {
	r := int(4*sigma) + 1
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			x, y := int(cx)+dx, int(cy)+dy
			fx := float64(x) - cx
			fy := float64(y) - cy
			img.Set(x, y, img.At(x, y)+peak*math.Exp(-(fx*fx+fy*fy)/(2*sigma*sigma)))
		}
	}
}

// skyFrame renders the shared background sources (with the uneven companion
// neighbourhoods real fields have) in the frame reached by tr, plus any
// extra sources, over seeded noise.
func skyFrame(t *testing.T, tr geometry.Transform, extras []geometry.Point2D, noiseSeed int64) *frame.Image {
	t.Helper()
	img, err := frame.New(300, 300)
	if err != nil {
		t.Fatalf("frame.New: %v", err)
	}
	rng := rand.New(rand.NewSource(noiseSeed))
	for i := range img.Pix {
		img.Pix[i] = rng.NormFloat64() * 2.0
	}

	inv, ok := tr.Inverse()
	if !ok {
		t.Fatal("test transform is singular")
	}
	background := []geometry.Point2D{
		{X: 40, Y: 60}, {X: 120, Y: 45}, {X: 210, Y: 70}, {X: 260, Y: 40},
		{X: 75, Y: 140}, {X: 160, Y: 160}, {X: 250, Y: 150},
		{X: 60, Y: 230}, {X: 150, Y: 260}, {X: 240, Y: 240},
	}
	for i, c := range background {
		p := inv.Apply(c)
		renderStar(img, p.X, p.Y, 140, 2.0)
		a1 := float64(i) * 0.7
		a2 := float64(i)*2.3 + 1.1
		r1 := 5.0 + float64(i%3)
		renderStar(img, p.X+r1*math.Cos(a1), p.Y+r1*math.Sin(a1), 70, 1.5)
		renderStar(img, p.X+6.5*math.Cos(a2), p.Y+6.5*math.Sin(a2), 55, 1.5)
	}
	for _, c := range extras {
		p := inv.Apply(c)
		renderStar(img, p.X, p.Y, 600, 1.8)
	}
	return img
}

var injected = []geometry.Point2D{
	{X: 100, Y: 100}, {X: 200, Y: 120}, {X: 90, Y: 210}, {X: 220, Y: 200},
}

func TestRun_EndToEndRecoversInjectedTransients(t *testing.T) {
	// Science frame offset by a small rotation plus translation and carrying
	// four extra sources of known position.
	truth := geometry.FromAffine(geometry.RigidTransform(0.01, 3.2, -2.4))
	ref := skyFrame(t, geometry.IdentityTransform(), nil, 101)
	sci := skyFrame(t, truth, injected, 102)

	res := Run(ref, sci, DefaultConfig(), nil)
	if !res.Success {
		t.Fatalf("run failed: %s", res.Reason)
	}
	if res.Alignment == nil || !res.Alignment.Success {
		t.Fatalf("alignment failed: %+v", res.Alignment)
	}

	if len(res.Accepted) != 4 {
		for _, c := range res.Accepted {
			t.Logf("accepted: (%.1f, %.1f) area %d snr %.1f label %s reliability %.0f",
				c.X, c.Y, c.Area, c.SNR, c.Label, c.Reliability)
		}
		t.Fatalf("accepted %d candidates, want exactly the 4 injected sources", len(res.Accepted))
	}

	for _, want := range injected {
		best := math.Inf(1)
		for _, got := range res.Accepted {
			if d := got.Center().Distance(want); d < best {
				best = d
			}
		}
		if best > 2.0 {
			t.Errorf("injected source at %v recovered %.2f px away, want within 2", want, best)
		}
	}

	if res.Annotated == nil || res.Catalog == nil {
		t.Error("run produced no annotated image or catalog")
	}
	if len(res.Catalog.Rows) != len(res.Accepted) {
		t.Errorf("catalog has %d rows, want %d", len(res.Catalog.Rows), len(res.Accepted))
	}
}

func TestRun_IdenticalFramesYieldNoCandidates(t *testing.T) {
	ref := skyFrame(t, geometry.IdentityTransform(), nil, 55)
	sci := ref.Clone()

	res := Run(ref, sci, DefaultConfig(), nil)
	if !res.Success {
		t.Fatalf("run failed: %s", res.Reason)
	}
	if len(res.Accepted) != 0 {
		t.Errorf("accepted %d candidates from identical frames, want 0", len(res.Accepted))
	}
}

func TestRun_AlignmentFailureStopsGracefully(t *testing.T) {
	flat, err := frame.New(128, 128)
	if err != nil {
		t.Fatal(err)
	}
	res := Run(flat, flat.Clone(), DefaultConfig(), nil)
	if res.Success {
		t.Error("Success = true despite unalignable frames")
	}
	if res.Alignment == nil || res.Alignment.Success {
		t.Error("alignment result missing or wrongly successful")
	}
	if res.Reason == "" {
		t.Error("failure carries no reason")
	}
}

func TestRun_IdentityFallbackContinues(t *testing.T) {
	flat, err := frame.New(128, 128)
	if err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	cfg.FallbackIdentity = true

	res := Run(flat, flat.Clone(), cfg, nil)
	if !res.Success {
		t.Fatalf("run with identity fallback failed: %s", res.Reason)
	}
	if res.Diff == nil || !res.Diff.AllZero {
		t.Error("identical flat frames should difference to all zero")
	}
	if len(res.Accepted) != 0 {
		t.Errorf("accepted %d candidates, want 0", len(res.Accepted))
	}
}

func TestRun_MalformedInputReportsNotPanics(t *testing.T) {
	bad := &frame.Image{Width: 30, Height: 0, Pix: make([]float64, 30)}
	good, err := frame.New(64, 64)
	if err != nil {
		t.Fatal(err)
	}
	res := Run(bad, good, DefaultConfig(), nil)
	if res.Success {
		t.Error("Success = true for a 1-D input array")
	}
	if res.Reason == "" {
		t.Error("failure carries no reason")
	}
}
