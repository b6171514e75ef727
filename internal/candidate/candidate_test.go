package candidate

import (
	"errors"
	"math"
	"testing"

	"transient-finder/internal/diffimage"
	"transient-finder/internal/frame"
)

// diffMapFromRows builds a DiffMap around explicit pixel rows, bypassing the
// cleaning stages.
func diffMapFromRows(t *testing.T, rows [][]float64, sigma float64) *diffimage.DiffMap {
	t.Helper()
	img, err := frame.FromRows(rows)
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	var peak float64
	for _, v := range img.Pix {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	return &diffimage.DiffMap{Img: img, NoiseSigma: sigma, Peak: peak}
}

func blankMap(t *testing.T, w, h int) *diffimage.DiffMap {
	t.Helper()
	img, err := frame.New(w, h)
	if err != nil {
		t.Fatalf("frame.New: %v", err)
	}
	return &diffimage.DiffMap{Img: img, AllZero: true}
}

func TestExtract_EmptyMapYieldsNoCandidates(t *testing.T) {
	cands, err := Extract(blankMap(t, 20, 20), DefaultParams())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(cands) != 0 {
		t.Errorf("got %d candidates from an all-zero map, want 0", len(cands))
	}
}

func TestExtract_MinAreaEnforced(t *testing.T) {
	dm := blankMap(t, 16, 16)
	dm.Img.Set(8, 8, 100) // single bright pixel
	dm.NoiseSigma = 1

	p := DefaultParams()
	p.MinArea = 3
	cands, err := Extract(dm, p)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(cands) != 0 {
		t.Errorf("1-pixel spot with min area 3 produced %d candidates, want 0", len(cands))
	}
}

func TestExtract_ComponentStatistics(t *testing.T) {
	dm := diffMapFromRows(t, [][]float64{
		{0, 0, 0, 0, 0},
		{0, 2, 4, 2, 0},
		{0, 4, 8, 4, 0},
		{0, 2, 4, 2, 0},
		{0, 0, 0, 0, 0},
	}, 1)

	p := DefaultParams()
	p.MinArea = 1
	cands, err := Extract(dm, p)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("got %d candidates, want 1", len(cands))
	}
	c := cands[0]
	if c.Area != 9 {
		t.Errorf("Area = %d, want 9", c.Area)
	}
	if c.Peak != 8 {
		t.Errorf("Peak = %g, want 8", c.Peak)
	}
	if c.Total != 32 {
		t.Errorf("Total = %g, want 32", c.Total)
	}
	if math.Abs(c.X-2) > 1e-9 || math.Abs(c.Y-2) > 1e-9 {
		t.Errorf("centroid = (%g, %g), want (2, 2)", c.X, c.Y)
	}
	if c.OnBoundary {
		t.Error("interior component flagged as on boundary")
	}
	if c.Elongation < 1 || c.Elongation > 1.01 {
		t.Errorf("Elongation = %g, want ~1 for a symmetric blob", c.Elongation)
	}
	if c.SNR != 8 {
		t.Errorf("SNR = %g, want 8 with sigma 1 and floor 0", c.SNR)
	}
}

func TestExtract_ConnectivitySelectsComponents(t *testing.T) {
	// Two pixels touching only diagonally: one component under 8-connectivity,
	// two under 4-connectivity.
	dm := diffMapFromRows(t, [][]float64{
		{0, 0, 0, 0},
		{0, 5, 0, 0},
		{0, 0, 5, 0},
		{0, 0, 0, 0},
	}, 1)

	p := DefaultParams()
	p.MinArea = 1
	cands8, err := Extract(dm, p)
	if err != nil {
		t.Fatalf("Extract(8): %v", err)
	}
	if len(cands8) != 1 {
		t.Errorf("8-connectivity: got %d components, want 1", len(cands8))
	}

	p.Connectivity = Connect4
	cands4, err := Extract(dm, p)
	if err != nil {
		t.Fatalf("Extract(4): %v", err)
	}
	if len(cands4) != 2 {
		t.Errorf("4-connectivity: got %d components, want 2", len(cands4))
	}
}

func TestExtract_BoundaryComponentFlagged(t *testing.T) {
	dm := blankMap(t, 10, 10)
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			dm.Img.Set(x, y, 10)
		}
	}
	p := DefaultParams()
	cands, err := Extract(dm, p)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("got %d candidates, want 1", len(cands))
	}
	if !cands[0].OnBoundary {
		t.Error("component touching the frame edge not flagged")
	}
}

func TestExtract_Idempotent(t *testing.T) {
	dm := blankMap(t, 30, 30)
	for _, c := range [][2]int{{8, 8}, {20, 14}} {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				dm.Img.Set(c[0]+dx, c[1]+dy, 10)
			}
		}
	}
	dm.NoiseSigma = 1

	p := DefaultParams()
	first, err := Extract(dm, p)
	if err != nil {
		t.Fatalf("first Extract: %v", err)
	}
	// The map is already clean: re-extraction must reproduce the result.
	second, err := Extract(dm, p)
	if err != nil {
		t.Fatalf("second Extract: %v", err)
	}
	if len(first) != 2 || len(second) != len(first) {
		t.Fatalf("counts differ: %d then %d, want 2", len(first), len(second))
	}
	for i := range first {
		if first[i].X != second[i].X || first[i].Y != second[i].Y {
			t.Errorf("candidate %d centroid moved: (%g, %g) then (%g, %g)",
				i, first[i].X, first[i].Y, second[i].X, second[i].Y)
		}
	}
}

func TestExtract_CompositeRanking(t *testing.T) {
	dm := blankMap(t, 41, 41)
	// A faint source at the exact center and a bright one near a corner.
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			dm.Img.Set(20+dx, 20+dy, 5)
			dm.Img.Set(4+dx, 4+dy, 50)
		}
	}
	p := DefaultParams()
	p.RankByComposite = true

	// Center-dominated weighting puts the central source first.
	p.CenterWeight, p.SignalWeight = 0.9, 0.1
	cands, err := Extract(dm, p)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("got %d candidates, want 2", len(cands))
	}
	if cands[0].X != 20 {
		t.Errorf("center weighting: first candidate at x=%g, want the central source", cands[0].X)
	}

	// Signal-dominated weighting puts the bright corner source first. The
	// weights are deliberately unnormalized to exercise re-normalization.
	p.CenterWeight, p.SignalWeight = 0.2, 4.0
	cands, err = Extract(dm, p)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if cands[0].X != 4 {
		t.Errorf("signal weighting: first candidate at x=%g, want the bright source", cands[0].X)
	}
}

func TestExtract_RejectsBadInput(t *testing.T) {
	var inputErr *frame.InputError
	_, err := Extract(nil, DefaultParams())
	if !errors.As(err, &inputErr) {
		t.Errorf("Extract(nil) error = %v, want InputError", err)
	}

	bad := &diffimage.DiffMap{Img: &frame.Image{Width: 5, Height: 0, Pix: make([]float64, 5)}}
	_, err = Extract(bad, DefaultParams())
	if !errors.As(err, &inputErr) {
		t.Errorf("Extract(1-D) error = %v, want InputError", err)
	}

	p := DefaultParams()
	p.RankByComposite = true
	p.CenterWeight, p.SignalWeight = 0, 0
	var cfgErr *frame.ConfigError
	_, err = Extract(blankMap(t, 5, 5), p)
	if !errors.As(err, &cfgErr) {
		t.Errorf("zero weights error = %v, want ConfigError", err)
	}
}
