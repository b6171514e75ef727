package frame

import (
	"errors"
	"math"
	"testing"
)

func TestNew_RejectsDegenerateDimensions(t *testing.T) {
	cases := []struct {
		name string
		w, h int
	}{
		{"zero width", 0, 10},
		{"zero height", 10, 0},
		{"negative", -3, 5},
	}
	for _, c := range cases {
		_, err := New(c.w, c.h)
		var inputErr *InputError
		if !errors.As(err, &inputErr) {
			t.Errorf("%s: New(%d, %d) error = %v, want InputError", c.name, c.w, c.h, err)
		}
	}
}

func TestFromSlice_LengthMismatch(t *testing.T) {
	_, err := FromSlice(make([]float64, 7), 3, 3)
	var inputErr *InputError
	if !errors.As(err, &inputErr) {
		t.Errorf("FromSlice error = %v, want InputError", err)
	}
}

func TestFromRows_RejectsRaggedAndEmpty(t *testing.T) {
	if _, err := FromRows(nil); err == nil {
		t.Error("FromRows(nil) succeeded, want InputError")
	}
	ragged := [][]float64{{1, 2, 3}, {4, 5}}
	_, err := FromRows(ragged)
	var inputErr *InputError
	if !errors.As(err, &inputErr) {
		t.Errorf("FromRows(ragged) error = %v, want InputError", err)
	}
}

func TestValidate_OneDimensionalBuffer(t *testing.T) {
	// An image claiming zero height is the closest analogue of handing the
	// pipeline a one-dimensional array.
	img := &Image{Width: 9, Height: 0, Pix: make([]float64, 9)}
	var inputErr *InputError
	if !errors.As(img.Validate(), &inputErr) {
		t.Errorf("Validate() = %v, want InputError", img.Validate())
	}
}

func TestSanitize_ReplacesNonFinite(t *testing.T) {
	img, err := FromRows([][]float64{
		{1, 2, 3},
		{4, math.NaN(), 6},
		{7, 8, math.Inf(1)},
	})
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}

	replaced := img.Sanitize()
	if replaced != 2 {
		t.Errorf("Sanitize replaced %d pixels, want 2", replaced)
	}
	for i, v := range img.Pix {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("pixel %d still non-finite: %v", i, v)
		}
	}
	// Center pixel takes the median of its 8 finite neighbours.
	if got := img.At(1, 1); got < 1 || got > 8 {
		t.Errorf("center pixel = %g, want within neighbour range", got)
	}
}

func TestSanitize_AllNonFiniteFallsBackToZero(t *testing.T) {
	img, _ := FromRows([][]float64{
		{math.NaN(), math.NaN()},
		{math.NaN(), math.NaN()},
	})
	img.Sanitize()
	for i, v := range img.Pix {
		if v != 0 {
			t.Errorf("pixel %d = %g, want 0", i, v)
		}
	}
}

func TestClone_Independent(t *testing.T) {
	img, _ := FromRows([][]float64{{1, 2}, {3, 4}})
	img.Header["OBJECT"] = "M31"

	dup := img.Clone()
	dup.Set(0, 0, 99)
	dup.Header["OBJECT"] = "M33"

	if img.At(0, 0) != 1 {
		t.Errorf("original pixel changed to %g after clone edit", img.At(0, 0))
	}
	if img.Header["OBJECT"] != "M31" {
		t.Errorf("original header changed to %q after clone edit", img.Header["OBJECT"])
	}
}

func TestSigmaClippedStats_RejectsOutliers(t *testing.T) {
	// Tight population around 100 with two wild outliers.
	values := []float64{98, 99, 99.5, 100, 100, 100.5, 101, 102, 5000, -4000}
	stats := SigmaClippedStats(values, 3.0, 8)

	if stats.Kept != len(values)-2 {
		t.Errorf("clipping kept %d samples, want %d with both outliers gone",
			stats.Kept, len(values)-2)
	}
	if stats.Median < 98 || stats.Median > 102 {
		t.Errorf("clipped median = %g, want near 100", stats.Median)
	}
	if stats.Sigma > 10 {
		t.Errorf("clipped sigma = %g, want small", stats.Sigma)
	}
}

func TestSigmaClippedStats_DegenerateInput(t *testing.T) {
	if s := SigmaClippedStats(nil, 3, 5); s.Kept != 0 {
		t.Errorf("empty input Kept = %d, want 0", s.Kept)
	}
	flat := []float64{7, 7, 7, 7}
	s := SigmaClippedStats(flat, 3, 5)
	if s.Sigma != 0 || s.Median != 7 {
		t.Errorf("flat input stats = %+v, want sigma 0 median 7", s)
	}
}

func TestPercentile_Bounds(t *testing.T) {
	values := []float64{5, 1, 3, 2, 4}
	if got := Percentile(values, 0); got != 1 {
		t.Errorf("Percentile(0) = %g, want 1", got)
	}
	if got := Percentile(values, 100); got != 5 {
		t.Errorf("Percentile(100) = %g, want 5", got)
	}
	mid := Percentile(values, 50)
	if mid < 2 || mid > 4 {
		t.Errorf("Percentile(50) = %g, want middle of range", mid)
	}
}

func TestToGray_Stretch(t *testing.T) {
	img, _ := FromRows([][]float64{{0, 50}, {100, 200}})
	gray := img.ToGray(0, 200)
	if got := gray.GrayAt(0, 0).Y; got != 0 {
		t.Errorf("low pixel = %d, want 0", got)
	}
	if got := gray.GrayAt(1, 1).Y; got != 255 {
		t.Errorf("high pixel = %d, want 255", got)
	}
}
