package geometry

import "testing"

func TestConvexHull_DropsInteriorPoints(t *testing.T) {
	pts := []Point2D{
		{0, 0}, {10, 0}, {10, 10}, {0, 10}, // square corners
		{5, 5}, {3, 7}, {8, 2}, // interior
	}
	hull := ConvexHull(pts)
	if len(hull) != 4 {
		t.Fatalf("hull has %d vertices, want 4: %v", len(hull), hull)
	}
	corners := map[Point2D]bool{
		{0, 0}: true, {10, 0}: true, {10, 10}: true, {0, 10}: true,
	}
	for _, p := range hull {
		if !corners[p] {
			t.Errorf("unexpected hull vertex %v", p)
		}
	}
}

func TestConvexHull_CollinearInput(t *testing.T) {
	pts := []Point2D{{0, 0}, {1, 1}, {2, 2}, {3, 3}}
	hull := ConvexHull(pts)
	if PolygonArea(hull) != 0 {
		t.Errorf("collinear hull has area %v, want 0", PolygonArea(hull))
	}
}

func TestPolygonArea(t *testing.T) {
	square := []Point2D{{0, 0}, {4, 0}, {4, 4}, {0, 4}}
	if got := PolygonArea(square); !almostEqual(got, 16, 1e-12) {
		t.Errorf("square area = %v, want 16", got)
	}

	// Clockwise order must not flip the sign.
	clockwise := []Point2D{{0, 0}, {0, 4}, {4, 4}, {4, 0}}
	if got := PolygonArea(clockwise); !almostEqual(got, 16, 1e-12) {
		t.Errorf("clockwise area = %v, want 16", got)
	}

	if got := PolygonArea([]Point2D{{0, 0}, {1, 1}}); got != 0 {
		t.Errorf("degenerate area = %v, want 0", got)
	}
}
