package grid

import (
	"math"
	"testing"
)

func TestMakeDensityZeroLandscape(t *testing.T) {
	g := Make(0, 16.0/9.0, 100000)
	if g.Columns != 40 || g.Rows != 30 {
		t.Errorf("Expected 40x30, got %dx%d", g.Columns, g.Rows)
	}
}

func TestMakeDensityBounds(t *testing.T) {
	tests := []struct {
		density float64
		aspect  float64
		columns int
		rows    int
	}{
		{0, 9.0 / 16.0, 40, 71},
		{100, 9.0 / 16.0, 180, 140},
		{50, 16.0 / 9.0, 110, 62},
		{100, 16.0 / 9.0, 180, 101},
		{-5, 16.0 / 9.0, 40, 30},
		{500, 16.0 / 9.0, 180, 101},
	}
	for _, tt := range tests {
		g := Make(tt.density, tt.aspect, math.MaxInt32)
		if g.Columns != tt.columns || g.Rows != tt.rows {
			t.Errorf("Make(%v, %v): expected %dx%d, got %dx%d",
				tt.density, tt.aspect, tt.columns, tt.rows, g.Columns, g.Rows)
		}
	}
}

func TestMakeHonoursBudget(t *testing.T) {
	aspects := []float64{Portrait.Aspect(), Landscape.Aspect(), 1, 0.2, 5}
	budgets := []int{MinColumns * MinRows, 1500, 4000, 18000, 36000, 64000}
	for _, aspect := range aspects {
		for _, budget := range budgets {
			for density := 0.0; density <= 100; density += 2.5 {
				g := Make(density, aspect, budget)
				if g.Columns < MinColumns || g.Columns > MaxColumns {
					t.Fatalf("columns %d out of bounds", g.Columns)
				}
				if g.Rows < MinRows || g.Rows > MaxRows {
					t.Fatalf("rows %d out of bounds", g.Rows)
				}
				if g.TotalCells() > budget {
					t.Fatalf("Make(%v, %v, %d) = %dx%d exceeds budget",
						density, aspect, budget, g.Columns, g.Rows)
				}
			}
		}
	}
}

func TestMakeSoftViolation(t *testing.T) {
	g := Make(100, Landscape.Aspect(), 10)
	if g.Columns != MinColumns || g.Rows != MinRows {
		t.Errorf("Expected floor grid, got %dx%d", g.Columns, g.Rows)
	}
}

func TestMakeShrinksColumnsFirst(t *testing.T) {
	g := Make(100, Portrait.Aspect(), 18000)
	if g.TotalCells() > 18000 {
		t.Fatalf("exceeds budget: %dx%d", g.Columns, g.Rows)
	}
	want := int(math.Round(float64(g.Columns) / Portrait.Aspect()))
	if want > MaxRows {
		want = MaxRows
	}
	if g.Rows != want {
		t.Errorf("Rows should follow columns while columns shrink: got %d, want %d", g.Rows, want)
	}
}

func TestOrientationOf(t *testing.T) {
	if OrientationOf(1920, 1080) != Landscape {
		t.Error("1920x1080 should be landscape")
	}
	if OrientationOf(1080, 1920) != Portrait {
		t.Error("1080x1920 should be portrait")
	}
	if OrientationOf(100, 100) != Landscape {
		t.Error("Square frames should be landscape")
	}
	if math.Abs(Portrait.Aspect()*Landscape.Aspect()-1) > 1e-12 {
		t.Error("Aspects should be reciprocal")
	}
}

func TestOrientationResolve(t *testing.T) {
	tests := []struct {
		o    Orientation
		w, h int
		want Orientation
	}{
		{Auto, 1920, 1080, Landscape},
		{Auto, 1080, 1920, Portrait},
		{Portrait, 1920, 1080, Portrait},
		{Landscape, 1080, 1920, Landscape},
	}
	for _, tt := range tests {
		if got := tt.o.Resolve(tt.w, tt.h); got != tt.want {
			t.Errorf("%v.Resolve(%d, %d): expected %v, got %v", tt.o, tt.w, tt.h, tt.want, got)
		}
	}
}

func TestParseOrientation(t *testing.T) {
	for s, want := range map[string]Orientation{"": Auto, "auto": Auto, "Portrait": Portrait, " landscape ": Landscape} {
		got, err := ParseOrientation(s)
		if err != nil || got != want {
			t.Errorf("ParseOrientation(%q): expected %v, got %v (%v)", s, want, got, err)
		}
	}
	if _, err := ParseOrientation("sideways"); err == nil {
		t.Error("Expected an error for an unknown orientation")
	}
}
