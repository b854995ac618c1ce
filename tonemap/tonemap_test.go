package tonemap

import (
	"math"
	"reflect"
	"testing"

	"github.com/Barryalien23/monoart/effect"
	"github.com/Barryalien23/monoart/grid"
)

func fill(n int, v float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestContrastMultiplier(t *testing.T) {
	tests := []struct {
		softy float64
		want  float64
	}{
		{0, 0.2},
		{50, 1.6},
		{100, 3.0},
		{150, 3.0},
		{-1, 0.2},
	}
	for _, tt := range tests {
		if got := ContrastMultiplier(tt.softy); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("ContrastMultiplier(%v) = %v, want %v", tt.softy, got, tt.want)
		}
	}
}

func TestCutoffIsStrict(t *testing.T) {
	if got := Cutoff(0.15); got != 0.15 {
		t.Errorf("0.15 should survive the cutoff, got %v", got)
	}
	if got := Cutoff(0.149999); got != 0 {
		t.Errorf("0.149999 should be cut to zero, got %v", got)
	}
}

func TestMidGreyIsUniform(t *testing.T) {
	g := grid.Descriptor{Columns: 4, Rows: 2}
	p := effect.NewParameters(40, 0, 50, 30)
	n := effect.ASCII.GlyphCount()

	first, err := Indices(fill(g.TotalCells(), 0.5), g, n, p, 42)
	if err != nil {
		t.Fatal(err)
	}
	want := int(math.Floor(float64(n-1) * math.Pow(0.5, 1.5)))
	for i, idx := range first {
		if idx != want {
			t.Errorf("cell %d: expected %d, got %d", i, want, idx)
		}
	}

	second, _ := Indices(fill(g.TotalCells(), 0.5), g, n, p, 42)
	if !reflect.DeepEqual(first, second) {
		t.Error("Repeated runs should be identical")
	}
}

func TestFullLuminanceIsDensest(t *testing.T) {
	g := grid.Descriptor{Columns: 40, Rows: 30}
	n := effect.ASCII.GlyphCount()
	if n != 74 {
		t.Fatalf("Expected 74 ascii glyphs, got %d", n)
	}
	out, err := Indices(fill(g.TotalCells(), 1), g, n, effect.NewParameters(40, 0, 100, 30), 7)
	if err != nil {
		t.Fatal(err)
	}
	for i, idx := range out {
		if idx != 73 {
			t.Fatalf("cell %d: expected 73, got %d", i, idx)
		}
	}
}

func TestBlackIsVoid(t *testing.T) {
	g := grid.Descriptor{Columns: 5, Rows: 3}
	for _, typ := range effect.Types {
		for softy := 10.0; softy <= 100; softy += 10 {
			p := effect.NewParameters(40, 0, softy, 30)
			out, err := Indices(fill(g.TotalCells(), 0), g, typ.GlyphCount(), p, 99)
			if err != nil {
				t.Fatal(err)
			}
			for i, idx := range out {
				if idx != 0 {
					t.Fatalf("%s softy=%v cell %d: expected 0, got %d", typ, softy, i, idx)
				}
			}
		}
	}
}

func TestJitterAmplitude(t *testing.T) {
	tests := []struct {
		jitter float64
		n      int
		want   int
	}{
		{0, 74, 0},
		{20, 74, 4},
		{100, 74, 18},
		{100, 6, 1},
		{50, 6, 1},
		{100, 2, 1},
		{100, 1, 0},
		{300, 14, 3},
	}
	for _, tt := range tests {
		if got := JitterAmplitude(tt.jitter, tt.n); got != tt.want {
			t.Errorf("JitterAmplitude(%v, %d) = %d, want %d", tt.jitter, tt.n, got, tt.want)
		}
	}
}

func TestJitterIsDeterministic(t *testing.T) {
	g := grid.Descriptor{Columns: 60, Rows: 40}
	lum := make([]float32, g.TotalCells())
	for i := range lum {
		lum[i] = float32(i%97) / 96
	}
	p := effect.NewParameters(40, 80, 60, 30)
	n := effect.Shapes.GlyphCount()

	a, err := Indices(lum, g, n, p, 1234)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := Indices(lum, g, n, p, 1234)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("Same seed should give identical output")
	}

	plain, _ := Indices(lum, g, n, effect.NewParameters(40, 0, 60, 30), 1234)
	amp := JitterAmplitude(p.Jitter, n)
	diff := 0
	for i := range a {
		if a[i] < 0 || a[i] >= n {
			t.Fatalf("index %d out of range", a[i])
		}
		d := a[i] - plain[i]
		if d < -amp || d > amp {
			t.Fatalf("cell %d moved by %d, amplitude %d", i, d, amp)
		}
		if d != 0 {
			diff++
		}
	}
	if diff == 0 {
		t.Error("Jitter should move at least one cell")
	}
}

func TestIndicesLengthMismatch(t *testing.T) {
	g := grid.Descriptor{Columns: 4, Rows: 2}
	if _, err := Indices(make([]float32, 7), g, 10, effect.DefaultParameters(), 0); err == nil {
		t.Error("Expected an error for short luminance input")
	}
	if _, err := Indices(make([]float32, 8), g, 0, effect.DefaultParameters(), 0); err == nil {
		t.Error("Expected an error for an empty alphabet")
	}
}

func TestRandSequence(t *testing.T) {
	a := NewRand(0)
	b := NewRand(zeroSeed)
	for i := 0; i < 8; i++ {
		if a.Next() != b.Next() {
			t.Fatal("Zero seed should behave like the fallback seed")
		}
	}

	r := NewRand(1)
	if got, want := r.Next(), uint64(2862933555777941757+3037000493); got != want {
		t.Errorf("First value = %d, want %d", got, want)
	}

	r = NewRand(42)
	for i := 0; i < 1000; i++ {
		v := r.IntN(-3, 3)
		if v < -3 || v > 3 {
			t.Fatalf("IntN out of range: %d", v)
		}
	}
	if v := r.IntN(5, 5); v != 5 {
		t.Errorf("Degenerate range should return lo, got %d", v)
	}
}

func TestQuantize(t *testing.T) {
	tests := []struct {
		v    float64
		n    int
		want int
	}{
		{0, 10, 0},
		{1, 10, 9},
		{0.5, 10, 4},
		{1.5, 10, 9},
		{-1, 10, 0},
		{0.3, 0, 0},
	}
	for _, tt := range tests {
		if got := Quantize(tt.v, tt.n); got != tt.want {
			t.Errorf("Quantize(%v, %d) = %d, want %d", tt.v, tt.n, got, tt.want)
		}
	}
}
