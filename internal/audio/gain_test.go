package audio

import (
	"math"
	"testing"
)

func TestCurvesAreMonotonicWithUnityAt100(t *testing.T) {
	curves := map[string]Curve{
		"linear": LinearCurve,
		"cubic":  CubicCurve,
	}

	for name, curve := range curves {
		curve := curve
		t.Run(name, func(t *testing.T) {
			if got := curve(100); got != 1.0 {
				t.Fatalf("curve(100) = %v, want 1.0", got)
			}
			prev := curve(-10)
			for p := -10.0; p <= 250; p += 0.5 {
				v := curve(p)
				if v < prev {
					t.Fatalf("curve not monotonic at %v: %v < %v", p, v, prev)
				}
				prev = v
			}
		})
	}
}

func TestLinearCurvePoints(t *testing.T) {
	tests := []struct {
		percent float64
		want    float64
	}{
		{0, 0},
		{50, 0.5},
		{100, 1},
		{200, 2},
		{300, 2},
		{-5, 0},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := LinearCurve(tt.percent); got != tt.want {
			t.Errorf("LinearCurve(%v) = %v, want %v", tt.percent, got, tt.want)
		}
	}
}

func TestEffectiveGain(t *testing.T) {
	if got := EffectiveGain(LinearCurve, false, 150); got != 0 {
		t.Fatalf("inactive track should be silent, got %v", got)
	}
	if got := EffectiveGain(nil, true, 150); got != 1.5 {
		t.Fatalf("nil curve should fall back to linear, got %v", got)
	}
	if got := EffectiveGain(CubicCurve, true, 200); got != 8 {
		t.Fatalf("cubic(200) = %v, want 8", got)
	}
}

func TestCurveByName(t *testing.T) {
	for _, name := range []string{"", "linear", " Cubic "} {
		if _, err := CurveByName(name); err != nil {
			t.Errorf("CurveByName(%q) error: %v", name, err)
		}
	}
	if _, err := CurveByName("log"); err == nil {
		t.Error("expected error for unknown curve")
	}
}

func TestGainStage(t *testing.T) {
	g := NewGainStage(0.75)
	if g.Value() != 0.75 {
		t.Fatalf("Value() = %v", g.Value())
	}
	g.Set(-1)
	if g.Value() != 0 {
		t.Fatalf("negative gain should clamp to 0, got %v", g.Value())
	}
	g.Set(math.NaN())
	if g.Value() != 0 {
		t.Fatalf("NaN gain should clamp to 0, got %v", g.Value())
	}
}
