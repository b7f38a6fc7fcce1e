package geometry_test

import (
	"math"
	"testing"

	"github.com/aretw0/espalier/pkg/geometry"
)

func almostEqual(a, b geometry.Point) bool {
	const eps = 1e-9
	return math.Abs(a.X-b.X) < eps && math.Abs(a.Y-b.Y) < eps
}

func TestView_RoundTrip(t *testing.T) {
	views := []geometry.View{
		geometry.NewView(0, 0),
		{Scale: 1.5, TranslateX: 120, TranslateY: -40, OriginX: 16, OriginY: 48},
		{Scale: 0.3, TranslateX: -900.5, TranslateY: 333.25, OriginX: 0, OriginY: 0},
		{Scale: 1.8, TranslateX: 0, TranslateY: 0, OriginX: 250, OriginY: 60},
	}
	points := []geometry.Point{
		{X: 0, Y: 0},
		{X: 137.5, Y: -12},
		{X: -4000, Y: 2200.75},
	}

	for _, v := range views {
		for _, p := range points {
			got := v.ToLogical(v.ToScreen(p))
			if !almostEqual(got, p) {
				t.Errorf("round-trip %+v through %+v: got %+v", p, v, got)
			}
		}
	}
}

func TestView_ZoomAtKeepsPointerFixed(t *testing.T) {
	v := geometry.View{Scale: 1, TranslateX: 50, TranslateY: -20, OriginX: 10, OriginY: 10}
	pointer := geometry.Point{X: 400, Y: 300}
	logical := v.ToLogical(pointer)

	for _, target := range []float64{0.5, 0.75, 1.3, 1.8, 5.0} {
		zoomed := v.ZoomAt(pointer, target)
		if zoomed.Scale < geometry.MinScale || zoomed.Scale > geometry.MaxScale {
			t.Fatalf("scale %v escaped bounds", zoomed.Scale)
		}
		back := zoomed.ToScreen(logical)
		if !almostEqual(back, pointer) {
			t.Errorf("zoom to %v moved anchor: %+v != %+v", target, back, pointer)
		}
	}
}

func TestView_ZoomClamped(t *testing.T) {
	v := geometry.NewView(0, 0)
	if got := v.ZoomAt(geometry.Point{}, 0.01).Scale; got != geometry.MinScale {
		t.Errorf("expected clamp to %v, got %v", geometry.MinScale, got)
	}
	if got := v.ZoomAt(geometry.Point{}, 99).Scale; got != geometry.MaxScale {
		t.Errorf("expected clamp to %v, got %v", geometry.MaxScale, got)
	}
}

func TestView_Pan(t *testing.T) {
	v := geometry.NewView(0, 0).Pan(30, -15).Pan(-10, 5)
	if v.TranslateX != 20 || v.TranslateY != -10 {
		t.Errorf("unexpected translation: %+v", v)
	}
	if v.Scale != 1 {
		t.Errorf("pan must not change scale, got %v", v.Scale)
	}
}
