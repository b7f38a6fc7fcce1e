package geometry

import "math"

// Curve is a cubic Bézier segment between two connection anchors.
type Curve struct {
	Start, C1, C2, End Point
}

// ConnectionPath computes the curve between an output anchor and an input
// anchor. Two regimes keep connections legible however nodes are arranged:
//
// Forward (target right of or level with source): symmetric horizontal
// control points with offset max(0.45*|dx|, 80).
//
// Backward (target left of source, the loop-back case in decision trees):
// the curve routes outward and around instead of cutting through
// intervening nodes: offset max(120, 0.6*|dx|), control points displaced
// vertically by max(60, |dy|) toward the existing vertical delta, downward
// when dy is zero.
func ConnectionPath(source, target Point) Curve {
	dx := target.X - source.X
	dy := target.Y - source.Y

	if dx >= 0 {
		offset := math.Max(0.45*math.Abs(dx), 80)
		return Curve{
			Start: source,
			C1:    Point{X: source.X + offset, Y: source.Y},
			C2:    Point{X: target.X - offset, Y: target.Y},
			End:   target,
		}
	}

	offset := math.Max(120, 0.6*math.Abs(dx))
	vert := math.Max(60, math.Abs(dy))
	if dy < 0 {
		vert = -vert
	}
	return Curve{
		Start: source,
		C1:    Point{X: source.X + offset, Y: source.Y + vert},
		C2:    Point{X: target.X - offset, Y: target.Y + vert},
		End:   target,
	}
}

// At evaluates the curve at parameter t in [0, 1].
func (c Curve) At(t float64) Point {
	u := 1 - t
	b0 := u * u * u
	b1 := 3 * u * u * t
	b2 := 3 * u * t * t
	b3 := t * t * t
	return Point{
		X: b0*c.Start.X + b1*c.C1.X + b2*c.C2.X + b3*c.End.X,
		Y: b0*c.Start.Y + b1*c.C1.Y + b2*c.C2.Y + b3*c.End.Y,
	}
}

// Midpoint returns the curve point at t = 0.5, used for label anchoring.
func (c Curve) Midpoint() Point {
	return c.At(0.5)
}

// Flatten samples the curve into steps+1 points for renderers that draw
// polylines instead of Béziers.
func (c Curve) Flatten(steps int) []Point {
	if steps < 1 {
		steps = 1
	}
	pts := make([]Point, 0, steps+1)
	for i := 0; i <= steps; i++ {
		pts = append(pts, c.At(float64(i)/float64(steps)))
	}
	return pts
}
