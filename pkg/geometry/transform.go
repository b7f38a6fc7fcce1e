// Coordinate transforms between screen space and the logical workspace.
// Node positions are stored in logical units; the view applies pan and
// zoom on top without ever touching stored positions.

package geometry

// Zoom bounds for the workspace view.
const (
	MinScale = 0.3
	MaxScale = 1.8
)

// Point is a 2D coordinate, in whichever space the context implies.
type Point struct {
	X, Y float64
}

// View holds the presentational transform of the workspace: a uniform
// scale and a translation, both in screen units. OriginX/OriginY is the
// workspace container's position on screen. View state is never persisted.
type View struct {
	Scale      float64
	TranslateX float64
	TranslateY float64
	OriginX    float64
	OriginY    float64
}

// NewView returns an identity view with the given container origin.
func NewView(originX, originY float64) View {
	return View{Scale: 1, OriginX: originX, OriginY: originY}
}

// ClampScale bounds s to [MinScale, MaxScale].
func ClampScale(s float64) float64 {
	if s < MinScale {
		return MinScale
	}
	if s > MaxScale {
		return MaxScale
	}
	return s
}

// ToLogical converts a screen point to logical workspace coordinates by
// applying the inverse pan/zoom transform.
func (v View) ToLogical(screen Point) Point {
	return Point{
		X: (screen.X - v.OriginX - v.TranslateX) / v.Scale,
		Y: (screen.Y - v.OriginY - v.TranslateY) / v.Scale,
	}
}

// ToScreen converts a logical point to screen coordinates. Exact inverse
// of ToLogical for any valid scale.
func (v View) ToScreen(logical Point) Point {
	return Point{
		X: logical.X*v.Scale + v.TranslateX + v.OriginX,
		Y: logical.Y*v.Scale + v.TranslateY + v.OriginY,
	}
}

// Pan shifts the view translation by a screen-space delta.
func (v View) Pan(dx, dy float64) View {
	v.TranslateX += dx
	v.TranslateY += dy
	return v
}

// ZoomAt rescales the view to newScale (clamped) keeping the logical point
// under the given screen position fixed on screen. This is what makes wheel
// zoom feel anchored at the cursor instead of the canvas origin.
func (v View) ZoomAt(pointer Point, newScale float64) View {
	next := v
	next.Scale = ClampScale(newScale)
	anchor := v.ToLogical(pointer)
	// Solve translate so that anchor maps back to pointer at the new scale.
	next.TranslateX = pointer.X - v.OriginX - anchor.X*next.Scale
	next.TranslateY = pointer.Y - v.OriginY - anchor.Y*next.Scale
	return next
}
