package geometry

import "math"

// Quadrant names one of the four children of a subdivided box.
// Y grows downwards (screen coordinates), so North is the smaller Y half.
type Quadrant int

const (
	NorthEast Quadrant = iota
	NorthWest
	SouthEast
	SouthWest
)

func (q Quadrant) String() string {
	switch q {
	case NorthEast:
		return "NE"
	case NorthWest:
		return "NW"
	case SouthEast:
		return "SE"
	case SouthWest:
		return "SW"
	default:
		return "?"
	}
}

// Rectangle is an axis aligned box described by its center and half extents.
type Rectangle struct {
	Center     Vector2D
	HalfWidth  float64
	HalfHeight float64
}

// NewRectangle creates a box centered on (cx, cy).
func NewRectangle(cx, cy, halfWidth, halfHeight float64) Rectangle {
	return Rectangle{Center: Vector2D{X: cx, Y: cy}, HalfWidth: halfWidth, HalfHeight: halfHeight}
}

// RectangleFromSize covers [0, width] x [0, height].
func RectangleFromSize(width, height float64) Rectangle {
	return NewRectangle(width/2, height/2, width/2, height/2)
}

// Valid reports whether both half extents are strictly positive and finite.
func (r Rectangle) Valid() bool {
	return r.HalfWidth > 0 && r.HalfHeight > 0 &&
		!math.IsInf(r.HalfWidth, 0) && !math.IsInf(r.HalfHeight, 0) &&
		r.Center.IsFinite()
}

// Min is the top-left corner.
func (r Rectangle) Min() Vector2D {
	return Vector2D{X: r.Center.X - r.HalfWidth, Y: r.Center.Y - r.HalfHeight}
}

// Max is the bottom-right corner.
func (r Rectangle) Max() Vector2D {
	return Vector2D{X: r.Center.X + r.HalfWidth, Y: r.Center.Y + r.HalfHeight}
}

// Contains reports whether p lies inside the closed box.
func (r Rectangle) Contains(p Vector2D) bool {
	return math.Abs(p.X-r.Center.X) <= r.HalfWidth &&
		math.Abs(p.Y-r.Center.Y) <= r.HalfHeight
}

// IntersectsCircle reports whether the closed disc of the given radius
// centered on c touches the box. The circle center is clamped onto the box
// and the clamped point compared with the radius.
func (r Rectangle) IntersectsCircle(c Vector2D, radius float64) bool {
	if radius < 0 {
		return false
	}
	lo, hi := r.Min(), r.Max()
	closest := Vector2D{
		X: math.Max(lo.X, math.Min(c.X, hi.X)),
		Y: math.Max(lo.Y, math.Min(c.Y, hi.Y)),
	}
	return closest.DistanceSquaredTo(c) <= radius*radius
}

// Bounds returns the corners of the box.
func (r Rectangle) Bounds() Bounds {
	return Bounds{Min: r.Min(), Max: r.Max()}
}
