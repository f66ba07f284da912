package geometry

import "math"

// Bounds is an axis aligned box stored by its corners. It is the cell type
// of the spatial index: both children of a split take the parent's Mid as
// their shared edge, so a point on a dividing line is exactly on the border
// of the cell that claims it, whatever the rounding of the region.
type Bounds struct {
	Min Vector2D
	Max Vector2D
}

// Mid is the split point used by QuadrantOf and Quadrant.
func (b Bounds) Mid() Vector2D {
	return Vector2D{
		X: b.Min.X + (b.Max.X-b.Min.X)/2,
		Y: b.Min.Y + (b.Max.Y-b.Min.Y)/2,
	}
}

// Rectangle converts back to center and half extents, for display.
func (b Bounds) Rectangle() Rectangle {
	hw, hh := (b.Max.X-b.Min.X)/2, (b.Max.Y-b.Min.Y)/2
	return NewRectangle(b.Min.X+hw, b.Min.Y+hh, hw, hh)
}

// Contains reports whether p lies inside the closed box.
func (b Bounds) Contains(p Vector2D) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// IntersectsCircle reports whether the closed disc of the given radius
// centered on c touches the box, by clamping c onto the box.
func (b Bounds) IntersectsCircle(c Vector2D, radius float64) bool {
	if radius < 0 {
		return false
	}
	closest := Vector2D{
		X: math.Max(b.Min.X, math.Min(c.X, b.Max.X)),
		Y: math.Max(b.Min.Y, math.Min(c.Y, b.Max.Y)),
	}
	return closest.DistanceSquaredTo(c) <= radius*radius
}

// QuadrantOf picks the child quadrant claiming p. Points on the vertical
// dividing line go east and points on the horizontal one go south, so every
// point of the box belongs to exactly one quadrant.
func (b Bounds) QuadrantOf(p Vector2D) Quadrant {
	mid := b.Mid()
	east := p.X >= mid.X
	north := p.Y < mid.Y
	switch {
	case north && east:
		return NorthEast
	case north:
		return NorthWest
	case east:
		return SouthEast
	default:
		return SouthWest
	}
}

// Quadrant returns the child box for q.
func (b Bounds) Quadrant(q Quadrant) Bounds {
	mid := b.Mid()
	switch q {
	case NorthEast:
		return Bounds{Min: Vector2D{X: mid.X, Y: b.Min.Y}, Max: Vector2D{X: b.Max.X, Y: mid.Y}}
	case NorthWest:
		return Bounds{Min: b.Min, Max: mid}
	case SouthEast:
		return Bounds{Min: mid, Max: b.Max}
	default:
		return Bounds{Min: Vector2D{X: b.Min.X, Y: mid.Y}, Max: Vector2D{X: mid.X, Y: b.Max.Y}}
	}
}
