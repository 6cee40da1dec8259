package pile

import (
	"math"

	"cardtable/internal/domain"
)

// Rect is an axis-aligned rectangle on the board.
type Rect struct {
	Min domain.Vec2
	Max domain.Vec2
}

// Center returns the midpoint of r.
func (r Rect) Center() domain.Vec2 {
	return domain.Vec2{X: (r.Min.X + r.Max.X) / 2, Y: (r.Min.Y + r.Max.Y) / 2}
}

// HalfSize returns half the width and height of r.
func (r Rect) HalfSize() domain.Vec2 {
	return domain.Vec2{X: (r.Max.X - r.Min.X) / 2, Y: (r.Max.Y - r.Min.Y) / 2}
}

// Overlaps reports whether the interiors of r and o intersect. Touching
// edges do not overlap.
func (r Rect) Overlaps(o Rect) bool {
	return r.Min.X < o.Max.X && r.Max.X > o.Min.X &&
		r.Min.Y < o.Max.Y && r.Max.Y > o.Min.Y
}

// Contains reports whether p lies inside r or on its edge.
func (r Rect) Contains(p domain.Vec2) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// Footprint returns the axis-aligned bounds of a size-sized rectangle
// centred on xf.Pos and rotated by xf.Rotation degrees.
func Footprint(xf domain.Transform, size domain.Vec2) Rect {
	rad := xf.Rotation * math.Pi / 180
	sin, cos := math.Abs(math.Sin(rad)), math.Abs(math.Cos(rad))
	half := domain.Vec2{
		X: (size.X*cos + size.Y*sin) / 2,
		Y: (size.X*sin + size.Y*cos) / 2,
	}
	return Rect{Min: xf.Pos.Sub(half), Max: xf.Pos.Add(half)}
}

// clearance keeps a pushed card from ending exactly on the blocker's edge
// after floating point rounding.
const clearance = 1e-6

// PushOut returns the smallest displacement of moving, along the direction
// from the blocker's centre to moving's centre, that ends the overlap.
// Coincident centres push along +Y. Non-overlapping rectangles are not moved.
func PushOut(moving, blocker Rect) domain.Vec2 {
	if !moving.Overlaps(blocker) {
		return domain.Vec2{}
	}
	delta := moving.Center().Sub(blocker.Center())
	dir := domain.Vec2{X: 0, Y: 1}
	if l := delta.Len(); l > 1e-9 {
		dir = delta.Scale(1 / l)
	}

	mh, bh := moving.HalfSize(), blocker.HalfSize()
	reach := domain.Vec2{X: mh.X + bh.X, Y: mh.Y + bh.Y}

	t := math.Inf(1)
	if dir.X != 0 {
		t = math.Min(t, (reach.X-math.Abs(delta.X))/math.Abs(dir.X))
	}
	if dir.Y != 0 {
		t = math.Min(t, (reach.Y-math.Abs(delta.Y))/math.Abs(dir.Y))
	}
	return dir.Scale(t + clearance)
}
