package domain

import "math"

// Vec2 is a point or displacement on the board plane.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }

func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }

func (v Vec2) Scale(f float64) Vec2 { return Vec2{X: v.X * f, Y: v.Y * f} }

// Len returns the euclidean length of v.
func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }

// Dist returns the euclidean distance between two points.
func (v Vec2) Dist(o Vec2) float64 { return v.Sub(o).Len() }

// Transform is the board placement of a card, token or deck.
// The board is a flat plane; StackIndex is the discrete layer used for
// pile ordering and rendering.
type Transform struct {
	Pos        Vec2    `json:"pos"`
	Rotation   float64 `json:"rot"`
	StackIndex int     `json:"stack"`
}

// RotationStep is the granularity of card rotation in degrees.
const RotationStep = 30.0

// SnapRotation rounds deg to the nearest RotationStep and normalises it to [0, 360).
func SnapRotation(deg float64) float64 {
	snapped := math.Round(deg/RotationStep) * RotationStep
	snapped = math.Mod(snapped, 360)
	if snapped < 0 {
		snapped += 360
	}
	// math.Mod keeps the sign of -0.
	if snapped == 0 {
		return 0
	}
	return snapped
}
