package model

import "math"

// MapCoord is a map coordinate in micrometers (1/1000 mm) on paper, with
// per-point flags describing its role within a coordinate sequence.
// The Y axis grows downwards.
type MapCoord struct {
	X, Y  int64
	Flags CoordFlags
}

// CoordFlags are the per-point flags carried by a MapCoord.
type CoordFlags uint8

const (
	// CurveStart marks the point as the start of a cubic bezier segment;
	// the two following points are its control points.
	CurveStart CoordFlags = 1 << iota
	// DashPoint forces a dash break or corner at this point.
	DashPoint
	// HolePoint ends the current sub-path; the next point starts a new one.
	HolePoint
	// ClosePoint is derived: the sub-path ending here is closed because
	// this point's position equals the sub-path's first point's position.
	ClosePoint
)

func (c MapCoord) IsCurveStart() bool { return c.Flags&CurveStart != 0 }
func (c MapCoord) IsDashPoint() bool  { return c.Flags&DashPoint != 0 }
func (c MapCoord) IsHolePoint() bool  { return c.Flags&HolePoint != 0 }
func (c MapCoord) IsClosePoint() bool { return c.Flags&ClosePoint != 0 }

func (c *MapCoord) SetCurveStart(on bool) { c.setFlag(CurveStart, on) }
func (c *MapCoord) SetDashPoint(on bool)  { c.setFlag(DashPoint, on) }
func (c *MapCoord) SetHolePoint(on bool)  { c.setFlag(HolePoint, on) }
func (c *MapCoord) SetClosePoint(on bool) { c.setFlag(ClosePoint, on) }

func (c *MapCoord) setFlag(f CoordFlags, on bool) {
	if on {
		c.Flags |= f
	} else {
		c.Flags &^= f
	}
}

// PositionEqualTo reports whether two coordinates share the same position,
// ignoring flags.
func (c MapCoord) PositionEqualTo(o MapCoord) bool {
	return c.X == o.X && c.Y == o.Y
}

// MapCoordF is a floating point coordinate in micrometers, used for
// intermediate geometry such as rectangle grid construction.
type MapCoordF struct {
	X, Y float64
}

func (c MapCoord) ToF() MapCoordF { return MapCoordF{float64(c.X), float64(c.Y)} }

func (c MapCoordF) ToCoord() MapCoord {
	return MapCoord{X: int64(c.X + 0.5*sign(c.X)), Y: int64(c.Y + 0.5*sign(c.Y))}
}

// ToCurveStartCoord rounds like ToCoord and sets the curve start flag.
func (c MapCoordF) ToCurveStartCoord() MapCoord {
	p := c.ToCoord()
	p.SetCurveStart(true)
	return p
}

func (c MapCoordF) Add(o MapCoordF) MapCoordF { return MapCoordF{c.X + o.X, c.Y + o.Y} }
func (c MapCoordF) Sub(o MapCoordF) MapCoordF { return MapCoordF{c.X - o.X, c.Y - o.Y} }
func (c MapCoordF) Scale(f float64) MapCoordF { return MapCoordF{c.X * f, c.Y * f} }

// Length is the euclidean norm in micrometers.
func (c MapCoordF) Length() float64 {
	return math.Hypot(c.X, c.Y)
}

// Angle is the direction of the vector in radians.
func (c MapCoordF) Angle() float64 {
	return math.Atan2(c.Y, c.X)
}

// Normalized returns the unit vector; the zero vector stays zero.
func (c MapCoordF) Normalized() MapCoordF {
	l := c.Length()
	if l == 0 {
		return c
	}
	return MapCoordF{c.X / l, c.Y / l}
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
