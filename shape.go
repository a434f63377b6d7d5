package arena

import "math"

// touchSlop absorbs the floating point error left in positions extrapolated
// to a predicted contact time. Shapes closer than this are touching.
const touchSlop = 1e-9

// Shape is an axis-aligned rectangle. Hitboxes never rotate.
type Shape struct {
	W, H float64
}

func NewRect(w, h float64) Shape {
	return Shape{W: w, H: h}
}

func NewSquare(size float64) Shape {
	return Shape{W: size, H: size}
}

// Place returns the shape centered on pos.
func (s Shape) Place(pos Vector) PlacedShape {
	return PlacedShape{Pos: pos, Shape: s}
}

type PlacedShape struct {
	Pos Vector
	Shape
}

func (p PlacedShape) BB() BB {
	return NewBBForExtents(p.Pos, p.W*0.5, p.H*0.5)
}

// Moving attaches a velocity, producing the unit the index stores.
func (p PlacedShape) Moving(vel Vector) Hitbox {
	return Hitbox{PlacedShape: p, Vel: vel}
}

func (p PlacedShape) Still() Hitbox {
	return Hitbox{PlacedShape: p}
}

// reach is the half extent of the minkowski sum of both rectangles.
func (p PlacedShape) reach(other PlacedShape) Vector {
	return Vector{(p.W + other.W) * 0.5, (p.H + other.H) * 0.5}
}

// Overlaps is a closed test, touching shapes overlap.
func (p PlacedShape) Overlaps(other PlacedShape) bool {
	d := p.Pos.Sub(other.Pos)
	h := p.reach(other)
	return math.Abs(d.X) <= h.X+touchSlop && math.Abs(d.Y) <= h.Y+touchSlop
}

// Separation is the gap along the most separated axis, negative when the
// shapes overlap.
func (p PlacedShape) Separation(other PlacedShape) float64 {
	d := p.Pos.Sub(other.Pos)
	h := p.reach(other)
	return math.Max(math.Abs(d.X)-h.X, math.Abs(d.Y)-h.Y)
}

// Normal is a unit contact direction and the overlap along it.
type Normal struct {
	Dir Vector
	// Len is the penetration depth along Dir, negative when apart.
	Len float64

	degenerate bool
}

// Degenerate reports whether the shapes were exactly concentric, in which
// case Dir is the fixed fallback +X and carries no information.
func (n Normal) Degenerate() bool {
	return n.degenerate
}

// NormalFrom points from other toward p along the axis of least penetration.
// Ties go to the X axis.
func (p PlacedShape) NormalFrom(other PlacedShape) Normal {
	d := p.Pos.Sub(other.Pos)
	h := p.reach(other)
	px := h.X - math.Abs(d.X)
	py := h.Y - math.Abs(d.Y)

	n := Normal{degenerate: d.X == 0 && d.Y == 0}
	if px <= py {
		n.Dir = Vector{sign(d.X), 0}
		n.Len = px
	} else {
		n.Dir = Vector{0, sign(d.Y)}
		n.Len = py
	}
	return n
}

func sign(f float64) float64 {
	if f < 0 {
		return -1
	}
	return 1
}

// Hitbox is a placed shape bound to a velocity.
type Hitbox struct {
	PlacedShape
	Vel Vector
}

// At extrapolates the placement dt into the future.
func (hb Hitbox) At(dt float64) Hitbox {
	hb.Pos = hb.Pos.Add(hb.Vel.Mult(dt))
	return hb
}

// contactInterval solves for the times, relative to the placement of a and b,
// during which the two boxes are within slop of each other. The interval is
// empty when lo > hi and unbounded on sides where the relative motion stops.
func contactInterval(a, b Hitbox, slop float64) (lo, hi float64) {
	d := b.Pos.Sub(a.Pos)
	v := b.Vel.Sub(a.Vel)
	h := a.reach(b.PlacedShape)

	xlo, xhi := axisInterval(d.X, v.X, h.X+slop)
	ylo, yhi := axisInterval(d.Y, v.Y, h.Y+slop)
	return max(xlo, ylo), min(xhi, yhi)
}

func axisInterval(d, v, h float64) (float64, float64) {
	if v == 0 {
		if math.Abs(d) <= h {
			return math.Inf(-1), math.Inf(1)
		}
		return math.Inf(1), math.Inf(-1)
	}

	t1 := (-h - d) / v
	t2 := (h - d) / v
	if t1 > t2 {
		t1, t2 = t2, t1
	}
	return t1, t2
}
