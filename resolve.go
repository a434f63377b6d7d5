package arena

import "fmt"

// DefaultPushOut is how far a resolution moves a body off what it hit.
// Only enough to break contact, not the full penetration depth.
const DefaultPushOut = 0.01

// ResolveWallCollision moves body off an immovable wall and removes the
// velocity component pointing into it, leaving the body sliding along the wall.
func ResolveWallCollision(body, wall Hitbox, pushOut float64) (Hitbox, error) {
	normal := body.NormalFrom(wall.PlacedShape)
	if normal.Degenerate() {
		return body, fmt.Errorf("wall collision at %v: %w", body.Pos, ErrDegenerateNormal)
	}

	return slide(body, normal.Dir, pushOut), nil
}

// ResolveBodyCollision pushes both bodies apart along their shared normal and
// projects each one's own velocity onto the contact tangent. Momentum is not
// exchanged.
func ResolveBodyCollision(a, b Hitbox, pushOut float64) (Hitbox, Hitbox, error) {
	normal := a.NormalFrom(b.PlacedShape)
	if normal.Degenerate() {
		return a, b, fmt.Errorf("body collision at %v: %w", a.Pos, ErrDegenerateNormal)
	}

	return slide(a, normal.Dir, pushOut), slide(b, normal.Dir.Neg(), pushOut), nil
}

// slide moves hb along n and keeps only the part of its velocity tangent to n.
func slide(hb Hitbox, n Vector, pushOut float64) Hitbox {
	pos := hb.Pos.Add(n.Mult(pushOut))

	tangent := n.ReversePerp()
	vel := tangent.Mult(hb.Vel.Dot(tangent))

	return hb.Shape.Place(pos).Moving(vel)
}
