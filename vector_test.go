package arena

import (
	"testing"
)

func TestVector_Normalize(t *testing.T) {
	v := Vector{}
	u := v.Normalize()
	if u.X != 0.0 || u.Y != 0.0 {
		t.Errorf("Expected zero vector, got %v", u)
	}
}

func TestVector_ReversePerp(t *testing.T) {
	n := Vector{-1, 0}
	tangent := n.ReversePerp()
	if tangent.Dot(n) != 0 {
		t.Errorf("Expected tangent perpendicular to %v, got %v", n, tangent)
	}
	if tangent.Length() != 1 {
		t.Errorf("Expected unit tangent, got %v", tangent)
	}
}

func TestVector_MaxAbs(t *testing.T) {
	if m := (Vector{-7, 3}).MaxAbs(); m != 7 {
		t.Errorf("Expected 7, got %f", m)
	}
}
