package rope

import (
	"math"
	"testing"
)

func TestVec3Arithmetic(t *testing.T) {
	a := NewVec3(1, 2, 3)
	b := NewVec3(4, -5, 6)

	if !a.Plus(b).IsEqualTo(NewVec3(5, -3, 9)) {
		t.Errorf("Plus: got %+v", a.Plus(b))
	}
	if !a.Minus(b).IsEqualTo(NewVec3(-3, 7, -3)) {
		t.Errorf("Minus: got %+v", a.Minus(b))
	}
	if !a.Times(2).IsEqualTo(NewVec3(2, 4, 6)) {
		t.Errorf("Times: got %+v", a.Times(2))
	}
	if a.Dot(b) != 4-10+18 {
		t.Errorf("Dot: got %v", a.Dot(b))
	}
}

func TestVec3CrossIsOrthogonal(t *testing.T) {
	a := NewVec3(1, 2, 3)
	b := NewVec3(-2, 1, 0.5)
	c := a.Cross(b)

	if math.Abs(c.Dot(a)) > 1e-12 || math.Abs(c.Dot(b)) > 1e-12 {
		t.Errorf("cross product %+v not orthogonal to operands", c)
	}
	if !NewVec3(1, 0, 0).Cross(NewVec3(0, 1, 0)).IsEqualTo(NewVec3(0, 0, 1)) {
		t.Error("x cross y != z")
	}
}

func TestVec3Normalize(t *testing.T) {
	v := NewVec3(3, 4, 0).Normalize()
	if math.Abs(v.Magnitude()-1) > 1e-12 {
		t.Errorf("normalized magnitude=%v", v.Magnitude())
	}
	if !(Vec3{}).Normalize().IsZero() {
		t.Error("normalizing zero vector must stay zero")
	}
}

func TestVec3Distance(t *testing.T) {
	if d := NewVec3(1, 1, 1).DistanceTo(NewVec3(1, 1, 4)); d != 3 {
		t.Errorf("distance=%v, want 3", d)
	}
	mid := NewVec3(0, 0, 0).Midpoint(NewVec3(2, 4, -6))
	if !mid.IsEqualTo(NewVec3(1, 2, -3)) {
		t.Errorf("midpoint=%+v", mid)
	}
}
