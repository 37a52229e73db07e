package geom

import (
	"math"
	"testing"
)

func TestVec3Cross(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	z := x.Cross(y)
	if z != (Vec3{0, 0, 1}) {
		t.Errorf("x cross y = %v, want +z", z)
	}
	if y.Cross(x) != (Vec3{0, 0, -1}) {
		t.Errorf("cross product must be antisymmetric")
	}
}

func TestVec3Unit(t *testing.T) {
	v := Vec3{3, 4, 12}
	u := v.Unit()
	if math.Abs(u.Mag()-1.0) > 1e-15 {
		t.Errorf("unit vector magnitude %v", u.Mag())
	}
	// Direction preserved.
	if math.Abs(u.Dot(v)-v.Mag()) > 1e-12 {
		t.Errorf("unit vector not parallel to original")
	}
	zero := Vec3{}
	if zero.Unit() != zero {
		t.Errorf("unit of zero vector must stay zero")
	}
}

func TestVec3Finite(t *testing.T) {
	if !(Vec3{1, 2, 3}).IsFinite() {
		t.Error("finite vector reported non-finite")
	}
	if (Vec3{math.NaN(), 0, 0}).IsFinite() {
		t.Error("NaN vector reported finite")
	}
	if (Vec3{0, math.Inf(1), 0}).IsFinite() {
		t.Error("Inf vector reported finite")
	}
}

func TestMom4Kinematics(t *testing.T) {
	m := Mom4{X: 3, Y: 4, Z: 12, M: 5}
	if math.Abs(m.P()-13) > 1e-12 {
		t.Errorf("P = %v, want 13", m.P())
	}
	if math.Abs(m.Pt()-5) > 1e-12 {
		t.Errorf("Pt = %v, want 5", m.Pt())
	}
	if math.Abs(m.E()-math.Sqrt(194)) > 1e-12 {
		t.Errorf("E = %v", m.E())
	}
}
