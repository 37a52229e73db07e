package track

import (
	"errors"
	"math"
	"testing"

	"github.com/banshee-data/trackfit/internal/geom"
	"github.com/banshee-data/trackfit/internal/units"
)

// testHelix is the canonical single-turn electron: 105 MeV/c in a 1 T
// field, polar angle 0.7954, azimuth 0.5, charge -1, origin at the
// space-time origin.
func testHelix(t *testing.T) *LoopHelix {
	t.Helper()
	mom := 105.0
	cost := math.Cos(0.7954)
	sint := math.Sin(0.7954)
	phi := 0.5
	m4 := geom.Mom4{
		X: mom * sint * math.Cos(phi),
		Y: mom * sint * math.Sin(phi),
		Z: mom * cost,
		M: 0.511,
	}
	h, err := NewLoopHelix(geom.Vec4{}, m4, -1, 1.0, NewTimeRange(-50, 50))
	if err != nil {
		t.Fatalf("NewLoopHelix: %v", err)
	}
	return h
}

func TestHelixKinematicRoundTrip(t *testing.T) {
	h := testHelix(t)
	pos := h.Position3(0)
	if pos.Mag() > 1e-9 {
		t.Errorf("position at construction time = %v, want origin", pos)
	}
	mom := h.Momentum3(0)
	want := geom.Vec3{
		X: 105.0 * math.Sin(0.7954) * math.Cos(0.5),
		Y: 105.0 * math.Sin(0.7954) * math.Sin(0.5),
		Z: 105.0 * math.Cos(0.7954),
	}
	if mom.Sub(want).Mag() > 1e-9 {
		t.Errorf("momentum at construction time = %v, want %v", mom, want)
	}
	if math.Abs(h.Momentum()-105.0) > 1e-9 {
		t.Errorf("scalar momentum = %v, want 105", h.Momentum())
	}
}

func TestHelixRoundTripOffOrigin(t *testing.T) {
	m4 := geom.Mom4{X: 30.0, Y: -45.0, Z: 80.0, M: 105.66}
	pos := geom.Vec4{X: 120.0, Y: -35.0, Z: 410.0, T: 3.2}
	h, err := NewLoopHelix(pos, m4, 1, 1.1, NewTimeRange(-100, 100))
	if err != nil {
		t.Fatalf("NewLoopHelix: %v", err)
	}
	if got := h.Position3(pos.T); got.Sub(pos.Vect()).Mag() > 1e-9 {
		t.Errorf("position round trip: %v != %v", got, pos.Vect())
	}
	if got := h.Momentum3(pos.T); got.Sub(m4.Vect()).Mag() > 1e-9 {
		t.Errorf("momentum round trip: %v != %v", got, m4.Vect())
	}
}

func TestHelixParamsRoundTrip(t *testing.T) {
	h := testHelix(t)
	h2, err := NewLoopHelixFromParams(h.Params(), h.Mass(), h.Charge(), h.BNom(), h.Range())
	if err != nil {
		t.Fatalf("NewLoopHelixFromParams: %v", err)
	}
	for _, tv := range []float64{-7.0, 0.0, 4.2} {
		if h.Position3(tv).Sub(h2.Position3(tv)).Mag() > 1e-12 {
			t.Errorf("position differs at t=%v", tv)
		}
		if h.Momentum3(tv).Sub(h2.Momentum3(tv)).Mag() > 1e-12 {
			t.Errorf("momentum differs at t=%v", tv)
		}
	}
}

func TestHelixBetaBounded(t *testing.T) {
	h := testHelix(t)
	if b := h.Beta(); b <= 0 || b > 1 {
		t.Errorf("beta = %v, must be in (0, 1]", b)
	}
	// velocity magnitude must equal c*beta
	v := h.Velocity(1.7).Mag()
	if math.Abs(v-units.CLight*h.Beta()) > 1e-9 {
		t.Errorf("|v| = %v, want %v", v, units.CLight*h.Beta())
	}
}

func TestHelixVelocityIsPositionDerivative(t *testing.T) {
	h := testHelix(t)
	const dt = 1e-6
	for _, tv := range []float64{-5.0, 0.0, 3.0} {
		num := h.Position3(tv + dt).Sub(h.Position3(tv - dt)).Scale(1.0 / (2 * dt))
		vel := h.Velocity(tv)
		if num.Sub(vel).Mag() > 1e-4 {
			t.Errorf("t=%v: velocity %v differs from position derivative %v", tv, vel, num)
		}
	}
}

func TestHelixBasisOrthonormal(t *testing.T) {
	h := testHelix(t)
	for _, tv := range []float64{-8.0, 0.0, 2.5, 9.0} {
		md, err := h.Direction(tv, MomDir)
		if err != nil {
			t.Fatalf("MomDir: %v", err)
		}
		pd, err := h.Direction(tv, PerpDir)
		if err != nil {
			t.Fatalf("PerpDir: %v", err)
		}
		fd, err := h.Direction(tv, PhiDir)
		if err != nil {
			t.Fatalf("PhiDir: %v", err)
		}
		for _, d := range []geom.Vec3{md, pd, fd} {
			if math.Abs(d.Mag()-1.0) > 1e-9 {
				t.Errorf("t=%v: basis vector %v not unit", tv, d)
			}
		}
		if math.Abs(md.Dot(pd)) > 1e-9 || math.Abs(md.Dot(fd)) > 1e-9 || math.Abs(pd.Dot(fd)) > 1e-9 {
			t.Errorf("t=%v: basis not orthogonal", tv)
		}
		// right-handed cyclic: perpdir x phidir = momdir
		if pd.Cross(fd).Sub(md).Mag() > 1e-9 {
			t.Errorf("t=%v: basis not right-handed", tv)
		}
		// momdir along the momentum
		if md.Sub(h.Momentum3(tv).Unit()).Mag() > 1e-12 {
			t.Errorf("t=%v: momdir not along momentum", tv)
		}
	}
}

func TestHelixDirectionInvalidBasis(t *testing.T) {
	h := testHelix(t)
	if _, err := h.Direction(0, MomBasis(17)); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := h.MomDeriv(0, MomBasis(17)); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

// TestHelixMomDerivMomdir checks the defining property of the momdir
// derivative: a fractional momentum change at fixed position and
// direction. Shifting the parameters by momDeriv*delta must scale the
// momentum by (1+delta) and leave the position at the reference time
// unchanged to first order.
func TestHelixMomDerivMomdir(t *testing.T) {
	h := testHelix(t)
	const tref = 2.0
	const delta = 1e-6
	der, err := h.MomDeriv(tref, MomDir)
	if err != nil {
		t.Fatalf("MomDeriv: %v", err)
	}
	pars := h.Params().Clone()
	pars.Vec = pars.Vec.Add(der.Scale(delta))
	h2, err := NewLoopHelixFromParams(pars, h.Mass(), h.Charge(), h.BNom(), h.Range())
	if err != nil {
		t.Fatalf("shifted helix: %v", err)
	}
	// position unchanged to first order
	dpos := h2.Position3(tref).Sub(h.Position3(tref)).Mag()
	if dpos > 1e-6 {
		t.Errorf("position moved by %v under momdir shift", dpos)
	}
	// momentum scaled fractionally
	dp := (h2.Momentum() - h.Momentum()) / h.Momentum()
	if math.Abs(dp-delta) > 1e-9 {
		t.Errorf("fractional momentum change %v, want %v", dp, delta)
	}
	// direction unchanged to first order
	d1, _ := h.Direction(tref, MomDir)
	d2, _ := h2.Direction(tref, MomDir)
	if d1.Sub(d2).Mag() > 1e-6 {
		t.Errorf("direction moved by %v under momdir shift", d1.Sub(d2).Mag())
	}
}

// TestHelixMomDerivPerpdir checks that a polar-bend shift preserves the
// momentum magnitude and the position at the reference time.
func TestHelixMomDerivPerpdir(t *testing.T) {
	h := testHelix(t)
	const tref = -3.0
	const delta = 1e-6
	der, err := h.MomDeriv(tref, PerpDir)
	if err != nil {
		t.Fatalf("MomDeriv: %v", err)
	}
	pars := h.Params().Clone()
	pars.Vec = pars.Vec.Add(der.Scale(delta))
	h2, err := NewLoopHelixFromParams(pars, h.Mass(), h.Charge(), h.BNom(), h.Range())
	if err != nil {
		t.Fatalf("shifted helix: %v", err)
	}
	if dpos := h2.Position3(tref).Sub(h.Position3(tref)).Mag(); dpos > 1e-6 {
		t.Errorf("position moved by %v under perpdir shift", dpos)
	}
	if dp := math.Abs(h2.Momentum()-h.Momentum()) / h.Momentum(); dp > 1e-9 {
		t.Errorf("momentum magnitude changed fractionally by %v under bend", dp)
	}
}

func TestHelixDXDParFiniteDifference(t *testing.T) {
	h := testHelix(t)
	const tref = 4.0
	dxdp := h.DXDPar(tref)
	steps := [NParams]float64{1e-4, 1e-4, 1e-4, 1e-4, 1e-7, 1e-7}
	for i := 0; i < NParams; i++ {
		up := h.Params().Clone()
		up.Vec[i] += steps[i]
		dn := h.Params().Clone()
		dn.Vec[i] -= steps[i]
		hu, err := NewLoopHelixFromParams(up, h.Mass(), h.Charge(), h.BNom(), h.Range())
		if err != nil {
			t.Fatalf("param %d up: %v", i, err)
		}
		hd, err := NewLoopHelixFromParams(dn, h.Mass(), h.Charge(), h.BNom(), h.Range())
		if err != nil {
			t.Fatalf("param %d down: %v", i, err)
		}
		num := hu.Position3(tref).Sub(hd.Position3(tref)).Scale(1.0 / (2 * steps[i]))
		got := geom.Vec3{X: dxdp[0][i], Y: dxdp[1][i], Z: dxdp[2][i]}
		if num.Sub(got).Mag() > 1e-4*(1+got.Mag()) {
			t.Errorf("%s: dX/dP = %v, finite difference %v", ParamName(i), got, num)
		}
	}
}

func TestHelixDegenerate(t *testing.T) {
	// zero transverse momentum: rad = 0
	if _, err := NewLoopHelix(geom.Vec4{}, geom.Mom4{Z: 100, M: 0.511}, -1, 1.0, InfiniteRange()); !errors.Is(err, ErrDegenerateHelix) {
		t.Errorf("expected ErrDegenerateHelix for rad=0, got %v", err)
	}
	// zero longitudinal momentum: lam = 0
	if _, err := NewLoopHelix(geom.Vec4{}, geom.Mom4{X: 100, M: 0.511}, -1, 1.0, InfiniteRange()); !errors.Is(err, ErrDegenerateHelix) {
		t.Errorf("expected ErrDegenerateHelix for lam=0, got %v", err)
	}
}

func TestHelixInvalidInputs(t *testing.T) {
	m4 := geom.Mom4{X: 50, Y: 50, Z: 50, M: 0.511}
	if _, err := NewLoopHelix(geom.Vec4{X: math.NaN()}, m4, -1, 1.0, InfiniteRange()); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for NaN position, got %v", err)
	}
	if _, err := NewLoopHelix(geom.Vec4{}, m4, 0, 1.0, InfiniteRange()); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for neutral particle, got %v", err)
	}
	if _, err := NewLoopHelix(geom.Vec4{}, m4, -1, 0.0, InfiniteRange()); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for zero field, got %v", err)
	}
}

func TestHelixZPeriod(t *testing.T) {
	h := testHelix(t)
	// one full turn advances z by 2*pi*lam
	om := h.Omega()
	turn := 2 * math.Pi / math.Abs(om)
	dz := h.Position3(turn).Z - h.Position3(0).Z
	want := 2 * math.Pi * h.Params().Vec[IdxLam] * math.Copysign(1.0, om)
	if math.Abs(dz-want) > 1e-9*(1+math.Abs(want)) {
		t.Errorf("z advance per turn = %v, want %v", dz, want)
	}
}
