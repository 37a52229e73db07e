package track

import (
	"math"
	"testing"
)

func twoPieceTraj(t *testing.T) (*ParticleTrajectory, *LoopHelix, *LoopHelix) {
	t.Helper()
	first := testHelix(t)
	first.SetRange(NewTimeRange(-50, 0))
	second, err := NewLoopHelixFromParams(first.Params(), first.Mass(), first.Charge(), first.BNom(), NewTimeRange(0, 50))
	if err != nil {
		t.Fatalf("second piece: %v", err)
	}
	p := NewParticleTrajectory(first)
	p.Append(second)
	return p, first, second
}

func TestParticleTrajectoryNearestPiece(t *testing.T) {
	p, first, second := twoPieceTraj(t)
	cases := []struct {
		t    float64
		want *LoopHelix
	}{
		{-100.0, first}, // before the front: clamp to front
		{-10.0, first},
		{0.0, second}, // boundary belongs to the later piece
		{10.0, second},
		{100.0, second}, // past the back: clamp to back
	}
	for _, c := range cases {
		if got := p.NearestPiece(c.t); got != c.want {
			t.Errorf("NearestPiece(%v) picked the wrong piece", c.t)
		}
	}
}

func TestParticleTrajectoryRange(t *testing.T) {
	p, _, _ := twoPieceTraj(t)
	r := p.Range()
	if r.Begin != -50 || r.End != 50 {
		t.Errorf("range = %s, want [-50, 50)", r)
	}
}

func TestParticleTrajectoryAppendAdjustsBack(t *testing.T) {
	p, first, second := twoPieceTraj(t)
	if first.Range().End != second.Range().Begin {
		t.Errorf("front end %v must meet back begin %v", first.Range().End, second.Range().Begin)
	}
	third, err := NewLoopHelixFromParams(second.Params(), second.Mass(), second.Charge(), second.BNom(), NewTimeRange(10, 50))
	if err != nil {
		t.Fatalf("third piece: %v", err)
	}
	p.Append(third)
	if second.Range().End != 10 {
		t.Errorf("back end not adjusted: %v", second.Range().End)
	}
	if len(p.Pieces()) != 3 {
		t.Errorf("piece count %d", len(p.Pieces()))
	}
}

func TestParticleTrajectoryAppendOutOfOrderClamps(t *testing.T) {
	p, _, second := twoPieceTraj(t)
	// a piece beginning before the back piece is clamped, not fatal
	late, err := NewLoopHelixFromParams(second.Params(), second.Mass(), second.Charge(), second.BNom(), NewTimeRange(-20, 50))
	if err != nil {
		t.Fatalf("late piece: %v", err)
	}
	p.Append(late)
	if late.Range().Begin <= second.Range().Begin {
		t.Errorf("late piece begin %v not clamped past back begin", late.Range().Begin)
	}
	// begin times stay strictly increasing
	prev := math.Inf(-1)
	for _, piece := range p.Pieces() {
		if piece.Range().Begin <= prev {
			t.Fatalf("begin times not strictly increasing")
		}
		prev = piece.Range().Begin
	}
}

func TestParticleTrajectorySinglePieceExtendsFront(t *testing.T) {
	first := testHelix(t)
	first.SetRange(NewTimeRange(0, 50))
	p := NewParticleTrajectory(first)
	early, err := NewLoopHelixFromParams(first.Params(), first.Mass(), first.Charge(), first.BNom(), NewTimeRange(-10, 50))
	if err != nil {
		t.Fatalf("early piece: %v", err)
	}
	p.Append(early)
	if got := p.Front().Range().Begin; got > -10 {
		t.Errorf("front begin %v, want pulled back before -10", got)
	}
}

// TestPiecewiseMaterialKick reproduces the discrete material crossing: a
// momdir parameter shift equivalent to losing 0.5 MeV/c at t=0 must
// leave the position continuous while the momentum magnitude drops.
func TestPiecewiseMaterialKick(t *testing.T) {
	first := testHelix(t)
	first.SetRange(NewTimeRange(-50, 0))
	const dp = -0.5 // MeV/c
	frac := dp / first.Momentum()
	der, err := first.MomDeriv(0.0, MomDir)
	if err != nil {
		t.Fatalf("MomDeriv: %v", err)
	}
	pars := first.Params().Clone()
	pars.Vec = pars.Vec.Add(der.Scale(frac))
	second, err := NewLoopHelixFromParams(pars, first.Mass(), first.Charge(), first.BNom(), NewTimeRange(0, 50))
	if err != nil {
		t.Fatalf("kicked piece: %v", err)
	}
	p := NewParticleTrajectory(first)
	p.Append(second)

	const eps = 1e-9
	before := p.Position3(0 - eps)
	after := p.Position3(0 + eps)
	if gap := after.Sub(before).Mag(); gap > 1e-6 {
		t.Errorf("position discontinuity %v mm across the crossing", gap)
	}
	pBefore := p.Momentum3(0 - eps).Mag()
	pAfter := p.Momentum3(0 + eps).Mag()
	if math.Abs((pAfter-pBefore)-dp) > 1e-6 {
		t.Errorf("momentum jump %v, want %v", pAfter-pBefore, dp)
	}
}
