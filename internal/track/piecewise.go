package track

import (
	"fmt"
	"log"
	"sort"

	"github.com/banshee-data/trackfit/internal/geom"
)

// ParticleTrajectory is an ordered, contiguous sequence of helix pieces
// describing a particle whose momentum changes discretely at material
// crossings. Piece i+1 begins where piece i ends, to within TBuff, and
// begin times are strictly increasing.
type ParticleTrajectory struct {
	pieces []*LoopHelix
}

// NewParticleTrajectory starts a trajectory from a single piece.
func NewParticleTrajectory(h *LoopHelix) *ParticleTrajectory {
	return &ParticleTrajectory{pieces: []*LoopHelix{h}}
}

// Pieces returns the underlying piece slice in ascending begin-time
// order. Callers must not reorder it.
func (p *ParticleTrajectory) Pieces() []*LoopHelix { return p.pieces }

// Front returns the earliest piece.
func (p *ParticleTrajectory) Front() *LoopHelix { return p.pieces[0] }

// Back returns the latest piece.
func (p *ParticleTrajectory) Back() *LoopHelix { return p.pieces[len(p.pieces)-1] }

// Range returns the union of the piece ranges.
func (p *ParticleTrajectory) Range() TimeRange {
	return NewTimeRange(p.Front().Range().Begin, p.Back().Range().End)
}

// Mass returns the particle mass; all pieces share it.
func (p *ParticleTrajectory) Mass() float64 { return p.Front().Mass() }

// Charge returns the particle charge; all pieces share it.
func (p *ParticleTrajectory) Charge() int { return p.Front().Charge() }

// Append adds a new piece after the current back piece. The new piece's
// begin must not precede the back piece's begin; an earlier begin, even
// one within TBuff of it, is logged and clamped to TBuff past the back
// piece's begin rather than aborting the fit. When the container holds a
// single piece the front piece's begin is instead pulled back to
// accommodate. On success the previous back piece ends where the new
// piece begins.
func (p *ParticleTrajectory) Append(h *LoopHelix) {
	back := p.Back()
	if h.Range().Begin < back.Range().Begin {
		if len(p.pieces) == 1 {
			// single piece: extend the front backwards instead
			front := p.Front()
			front.SetRange(NewTimeRange(h.Range().Begin-TBuff, front.Range().End))
		} else {
			log.Printf("[Trajectory] append out of order: piece begin %g before back begin %g, clamping",
				h.Range().Begin, back.Range().Begin)
			h.SetRange(NewTimeRange(back.Range().Begin+TBuff, h.Range().End))
		}
	}
	back = p.Back()
	back.SetRange(NewTimeRange(back.Range().Begin, h.Range().Begin))
	p.pieces = append(p.pieces, h)
}

// NearestPiece returns the piece whose range contains t. Times before
// the first piece select the first; times after the last select the
// last.
func (p *ParticleTrajectory) NearestPiece(t float64) *LoopHelix {
	return p.pieces[p.nearestIndex(t)]
}

// NearestIndex returns the index of the piece whose range contains t,
// clamped to the end pieces.
func (p *ParticleTrajectory) NearestIndex(t float64) int { return p.nearestIndex(t) }

func (p *ParticleTrajectory) nearestIndex(t float64) int {
	n := len(p.pieces)
	if n == 1 || t < p.pieces[0].Range().End {
		return 0
	}
	// first piece whose end is beyond t
	i := sort.Search(n, func(i int) bool { return t < p.pieces[i].Range().End })
	if i >= n {
		return n - 1
	}
	return i
}

// Position3 delegates to the nearest piece.
func (p *ParticleTrajectory) Position3(t float64) geom.Vec3 {
	return p.NearestPiece(t).Position3(t)
}

// Momentum3 delegates to the nearest piece.
func (p *ParticleTrajectory) Momentum3(t float64) geom.Vec3 {
	return p.NearestPiece(t).Momentum3(t)
}

// Momentum returns the scalar momentum at t.
func (p *ParticleTrajectory) Momentum(t float64) float64 {
	return p.NearestPiece(t).Momentum()
}

// Direction delegates to the nearest piece.
func (p *ParticleTrajectory) Direction(t float64, basis MomBasis) (geom.Vec3, error) {
	return p.NearestPiece(t).Direction(t, basis)
}

func (p *ParticleTrajectory) String() string {
	return fmt.Sprintf("ParticleTrajectory{%d pieces, range %s}", len(p.pieces), p.Range())
}
