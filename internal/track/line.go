package track

import (
	"fmt"

	"github.com/banshee-data/trackfit/internal/geom"
)

// Line is an infinite straight trajectory with a finite validity range,
// used to model a sensor axis (a drift wire or a scintillator bar) along
// which a signal propagates at constant speed. Position at time t is
// p0 + dir·speed·(t - t0).
type Line struct {
	p0     geom.Vec3 // anchor point, the middle of the sensor
	dir    geom.Vec3 // unit direction of signal propagation
	speed  float64   // mm/ns
	t0     float64   // measurement time at the anchor
	length float64   // full sensor length in mm
	trange TimeRange
}

// NewLine builds a sensor axis from its anchor position, the measurement
// time at the anchor, the signal velocity vector, and the sensor length.
// The validity range spans the time the signal needs to traverse the
// sensor, centered on t0.
func NewLine(pos geom.Vec3, t0 float64, vel geom.Vec3, length float64) (Line, error) {
	speed := vel.Mag()
	if speed <= 0 || !vel.IsFinite() || !pos.IsFinite() {
		return Line{}, fmt.Errorf("line velocity %v: %w", vel, ErrInvalidArgument)
	}
	half := 0.5 * length / speed
	return Line{
		p0:     pos,
		dir:    vel.Unit(),
		speed:  speed,
		t0:     t0,
		length: length,
		trange: NewTimeRange(t0-half, t0+half),
	}, nil
}

// Position3 returns the point reached by the signal at time t.
func (l Line) Position3(t float64) geom.Vec3 {
	return l.p0.Add(l.dir.Scale(l.speed * (t - l.t0)))
}

// Direction returns the unit direction; it is time independent.
func (l Line) Direction() geom.Vec3 { return l.dir }

// Velocity returns the signal velocity vector.
func (l Line) Velocity() geom.Vec3 { return l.dir.Scale(l.speed) }

// Speed returns the signal speed in mm/ns.
func (l Line) Speed() float64 { return l.speed }

// T0 returns the measurement time at the anchor.
func (l Line) T0() float64 { return l.t0 }

// Length returns the full sensor length in mm.
func (l Line) Length() float64 { return l.length }

// Range returns the validity range.
func (l Line) Range() TimeRange { return l.trange }

// TimeAt returns the signal time at the projection of pos onto the axis.
func (l Line) TimeAt(pos geom.Vec3) float64 {
	s := pos.Sub(l.p0).Dot(l.dir)
	return l.t0 + s/l.speed
}

func (l Line) String() string {
	return fmt.Sprintf("Line{p0: %v, dir: %v, speed: %.4g, t0: %.4g, length: %.4g}",
		l.p0, l.dir, l.speed, l.t0, l.length)
}
