package track

import (
	"fmt"

	"github.com/banshee-data/trackfit/internal/units"
)

// TBuff is the time buffer (ns) that keeps adjacent trajectory pieces
// from overlapping and disambiguates coincident effects.
const TBuff = units.TBuff

// TimeRange is a half-open time interval [Begin, End) in ns. A range
// with Begin > End is treated as infinite; InfiniteRange constructs one.
type TimeRange struct {
	Begin, End float64
}

// InfiniteRange returns a range containing every time.
func InfiniteRange() TimeRange { return TimeRange{1.0, -1.0} }

// NewTimeRange returns the range [begin, end).
func NewTimeRange(begin, end float64) TimeRange { return TimeRange{begin, end} }

// Infinite reports whether the range contains every time.
func (r TimeRange) Infinite() bool { return r.Begin > r.End }

// Contains reports whether t lies in [Begin, End).
func (r TimeRange) Contains(t float64) bool {
	return r.Infinite() || (t >= r.Begin && t < r.End)
}

// Overlaps reports whether the two ranges intersect. This is the
// conventional interval test; an infinite range overlaps everything.
func (r TimeRange) Overlaps(o TimeRange) bool {
	if r.Infinite() || o.Infinite() {
		return true
	}
	return r.Begin < o.End && o.Begin < r.End
}

// Envelops reports whether o lies strictly inside r.
func (r TimeRange) Envelops(o TimeRange) bool {
	if r.Infinite() {
		return true
	}
	return r.Begin < o.Begin && r.End > o.End
}

// Clamp forces t into the closed range [Begin, End].
func (r TimeRange) Clamp(t float64) float64 {
	if r.Infinite() {
		return t
	}
	if t < r.Begin {
		return r.Begin
	}
	if t > r.End {
		return r.End
	}
	return t
}

// AtLimit reports whether t sits on or beyond either boundary.
func (r TimeRange) AtLimit(t float64) bool {
	return !r.Infinite() && (t >= r.End || t <= r.Begin)
}

// Span returns End - Begin.
func (r TimeRange) Span() float64 { return r.End - r.Begin }

// Mid returns the center of the range.
func (r TimeRange) Mid() float64 { return 0.5 * (r.Begin + r.End) }

func (r TimeRange) String() string {
	if r.Infinite() {
		return "[-inf, +inf)"
	}
	return fmt.Sprintf("[%g, %g)", r.Begin, r.End)
}
