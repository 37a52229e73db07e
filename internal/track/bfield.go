package track

import "github.com/banshee-data/trackfit/internal/geom"

// BField answers point queries of the magnetic field map. Implementations
// must be pure functions of position; they are shared read-only between
// concurrent fits.
type BField interface {
	// FieldAt returns the field vector in Tesla at the given position.
	FieldAt(pos geom.Vec3) geom.Vec3
}

// UniformBField is a constant field.
type UniformBField struct {
	Field geom.Vec3
}

// NewUniformBField returns a uniform field of bz Tesla along z.
func NewUniformBField(bz float64) UniformBField {
	return UniformBField{Field: geom.Vec3{Z: bz}}
}

// FieldAt implements BField.
func (u UniformBField) FieldAt(geom.Vec3) geom.Vec3 { return u.Field }

// GradBField is a field whose z component varies linearly in z between
// two endpoints, used to exercise fits under a mildly non-uniform map.
type GradBField struct {
	B0, B1 float64 // field at ZMin and ZMax
	ZMin   float64
	ZMax   float64
}

// FieldAt implements BField. Outside [ZMin, ZMax] the endpoint value is
// returned.
func (g GradBField) FieldAt(pos geom.Vec3) geom.Vec3 {
	switch {
	case pos.Z <= g.ZMin:
		return geom.Vec3{Z: g.B0}
	case pos.Z >= g.ZMax:
		return geom.Vec3{Z: g.B1}
	}
	frac := (pos.Z - g.ZMin) / (g.ZMax - g.ZMin)
	return geom.Vec3{Z: g.B0 + frac*(g.B1-g.B0)}
}
