package field

import (
	"fmt"
	"math"

	"pixelmc/common"
)

// fold maps v into [-half, half] by reflecting it off the cell edges
// every pitch, implementing the periodic-with-mirror-symmetry boundary a
// single-pixel field cell needs when tiled across a full sensor.
func fold(v, pitch float64) float64 {
	if pitch <= 0 {
		return v
	}
	half := pitch / 2
	// shift into [0, pitch)
	m := math.Mod(v+half, pitch)
	if m < 0 {
		m += pitch
	}
	return m - half
}

func (s *FieldStore) mapPoint(p common.Point3D, mapping Mapping) common.Point3D {
	if mapping != MappingPixelFull {
		return p
	}
	return common.Point3D{
		X: common.Coordinate(fold(float64(p.X), float64(s.PixelPitch.X))),
		Y: common.Coordinate(fold(float64(p.Y), float64(s.PixelPitch.Y))),
		Z: p.Z,
	}
}

// FieldStore aggregates the fields a sensor needs to drift and collect
// charge carriers: the electric field, the weighting potential, an
// optional doping profile and an optional uniform magnetic field.
type FieldStore struct {
	Electric        *FieldGrid
	ElectricMapping Mapping

	WeightingPotential *FieldGrid
	WeightingMapping   Mapping
	WeightingPad       *PadWeightingPotential // used instead of WeightingPotential when set

	Doping        *FieldGrid
	DopingMapping Mapping

	Magnetic    common.Point3D
	HasMagnetic bool

	PixelPitch common.Point3D
}

// withinGridXY reports whether p's x/y coordinates fall inside the
// grid's domain. Used to apply the SENSOR mapping's "no fold, zero
// outside" rule for general fields ahead of calling Interpolate, which
// on its own always clamps x/y to the nearest edge.
func withinGridXY(g *FieldGrid, p common.Point3D) bool {
	return p.X >= g.Min.X && p.X <= g.Max.X && p.Y >= g.Min.Y && p.Y <= g.Max.Y
}

// GetElectric returns the electric field at p in V/mm, the unit the
// mobility and impact-ionisation models take. Under
// MappingSensor, a query point outside the grid's x/y domain returns
// the zero field rather than the clamped edge value.
func (s *FieldStore) GetElectric(p common.Point3D) (common.Point3D, error) {
	if s.Electric == nil {
		return common.Point3D{}, fmt.Errorf("field: no electric field configured: %w", common.ErrField)
	}
	mapped := s.mapPoint(p, s.ElectricMapping)
	if s.ElectricMapping == MappingSensor && !withinGridXY(s.Electric, mapped) {
		return common.Point3D{}, nil
	}
	v, err := s.Electric.Interpolate(mapped)
	if err != nil {
		return common.Point3D{}, err
	}
	return common.Point3D{X: common.Coordinate(v[0]), Y: common.Coordinate(v[1]), Z: common.Coordinate(v[2])}, nil
}

// GetWeightingPotential returns the weighting potential at p, induced by
// the pixel at origin, using either a tabulated grid or the analytic pad
// model, whichever is configured.
func (s *FieldStore) GetWeightingPotential(p common.Point3D) (float64, error) {
	if s.WeightingPad != nil {
		return s.WeightingPad.Evaluate(p), nil
	}
	if s.WeightingPotential == nil {
		return 0, fmt.Errorf("field: no weighting potential configured: %w", common.ErrField)
	}
	v, err := s.WeightingPotential.Interpolate(s.mapPoint(p, s.WeightingMapping))
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

// GetDoping returns the doping concentration at p, or common.ErrField if
// no doping field was configured. Under MappingSensor, a query point
// outside the grid's x/y domain returns zero doping rather than the
// clamped edge value.
func (s *FieldStore) GetDoping(p common.Point3D) (float64, error) {
	if s.Doping == nil {
		return 0, fmt.Errorf("field: no doping profile configured: %w", common.ErrField)
	}
	mapped := s.mapPoint(p, s.DopingMapping)
	if s.DopingMapping == MappingSensor && !withinGridXY(s.Doping, mapped) {
		return 0, nil
	}
	v, err := s.Doping.Interpolate(mapped)
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

// GetMagnetic returns the (currently position-independent) magnetic
// field. It returns the zero vector when no magnetic field is configured.
func (s *FieldStore) GetMagnetic(p common.Point3D) common.Point3D {
	if !s.HasMagnetic {
		return common.Point3D{}
	}
	return s.Magnetic
}
