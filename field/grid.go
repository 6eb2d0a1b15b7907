// Package field implements the regular-grid field representation
// (FieldGrid), the FieldStore that aggregates the several fields a sensor
// needs (electric field, weighting potential, doping, magnetic field) and
// the closed-form analytic pad weighting potential.
package field

import (
	"fmt"
	"math"

	"pixelmc/common"
)

// Mapping describes how a query point in sensor-local coordinates is
// mapped onto a field grid that may only cover a single pixel cell.
type Mapping int

const (
	// MappingSensor indicates the grid already spans the full sensor
	// volume; query points map directly.
	MappingSensor Mapping = iota
	// MappingPixelFull indicates the grid spans a single pixel cell and
	// must be tiled (with mirroring at cell boundaries) across the
	// sensor by folding the query point's X/Y into the cell.
	MappingPixelFull
)

// FieldGrid is a regular 3-D grid of N-component samples covering the box
// [Min, Max], with trilinear interpolation between grid points.
type FieldGrid struct {
	NX, NY, NZ int
	N          int
	Min, Max   common.Point3D
	Values     []float64 // flat, index = (((ix*NY+iy)*NZ)+iz)*N + c
}

// NewFieldGrid validates shape consistency and returns a FieldGrid.
func NewFieldGrid(nx, ny, nz, n int, min, max common.Point3D, values []float64) (*FieldGrid, error) {
	if nx <= 0 || ny <= 0 || nz <= 0 || n <= 0 {
		return nil, fmt.Errorf("field: grid dimensions must be positive, got (%d,%d,%d,%d): %w", nx, ny, nz, n, common.ErrField)
	}
	want := nx * ny * nz * n
	if len(values) != want {
		return nil, fmt.Errorf("field: expected %d values for grid (%d,%d,%d)x%d, got %d: %w", want, nx, ny, nz, n, len(values), common.ErrField)
	}
	if max.X < min.X || max.Y < min.Y || max.Z < min.Z {
		return nil, fmt.Errorf("field: grid max must be >= min: %w", common.ErrField)
	}
	return &FieldGrid{NX: nx, NY: ny, NZ: nz, N: n, Min: min, Max: max, Values: values}, nil
}

func (g *FieldGrid) index(ix, iy, iz, c int) int {
	return (((ix*g.NY)+iy)*g.NZ+iz)*g.N + c
}

// At returns the N-component sample at grid indices (ix,iy,iz).
func (g *FieldGrid) At(ix, iy, iz int) []float64 {
	out := make([]float64, g.N)
	for c := 0; c < g.N; c++ {
		out[c] = g.Values[g.index(ix, iy, iz, c)]
	}
	return out
}

func clampIdx(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}

// Interpolate returns the trilinearly interpolated N-component value at
// p, which must be expressed in the grid's own coordinate system (after
// any pixel-mapping fold has already been applied by the caller). Points
// outside [Min,Max] are clamped to the boundary rather than rejected,
// except that the Z (thickness) axis returns common.ErrField when p.Z
// lies strictly outside the grid's Z domain, matching the detector's
// depth-bounded fields. Callers that need the SENSOR mapping's
// zero-outside-grid rule for x/y (as opposed to this nearest-edge
// clamp) must check bounds themselves before calling Interpolate; see
// FieldStore.GetElectric and GetDoping.
func (g *FieldGrid) Interpolate(p common.Point3D) ([]float64, error) {
	if p.Z < g.Min.Z || p.Z > g.Max.Z {
		return nil, fmt.Errorf("field: z=%g outside grid domain [%g,%g]: %w", p.Z, g.Min.Z, g.Max.Z, common.ErrField)
	}

	fx := gridFrac(p.X, g.Min.X, g.Max.X, g.NX)
	fy := gridFrac(p.Y, g.Min.Y, g.Max.Y, g.NY)
	fz := gridFrac(p.Z, g.Min.Z, g.Max.Z, g.NZ)

	x0, tx := int(math.Floor(fx)), fx-math.Floor(fx)
	y0, ty := int(math.Floor(fy)), fy-math.Floor(fy)
	z0, tz := int(math.Floor(fz)), fz-math.Floor(fz)
	x0, x1 := clampIdx(x0, g.NX), clampIdx(x0+1, g.NX)
	y0c, y1 := clampIdx(y0, g.NY), clampIdx(y0+1, g.NY)
	z0c, z1 := clampIdx(z0, g.NZ), clampIdx(z0+1, g.NZ)

	out := make([]float64, g.N)
	for c := 0; c < g.N; c++ {
		c000 := g.Values[g.index(x0, y0c, z0c, c)]
		c100 := g.Values[g.index(x1, y0c, z0c, c)]
		c010 := g.Values[g.index(x0, y1, z0c, c)]
		c110 := g.Values[g.index(x1, y1, z0c, c)]
		c001 := g.Values[g.index(x0, y0c, z1, c)]
		c101 := g.Values[g.index(x1, y0c, z1, c)]
		c011 := g.Values[g.index(x0, y1, z1, c)]
		c111 := g.Values[g.index(x1, y1, z1, c)]

		c00 := c000*(1-tx) + c100*tx
		c10 := c010*(1-tx) + c110*tx
		c01 := c001*(1-tx) + c101*tx
		c11 := c011*(1-tx) + c111*tx

		c0 := c00*(1-ty) + c10*ty
		c1 := c01*(1-ty) + c11*ty

		out[c] = c0*(1-tz) + c1*tz
	}
	return out, nil
}

// gridFrac maps a coordinate into fractional grid-index space along one
// axis with n samples spanning [min,max].
func gridFrac(v, min, max common.Coordinate, n int) float64 {
	if n == 1 || max == min {
		return 0
	}
	step := float64(max-min) / float64(n-1)
	return float64(v-min) / step
}
