package field

import (
	"errors"
	"math"
	"testing"

	"pixelmc/common"
)

func makeLinearGrid(t *testing.T) *FieldGrid {
	t.Helper()
	nx, ny, nz, n := 2, 2, 2, 1
	values := make([]float64, nx*ny*nz*n)
	min := common.Point3D{X: 0, Y: 0, Z: 0}
	max := common.Point3D{X: 1, Y: 1, Z: 1}
	g, err := NewFieldGrid(nx, ny, nz, n, min, max, values)
	if err != nil {
		t.Fatalf("NewFieldGrid: %v", err)
	}
	// value = x + y + z at grid corners.
	for ix := 0; ix < nx; ix++ {
		for iy := 0; iy < ny; iy++ {
			for iz := 0; iz < nz; iz++ {
				g.Values[g.index(ix, iy, iz, 0)] = float64(ix) + float64(iy) + float64(iz)
			}
		}
	}
	return g
}

func TestNewFieldGridShapeMismatch(t *testing.T) {
	_, err := NewFieldGrid(2, 2, 2, 1, common.Point3D{}, common.Point3D{X: 1, Y: 1, Z: 1}, []float64{1, 2, 3})
	if err == nil {
		t.Fatal("expected error for shape mismatch")
	}
	if !errors.Is(err, common.ErrField) {
		t.Errorf("error = %v, want wrapping ErrField", err)
	}
}

func TestFieldGridInterpolateLinear(t *testing.T) {
	g := makeLinearGrid(t)
	got, err := g.Interpolate(common.Point3D{X: 0.5, Y: 0.5, Z: 0.5})
	if err != nil {
		t.Fatalf("Interpolate: %v", err)
	}
	if math.Abs(got[0]-1.5) > 1e-9 {
		t.Errorf("Interpolate(0.5,0.5,0.5) = %v, want 1.5", got[0])
	}
}

func TestFieldGridInterpolateAtVertex(t *testing.T) {
	g := makeLinearGrid(t)
	got, err := g.Interpolate(common.Point3D{X: 1, Y: 0, Z: 0})
	if err != nil {
		t.Fatalf("Interpolate: %v", err)
	}
	if math.Abs(got[0]-1.0) > 1e-9 {
		t.Errorf("Interpolate at vertex = %v, want 1.0", got[0])
	}
}

func TestFieldGridInterpolateOutsideZRejected(t *testing.T) {
	g := makeLinearGrid(t)
	if _, err := g.Interpolate(common.Point3D{X: 0.5, Y: 0.5, Z: 2.0}); !errors.Is(err, common.ErrField) {
		t.Errorf("Interpolate outside z-domain: err=%v, want ErrField", err)
	}
}
