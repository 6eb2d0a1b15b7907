package field

import (
	"testing"

	"pixelmc/common"
)

func TestGetElectricSensorMappingZeroOutsideGrid(t *testing.T) {
	values := make([]float64, 2*2*2*3)
	for i := 0; i < len(values); i += 3 {
		values[i], values[i+1], values[i+2] = 1, 0, 0
	}
	grid, err := NewFieldGrid(2, 2, 2, 3, common.Point3D{X: 0, Y: 0, Z: 0}, common.Point3D{X: 1, Y: 1, Z: 1}, values)
	if err != nil {
		t.Fatalf("NewFieldGrid: %v", err)
	}
	store := &FieldStore{Electric: grid, ElectricMapping: MappingSensor}

	v, err := store.GetElectric(common.Point3D{X: 2, Y: 0.5, Z: 0.5})
	if err != nil {
		t.Fatalf("GetElectric: %v", err)
	}
	if v.X != 0 || v.Y != 0 || v.Z != 0 {
		t.Errorf("GetElectric outside SENSOR grid x/y = %+v, want zero", v)
	}

	v, err = store.GetElectric(common.Point3D{X: 0.5, Y: 0.5, Z: 0.5})
	if err != nil {
		t.Fatalf("GetElectric: %v", err)
	}
	if v.X != 1 {
		t.Errorf("GetElectric inside grid = %+v, want X=1", v)
	}
}

func TestGetDopingSensorMappingZeroOutsideGrid(t *testing.T) {
	values := make([]float64, 2*2*2)
	for i := range values {
		values[i] = 42
	}
	grid, err := NewFieldGrid(2, 2, 2, 1, common.Point3D{X: 0, Y: 0, Z: 0}, common.Point3D{X: 1, Y: 1, Z: 1}, values)
	if err != nil {
		t.Fatalf("NewFieldGrid: %v", err)
	}
	store := &FieldStore{Doping: grid}

	d, err := store.GetDoping(common.Point3D{X: -1, Y: 0.5, Z: 0.5})
	if err != nil {
		t.Fatalf("GetDoping: %v", err)
	}
	if d != 0 {
		t.Errorf("GetDoping outside grid = %v, want 0", d)
	}

	d, err = store.GetDoping(common.Point3D{X: 0.5, Y: 0.5, Z: 0.5})
	if err != nil {
		t.Fatalf("GetDoping: %v", err)
	}
	if d != 42 {
		t.Errorf("GetDoping inside grid = %v, want 42", d)
	}
}
