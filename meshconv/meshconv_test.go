package meshconv

import (
	"errors"
	"math"
	"testing"

	"pixelmc/common"
)

func tetraMesh(t *testing.T) *Mesh {
	t.Helper()
	verts := []common.Point3D{
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 0},
		{X: 0, Y: 1, Z: 0},
		{X: 0, Y: 0, Z: 1},
	}
	values := [][]float64{{0}, {1}, {2}, {3}}
	m, err := NewMesh(verts, values)
	if err != nil {
		t.Fatalf("NewMesh: %v", err)
	}
	return m
}

func baseConfig() Config {
	return Config{
		NX: 1, NY: 1, NZ: 1,
		Min: common.Point3D{X: 0.2, Y: 0.2, Z: 0.2}, Max: common.Point3D{X: 0.2, Y: 0.2, Z: 0.2},
		RadiusInitial: 0.1,
		RadiusMax:     10,
		VolumeCut:     1e-9,
	}
}

func TestNewMeshMismatchedLengths(t *testing.T) {
	_, err := NewMesh([]common.Point3D{{}}, nil)
	if !errors.Is(err, common.ErrField) {
		t.Errorf("err = %v, want ErrField", err)
	}
}

func TestConvertInterpolatesLinearField(t *testing.T) {
	mesh := tetraMesh(t)
	cfg := baseConfig()
	grid, err := Convert(mesh, cfg)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	// centroid-ish point (0.2,0.2,0.2): value = barycentric combination.
	got := grid.Values[0]
	if got <= 0 || got >= 3 {
		t.Errorf("interpolated value = %v, want between vertex values (0,3)", got)
	}
}

func TestConvertFailsOutsideHullWithoutAllowFailure(t *testing.T) {
	mesh := tetraMesh(t)
	cfg := baseConfig()
	cfg.Min = common.Point3D{X: 100, Y: 100, Z: 100}
	cfg.Max = cfg.Min
	cfg.RadiusMax = 1 // too small to ever reach the mesh
	_, err := Convert(mesh, cfg)
	if !errors.Is(err, common.ErrInterpolation) {
		t.Errorf("err = %v, want ErrInterpolation", err)
	}
}

func TestConvertAllowFailureReturnsZero(t *testing.T) {
	mesh := tetraMesh(t)
	cfg := baseConfig()
	cfg.Min = common.Point3D{X: 100, Y: 100, Z: 100}
	cfg.Max = cfg.Min
	cfg.RadiusMax = 1
	cfg.AllowFailure = true
	grid, err := Convert(mesh, cfg)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if grid.Values[0] != 0 {
		t.Errorf("Values[0] = %v, want 0", grid.Values[0])
	}
}

func TestCoordMapIdentityIsNoOp(t *testing.T) {
	m := IdentityCoordMap()
	p := common.Point3D{X: 1, Y: 2, Z: 3}
	got := m.apply(p)
	if got != p {
		t.Errorf("apply(identity) = %v, want %v", got, p)
	}
}

func TestCoordMapSignFlip(t *testing.T) {
	m := CoordMap{Perm: [3]int{0, 1, 2}, Sign: [3]float64{-1, 1, 1}}
	p := common.Point3D{X: 1, Y: 2, Z: 3}
	got := m.apply(p)
	if got.X != -1 {
		t.Errorf("apply with sign flip: X = %v, want -1", got.X)
	}
}

func TestCoordMapPermutation(t *testing.T) {
	m := CoordMap{Perm: [3]int{1, 2, 0}, Sign: [3]float64{1, 1, 1}}
	p := common.Point3D{X: 1, Y: 2, Z: 3}
	got := m.apply(p)
	if got.Y != 1 || got.Z != 2 || got.X != 3 {
		t.Errorf("apply(permuted) = %v, want {X:3 Y:1 Z:2}", got)
	}
}

func TestSignedVolumeOrientation(t *testing.T) {
	a := common.Point3D{X: 0, Y: 0, Z: 0}
	b := common.Point3D{X: 1, Y: 0, Z: 0}
	c := common.Point3D{X: 0, Y: 1, Z: 0}
	d := common.Point3D{X: 0, Y: 0, Z: 1}
	vol := signedVolume(a, b, c, d)
	if math.Abs(math.Abs(vol)-1.0/6.0) > 1e-9 {
		t.Errorf("volume = %v, want +-1/6", vol)
	}
}
