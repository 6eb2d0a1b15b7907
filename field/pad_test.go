package field

import (
	"math"
	"testing"

	"pixelmc/common"
)

func TestPadWeightingPotentialAtReadoutIsHigh(t *testing.T) {
	w := &PadWeightingPotential{PadSizeX: 0.05, PadSizeY: 0.05, Thickness: 0.3}
	v := w.Evaluate(common.Point3D{X: 0, Y: 0, Z: 1e-6})
	if v < 0.5 {
		t.Errorf("weighting potential directly over pad near readout = %v, want close to 1", v)
	}
}

func TestPadWeightingPotentialDecaysWithDepth(t *testing.T) {
	w := &PadWeightingPotential{PadSizeX: 0.05, PadSizeY: 0.05, Thickness: 0.3}
	near := w.Evaluate(common.Point3D{X: 0, Y: 0, Z: 0.01})
	far := w.Evaluate(common.Point3D{X: 0, Y: 0, Z: 0.29})
	if !(near > far) {
		t.Errorf("expected weighting potential to decay with depth: near=%v far=%v", near, far)
	}
}

func TestPadWeightingPotentialSymmetric(t *testing.T) {
	w := &PadWeightingPotential{PadSizeX: 0.05, PadSizeY: 0.03, Thickness: 0.2}
	a := w.Evaluate(common.Point3D{X: 0.01, Y: 0.005, Z: 0.1})
	b := w.Evaluate(common.Point3D{X: -0.01, Y: -0.005, Z: 0.1})
	if math.Abs(a-b) > 1e-9 {
		t.Errorf("expected symmetric potential around origin: %v vs %v", a, b)
	}
}

func TestPadWeightingPotentialZeroAtBackplane(t *testing.T) {
	w := &PadWeightingPotential{PadSizeX: 0.05, PadSizeY: 0.05, Thickness: 0.3}
	v := w.Evaluate(common.Point3D{X: 0, Y: 0, Z: 0.3})
	if v != 0 {
		t.Errorf("weighting potential at backplane = %v, want 0", v)
	}
}
