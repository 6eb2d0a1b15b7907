package pulse

import (
	"errors"
	"testing"

	"pixelmc/common"
)

func TestNewPulseValidation(t *testing.T) {
	if _, err := NewPulse(0); err == nil {
		t.Error("NewPulse(0) expected error, got nil")
	}
	if _, err := NewPulse(-1); err == nil {
		t.Error("NewPulse(negative) expected error, got nil")
	}
}

func TestPulseStartsWithZeroBins(t *testing.T) {
	p, err := NewPulse(1.0)
	if err != nil {
		t.Fatalf("NewPulse: %v", err)
	}
	if got := p.NumBins(); got != 0 {
		t.Errorf("NumBins() = %v, want 0 for a fresh pulse", got)
	}
	if got := p.Integral(); got != 0 {
		t.Errorf("Integral() = %v, want 0 for a fresh pulse", got)
	}
}

func TestPulseAddChargeAndIntegral(t *testing.T) {
	p, err := NewPulse(1.0)
	if err != nil {
		t.Fatalf("NewPulse: %v", err)
	}
	p.AddCharge(1.0, 0.5)
	p.AddCharge(2.0, 2.5)
	if got := p.Integral(); got != 3.0 {
		t.Errorf("Integral() = %v, want 3.0", got)
	}
	bins := p.Bins()
	if bins[0] != 1.0 || bins[2] != 2.0 {
		t.Errorf("Bins() = %v, want charge in bins 0 and 2", bins)
	}
}

func TestPulseAddChargeGrowsBinVector(t *testing.T) {
	p, _ := NewPulse(1.0)
	p.AddCharge(1.0, -5.0)
	if got := p.NumBins(); got != 1 {
		t.Errorf("NumBins() after a negative-time charge = %v, want 1", got)
	}
	p.AddCharge(1.0, 100.0)
	if got := p.NumBins(); got != 101 {
		t.Errorf("NumBins() after a charge at t=100 = %v, want 101", got)
	}
	bins := p.Bins()
	if bins[0] != 1.0 {
		t.Errorf("expected negative time folded into bin 0, got %v", bins[0])
	}
	if bins[100] != 1.0 {
		t.Errorf("expected t=100 to land in bin 100, got %v", bins[100])
	}
}

func TestPulseMergeInto(t *testing.T) {
	a, _ := NewPulse(1.0)
	b, _ := NewPulse(1.0)
	a.AddCharge(1.0, 0)
	b.AddCharge(2.0, 0)
	if err := a.MergeInto(b); err != nil {
		t.Fatalf("MergeInto: %v", err)
	}
	if got := a.Integral(); got != 3.0 {
		t.Errorf("Integral() after merge = %v, want 3.0", got)
	}
}

// TestPulseMergeIntoGrowsOnLengthMismatch exercises the case where two
// pulses share a bin width but have accumulated a different number of
// bins: merging must extend the shorter vector with zeros rather than
// rejecting the merge.
func TestPulseMergeIntoGrowsOnLengthMismatch(t *testing.T) {
	a, _ := NewPulse(1.0)
	a.AddCharge(1.0, 0)
	a.AddCharge(2.0, 1)
	a.AddCharge(3.0, 2)

	b, _ := NewPulse(1.0)
	b.AddCharge(4.0, 3)
	b.AddCharge(5.0, 4)

	if err := a.MergeInto(b); err != nil {
		t.Fatalf("MergeInto: %v", err)
	}
	want := []float64{1, 2, 3, 4, 5}
	got := a.Bins()
	if len(got) != len(want) {
		t.Fatalf("Bins() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Bins()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if total := a.Integral(); total != 15.0 {
		t.Errorf("Integral() = %v, want 15.0", total)
	}
}

func TestPulseMergeIntoMismatchedBinning(t *testing.T) {
	a, _ := NewPulse(1.0)
	b, _ := NewPulse(2.0)
	err := a.MergeInto(b)
	if err == nil {
		t.Fatal("MergeInto with mismatched binning expected error, got nil")
	}
	if !errors.Is(err, common.ErrPulseIncompatible) {
		t.Errorf("MergeInto error = %v, want wrapping ErrPulseIncompatible", err)
	}
}

func TestPixelMapAccumulates(t *testing.T) {
	m := NewPixelMap(1.0)
	px := common.PixelIndex{X: 1, Y: 2}
	if err := m.AddCharge(px, 1.0, 0.5); err != nil {
		t.Fatalf("AddCharge: %v", err)
	}
	if err := m.AddCharge(px, 1.0, 1.5); err != nil {
		t.Fatalf("AddCharge: %v", err)
	}
	p := m.Get(px)
	if p == nil {
		t.Fatal("Get() returned nil for populated pixel")
	}
	if got := p.Integral(); got != 2.0 {
		t.Errorf("Integral() = %v, want 2.0", got)
	}
}

func TestPixelMapMergeFrom(t *testing.T) {
	a := NewPixelMap(1.0)
	b := NewPixelMap(1.0)
	px1 := common.PixelIndex{X: 0, Y: 0}
	px2 := common.PixelIndex{X: 1, Y: 0}
	a.AddCharge(px1, 1.0, 0)
	b.AddCharge(px1, 2.0, 0)
	b.AddCharge(px2, 3.0, 0)

	if err := a.MergeFrom(b); err != nil {
		t.Fatalf("MergeFrom: %v", err)
	}
	if got := a.Get(px1).Integral(); got != 3.0 {
		t.Errorf("Get(px1).Integral() = %v, want 3.0", got)
	}
	if got := a.Get(px2).Integral(); got != 3.0 {
		t.Errorf("Get(px2).Integral() = %v, want 3.0", got)
	}
}
