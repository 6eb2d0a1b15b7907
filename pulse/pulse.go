// Package pulse implements the time-binned induced-charge accumulator
// (Pulse) produced by carrier propagation, and PixelMap, a per-pixel
// collection of pulses that accumulates contributions from many carrier
// groups over the course of an event.
package pulse

import (
	"fmt"
	"math"

	"pixelmc/common"
)

// Pulse accumulates induced charge into uniform-width time bins. It
// starts with zero bins and grows its bin vector on demand as AddCharge
// sees later times, mirroring a transient-current waveform recorder
// that only allocates the samples it actually needs.
type Pulse struct {
	bins       []float64
	binWidthNs float64
}

// NewPulse returns an empty Pulse (zero bins) with the given bin width.
func NewPulse(binWidthNs float64) (*Pulse, error) {
	if binWidthNs <= 0 {
		return nil, fmt.Errorf("pulse: binWidthNs must be positive, got %f", binWidthNs)
	}
	return &Pulse{binWidthNs: binWidthNs}, nil
}

// BinWidthNs returns the pulse's bin width.
func (p *Pulse) BinWidthNs() float64 { return p.binWidthNs }

// NumBins returns the number of bins currently allocated in the pulse.
func (p *Pulse) NumBins() int { return len(p.bins) }

// AddCharge deposits charge at timeNs, growing the bin vector to cover
// that instant if it does not already reach that far. A negative timeNs
// (a carrier induced before the acquisition clock started) lands in
// bin 0.
func (p *Pulse) AddCharge(charge common.Charge, timeNs common.Time) {
	idx := int(math.Floor(float64(timeNs) / p.binWidthNs))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(p.bins) {
		grown := make([]float64, idx+1)
		copy(grown, p.bins)
		p.bins = grown
	}
	p.bins[idx] += float64(charge)
}

// Integral returns the total induced charge summed over all bins.
func (p *Pulse) Integral() common.Charge {
	var total float64
	for _, v := range p.bins {
		total += v
	}
	return total
}

// Bins returns a copy of the pulse's bin contents.
func (p *Pulse) Bins() []float64 {
	out := make([]float64, len(p.bins))
	copy(out, p.bins)
	return out
}

// MergeInto adds other's bin contents into p in place, extending p's
// bin vector to max(len(p.bins), len(other.bins)) if needed. It returns
// common.ErrPulseIncompatible only when the two pulses have different
// bin widths; a difference in bin count is not an error since both
// pulses grow freely and a shorter vector is simply zero past its end.
func (p *Pulse) MergeInto(other *Pulse) error {
	if other == nil {
		return nil
	}
	if p.binWidthNs != other.binWidthNs {
		return fmt.Errorf("pulse: cannot merge pulse with bin width %g into pulse with bin width %g: %w",
			other.binWidthNs, p.binWidthNs, common.ErrPulseIncompatible)
	}
	if len(other.bins) > len(p.bins) {
		grown := make([]float64, len(other.bins))
		copy(grown, p.bins)
		p.bins = grown
	}
	for i, v := range other.bins {
		p.bins[i] += v
	}
	return nil
}

// PixelMap accumulates pulses on a per-pixel basis, allocating a new
// Pulse the first time a pixel receives a contribution.
type PixelMap struct {
	pulses     map[common.PixelIndex]*Pulse
	binWidthNs float64
}

// NewPixelMap returns an empty PixelMap whose pulses will be allocated
// with bin width binWidthNs, growing their bin count as charge arrives.
func NewPixelMap(binWidthNs float64) *PixelMap {
	return &PixelMap{
		pulses:     make(map[common.PixelIndex]*Pulse),
		binWidthNs: binWidthNs,
	}
}

// AddCharge deposits charge at timeNs into the pulse for pixel, allocating
// it first if necessary.
func (m *PixelMap) AddCharge(pixel common.PixelIndex, charge common.Charge, timeNs common.Time) error {
	p, ok := m.pulses[pixel]
	if !ok {
		var err error
		p, err = NewPulse(m.binWidthNs)
		if err != nil {
			return err
		}
		m.pulses[pixel] = p
	}
	p.AddCharge(charge, timeNs)
	return nil
}

// Get returns the pulse stored for pixel, or nil if no charge has been
// deposited on it.
func (m *PixelMap) Get(pixel common.PixelIndex) *Pulse {
	return m.pulses[pixel]
}

// Pixels returns the set of pixels that have received a contribution.
func (m *PixelMap) Pixels() []common.PixelIndex {
	out := make([]common.PixelIndex, 0, len(m.pulses))
	for px := range m.pulses {
		out = append(out, px)
	}
	return out
}

// MergeFrom folds every pulse in other into m, allocating pulses for
// pixels m has not yet seen. It fails fast on incompatible binning.
func (m *PixelMap) MergeFrom(other *PixelMap) error {
	if other == nil {
		return nil
	}
	for px, op := range other.pulses {
		existing, ok := m.pulses[px]
		if !ok {
			np, err := NewPulse(m.binWidthNs)
			if err != nil {
				return err
			}
			m.pulses[px] = np
			existing = np
		}
		if err := existing.MergeInto(op); err != nil {
			return fmt.Errorf("pulse: merging pixel %v: %w", px, err)
		}
	}
	return nil
}
