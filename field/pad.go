package field

import (
	"math"

	"pixelmc/common"
)

// padSeriesTerms bounds the truncation of the analytic pad weighting
// potential's Fourier series: only odd indices up to 100 contribute, so
// the double sum has 50 terms along each lateral axis.
const padSeriesTerms = 100

// PadWeightingPotential is the closed-form weighting potential of a
// rectangular pixel pad centered at the origin on a grounded parallel
// plate, derived from solving Laplace's equation by separation of
// variables and expressing the result as a double Fourier series in the
// pad's lateral dimensions.
type PadWeightingPotential struct {
	PadSizeX   float64 // mm
	PadSizeY   float64 // mm
	Thickness  float64 // mm, sensor depth from readout (z=0) to backplane (z=Thickness)
}

// Evaluate returns the weighting potential at p, where p.Z=0 is the
// readout (pixel) plane and p.Z=Thickness is the backplane, held at
// weighting potential 0. The potential is 1 directly over the pad at the
// readout plane and decays with depth.
func (w *PadWeightingPotential) Evaluate(p common.Point3D) float64 {
	if w.Thickness <= 0 {
		return 0
	}
	z := float64(p.Z)
	if z <= 0 {
		z = 1e-9
	}
	if z >= w.Thickness {
		return 0
	}
	x := float64(p.X)
	y := float64(p.Y)
	halfX := w.PadSizeX / 2
	halfY := w.PadSizeY / 2

	var sum float64
	for n := 1; n <= padSeriesTerms; n += 2 {
		for m := 1; m <= padSeriesTerms; m += 2 {
			kn := float64(n) * math.Pi / w.PadSizeX
			km := float64(m) * math.Pi / w.PadSizeY
			kappa := math.Sqrt(kn*kn + km*km)

			term := 16.0 / (math.Pi * math.Pi * float64(n*m))
			term *= math.Sin(kn*halfX) * math.Sin(km*halfY)
			term *= math.Cos(kn * x)
			term *= math.Cos(km * y)
			// sinh(kappa*(T-z))/sinh(kappa*T), written with decaying
			// exponentials so large kappa*T does not overflow to Inf/Inf.
			term *= math.Exp(-kappa*z) * (1 - math.Exp(-2*kappa*(w.Thickness-z))) / (1 - math.Exp(-2*kappa*w.Thickness))
			sum += term
		}
	}
	return sum
}
