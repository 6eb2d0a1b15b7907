// Package detector combines the pixel geometry with the field store and
// physics models to provide the sensor-level queries the propagator
// needs: implant/footprint membership, sensor-volume bounds, and the
// induction-matrix neighbourhood of a pixel.
package detector

import (
	"fmt"

	"pixelmc/common"
	"pixelmc/config"
	"pixelmc/field"
	"pixelmc/physics"
)

// PixelModel describes the pixel matrix geometry: pitch, implant
// footprint size and the induction-matrix half-width used to decide how
// many neighbouring pixels accumulate induced charge for a given
// carrier motion.
type PixelModel struct {
	PitchX, PitchY             float64
	ImplantSizeX, ImplantSizeY float64
	InductionHalfWidth         int
}

// NewPixelModel builds a PixelModel from a detector configuration.
func NewPixelModel(cfg config.DetectorConfig) PixelModel {
	return PixelModel{
		PitchX:             cfg.PixelPitchXMM,
		PitchY:             cfg.PixelPitchYMM,
		ImplantSizeX:       cfg.ImplantSizeXMM,
		ImplantSizeY:       cfg.ImplantSizeYMM,
		InductionHalfWidth: cfg.InductionHalfWidth,
	}
}

// PixelAt returns the pixel index whose cell contains a local position:
// pixel (0,0) spans [0, pitch) in x and y, and negative coordinates give
// negative indices.
func (p PixelModel) PixelAt(pos common.Point3D) common.PixelIndex {
	return common.PixelIndex{
		X: floorDiv(float64(pos.X), p.PitchX),
		Y: floorDiv(float64(pos.Y), p.PitchY),
	}
}

func floorDiv(v, pitch float64) int {
	q := v / pitch
	i := int(q)
	if q < 0 && float64(i) != q {
		i--
	}
	return i
}

// PixelCenter returns the local-sensor (x, y) centre of a pixel's cell.
func (p PixelModel) PixelCenter(idx common.PixelIndex) (x, y float64) {
	return (float64(idx.X) + 0.5) * p.PitchX, (float64(idx.Y) + 0.5) * p.PitchY
}

// InImplant reports whether a local position lies within the implant
// footprint of the pixel whose cell contains it.
func (p PixelModel) InImplant(pos common.Point3D, zImplant float64, implantAtTop bool) bool {
	idx := p.PixelAt(pos)
	cx, cy := p.PixelCenter(idx)
	dx := float64(pos.X) - cx
	dy := float64(pos.Y) - cy
	if dx < -p.ImplantSizeX/2 || dx > p.ImplantSizeX/2 {
		return false
	}
	if dy < -p.ImplantSizeY/2 || dy > p.ImplantSizeY/2 {
		return false
	}
	if implantAtTop {
		return float64(pos.Z) >= zImplant
	}
	return float64(pos.Z) <= zImplant
}

// InductionMatrix returns every pixel index in the (2k+1)x(2k+1)
// neighbourhood centred on idx.
func (p PixelModel) InductionMatrix(idx common.PixelIndex) []common.PixelIndex {
	k := p.InductionHalfWidth
	out := make([]common.PixelIndex, 0, (2*k+1)*(2*k+1))
	for dx := -k; dx <= k; dx++ {
		for dy := -k; dy <= k; dy++ {
			out = append(out, common.PixelIndex{X: idx.X + dx, Y: idx.Y + dy})
		}
	}
	return out
}

// InductionUnion returns the union (each pixel listed once) of the
// induction matrices of two pixels, used when a carrier crosses a pixel
// boundary mid-step.
func InductionUnion(p PixelModel, a, b common.PixelIndex) []common.PixelIndex {
	seen := map[common.PixelIndex]bool{}
	var out []common.PixelIndex
	for _, idx := range p.InductionMatrix(a) {
		if !seen[idx] {
			seen[idx] = true
			out = append(out, idx)
		}
	}
	for _, idx := range p.InductionMatrix(b) {
		if !seen[idx] {
			seen[idx] = true
			out = append(out, idx)
		}
	}
	return out
}

// Sensor bundles the field data, the pixel geometry and the dispatched
// physics models needed to propagate carriers through one sensor.
type Sensor struct {
	Fields *field.FieldStore
	Pixel  PixelModel

	ThicknessMM float64
	TemperatureK float64

	Mobility         physics.MobilityModel
	Recombination    physics.RecombinationModel
	Trapping         physics.TrappingModel
	Detrapping       physics.DetrappingModel
	ImpactIonization physics.ImpactIonizationModel

	SurfaceReflectivityTop    float64
	SurfaceReflectivityBottom float64
}

// NewSensor assembles a Sensor from a detector configuration, a field
// store and the recombination, trapping and detrapping models, which the
// caller chooses; the mobility and impact-ionisation models are built
// here from cfg.
func NewSensor(cfg config.DetectorConfig, fields *field.FieldStore, recombination physics.RecombinationModel, trapping physics.TrappingModel, detrapping physics.DetrappingModel) (*Sensor, error) {
	if fields == nil {
		return nil, fmt.Errorf("detector: nil field store: %w", common.ErrConfiguration)
	}
	mobility, err := physics.NewMobilityModel(cfg.MobilityModel, cfg.TemperatureK)
	if err != nil {
		return nil, err
	}
	if cfg.MobilityModel == config.MobilityMasetti && cfg.DopingConcentrationCM <= 0 {
		return nil, fmt.Errorf("detector: masetti mobility requires a doping profile: %w", common.ErrModelUnsuitable)
	}
	impact, err := physics.NewImpactIonizationModel(cfg.ImpactIonizationModel)
	if err != nil {
		return nil, err
	}
	return &Sensor{
		Fields:                    fields,
		Pixel:                     NewPixelModel(cfg),
		ThicknessMM:               cfg.SensorThicknessMM,
		TemperatureK:              cfg.TemperatureK,
		Mobility:                  mobility,
		Recombination:             recombination,
		Trapping:                  trapping,
		Detrapping:                detrapping,
		ImpactIonization:          impact,
		SurfaceReflectivityTop:    cfg.SurfaceReflectivityTop,
		SurfaceReflectivityBottom: cfg.SurfaceReflectivityBottom,
	}, nil
}

// InBounds reports whether a local position lies within the sensor
// volume (z in [0, thickness]; x/y are unbounded here since the pixel
// matrix tiles infinitely in the local frame).
func (s *Sensor) InBounds(pos common.Point3D) bool {
	return float64(pos.Z) >= 0 && float64(pos.Z) <= s.ThicknessMM
}
