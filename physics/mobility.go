// Package physics implements the Monte Carlo carrier-transport models
// dispatched by configuration string: mobility, recombination, trapping,
// detrapping and impact ionisation. Each model variant is grounded on the
// corresponding AllPix-Squared model of the same name; parameter values
// are the published silicon parametrisation constants.
package physics

import (
	"fmt"
	"math"

	"pixelmc/common"
)

// MobilityModel returns the drift mobility (mm^2 / (V*ns) in framework
// units) for a carrier type given the local electric field magnitude
// (V/mm) and doping concentration (cm^-3, signed: positive = n-type).
type MobilityModel interface {
	Mobility(carrier common.CarrierType, efieldMag, doping float64) float64
}

type jacoboniCanali struct {
	electronVm, electronBeta, electronEc float64
	holeVm, holeBeta, holeEc             float64
}

// NewJacoboniCanali builds the Jacoboni/Canali mobility model at the
// given temperature (K).
func NewJacoboniCanali(temperatureK float64) MobilityModel {
	return &jacoboniCanali{
		electronVm:   1.53e9 * math.Pow(temperatureK, -0.87) * cmPerSToMmPerNs,
		electronBeta: 2.57e-2 * math.Pow(temperatureK, 0.66),
		holeVm:       1.62e8 * math.Pow(temperatureK, -0.52) * cmPerSToMmPerNs,
		holeBeta:     0.46 * math.Pow(temperatureK, 0.17),
		electronEc:   1.01 * math.Pow(temperatureK, 1.55) * vPerCmToVPerMm,
		holeEc:       1.24 * math.Pow(temperatureK, 1.68) * vPerCmToVPerMm,
	}
}

// NewCanali builds the Canali variant, which differs from Jacoboni/Canali
// only in the electron saturation velocity constant.
func NewCanali(temperatureK float64) MobilityModel {
	m := NewJacoboniCanali(temperatureK).(*jacoboniCanali)
	m.electronVm = 1.43e9 * math.Pow(temperatureK, -0.87) * cmPerSToMmPerNs
	return m
}

func (m *jacoboniCanali) Mobility(carrier common.CarrierType, efieldMag, _ float64) float64 {
	if carrier == common.Electron {
		return m.electronVm / m.electronEc / math.Pow(1+math.Pow(efieldMag/m.electronEc, m.electronBeta), 1/m.electronBeta)
	}
	return m.holeVm / m.holeEc / math.Pow(1+math.Pow(efieldMag/m.holeEc, m.holeBeta), 1/m.holeBeta)
}

// masetti implements the Masetti doping-dependent low-field mobility
// model; it requires a doping profile and is unsuitable without one.
type masetti struct {
	electronMu0, electronMumax, electronCr, electronAlpha, electronMu1, electronCs, electronBeta float64
	holeMu0, holePc, holeMumax, holeCr, holeAlpha, holeMu1, holeCs, holeBeta                      float64
}

// NewMasetti builds the Masetti mobility model. Its Mobility depends on
// the doping argument; config.Validate and detector.NewSensor reject the
// model with ErrModelUnsuitable unless DopingConcentrationCM > 0.
func NewMasetti(temperatureK float64) MobilityModel {
	return &masetti{
		electronMu0:    68.5,
		electronMumax:  1414 * math.Pow(temperatureK/300, -2.5),
		electronCr:     9.20e16,
		electronAlpha:  0.711,
		electronMu1:    56.1,
		electronCs:     3.41e20,
		electronBeta:   1.98,
		holeMu0:        44.9,
		holePc:         9.23e16,
		holeMumax:      470.5 * math.Pow(temperatureK/300, -2.2),
		holeCr:         2.23e17,
		holeAlpha:      0.719,
		holeMu1:        29.0,
		holeCs:         6.1e20,
		holeBeta:       2.0,
	}
}

func (m *masetti) Mobility(carrier common.CarrierType, _ float64, doping float64) float64 {
	d := math.Abs(doping)
	if carrier == common.Electron {
		return (m.electronMu0 +
			(m.electronMumax-m.electronMu0)/(1+math.Pow(d/m.electronCr, m.electronAlpha)) -
			m.electronMu1/(1+math.Pow(m.electronCs/d, m.electronBeta))) * cm2PerVsToMm2PerVns
	}
	return (m.holeMu0*math.Exp(-m.holePc/d) +
		m.holeMumax/(1+math.Pow(d/m.holeCr, m.holeAlpha)) -
		m.holeMu1/(1+math.Pow(m.holeCs/d, m.holeBeta))) * cm2PerVsToMm2PerVns
}

type constantMobility struct {
	electron, hole float64
}

// NewConstantMobility returns a field- and doping-independent mobility.
func NewConstantMobility(electronMobility, holeMobility float64) MobilityModel {
	return &constantMobility{electron: electronMobility, hole: holeMobility}
}

func (m *constantMobility) Mobility(carrier common.CarrierType, _, _ float64) float64 {
	if carrier == common.Electron {
		return m.electron
	}
	return m.hole
}

// Unit conversions from the CGS-ish constants used in the original
// parametrisations into this framework's mm/ns/V base units.
const (
	cmPerSToMmPerNs = 1e-8 // 1 cm/s = 10 mm/s = 10 mm / 1e9 ns
	vPerCmToVPerMm  = 1e-1 // 1 V/cm = 0.1 V/mm

	cm2PerVsToMm2PerVns = 1e-7 // 1 cm^2/(V*s) = 100 mm^2 / (V * 1e9 ns)
)

// NewMobilityModel dispatches on the configured model name.
func NewMobilityModel(name string, temperatureK float64) (MobilityModel, error) {
	switch name {
	case "jacoboni":
		return NewJacoboniCanali(temperatureK), nil
	case "canali":
		return NewCanali(temperatureK), nil
	case "masetti":
		return NewMasetti(temperatureK), nil
	case "constant":
		return NewConstantMobility(1.35e-2, 4.5e-3), nil
	default:
		return nil, fmt.Errorf("physics: unknown mobility model %q: %w", name, common.ErrConfiguration)
	}
}
