package physics

import (
	"math"

	"pixelmc/common"
)

// TrappingModel reports whether a carrier is trapped during a time step.
type TrappingModel interface {
	Traps(carrier common.CarrierType, u, dtNs float64) bool
}

// noTrapping never traps a carrier.
type noTrapping struct{}

// NewNoTrapping returns a model in which carriers are never trapped.
func NewNoTrapping() TrappingModel { return noTrapping{} }

func (noTrapping) Traps(common.CarrierType, float64, float64) bool { return false }

// ljubljana implements the Ljubljana/Kramberger fluence-scaled effective
// trapping model, using irradiation-fluence dependent trap
// cross-sections at a 263 K reference temperature.
type ljubljana struct {
	tauEffElectron, tauEffHole float64
}

// NewLjubljana builds the fluence-dependent trapping model. fluenceNeq is
// the 1-MeV-neq fluence in cm^-2; zero disables trapping.
func NewLjubljana(temperatureK, fluenceNeq float64) TrappingModel {
	if fluenceNeq <= 0 {
		return NewNoTrapping()
	}
	// Coefficients are in cm^2/ns per the original parametrisation.
	betaElectron := 5.6e-16 * math.Pow(temperatureK/263, -0.86)
	betaHole := 7.7e-16 * math.Pow(temperatureK/263, -1.52)
	return &ljubljana{
		tauEffElectron: 1 / (betaElectron * fluenceNeq),
		tauEffHole:     1 / (betaHole * fluenceNeq),
	}
}

func (m *ljubljana) Traps(carrier common.CarrierType, u, dtNs float64) bool {
	tau := m.tauEffElectron
	if carrier == common.Hole {
		tau = m.tauEffHole
	}
	return u < 1-math.Exp(-dtNs/tau)
}

// NewTrappingModel dispatches on enable flag and fluence.
func NewTrappingModel(enabled bool, temperatureK, fluenceNeq float64) TrappingModel {
	if !enabled {
		return NewNoTrapping()
	}
	return NewLjubljana(temperatureK, fluenceNeq)
}

// DetrappingModel returns the expected de-trap interval for a carrier
// that has just been trapped, given a uniform draw u in [0,1).
type DetrappingModel interface {
	DetrapInterval(carrier common.CarrierType, u float64) float64
}

type constantDetrapping struct {
	tauElectron, tauHole float64
}

// NewConstantDetrapping builds a detrapping model with fixed mean
// de-trap times per carrier type.
func NewConstantDetrapping(tauElectronNs, tauHoleNs float64) DetrappingModel {
	return &constantDetrapping{tauElectron: tauElectronNs, tauHole: tauHoleNs}
}

func (m *constantDetrapping) DetrapInterval(carrier common.CarrierType, u float64) float64 {
	tau := m.tauElectron
	if carrier == common.Hole {
		tau = m.tauHole
	}
	return -math.Log(1-u) * tau
}
