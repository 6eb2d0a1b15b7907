package common

import "errors"

// Sentinel errors for the taxonomy of failure classes the simulation core
// can raise. Callers should match against these with errors.Is, never by
// inspecting error strings.
var (
	// ErrConfiguration covers malformed or inconsistent configuration:
	// out-of-range parameters, missing required fields, enum values that
	// do not name a known variant.
	ErrConfiguration = errors.New("configuration error")

	// ErrModelUnsuitable is returned when a requested physics model
	// cannot run given the available inputs, e.g. a doping-dependent
	// mobility model requested without a doping field.
	ErrModelUnsuitable = errors.New("model unsuitable for configured inputs")

	// ErrField covers field and grid problems: malformed grids, points
	// outside any known field's domain, shape mismatches between a field
	// header and its data.
	ErrField = errors.New("field or grid error")

	// ErrInterpolation covers mesh interpolation failures: a query point
	// with no enclosing or sufficiently close element.
	ErrInterpolation = errors.New("interpolation failure")

	// ErrPulseIncompatible is returned when two pulses with different
	// bin widths are merged.
	ErrPulseIncompatible = errors.New("incompatible pulse binning")

	// ErrRuntimeOverflow covers runtime numerical blow-up during
	// propagation: non-finite state, step count exhaustion, runaway
	// multiplication.
	ErrRuntimeOverflow = errors.New("runtime physics overflow")
)
