// Package rk implements a stateful embedded Runge-Kutta driver over a
// fixed three-component state ([3]float64), parameterised by a Tableau.
// Two tableaus are provided: a non-adaptive classic RK4 and an adaptive
// six-stage Runge-Kutta-Fehlberg (RKF5) method with an embedded
// 4th-order error estimate.
package rk

import "math"

// Velocity evaluates the right-hand side dy/dt = v(t, y) of the ODE
// being integrated.
type Velocity func(t float64, y [3]float64) [3]float64

// Tableau describes a Butcher tableau for an explicit Runge-Kutta method.
// Stages holds the per-stage (c, a-row) coefficients; B holds the
// solution weights; BStar holds the embedded lower-order weights used
// for error estimation (nil for non-adaptive tableaus).
type Tableau struct {
	Name    string
	Stages  int
	C       []float64   // c_i, length Stages
	A       [][]float64 // a_ij, strictly lower triangular, length Stages
	B       []float64   // b_i, length Stages
	BStar   []float64   // embedded weights, nil if non-adaptive
	Order   int
	Adaptive bool
}

// RK4 is the classic non-adaptive 4th-order Runge-Kutta tableau.
var RK4 = Tableau{
	Name:   "rk4",
	Stages: 4,
	C:      []float64{0, 0.5, 0.5, 1},
	A: [][]float64{
		{},
		{0.5},
		{0, 0.5},
		{0, 0, 1},
	},
	B:     []float64{1.0 / 6, 1.0 / 3, 1.0 / 3, 1.0 / 6},
	Order: 4,
}

// RKF5 is the six-stage Runge-Kutta-Fehlberg tableau with an embedded
// 4th-order solution used for adaptive step-size control.
var RKF5 = Tableau{
	Name:   "rkf5",
	Stages: 6,
	C:      []float64{0, 1.0 / 4, 3.0 / 8, 12.0 / 13, 1, 1.0 / 2},
	A: [][]float64{
		{},
		{1.0 / 4},
		{3.0 / 32, 9.0 / 32},
		{1932.0 / 2197, -7200.0 / 2197, 7296.0 / 2197},
		{439.0 / 216, -8, 3680.0 / 513, -845.0 / 4104},
		{-8.0 / 27, 2, -3544.0 / 2565, 1859.0 / 4104, -11.0 / 40},
	},
	B:        []float64{16.0 / 135, 0, 6656.0 / 12825, 28561.0 / 56430, -9.0 / 50, 2.0 / 55},
	BStar:    []float64{25.0 / 216, 0, 1408.0 / 2565, 2197.0 / 4104, -1.0 / 5, 0},
	Order:    5,
	Adaptive: true,
}

// Integrator is a stateful Runge-Kutta stepper over a 3-dimensional
// state vector, as needed to drive carrier position integration.
type Integrator struct {
	tableau Tableau
	v       Velocity

	t float64
	y [3]float64
	h float64

	hMin, hMax float64
	targetErr  float64
}

// NewIntegrator builds an integrator with the given tableau, velocity
// functor and initial state.
func NewIntegrator(tableau Tableau, v Velocity, t0 float64, y0 [3]float64, h0, hMin, hMax, targetErr float64) *Integrator {
	return &Integrator{
		tableau:   tableau,
		v:         v,
		t:         t0,
		y:         y0,
		h:         h0,
		hMin:      hMin,
		hMax:      hMax,
		targetErr: targetErr,
	}
}

// Time returns the current integration time.
func (r *Integrator) Time() float64 { return r.t }

// Value returns the current state vector.
func (r *Integrator) Value() [3]float64 { return r.y }

// StepSize returns the step size that will be used on the next Step.
func (r *Integrator) StepSize() float64 { return r.h }

// SetValue substitutes the state vector without changing time. Used to
// inject diffusion kicks and boundary reflections between RK steps.
func (r *Integrator) SetValue(y [3]float64) { r.y = y }

// SetTimeStep changes the step size used by the next Step call.
func (r *Integrator) SetTimeStep(h float64) { r.h = h }

// SetVelocity replaces the velocity functor used by subsequent Step
// calls, so the caller can re-evaluate drift velocity from freshly
// sampled field values before every step.
func (r *Integrator) SetVelocity(v Velocity) { r.v = v }

// AdvanceTime fast-forwards the clock without evaluating the velocity
// functor, used to resume a trapped carrier at t + detrap_time.
func (r *Integrator) AdvanceTime(dt float64) { r.t += dt }

// ForceShrink multiplies the next step size by factor and clamps it to
// [hMin, hMax]. Used to pre-emptively shrink the step near a sensor
// z-edge before the overshoot actually happens.
func (r *Integrator) ForceShrink(factor float64) {
	r.h = clamp(r.h*factor, r.hMin, r.hMax)
}

// Step performs one tableau-weighted step starting from the current
// state, advances (t, y) and the internal step size (for adaptive
// tableaus), and returns the position delta and the error-estimate norm
// (zero for non-adaptive tableaus).
func (r *Integrator) Step() (delta [3]float64, errEstimate float64) {
	stages := r.tableau.Stages
	k := make([][3]float64, stages)

	for i := 0; i < stages; i++ {
		ti := r.t + r.tableau.C[i]*r.h
		yi := r.y
		for j := 0; j < i; j++ {
			a := r.tableau.A[i][j]
			if a == 0 {
				continue
			}
			for d := 0; d < 3; d++ {
				yi[d] += r.h * a * k[j][d]
			}
		}
		k[i] = r.v(ti, yi)
	}

	var dy [3]float64
	for i := 0; i < stages; i++ {
		b := r.tableau.B[i]
		if b == 0 {
			continue
		}
		for d := 0; d < 3; d++ {
			dy[d] += b * r.h * k[i][d]
		}
	}

	if r.tableau.Adaptive {
		var errVec [3]float64
		for i := 0; i < stages; i++ {
			db := r.tableau.B[i] - r.tableau.BStar[i]
			if db == 0 {
				continue
			}
			for d := 0; d < 3; d++ {
				errVec[d] += db * r.h * k[i][d]
			}
		}
		errEstimate = math.Sqrt(errVec[0]*errVec[0] + errVec[1]*errVec[1] + errVec[2]*errVec[2])
	}

	for d := 0; d < 3; d++ {
		r.y[d] += dy[d]
	}
	r.t += r.h

	if r.tableau.Adaptive {
		r.adaptStep(errEstimate)
	}

	return dy, errEstimate
}

// adaptStep implements the step-size control policy: shrink by 0.7
// when the error estimate exceeds target precision, grow by 2 when it
// is below half target, and always clamp to [hMin, hMax].
func (r *Integrator) adaptStep(errEstimate float64) {
	switch {
	case errEstimate > r.targetErr:
		r.h *= 0.7
	case errEstimate < r.targetErr/2:
		r.h *= 2
	}
	r.h = clamp(r.h, r.hMin, r.hMax)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
