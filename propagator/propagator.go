// Package propagator implements the Monte Carlo carrier-transport event
// driver: it subdivides deposited charge into groups, advances each
// group's state machine through the sensor via the rk package and the
// physics models, and accumulates per-pixel induced-charge pulses.
package propagator

import (
	"math"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"

	"pixelmc/common"
	"pixelmc/config"
	"pixelmc/detector"
	"pixelmc/pulse"
	"pixelmc/rk"
)

// DepositedCharge is one input record: a cluster of carriers of a given
// type deposited at a local position and time.
type DepositedCharge struct {
	Position    common.Point3D
	TimeNs      common.Time
	NumCarriers int
	Type        common.CarrierType
}

// CarrierGroup is one independently propagated sub-population of a
// DepositedCharge, carrying its own RK integrator, physics state and
// accumulated pulses.
type CarrierGroup struct {
	Type                common.CarrierType
	Charge              float64 // current carrier count, grows under multiplication.
	State               common.TerminalState
	MultiplicationLevel int
	Steps               int

	integrator *rk.Integrator
	pulses     *pulse.PixelMap
}

func (g *CarrierGroup) position() common.Point3D {
	y := g.integrator.Value()
	return common.Point3D{X: common.Coordinate(y[0]), Y: common.Coordinate(y[1]), Z: common.Coordinate(y[2])}
}

// PropagatedCharge is the output of propagating one DepositedCharge: the
// per-pixel pulses induced by all of its carrier groups, plus basic
// run diagnostics.
type PropagatedCharge struct {
	Origin           DepositedCharge
	Pulses           *pulse.PixelMap
	Groups           []*CarrierGroup
	ChargeGroupCount int
	GroupCapApplied  bool // true if the configured group cap forced fewer, larger groups.
}

// maxChargeGroups bounds the number of simulated groups per deposit so a
// single very large cluster cannot spawn an unbounded number of
// independent RK integrations.
const maxChargeGroups = 100000

// chargeGroupSizes subdivides numCarriers into ceil-equal groups of at
// most chargePerGroup carriers, growing the effective group size if that
// would exceed maxChargeGroups.
func chargeGroupSizes(numCarriers, chargePerGroup int) (sizes []int, capApplied bool) {
	if numCarriers <= 0 {
		return nil, false
	}
	if chargePerGroup <= 0 {
		chargePerGroup = 1
	}
	groups := (numCarriers + chargePerGroup - 1) / chargePerGroup
	if groups > maxChargeGroups {
		chargePerGroup = (numCarriers + maxChargeGroups - 1) / maxChargeGroups
		capApplied = true
	}
	remaining := numCarriers
	for remaining > 0 {
		n := chargePerGroup
		if n > remaining {
			n = remaining
		}
		sizes = append(sizes, n)
		remaining -= n
	}
	return sizes, capApplied
}

// kBoltzmannEVPerK is k_B expressed in eV/K; in this framework's unit
// system q is one elementary charge, so kB*T/q carries units of volts.
const kBoltzmannEVPerK = 8.617333262e-5

// hallFactorElectron and hallFactorHole are the carrier-dependent Hall
// scattering factors used in the Lorentz-force drift correction.
const (
	hallFactorElectron = 1.15
	hallFactorHole     = 0.9
)

func newGroup(deposit DepositedCharge, carriers int, cfg config.PropagationConfig) *CarrierGroup {
	tableau := rk.RK4
	if cfg.Integrator == config.IntegratorRKF5 {
		tableau = rk.RKF5
	}
	y0 := [3]float64{float64(deposit.Position.X), float64(deposit.Position.Y), float64(deposit.Position.Z)}
	integrator := rk.NewIntegrator(tableau, nil, deposit.TimeNs, y0, cfg.TimeStepInitial, cfg.TimeStepMin, cfg.TimeStepMax, 1e-4)
	return &CarrierGroup{
		Type:       deposit.Type,
		Charge:     float64(carriers),
		State:      common.Motion,
		integrator: integrator,
		pulses:     pulse.NewPixelMap(cfg.PulseBinNs),
	}
}

// Runner propagates batches of events against a fixed sensor.
type Runner struct {
	Sensor *detector.Sensor
	Config config.PropagationConfig
	Seed   int64
}

// NewRunner builds a Runner over the given sensor.
func NewRunner(sensor *detector.Sensor, cfg config.PropagationConfig, seed int64) *Runner {
	return &Runner{Sensor: sensor, Config: cfg, Seed: seed}
}

// RunBatch propagates every deposit of one event using a per-event RNG
// split from the runner's master seed, so the result is reproducible
// regardless of worker count or scheduling order.
func (r *Runner) RunBatch(eventNumber int64, deposits []DepositedCharge, cancel *atomic.Bool) []PropagatedCharge {
	rng := splitSeed(r.Seed, eventNumber)
	out := make([]PropagatedCharge, 0, len(deposits))
	for _, d := range deposits {
		if cancel != nil && cancel.Load() {
			break
		}
		out = append(out, r.propagateDeposit(d, rng))
	}
	return out
}

// RunEvents dispatches a batch of events over a worker pool, preserving
// event order in the returned slice regardless of completion order. A
// workerCount of 0 uses runtime.GOMAXPROCS(0), matching r.Config's own
// convention for WorkerCount.
func (r *Runner) RunEvents(events [][]DepositedCharge, workerCount int) [][]PropagatedCharge {
	n := len(events)
	results := make([][]PropagatedCharge, n)
	if n == 0 {
		return results
	}
	if workerCount <= 0 {
		workerCount = runtime.GOMAXPROCS(0)
	}
	if workerCount > n {
		workerCount = n
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = r.RunBatch(int64(i), events[i], nil)
			}
		}()
	}
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results
}

func (r *Runner) propagateDeposit(d DepositedCharge, rng *rand.Rand) PropagatedCharge {
	sizes, capApplied := chargeGroupSizes(d.NumCarriers, r.Config.ChargePerGroup)
	result := PropagatedCharge{
		Origin:           d,
		Pulses:           pulse.NewPixelMap(r.Config.PulseBinNs),
		ChargeGroupCount: len(sizes),
		GroupCapApplied:  capApplied,
	}
	for _, size := range sizes {
		g := newGroup(d, size, r.Config)
		r.propagateGroup(g, rng)
		result.Groups = append(result.Groups, g)
		_ = result.Pulses.MergeFrom(g.pulses)
	}
	return result
}

// propagateGroup runs the per-step drift/diffusion/induction procedure
// until the group reaches a terminal state, exhausts its step budget, or
// exceeds the integration time window.
func (r *Runner) propagateGroup(g *CarrierGroup, rng *rand.Rand) {
	s := r.Sensor
	lastPixel := s.Pixel.PixelAt(g.position())

	for g.Steps = 0; g.Steps < r.Config.MaxStepsPerGroup; g.Steps++ {
		if g.State != common.Motion {
			return
		}
		if g.integrator.Time() >= r.Config.TIntegrationNs {
			g.State = common.Halted
			return
		}

		before := g.position()
		eField, err := s.Fields.GetElectric(before)
		if err != nil {
			g.State = common.Halted
			return
		}
		doping := 0.0
		if d, derr := s.Fields.GetDoping(before); derr == nil {
			doping = d
		}

		efieldMag := norm3(eField)
		mobility := s.Mobility.Mobility(g.Type, efieldMag, doping)
		g.integrator.SetVelocity(driftVelocity(g.Type, eField, s.Fields.GetMagnetic(before), s.Fields.HasMagnetic, mobility))

		dt := g.integrator.StepSize()
		g.integrator.Step()

		if r.Config.EnableDiffusion {
			applyDiffusion(g, s.TemperatureK, mobility, dt, rng)
		}

		after := g.position()
		after = r.resolveBoundary(g, s, before, after, rng)

		afterPixel := s.Pixel.PixelAt(after)
		r.induceCharge(g, s, before, after, lastPixel, afterPixel)
		lastPixel = afterPixel

		if g.State != common.Motion {
			return
		}

		r.applyTransitions(g, s, efieldMag, doping, dt, rng)
	}
}

func norm3(p common.Point3D) float64 {
	x, y, z := float64(p.X), float64(p.Y), float64(p.Z)
	return math.Sqrt(x*x + y*y + z*z)
}

// driftVelocity computes the carrier drift velocity: without a magnetic
// field it is sign(carrier)*mobility*E; with one, the Hall-corrected
// Lorentz-force closed form is used instead.
func driftVelocity(carrier common.CarrierType, e, b common.Point3D, hasB bool, mobility float64) rk.Velocity {
	sign := carrier.Sign()
	ex, ey, ez := float64(e.X), float64(e.Y), float64(e.Z)
	if !hasB {
		return func(_ float64, _ [3]float64) [3]float64 {
			return [3]float64{sign * mobility * ex, sign * mobility * ey, sign * mobility * ez}
		}
	}
	rHall := hallFactorElectron
	if carrier == common.Hole {
		rHall = hallFactorHole
	}
	bx, by, bz := float64(b.X), float64(b.Y), float64(b.Z)
	exb := [3]float64{ey*bz - ez*by, ez*bx - ex*bz, ex*by - ey*bx}
	edotb := ex*bx + ey*by + ez*bz
	bMagSq := bx*bx + by*by + bz*bz
	denom := 1 + mobility*mobility*rHall*rHall*bMagSq
	eVec := [3]float64{ex, ey, ez}
	bVec := [3]float64{bx, by, bz}
	return func(_ float64, _ [3]float64) [3]float64 {
		var v [3]float64
		for d := 0; d < 3; d++ {
			v[d] = sign * mobility * (eVec[d] + sign*mobility*rHall*exb[d] + mobility*mobility*rHall*rHall*edotb*bVec[d]) / denom
		}
		return v
	}
}

// applyDiffusion adds a Gaussian kick with per-axis standard deviation
// sigma = sqrt(2*D*dt), D = (kB*T/q)*mobility, the Einstein relation
// between mobility and diffusion constant.
func applyDiffusion(g *CarrierGroup, temperatureK, mobility, dtNs float64, rng *rand.Rand) {
	diffusionConst := kBoltzmannEVPerK * temperatureK * mobility
	sigma := math.Sqrt(2 * diffusionConst * dtNs)
	if sigma <= 0 {
		return
	}
	y := g.integrator.Value()
	y[0] += sigma * rng.NormFloat64()
	y[1] += sigma * rng.NormFloat64()
	y[2] += sigma * rng.NormFloat64()
	g.integrator.SetValue(y)
}

// resolveBoundary handles a carrier's post-step position relative to
// the sensor volume. It first checks the implant footprint: a position
// landing on the collection implant (the top pixel-structured face)
// halts unconditionally, regardless of surface reflectivity, since an
// implant hit is charge collection, not a reflective bounce. Failing
// that, a position outside the sensor bulk is resolved against the
// relevant face's surface_reflectivity: a u~Uniform[0,1) draw above the
// reflectivity snaps to the intercept and halts; otherwise the carrier
// is mirrored back into the bulk (full reflection, not a partial one)
// and continues in motion, unless the mirrored point itself lands in
// an implant or still falls outside the sensor (sidewall overshoot), in
// which case it halts at the original intercept instead. Sidewalls are
// unbounded in this local-pixel-tiled frame, so only z is checked.
func (r *Runner) resolveBoundary(g *CarrierGroup, s *detector.Sensor, before, after common.Point3D, rng *rand.Rand) common.Point3D {
	thickness := s.ThicknessMM

	if s.Pixel.InImplant(after, thickness, true) {
		crossing := crossingPoint(before, after, thickness)
		g.integrator.SetValue(pointValue(crossing))
		g.State = common.Halted
		return crossing
	}

	z := float64(after.Z)
	if z >= 0 && z <= thickness {
		return after
	}

	var reflectivity, boundaryZ float64
	if z > thickness {
		reflectivity, boundaryZ = s.SurfaceReflectivityTop, thickness
	} else {
		reflectivity, boundaryZ = s.SurfaceReflectivityBottom, 0
	}
	intercept := crossingPoint(before, after, boundaryZ)

	if rng.Float64() > reflectivity {
		g.integrator.SetValue(pointValue(intercept))
		g.State = common.Halted
		return intercept
	}

	mirrored := intercept
	mirrored.Z = common.Coordinate(2*boundaryZ - z)
	mz := float64(mirrored.Z)
	if s.Pixel.InImplant(mirrored, thickness, true) || mz < 0 || mz > thickness {
		g.integrator.SetValue(pointValue(intercept))
		g.State = common.Halted
		return intercept
	}

	g.integrator.SetValue(pointValue(mirrored))
	g.integrator.ForceShrink(0.5)
	return mirrored
}

func pointValue(p common.Point3D) [3]float64 {
	return [3]float64{float64(p.X), float64(p.Y), float64(p.Z)}
}

// crossingPoint linearly interpolates the point along the before->after
// segment where z equals targetZ.
func crossingPoint(before, after common.Point3D, targetZ float64) common.Point3D {
	z0, z1 := float64(before.Z), float64(after.Z)
	if z1 == z0 {
		return after
	}
	frac := (targetZ - z0) / (z1 - z0)
	return common.Point3D{
		X: before.X + common.Coordinate(frac)*(after.X-before.X),
		Y: before.Y + common.Coordinate(frac)*(after.Y-before.Y),
		Z: common.Coordinate(targetZ),
	}
}

// induceCharge adds the induced-charge delta to every pixel in the
// union of the pre/post induction matrices.
func (r *Runner) induceCharge(g *CarrierGroup, s *detector.Sensor, before, after common.Point3D, beforePixel, afterPixel common.PixelIndex) {
	tAfter := g.integrator.Time()
	pixels := detector.InductionUnion(s.Pixel, beforePixel, afterPixel)
	for _, px := range pixels {
		wBefore, errB := s.Fields.GetWeightingPotential(localTo(before, s.Pixel, px))
		wAfter, errA := s.Fields.GetWeightingPotential(localTo(after, s.Pixel, px))
		if errB != nil || errA != nil {
			continue
		}
		dq := g.Charge * g.Type.Sign() * (wAfter - wBefore)
		_ = g.pulses.AddCharge(px, dq, tAfter)
	}
}

// localTo maps a sensor-frame position into the frame local to pixel
// px's cell centre, the frame the per-pixel weighting potential is
// tabulated in.
func localTo(pos common.Point3D, pix detector.PixelModel, px common.PixelIndex) common.Point3D {
	cx, cy := pix.PixelCenter(px)
	return common.Point3D{X: pos.X - common.Coordinate(cx), Y: pos.Y - common.Coordinate(cy), Z: pos.Z}
}

// applyTransitions applies the fixed-order physics state transitions:
// recombination, then trapping/detrapping, then impact ionization.
func (r *Runner) applyTransitions(g *CarrierGroup, s *detector.Sensor, efieldMag, doping, dtNs float64, rng *rand.Rand) {
	cfg := r.Config

	if cfg.EnableRecombination && s.Recombination != nil {
		if s.Recombination.Recombines(g.Type, doping, rng.Float64(), dtNs) {
			g.State = common.Recombined
			return
		}
	}

	if cfg.EnableTrapping && s.Trapping != nil {
		if s.Trapping.Traps(g.Type, rng.Float64(), dtNs) {
			interval := s.Detrapping.DetrapInterval(g.Type, rng.Float64())
			if g.integrator.Time()+interval < cfg.TIntegrationNs {
				g.integrator.AdvanceTime(interval)
				return
			}
			g.State = common.Trapped
			return
		}
	}

	if cfg.EnableMultiplication && s.ImpactIonization != nil {
		r.applyImpactIonization(g, s, efieldMag, dtNs, rng)
	}
}

// applyImpactIonization adds a Poisson-distributed number of secondary
// carriers to the group's charge once the field exceeds the model's
// threshold, capped by max_multiplication_level.
func (r *Runner) applyImpactIonization(g *CarrierGroup, s *detector.Sensor, efieldMag, dtNs float64, rng *rand.Rand) {
	if g.MultiplicationLevel >= r.Config.MaxMultiplicationLevel {
		return
	}
	if efieldMag <= s.ImpactIonization.Threshold() {
		return
	}
	alpha := s.ImpactIonization.Coefficient(g.Type, efieldMag, s.TemperatureK)
	driftSpeed := s.Mobility.Mobility(g.Type, efieldMag, 0) * efieldMag
	pathLengthMM := math.Abs(dtNs) * driftSpeed
	meanSecondaries := g.Charge * alpha * pathLengthMM
	if meanSecondaries <= 0 {
		return
	}
	if secondaries := poissonSample(meanSecondaries, rng); secondaries > 0 {
		g.Charge += float64(secondaries)
		g.MultiplicationLevel++
	}
}

// poissonSample draws from a Poisson distribution with the given mean
// using Knuth's algorithm, adequate for the small means expected per
// integration step.
func poissonSample(mean float64, rng *rand.Rand) int {
	l := math.Exp(-mean)
	k := 0
	p := 1.0
	for {
		k++
		p *= rng.Float64()
		if p <= l {
			return k - 1
		}
	}
}
