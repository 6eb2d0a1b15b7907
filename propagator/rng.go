package propagator

import "math/rand"

// splitSeed derives a deterministic per-event seed from the master run
// seed and the event number via a SplitMix64 mix, so the same event
// always gets the same random stream regardless of worker count or
// scheduling order. Every stochastic draw made while propagating this
// event must go through the returned *rand.Rand, never the package-level
// math/rand functions.
func splitSeed(masterSeed int64, eventNumber int64) *rand.Rand {
	z := uint64(masterSeed) + uint64(eventNumber)*0x9E3779B97F4A7C15
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	z = z ^ (z >> 31)
	return rand.New(rand.NewSource(int64(z)))
}
