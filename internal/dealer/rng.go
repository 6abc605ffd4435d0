package dealer

import "math/rand/v2"

// RNG is the subsystem's single seeded PRNG (spec.md §9 "The dealer
// subsystem owns a single seeded PRNG; every random draw goes through it
// in a documented order"). It wraps math/rand/v2's PCG source and tracks
// the count of draws consumed so a rolled-back atomic scope can restore
// exactly the draw sequence it started with (SUPPLEMENTED FEATURES #6):
// rather than serializing the generator's internal state, Restore
// reseeds from scratch and replays the recorded number of draws, which
// is cheap at the draw volumes one simulated day produces and avoids
// depending on math/rand/v2's unexported state layout.
type RNG struct {
	seed  uint64
	draws uint64
	r     *rand.Rand
}

// NewRNG builds a fresh RNG from seed.
func NewRNG(seed uint64) *RNG {
	g := &RNG{seed: seed}
	g.reseed()
	return g
}

func (g *RNG) reseed() {
	g.r = rand.New(rand.NewPCG(g.seed, g.seed^0x9e3779b97f4a7c15))
}

// Snapshot returns the number of draws consumed so far; pair with
// Restore to rewind the sequence.
func (g *RNG) Snapshot() uint64 { return g.draws }

// Restore rewinds the generator to the state it was in after exactly
// draws calls had been made, by reseeding and replaying.
func (g *RNG) Restore(draws uint64) {
	g.reseed()
	g.draws = 0
	for g.draws < draws {
		g.r.Uint64()
		g.draws++
	}
}

// IntN draws a uniform integer in [0,n).
func (g *RNG) IntN(n int) int {
	g.draws++
	return g.r.IntN(n)
}

// Float64 draws a uniform float in [0,1) — used only for the order-flow
// direction coin flip against PiSell, never for monetary math.
func (g *RNG) Float64() float64 {
	g.draws++
	return g.r.Float64()
}
