package tonemap

// zeroSeed replaces a zero seed, which would otherwise start the generator
// at a fixed point of the sequence.
const zeroSeed = 0x00DADBADC0FFEE

// Rand is a 64-bit linear congruential generator. Two generators built
// from the same seed yield the same sequence on every platform.
type Rand struct {
	state uint64
}

// NewRand returns a generator seeded with seed.
func NewRand(seed uint64) *Rand {
	if seed == 0 {
		seed = zeroSeed
	}
	return &Rand{state: seed}
}

// Next advances the generator and returns the new state.
func (r *Rand) Next() uint64 {
	r.state = r.state*2862933555777941757 + 3037000493
	return r.state
}

// IntN returns a value in the closed range [lo, hi].
func (r *Rand) IntN(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	span := uint64(hi - lo + 1)
	return lo + int(r.Next()%span)
}
