package historical

import (
	"hash/fnv"
	"math"
	"math/rand/v2"
)

// deterministicRNG produces standard-normal samples from a PCG PRNG
// seeded by an FNV-1a hash of the series' identity, mirroring
// chain/pathgen.go's determinism approach (DESIGN NOTES §9: "seed a
// per-call PRNG from a hash ... no module-level mutable state").
type deterministicRNG struct {
	src *rand.Rand
}

func newDeterministicRNG(symbol string, steps int) *deterministicRNG {
	h := fnv.New64a()
	_, _ = h.Write([]byte(symbol))
	var buf [8]byte
	for i := range buf {
		buf[i] = byte(steps >> (8 * i))
	}
	_, _ = h.Write(buf[:])
	seed := h.Sum64()

	return &deterministicRNG{src: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// normal draws a standard-normal sample via Box-Muller.
func (r *deterministicRNG) normal() float64 {
	u1 := r.src.Float64()
	u2 := r.src.Float64()
	if u1 <= 0 {
		u1 = 1e-12
	}
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

func sqrt(x float64) float64 { return math.Sqrt(x) }
func exp(x float64) float64  { return math.Exp(x) }
