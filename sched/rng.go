package sched

import "math/rand"

// RNG is a splittable random generator. Every branching point of a
// schedule splits it, so an entire scenario replays from one root seed no
// matter how its branches interleave.
type RNG struct {
	state uint64
}

func NewRNG(seed int64) RNG {
	return RNG{state: mix64(uint64(seed))}
}

// Split derives two independent children. The parent must not be used
// afterwards.
func (r RNG) Split() (RNG, RNG) {
	return RNG{state: mix64(r.state ^ 0xa5a5a5a5a5a5a5a5)},
		RNG{state: mix64(r.state ^ 0x5a5a5a5a5a5a5a5a)}
}

// Rand materializes the generator as a rand.Rand stream.
func (r RNG) Rand() *rand.Rand {
	return rand.New(rand.NewSource(int64(r.state)))
}

// mix64 is the splitmix64 finalizer.
func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
