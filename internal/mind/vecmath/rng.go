package vecmath

import "math"

// RNG is a splitmix64 stream used for weight initialization. It is the only
// randomness source in the package; seeding it identically reproduces the
// exact same weights on every run and platform.
type RNG struct{ s uint64 }

func NewRNG(seed int64) *RNG { return &RNG{s: uint64(seed)} }

func (r *RNG) next() uint64 {
	r.s += 0x9e3779b97f4a7c15
	z := r.s
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Float64 returns a uniform sample in [0,1).
func (r *RNG) Float64() float64 {
	return float64(r.next()>>11) / (1 << 53)
}

// Normal returns a sample from N(0,1) via Box-Muller.
func (r *RNG) Normal() float64 {
	u1 := r.Float64()
	for u1 == 0 {
		u1 = r.Float64()
	}
	u2 := r.Float64()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}
