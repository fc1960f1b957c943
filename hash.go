package dhbloom

import "github.com/zeebo/xxh3"

// probe walks the k bit positions of one key using double hashing:
//
//	p_i = (h1 + i*h2) mod m
//
// The step is kept reduced mod m so the walk never overflows.
type probe struct {
	pos  uint64
	step uint64
	m    uint64
}

// newProbe splits a 128-bit hash into the two base values. The step lies in
// [1, m) and is coprime with m, so the walk visits min(k, m) distinct bits
// before it can repeat one.
func newProbe(h xxh3.Uint128, m uint64) probe {
	step := uint64(1)
	if m > 2 {
		// m-1 is always coprime with m, so this stops before reaching m
		step = 1 + h.Hi%(m-1)
		for gcd(step, m) != 1 {
			step++
		}
	}
	return probe{pos: h.Lo % m, step: step, m: m}
}

func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// next advances to the following position.
func (p *probe) next() {
	p.pos += p.step
	if p.pos >= p.m {
		p.pos -= p.m
	}
}

// hashData computes the double-hashing probe for raw key bytes.
func hashData(data []byte, m uint64) probe {
	return newProbe(xxh3.Hash128(data), m)
}

// hashString computes the probe for a string without converting it to []byte.
func hashString(s string, m uint64) probe {
	return newProbe(xxh3.HashString128(s), m)
}

// Positions returns the k bit positions a filter with m bits probes for data.
// It is the same sequence Add and Test walk, exposed for diagnostics and tests.
func Positions(data []byte, m uint64, k uint32) []uint64 {
	if m == 0 {
		return nil
	}
	p := hashData(data, m)
	out := make([]uint64, k)
	for i := range out {
		out[i] = p.pos
		p.next()
	}
	return out
}
