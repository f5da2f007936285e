// Package rng provides seeded random streams and the draws the aquarium makes from them.
//
// Every generation call owns its own stream; nothing here touches the global
// math/rand state.
package rng

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/pthm-cable/aquarium/config"
)

// Stream identifiers keep sprite and scene sequences apart even when seeds collide.
const (
	StreamSprite uint64 = 0x66697368 // "fish"
	StreamScene  uint64 = 0x74616e6b // "tank"
)

// New returns a PCG-backed generator for the given seed and stream.
func New(seed int64, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), stream))
}

// Uniform draws from U[lo, hi).
func Uniform(r *rand.Rand, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return distuv.Uniform{Min: lo, Max: hi, Src: r}.Rand()
}

// InRange draws uniformly from a configured range.
func InRange(r *rand.Rand, rg config.Range) float64 {
	return Uniform(r, rg.Min, rg.Max)
}

// IntRange draws an integer uniformly from [lo, hi], both inclusive.
func IntRange(r *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.IntN(hi-lo+1)
}

// Coin returns true with probability p.
func Coin(r *rand.Rand, p float64) bool {
	return distuv.Bernoulli{P: p, Src: r}.Rand() == 1
}

// Seed draws a sprite seed in [0, max].
func Seed(r *rand.Rand, max int64) int64 {
	if max <= 0 {
		return 0
	}
	return r.Int64N(max + 1)
}
