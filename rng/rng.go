// Package rng provides the engine's randomization abstraction
// (spec.md §4.6): a RandomSource interface, two concrete sources, and
// a Randomizer wrapper used by layer.RandomInit/operator.RandomInit.
//
// Neither the teacher repo nor the rest of the example pack ships a
// Mersenne-Twister-class or libsodium-class RNG library, so both
// concrete sources below are built on the standard library
// (math/rand for the seeded source, crypto/rand for the CSPRNG) — see
// DESIGN.md. golang.org/x/crypto/sha3 is used only to derive a
// deterministic int64 seed from an arbitrary string, mirroring the
// teacher's consensus/pob.makeSeed (keccak256(parentHash||number)).
package rng

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand"

	"golang.org/x/crypto/sha3"
)

// RandomSource draws uniform values over inclusive ranges.
type RandomSource interface {
	GetInt(min, max int32) int32
	GetDouble(min, max float64) float64
	GetFloat(min, max float32) float32
}

// SeededSource is a deterministic, reproducible source suitable for
// randomInit calls in tests and scripted scenarios.
type SeededSource struct {
	r *mrand.Rand
}

// NewSeededSource builds a SeededSource from an explicit int64 seed.
func NewSeededSource(seed int64) *SeededSource {
	return &SeededSource{r: mrand.New(mrand.NewSource(seed))}
}

// SeedFromString derives a deterministic seed from an arbitrary string
// via SHA3-256, the same family of primitive the teacher uses for its
// own deterministic-seed derivation (consensus/pob.makeSeed).
func SeedFromString(s string) int64 {
	h := sha3.Sum256([]byte(s))
	return int64(uint64(h[0])<<56 | uint64(h[1])<<48 | uint64(h[2])<<40 | uint64(h[3])<<32 |
		uint64(h[4])<<24 | uint64(h[5])<<16 | uint64(h[6])<<8 | uint64(h[7]))
}

func (s *SeededSource) GetInt(min, max int32) int32 {
	if min > max {
		min, max = max, min
	}
	span := int64(max) - int64(min) + 1
	return int32(int64(min) + s.r.Int63n(span))
}

func (s *SeededSource) GetDouble(min, max float64) float64 {
	if min > max {
		min, max = max, min
	}
	return min + s.r.Float64()*(max-min)
}

func (s *SeededSource) GetFloat(min, max float32) float32 {
	if min > max {
		min, max = max, min
	}
	return min + s.r.Float32()*(max-min)
}

// CryptoSource draws from the operating system's CSPRNG.
type CryptoSource struct{}

// NewCryptoSource builds a CryptoSource.
func NewCryptoSource() *CryptoSource { return &CryptoSource{} }

func (CryptoSource) GetInt(min, max int32) int32 {
	if min > max {
		min, max = max, min
	}
	span := big.NewInt(int64(max) - int64(min) + 1)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		// The only failure mode for crypto/rand.Int is a broken entropy
		// source; there is nothing this call can recover from, and the
		// spec requires runtime arithmetic to never throw. Fall back to
		// the low end of the range rather than panic.
		return min
	}
	return int32(int64(min) + n.Int64())
}

func (c CryptoSource) GetDouble(min, max float64) float64 {
	if min > max {
		min, max = max, min
	}
	n, err := rand.Int(rand.Reader, big.NewInt(1<<53))
	if err != nil {
		return min
	}
	frac := float64(n.Int64()) / float64(1<<53)
	return min + frac*(max-min)
}

func (c CryptoSource) GetFloat(min, max float32) float32 {
	return float32(c.GetDouble(float64(min), float64(max)))
}

// Randomizer wraps a RandomSource, normalizing swapped bounds before
// delegating (spec.md §4.6: "if min > max, swap").
type Randomizer struct {
	src RandomSource
}

// NewRandomizer wraps src.
func NewRandomizer(src RandomSource) *Randomizer {
	return &Randomizer{src: src}
}

func (r *Randomizer) GetInt(min, max int32) int32 {
	if min > max {
		min, max = max, min
	}
	return r.src.GetInt(min, max)
}

func (r *Randomizer) GetDouble(min, max float64) float64 {
	if min > max {
		min, max = max, min
	}
	return r.src.GetDouble(min, max)
}

func (r *Randomizer) GetFloat(min, max float32) float32 {
	if min > max {
		min, max = max, min
	}
	return r.src.GetFloat(min, max)
}
