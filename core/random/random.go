// Package random provides an explicit random source threaded through every
// stochastic operation: splitting, fold assignment, bootstrap resampling and
// algorithm-internal randomness. No ambient global seed state exists; each
// concurrent unit of work derives its own child source so resampling stays
// deterministic per model regardless of scheduling order.
package random

import "math/rand/v2"

// Source wraps a seeded PCG generator.
type Source struct {
	seed uint64
	rng  *rand.Rand
}

// NewSource creates a deterministic Source from a seed.
func NewSource(seed uint64) *Source {
	return &Source{
		seed: seed,
		rng:  rand.New(rand.NewPCG(seed, seed)),
	}
}

// Seed returns the seed the source was created with.
func (s *Source) Seed() uint64 {
	return s.seed
}

// Child derives an independent deterministic source for a named stream index.
// Two sources derived with the same (seed, stream) pair are identical; sources
// with different streams are independent. Used to give each base model, repeat
// or bootstrap draw its own generator.
func (s *Source) Child(stream uint64) *Source {
	// splitmix-style mixing keeps child seeds well separated.
	z := s.seed + 0x9e3779b97f4a7c15*(stream+1)
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	z ^= z >> 31
	return NewSource(z)
}

// IntN returns a uniform int in [0, n).
func (s *Source) IntN(n int) int {
	return s.rng.IntN(n)
}

// Float64 returns a uniform float64 in [0, 1).
func (s *Source) Float64() float64 {
	return s.rng.Float64()
}

// NormFloat64 returns a standard normal deviate.
func (s *Source) NormFloat64() float64 {
	return s.rng.NormFloat64()
}

// Shuffle pseudo-randomizes the order of n elements.
func (s *Source) Shuffle(n int, swap func(i, j int)) {
	s.rng.Shuffle(n, swap)
}

// Perm returns a random permutation of [0, n).
func (s *Source) Perm(n int) []int {
	return s.rng.Perm(n)
}
