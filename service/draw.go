package service

import (
	"math/rand"
)

// RandomSource supplies the uniform samples used by the draw functions
type RandomSource interface {
	// Float64 returns a value in [0, 1)
	Float64() float64
	// Int63n returns a value in [0, n)
	Int63n(n int64) int64
}

type globalRandom struct{}

func (globalRandom) Float64() float64     { return rand.Float64() }
func (globalRandom) Int63n(n int64) int64 { return rand.Int63n(n) }

// DefaultRandomSource is backed by the auto-seeded math/rand global generator
var DefaultRandomSource RandomSource = globalRandom{}

// WeightedEntry pairs a payload with its selection weight
type WeightedEntry[T any] struct {
	Weight float64
	Value  T
}

// Draw selects one entry with probability weight/total by sampling r in [0, total)
// and walking the pool in order until r drops below zero. Ties at an exact boundary
// go to the later entry; the pool order decides everything else.
func Draw[T any](rng RandomSource, pool []WeightedEntry[T]) (T, error) {
	var zero T

	total := 0.0
	for _, entry := range pool {
		if entry.Weight > 0 {
			total += entry.Weight
		}
	}
	if total <= 0 {
		return zero, ErrNoEligibleCandidates
	}

	remaining := rng.Float64() * total
	last := -1
	for i, entry := range pool {
		if entry.Weight <= 0 {
			continue
		}
		last = i
		remaining -= entry.Weight
		if remaining < 0 {
			return entry.Value, nil
		}
	}

	// Rounding can leave remaining at exactly zero after the final entry
	return pool[last].Value, nil
}

// IntWeightedEntry pairs a payload with an integer chance weight
type IntWeightedEntry[T any] struct {
	Weight int64
	Value  T
}

// DrawInclusive samples r in [1, total] and selects the first entry whose
// cumulative weight reaches r.
func DrawInclusive[T any](rng RandomSource, pool []IntWeightedEntry[T]) (T, error) {
	var zero T

	var total int64
	for _, entry := range pool {
		if entry.Weight > 0 {
			total += entry.Weight
		}
	}
	if total <= 0 {
		return zero, ErrNoEligibleCandidates
	}

	r := rng.Int63n(total) + 1
	var cumulative int64
	for _, entry := range pool {
		if entry.Weight <= 0 {
			continue
		}
		cumulative += entry.Weight
		if cumulative >= r {
			return entry.Value, nil
		}
	}

	return zero, ErrNoEligibleCandidates
}
