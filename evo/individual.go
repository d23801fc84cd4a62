package evo

import (
	"math"

	"github.com/google/uuid"
)

// Individual is one simulated agent of the current generation. It is bound
// to exactly one network through its slot index and identified by an ID that
// is unique across generations.
//
// The fitness accumulator belongs to the individual alone: during a
// simulation each individual may be driven by its own goroutine without
// further locking.
type Individual struct {
	ID      uuid.UUID
	Index   int
	fitness float64
}

func newIndividual(index int) *Individual {
	return &Individual{ID: uuid.New(), Index: index}
}

// Fitness returns the accumulated fitness.
func (ind *Individual) Fitness() float64 {
	return ind.fitness
}

// Reward adds delta to the fitness. The result never drops below zero.
func (ind *Individual) Reward(delta float64) {
	ind.SetFitness(ind.fitness + delta)
}

// SetFitness overwrites the fitness. Negative and NaN values are stored as
// zero, +Inf as math.MaxFloat64.
func (ind *Individual) SetFitness(v float64) {
	switch {
	case math.IsNaN(v) || v < 0:
		v = 0
	case math.IsInf(v, 1):
		v = math.MaxFloat64
	}
	ind.fitness = v
}
