package evo

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// clamp restricts a value to a given range [minVal, maxVal].
func clamp(value, minVal, maxVal float64) float64 {
	return math.Max(minVal, math.Min(value, maxVal))
}

// selectionWeight is the fitness-proportionate weight of one individual.
// The +1 smoothing keeps every individual selectable and the total positive
// even when every fitness is zero.
func selectionWeight(fitness float64) float64 {
	if math.IsNaN(fitness) || fitness < 0 {
		fitness = 0
	}
	return fitness + 1
}

// FitnessStats summarises the fitness values of one generation.
type FitnessStats struct {
	Generation int
	Max        float64
	Mean       float64
	StdDev     float64
}

// summarize computes FitnessStats over a generation's fitness values.
func summarize(generation int, fitnesses []float64) FitnessStats {
	s := FitnessStats{Generation: generation}
	if len(fitnesses) == 0 {
		return s
	}
	s.Max = floats.Max(fitnesses)
	if len(fitnesses) > 1 {
		s.Mean, s.StdDev = stat.MeanStdDev(fitnesses, nil)
	} else {
		s.Mean = fitnesses[0]
	}
	return s
}
