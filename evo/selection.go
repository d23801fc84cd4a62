package evo

import (
	"errors"
	"fmt"
	"math"

	"github.com/baldhumanity/evonet/evo/nn"
)

// ErrPopulationSize is the panic value raised when selection produces the
// wrong number of networks. It indicates a bug, not a runtime condition.
var ErrPopulationSize = errors.New("population size invariant violated")

// slotPlan splits the next generation between the replacement strategies.
type slotPlan struct {
	elites    int // unmutated best, then its mutated copy
	crossover int
	clones    int
}

// planSlots divides n slots. Crossover gets the floor of its fraction of the
// non-elite slots; the clone fill absorbs whatever rounding leaves over.
func planSlots(n int, crossoverFraction float64) slotPlan {
	elites := min(2, n)
	rest := n - elites
	crossover := int(math.Floor(float64(rest) * crossoverFraction))
	return slotPlan{
		elites:    elites,
		crossover: crossover,
		clones:    rest - crossover,
	}
}

// NaturalSelection replaces the current generation using the fitness the
// individuals accumulated. Every individual's fitness must be final.
//
// The next generation holds, in order: the best network unmutated, a mutated
// copy of it, mutated crossover children of fitness-proportionately drawn
// parents, and mutated copies of fitness-proportionately drawn networks.
// Afterwards every slot is bound to a fresh individual and the generation
// counter advances.
func (p *Population) NaturalSelection() error {
	n := p.Size()
	cfg := p.Config.Population

	// 1. Record the generation.
	stats := p.Stats()
	p.record.FitnessHistory = append(p.record.FitnessHistory, stats.Max)
	p.record.BestFitnessEver = math.Max(p.record.BestFitnessEver, stats.Max)

	plan := planSlots(n, cfg.CrossoverFraction)
	next := make([]*nn.Network, 0, n)

	// 2. Elitism.
	bestIdx := p.bestIndex()
	best := p.networks[bestIdx]
	p.logger.Debug("elite selected", "generation", stats.Generation, "slot", bestIdx, "fitness", p.individuals[bestIdx].Fitness())
	next = append(next, best.Clone())
	if plan.elites > 1 {
		next = append(next, Mutate(p.rng, best, cfg.EliteMutationRate))
	}

	// 3. Crossover fill.
	for produced := 0; produced < plan.crossover; {
		a := p.PickRandom()
		b := p.PickRandom()
		c1, c2, err := Crossover(p.rng, a, b)
		if err != nil {
			return fmt.Errorf("crossover failed in generation %d: %w", stats.Generation, err)
		}
		next = append(next, Mutate(p.rng, c1, cfg.CrossoverMutationRate))
		produced++
		if produced < plan.crossover {
			next = append(next, Mutate(p.rng, c2, cfg.CrossoverMutationRate))
			produced++
		}
	}

	// 4. Clone-and-mutate fill.
	for i := 0; i < plan.clones; i++ {
		next = append(next, Mutate(p.rng, p.PickRandom(), cfg.CloneMutationRate))
	}

	// 5. Size check.
	if len(next) != n {
		panic(fmt.Errorf("%w: produced %d networks, want %d", ErrPopulationSize, len(next), n))
	}

	p.logger.Info("generation finished",
		"population", p.name,
		"generation", stats.Generation,
		"best", stats.Max,
		"mean", stats.Mean,
		"stddev", stats.StdDev,
		"best_ever", p.record.BestFitnessEver,
	)

	p.networks = next
	p.record.Generation++
	p.bind()
	return nil
}
