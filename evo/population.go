package evo

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/baldhumanity/evonet/evo/nn"
	"github.com/google/uuid"
)

// GenerationRecord is the history carried from generation to generation.
type GenerationRecord struct {
	Generation      int
	BestFitnessEver float64
	FitnessHistory  []float64 // best fitness of every finished generation
}

// Population holds the current generation: one network per slot, each bound
// to a fresh Individual. The bindings are rebuilt wholesale by
// NaturalSelection and never edited in between.
//
// A Population is not safe for concurrent use, except through Evaluate.
type Population struct {
	Config *Config

	name        string
	networks    []*nn.Network
	individuals []*Individual
	record      GenerationRecord
	rng         *rand.Rand
	logger      *slog.Logger
}

// Option customises a Population.
type Option func(*Population)

// WithLogger sets the logger used for generation summaries.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Population) { p.logger = logger }
}

// WithRand sets the random source for selection and the genetic operators.
// By default the source is seeded with Config.Population.Seed.
func WithRand(rng *rand.Rand) Option {
	return func(p *Population) { p.rng = rng }
}

func newPopulation(config *Config, opts []Option) (*Population, error) {
	if config == nil {
		return nil, fmt.Errorf("population config is required")
	}
	p := &Population{
		Config: config,
		name:   config.Population.Name,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.rng == nil {
		p.rng = rand.New(rand.NewSource(config.Population.Seed))
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p, nil
}

// NewPopulation creates Config.Population.Size randomly initialised networks.
func NewPopulation(config *Config, opts ...Option) (*Population, error) {
	p, err := newPopulation(config, opts)
	if err != nil {
		return nil, err
	}

	size := config.Population.Size
	if size <= 0 {
		return nil, fmt.Errorf("population size must be positive, got %d", size)
	}
	p.networks = make([]*nn.Network, size)
	for i := range p.networks {
		net, err := nn.New(config.Network.Dimensions, config.Network.Options, p.rng)
		if err != nil {
			return nil, fmt.Errorf("failed to create network %d: %w", i, err)
		}
		p.networks[i] = net
	}
	p.bind()
	return p, nil
}

// NewPopulationFromNetworks adopts existing networks, for example ones read
// from a store. All networks must share one shape chain.
func NewPopulationFromNetworks(config *Config, networks []*nn.Network, record GenerationRecord, opts ...Option) (*Population, error) {
	p, err := newPopulation(config, opts)
	if err != nil {
		return nil, err
	}
	if len(networks) == 0 {
		return nil, fmt.Errorf("population needs at least one network")
	}
	for i, net := range networks {
		if net == nil {
			return nil, fmt.Errorf("network %d is nil", i)
		}
		if !net.SameShape(networks[0]) {
			return nil, fmt.Errorf("network %d: %w: %v vs %v", i, nn.ErrShapeMismatch, net.Shapes(), networks[0].Shapes())
		}
	}

	p.networks = append([]*nn.Network(nil), networks...)
	p.record = record
	p.record.FitnessHistory = append([]float64{}, record.FitnessHistory...)
	p.bind()
	return p, nil
}

// bind creates a fresh individual for every network slot.
func (p *Population) bind() {
	p.individuals = make([]*Individual, len(p.networks))
	for i := range p.networks {
		p.individuals[i] = newIndividual(i)
	}
}

// Name is the store name the population is saved under.
func (p *Population) Name() string {
	return p.name
}

// Size returns the number of slots.
func (p *Population) Size() int {
	return len(p.networks)
}

// Generation returns the index of the current generation.
func (p *Population) Generation() int {
	return p.record.Generation
}

// Record returns a copy of the generation record.
func (p *Population) Record() GenerationRecord {
	r := p.record
	r.FitnessHistory = append([]float64{}, p.record.FitnessHistory...)
	return r
}

// Get returns the network at slot i.
func (p *Population) Get(i int) *nn.Network {
	return p.networks[i]
}

// Networks returns the networks of the current generation in slot order.
func (p *Population) Networks() []*nn.Network {
	return append([]*nn.Network(nil), p.networks...)
}

// Individual returns the individual bound to slot i.
func (p *Population) Individual(i int) *Individual {
	return p.individuals[i]
}

// Individuals returns the individuals of the current generation in slot order.
func (p *Population) Individuals() []*Individual {
	return append([]*Individual(nil), p.individuals...)
}

// NetworkFor looks up the network bound to an individual of the current generation.
func (p *Population) NetworkFor(id uuid.UUID) (*nn.Network, bool) {
	for i, ind := range p.individuals {
		if ind.ID == id {
			return p.networks[i], true
		}
	}
	return nil, false
}

// Controller returns the controller driving slot i.
func (p *Population) Controller(i int) Controller {
	return NetworkController{Network: p.networks[i]}
}

// Stats summarises the fitness accumulated so far in this generation.
func (p *Population) Stats() FitnessStats {
	return summarize(p.record.Generation, p.fitnesses())
}

func (p *Population) fitnesses() []float64 {
	out := make([]float64, len(p.individuals))
	for i, ind := range p.individuals {
		out[i] = ind.Fitness()
	}
	return out
}

// Best returns the network of the fittest individual. Ties go to the lowest slot.
func (p *Population) Best() *nn.Network {
	return p.networks[p.bestIndex()]
}

// BestIndividual returns the fittest individual, with the same tie rule as Best.
func (p *Population) BestIndividual() *Individual {
	return p.individuals[p.bestIndex()]
}

func (p *Population) bestIndex() int {
	best := 0
	maxFitness := math.Inf(-1)
	for i, ind := range p.individuals {
		if ind.Fitness() > maxFitness {
			maxFitness = ind.Fitness()
			best = i
		}
	}
	return best
}

// PickRandom draws one network with probability proportional to its
// individual's fitness plus one.
func (p *Population) PickRandom() *nn.Network {
	return p.networks[p.pickIndex()]
}

func (p *Population) pickIndex() int {
	// Weights are scaled by the largest one so the total stays finite even
	// for fitness values near math.MaxFloat64.
	weights := make([]float64, len(p.individuals))
	maxWeight := 0.0
	for i, ind := range p.individuals {
		weights[i] = selectionWeight(ind.Fitness())
		maxWeight = math.Max(maxWeight, weights[i])
	}
	total := 0.0
	for i := range weights {
		weights[i] /= maxWeight
		total += weights[i]
	}

	r := p.rng.Float64() * total
	for i, w := range weights {
		r -= w
		if r < 0 {
			return i
		}
	}
	// Rounding can leave r at exactly zero after the last slot.
	return len(p.individuals) - 1
}
