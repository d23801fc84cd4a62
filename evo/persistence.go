package evo

import (
	"context"
	"fmt"
	"strings"

	"github.com/baldhumanity/evonet/evo/nn"
	"github.com/baldhumanity/evonet/evo/store"
	"gonum.org/v1/gonum/mat"
)

// Save writes every network of the current generation and the generation
// record into st under the population's name, replacing what was there.
func Save(ctx context.Context, st store.Store, p *Population) error {
	networks := make([][]*mat.Dense, len(p.networks))
	for i, net := range p.networks {
		networks[i] = net.Layers()
	}
	snap := store.Snapshot{
		Networks: networks,
		Metadata: store.Metadata{
			Generation:      p.record.Generation,
			BestFitnessEver: p.record.BestFitnessEver,
			FitnessHistory:  append([]float64{}, p.record.FitnessHistory...),
		},
	}

	if err := st.Save(ctx, p.name, snap); err != nil {
		return fmt.Errorf("failed to save population '%s': %w", p.name, err)
	}
	p.logger.Info("population saved", "population", p.name, "generation", p.record.Generation, "networks", len(networks))
	return nil
}

// Load rebuilds a population from the container name in st. The networks keep
// their stored shapes, which may differ from config.Network.Dimensions, but
// must agree with each other. The activation and init scheme come from config.
func Load(ctx context.Context, st store.Store, name string, config *Config, opts ...Option) (*Population, error) {
	if config == nil {
		return nil, fmt.Errorf("population config is required")
	}
	snap, err := st.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load population '%s': %w", name, err)
	}

	networks := make([]*nn.Network, len(snap.Networks))
	for i, layers := range snap.Networks {
		networks[i], err = nn.FromWeights(layers, config.Network.Options)
		if err != nil {
			return nil, fmt.Errorf("population '%s' network %d: %w", name, i, err)
		}
	}

	record := GenerationRecord{
		Generation:      snap.Metadata.Generation,
		BestFitnessEver: snap.Metadata.BestFitnessEver,
		FitnessHistory:  snap.Metadata.FitnessHistory,
	}
	p, err := NewPopulationFromNetworks(config, networks, record, opts...)
	if err != nil {
		return nil, fmt.Errorf("population '%s': %w", name, err)
	}
	p.name = name
	p.logger.Info("population loaded", "population", name, "generation", record.Generation, "networks", len(networks))
	return p, nil
}

// ListSaved returns a one-line description of every population in st.
func ListSaved(ctx context.Context, st store.Store) (string, error) {
	summaries, err := st.List(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list populations: %w", err)
	}
	if len(summaries) == 0 {
		return "no saved populations", nil
	}

	var b strings.Builder
	for i, s := range summaries {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %d networks, generation %d", s.Name, s.Size, s.Generation)
	}
	return b.String(), nil
}
