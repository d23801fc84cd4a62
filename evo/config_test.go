package evo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/baldhumanity/evonet/evo/nn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, []int{6, 5, 9}, cfg.Network.Dimensions)
	assert.Equal(t, nn.Options{Activation: nn.ReLU, Init: nn.InitGaussian}, cfg.Network.Options)
	assert.Equal(t, 20, cfg.Population.Size)
	assert.Equal(t, "dir", cfg.Store.Backend)
	assert.Equal(t, 10, cfg.Store.AutosaveInterval)
	assert.Equal(t, 0.72, cfg.Simulation.ReactionThreshold)
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
[network]
dimensions = 5 8 3 ; sensors, hidden, actions
activation = Tanh
init       = uniform

[population]
name               = arena
size               = 12
crossover_fraction = 0.25

[store]
backend = sqlite
path    = runs.db
`))
	require.NoError(t, err)

	assert.Equal(t, []int{5, 8, 3}, cfg.Network.Dimensions)
	assert.Equal(t, nn.Options{Activation: nn.Tanh, Init: nn.InitUniform}, cfg.Network.Options)
	assert.Equal(t, "arena", cfg.Population.Name)
	assert.Equal(t, 12, cfg.Population.Size)
	assert.Equal(t, 0.25, cfg.Population.CrossoverFraction)
	// Untouched keys keep their defaults.
	assert.Equal(t, 0.2, cfg.Population.CloneMutationRate)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, "runs.db", cfg.Store.Path)
	assert.Equal(t, 0.72, cfg.Simulation.ReactionThreshold)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.ini")
	require.NoError(t, os.WriteFile(path, []byte("[population]\nsize = 4\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Population.Size)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.ini"))
	assert.Error(t, err)
}

func TestParseConfigInvalid(t *testing.T) {
	tests := map[string]string{
		"one layer":         "[network]\ndimensions = 4\n",
		"zero layer":        "[network]\ndimensions = 4 0 2\n",
		"bad activation":    "[network]\nactivation = softsign\n",
		"bad init":          "[network]\ninit = xavier\n",
		"empty name":        "[population]\nname =\n",
		"zero size":         "[population]\nsize = 0\n",
		"fraction too big":  "[population]\ncrossover_fraction = 1.5\n",
		"negative rate":     "[population]\nclone_mutation_rate = -0.1\n",
		"bad backend":       "[store]\nbackend = redis\n",
		"sqlite no path":    "[store]\nbackend = sqlite\npath =\n",
		"negative autosave": "[store]\nautosave_interval = -1\n",
	}
	for name, data := range tests {
		_, err := ParseConfig([]byte(data))
		assert.Error(t, err, name)
	}
}

func TestMemoryBackendNeedsNoPath(t *testing.T) {
	cfg, err := ParseConfig([]byte("[store]\nbackend = memory\npath =\n"))
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Backend)
}
