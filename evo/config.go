package evo

import (
	"fmt"
	"math"
	"strings"

	"github.com/baldhumanity/evonet/evo/nn"
	"gopkg.in/ini.v1"
)

// Config stores every tunable of a training run. It is passed explicitly to
// the population; nothing in this module reads global configuration.
type Config struct {
	Network    NetworkConfig
	Population PopulationConfig
	Store      StoreConfig
	Simulation SimulationConfig
}

// NetworkConfig describes the shape and behaviour of every network.
type NetworkConfig struct {
	Dimensions []int  `ini:"dimensions" delim:" "` // neurons per layer, sensors first, actions last
	Activation string `ini:"activation"`           // relu, sigmoid or tanh
	Init       string `ini:"init"`                 // gaussian or uniform

	// --- Derived ---
	Options nn.Options `ini:"-"`
}

// PopulationConfig holds the generational replacement parameters.
type PopulationConfig struct {
	Name                  string  `ini:"name"`
	Size                  int     `ini:"size"`
	Seed                  int64   `ini:"seed"`
	CrossoverFraction     float64 `ini:"crossover_fraction"`      // share of the non-elite slots filled by crossover
	EliteMutationRate     float64 `ini:"elite_mutation_rate"`     // rate for the mutated copy of the best network
	CrossoverMutationRate float64 `ini:"crossover_mutation_rate"` // light mutation of crossover children
	CloneMutationRate     float64 `ini:"clone_mutation_rate"`     // heavier mutation of cloned parents
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend          string `ini:"backend"` // dir, sqlite or memory
	Path             string `ini:"path"`    // directory root or sqlite file
	AutosaveInterval int    `ini:"autosave_interval"`
}

// SimulationConfig holds values consumed by simulation drivers, not by the engine.
type SimulationConfig struct {
	ReactionThreshold float64 `ini:"reaction_threshold"`
}

// DefaultConfig returns a validated configuration with the stock values.
func DefaultConfig() *Config {
	c := defaults()
	if err := c.Validate(); err != nil {
		panic(fmt.Sprintf("default config is invalid: %v", err))
	}
	return c
}

func defaults() *Config {
	return &Config{
		Network: NetworkConfig{
			Dimensions: []int{6, 5, 9},
			Activation: "relu",
			Init:       "gaussian",
		},
		Population: PopulationConfig{
			Name:                  "default",
			Size:                  20,
			Seed:                  1,
			CrossoverFraction:     0.5,
			EliteMutationRate:     0.1,
			CrossoverMutationRate: 0.05,
			CloneMutationRate:     0.2,
		},
		Store: StoreConfig{
			Backend:          "dir",
			Path:             "populations",
			AutosaveInterval: 10,
		},
		Simulation: SimulationConfig{
			ReactionThreshold: 0.72,
		},
	}
}

// LoadConfig loads configuration parameters from an INI file. Keys that are
// absent keep their default value.
func LoadConfig(filePath string) (*Config, error) {
	config, err := loadConfig(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file '%s': %w", filePath, err)
	}
	return config, nil
}

// ParseConfig is LoadConfig for in-memory INI data.
func ParseConfig(data []byte) (*Config, error) {
	return loadConfig(data)
}

func loadConfig(source interface{}) (*Config, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		SpaceBeforeInlineComment: true, // "; note" after a value is a comment, "a;b" is a value
	}, source)
	if err != nil {
		return nil, err
	}

	config := defaults()

	// Map sections to structs
	if err := cfg.Section("network").MapTo(&config.Network); err != nil {
		return nil, fmt.Errorf("failed to map [network] section: %w", err)
	}
	if err := cfg.Section("population").MapTo(&config.Population); err != nil {
		return nil, fmt.Errorf("failed to map [population] section: %w", err)
	}
	if err := cfg.Section("store").MapTo(&config.Store); err != nil {
		return nil, fmt.Errorf("failed to map [store] section: %w", err)
	}
	if err := cfg.Section("simulation").MapTo(&config.Simulation); err != nil {
		return nil, fmt.Errorf("failed to map [simulation] section: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate normalises string values, checks ranges and fills derived fields.
func (c *Config) Validate() error {
	c.Network.Activation = cleanIniString(c.Network.Activation)
	c.Network.Init = cleanIniString(c.Network.Init)
	c.Store.Backend = cleanIniString(c.Store.Backend)
	c.Population.Name = strings.TrimSpace(c.Population.Name)
	c.Store.Path = strings.TrimSpace(c.Store.Path)

	if len(c.Network.Dimensions) < 2 {
		return fmt.Errorf("config error: dimensions needs at least 2 layer sizes, got %d", len(c.Network.Dimensions))
	}
	for i, d := range c.Network.Dimensions {
		if d <= 0 {
			return fmt.Errorf("config error: dimensions[%d] must be positive, got %d", i, d)
		}
	}
	act, err := nn.ParseActivation(c.Network.Activation)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	scheme, err := nn.ParseInitScheme(c.Network.Init)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	c.Network.Options = nn.Options{Activation: act, Init: scheme}

	if c.Population.Name == "" {
		return fmt.Errorf("config error: population name must not be empty")
	}
	if c.Population.Size <= 0 {
		return fmt.Errorf("config error: population size must be positive")
	}
	if !unitInterval(c.Population.CrossoverFraction) {
		return fmt.Errorf("config error: crossover_fraction must be between 0 and 1")
	}
	if !unitInterval(c.Population.EliteMutationRate) {
		return fmt.Errorf("config error: elite_mutation_rate must be between 0 and 1")
	}
	if !unitInterval(c.Population.CrossoverMutationRate) {
		return fmt.Errorf("config error: crossover_mutation_rate must be between 0 and 1")
	}
	if !unitInterval(c.Population.CloneMutationRate) {
		return fmt.Errorf("config error: clone_mutation_rate must be between 0 and 1")
	}

	validBackends := map[string]bool{"dir": true, "sqlite": true, "memory": true}
	if !validBackends[c.Store.Backend] {
		return fmt.Errorf("config error: invalid store backend '%s', must be one of 'dir', 'sqlite', 'memory'", c.Store.Backend)
	}
	if c.Store.Backend != "memory" && c.Store.Path == "" {
		return fmt.Errorf("config error: store path is required for backend '%s'", c.Store.Backend)
	}
	if c.Store.AutosaveInterval < 0 {
		return fmt.Errorf("config error: autosave_interval cannot be negative")
	}

	if math.IsNaN(c.Simulation.ReactionThreshold) || math.IsInf(c.Simulation.ReactionThreshold, 0) {
		return fmt.Errorf("config error: reaction_threshold must be finite")
	}
	return nil
}

func unitInterval(v float64) bool {
	return v >= 0 && v <= 1
}

// cleanIniString trims whitespace and lowercases an enumerated INI value.
func cleanIniString(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
