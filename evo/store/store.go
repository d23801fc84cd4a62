// Package store persists population snapshots in named containers.
//
// A snapshot is the ordered list of every network's weight matrices plus the
// generation metadata. Saving replaces whatever the named container held
// before; loading returns the networks ordered by their slot index.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNotFound is returned when a store name, its metadata or its networks are missing.
	ErrNotFound = errors.New("population not found")
	// ErrInvalidName is returned for names that cannot address a container.
	ErrInvalidName = errors.New("invalid population name")
)

// Metadata is the generation record saved next to the networks.
type Metadata struct {
	Generation      int       `json:"generation"`
	BestFitnessEver float64   `json:"best_fitness_ever"`
	FitnessHistory  []float64 `json:"fitness_history"`
}

// Snapshot is everything needed to rebuild a population.
type Snapshot struct {
	Networks [][]*mat.Dense
	Metadata Metadata
}

// Summary describes a saved population without loading its weights.
type Summary struct {
	Name       string
	Size       int
	Generation int
}

// Store is implemented by every persistence backend.
type Store interface {
	// Save replaces the named container with snap.
	Save(ctx context.Context, name string, snap Snapshot) error
	// Load reads the named container. Missing containers yield ErrNotFound.
	Load(ctx context.Context, name string) (Snapshot, error)
	// List describes every saved container, sorted by name.
	List(ctx context.Context) ([]Summary, error)
	// Delete removes the named container. Deleting a missing name is not an error.
	Delete(ctx context.Context, name string) error
}

// New opens a store backend by kind: "dir" (path is the root directory),
// "sqlite" (path is the database file) or "memory".
func New(kind, path string) (Store, error) {
	switch kind {
	case "", "dir":
		return NewDirStore(path)
	case "sqlite":
		return NewSQLiteStore(path)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

// CloseIfSupported closes backends that hold resources.
func CloseIfSupported(s Store) error {
	closer, ok := s.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}

// ValidateName rejects names that are empty, could escape the store root or
// start with a dot. Dot names are reserved for staging directories.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// copyNetworks deep-copies every matrix so stored and caller data never alias.
func copyNetworks(networks [][]*mat.Dense) [][]*mat.Dense {
	out := make([][]*mat.Dense, len(networks))
	for i, layers := range networks {
		out[i] = make([]*mat.Dense, len(layers))
		for j, l := range layers {
			out[i][j] = mat.DenseCopyOf(l)
		}
	}
	return out
}

func copyMetadata(m Metadata) Metadata {
	m.FitnessHistory = append([]float64{}, m.FitnessHistory...)
	return m
}
