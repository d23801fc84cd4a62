package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gonum.org/v1/gonum/mat"
)

const (
	networkExt   = ".gob.gz"
	dataDir      = "data"
	metadataFile = "data.json"
)

// DirStore keeps each population in a directory under a root:
//
//	<root>/<name>/0.gob.gz, 1.gob.gz, ...   one artifact per network
//	<root>/<name>/data/data.json            generation metadata
type DirStore struct {
	root string
	mu   sync.Mutex
}

// NewDirStore returns a store rooted at root. The directory is created on first save.
func NewDirStore(root string) (*DirStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("dir store root is required")
	}
	return &DirStore{root: root}, nil
}

// Root returns the directory holding all populations.
func (s *DirStore) Root() string {
	return s.root
}

func (s *DirStore) Save(ctx context.Context, name string, snap Snapshot) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("failed to create store root '%s': %w", s.root, err)
	}

	// Build the new contents next to the old ones, then swap them in.
	tmp, err := os.MkdirTemp(s.root, "."+name+"-*")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(tmp)

	for i, layers := range snap.Networks {
		if err := ctx.Err(); err != nil {
			return err
		}
		payload, err := EncodeNetwork(layers)
		if err != nil {
			return fmt.Errorf("network %d: %w", i, err)
		}
		if err := os.WriteFile(filepath.Join(tmp, strconv.Itoa(i)+networkExt), payload, 0o644); err != nil {
			return fmt.Errorf("failed to write network %d: %w", i, err)
		}
	}

	if err := os.MkdirAll(filepath.Join(tmp, dataDir), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	meta, err := EncodeMetadata(snap.Metadata)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(tmp, dataDir, metadataFile), meta, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	path := filepath.Join(s.root, name)
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to clear '%s': %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to move population into '%s': %w", path, err)
	}
	return nil
}

func (s *DirStore) Load(ctx context.Context, name string) (Snapshot, error) {
	if err := ValidateName(name); err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.root, name)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return Snapshot{}, err
	}

	meta, err := readMetadata(path)
	if err != nil {
		return Snapshot{}, err
	}

	indexes, err := networkIndexes(path)
	if err != nil {
		return Snapshot{}, err
	}
	if len(indexes) == 0 {
		return Snapshot{}, fmt.Errorf("%w: no network artifacts in %s", ErrNotFound, path)
	}

	networks := make([][]*mat.Dense, 0, len(indexes))
	for _, idx := range indexes {
		if err := ctx.Err(); err != nil {
			return Snapshot{}, err
		}
		payload, err := os.ReadFile(filepath.Join(path, strconv.Itoa(idx)+networkExt))
		if err != nil {
			return Snapshot{}, fmt.Errorf("failed to read network %d: %w", idx, err)
		}
		layers, err := DecodeNetwork(payload)
		if err != nil {
			return Snapshot{}, fmt.Errorf("network %d: %w", idx, err)
		}
		networks = append(networks, layers)
	}

	return Snapshot{Networks: networks, Metadata: meta}, nil
}

func (s *DirStore) List(_ context.Context) ([]Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return []Summary{}, nil
	}
	if err != nil {
		return nil, err
	}

	out := []Summary{}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(s.root, e.Name())
		meta, err := readMetadata(path)
		if errors.Is(err, ErrNotFound) {
			continue // not a population directory
		}
		if err != nil {
			return nil, err
		}
		indexes, err := networkIndexes(path)
		if err != nil {
			return nil, err
		}
		out = append(out, Summary{Name: e.Name(), Size: len(indexes), Generation: meta.Generation})
	}
	return out, nil
}

func (s *DirStore) Delete(_ context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return os.RemoveAll(filepath.Join(s.root, name))
}

func readMetadata(path string) (Metadata, error) {
	payload, err := os.ReadFile(filepath.Join(path, dataDir, metadataFile))
	if errors.Is(err, fs.ErrNotExist) {
		return Metadata{}, fmt.Errorf("%w: no metadata in %s", ErrNotFound, path)
	}
	if err != nil {
		return Metadata{}, err
	}
	return DecodeMetadata(payload)
}

// networkIndexes lists the slot index of every network artifact, ascending.
// Directory order is not stable across filesystems, so the numeric index in
// the file name is the only ordering used.
func networkIndexes(path string) ([]int, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	indexes := []int{}
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), networkExt) {
			continue
		}
		base := strings.TrimSuffix(e.Name(), networkExt)
		idx, err := strconv.Atoi(base)
		if err != nil || idx < 0 || strconv.Itoa(idx) != base {
			continue
		}
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	return indexes, nil
}
