package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// testNetworks builds n two-layer networks whose first weight equals their index.
func testNetworks(n int) [][]*mat.Dense {
	out := make([][]*mat.Dense, n)
	for i := range out {
		l0 := mat.NewDense(3, 4, nil)
		l1 := mat.NewDense(2, 3, nil)
		for r := 0; r < 3; r++ {
			for c := 0; c < 4; c++ {
				l0.Set(r, c, float64(i)+float64(r*4+c)/100)
			}
		}
		for r := 0; r < 2; r++ {
			for c := 0; c < 3; c++ {
				l1.Set(r, c, -float64(i)-float64(r*3+c)/100)
			}
		}
		out[i] = []*mat.Dense{l0, l1}
	}
	return out
}

func backends(t *testing.T) map[string]Store {
	t.Helper()
	dir, err := NewDirStore(filepath.Join(t.TempDir(), "populations"))
	require.NoError(t, err)
	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "populations.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Store{
		"dir":    dir,
		"sqlite": sqlite,
		"memory": NewMemoryStore(),
	}
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	for kind, s := range backends(t) {
		t.Run(kind, func(t *testing.T) {
			nets := testNetworks(12)
			meta := Metadata{Generation: 7, BestFitnessEver: 3.5, FitnessHistory: []float64{1, 2, 3.5, 3}}
			require.NoError(t, s.Save(ctx, "arena", Snapshot{Networks: nets, Metadata: meta}))

			snap, err := s.Load(ctx, "arena")
			require.NoError(t, err)
			assert.Equal(t, meta, snap.Metadata)
			require.Len(t, snap.Networks, 12)
			for i := range nets {
				require.Len(t, snap.Networks[i], 2, "network %d", i)
				for j := range nets[i] {
					assert.True(t, mat.Equal(nets[i][j], snap.Networks[i][j]), "network %d layer %d", i, j)
				}
			}
		})
	}
}

func TestSaveReplacesPreviousContents(t *testing.T) {
	ctx := context.Background()
	for kind, s := range backends(t) {
		t.Run(kind, func(t *testing.T) {
			require.NoError(t, s.Save(ctx, "arena", Snapshot{Networks: testNetworks(5), Metadata: Metadata{Generation: 1}}))
			require.NoError(t, s.Save(ctx, "arena", Snapshot{Networks: testNetworks(2), Metadata: Metadata{Generation: 2}}))

			snap, err := s.Load(ctx, "arena")
			require.NoError(t, err)
			assert.Len(t, snap.Networks, 2)
			assert.Equal(t, 2, snap.Metadata.Generation)
		})
	}
}

func TestLoadMissing(t *testing.T) {
	ctx := context.Background()
	for kind, s := range backends(t) {
		t.Run(kind, func(t *testing.T) {
			_, err := s.Load(ctx, "nobody")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestLoadWithoutNetworks(t *testing.T) {
	ctx := context.Background()
	for kind, s := range backends(t) {
		t.Run(kind, func(t *testing.T) {
			require.NoError(t, s.Save(ctx, "empty", Snapshot{Metadata: Metadata{Generation: 3}}))
			_, err := s.Load(ctx, "empty")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestListAndDelete(t *testing.T) {
	ctx := context.Background()
	for kind, s := range backends(t) {
		t.Run(kind, func(t *testing.T) {
			list, err := s.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, list)

			require.NoError(t, s.Save(ctx, "beta", Snapshot{Networks: testNetworks(3), Metadata: Metadata{Generation: 4}}))
			require.NoError(t, s.Save(ctx, "alpha", Snapshot{Networks: testNetworks(2), Metadata: Metadata{Generation: 9}}))

			list, err = s.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []Summary{
				{Name: "alpha", Size: 2, Generation: 9},
				{Name: "beta", Size: 3, Generation: 4},
			}, list)

			require.NoError(t, s.Delete(ctx, "alpha"))
			require.NoError(t, s.Delete(ctx, "alpha"))
			_, err = s.Load(ctx, "alpha")
			assert.ErrorIs(t, err, ErrNotFound)

			list, err = s.List(ctx)
			require.NoError(t, err)
			assert.Len(t, list, 1)
		})
	}
}

func TestInvalidNames(t *testing.T) {
	ctx := context.Background()
	for kind, s := range backends(t) {
		t.Run(kind, func(t *testing.T) {
			for _, name := range []string{"", " ", ".", "..", ".arena", "a/b", `a\b`} {
				err := s.Save(ctx, name, Snapshot{Networks: testNetworks(1)})
				assert.ErrorIs(t, err, ErrInvalidName, "name %q", name)
			}
		})
	}
}

func TestDotNamesNeverListed(t *testing.T) {
	ctx := context.Background()
	s, err := NewDirStore(t.TempDir())
	require.NoError(t, err)

	assert.ErrorIs(t, s.Save(ctx, ".hidden", Snapshot{Networks: testNetworks(1)}), ErrInvalidName)
	require.NoError(t, s.Save(ctx, "visible.v2", Snapshot{Networks: testNetworks(1)}))

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Summary{{Name: "visible.v2", Size: 1}}, list)
}

func TestMemoryStoreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	nets := testNetworks(1)
	require.NoError(t, s.Save(ctx, "a", Snapshot{Networks: nets}))

	nets[0][0].Set(0, 0, 99)
	snap, err := s.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 0.0, snap.Networks[0][0].At(0, 0))

	snap.Networks[0][0].Set(0, 0, 42)
	again, err := s.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 0.0, again.Networks[0][0].At(0, 0))
}

func TestDirStoreLayout(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewDirStore(root)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "arena", Snapshot{Networks: testNetworks(3), Metadata: Metadata{Generation: 5}}))

	for _, f := range []string{"0.gob.gz", "1.gob.gz", "2.gob.gz", "data/data.json"} {
		_, err := os.Stat(filepath.Join(root, "arena", f))
		assert.NoError(t, err, f)
	}

	data, err := os.ReadFile(filepath.Join(root, "arena", "data", "data.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"generation": 5, "best_fitness_ever": 0, "fitness_history": []}`, string(data))

	// No staging directories are left behind.
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "arena", entries[0].Name())
}

func TestDirStoreMissingMetadata(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewDirStore(root)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "arena", Snapshot{Networks: testNetworks(2)}))
	require.NoError(t, os.Remove(filepath.Join(root, "arena", "data", "data.json")))

	_, err = s.Load(ctx, "arena")
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDirStoreNumericOrder(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewDirStore(root)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "arena", Snapshot{Networks: testNetworks(11)}))

	// Stray files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(root, "arena", "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "arena", "07.gob.gz"), []byte("x"), 0o644))

	snap, err := s.Load(ctx, "arena")
	require.NoError(t, err)
	require.Len(t, snap.Networks, 11)
	for i, layers := range snap.Networks {
		assert.Equal(t, float64(i), layers[0].At(0, 0))
	}
}

func TestCodecRejectsGarbage(t *testing.T) {
	_, err := DecodeNetwork([]byte("not gzip"))
	assert.Error(t, err)
	_, err = DecodeMetadata([]byte("{"))
	assert.Error(t, err)
}

func TestNewBackends(t *testing.T) {
	s, err := New("memory", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = New("dir", t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &DirStore{}, s)
	assert.NoError(t, CloseIfSupported(s))

	s, err = New("sqlite", filepath.Join(t.TempDir(), "x.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	assert.NoError(t, CloseIfSupported(s))

	_, err = New("redis", "")
	assert.Error(t, err)
	_, err = New("dir", "")
	assert.Error(t, err)
}
