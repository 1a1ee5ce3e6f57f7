package pkg

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pairRecord struct {
	Old      string
	New      string
	Affected float64
	Source   *float64
}

func TestFileSpill(t *testing.T) {
	t.Run("creates the journal inside the given directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "journal")

		spill, err := NewFileSpill[int](dir)
		require.NoError(t, err)
		defer spill.Close()

		assert.Equal(t, dir, filepath.Dir(spill.Path()))
		assert.Equal(t, uint64(0), spill.Len())
	})

	t.Run("Range replays items in append order", func(t *testing.T) {
		spill, err := NewFileSpill[string](t.TempDir())
		require.NoError(t, err)
		defer spill.Close()

		for _, item := range []string{"libfoo.so.1", "libbar.so.2", "libbaz.so.3"} {
			require.NoError(t, spill.Append(item))
		}

		var got []string
		err = spill.Range(func(index uint64, item string) error {
			assert.Equal(t, uint64(len(got)), index)
			got = append(got, item)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"libfoo.so.1", "libbar.so.2", "libbaz.so.3"}, got)
	})

	t.Run("round trips structs with nil pointers", func(t *testing.T) {
		spill, err := NewFileSpill[pairRecord](t.TempDir())
		require.NoError(t, err)
		defer spill.Close()

		src := 12.5
		require.NoError(t, spill.Append(pairRecord{Old: "libfoo.so.1", New: "libfoo.so.2", Affected: 25}))
		require.NoError(t, spill.Append(pairRecord{Old: "libbar.so.1", New: "libbar.so.1", Source: &src}))

		var got []pairRecord
		require.NoError(t, spill.Range(func(_ uint64, item pairRecord) error {
			got = append(got, item)
			return nil
		}))

		require.Len(t, got, 2)
		assert.Nil(t, got[0].Source)
		assert.Equal(t, 25.0, got[0].Affected)
		require.NotNil(t, got[1].Source)
		assert.Equal(t, 12.5, *got[1].Source)
	})

	t.Run("Range stops on callback error", func(t *testing.T) {
		spill, err := NewFileSpill[int](t.TempDir())
		require.NoError(t, err)
		defer spill.Close()

		for i := range 5 {
			require.NoError(t, spill.Append(i))
		}

		stop := errors.New("stop")
		visited := 0
		err = spill.Range(func(index uint64, _ int) error {
			visited++
			if index == 1 {
				return stop
			}
			return nil
		})
		require.ErrorIs(t, err, stop)
		assert.Equal(t, 2, visited)
	})

	t.Run("concurrent appends are all recorded", func(t *testing.T) {
		spill, err := NewFileSpill[int](t.TempDir())
		require.NoError(t, err)
		defer spill.Close()

		var wg sync.WaitGroup
		for i := range 50 {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				assert.NoError(t, spill.Append(n))
			}(i)
		}
		wg.Wait()

		sum := 0
		require.NoError(t, spill.Range(func(_ uint64, item int) error {
			sum += item
			return nil
		}))
		assert.Equal(t, uint64(50), spill.Len())
		assert.Equal(t, 49*50/2, sum)
	})

	t.Run("append after close fails", func(t *testing.T) {
		spill, err := NewFileSpill[int](t.TempDir())
		require.NoError(t, err)

		require.NoError(t, spill.Close())
		require.NoError(t, spill.Close())
		assert.Error(t, spill.Append(1))
	})
}

func BenchmarkAppend(b *testing.B) {
	spill, err := NewFileSpill[pairRecord](b.TempDir())
	if err != nil {
		b.Fatal(err)
	}
	defer spill.Close()

	b.ResetTimer()

	for range b.N {
		_ = spill.Append(pairRecord{Old: "libfoo.so.1", New: "libfoo.so.2", Affected: 1.5})
	}
}
