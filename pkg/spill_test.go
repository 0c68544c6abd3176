package pkg

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Ordinal int
	Value   string
}

func TestSpill(t *testing.T) {
	t.Run("creates file in requested directory", func(t *testing.T) {
		dir := t.TempDir()

		spill, err := NewSpill[int](dir)
		require.NoError(t, err)
		defer spill.Close()

		assert.FileExists(t, spill.Path())
		assert.Contains(t, spill.Path(), dir)
	})

	t.Run("empty dir falls back to temp dir", func(t *testing.T) {
		spill, err := NewSpill[int]("")
		require.NoError(t, err)
		defer spill.Close()

		assert.Contains(t, spill.Path(), os.TempDir())
	})

	t.Run("append and iterate in order", func(t *testing.T) {
		spill, err := NewSpill[entry](t.TempDir())
		require.NoError(t, err)
		defer spill.Close()

		for i, v := range []string{"a", "b", "c"} {
			require.NoError(t, spill.Append(entry{Ordinal: i, Value: v}))
		}

		require.Equal(t, uint64(3), spill.Len())

		var got []entry
		for item, err := range spill.All() {
			require.NoError(t, err)
			got = append(got, item)
		}

		assert.Equal(t, []entry{{0, "a"}, {1, "b"}, {2, "c"}}, got)
	})

	t.Run("iteration can stop early", func(t *testing.T) {
		spill, err := NewSpill[int](t.TempDir())
		require.NoError(t, err)
		defer spill.Close()

		for i := range 10 {
			require.NoError(t, spill.Append(i))
		}

		seen := 0
		for range spill.All() {
			seen++
			if seen == 3 {
				break
			}
		}

		assert.Equal(t, 3, seen)
	})

	t.Run("empty spill yields nothing", func(t *testing.T) {
		spill, err := NewSpill[int](t.TempDir())
		require.NoError(t, err)
		defer spill.Close()

		for range spill.All() {
			t.Fatal("unexpected item")
		}
	})

	t.Run("close removes the file and rejects appends", func(t *testing.T) {
		spill, err := NewSpill[int](t.TempDir())
		require.NoError(t, err)

		require.NoError(t, spill.Append(1))
		require.NoError(t, spill.Close())
		require.NoError(t, spill.Close())

		assert.NoFileExists(t, spill.Path())
		require.Error(t, spill.Append(2))
	})
}
