package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boshu2/pipetrack/internal/types"
)

func TestDiscoverRoot(t *testing.T) {
	t.Run("git marker", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0700))
		nested := filepath.Join(root, "a", "b", "c")
		require.NoError(t, os.MkdirAll(nested, 0700))

		got, err := DiscoverRoot(nested)
		require.NoError(t, err)
		assert.Equal(t, root, got)
	})

	t.Run("claude marker", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, ".claude"), 0700))

		got, err := DiscoverRoot(root)
		require.NoError(t, err)
		assert.Equal(t, root, got)
	})

	t.Run("nearest ancestor wins", func(t *testing.T) {
		outer := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(outer, ".git"), 0700))
		inner := filepath.Join(outer, "sub")
		require.NoError(t, os.MkdirAll(filepath.Join(inner, ".claude"), 0700))

		got, err := DiscoverRoot(filepath.Join(inner, "deep"))
		// The start directory does not exist; discovery only stats markers.
		require.NoError(t, err)
		assert.Equal(t, inner, got)
	})

	t.Run("no marker", func(t *testing.T) {
		_, err := DiscoverRoot(t.TempDir())
		assert.ErrorIs(t, err, types.ErrNoProjectRoot)
	})
}
