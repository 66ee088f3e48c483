package main

import (
	"os"
	"path/filepath"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boshu2/pipetrack/internal/config"
	"github.com/boshu2/pipetrack/internal/types"
)

func TestJoinMessage(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"single", []string{"hello"}, "hello"},
		{"multiple", []string{"Survey", "written", "to", "docs"}, "Survey written to docs"},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, joinMessage(tt.args))
		})
	}
}

func TestGetOutput(t *testing.T) {
	restore := output
	defer func() { output = restore }()

	output = ""
	assert.Equal(t, "table", GetOutput(nil))
	assert.Equal(t, "json", GetOutput(&config.Config{Output: "json"}))

	// The flag wins over configuration.
	output = "json"
	assert.Equal(t, "json", GetOutput(&config.Config{Output: "table"}))
}

func TestResolveSessionFile(t *testing.T) {
	restore := sessionFile
	defer func() { sessionFile = restore }()
	sessionFile = ""

	root := t.TempDir()
	cfg := &config.Config{SessionDir: "docs/sessions"}

	t.Run("explicit override", func(t *testing.T) {
		sessionFile = "/explicit/session.json"
		defer func() { sessionFile = "" }()
		got, err := resolveSessionFile(root, cfg, false)
		require.NoError(t, err)
		assert.Equal(t, "/explicit/session.json", got)
	})

	t.Run("no session without create", func(t *testing.T) {
		_, err := resolveSessionFile(root, cfg, false)
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("create yields canonical path", func(t *testing.T) {
		got, err := resolveSessionFile(root, cfg, true)
		require.NoError(t, err)
		assert.Equal(t, filepath.Dir(got), filepath.Join(root, "docs/sessions"))
		assert.Contains(t, filepath.Base(got), "-pipeline.json")
	})

	t.Run("newest existing session wins", func(t *testing.T) {
		dir := filepath.Join(root, "docs", "sessions")
		require.NoError(t, os.MkdirAll(dir, 0700))
		for _, name := range []string{"20260114-090000-pipeline.json", "20260115-103045-pipeline.json"} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0600))
		}
		got, err := resolveSessionFile(root, cfg, true)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "20260115-103045-pipeline.json"), got)
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly-10", truncate("exactly-10", 10))
	assert.Equal(t, "toolong", truncate("toolongmessage", 10)[:7])
	assert.Len(t, truncate("a very long message that must be cut", 10), 10)

	// Multi-byte input is cut on rune boundaries, never mid-encoding.
	got := truncate("héllo wörld with ümlauts beyond the limit", 10)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "héllo w...", got)

	// Tiny limits cannot underflow the ellipsis slice.
	assert.Equal(t, "ab", truncate("abcdef", 2))
	assert.Equal(t, "", truncate("abcdef", 0))
}
