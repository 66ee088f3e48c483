package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readEvents(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var events []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var event map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &event), "line %q", scanner.Text())
		events = append(events, event)
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestEmitSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "audit.log")
	log := Open(path)

	log.Emit(EventPathValidation, ResultBlocked, "validate_path", map[string]any{
		"path":   "/etc/passwd",
		"reason": "system root",
	})
	require.NoError(t, log.Close())

	events := readEvents(t, path)
	require.Len(t, events, 1)
	event := events[0]

	assert.Equal(t, EventPathValidation, event["event_type"])
	assert.Equal(t, ResultBlocked, event["result"])
	assert.Equal(t, "validate_path", event["operation"])
	assert.NotEmpty(t, event["timestamp"])

	ctx, ok := event["context"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "/etc/passwd", ctx["path"])
	assert.NotEmpty(t, ctx["event_id"])
}

func TestEmitAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")

	first := Open(path)
	first.Emit(EventAgentTransition, ResultSuccess, "start", map[string]any{"agent": "researcher"})
	require.NoError(t, first.Close())

	second := Open(path)
	second.Emit(EventAgentTransition, ResultSuccess, "complete", map[string]any{"agent": "researcher"})
	require.NoError(t, second.Close())

	events := readEvents(t, path)
	require.Len(t, events, 2)
	assert.Equal(t, "start", events[0]["operation"])
	assert.Equal(t, "complete", events[1]["operation"])

	// Event ids distinguish records across writers.
	a := events[0]["context"].(map[string]any)["event_id"]
	b := events[1]["context"].(map[string]any)["event_id"]
	assert.NotEqual(t, a, b)
}

func TestEmitNilContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	log := Open(path)
	log.Emit(EventAutoTrack, ResultSkipped, "auto_track", nil)
	require.NoError(t, log.Close())

	events := readEvents(t, path)
	require.Len(t, events, 1)
	ctx := events[0]["context"].(map[string]any)
	assert.NotEmpty(t, ctx["event_id"])
}

func TestNoOpLoggers(t *testing.T) {
	var nilLogger *Logger
	nilLogger.Emit(EventStoreWrite, ResultFailure, "save", nil)
	assert.NoError(t, nilLogger.Close())

	discard := Discard()
	discard.Emit(EventStoreWrite, ResultFailure, "save", nil)
	assert.NoError(t, discard.Close())

	empty := Open("")
	empty.Emit(EventStoreWrite, ResultFailure, "save", nil)
	assert.NoError(t, empty.Close())
}

func TestOpenUnwritableDestination(t *testing.T) {
	// The parent "directory" is a regular file, so open fails and the logger
	// degrades to a no-op.
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	log := Open(filepath.Join(blocker, "audit.log"))
	log.Emit(EventStoreWrite, ResultFailure, "save", nil)
	assert.NoError(t, log.Close())
}

func TestFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	log := Open(path)
	log.Emit(EventAgentTransition, ResultSuccess, "start", nil)
	require.NoError(t, log.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
