package tracker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boshu2/pipetrack/internal/store"
	"github.com/boshu2/pipetrack/internal/types"
)

func TestFindAgentUnknownEverywhere(t *testing.T) {
	clock := newFakeClock()
	tr := newTestTracker(t, clock)
	require.NoError(t, tr.Refresh())

	assert.Nil(t, tr.FindAgent(types.AgentResearcher))
}

func TestFindAgentMemoryWins(t *testing.T) {
	clock := newFakeClock()
	tr := newTestTracker(t, clock)
	require.NoError(t, tr.Start(types.AgentResearcher, "working"))

	// Another writer marks the agent completed on disk; the cached in-memory
	// entry still takes priority.
	other := store.NewFileStore(tr.SessionFile())
	doc, err := other.Load()
	require.NoError(t, err)
	doc.Agents = append(doc.Agents, types.AgentEntry{
		Agent:       types.AgentResearcher,
		Status:      types.StatusCompleted,
		CompletedAt: "2026-01-15T10:40:00Z",
	})
	require.NoError(t, other.Save(doc))

	entry := tr.FindAgent(types.AgentResearcher)
	require.NotNil(t, entry)
	assert.Equal(t, types.StatusStarted, entry.Status)
}

func TestFindAgentStoreSeesOtherWriters(t *testing.T) {
	clock := newFakeClock()
	tr := newTestTracker(t, clock)
	require.NoError(t, tr.Refresh())

	other := store.NewFileStore(tr.SessionFile())
	require.NoError(t, other.Save(&types.Document{
		SessionID: "20260115-103045",
		Agents: []types.AgentEntry{{
			Agent:       types.AgentPlanner,
			Status:      types.StatusCompleted,
			StartedAt:   "2026-01-15T10:31:00Z",
			CompletedAt: "2026-01-15T10:33:00Z",
		}},
	}))

	entry := tr.FindAgent(types.AgentPlanner)
	require.NotNil(t, entry)
	assert.Equal(t, types.StatusCompleted, entry.Status)
}

func TestFindAgentStoreIgnoresNonTerminal(t *testing.T) {
	clock := newFakeClock()
	tr := newTestTracker(t, clock)
	require.NoError(t, tr.Refresh())

	other := store.NewFileStore(tr.SessionFile())
	require.NoError(t, other.Save(&types.Document{
		SessionID: "20260115-103045",
		Agents: []types.AgentEntry{{
			Agent:     types.AgentPlanner,
			Status:    types.StatusStarted,
			StartedAt: "2026-01-15T10:31:00Z",
		}},
	}))

	// The cache predates the other writer, so memory misses; the store only
	// surfaces terminal entries.
	assert.Nil(t, tr.FindAgent(types.AgentPlanner))
}

func TestFindAgentNarrativeFallback(t *testing.T) {
	clock := newFakeClock()
	tr := newTestTracker(t, clock)
	require.NoError(t, tr.Refresh())

	transcript := `10:31:00 - researcher: Starting codebase survey
10:33:30 - researcher: completed survey
`
	require.NoError(t, os.MkdirAll(filepath.Dir(tr.SessionFile()), 0700))
	require.NoError(t, os.WriteFile(NarrativePath(tr.SessionFile()), []byte(transcript), 0600))

	entry := tr.FindAgent(types.AgentResearcher)
	require.NotNil(t, entry)
	assert.Equal(t, types.StatusCompleted, entry.Status)
	assert.Equal(t, "2026-01-15T10:31:00Z", entry.StartedAt)
	require.NotNil(t, entry.DurationSeconds)
	assert.Equal(t, 150, *entry.DurationSeconds)
}

func TestFindAgentDiscardsInvalidAndFallsThrough(t *testing.T) {
	clock := newFakeClock()
	tr := newTestTracker(t, clock)
	require.NoError(t, tr.Refresh())

	// Memory holds a corrupt entry; the narrative still has the real one.
	tr.doc.Agents = append(tr.doc.Agents, types.AgentEntry{
		Agent:       types.AgentResearcher,
		Status:      types.StatusCompleted,
		CompletedAt: "not-a-timestamp",
	})
	transcript := `10:31:00 - researcher: Starting survey
10:33:30 - researcher: completed survey
`
	require.NoError(t, os.MkdirAll(filepath.Dir(tr.SessionFile()), 0700))
	require.NoError(t, os.WriteFile(NarrativePath(tr.SessionFile()), []byte(transcript), 0600))

	entry := tr.FindAgent(types.AgentResearcher)
	require.NotNil(t, entry)
	assert.Equal(t, "2026-01-15T10:33:30Z", entry.CompletedAt)
}

func TestFindAgentMarksDuplicates(t *testing.T) {
	clock := newFakeClock()
	tr := newTestTracker(t, clock)
	require.NoError(t, tr.Refresh())

	tr.doc.Agents = append(tr.doc.Agents,
		types.AgentEntry{
			Agent:       types.AgentResearcher,
			Status:      types.StatusCompleted,
			StartedAt:   "2026-01-15T10:31:00Z",
			CompletedAt: "2026-01-15T10:32:00Z",
		},
		types.AgentEntry{
			Agent:       types.AgentResearcher,
			Status:      types.StatusCompleted,
			StartedAt:   "2026-01-15T10:33:00Z",
			CompletedAt: "2026-01-15T10:34:00Z",
		},
	)

	entry := tr.FindAgent(types.AgentResearcher)
	require.NotNil(t, entry)
	// The latest entry wins and the duplication is recorded.
	assert.Equal(t, "2026-01-15T10:34:00Z", entry.CompletedAt)
	assert.Equal(t, []string{types.AgentResearcher}, tr.duplicateAgents)

	// Re-finding the same agent does not double-report.
	tr.FindAgent(types.AgentResearcher)
	assert.Equal(t, []string{types.AgentResearcher}, tr.duplicateAgents)
}

func TestFindAgentReturnsCopy(t *testing.T) {
	clock := newFakeClock()
	tr := newTestTracker(t, clock)
	require.NoError(t, tr.Start(types.AgentResearcher, "working"))

	entry := tr.FindAgent(types.AgentResearcher)
	require.NotNil(t, entry)
	entry.Message = "mutated by caller"

	doc, err := tr.Document()
	require.NoError(t, err)
	assert.Equal(t, "working", doc.Agents[0].Message)
}

func TestValidEntry(t *testing.T) {
	tests := []struct {
		name  string
		entry *types.AgentEntry
		want  bool
	}{
		{"nil", nil, false},
		{"no agent", &types.AgentEntry{Status: types.StatusStarted, StartedAt: "2026-01-15T10:31:00Z"}, false},
		{"bad status", &types.AgentEntry{Agent: "a", Status: "running", StartedAt: "2026-01-15T10:31:00Z"}, false},
		{"started ok", &types.AgentEntry{Agent: "a", Status: types.StatusStarted, StartedAt: "2026-01-15T10:31:00Z"}, true},
		{"started without timestamp", &types.AgentEntry{Agent: "a", Status: types.StatusStarted}, false},
		{"started bad timestamp", &types.AgentEntry{Agent: "a", Status: types.StatusStarted, StartedAt: "nope"}, false},
		{"completed ok", &types.AgentEntry{Agent: "a", Status: types.StatusCompleted, CompletedAt: "2026-01-15T10:31:00Z"}, true},
		{"completed without terminal stamp", &types.AgentEntry{Agent: "a", Status: types.StatusCompleted}, false},
		{"failed bad terminal stamp", &types.AgentEntry{Agent: "a", Status: types.StatusFailed, FailedAt: "nope"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, validEntry(tt.entry))
		})
	}
}
