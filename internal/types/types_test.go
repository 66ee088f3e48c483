package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentStatus(t *testing.T) {
	tests := []struct {
		status   AgentStatus
		valid    bool
		terminal bool
	}{
		{StatusStarted, true, false},
		{StatusCompleted, true, true},
		{StatusFailed, true, true},
		{AgentStatus("running"), false, false},
		{AgentStatus(""), false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.status.Valid())
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
		})
	}
}

func TestTerminalAt(t *testing.T) {
	completed := AgentEntry{Status: StatusCompleted, CompletedAt: "2026-01-15T10:00:00Z"}
	assert.Equal(t, "2026-01-15T10:00:00Z", completed.TerminalAt())

	failed := AgentEntry{Status: StatusFailed, FailedAt: "2026-01-15T10:05:00Z"}
	assert.Equal(t, "2026-01-15T10:05:00Z", failed.TerminalAt())

	started := AgentEntry{Status: StatusStarted, StartedAt: "2026-01-15T09:00:00Z"}
	assert.Equal(t, "", started.TerminalAt())
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"rfc3339 utc", "2026-01-15T10:30:00Z", false},
		{"rfc3339 offset", "2026-01-15T10:30:00+02:00", false},
		{"zoneless", "2026-01-15T10:30:00", false},
		{"date only", "2026-01-15", true},
		{"garbage", "not-a-timestamp", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidTimestamp)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 2026, got.Year())
			assert.Equal(t, 30, got.Minute())
		})
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 7, 14, 22, 9, 0, time.UTC)
	parsed, err := ParseTimestamp(FormatTimestamp(at))
	require.NoError(t, err)
	assert.True(t, at.Equal(parsed))
}

func TestDurationSeconds(t *testing.T) {
	base := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		terminal time.Time
		want     int
	}{
		{"whole seconds", base.Add(90 * time.Second), 90},
		{"floors fraction", base.Add(90*time.Second + 900*time.Millisecond), 90},
		{"zero", base, 0},
		{"negative clamps", base.Add(-time.Minute), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DurationSeconds(base, tt.terminal))
		})
	}
}

func TestSessionID(t *testing.T) {
	at := time.Date(2026, 1, 15, 10, 30, 45, 0, time.UTC)
	id := NewSessionID(at)
	assert.Equal(t, "20260115-103045", id)

	date, err := SessionDate(id)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), date)

	_, err = SessionDate("not-a-session")
	assert.ErrorIs(t, err, ErrInvalidTimestamp)
}

func TestPipelineTables(t *testing.T) {
	assert.Len(t, PipelineAgents, 7)
	assert.Equal(t, []string{AgentResearcher, AgentPlanner}, ExplorationAgents)
	assert.Equal(t, []string{AgentReviewer, AgentSecurityAuditor, AgentDocMaster}, ValidationAgents)
	for _, name := range PipelineAgents {
		assert.NotEmpty(t, AgentDescriptions[name], "description for %s", name)
	}
}
