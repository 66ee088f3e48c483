package safety

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boshu2/pipetrack/internal/audit"
	"github.com/boshu2/pipetrack/internal/types"
)

func TestValidateAgentName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"canonical", "security-auditor", false},
		{"underscore", "test_master", false},
		{"digits", "agent7", false},
		{"max length", strings.Repeat("a", AgentNameMaxLength), false},
		{"empty", "", true},
		{"too long", strings.Repeat("a", AgentNameMaxLength+1), true},
		{"space", "doc master", true},
		{"slash", "doc/master", true},
		{"dot dot", "..", true},
		{"nul byte", "doc\x00master", true},
		{"unicode", "ドキュメント", true},
		{"shell meta", "agent;rm -rf", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateAgentName(audit.Discard(), tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, got)
		})
	}
}

func TestValidateMessage(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		limit   int
		wantErr bool
	}{
		{"plain", "Survey written to docs/research.md", 0, false},
		{"tab newline cr", "line one\n\tline two\r\n", 0, false},
		{"empty", "", 0, false},
		{"at default limit", strings.Repeat("x", types.MessageMaxBytes), 0, false},
		{"over default limit", strings.Repeat("x", types.MessageMaxBytes+1), 0, true},
		{"multibyte counts bytes", strings.Repeat("é", 6000), 0, true},
		{"custom limit", strings.Repeat("x", 300), 255, true},
		{"escape sequence", "danger\x1b[31m", 0, true},
		{"bell", "ding\a", 0, true},
		{"delete", "x\x7f", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateMessage(audit.Discard(), tt.input, tt.limit)
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, got)
		})
	}
}

func TestValidateIssueNumber(t *testing.T) {
	tests := []struct {
		name    string
		input   int
		wantErr bool
	}{
		{"min", types.IssueMin, false},
		{"max", types.IssueMax, false},
		{"typical", 1234, false},
		{"zero", 0, true},
		{"negative", -5, true},
		{"over max", types.IssueMax + 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIssueNumber(audit.Discard(), tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
		})
	}
}
