package main

import (
	"encoding/json"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/boshu2/pipetrack/internal/tracker"
	"github.com/boshu2/pipetrack/internal/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline progress",
	Long: `Display the current state of the pipeline session.

Shows per-agent status, durations, overall progress, and the remaining-time
estimate.

Examples:
  pt status
  pt status -o json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// Status palette, following semantic terminal conventions.
var (
	styleHeader    = lipgloss.NewStyle().Bold(true)
	styleCompleted = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	styleFailed    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	styleRunning   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	styleMuted     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func styleFor(status string) lipgloss.Style {
	switch status {
	case string(types.StatusCompleted):
		return styleCompleted
	case string(types.StatusFailed):
		return styleFailed
	case string(types.StatusStarted):
		return styleRunning
	}
	return styleMuted
}

type statusOutput struct {
	SessionID                 string                 `json:"session_id"`
	SessionFile               string                 `json:"session_file"`
	GitHubIssue               int                    `json:"github_issue,omitempty"`
	ProgressPercent           int                    `json:"progress_percent"`
	RunningAgent              string                 `json:"running_agent,omitempty"`
	EstimatedRemainingSeconds *int                   `json:"estimated_remaining_seconds,omitempty"`
	PipelineComplete          bool                   `json:"pipeline_complete"`
	Agents                    []tracker.AgentDisplay `json:"agents"`
	ParallelExploration       *types.PhaseResult     `json:"parallel_exploration,omitempty"`
	ParallelValidation        *types.PhaseResult     `json:"parallel_validation,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, err := newContext(false)
	if err != nil {
		return err
	}
	defer func() {
		_ = ctx.Audit.Close()
	}()

	if err := ctx.Tracker.Refresh(); err != nil {
		return err
	}
	doc, err := ctx.Tracker.Document()
	if err != nil {
		return err
	}

	out := statusOutput{
		SessionID:                 doc.SessionID,
		SessionFile:               ctx.Tracker.SessionFile(),
		GitHubIssue:               doc.GitHubIssue,
		ProgressPercent:           ctx.Tracker.ProgressPercent(),
		RunningAgent:              ctx.Tracker.RunningAgent(),
		EstimatedRemainingSeconds: ctx.Tracker.EstimatedRemainingSeconds(),
		PipelineComplete:          ctx.Tracker.IsPipelineComplete(),
		Agents:                    ctx.Tracker.DisplayMetadata(),
		ParallelExploration:       doc.ParallelExploration,
		ParallelValidation:        doc.ParallelValidation,
	}

	if GetOutput(ctx.Config) == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	renderStatus(out)
	return nil
}

func renderStatus(out statusOutput) {
	fmt.Println(styleHeader.Render(fmt.Sprintf("session %s - %d%% complete", out.SessionID, out.ProgressPercent)))
	if out.GitHubIssue > 0 {
		fmt.Println(styleMuted.Render(fmt.Sprintf("issue #%d", out.GitHubIssue)))
	}

	for _, row := range out.Agents {
		line := fmt.Sprintf("%s %-16s %-10s", row.Glyph, row.Name, row.Status)
		if row.DurationSeconds != nil {
			line += fmt.Sprintf(" %4ds", *row.DurationSeconds)
		}
		if row.Message != "" {
			line += "  " + truncate(row.Message, 60)
		}
		fmt.Println(styleFor(row.Status).Render(line))
	}

	if out.EstimatedRemainingSeconds != nil {
		fmt.Println(styleMuted.Render(fmt.Sprintf("estimated remaining: %ds", *out.EstimatedRemainingSeconds)))
	}
	phases := []struct {
		name   string
		result *types.PhaseResult
	}{
		{"exploration", out.ParallelExploration},
		{"validation", out.ParallelValidation},
	}
	for _, p := range phases {
		name, phase := p.name, p.result
		if phase == nil {
			continue
		}
		fmt.Println(styleMuted.Render(fmt.Sprintf("%s: %s (saved %ds, efficiency %.2f%%)",
			name, phase.Status, phase.TimeSavedSeconds, phase.EfficiencyPercent)))
	}
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
