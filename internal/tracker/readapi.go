package tracker

import (
	"github.com/boshu2/pipetrack/internal/types"
)

// The read API operates on the in-memory document without store writes or
// validation side effects. Callers refresh first when staleness matters;
// the status subcommand does.

// AgentDisplay is one row of the progress rendering, present for every
// expected agent even before it has been seen.
type AgentDisplay struct {
	// Name is the canonical agent name.
	Name string `json:"name"`

	// Status is the latest entry status, or "pending" when unseen.
	Status string `json:"status"`

	// Description is the static display description.
	Description string `json:"description"`

	// Glyph is the status indicator character.
	Glyph string `json:"glyph"`

	// DurationSeconds is set for terminal entries with known timing.
	DurationSeconds *int `json:"duration_seconds,omitempty"`

	// ToolsUsed lists reported tool identifiers.
	ToolsUsed []string `json:"tools_used,omitempty"`

	// StartedAt and CompletedAt carry the entry timestamps when present.
	StartedAt   string `json:"started_at,omitempty"`
	CompletedAt string `json:"completed_at,omitempty"`

	// Message is the latest status message.
	Message string `json:"message,omitempty"`
}

// StatusPending marks an expected agent with no entry yet.
const StatusPending = "pending"

// statusGlyphs maps entry states to display glyphs.
var statusGlyphs = map[string]string{
	string(types.StatusCompleted): "✓",
	string(types.StatusFailed):    "✗",
	string(types.StatusStarted):   "⏳",
	StatusPending:                 "○",
}

// ExpectedAgents returns the configured pipeline names in canonical order.
func (t *Tracker) ExpectedAgents() []string {
	return t.pipeline.Names()
}

// latestByAgent maps each agent to its newest entry in file order.
func (t *Tracker) latestByAgent() map[string]*types.AgentEntry {
	latest := make(map[string]*types.AgentEntry)
	if t.doc == nil {
		return latest
	}
	for i := range t.doc.Agents {
		latest[t.doc.Agents[i].Agent] = &t.doc.Agents[i]
	}
	return latest
}

// ProgressPercent is the share of expected agents whose latest entry is
// terminal, as an integer percent (floor).
func (t *Tracker) ProgressPercent() int {
	expected := t.ExpectedAgents()
	if len(expected) == 0 {
		return 0
	}
	latest := t.latestByAgent()
	done := 0
	for _, name := range expected {
		if entry, ok := latest[name]; ok && entry.Status.IsTerminal() {
			done++
		}
	}
	return done * 100 / len(expected)
}

// PendingAgents returns expected agents with no entry at all.
func (t *Tracker) PendingAgents() []string {
	latest := t.latestByAgent()
	var pending []string
	for _, name := range t.ExpectedAgents() {
		if _, ok := latest[name]; !ok {
			pending = append(pending, name)
		}
	}
	return pending
}

// RunningAgent returns the most recently appended agent still in started
// status, or "".
func (t *Tracker) RunningAgent() string {
	if t.doc == nil {
		return ""
	}
	for i := len(t.doc.Agents) - 1; i >= 0; i-- {
		if t.doc.Agents[i].Status == types.StatusStarted {
			return t.doc.Agents[i].Agent
		}
	}
	return ""
}

// AverageAgentDurationSeconds is the mean duration over terminal entries
// with known timing. Nil when none exist.
func (t *Tracker) AverageAgentDurationSeconds() *float64 {
	if t.doc == nil {
		return nil
	}
	sum, count := 0, 0
	for i := range t.doc.Agents {
		e := &t.doc.Agents[i]
		if e.Status.IsTerminal() && e.DurationSeconds != nil {
			sum += *e.DurationSeconds
			count++
		}
	}
	if count == 0 {
		return nil
	}
	mean := float64(sum) / float64(count)
	return &mean
}

// EstimatedRemainingSeconds projects remaining runtime as remaining-agent
// count times the average duration, crediting the running agent's elapsed
// time. Nil when no average is available.
func (t *Tracker) EstimatedRemainingSeconds() *int {
	avg := t.AverageAgentDurationSeconds()
	if avg == nil {
		return nil
	}

	latest := t.latestByAgent()
	remaining := 0
	for _, name := range t.ExpectedAgents() {
		entry, ok := latest[name]
		if !ok || !entry.Status.IsTerminal() {
			remaining++
		}
	}

	estimate := float64(remaining) * *avg
	if running := t.RunningAgent(); running != "" {
		if entry, ok := latest[running]; ok && entry.StartedAt != "" {
			if started, err := types.ParseTimestamp(entry.StartedAt); err == nil {
				estimate -= t.now().Sub(started).Seconds()
			}
		}
	}
	if estimate < 0 {
		estimate = 0
	}
	result := int(estimate)
	return &result
}

// IsPipelineComplete reports whether every expected agent has at least one
// terminal entry.
func (t *Tracker) IsPipelineComplete() bool {
	if t.doc == nil {
		return false
	}
	terminal := make(map[string]bool)
	for i := range t.doc.Agents {
		e := &t.doc.Agents[i]
		if e.Status.IsTerminal() {
			terminal[e.Agent] = true
		}
	}
	for _, name := range t.ExpectedAgents() {
		if !terminal[name] {
			return false
		}
	}
	return true
}

// DisplayMetadata assembles one display row per expected agent.
func (t *Tracker) DisplayMetadata() []AgentDisplay {
	latest := t.latestByAgent()
	rows := make([]AgentDisplay, 0, len(t.pipeline.Agents))
	for _, spec := range t.pipeline.Agents {
		row := AgentDisplay{
			Name:        spec.Name,
			Status:      StatusPending,
			Description: spec.Description,
		}
		if entry, ok := latest[spec.Name]; ok {
			row.Status = string(entry.Status)
			row.DurationSeconds = entry.DurationSeconds
			row.ToolsUsed = entry.ToolsUsed
			row.StartedAt = entry.StartedAt
			row.CompletedAt = entry.TerminalAt()
			row.Message = entry.Message
		}
		row.Glyph = statusGlyphs[row.Status]
		rows = append(rows, row)
	}
	return rows
}
