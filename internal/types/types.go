// Package types defines the data structures for the pipetrack session
// document: agent entries, phase results, and the canonical pipeline table.
package types

// AgentStatus is the lifecycle state of a single agent entry.
type AgentStatus string

const (
	// StatusStarted means the agent has been registered but not finished.
	StatusStarted AgentStatus = "started"

	// StatusCompleted means the agent finished successfully.
	StatusCompleted AgentStatus = "completed"

	// StatusFailed means the agent finished with an error.
	StatusFailed AgentStatus = "failed"
)

// IsTerminal reports whether the status is completed or failed.
func (s AgentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether the status is one of the three known states.
func (s AgentStatus) Valid() bool {
	return s == StatusStarted || s == StatusCompleted || s == StatusFailed
}

// PhaseStatus classifies a parallel-phase verification result.
type PhaseStatus string

const (
	// PhaseParallel means all member agents started within the parallel window.
	PhaseParallel PhaseStatus = "parallel"

	// PhaseSequential means the members completed but started too far apart.
	PhaseSequential PhaseStatus = "sequential"

	// PhaseIncomplete means one or more members have not completed.
	PhaseIncomplete PhaseStatus = "incomplete"

	// PhaseFailed means one or more members failed.
	PhaseFailed PhaseStatus = "failed"
)

// Document is the per-session JSON document. It is the single source of
// truth shared by all producers; every mutation goes through the store's
// atomic-replace path.
type Document struct {
	// SessionID is the opaque session identifier (YYYYMMDD-HHMMSS).
	SessionID string `json:"session_id"`

	// Started is the ISO-8601 timestamp of session creation.
	Started string `json:"started"`

	// GitHubIssue is the linked issue number, 0 when unset.
	GitHubIssue int `json:"github_issue,omitempty"`

	// Agents is the ordered sequence of agent entries. Append-only for new
	// entries; an existing entry may be mutated in place to transition status.
	Agents []AgentEntry `json:"agents"`

	// ParallelExploration holds the two-agent phase check result.
	ParallelExploration *PhaseResult `json:"parallel_exploration,omitempty"`

	// ParallelValidation holds the three-agent phase check result.
	ParallelValidation *PhaseResult `json:"parallel_validation,omitempty"`
}

// AgentEntry records one agent invocation within a session.
type AgentEntry struct {
	// Agent is the canonical agent name.
	Agent string `json:"agent"`

	// Status is the entry lifecycle state.
	Status AgentStatus `json:"status"`

	// StartedAt is set when the entry was created by a start transition.
	// Absent when the entry was created directly as completed.
	StartedAt string `json:"started_at,omitempty"`

	// CompletedAt is set when the entry transitions to completed.
	CompletedAt string `json:"completed_at,omitempty"`

	// FailedAt is set when the entry transitions to failed.
	FailedAt string `json:"failed_at,omitempty"`

	// DurationSeconds is the floor of (terminal - started) in seconds.
	// Nil when no start timestamp is known.
	DurationSeconds *int `json:"duration_seconds,omitempty"`

	// Message is the free-form status message, at most MessageMaxBytes.
	Message string `json:"message,omitempty"`

	// Error duplicates Message at the time of failure. Present iff failed.
	Error string `json:"error,omitempty"`

	// ToolsUsed lists tool identifiers reported on completion.
	ToolsUsed []string `json:"tools_used,omitempty"`
}

// TerminalAt returns the terminal timestamp for the entry, or "" when the
// entry is still running.
func (e *AgentEntry) TerminalAt() string {
	switch e.Status {
	case StatusCompleted:
		return e.CompletedAt
	case StatusFailed:
		return e.FailedAt
	}
	return ""
}

// PhaseResult is the outcome of a parallel-phase verification.
type PhaseResult struct {
	// Status classifies the phase.
	Status PhaseStatus `json:"status"`

	// SequentialTimeSeconds is the sum of the member agents' durations.
	SequentialTimeSeconds int `json:"sequential_time_seconds,omitempty"`

	// ParallelTimeSeconds is the maximum of the member agents' durations.
	ParallelTimeSeconds int `json:"parallel_time_seconds,omitempty"`

	// TimeSavedSeconds is sequential minus parallel when Status is parallel,
	// zero otherwise.
	TimeSavedSeconds int `json:"time_saved_seconds,omitempty"`

	// EfficiencyPercent is 100*saved/sequential rounded to 2 decimals when
	// Status is parallel and sequential time is positive, zero otherwise.
	EfficiencyPercent float64 `json:"efficiency_percent,omitempty"`

	// MissingAgents lists members without a completed entry. Present iff
	// Status is incomplete.
	MissingAgents []string `json:"missing_agents,omitempty"`

	// FailedAgents lists members with a failed entry. Present iff Status is
	// failed.
	FailedAgents []string `json:"failed_agents,omitempty"`

	// DuplicateAgents lists members for which the reconciler observed more
	// than one entry in a single source.
	DuplicateAgents []string `json:"duplicate_agents,omitempty"`
}

// Canonical agent names for the seven-step pipeline, in execution order.
const (
	AgentResearcher      = "researcher"
	AgentPlanner         = "planner"
	AgentTestMaster      = "test-master"
	AgentImplementer     = "implementer"
	AgentReviewer        = "reviewer"
	AgentSecurityAuditor = "security-auditor"
	AgentDocMaster       = "doc-master"
)

// PipelineAgents is the canonical pipeline order.
var PipelineAgents = []string{
	AgentResearcher,
	AgentPlanner,
	AgentTestMaster,
	AgentImplementer,
	AgentReviewer,
	AgentSecurityAuditor,
	AgentDocMaster,
}

// ExplorationAgents are the members of the two-agent exploration phase.
var ExplorationAgents = []string{AgentResearcher, AgentPlanner}

// ValidationAgents are the members of the three-agent validation phase.
var ValidationAgents = []string{AgentReviewer, AgentSecurityAuditor, AgentDocMaster}

// AgentDescriptions maps canonical agent names to display descriptions.
var AgentDescriptions = map[string]string{
	AgentResearcher:      "Explores the codebase and gathers context",
	AgentPlanner:         "Produces the implementation plan",
	AgentTestMaster:      "Authors tests ahead of implementation",
	AgentImplementer:     "Implements the planned changes",
	AgentReviewer:        "Reviews the implementation",
	AgentSecurityAuditor: "Audits the changes for security issues",
	AgentDocMaster:       "Updates documentation",
}

// MessageMaxBytes is the maximum UTF-8 encoded length for messages.
const MessageMaxBytes = 10000

// Issue number bounds for set-github-issue.
const (
	IssueMin = 1
	IssueMax = 999999
)
