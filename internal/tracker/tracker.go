// Package tracker implements the pipeline execution tracker: an idempotent
// per-agent state machine over the session document, environment-driven
// auto-registration, a multi-source evidence reconciler, the parallel-phase
// verifier, and the read API consumed by progress rendering.
//
// A Tracker instance is not shared between processes; concurrent producers
// (command driver, stop hooks, child-process auto-detection) each construct
// their own and communicate exclusively through the on-disk document.
package tracker

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/boshu2/pipetrack/internal/audit"
	"github.com/boshu2/pipetrack/internal/config"
	"github.com/boshu2/pipetrack/internal/safety"
	"github.com/boshu2/pipetrack/internal/store"
	"github.com/boshu2/pipetrack/internal/types"
)

// EnvAgentName is read by the auto-tracker to register externally-invoked
// agents.
const EnvAgentName = "CLAUDE_AGENT_NAME"

// SessionFileSuffix names session documents inside the session directory.
const SessionFileSuffix = "-pipeline.json"

// Tracker tracks one session document. In-memory entries are a cache of the
// last read, invalidated on every write and refreshed before verification.
type Tracker struct {
	store    store.Store
	log      *audit.Logger
	pipeline config.Pipeline
	now      func() time.Time

	// allowUnknown skips the pipeline-membership check on mutating
	// operations. Test bypass only; syntactic name validation still applies.
	allowUnknown bool

	doc *types.Document

	// duplicateAgents collects agents for which a single evidence source
	// held more than one entry; reset at the start of each verification.
	duplicateAgents []string
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithStore replaces the file store (used by tests).
func WithStore(s store.Store) Option {
	return func(t *Tracker) { t.store = s }
}

// WithAudit sets the audit logger.
func WithAudit(log *audit.Logger) Option {
	return func(t *Tracker) { t.log = log }
}

// WithPipeline sets the pipeline description.
func WithPipeline(p config.Pipeline) Option {
	return func(t *Tracker) { t.pipeline = p }
}

// WithClock injects the time source (used by tests).
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithUnknownAgentBypass disables the pipeline-membership check.
func WithUnknownAgentBypass() Option {
	return func(t *Tracker) { t.allowUnknown = true }
}

// New constructs a tracker over the given session file. The path is
// validated for containment under projectRoot before anything touches the
// filesystem; a rejected path returns ErrPathRejected and leaves the
// filesystem unchanged.
func New(sessionFile, projectRoot string, opts ...Option) (*Tracker, error) {
	t := &Tracker{
		log:      audit.Discard(),
		pipeline: config.DefaultPipeline(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}

	resolved, err := safety.ValidatePath(t.log, sessionFile, projectRoot)
	if err != nil {
		return nil, err
	}

	if t.store == nil {
		fs := store.NewFileStore(resolved, store.WithAudit(t.log))
		fs.Sweep()
		t.store = fs
	}
	return t, nil
}

// SessionFile returns the resolved session file path.
func (t *Tracker) SessionFile() string {
	return t.store.Path()
}

// load performs a fresh read of the document, initializing session identity
// on first contact. The result becomes the in-memory cache.
func (t *Tracker) load() (*types.Document, error) {
	doc, err := t.store.Load()
	if err != nil {
		return nil, err
	}
	if doc.SessionID == "" {
		doc.SessionID = sessionIDFromPath(t.store.Path(), t.now())
	}
	if doc.Started == "" {
		doc.Started = types.FormatTimestamp(t.now())
	}
	t.doc = doc
	return doc, nil
}

// Refresh re-reads the document from disk for the read API.
func (t *Tracker) Refresh() error {
	_, err := t.load()
	return err
}

// Document returns the cached document, loading it on first use.
func (t *Tracker) Document() (*types.Document, error) {
	if t.doc == nil {
		return t.load()
	}
	return t.doc, nil
}

// checkAgent runs syntactic validation and, outside the bypass, the
// pipeline-membership check.
func (t *Tracker) checkAgent(agent string) (string, error) {
	name, err := safety.ValidateAgentName(t.log, agent)
	if err != nil {
		return "", err
	}
	if !t.allowUnknown && !t.pipeline.Contains(name) {
		err := fmt.Errorf("%w: %q is not in the pipeline", types.ErrUnknownAgent, name)
		t.log.Emit(audit.EventInputValidation, audit.ResultBlocked, "check_agent", map[string]any{
			"identifier": name,
			"reason":     err.Error(),
		})
		return "", err
	}
	return name, nil
}

// Start registers an agent as running. Double-delivery of the start event
// for an agent that is already running is a no-op, preserving the
// one-started-entry-per-agent invariant.
func (t *Tracker) Start(agent, message string) error {
	name, err := t.checkAgent(agent)
	if err != nil {
		return err
	}
	msg, err := safety.ValidateMessage(t.log, message, 0)
	if err != nil {
		return err
	}

	doc, err := t.load()
	if err != nil {
		return err
	}

	if idx := latestEntryIndex(doc, name, types.StatusStarted); idx >= 0 {
		t.log.Emit(audit.EventAgentTransition, audit.ResultSkipped, "start", map[string]any{
			"agent":  name,
			"reason": "already started",
		})
		return nil
	}

	doc.Agents = append(doc.Agents, types.AgentEntry{
		Agent:     name,
		Status:    types.StatusStarted,
		StartedAt: types.FormatTimestamp(t.now()),
		Message:   msg,
	})

	if err := t.store.Save(doc); err != nil {
		return err
	}
	t.doc = doc
	t.log.Emit(audit.EventAgentTransition, audit.ResultSuccess, "start", map[string]any{
		"agent": name,
	})
	return nil
}

// Complete transitions an agent to completed. Re-delivery of the complete
// event for an already-completed agent is a silent no-op; the stored
// message is preserved.
func (t *Tracker) Complete(agent, message string, toolsUsed []string) error {
	name, err := t.checkAgent(agent)
	if err != nil {
		return err
	}
	msg, err := safety.ValidateMessage(t.log, message, 0)
	if err != nil {
		return err
	}
	for _, tool := range toolsUsed {
		if _, err := safety.ValidateMessage(t.log, tool, 255); err != nil {
			return fmt.Errorf("tool identifier: %w", err)
		}
	}

	doc, err := t.load()
	if err != nil {
		return err
	}

	if idx := latestEntryIndex(doc, name, types.StatusCompleted); idx >= 0 {
		t.log.Emit(audit.EventAgentTransition, audit.ResultSkipped, "complete", map[string]any{
			"agent":  name,
			"reason": "already completed",
		})
		return nil
	}

	now := t.now()
	if idx := latestEntryIndex(doc, name, types.StatusStarted); idx >= 0 {
		entry := &doc.Agents[idx]
		entry.Status = types.StatusCompleted
		entry.CompletedAt = types.FormatTimestamp(now)
		entry.Message = msg
		if started, err := types.ParseTimestamp(entry.StartedAt); err == nil {
			duration := types.DurationSeconds(started, now)
			entry.DurationSeconds = &duration
		}
		if len(toolsUsed) > 0 {
			entry.ToolsUsed = toolsUsed
		}
	} else {
		// No prior start: record the completion without timing.
		entry := types.AgentEntry{
			Agent:       name,
			Status:      types.StatusCompleted,
			CompletedAt: types.FormatTimestamp(now),
			Message:     msg,
		}
		if len(toolsUsed) > 0 {
			entry.ToolsUsed = toolsUsed
		}
		doc.Agents = append(doc.Agents, entry)
	}

	if err := t.store.Save(doc); err != nil {
		return err
	}
	t.doc = doc
	t.log.Emit(audit.EventAgentTransition, audit.ResultSuccess, "complete", map[string]any{
		"agent": name,
	})
	return nil
}

// Fail transitions an agent to failed, setting both error and message.
// Unlike Complete, a second Fail on an already-failed agent appends a new
// failed entry; the asymmetry is deliberate and relied upon by consumers
// that count failure deliveries.
func (t *Tracker) Fail(agent, message string) error {
	name, err := t.checkAgent(agent)
	if err != nil {
		return err
	}
	msg, err := safety.ValidateMessage(t.log, message, 0)
	if err != nil {
		return err
	}

	doc, err := t.load()
	if err != nil {
		return err
	}

	now := t.now()
	if idx := latestEntryIndex(doc, name, types.StatusStarted); idx >= 0 {
		entry := &doc.Agents[idx]
		entry.Status = types.StatusFailed
		entry.FailedAt = types.FormatTimestamp(now)
		entry.Message = msg
		entry.Error = msg
		if started, err := types.ParseTimestamp(entry.StartedAt); err == nil {
			duration := types.DurationSeconds(started, now)
			entry.DurationSeconds = &duration
		}
	} else {
		doc.Agents = append(doc.Agents, types.AgentEntry{
			Agent:    name,
			Status:   types.StatusFailed,
			FailedAt: types.FormatTimestamp(now),
			Message:  msg,
			Error:    msg,
		})
	}

	if err := t.store.Save(doc); err != nil {
		return err
	}
	t.doc = doc
	t.log.Emit(audit.EventAgentTransition, audit.ResultSuccess, "fail", map[string]any{
		"agent": name,
	})
	return nil
}

// SetGitHubIssue validates and stores the linked issue number at the
// document root.
func (t *Tracker) SetGitHubIssue(n int) error {
	if err := safety.ValidateIssueNumber(t.log, n); err != nil {
		return err
	}

	doc, err := t.load()
	if err != nil {
		return err
	}
	doc.GitHubIssue = n

	if err := t.store.Save(doc); err != nil {
		return err
	}
	t.doc = doc
	t.log.Emit(audit.EventAgentTransition, audit.ResultSuccess, "set_github_issue", map[string]any{
		"issue": n,
	})
	return nil
}

// AutoTrackFromEnvironment registers the agent named by CLAUDE_AGENT_NAME
// as started, unless any entry for it already exists. Returns true when a
// new entry was recorded. Safe to invoke from multiple termination hooks
// firing in quick succession for the same agent.
func (t *Tracker) AutoTrackFromEnvironment(defaultMessage string) (bool, error) {
	raw := os.Getenv(EnvAgentName)
	if raw == "" {
		t.log.Emit(audit.EventAutoTrack, audit.ResultSkipped, "auto_track", map[string]any{
			"reason": EnvAgentName + " not set",
		})
		return false, nil
	}

	name, err := t.checkAgent(raw)
	if err != nil {
		return false, err
	}

	msg := defaultMessage
	if msg == "" {
		msg = "auto-tracked from " + EnvAgentName
	}
	if msg, err = safety.ValidateMessage(t.log, msg, 0); err != nil {
		return false, err
	}

	doc, err := t.load()
	if err != nil {
		return false, err
	}

	if t.isTracked(doc, name) {
		t.log.Emit(audit.EventAutoTrack, audit.ResultSkipped, "auto_track", map[string]any{
			"agent":  name,
			"reason": "already tracked",
		})
		return false, nil
	}

	doc.Agents = append(doc.Agents, types.AgentEntry{
		Agent:     name,
		Status:    types.StatusStarted,
		StartedAt: types.FormatTimestamp(t.now()),
		Message:   msg,
	})

	if err := t.store.Save(doc); err != nil {
		return false, err
	}
	t.doc = doc
	t.log.Emit(audit.EventAutoTrack, audit.ResultSuccess, "auto_track", map[string]any{
		"agent": name,
	})
	return true, nil
}

// isTracked reports whether any entry exists for the agent, regardless of
// status.
func (t *Tracker) isTracked(doc *types.Document, agent string) bool {
	for i := range doc.Agents {
		if doc.Agents[i].Agent == agent {
			return true
		}
	}
	return false
}

// latestEntryIndex returns the index of the newest entry for agent with the
// given status, or -1.
func latestEntryIndex(doc *types.Document, agent string, status types.AgentStatus) int {
	for i := len(doc.Agents) - 1; i >= 0; i-- {
		if doc.Agents[i].Agent == agent && doc.Agents[i].Status == status {
			return i
		}
	}
	return -1
}

// sessionIDFromPath derives the session id from a *-pipeline.json file
// name, falling back to a fresh id from the clock.
func sessionIDFromPath(path string, now time.Time) string {
	base := filepath.Base(path)
	if strings.HasSuffix(base, SessionFileSuffix) {
		id := strings.TrimSuffix(base, SessionFileSuffix)
		if _, err := types.SessionDate(id); err == nil {
			return id
		}
	}
	return types.NewSessionID(now)
}

// DefaultSessionPath builds the canonical session file path for a new
// session started at now.
func DefaultSessionPath(projectRoot, sessionDir string, now time.Time) string {
	return filepath.Join(projectRoot, sessionDir, types.NewSessionID(now)+SessionFileSuffix)
}

// LatestSessionFile returns the newest session document in dir. Session
// file names embed YYYYMMDD-HHMMSS, so lexicographic order is creation
// order. Returns ErrNotFound when the directory holds no session.
func LatestSessionFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("%w: no sessions under %s", types.ErrNotFound, dir)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), SessionFileSuffix) {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("%w: no sessions under %s", types.ErrNotFound, dir)
	}
	sort.Strings(names)
	return filepath.Join(dir, names[len(names)-1]), nil
}

// NarrativePath returns the companion markdown transcript path for a
// session file.
func NarrativePath(sessionFile string) string {
	return strings.TrimSuffix(sessionFile, ".json") + ".md"
}
