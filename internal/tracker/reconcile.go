package tracker

import (
	"github.com/boshu2/pipetrack/internal/audit"
	"github.com/boshu2/pipetrack/internal/narrative"
	"github.com/boshu2/pipetrack/internal/types"
)

// evidenceSource is one channel that may know about an agent invocation.
// Sources are consulted in fixed priority with short-circuit evaluation.
type evidenceSource interface {
	// name identifies the source in duplicate/audit reporting.
	name() string

	// find returns the latest entry for the agent, or false. A source that
	// observes more than one entry reports sawDuplicate.
	find(agent string) (entry *types.AgentEntry, sawDuplicate, ok bool)
}

// FindAgent reconciles the three evidence channels for an agent: in-memory
// tracker state, the on-disk JSON document, and the narrative transcript.
// The first source with a valid hit wins; a hit that fails data validation
// is discarded and the next source is consulted. Returns nil when no
// source knows the agent.
func (t *Tracker) FindAgent(agent string) *types.AgentEntry {
	for _, source := range t.evidenceSources() {
		entry, dup, ok := source.find(agent)
		if !ok {
			continue
		}
		if dup {
			t.markDuplicate(agent, source.name())
		}
		if !validEntry(entry) {
			continue
		}
		return entry
	}
	return nil
}

func (t *Tracker) evidenceSources() []evidenceSource {
	return []evidenceSource{
		memorySource{t},
		storeSource{t},
		narrativeSource{t},
	}
}

func (t *Tracker) markDuplicate(agent, source string) {
	for _, existing := range t.duplicateAgents {
		if existing == agent {
			return
		}
	}
	t.duplicateAgents = append(t.duplicateAgents, agent)
	t.log.Emit(audit.EventPhaseVerification, audit.ResultSkipped, "duplicate_entries", map[string]any{
		"agent":  agent,
		"source": source,
	})
}

// validEntry enforces the reconciler's data validation: required fields
// present, a known status, parseable timestamps, and a terminal timestamp
// on terminal entries.
func validEntry(e *types.AgentEntry) bool {
	if e == nil || e.Agent == "" || !e.Status.Valid() {
		return false
	}
	if e.StartedAt != "" {
		if _, err := types.ParseTimestamp(e.StartedAt); err != nil {
			return false
		}
	}
	if e.Status.IsTerminal() {
		terminal := e.TerminalAt()
		if terminal == "" {
			return false
		}
		if _, err := types.ParseTimestamp(terminal); err != nil {
			return false
		}
	} else if e.StartedAt == "" {
		return false
	}
	return true
}

// memorySource serves the tracker's cached entries.
type memorySource struct {
	t *Tracker
}

func (s memorySource) name() string { return "memory" }

func (s memorySource) find(agent string) (*types.AgentEntry, bool, bool) {
	if s.t.doc == nil {
		return nil, false, false
	}
	return latestForAgent(s.t.doc.Agents, agent, false)
}

// storeSource serves entries appended by other processes. It re-reads from
// disk and only discovers terminal entries: an agent that is merely started
// on disk is not evidence of completion.
type storeSource struct {
	t *Tracker
}

func (s storeSource) name() string { return "store" }

func (s storeSource) find(agent string) (*types.AgentEntry, bool, bool) {
	doc, err := s.t.store.Load()
	if err != nil {
		return nil, false, false
	}
	return latestForAgent(doc.Agents, agent, true)
}

// narrativeSource recovers invocations that bypassed the tracker entirely
// and exist only in the free-form transcript.
type narrativeSource struct {
	t *Tracker
}

func (s narrativeSource) name() string { return "narrative" }

func (s narrativeSource) find(agent string) (*types.AgentEntry, bool, bool) {
	if s.t.doc == nil {
		return nil, false, false
	}
	entry := narrative.DetectCompletion(NarrativePath(s.t.store.Path()), agent, s.t.doc.SessionID)
	if entry == nil {
		return nil, false, false
	}
	return entry, false, true
}

// latestForAgent returns the last entry for agent in file order. With
// terminalOnly set, started entries are invisible.
func latestForAgent(entries []types.AgentEntry, agent string, terminalOnly bool) (*types.AgentEntry, bool, bool) {
	var matches []*types.AgentEntry
	for i := range entries {
		e := &entries[i]
		if e.Agent != agent {
			continue
		}
		if terminalOnly && !e.Status.IsTerminal() {
			continue
		}
		matches = append(matches, e)
	}
	if len(matches) == 0 {
		return nil, false, false
	}
	// Copy so no entry is ever shared by reference with a caller.
	latest := *matches[len(matches)-1]
	return &latest, len(matches) > 1, true
}
