package tracker

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/boshu2/pipetrack/internal/audit"
	"github.com/boshu2/pipetrack/internal/types"
)

// Phase keys in the session document.
const (
	phaseExploration = "parallel_exploration"
	phaseValidation  = "parallel_validation"
)

// VerifyParallelExploration classifies the two-agent exploration phase and
// writes the result into the document. Returns true iff the phase verified
// (parallel or sequential with complete timing).
func (t *Tracker) VerifyParallelExploration() (bool, error) {
	return t.verifyPhase(phaseExploration, t.pipeline.ExplorationPhase)
}

// VerifyParallelValidation classifies the three-agent validation phase.
func (t *Tracker) VerifyParallelValidation() (bool, error) {
	return t.verifyPhase(phaseValidation, t.pipeline.ValidationPhase)
}

// verifyPhase runs the shared phase algorithm over the member agent set.
// It works exclusively off stored timestamps; the wall clock is never
// consulted.
func (t *Tracker) verifyPhase(key string, members []string) (bool, error) {
	if _, err := t.load(); err != nil {
		return false, err
	}
	t.duplicateAgents = nil

	entries := make(map[string]*types.AgentEntry, len(members))
	var missing, incomplete, failed []string
	for _, member := range members {
		entry := t.FindAgent(member)
		switch {
		case entry == nil:
			missing = append(missing, member)
		case entry.Status == types.StatusFailed:
			failed = append(failed, member)
		case entry.Status != types.StatusCompleted:
			incomplete = append(incomplete, member)
		default:
			entries[member] = entry
		}
	}

	// Failure takes precedence over missing members.
	if len(failed) > 0 {
		result := &types.PhaseResult{
			Status:          types.PhaseFailed,
			FailedAgents:    failed,
			DuplicateAgents: t.duplicateAgents,
		}
		if err := t.writePhaseResult(key, result); err != nil {
			return false, err
		}
		t.auditPhase(key, result)
		return false, nil
	}
	if len(missing) > 0 || len(incomplete) > 0 {
		result := &types.PhaseResult{
			Status:          types.PhaseIncomplete,
			MissingAgents:   append(missing, incomplete...),
			DuplicateAgents: t.duplicateAgents,
		}
		if err := t.writePhaseResult(key, result); err != nil {
			return false, err
		}
		t.auditPhase(key, result)
		return false, nil
	}

	starts := make(map[string]time.Time, len(members))
	for _, member := range members {
		entry := entries[member]
		var bad []string
		started, err := types.ParseTimestamp(entry.StartedAt)
		if err != nil {
			bad = append(bad, "started_at")
		}
		if _, err := types.ParseTimestamp(entry.CompletedAt); err != nil {
			bad = append(bad, "completed_at")
		}
		if len(bad) > 0 {
			return false, fmt.Errorf("%w: agent %s has unparseable %s",
				types.ErrInvalidTimestamp, member, strings.Join(bad, ", "))
		}
		starts[member] = started
	}

	parallel := maxStartSpread(starts) < t.pipeline.ParallelWindow

	sequential, longest := 0, 0
	for _, member := range members {
		d := 0
		if entries[member].DurationSeconds != nil {
			d = *entries[member].DurationSeconds
		}
		sequential += d
		if d > longest {
			longest = d
		}
	}

	result := &types.PhaseResult{
		SequentialTimeSeconds: sequential,
		ParallelTimeSeconds:   longest,
		DuplicateAgents:       t.duplicateAgents,
	}
	if parallel {
		result.Status = types.PhaseParallel
		result.TimeSavedSeconds = sequential - longest
		if sequential > 0 {
			result.EfficiencyPercent = round2(100 * float64(result.TimeSavedSeconds) / float64(sequential))
		}
	} else {
		result.Status = types.PhaseSequential
	}

	if err := t.writePhaseResult(key, result); err != nil {
		return false, err
	}
	t.auditPhase(key, result)
	return true, nil
}

// writePhaseResult stores the result under the phase key, overwriting any
// previous result.
func (t *Tracker) writePhaseResult(key string, result *types.PhaseResult) error {
	doc, err := t.Document()
	if err != nil {
		return err
	}
	switch key {
	case phaseExploration:
		doc.ParallelExploration = result
	case phaseValidation:
		doc.ParallelValidation = result
	}
	if err := t.store.Save(doc); err != nil {
		return err
	}
	t.doc = doc
	return nil
}

func (t *Tracker) auditPhase(key string, result *types.PhaseResult) {
	t.log.Emit(audit.EventPhaseVerification, phaseAuditResult(result.Status), key, map[string]any{
		"status":             string(result.Status),
		"time_saved_seconds": result.TimeSavedSeconds,
		"efficiency_percent": result.EfficiencyPercent,
	})
}

func phaseAuditResult(status types.PhaseStatus) string {
	if status == types.PhaseParallel || status == types.PhaseSequential {
		return audit.ResultSuccess
	}
	return audit.ResultFailure
}

// maxStartSpread returns the maximum pairwise difference among start times.
func maxStartSpread(starts map[string]time.Time) time.Duration {
	var earliest, latest time.Time
	first := true
	for _, at := range starts {
		if first {
			earliest, latest = at, at
			first = false
			continue
		}
		if at.Before(earliest) {
			earliest = at
		}
		if at.After(latest) {
			latest = at
		}
	}
	return latest.Sub(earliest)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
