// Package narrative extracts agent events from the free-form markdown
// transcript that sibling tooling writes alongside the session document.
//
// The marker grammar is one line per event:
//
//	HH:MM:SS - <agent>: <tail>
//
// A tail beginning with "Starting" tags a start; a tail beginning with
// "completed" or "complete" tags a completion. Everything else is ignored.
// The parser is a recovery mechanism: it tolerates arbitrary surrounding
// markdown and never fails the enclosing operation, it only returns nil.
package narrative

import (
	"bufio"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/boshu2/pipetrack/internal/types"
)

// markerPattern is the fixed line grammar. Go's RE2 engine guarantees a
// linear scan, so adversarial transcripts cannot amplify parsing cost.
var markerPattern = regexp.MustCompile(`^(\d{2}:\d{2}:\d{2}) - ([A-Za-z0-9_-]+): (.+)$`)

// maxLineBytes bounds scanner buffering for pathological transcripts.
const maxLineBytes = 1 << 20

type marker struct {
	line int
	at   time.Time
	tail string
}

// DetectCompletion scans the transcript at path for the given agent and
// reconstructs a completed entry from its start and completion markers.
// The time-of-day prefixes are promoted to the session's date, taken from
// sessionID. Returns nil when the file is absent or unreadable, when no
// completion marker exists, or when timestamps do not parse.
func DetectCompletion(path, agent, sessionID string) *types.AgentEntry {
	date, err := types.SessionDate(sessionID)
	if err != nil {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer func() {
		_ = f.Close()
	}()

	var starts, completions []marker

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		m := markerPattern.FindStringSubmatch(scanner.Text())
		if m == nil || m[2] != agent {
			continue
		}
		at, err := promoteTime(date, m[1])
		if err != nil {
			continue
		}
		tail := m[3]
		switch {
		case hasVerbPrefix(tail, "starting"):
			starts = append(starts, marker{line: lineNo, at: at, tail: tail})
		case hasVerbPrefix(tail, "completed"), hasVerbPrefix(tail, "complete"):
			completions = append(completions, marker{line: lineNo, at: at, tail: tail})
		}
	}
	if scanner.Err() != nil || len(completions) == 0 || len(starts) == 0 {
		return nil
	}

	// Latest complete pair: the last completion, paired with the latest
	// start at or before it (falling back to the first start).
	done := completions[len(completions)-1]
	begin := starts[0]
	for _, s := range starts {
		if s.line <= done.line {
			begin = s
		}
	}

	duration := types.DurationSeconds(begin.at, done.at)
	return &types.AgentEntry{
		Agent:           agent,
		Status:          types.StatusCompleted,
		StartedAt:       types.FormatTimestamp(begin.at),
		CompletedAt:     types.FormatTimestamp(done.at),
		DurationSeconds: &duration,
		Message:         done.tail,
	}
}

// promoteTime combines the session date with an HH:MM:SS time of day.
func promoteTime(date time.Time, clock string) (time.Time, error) {
	t, err := time.Parse("15:04:05", clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(),
		t.Hour(), t.Minute(), t.Second(), 0, time.UTC), nil
}

func hasVerbPrefix(tail, verb string) bool {
	return len(tail) >= len(verb) && strings.EqualFold(tail[:len(verb)], verb)
}
