// Package project discovers the project root that anchors all session and
// audit paths.
package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/boshu2/pipetrack/internal/types"
)

// Markers that identify a project root. A .git entry takes precedence over
// .claude when both occur at the same level.
var rootMarkers = []string{".git", ".claude"}

// DiscoverRoot walks from dir upwards and returns the nearest ancestor
// containing a root marker. dir defaults to the working directory when
// empty. Returns ErrNoProjectRoot when no marker is found.
func DiscoverRoot(dir string) (string, error) {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		dir = cwd
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dir, err)
	}

	for current := abs; ; {
		for _, marker := range rootMarkers {
			if _, err := os.Stat(filepath.Join(current, marker)); err == nil {
				return current, nil
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("%w: no .git or .claude above %s", types.ErrNoProjectRoot, abs)
		}
		current = parent
	}
}
