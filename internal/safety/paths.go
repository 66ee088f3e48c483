package safety

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/boshu2/pipetrack/internal/audit"
	"github.com/boshu2/pipetrack/internal/types"
)

// EnvTestMode enables the test-mode path bypass: when non-empty, the OS
// temp directory becomes an additional allowed prefix. No other check is
// relaxed.
const EnvTestMode = "PYTEST_CURRENT_TEST"

// systemRoots is the hard-coded blocklist of system path prefixes. Applies
// to the fully resolved path and is never bypassed.
var systemRoots = []string{
	"/etc",
	"/usr",
	"/bin",
	"/sbin",
	"/lib",
	"/lib64",
	"/boot",
	"/sys",
	"/proc",
	"/dev",
	"/var/log",
	"/var/run",
}

// ValidatePath validates a user-supplied path for session-file use and
// returns the fully resolved form. The path must resolve to a descendant
// of projectRoot (or of the OS temp directory in test mode), must not
// contain ".." components (literal or percent-encoded), must not traverse
// any symlink, and must not fall under a system root.
//
// Every rejection emits a BLOCKED PATH_VALIDATION audit event and returns
// ErrPathRejected.
func ValidatePath(log *audit.Logger, input, projectRoot string) (string, error) {
	resolved, err := checkPath(input, projectRoot)
	if err != nil {
		log.Emit(audit.EventPathValidation, audit.ResultBlocked, "validate_path", map[string]any{
			"path":   input,
			"reason": err.Error(),
		})
		return "", err
	}

	log.Emit(audit.EventPathValidation, audit.ResultAllowed, "validate_path", map[string]any{
		"path": resolved,
	})
	return resolved, nil
}

func checkPath(input, projectRoot string) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", fmt.Errorf("%w: empty path", types.ErrPathRejected)
	}
	if strings.ContainsRune(input, 0) {
		return "", fmt.Errorf("%w: path contains NUL byte", types.ErrPathRejected)
	}

	// The percent-decoded form must pass the same checks as the literal
	// input; one decode pass is enough since the decoded form is what the
	// filesystem would never see but a confused deputy might re-decode.
	candidates := []string{input}
	if decoded, err := url.PathUnescape(input); err == nil && decoded != input {
		candidates = append(candidates, decoded)
	}

	var resolved string
	for _, candidate := range candidates {
		if hasDotDotComponent(candidate) {
			return "", fmt.Errorf("%w: %q contains a '..' component", types.ErrPathRejected, input)
		}

		abs, err := filepath.Abs(candidate)
		if err != nil {
			return "", fmt.Errorf("%w: %q: %v", types.ErrPathRejected, input, err)
		}

		if err := rejectSymlinkComponents(abs); err != nil {
			return "", err
		}

		full, err := resolveExisting(abs)
		if err != nil {
			return "", err
		}

		if underAny(full, systemRoots) {
			return "", fmt.Errorf("%w: %q resolves into a system root", types.ErrPathRejected, input)
		}

		if !underAllowedPrefix(full, projectRoot) {
			return "", fmt.Errorf("%w: %q escapes the project root", types.ErrPathRejected, input)
		}

		if resolved == "" {
			resolved = full
		}
	}

	return resolved, nil
}

// hasDotDotComponent checks the literal path text, before any resolution.
func hasDotDotComponent(path string) bool {
	for _, part := range strings.FieldsFunc(filepath.ToSlash(path), func(r rune) bool { return r == '/' }) {
		if part == ".." {
			return true
		}
	}
	return false
}

// rejectSymlinkComponents walks every existing component of abs and rejects
// the path if any of them is a symlink. Defense in depth: session files
// must never be reached through a link, even one that stays inside the
// project root.
func rejectSymlinkComponents(abs string) error {
	current := abs
	for {
		info, err := os.Lstat(current)
		if err == nil && info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("%w: %q traverses symlink %q", types.ErrPathRejected, abs, current)
		}
		parent := filepath.Dir(current)
		if parent == current {
			return nil
		}
		current = parent
	}
}

// resolveExisting fully resolves abs even when its tail does not exist yet:
// the deepest existing ancestor is canonicalized and the remainder is
// re-joined.
func resolveExisting(abs string) (string, error) {
	existing := abs
	var tail []string
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			break
		}
		tail = append([]string{filepath.Base(existing)}, tail...)
		existing = parent
	}

	canonical, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return "", fmt.Errorf("%w: resolve %q: %v", types.ErrPathRejected, abs, err)
	}
	return filepath.Join(append([]string{canonical}, tail...)...), nil
}

// underAllowedPrefix checks containment in the project root, widened to the
// OS temp directory when the test-mode bypass is active.
func underAllowedPrefix(resolved, projectRoot string) bool {
	prefixes := make([]string, 0, 2)
	if projectRoot != "" {
		if root, err := resolveExisting(projectRoot); err == nil {
			prefixes = append(prefixes, root)
		}
	}
	if os.Getenv(EnvTestMode) != "" {
		if tmp, err := filepath.EvalSymlinks(os.TempDir()); err == nil {
			prefixes = append(prefixes, tmp)
		}
	}
	return underAny(resolved, prefixes)
}

func underAny(path string, prefixes []string) bool {
	norm := filepath.ToSlash(path)
	for _, prefix := range prefixes {
		p := strings.TrimSuffix(filepath.ToSlash(prefix), "/")
		if norm == p || strings.HasPrefix(norm, p+"/") {
			return true
		}
	}
	return false
}
