package types

import "errors"

// Sentinel errors for the pipetrack error taxonomy. Using sentinels instead
// of ad-hoc fmt.Errorf allows callers to match with errors.Is for reliable
// error handling at the CLI boundary.
var (
	// ErrInvalidInput is returned for malformed or out-of-range user input
	// (identifier, number, message length).
	ErrInvalidInput = errors.New("invalid input")

	// ErrPathRejected is returned when a path fails validation: not a
	// descendant of the project root, contains "..", resolves through a
	// symlink, or matches the system-root blocklist.
	ErrPathRejected = errors.New("path rejected")

	// ErrNoProjectRoot is returned when no ancestor directory contains
	// .git or .claude.
	ErrNoProjectRoot = errors.New("project root not found")

	// ErrNotFound is returned when a session file is expected but absent.
	ErrNotFound = errors.New("session not found")

	// ErrInvalidTimestamp is returned when a stored timestamp fails ISO-8601
	// parsing during phase verification.
	ErrInvalidTimestamp = errors.New("invalid timestamp")

	// ErrStoreWrite is returned when the temp-file or rename step of an
	// atomic save fails.
	ErrStoreWrite = errors.New("store write failed")

	// ErrCorrupted is returned when the on-disk session document fails to
	// parse as JSON.
	ErrCorrupted = errors.New("session document corrupted")

	// ErrUnknownAgent is returned when an operation names an agent outside
	// the configured pipeline (outside the test-mode bypass).
	ErrUnknownAgent = errors.New("unknown agent")
)
