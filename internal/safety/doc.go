// Package safety provides the input validation and path containment layer
// consulted by every boundary-entering tracker operation.
//
// Pipetrack is driven by several uncoordinated producers: the command
// driver, stop-notification hooks, and environment auto-detection inside
// child processes. Each of them hands the tracker paths, identifiers, and
// free-form text. The safety package centralizes the checks that keep those
// inputs bounded.
//
// # Threat Model
//
// T1 - Path Traversal: Session file paths supplied by callers or hooks
// could escape the project root via ".." sequences, absolute paths,
// percent-encoded traversal, or symlink chains, redirecting session writes
// onto arbitrary files. Mitigations: rejection of literal ".." components
// (encoded or not), resolve-first containment against the project root,
// rejection of any symlink component, and a hard-coded system-root
// blocklist that applies regardless of the test-mode bypass.
//
// T2 - Identifier Injection: Agent names flow into file contents and audit
// records. Names are constrained to [A-Za-z0-9_-], at most 255 code points,
// with NUL bytes rejected outright.
//
// T3 - Log Poisoning: Messages are embedded in the session document and
// the audit log. ASCII control characters other than tab, newline, and
// carriage return are rejected, and messages are capped at 10,000 bytes.
//
// T4 - Spoofed Auto-Registration: CLAUDE_AGENT_NAME is attacker-writable in
// principle; it is subjected to full agent-name validation and, outside the
// test bypass, to pipeline membership checks before any entry is created.
//
// # Design Principles
//
// Validation failures are never swallowed: every rejected input surfaces as
// ErrInvalidInput or ErrPathRejected with a BLOCKED audit record. Audit
// emission itself is best-effort and never blocks the caller.
//
// The test-mode bypass (PYTEST_CURRENT_TEST) only widens the allowed path
// prefix to include the OS temp directory. It never weakens the system-root
// blocklist or any other check.
package safety
