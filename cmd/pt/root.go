package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/boshu2/pipetrack/internal/audit"
	"github.com/boshu2/pipetrack/internal/config"
	"github.com/boshu2/pipetrack/internal/project"
	"github.com/boshu2/pipetrack/internal/safety"
	"github.com/boshu2/pipetrack/internal/tracker"
	"github.com/boshu2/pipetrack/internal/types"
)

var (
	// Global flags
	verbose     bool
	output      string
	sessionFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "pt",
	Short: "Pipeline execution tracker",
	Long: `pt tracks a seven-agent development pipeline through a per-session
JSON document and verifies that designated agent groups ran in parallel.

Core Commands:
  start             Record an agent start
  complete          Record an agent completion (idempotent)
  fail              Record an agent failure
  status            Show pipeline progress
  set-github-issue  Link the session to a GitHub issue

Verification:
  verify-parallel-exploration  Check researcher/planner concurrency
  verify-parallel-validation   Check reviewer/security-auditor/doc-master concurrency`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "", "Output format (table, json)")
	rootCmd.PersistentFlags().StringVar(&sessionFile, "session", "", "Session file path (default: newest session)")
}

// GetOutput returns the effective output format.
func GetOutput(cfg *config.Config) string {
	if output != "" {
		return output
	}
	if cfg != nil && cfg.Output != "" {
		return cfg.Output
	}
	return "table"
}

// VerbosePrintf prints to stderr only when verbose mode is enabled.
func VerbosePrintf(format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// cliContext bundles the per-invocation wiring shared by all subcommands.
type cliContext struct {
	Root    string
	Config  *config.Config
	Audit   *audit.Logger
	Tracker *tracker.Tracker
}

// newContext discovers the project root, loads configuration, opens the
// audit log, and constructs the tracker. createSession permits starting a
// fresh session when none exists yet.
func newContext(createSession bool) (*cliContext, error) {
	root, err := project.DiscoverRoot("")
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Verbose {
		verbose = true
	}
	VerbosePrintf("project root: %s\n", root)

	log := openAudit(root, cfg)

	path, err := resolveSessionFile(root, cfg, createSession)
	if err != nil {
		return nil, err
	}
	VerbosePrintf("session file: %s\n", path)

	tr, err := tracker.New(path, root,
		tracker.WithAudit(log),
		tracker.WithPipeline(cfg.Pipeline),
	)
	if err != nil {
		return nil, err
	}

	return &cliContext{Root: root, Config: cfg, Audit: log, Tracker: tr}, nil
}

// openAudit validates the audit destination and opens it. Audit is
// best-effort: a rejected or unopenable destination degrades to a no-op
// logger with a stderr note, never a failed command.
func openAudit(root string, cfg *config.Config) *audit.Logger {
	path := cfg.AuditLog
	if path == "" {
		return audit.Discard()
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	validated, err := safety.ValidatePath(audit.Discard(), path, root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pt: audit log disabled: %v\n", err)
		return audit.Discard()
	}
	return audit.Open(validated)
}

// resolveSessionFile picks the session document: the --session override,
// the newest session in the session directory, or (for start) a fresh
// canonical path.
func resolveSessionFile(root string, cfg *config.Config, createSession bool) (string, error) {
	if sessionFile != "" {
		return sessionFile, nil
	}

	dir := cfg.SessionDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}

	latest, err := tracker.LatestSessionFile(dir)
	if err == nil {
		return latest, nil
	}
	if createSession && (errors.Is(err, types.ErrNotFound) || errors.Is(err, fs.ErrNotExist)) {
		return tracker.DefaultSessionPath(root, cfg.SessionDir, time.Now()), nil
	}
	return "", err
}

// joinMessage forms the message from the arguments after the agent name.
func joinMessage(args []string) string {
	msg := ""
	for i, arg := range args {
		if i > 0 {
			msg += " "
		}
		msg += arg
	}
	return msg
}
