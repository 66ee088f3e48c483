package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/boshu2/pipetrack/internal/tracker"
)

var autoTrackMessage string

var autoTrackCmd = &cobra.Command{
	Use:   "auto-track",
	Short: "Register the agent named by CLAUDE_AGENT_NAME",
	Long: `Register the agent identified by the CLAUDE_AGENT_NAME environment
variable as started, unless it is already tracked. Intended for stop hooks
and child-process environments; exits 0 whether or not a new entry was
recorded.

Examples:
  CLAUDE_AGENT_NAME=planner pt auto-track`,
	Args: cobra.NoArgs,
	RunE: runAutoTrack,
}

func init() {
	autoTrackCmd.Flags().StringVar(&autoTrackMessage, "message", "", "Message recorded with the auto-tracked entry")
	rootCmd.AddCommand(autoTrackCmd)
}

func runAutoTrack(cmd *cobra.Command, args []string) error {
	ctx, err := newContext(true)
	if err != nil {
		return err
	}
	defer func() {
		_ = ctx.Audit.Close()
	}()

	tracked, err := ctx.Tracker.AutoTrackFromEnvironment(autoTrackMessage)
	if err != nil {
		return err
	}

	if tracked {
		fmt.Printf("auto-tracked %s\n", os.Getenv(tracker.EnvAgentName))
	}
	return nil
}
