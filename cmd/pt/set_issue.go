package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/boshu2/pipetrack/internal/types"
)

var setIssueCmd = &cobra.Command{
	Use:   "set-github-issue <n>",
	Short: "Link the session to a GitHub issue",
	Long: `Store a GitHub issue number in the session document. The number
must be an integer in [1, 999999].

Examples:
  pt set-github-issue 1234`,
	Args: cobra.ExactArgs(1),
	RunE: runSetIssue,
}

func init() {
	rootCmd.AddCommand(setIssueCmd)
}

func runSetIssue(cmd *cobra.Command, args []string) error {
	// strconv.Atoi rejects floats and other non-integer forms outright.
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("%w: issue number %q is not an integer", types.ErrInvalidInput, args[0])
	}

	ctx, err := newContext(false)
	if err != nil {
		return err
	}
	defer func() {
		_ = ctx.Audit.Close()
	}()

	if err := ctx.Tracker.SetGitHubIssue(n); err != nil {
		return err
	}

	fmt.Printf("github issue set to #%d\n", n)
	return nil
}
