package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var failCmd = &cobra.Command{
	Use:   "fail <agent> <message...>",
	Short: "Record an agent failure",
	Long: `Record that an agent failed. Unlike complete, a repeat failure
appends a new failed entry rather than being a no-op.

Examples:
  pt fail security-auditor "Found an unauthenticated endpoint"`,
	Args: cobra.MinimumNArgs(2),
	RunE: runFail,
}

func init() {
	rootCmd.AddCommand(failCmd)
}

func runFail(cmd *cobra.Command, args []string) error {
	ctx, err := newContext(false)
	if err != nil {
		return err
	}
	defer func() {
		_ = ctx.Audit.Close()
	}()

	agent := args[0]
	message := joinMessage(args[1:])

	if err := ctx.Tracker.Fail(agent, message); err != nil {
		return err
	}

	fmt.Printf("failed %s\n", agent)
	return nil
}
