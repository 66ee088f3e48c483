package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start <agent> <message...>",
	Short: "Record an agent start",
	Long: `Record that an agent began executing. Creates the session document
when none exists yet. Re-delivery of a start for a running agent is a no-op.

Examples:
  pt start researcher "Exploring the storage layer"
  pt start planner Drafting the plan`,
	Args: cobra.MinimumNArgs(2),
	RunE: runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	ctx, err := newContext(true)
	if err != nil {
		return err
	}
	defer func() {
		_ = ctx.Audit.Close()
	}()

	agent := args[0]
	message := joinMessage(args[1:])

	if err := ctx.Tracker.Start(agent, message); err != nil {
		return err
	}

	fmt.Printf("started %s\n", agent)
	return nil
}
