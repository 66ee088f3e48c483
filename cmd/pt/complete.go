package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var completeTools string

var completeCmd = &cobra.Command{
	Use:   "complete <agent> <message...>",
	Short: "Record an agent completion (idempotent)",
	Long: `Record that an agent finished successfully. A repeat completion for
an already-completed agent is a silent no-op.

Examples:
  pt complete researcher "Survey written to docs/research.md"
  pt complete implementer "All tests green" --tools Read,Edit,Bash`,
	Args: cobra.MinimumNArgs(2),
	RunE: runComplete,
}

func init() {
	completeCmd.Flags().StringVar(&completeTools, "tools", "", "Comma-separated tool identifiers used by the agent")
	rootCmd.AddCommand(completeCmd)
}

func runComplete(cmd *cobra.Command, args []string) error {
	ctx, err := newContext(false)
	if err != nil {
		return err
	}
	defer func() {
		_ = ctx.Audit.Close()
	}()

	agent := args[0]
	message := joinMessage(args[1:])

	var tools []string
	for _, tool := range strings.Split(completeTools, ",") {
		if tool = strings.TrimSpace(tool); tool != "" {
			tools = append(tools, tool)
		}
	}

	if err := ctx.Tracker.Complete(agent, message, tools); err != nil {
		return err
	}

	fmt.Printf("completed %s\n", agent)
	return nil
}
