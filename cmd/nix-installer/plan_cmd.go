package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var planShowCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the actions an install would execute, without applying them",
	Long: `Plan assembles the selected planner's action list and prints each
action's tracing synopsis in the order install would execute them;
uninstall reverts them in the reverse of this order.`,
	RunE: runPlanShow,
}

func runPlanShow(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	fs, cmd := realPorts()

	p, err := buildPlan(ctx, fs, cmd)
	if err != nil {
		return fmt.Errorf("planning: %w", err)
	}

	fmt.Printf("planner: %s\n", p.Planner.Planner)
	for i, stateful := range p.Actions {
		fmt.Printf("%2d. [%s] %s\n", i+1, stateful.Action.Tag(), stateful.Action.TracingSynopsis())
	}
	return nil
}
