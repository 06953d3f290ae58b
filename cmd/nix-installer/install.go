package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Plan and execute a Nix installation",
	Long: `Install assembles a plan for the selected planner, executes every
action in order, and persists a receipt so the same install can later be
reverted with "nix-installer-go uninstall".`,
	RunE: runInstall,
}

func runInstall(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	fs, cmd := realPorts()
	logger := newLogger()

	p, err := buildPlan(ctx, fs, cmd)
	if err != nil {
		return fmt.Errorf("planning: %w", err)
	}

	if err := p.Install(ctx, fs, logger, resolveReceiptPath(), nil); err != nil {
		return fmt.Errorf("install: %w", err)
	}
	return nil
}
