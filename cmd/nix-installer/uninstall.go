package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DeterminateSystems/nix-installer-go/internal/plan"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Revert a previously installed plan",
	Long: `Uninstall loads the receipt left by "install" and reverts every
action in exactly reverse order, aggregating any errors encountered along
the way rather than stopping at the first one.`,
	RunE: runUninstall,
}

func runUninstall(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	fs, cmd := realPorts()
	logger := newLogger()

	receipt := resolveReceiptPath()
	loaded, err := plan.LoadReceipt(fs, receipt)
	if err != nil {
		return fmt.Errorf("loading receipt %s: %w", receipt, err)
	}
	if err := plan.CheckVersionCompatible(loaded.Version); err != nil {
		return err
	}
	hydrateLoadedPlan(loaded, fs, cmd, logger)

	if err := loaded.Uninstall(ctx, logger); err != nil {
		return fmt.Errorf("uninstall: %w", err)
	}
	return nil
}
