package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/DeterminateSystems/nix-installer-go/internal/adapters/logging"
	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
)

var (
	cfgFile      string
	plannerName  string
	verbose      bool
	receiptPath  string
)

var rootCmd = &cobra.Command{
	Use:   "nix-installer-go",
	Short: "Install and uninstall Nix via a reversible, transactional plan",
	Long: `nix-installer-go assembles a platform-specific plan of reversible
actions, executes it in order, and persists a receipt so the same plan can
later be reverted in exactly reverse order.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to a planner settings YAML file")
	rootCmd.PersistentFlags().StringVar(&plannerName, "planner", "linux", "planner to use: darwin, linux, or steamos")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging")
	rootCmd.PersistentFlags().StringVar(&receiptPath, "receipt", "", "path to the receipt file (default: /nix/receipt.json)")

	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(planShowCmd)
}

func newLogger() ports.Logger {
	level := ports.LevelInfo
	if verbose {
		level = ports.LevelDebug
	}
	return logging.NewConsoleLogger(logging.WithOutput(os.Stderr), logging.WithLevel(level))
}
