// Package main is the entry point for the nix-installer-go CLI: a thin
// cobra front door wiring a planner to the plan engine's install/uninstall
// operations. Confirmation prompts, tarball download, and anything beyond
// internal/adapters/logging's own console logger are out of scope here
// (spec.md §1).
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
