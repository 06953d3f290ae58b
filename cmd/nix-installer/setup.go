package main

import (
	"context"
	"fmt"
	"os"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/adapters/command"
	"github.com/DeterminateSystems/nix-installer-go/internal/adapters/filesystem"
	"github.com/DeterminateSystems/nix-installer-go/internal/plan"
	"github.com/DeterminateSystems/nix-installer-go/internal/planner"
	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
)

// stubFetcher stands in for action.Fetcher: downloading and unpacking the
// Nix tarball is out of scope (spec.md §1), so the CLI's FetchAndUnpack
// step always fails with a clear message rather than silently no-op'ing.
type stubFetcher struct{}

func (stubFetcher) FetchAndUnpack(context.Context, string, string) error {
	return fmt.Errorf("fetching and unpacking the Nix tarball is not implemented by this CLI; supply a pre-populated store")
}

// resolvePlanner maps --planner to its implementation.
func resolvePlanner(name string) (planner.Planner, error) {
	switch name {
	case "darwin":
		return planner.DarwinPlanner{}, nil
	case "linux":
		return planner.LinuxPlanner{}, nil
	case "steamos":
		return planner.SteamOSPlanner{}, nil
	default:
		return nil, fmt.Errorf("unknown planner %q (want darwin, linux, or steamos)", name)
	}
}

// resolveSettings loads planner.DefaultSettings, overlays --config's YAML
// document if given, then applies NIX_INSTALLER_* environment overrides
// last (spec.md §6).
func resolveSettings(configPath string) (planner.Settings, error) {
	settings := planner.DefaultSettings()
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return planner.Settings{}, fmt.Errorf("reading %s: %w", configPath, err)
		}
		settings, err = planner.LoadSettingsFile(settings, data)
		if err != nil {
			return planner.Settings{}, fmt.Errorf("parsing %s: %w", configPath, err)
		}
	}
	return settings.ApplyEnv(), nil
}

func resolveReceiptPath() string {
	if receiptPath != "" {
		return receiptPath
	}
	return plan.DefaultReceiptPath
}

func buildPlan(ctx context.Context, fs ports.FileSystem, cmd ports.CommandRunner) (*plan.Plan, error) {
	p, err := resolvePlanner(plannerName)
	if err != nil {
		return nil, err
	}
	settings, err := resolveSettings(cfgFile)
	if err != nil {
		return nil, err
	}
	return p.Plan(ctx, fs, cmd, stubFetcher{}, settings)
}

func realPorts() (ports.FileSystem, ports.CommandRunner) {
	return filesystem.NewRealFileSystem(), command.NewRealRunner()
}

// hydrateLoadedPlan wires live dependencies into a plan.Plan reconstructed
// from a receipt, mirroring what a fresh Plan already has from buildPlan.
func hydrateLoadedPlan(p *plan.Plan, fs ports.FileSystem, cmd ports.CommandRunner, logger ports.Logger) {
	action.HydrateAll(p.Actions, action.Dependencies{FS: fs, Cmd: cmd, Logger: logger, Fetcher: stubFetcher{}})
}
