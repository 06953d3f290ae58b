package darwin

import (
	"context"
	"fmt"
	"strings"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/installerrors"
	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
)

func init() {
	action.Register(action.TagBootstrapKickstart, func() action.Action { return &BootstrapKickstartMountAgent{} })
}

// BootstrapKickstartMountAgent bootstraps the mount launch-agent into
// launchd, kickstarts it, then waits for /nix to appear (spec.md §4.6.1
// step 9). Plan time probes `launchctl print <domain>/<service>`: on exit 0
// or 37 the output is inspected, and the action is Completed only if it
// reports the service state as running; otherwise it is Uncompleted.
type BootstrapKickstartMountAgent struct {
	Domain  string `json:"domain"`
	Service string `json:"service"`
	Path    string `json:"path"`

	cmd ports.CommandRunner
}

func PlanBootstrapKickstartMountAgent(ctx context.Context, cmd ports.CommandRunner, domain, service, path string) (*action.Stateful, error) {
	a := &BootstrapKickstartMountAgent{Domain: domain, Service: service, Path: path, cmd: cmd}

	res, err := cmd.Run(ctx, "/bin/launchctl", "print", fmt.Sprintf("%s/%s", domain, service), "-plist")
	if err != nil {
		return nil, installerrors.New(installerrors.KindCommand, err)
	}
	if res.Success() || res.ExitCode == 37 {
		if serviceRunning(res.Stdout) {
			return action.NewStateful(a, action.StateCompleted), nil
		}
	}
	return action.NewStateful(a, action.StateUncompleted), nil
}

func (a *BootstrapKickstartMountAgent) Hydrate(d action.Dependencies) { a.cmd = d.Cmd }

func (a *BootstrapKickstartMountAgent) TracingSynopsis() string {
	return fmt.Sprintf("bootstrap and kickstart `%s/%s`", a.Domain, a.Service)
}

func (a *BootstrapKickstartMountAgent) ExecuteDescription() []action.Description {
	return []action.Description{action.NewDescription(a.TracingSynopsis(), nil)}
}

func (a *BootstrapKickstartMountAgent) RevertDescription() []action.Description {
	return []action.Description{action.NewDescription(fmt.Sprintf("bootout `%s/%s`", a.Domain, a.Service), nil)}
}

func (a *BootstrapKickstartMountAgent) Execute(ctx context.Context) error {
	res, err := a.cmd.Run(ctx, "/bin/launchctl", "bootstrap", a.Domain, a.Path)
	if err != nil {
		return installerrors.New(installerrors.KindCommand, err)
	}
	if !res.Success() {
		return installerrors.New(installerrors.KindCommandOutput, fmt.Errorf("launchctl bootstrap: %s", res.Stderr))
	}

	res, err = a.cmd.Run(ctx, "/bin/launchctl", "kickstart", "-k", fmt.Sprintf("%s/%s", a.Domain, a.Service))
	if err != nil {
		return installerrors.New(installerrors.KindCommand, err)
	}
	if !res.Success() {
		return installerrors.New(installerrors.KindCommandOutput, fmt.Errorf("launchctl kickstart: %s", res.Stderr))
	}

	return PlanWaitForVolume(a.cmd, "/nix").TryExecute(ctx)
}

func (a *BootstrapKickstartMountAgent) Revert(ctx context.Context) error {
	res, err := a.cmd.Run(ctx, "/bin/launchctl", "bootout", a.Domain, a.Path)
	if err != nil {
		return installerrors.New(installerrors.KindCommand, err)
	}
	// Exit 0 or exit 3 (a prior stop) are both fine; any other exit is a
	// real failure to tear down the agent.
	if !res.Success() && res.ExitCode != 3 {
		return installerrors.New(installerrors.KindCommandOutput, fmt.Errorf("launchctl bootout: %s", res.Stderr))
	}
	return nil
}

func (a *BootstrapKickstartMountAgent) Tag() action.Tag { return action.TagBootstrapKickstart }

func serviceRunning(plistOutput string) bool {
	for _, line := range strings.Split(plistOutput, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "state") {
			return strings.Contains(trimmed, "running")
		}
	}
	return false
}

var _ action.Action = (*BootstrapKickstartMountAgent)(nil)
var _ action.Hydratable = (*BootstrapKickstartMountAgent)(nil)
