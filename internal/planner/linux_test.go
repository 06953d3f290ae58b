package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeterminateSystems/nix-installer-go/internal/action"
	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
	"github.com/DeterminateSystems/nix-installer-go/internal/testutil/mocks"
)

type fakeFetcher struct{}

func (fakeFetcher) FetchAndUnpack(context.Context, string, string) error { return nil }

func linuxTestSettings() Settings {
	s := DefaultSettings()
	s.NixDaemonUserCount = 1
	s.BuildUserPrefix = "nixbld"
	s.GroupGID = 30000
	s.BuildUserUIDBase = 30001
	return s
}

func newLinuxMocks(t *testing.T) (*mocks.FileSystem, *mocks.CommandRunner) {
	t.Helper()
	fs := mocks.NewFileSystem()
	fs.AddDir("/nix")
	fs.AddDir("/etc")
	fs.AddDir("/etc/zsh")
	fs.AddDir("/run/systemd/system")
	fs.AddDir("/etc/systemd/system")

	cmd := mocks.NewCommandRunner()
	cmd.AddResult("getent", []string{"group", "nixbld"}, ports.CommandResult{ExitCode: 2})
	cmd.AddResult("groupadd", []string{"-g", "30000", "--system", "nixbld"}, ports.CommandResult{ExitCode: 0})
	cmd.AddResult("getent", []string{"passwd", "nixbld1"}, ports.CommandResult{ExitCode: 2})
	cmd.AddResult("useradd", []string{
		"--system", "--no-create-home", "--shell", "/sbin/nologin",
		"--comment", "Nix build user", "--uid", "30001", "--gid", "30000", "nixbld1",
	}, ports.CommandResult{ExitCode: 0})
	cmd.AddResult("id", []string{"-nG", "nixbld1"}, ports.CommandResult{ExitCode: 0, Stdout: "nixbld1\n"})
	cmd.AddResult("usermod", []string{"-aG", "nixbld", "nixbld1"}, ports.CommandResult{ExitCode: 0})

	defaults := DefaultSettings()
	cmd.AddResult("systemctl", []string{"link", defaults.ServiceStorePath}, ports.CommandResult{ExitCode: 0})
	cmd.AddResult("systemctl", []string{"link", defaults.SocketStorePath}, ports.CommandResult{ExitCode: 0})
	cmd.AddResult("systemctl", []string{"enable", "--now", "nix-daemon.socket"}, ports.CommandResult{ExitCode: 0})
	cmd.AddResult("systemctl", []string{"daemon-reload"}, ports.CommandResult{ExitCode: 0})
	cmd.AddResult("which", []string{"systemctl"}, ports.CommandResult{ExitCode: 0})
	return fs, cmd
}

func TestLinuxPlanner_PlanAssemblesProvisionConfigureAndDaemonReloadLast(t *testing.T) {
	fs, cmd := newLinuxMocks(t)

	p, err := LinuxPlanner{}.Plan(context.Background(), fs, cmd, fakeFetcher{}, linuxTestSettings())
	require.NoError(t, err)

	assert.Equal(t, "linux", p.Planner.Planner)
	require.Len(t, p.Actions, 4)

	reload := p.Actions[len(p.Actions)-1]
	assert.Equal(t, action.TagSystemdDaemonReload, reload.Action.Tag())

	daemonService := p.Actions[len(p.Actions)-2]
	assert.Equal(t, action.TagConfigureNixDaemonService, daemonService.Action.Tag())
}

func TestLinuxPlanner_InstallExecutesEveryActionAndNeverSkipsDaemonReload(t *testing.T) {
	fs, cmd := newLinuxMocks(t)

	p, err := LinuxPlanner{}.Plan(context.Background(), fs, cmd, fakeFetcher{}, linuxTestSettings())
	require.NoError(t, err)

	for _, stateful := range p.Actions {
		require.NoError(t, stateful.TryExecute(context.Background()))
	}

	found := false
	for _, c := range cmd.Calls() {
		if c.Command == "systemctl" && len(c.Args) == 1 && c.Args[0] == "daemon-reload" {
			found = true
		}
	}
	assert.True(t, found, "planner must sequence SystemdDaemonReload after ConfigureNixDaemonService")
}

func TestSteamOSPlanner_PlanRequiresSteamosReadonlyBinary(t *testing.T) {
	fs, cmd := newLinuxMocks(t)

	_, err := SteamOSPlanner{}.Plan(context.Background(), fs, cmd, fakeFetcher{}, linuxTestSettings())
	require.Error(t, err)

	cmd.AddResult("which", []string{"steamos-readonly"}, ports.CommandResult{ExitCode: 0})
	p, err := SteamOSPlanner{}.Plan(context.Background(), fs, cmd, fakeFetcher{}, linuxTestSettings())
	require.NoError(t, err)
	assert.Equal(t, "steamos", p.Planner.Planner)
}
