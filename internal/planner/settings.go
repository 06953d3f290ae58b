// Package planner assembles a plan.Plan for a target operating system from
// the action vocabulary in internal/action's leaf/composite/darwin/linux
// packages (spec.md §2 "Planners": "specified only at the interface"). The
// darwin/linux/steamos implementations here are illustrative, not
// exhaustive — each assembles a representative action list rather than
// every optional knob the original tool exposes.
package planner

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Settings is every planner's configuration surface: the subset of fields
// a given planner reads is its own business. Values come from environment
// variables (spec.md §6) applied over whatever a YAML settings file
// supplied, env taking precedence since that mirrors how an operator
// overrides a file-based config at invocation time.
type Settings struct {
	NoConfirm          bool   `yaml:"no_confirm"`
	Encrypt            bool   `yaml:"encrypt"`
	VolumeLabel        string `yaml:"volume_label"`
	RootDisk           string `yaml:"root_disk"`
	NixDaemonUserCount int    `yaml:"nix_daemon_user_count"`

	StoreDir         string `yaml:"store_dir"`
	ProfileLink      string `yaml:"profile_link"`
	ProfileTarget    string `yaml:"profile_target"`
	TarballSource    string `yaml:"tarball_source"`
	GroupName        string `yaml:"group_name"`
	GroupGID         int    `yaml:"group_gid"`
	BuildUserPrefix  string `yaml:"build_user_prefix"`
	BuildUserUIDBase int    `yaml:"build_user_uid_base"`

	ConfigPath string `yaml:"config_path"`
	ConfigMode uint32 `yaml:"config_mode"`

	MountAgentPath string `yaml:"mount_agent_path"`

	ServiceStorePath string `yaml:"service_store_path"`
	SocketStorePath  string `yaml:"socket_store_path"`
}

// DefaultSettings returns the values every illustrative planner assumes
// absent an override, matching the paths named throughout spec.md §6.
func DefaultSettings() Settings {
	return Settings{
		VolumeLabel:        "Nix Store",
		NixDaemonUserCount: 32,
		StoreDir:           "/nix/store",
		ProfileLink:        "/nix/var/nix/profiles/default",
		ProfileTarget:      "/nix/var/nix/profiles/default-1-link",
		TarballSource:      "/nix/store.tar.zst",
		GroupName:          "nixbld",
		GroupGID:           30000,
		BuildUserPrefix:    "_nixbld",
		BuildUserUIDBase:   30001,
		ConfigPath:         "/etc/nix/nix.conf",
		ConfigMode:         0o644,
		MountAgentPath:     "/Library/LaunchDaemons/org.nixos.darwin-store.plist",
		ServiceStorePath:   "/nix/var/nix/profiles/default/lib/systemd/system/nix-daemon.service",
		SocketStorePath:    "/nix/var/nix/profiles/default/lib/systemd/system/nix-daemon.socket",
	}
}

// LoadSettingsFile unmarshals a YAML settings document (the CLI's
// `--config install.yaml` per SPEC_FULL.md) over base.
func LoadSettingsFile(base Settings, data []byte) (Settings, error) {
	if err := yaml.Unmarshal(data, &base); err != nil {
		return Settings{}, err
	}
	return base, nil
}

// ApplyEnv overrides s with any of the NIX_INSTALLER_* variables spec.md §6
// lists as consumed, leaving a field untouched when its variable is unset.
func (s Settings) ApplyEnv() Settings {
	if v, ok := os.LookupEnv("NIX_INSTALLER_NO_CONFIRM"); ok {
		s.NoConfirm = parseBool(v, s.NoConfirm)
	}
	if v, ok := os.LookupEnv("NIX_INSTALLER_ENCRYPT"); ok {
		s.Encrypt = parseBool(v, s.Encrypt)
	}
	if v, ok := os.LookupEnv("NIX_INSTALLER_VOLUME_LABEL"); ok {
		s.VolumeLabel = v
	}
	if v, ok := os.LookupEnv("NIX_INSTALLER_ROOT_DISK"); ok {
		s.RootDisk = v
	}
	if v, ok := os.LookupEnv("NIX_INSTALLER_NIX_DAEMON_USER_COUNT"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			s.NixDaemonUserCount = n
		}
	}
	return s
}

// AsMap renders s as a map[string]interface{} for a plan's
// PlannerDescriptor.Settings field by round-tripping through YAML rather
// than JSON: yaml.v3 decodes a mapping node straight into
// map[string]interface{} with string keys, so no further conversion is
// needed before it is embedded in the receipt's JSON (SPEC_FULL.md's
// "mixed with JSON via yaml.Node conversion at the boundary").
func (s Settings) AsMap() map[string]interface{} {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil
	}
	var m map[string]interface{}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}

func parseBool(v string, fallback bool) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
