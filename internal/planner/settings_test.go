package planner

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings_ApplyEnvOverridesDefaults(t *testing.T) {
	t.Setenv("NIX_INSTALLER_NO_CONFIRM", "true")
	t.Setenv("NIX_INSTALLER_ENCRYPT", "true")
	t.Setenv("NIX_INSTALLER_VOLUME_LABEL", "My Nix Store")
	t.Setenv("NIX_INSTALLER_ROOT_DISK", "disk3")
	t.Setenv("NIX_INSTALLER_NIX_DAEMON_USER_COUNT", "8")

	s := DefaultSettings().ApplyEnv()

	assert.True(t, s.NoConfirm)
	assert.True(t, s.Encrypt)
	assert.Equal(t, "My Nix Store", s.VolumeLabel)
	assert.Equal(t, "disk3", s.RootDisk)
	assert.Equal(t, 8, s.NixDaemonUserCount)
}

func TestSettings_ApplyEnvLeavesUnsetFieldsAlone(t *testing.T) {
	os.Unsetenv("NIX_INSTALLER_VOLUME_LABEL")
	s := DefaultSettings().ApplyEnv()
	assert.Equal(t, "Nix Store", s.VolumeLabel)
}

func TestLoadSettingsFile_OverridesBaseFromYAML(t *testing.T) {
	base := DefaultSettings()
	doc := []byte("volume_label: Custom Store\nnix_daemon_user_count: 4\n")

	s, err := LoadSettingsFile(base, doc)
	require.NoError(t, err)

	assert.Equal(t, "Custom Store", s.VolumeLabel)
	assert.Equal(t, 4, s.NixDaemonUserCount)
	assert.Equal(t, base.GroupName, s.GroupName)
}

func TestSettings_AsMapRoundTripsThroughYAML(t *testing.T) {
	m := DefaultSettings().AsMap()
	require.NotNil(t, m)
	assert.Equal(t, "Nix Store", m["volume_label"])
}
