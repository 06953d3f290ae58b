package action

// Tag is the stable, closed identifier of an action type. It is the only
// extension point: it is what gets serialized into a receipt's action_name
// field and what the registry uses to reconstruct a concrete action from
// JSON. Unknown tags on deserialization are a version-compatibility error,
// never a silent skip.
type Tag string

const (
	TagCreateDirectory       Tag = "create_directory"
	TagCreateFile            Tag = "create_file"
	TagCreateOrInsertIntoFile Tag = "create_or_insert_into_file"
	TagCreateOrMergeNixConfig Tag = "create_or_merge_nix_config"
	TagCreateSymlink         Tag = "create_symlink"
	TagCreateGroup           Tag = "create_group"
	TagCreateUser            Tag = "create_user"
	TagDeleteUser            Tag = "delete_user"
	TagAddUserToGroup        Tag = "add_user_to_group"
	TagFetchAndUnpack        Tag = "fetch_and_unpack"

	TagProvisionNix  Tag = "provision_nix"
	TagConfigureNix  Tag = "configure_nix"
	TagCreateNixTree Tag = "create_nix_tree"

	TagCreateDeterminateNixVolume Tag = "create_determinate_nix_volume"
	TagCreateAPFSVolume          Tag = "create_apfs_volume"
	TagAppendSyntheticConf       Tag = "append_synthetic_conf"
	TagRefreshSyntheticObjects   Tag = "refresh_synthetic_objects"
	TagUnmountVolume             Tag = "unmount_volume"
	TagCreateVolume              Tag = "create_volume"
	TagWaitForVolume             Tag = "wait_for_volume"
	TagConfigureFstab            Tag = "configure_fstab"
	TagEncryptVolume             Tag = "encrypt_volume"
	TagInstallMountAgent         Tag = "install_mount_agent"
	TagBootstrapKickstart        Tag = "bootstrap_kickstart_mount_agent"
	TagEnableOwnership           Tag = "enable_ownership"

	TagInstallSystemdUnit           Tag = "install_systemd_unit"
	TagSystemdDaemonReload          Tag = "systemd_daemon_reload"
	TagConfigureNixDaemonService    Tag = "configure_nix_daemon_service"
)
