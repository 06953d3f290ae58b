// Package installerrors implements the closed error taxonomy shared by every
// action, the plan engine, and the receipt. It follows the teacher's
// "error kind as data, not as type" pattern: one struct carrying an action
// tag, a kind drawn from a closed enum, and a cause chain, rather than a
// bespoke error type per action.
package installerrors

// Kind enumerates the closed set of error conditions an action or the plan
// engine can surface. New conditions are added here, never as new Go error
// types, so that a receipt written by an older binary still deserializes
// cleanly and so `errors.As` callers only ever need to match on one type.
type Kind string

const (
	KindOpen         Kind = "open"
	KindRead         Kind = "read"
	KindWrite        Kind = "write"
	KindSeek         Kind = "seek"
	KindTruncate     Kind = "truncate"
	KindFlush        Kind = "flush"
	KindRename       Kind = "rename"
	KindCopy         Kind = "copy"
	KindCreateDir    Kind = "create_directory"
	KindRemove       Kind = "remove"
	KindSymlink      Kind = "symlink"
	KindReadSymlink  Kind = "read_symlink"
	KindGetMetadata  Kind = "get_metadata"
	KindSetPerms     Kind = "set_permissions"
	KindChown        Kind = "chown"

	KindPathExistsWrongType Kind = "path_exists_wrong_type"
	KindPathWasNotFile      Kind = "path_was_not_file"
	KindPathWasNotDirectory Kind = "path_was_not_directory"
	KindPathWasNotSymlink   Kind = "path_was_not_symlink"
	KindSymlinkExists       Kind = "symlink_exists"

	KindPathModeMismatch  Kind = "path_mode_mismatch"
	KindUserUIDMismatch   Kind = "user_uid_mismatch"
	KindUserGIDMismatch   Kind = "user_gid_mismatch"
	KindPathUserMismatch  Kind = "path_user_mismatch"
	KindPathGroupMismatch Kind = "path_group_mismatch"

	KindDifferentContent  Kind = "different_content"
	KindUnmergeableConfig Kind = "unmergeable_config"

	KindCommand       Kind = "command"
	KindCommandOutput Kind = "command_output"

	KindMissingAddUserToGroupCommand  Kind = "missing_add_user_to_group_command"
	KindMissingRemoveUserFromGroupCmd Kind = "missing_remove_user_from_group_command"
	KindMissingUserDeletionCommand    Kind = "missing_user_deletion_command"
	KindMissingSteamosBinary          Kind = "missing_steamos_binary"
	KindSystemdMissing                Kind = "systemd_missing"

	KindMalformedBinaryTarball Kind = "malformed_binary_tarball"
	KindWaitForVolumeTimeout   Kind = "wait_for_volume_timeout"
	KindFetch                  Kind = "fetch"
	KindFromUTF8               Kind = "from_utf8"
	KindMultipleChildren       Kind = "multiple_children"
	KindCustom                 Kind = "custom"
	KindCancelled              Kind = "cancelled"
	KindIncompatibleVersion    Kind = "incompatible_version"
)

// Expected reports whether errors of this kind are user-fixable and should
// be rendered to the operator without a full cause chain (spec.md §7
// "Propagation policy"). Everything not listed here is treated as
// unexpected and bug-suggestive.
func (k Kind) Expected() bool {
	switch k {
	case KindMissingAddUserToGroupCommand,
		KindMissingRemoveUserFromGroupCmd,
		KindMissingUserDeletionCommand,
		KindMissingSteamosBinary,
		KindSystemdMissing,
		KindPathExistsWrongType,
		KindPathWasNotFile,
		KindPathWasNotDirectory,
		KindPathWasNotSymlink,
		KindSymlinkExists,
		KindDifferentContent,
		KindUnmergeableConfig,
		KindPathModeMismatch,
		KindUserUIDMismatch,
		KindUserGIDMismatch,
		KindPathUserMismatch,
		KindPathGroupMismatch,
		KindIncompatibleVersion,
		KindCancelled:
		return true
	default:
		return false
	}
}
