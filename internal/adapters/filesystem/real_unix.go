//go:build !windows

package filesystem

import (
	"fmt"
	"os"
	"syscall"
)

// Chown changes the owning user and group of path. Callers are expected to
// be running with CAP_CHOWN (the installer always runs as root).
func (fs *RealFileSystem) Chown(path string, uid, gid int) error {
	if err := os.Chown(path, uid, gid); err != nil {
		return fmt.Errorf("failed to chown %q: %w", path, err)
	}
	return nil
}

// statOwner extracts uid/gid from the platform-specific os.FileInfo.Sys().
func statOwner(info os.FileInfo) (uid, gid int) {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return int(st.Uid), int(st.Gid)
	}
	return 0, 0
}
