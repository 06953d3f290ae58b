//go:build windows

package filesystem

import (
	"fmt"
	"os"
)

// Chown is not meaningful on Windows; the installer is Linux/macOS-only but
// this stub keeps RealFileSystem buildable on every GOOS the rest of the
// pack's CI matrix targets.
func (fs *RealFileSystem) Chown(path string, uid, gid int) error {
	return fmt.Errorf("chown is not supported on windows: %q", path)
}

func statOwner(info os.FileInfo) (uid, gid int) {
	return 0, 0
}
