// Package ports defines the interfaces every action depends on instead of
// touching the operating system directly: filesystem, subprocess execution,
// and logging. Real implementations live under internal/adapters; test
// doubles live under internal/testutil/mocks.
package ports

import (
	"os"
	"path/filepath"
	"time"
)

// FileInfo is a minimal, serialization-friendly stand-in for os.FileInfo.
type FileInfo struct {
	Size    int64
	Mode    os.FileMode
	ModTime time.Time
	IsDir   bool
	UID     int
	GID     int
}

// FileSystem provides the filesystem operations leaf actions need: reading,
// writing, atomic renames, ownership, and existence probing. Exists/Stat use
// Lstat semantics so a dangling or foreign symlink is still reported as
// "present" rather than silently following through it.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, perm os.FileMode) error
	// CreateExclusive creates path with O_CREAT|O_EXCL, failing if it
	// already exists, then writes data and closes the file.
	CreateExclusive(path string, data []byte, perm os.FileMode) error
	Exists(path string) bool
	Stat(path string) (FileInfo, error)
	IsDir(path string) bool
	IsSymlink(path string) (isLink bool, target string)
	CreateSymlink(target, link string) error
	Remove(path string) error
	RemoveAll(path string) error
	MkdirAll(path string, perm os.FileMode) error
	Rename(oldPath, newPath string) error
	Chmod(path string, perm os.FileMode) error
	Chown(path string, uid, gid int) error
	// ReadDir lists the immediate child names of a directory. Used by
	// leaf actions that must tell an empty directory from a populated one
	// before deciding whether a revert may safely remove it.
	ReadDir(path string) ([]string, error)
	// TempFile creates a new, empty file in dir with a random name and
	// mode 0600, returning its path. Callers write content then Rename
	// it over the real target (spec.md §4.4 invariant 4).
	TempFile(dir, pattern string) (path string, err error)
}

// ExpandPath expands a leading ~/ to the current user's home directory.
func ExpandPath(path string) string {
	if len(path) >= 2 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
