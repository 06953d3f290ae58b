// Package filesystem provides the real, OS-backed implementation of
// ports.FileSystem. Chown is split by build tag in real_unix.go /
// real_windows.go since ownership is not a meaningful concept on Windows.
package filesystem

import (
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
)

// RealFileSystem implements ports.FileSystem with actual file system calls.
type RealFileSystem struct{}

// NewRealFileSystem creates a new RealFileSystem.
func NewRealFileSystem() *RealFileSystem {
	return &RealFileSystem{}
}

func (fs *RealFileSystem) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %q: %w", path, err)
	}
	return data, nil
}

func (fs *RealFileSystem) WriteFile(path string, data []byte, perm os.FileMode) error {
	if err := os.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("failed to write file %q: %w", path, err)
	}
	return nil
}

func (fs *RealFileSystem) CreateExclusive(path string, data []byte, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
	if err != nil {
		return fmt.Errorf("failed to create file %q: %w", path, err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write file %q: %w", path, err)
	}
	return nil
}

// Exists uses Lstat so a dangling or foreign symlink is reported present
// without following it.
func (fs *RealFileSystem) Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func (fs *RealFileSystem) Stat(path string) (ports.FileInfo, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return ports.FileInfo{}, fmt.Errorf("failed to stat %q: %w", path, err)
	}
	fi := ports.FileInfo{
		Size:    info.Size(),
		Mode:    info.Mode(),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
	}
	fi.UID, fi.GID = statOwner(info)
	return fi, nil
}

func (fs *RealFileSystem) IsDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

func (fs *RealFileSystem) IsSymlink(path string) (bool, string) {
	info, err := os.Lstat(path)
	if err != nil {
		return false, ""
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return false, ""
	}
	target, err := os.Readlink(path)
	if err != nil {
		return true, ""
	}
	return true, target
}

func (fs *RealFileSystem) CreateSymlink(target, link string) error {
	if err := os.Symlink(target, link); err != nil {
		return fmt.Errorf("failed to create symlink %q -> %q: %w", link, target, err)
	}
	return nil
}

func (fs *RealFileSystem) Remove(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove %q: %w", path, err)
	}
	return nil
}

func (fs *RealFileSystem) RemoveAll(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove %q: %w", path, err)
	}
	return nil
}

func (fs *RealFileSystem) MkdirAll(path string, perm os.FileMode) error {
	if err := os.MkdirAll(path, perm); err != nil {
		return fmt.Errorf("failed to create directory %q: %w", path, err)
	}
	return nil
}

func (fs *RealFileSystem) Rename(oldPath, newPath string) error {
	if err := os.Rename(oldPath, newPath); err != nil {
		return fmt.Errorf("failed to rename %q to %q: %w", oldPath, newPath, err)
	}
	return nil
}

func (fs *RealFileSystem) ReadDir(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %q: %w", path, err)
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}

func (fs *RealFileSystem) Chmod(path string, perm os.FileMode) error {
	if err := os.Chmod(path, perm); err != nil {
		return fmt.Errorf("failed to chmod %q: %w", path, err)
	}
	return nil
}

// TempFile creates an empty, mode-0600 file in dir with a random name so
// CreateOrInsertIntoFile and CreateOrMergeNixConfig can write content then
// rename it over the real target atomically.
func (fs *RealFileSystem) TempFile(dir, pattern string) (string, error) {
	name := fmt.Sprintf(".%s.%s.tmp", pattern, uuid.NewString())
	path := dir + string(os.PathSeparator) + name
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file in %q: %w", dir, err)
	}
	defer f.Close()
	return path, nil
}

// Ensure RealFileSystem implements ports.FileSystem.
var _ ports.FileSystem = (*RealFileSystem)(nil)
