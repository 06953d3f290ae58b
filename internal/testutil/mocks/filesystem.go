package mocks

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/DeterminateSystems/nix-installer-go/internal/ports"
)

type mockFile struct {
	content []byte
	mode    os.FileMode
	uid     int
	gid     int
}

// FileSystem is a thread-safe test double for ports.FileSystem. It keeps
// files, symlinks, and directories in memory so action tests can assert on
// end state without touching the real filesystem.
type FileSystem struct {
	mu        sync.RWMutex
	files     map[string]*mockFile
	symlinks  map[string]string
	dirs      map[string]bool
	tempSeq   int
	failNext  map[string]error
}

// NewFileSystem creates a new FileSystem mock.
func NewFileSystem() *FileSystem {
	return &FileSystem{
		files:    make(map[string]*mockFile),
		symlinks: make(map[string]string),
		dirs:     make(map[string]bool),
		failNext: make(map[string]error),
	}
}

// AddFile adds a file to the mock filesystem.
func (fs *FileSystem) AddFile(path string, content string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.files[path] = &mockFile{content: []byte(content), mode: 0o644}
}

// SetFileContent sets file content directly as bytes, preserving mode/owner.
func (fs *FileSystem) SetFileContent(path string, content []byte) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if f, ok := fs.files[path]; ok {
		f.content = content
		return
	}
	fs.files[path] = &mockFile{content: content, mode: 0o644}
}

// AddFileWithOwner adds a file with explicit mode and uid/gid, for tests of
// ownership-asserting actions.
func (fs *FileSystem) AddFileWithOwner(path, content string, mode os.FileMode, uid, gid int) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.files[path] = &mockFile{content: []byte(content), mode: mode, uid: uid, gid: gid}
}

// AddSymlink adds a symlink to the mock filesystem.
func (fs *FileSystem) AddSymlink(link, target string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.symlinks[link] = target
}

// AddDir adds a directory to the mock filesystem.
func (fs *FileSystem) AddDir(path string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.dirs[path] = true
}

// FailNext arranges for the next call naming op (e.g. "WriteFile:/etc/x")
// to return err instead of performing the operation.
func (fs *FileSystem) FailNext(op string, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.failNext[op] = err
}

func (fs *FileSystem) takeFailure(op, path string) error {
	key := op + ":" + path
	if err, ok := fs.failNext[key]; ok {
		delete(fs.failNext, key)
		return err
	}
	return nil
}

func (fs *FileSystem) ReadFile(path string) ([]byte, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	if f, ok := fs.files[path]; ok {
		return f.content, nil
	}
	return nil, fmt.Errorf("file not found: %s", path)
}

func (fs *FileSystem) WriteFile(path string, data []byte, perm os.FileMode) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.takeFailure("WriteFile", path); err != nil {
		return err
	}
	fs.files[path] = &mockFile{content: data, mode: perm}
	return nil
}

func (fs *FileSystem) CreateExclusive(path string, data []byte, perm os.FileMode) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.takeFailure("CreateExclusive", path); err != nil {
		return err
	}
	if _, ok := fs.files[path]; ok {
		return fmt.Errorf("file already exists: %s", path)
	}
	fs.files[path] = &mockFile{content: data, mode: perm}
	return nil
}

func (fs *FileSystem) Exists(path string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	_, fileExists := fs.files[path]
	_, linkExists := fs.symlinks[path]
	_, dirExists := fs.dirs[path]
	return fileExists || linkExists || dirExists
}

func (fs *FileSystem) Stat(path string) (ports.FileInfo, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if f, ok := fs.files[path]; ok {
		return ports.FileInfo{
			Size:    int64(len(f.content)),
			Mode:    f.mode,
			ModTime: time.Now(),
			IsDir:   false,
			UID:     f.uid,
			GID:     f.gid,
		}, nil
	}
	if fs.dirs[path] {
		return ports.FileInfo{Mode: 0o755, ModTime: time.Now(), IsDir: true}, nil
	}
	return ports.FileInfo{}, fmt.Errorf("file not found: %s", path)
}

func (fs *FileSystem) IsDir(path string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.dirs[path]
}

func (fs *FileSystem) IsSymlink(path string) (bool, string) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	if target, ok := fs.symlinks[path]; ok {
		return true, target
	}
	return false, ""
}

func (fs *FileSystem) CreateSymlink(target, link string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.takeFailure("CreateSymlink", link); err != nil {
		return err
	}
	fs.symlinks[link] = target
	return nil
}

func (fs *FileSystem) Remove(path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.takeFailure("Remove", path); err != nil {
		return err
	}
	delete(fs.files, path)
	delete(fs.symlinks, path)
	delete(fs.dirs, path)
	return nil
}

func (fs *FileSystem) RemoveAll(path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.takeFailure("RemoveAll", path); err != nil {
		return err
	}
	prefix := strings.TrimSuffix(path, "/") + "/"
	for p := range fs.files {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(fs.files, p)
		}
	}
	for p := range fs.dirs {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(fs.dirs, p)
		}
	}
	delete(fs.dirs, path)
	delete(fs.symlinks, path)
	return nil
}

func (fs *FileSystem) MkdirAll(path string, _ os.FileMode) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.takeFailure("MkdirAll", path); err != nil {
		return err
	}
	fs.dirs[path] = true
	return nil
}

func (fs *FileSystem) Rename(oldPath, newPath string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.takeFailure("Rename", oldPath); err != nil {
		return err
	}
	if f, ok := fs.files[oldPath]; ok {
		fs.files[newPath] = f
		delete(fs.files, oldPath)
		return nil
	}
	if target, ok := fs.symlinks[oldPath]; ok {
		fs.symlinks[newPath] = target
		delete(fs.symlinks, oldPath)
		return nil
	}
	if fs.dirs[oldPath] {
		fs.dirs[newPath] = true
		delete(fs.dirs, oldPath)
		return nil
	}
	return fmt.Errorf("file not found: %s", oldPath)
}

func (fs *FileSystem) ReadDir(path string) ([]string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	if !fs.dirs[path] {
		return nil, fmt.Errorf("not a directory: %s", path)
	}
	prefix := strings.TrimSuffix(path, "/") + "/"
	seen := make(map[string]bool)
	var names []string
	for p := range fs.files {
		if rest, ok := cutPrefix(p, prefix); ok && rest != "" && !strings.Contains(rest, "/") && !seen[rest] {
			seen[rest] = true
			names = append(names, rest)
		}
	}
	for p := range fs.dirs {
		if rest, ok := cutPrefix(p, prefix); ok && rest != "" && !strings.Contains(rest, "/") && !seen[rest] {
			seen[rest] = true
			names = append(names, rest)
		}
	}
	return names, nil
}

func cutPrefix(s, prefix string) (string, bool) {
	if !strings.HasPrefix(s, prefix) {
		return "", false
	}
	return s[len(prefix):], true
}

func (fs *FileSystem) Chmod(path string, perm os.FileMode) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.takeFailure("Chmod", path); err != nil {
		return err
	}
	if f, ok := fs.files[path]; ok {
		f.mode = perm
		return nil
	}
	if fs.dirs[path] {
		return nil
	}
	return fmt.Errorf("file not found: %s", path)
}

func (fs *FileSystem) Chown(path string, uid, gid int) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.takeFailure("Chown", path); err != nil {
		return err
	}
	if f, ok := fs.files[path]; ok {
		f.uid, f.gid = uid, gid
		return nil
	}
	return fmt.Errorf("file not found: %s", path)
}

func (fs *FileSystem) TempFile(dir, pattern string) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.tempSeq++
	path := fmt.Sprintf("%s/.%s.tmp%d", strings.TrimSuffix(dir, "/"), pattern, fs.tempSeq)
	fs.files[path] = &mockFile{content: nil, mode: 0o600}
	return path, nil
}

// Reset clears all files, symlinks, and directories.
func (fs *FileSystem) Reset() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.files = make(map[string]*mockFile)
	fs.symlinks = make(map[string]string)
	fs.dirs = make(map[string]bool)
	fs.failNext = make(map[string]error)
}

var _ ports.FileSystem = (*FileSystem)(nil)
