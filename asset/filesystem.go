package asset

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// FileSystem is the read-only byte source the Store loads from.
type FileSystem interface {
	ReadBytes(path string) ([]byte, error)
}

// Dir reads assets from a directory on the host filesystem.
type Dir string

func (d Dir) ReadBytes(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(string(d), filepath.FromSlash(name)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrReadFailed, name, err)
	}
	return data, nil
}

// ExecutableDir returns the assets directory next to the running binary.
func ExecutableDir() (Dir, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	return Dir(filepath.Join(filepath.Dir(exe), "assets")), nil
}

type fsFileSystem struct {
	fsys fs.FS
}

// FromFS adapts an fs.FS, such as an embed.FS, to a FileSystem.
func FromFS(fsys fs.FS) FileSystem {
	return fsFileSystem{fsys: fsys}
}

func (f fsFileSystem) ReadBytes(name string) ([]byte, error) {
	data, err := fs.ReadFile(f.fsys, path.Clean(name))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrReadFailed, name, err)
	}
	return data, nil
}
