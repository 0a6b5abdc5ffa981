package filesystem

import (
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// CacheFS is the gache.FileSystem behind the resume history and the
// version check. Writes go to a temporary sibling that replaces the target
// on Close, so a crash during a periodic save never leaves a torn file.
type CacheFS struct{}

// OpenFile opens name on the active backend. A write-only open without
// O_APPEND yields a file that only becomes visible at name once closed.
func (CacheFS) OpenFile(name string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
	if flag&os.O_WRONLY == 0 || flag&os.O_APPEND != 0 {
		return API().OpenFile(name, flag, perm)
	}

	dir := filepath.Dir(name)
	if err := API().MkdirAll(dir, os.ModePerm); err != nil {
		return nil, err
	}
	tmp, err := API().TempFile(dir, filepath.Base(name)+".*.tmp")
	if err != nil {
		return nil, err
	}
	return &replacingFile{File: tmp, target: name, perm: perm}, nil
}

// MkdirAll creates path on the active backend.
func (CacheFS) MkdirAll(path string, perm os.FileMode) error {
	return API().MkdirAll(path, perm)
}

type replacingFile struct {
	afero.File
	target string
	perm   os.FileMode
}

func (f *replacingFile) Close() error {
	tmp := f.File.Name()
	err := f.File.Close()
	if err == nil {
		err = API().Chmod(tmp, f.perm)
	}
	if err == nil {
		err = API().Rename(tmp, f.target)
	}
	if err != nil {
		_ = API().Remove(tmp)
	}
	return err
}
