package fileio

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/zhukovaskychina/xiceberg/table/basic"
	"github.com/zhukovaskychina/xiceberg/util"
)

const localScheme = "file://"

// LocalFileIO is the FileIO over the local filesystem, it accepts both bare
// paths and file:// locations.
// 本地文件系统上的 FileIO 实现
type LocalFileIO struct {
	mu     sync.RWMutex
	closed bool
}

// NewLocalFileIO creates an open local FileIO
func NewLocalFileIO() *LocalFileIO {
	return &LocalFileIO{}
}

func localPath(path string) string {
	if strings.HasPrefix(path, localScheme) {
		return path[len(localScheme):]
	}
	return path
}

func (io *LocalFileIO) checkOpen() error {
	io.mu.RLock()
	defer io.mu.RUnlock()
	if io.closed {
		return basic.ErrIOClosed
	}
	return nil
}

// NewInputFile opens a path for reading
func (io *LocalFileIO) NewInputFile(path string) (basic.InputFile, error) {
	if err := io.checkOpen(); err != nil {
		return nil, err
	}
	return &localInputFile{io: io, location: path}, nil
}

// NewOutputFile opens a path for writing
func (io *LocalFileIO) NewOutputFile(path string) (basic.OutputFile, error) {
	if err := io.checkOpen(); err != nil {
		return nil, err
	}
	return &localOutputFile{io: io, location: path}, nil
}

// DeleteFile removes a file
func (io *LocalFileIO) DeleteFile(path string) error {
	if err := io.checkOpen(); err != nil {
		return err
	}
	if err := os.Remove(localPath(path)); err != nil {
		return errors.Wrapf(err, "delete %s", path)
	}
	return nil
}

// Close releases the resource, later use fails with ErrIOClosed
func (io *LocalFileIO) Close() error {
	io.mu.Lock()
	defer io.mu.Unlock()
	if io.closed {
		return basic.ErrIOClosed
	}
	io.closed = true
	return nil
}

type localInputFile struct {
	io       *LocalFileIO
	location string
}

func (f *localInputFile) Location() string {
	return f.location
}

func (f *localInputFile) Exists() (bool, error) {
	if err := f.io.checkOpen(); err != nil {
		return false, err
	}
	return util.PathExists(localPath(f.location))
}

func (f *localInputFile) ReadAll() ([]byte, error) {
	if err := f.io.checkOpen(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(localPath(f.location))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", f.location)
	}
	return data, nil
}

type localOutputFile struct {
	io       *LocalFileIO
	location string
}

func (f *localOutputFile) Location() string {
	return f.location
}

// Write replaces the file content atomically, temp file plus rename
func (f *localOutputFile) Write(data []byte) error {
	if err := f.io.checkOpen(); err != nil {
		return err
	}
	path := localPath(f.location)
	if err := util.EnsureDir(filepath.Dir(path)); err != nil {
		return errors.Wrapf(err, "create parent of %s", f.location)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return errors.Wrapf(err, "create temp for %s", f.location)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrapf(err, "write temp for %s", f.location)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "close temp for %s", f.location)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "rename temp to %s", f.location)
	}
	return nil
}

// WriteExclusive creates the file, losing the race fails with ErrCommitConflict
func (f *localOutputFile) WriteExclusive(data []byte) error {
	if err := f.io.checkOpen(); err != nil {
		return err
	}
	path := localPath(f.location)
	if err := util.EnsureDir(filepath.Dir(path)); err != nil {
		return errors.Wrapf(err, "create parent of %s", f.location)
	}
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return basic.ErrCommitConflict
		}
		return errors.Wrapf(err, "create %s", f.location)
	}
	if _, err := out.Write(data); err != nil {
		out.Close()
		return errors.Wrapf(err, "write %s", f.location)
	}
	return out.Close()
}
