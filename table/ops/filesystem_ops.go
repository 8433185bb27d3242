package ops

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	jerrors "github.com/juju/errors"
	"github.com/zhukovaskychina/xiceberg/logger"
	"github.com/zhukovaskychina/xiceberg/table/basic"
	"github.com/zhukovaskychina/xiceberg/table/metadata"
)

const (
	METADATA_DIR      = "metadata"
	VERSION_HINT_FILE = "version-hint.text"

	// DEFAULT_METADATA_KEEP is how many metadata version files a table keeps
	DEFAULT_METADATA_KEEP = 10
)

// FileSystemOperations publishes table metadata as numbered version files
// under <location>/metadata, with version-hint.text naming the current one.
// 以版本文件形式发布表元数据
type FileSystemOperations struct {
	mu        sync.Mutex
	io        basic.FileIO
	location  string
	current   *metadata.TableMetadata
	version   int
	keepCount int
}

// NewFileSystemOperations creates operations for one table location
func NewFileSystemOperations(io basic.FileIO, location string) *FileSystemOperations {
	return &FileSystemOperations{
		io:        io,
		location:  location,
		keepCount: DEFAULT_METADATA_KEEP,
	}
}

// SetMetadataKeepCount bounds how many old metadata files survive a commit
func (ops *FileSystemOperations) SetMetadataKeepCount(keep int) {
	ops.mu.Lock()
	defer ops.mu.Unlock()
	if keep > 0 {
		ops.keepCount = keep
	}
}

func (ops *FileSystemOperations) metadataPath(name string) string {
	return strings.TrimRight(ops.location, "/") + "/" + METADATA_DIR + "/" + name
}

func versionFileName(version int) string {
	return fmt.Sprintf("v%d.metadata.json", version)
}

// Current returns the metadata as of the last refresh or commit
func (ops *FileSystemOperations) Current() *metadata.TableMetadata {
	ops.mu.Lock()
	defer ops.mu.Unlock()
	return ops.current
}

// Refresh reads the version hint and reloads the metadata file it names
func (ops *FileSystemOperations) Refresh() (*metadata.TableMetadata, error) {
	ops.mu.Lock()
	defer ops.mu.Unlock()
	version, err := ops.readVersionHint()
	if err != nil {
		return nil, err
	}
	meta, err := ops.readMetadataFile(version)
	if err != nil {
		return nil, err
	}
	ops.current = meta
	ops.version = version
	return meta, nil
}

func (ops *FileSystemOperations) readVersionHint() (int, error) {
	hint, err := ops.io.NewInputFile(ops.metadataPath(VERSION_HINT_FILE))
	if err != nil {
		return 0, err
	}
	exists, err := hint.Exists()
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, jerrors.Annotatef(basic.ErrTableNotFound, "no version hint under %s", ops.location)
	}
	raw, err := hint.ReadAll()
	if err != nil {
		return 0, jerrors.Annotatef(err, "read version hint of %s", ops.location)
	}
	version, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, jerrors.Annotatef(metadata.ErrInvalidMetadata, "bad version hint %q for %s", strings.TrimSpace(string(raw)), ops.location)
	}
	return version, nil
}

func (ops *FileSystemOperations) readMetadataFile(version int) (*metadata.TableMetadata, error) {
	in, err := ops.io.NewInputFile(ops.metadataPath(versionFileName(version)))
	if err != nil {
		return nil, err
	}
	raw, err := in.ReadAll()
	if err != nil {
		return nil, jerrors.Annotatef(err, "read metadata v%d of %s", version, ops.location)
	}
	return metadata.ParseTableMetadata(raw)
}

// Commit publishes updated metadata as the next version file. The base must
// still be the current metadata, losing the version-file race or handing in a
// stale base fails with ErrCommitConflict.
// 基于过期元数据的提交返回 ErrCommitConflict
func (ops *FileSystemOperations) Commit(base, updated *metadata.TableMetadata) error {
	if updated == nil {
		return jerrors.Errorf("commit on %s: updated metadata is nil", ops.location)
	}
	if err := updated.Validate(); err != nil {
		return err
	}
	ops.mu.Lock()
	defer ops.mu.Unlock()
	if ops.current != nil {
		if base == nil || !base.Equal(ops.current) {
			return jerrors.Annotatef(basic.ErrCommitConflict, "stale base metadata for %s", ops.location)
		}
	} else if base != nil {
		return jerrors.Annotatef(basic.ErrCommitConflict, "base metadata given but table %s has none", ops.location)
	}

	next := ops.version + 1
	data, err := updated.ToJSON()
	if err != nil {
		return err
	}
	out, err := ops.io.NewOutputFile(ops.metadataPath(versionFileName(next)))
	if err != nil {
		return err
	}
	if err := out.WriteExclusive(data); err != nil {
		return err
	}
	hint, err := ops.io.NewOutputFile(ops.metadataPath(VERSION_HINT_FILE))
	if err != nil {
		return err
	}
	if err := hint.Write([]byte(strconv.Itoa(next))); err != nil {
		return err
	}
	ops.current = updated
	ops.version = next
	ops.pruneOldVersions(next)
	return nil
}

// pruneOldVersions drops version files beyond the keep window, best effort.
// Walks down from the oldest kept version until a file is already gone.
func (ops *FileSystemOperations) pruneOldVersions(latest int) {
	for version := latest - ops.keepCount; version > 0; version-- {
		path := ops.metadataPath(versionFileName(version))
		if err := ops.io.DeleteFile(path); err != nil {
			logger.Debugf("prune metadata %s stopped: %v", path, err)
			break
		}
	}
}

// IO returns the resource the operations read and write with
func (ops *FileSystemOperations) IO() basic.FileIO {
	return ops.io
}

// MetadataLocation returns the path of the current metadata version file
func (ops *FileSystemOperations) MetadataLocation() string {
	ops.mu.Lock()
	defer ops.mu.Unlock()
	if ops.version == 0 {
		return ""
	}
	return ops.metadataPath(versionFileName(ops.version))
}

// Location returns the table root location
func (ops *FileSystemOperations) Location() string {
	return ops.location
}
