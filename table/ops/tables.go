package ops

import (
	"strconv"
	"strings"

	jerrors "github.com/juju/errors"
	"github.com/zhukovaskychina/xiceberg/logger"
	"github.com/zhukovaskychina/xiceberg/server/conf"
	"github.com/zhukovaskychina/xiceberg/table/basic"
	"github.com/zhukovaskychina/xiceberg/table/fileio"
	"github.com/zhukovaskychina/xiceberg/table/handle"
	"github.com/zhukovaskychina/xiceberg/table/metadata"
)

// FileSystemTables creates and loads tables at filesystem locations, the
// warehouse default properties sit under every table's explicit ones.
// 在文件系统位置上创建和加载表
type FileSystemTables struct {
	defaults  map[string]string
	keepCount int
}

// NewFileSystemTables creates a catalog with no warehouse defaults
func NewFileSystemTables() *FileSystemTables {
	return &FileSystemTables{
		defaults:  make(map[string]string),
		keepCount: DEFAULT_METADATA_KEEP,
	}
}

// NewFileSystemTablesWithConf seeds warehouse defaults from the server config
func NewFileSystemTablesWithConf(cfg *conf.Cfg) *FileSystemTables {
	tables := NewFileSystemTables()
	for k, v := range cfg.TablePropDefaults {
		tables.defaults[k] = v
	}
	if cfg.CommitRetriesLimit > 0 {
		if _, ok := tables.defaults[handle.PROPERTY_COMMIT_RETRIES]; !ok {
			tables.defaults[handle.PROPERTY_COMMIT_RETRIES] = strconv.Itoa(cfg.CommitRetriesLimit)
		}
	}
	if cfg.MetadataKeepCount > 0 {
		tables.keepCount = cfg.MetadataKeepCount
	}
	return tables
}

// TableName is the trailing path segment of a location
func TableName(location string) string {
	trimmed := strings.TrimRight(location, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}

func (t *FileSystemTables) newOperations(location string, props map[string]string) (*FileSystemOperations, error) {
	io, err := fileio.Resolve(location, props)
	if err != nil {
		return nil, err
	}
	ops := NewFileSystemOperations(io, location)
	ops.SetMetadataKeepCount(t.keepCount)
	return ops, nil
}

// Create writes the first metadata version of a new table and returns it.
// Explicit properties win over the warehouse defaults.
func (t *FileSystemTables) Create(schema *metadata.Schema, spec *metadata.PartitionSpec,
	order *metadata.SortOrder, props map[string]string, location string) (*handle.BaseTable, error) {
	merged := make(map[string]string, len(t.defaults)+len(props))
	for k, v := range t.defaults {
		merged[k] = v
	}
	for k, v := range props {
		merged[k] = v
	}
	ops, err := t.newOperations(location, merged)
	if err != nil {
		return nil, err
	}
	if _, err := ops.Refresh(); err == nil {
		return nil, jerrors.Annotatef(basic.ErrTableExists, "location %s", location)
	} else if !basic.IsTableNotFound(err) {
		return nil, err
	}
	meta, err := metadata.NewTableMetadata(schema, spec, order, location, merged)
	if err != nil {
		return nil, err
	}
	if err := ops.Commit(nil, meta); err != nil {
		return nil, err
	}
	logger.Infof("created table %s at %s", TableName(location), location)
	return handle.NewBaseTable(ops, TableName(location)), nil
}

// Load opens an existing table
func (t *FileSystemTables) Load(location string) (*handle.BaseTable, error) {
	ops, err := t.newOperations(location, nil)
	if err != nil {
		return nil, err
	}
	if _, err := ops.Refresh(); err != nil {
		return nil, err
	}
	return handle.NewBaseTable(ops, TableName(location)), nil
}

// Exists reports whether a table lives at the location
func (t *FileSystemTables) Exists(location string) (bool, error) {
	io, err := fileio.Resolve(location, nil)
	if err != nil {
		return false, err
	}
	defer io.Close()
	ops := NewFileSystemOperations(io, location)
	if _, err := ops.Refresh(); err != nil {
		if basic.IsTableNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
