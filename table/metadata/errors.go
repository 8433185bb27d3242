package metadata

import "errors"

// 元数据相关错误
var (
	ErrInvalidSchema    = errors.New("invalid table schema")
	ErrInvalidSpec      = errors.New("invalid partition spec")
	ErrInvalidSortOrder = errors.New("invalid sort order")
	ErrInvalidMetadata  = errors.New("invalid table metadata")
	ErrReservedProperty = errors.New("reserved table property")
	ErrSchemaNotFound   = errors.New("schema not found")
	ErrSnapshotNotFound = errors.New("snapshot not found")
)
