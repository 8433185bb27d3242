package basic

import (
	"errors"

	jerrors "github.com/juju/errors"
)

// 句柄与资源生命周期相关错误
var (
	ErrClosedHandle       = errors.New("handle resource already closed")
	ErrResourceOpenFailed = errors.New("handle resource open failed")
	ErrIOClosed           = errors.New("file io is closed")
	ErrDeserialization    = errors.New("handle deserialization failed")
	ErrCommitConflict     = errors.New("metadata version conflict")
	ErrTxFinished         = errors.New("transaction already finished")
	ErrTableNotFound      = errors.New("table not found")
	ErrTableExists        = errors.New("table already exists")
)

// IsClosedHandle reports whether the error is a closed-handle failure
func IsClosedHandle(err error) bool {
	return jerrors.Cause(err) == ErrClosedHandle
}

// IsResourceOpenFailed reports whether resource construction failed
func IsResourceOpenFailed(err error) bool {
	return jerrors.Cause(err) == ErrResourceOpenFailed
}

// IsIOClosed reports whether a closed FileIO was used
func IsIOClosed(err error) bool {
	return jerrors.Cause(err) == ErrIOClosed
}

// IsDeserialization reports whether handle bytes failed to decode
func IsDeserialization(err error) bool {
	return jerrors.Cause(err) == ErrDeserialization
}

// IsCommitConflict reports whether a commit lost a version race
func IsCommitConflict(err error) bool {
	return jerrors.Cause(err) == ErrCommitConflict
}

// IsTxFinished reports whether a finished transaction was reused
func IsTxFinished(err error) bool {
	return jerrors.Cause(err) == ErrTxFinished
}

// IsTableNotFound reports whether a location holds no table
func IsTableNotFound(err error) bool {
	return jerrors.Cause(err) == ErrTableNotFound
}

// IsTableExists reports whether a create hit an existing table
func IsTableExists(err error) bool {
	return jerrors.Cause(err) == ErrTableExists
}
