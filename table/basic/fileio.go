package basic

// InputFile reads one file of a table location
type InputFile interface {
	// Location returns the full path of the file
	Location() string
	// Exists reports whether the file is present
	Exists() (bool, error)
	// ReadAll returns the complete file content
	ReadAll() ([]byte, error)
}

// OutputFile writes one file of a table location
type OutputFile interface {
	// Location returns the full path of the file
	Location() string
	// Write creates or overwrites the file with the given content
	Write(data []byte) error
	// WriteExclusive creates the file, failing if it already exists.
	// 用于元数据版本文件的写入保护
	WriteExclusive(data []byte) error
}

// FileIO is the external I/O resource owned by a table handle. Instances are
// stateful: Close releases the resource and every later use fails with
// ErrIOClosed. A FileIO must never travel with a serialized handle, each
// restored handle builds its own.
type FileIO interface {
	// NewInputFile opens a path of the table location for reading
	NewInputFile(path string) (InputFile, error)
	// NewOutputFile opens a path of the table location for writing
	NewOutputFile(path string) (OutputFile, error)
	// DeleteFile removes a file
	DeleteFile(path string) error
	// Close releases the resource, closing twice is an error
	Close() error
}

// FileIOFactory lazily constructs the FileIO of a handle
type FileIOFactory func() (FileIO, error)
