package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrLocked is returned when a second writer is opened against a directory,
	// or when another process holds the directory's file lock.
	ErrLocked = errors.New("directory is locked by another writer")

	// ErrUnsupportedVersion is returned for unknown index format versions.
	ErrUnsupportedVersion = errors.New("unsupported index format version")

	// ErrClosed is returned when using a closed directory, writer or reader.
	ErrClosed = errors.New("closed")

	// ErrNotFound is returned for missing documents and for Append-mode
	// writers opened against an index that has never been committed.
	ErrNotFound = errors.New("not found")
)

type DataError struct {
	Data []byte
	Off  int
	Err  error
	Msg  string
}

func dataErrf(data []byte, off int, err error, format string, args ...any) error {
	return &DataError{data, off, err, fmt.Sprintf(format, args...)}
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func (e *DataError) Error() string {
	const prefixLen = 64
	const suffixLen = 32
	n := len(e.Data)
	var data string
	if n <= prefixLen+suffixLen {
		data = fmt.Sprintf("(%d) %x", n, e.Data)
	} else {
		data = fmt.Sprintf("(%d) %x...%x", n, e.Data[:prefixLen], e.Data[n-suffixLen:])
	}
	if e.Err != nil {
		return fmt.Sprintf("%s at %d: %v: %s", e.Msg, e.Off, e.Err, data)
	}
	return fmt.Sprintf("%s at %d: %s", e.Msg, e.Off, data)
}

// ParseError is returned by QueryParser for malformed query text.
type ParseError struct {
	Query string
	Pos   int
	Msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %q at %d: %s", e.Query, e.Pos, e.Msg)
}
