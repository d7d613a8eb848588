package lucindex

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrReleased is returned when a read view is released a second time.
	ErrReleased = errors.New("read view already released")

	// ErrShutdown is returned by handles after Shutdown.
	ErrShutdown = errors.New("index is shut down")

	// ErrViewsAcquired is returned by Shutdown when its context ends before
	// all read views were released.
	ErrViewsAcquired = errors.New("read views still acquired")
)

// StorageOpenError is returned when the index location cannot be opened or
// the requested version is not supported.
type StorageOpenError struct {
	Location string
	Err      error
}

func (e *StorageOpenError) Unwrap() error {
	return e.Err
}

func (e *StorageOpenError) Error() string {
	return fmt.Sprintf("cannot open index at %s: %v", e.Location, e.Err)
}

// StorageLockedError is returned when another writer holds the index.
// It wraps engine.ErrLocked.
type StorageLockedError struct {
	Location string
	Err      error
}

func (e *StorageLockedError) Unwrap() error {
	return e.Err
}

func (e *StorageLockedError) Error() string {
	return fmt.Sprintf("index at %s is locked: %v", e.Location, e.Err)
}

// FieldEncodingError is returned when a record value does not fit its field.
type FieldEncodingError struct {
	Field string
	Kind  Kind
	Value any
	Err   error
}

func (e *FieldEncodingError) Unwrap() error {
	return e.Err
}

func (e *FieldEncodingError) Error() string {
	return fieldErrorString(e.Field, e.Kind, e.Value, e.Err)
}

// QueryTypeError is returned when a query value does not fit its field.
type QueryTypeError struct {
	Field string
	Kind  Kind
	Value any
	Err   error
}

func (e *QueryTypeError) Unwrap() error {
	return e.Err
}

func (e *QueryTypeError) Error() string {
	return "query: " + fieldErrorString(e.Field, e.Kind, e.Value, e.Err)
}

func fieldErrorString(field string, kind Kind, value any, err error) string {
	var buf strings.Builder
	buf.WriteString(field)
	buf.WriteString(" (")
	buf.WriteString(kind.String())
	buf.WriteString("): ")
	fmt.Fprintf(&buf, "invalid value %v (%T)", value, value)
	if err != nil {
		buf.WriteString(": ")
		buf.WriteString(err.Error())
	}
	return buf.String()
}

// ArgumentError reports malformed use of the query helpers.
type ArgumentError struct {
	Msg string
}

func argErrf(format string, args ...any) error {
	return &ArgumentError{fmt.Sprintf(format, args...)}
}

func (e *ArgumentError) Error() string {
	return e.Msg
}

// MutationJobError wraps the engine error a mutation job failed with.
type MutationJobError struct {
	JobID uuid.UUID
	Kind  JobKind
	Err   error
}

func (e *MutationJobError) Unwrap() error {
	return e.Err
}

func (e *MutationJobError) Error() string {
	return fmt.Sprintf("%s job %s: %v", e.Kind, e.JobID, e.Err)
}
