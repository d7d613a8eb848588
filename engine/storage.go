package engine

import "errors"

// errBucketNotFound is returned by kvTx.DeleteBucket when the bucket doesn't exist.
var errBucketNotFound = errors.New("bucket not found")

// kvStore represents the key-value storage a Directory lives on (Bolt or in-memory).
type kvStore interface {
	// BeginTx starts a new transaction. Read-only transactions see a stable
	// snapshot of the last committed state until rolled back.
	BeginTx(writable bool) (kvTx, error)
	// Close closes the storage.
	Close() error
}

// kvTx represents a storage transaction.
type kvTx interface {
	// Writable returns true if this is a writable transaction.
	Writable() bool

	// Bucket returns a root bucket, or nil if the bucket doesn't exist.
	Bucket(name string) kvBucket

	// CreateBucket creates a bucket if it doesn't exist.
	CreateBucket(name string) (kvBucket, error)

	// DeleteBucket deletes a bucket with all its keys.
	DeleteBucket(name string) error

	// Commit commits the transaction.
	Commit() error

	// Rollback aborts the transaction. It should be safe to call multiple times.
	Rollback() error
}

// kvBucket represents a bucket (sorted key-value collection).
//
// Slices returned by Get and by cursors are only valid until the transaction ends.
type kvBucket interface {
	// Get retrieves a value by key. Returns nil if not found.
	Get(key []byte) []byte

	// Put stores a key-value pair.
	Put(key, value []byte) error

	// Delete removes a key.
	Delete(key []byte) error

	// Cursor returns a cursor for iteration.
	Cursor() kvCursor

	// KeyCount returns the number of keys in the bucket (best effort).
	KeyCount() int
}

// kvCursor iterates over a sorted bucket.
type kvCursor interface {
	// First moves to the first key-value pair.
	First() (key, value []byte)

	// Last moves to the last key-value pair.
	Last() (key, value []byte)

	// Seek moves to the first key >= seek.
	Seek(seek []byte) (key, value []byte)

	// Next moves to the next key-value pair.
	Next() (key, value []byte)

	// Prev moves to the previous key-value pair.
	Prev() (key, value []byte)
}
