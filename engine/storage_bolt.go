package engine

import (
	"errors"
	"unsafe"

	"go.etcd.io/bbolt"
)

// boltStore is the on-disk kvStore. Bolt provides the snapshot isolation
// and the single-writer rule the kvStore contract asks for.
type boltStore struct {
	bdb *bbolt.DB
}

func newBoltStore(bdb *bbolt.DB) kvStore {
	return &boltStore{bdb: bdb}
}

func (s *boltStore) BeginTx(writable bool) (kvTx, error) {
	btx, err := s.bdb.Begin(writable)
	if err != nil {
		return nil, err
	}
	return &boltTx{btx: btx}, nil
}

func (s *boltStore) Close() error {
	return s.bdb.Close()
}

type boltTx struct {
	btx *bbolt.Tx
}

func (tx *boltTx) Writable() bool { return tx.btx.Writable() }

func (tx *boltTx) Bucket(name string) kvBucket {
	b := tx.btx.Bucket(unsafeBytesFromString(name))
	if b == nil {
		return nil
	}
	return boltBucket{b}
}

func (tx *boltTx) CreateBucket(name string) (kvBucket, error) {
	b, err := tx.btx.CreateBucketIfNotExists([]byte(name))
	if err != nil {
		return nil, err
	}
	return boltBucket{b}, nil
}

func (tx *boltTx) DeleteBucket(name string) error {
	err := tx.btx.DeleteBucket(unsafeBytesFromString(name))
	if errors.Is(err, bbolt.ErrBucketNotFound) {
		return errBucketNotFound
	}
	return err
}

func (tx *boltTx) Commit() error { return tx.btx.Commit() }

func (tx *boltTx) Rollback() error {
	err := tx.btx.Rollback()
	if errors.Is(err, bbolt.ErrTxClosed) {
		return nil
	}
	return err
}

// boltBucket gets Get, Put and Delete from the embedded bucket.
type boltBucket struct {
	*bbolt.Bucket
}

func (b boltBucket) Cursor() kvCursor {
	return boltCursor{b.Bucket.Cursor()}
}

// KeyCount walks the bucket's pages; bolt does not keep a counter.
func (b boltBucket) KeyCount() int {
	return b.Stats().KeyN
}

// boltCursor satisfies kvCursor with the embedded cursor's methods.
type boltCursor struct {
	*bbolt.Cursor
}

func unsafeBytesFromString(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
