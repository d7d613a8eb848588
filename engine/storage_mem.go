package engine

import (
	"bytes"
	"errors"
	"sync"

	"github.com/google/btree"
)

var errReadOnlyTx = errors.New("read-only transaction")

// memStore keeps the whole index in memory. Published bucket contents are
// immutable: a write transaction clones a bucket's tree the first time it
// touches it and swaps the new bucket set in on commit. Clones share nodes
// until one side writes, so a write costs O(log n) however large the bucket
// is. Readers keep the set they started with.
type memStore struct {
	mu       sync.Mutex
	idle     *sync.Cond // signalled when the write slot frees up
	buckets  map[string]*memBucket
	writing  bool
	shutdown bool
}

func newMemStore() kvStore {
	s := &memStore{buckets: make(map[string]*memBucket)}
	s.idle = sync.NewCond(&s.mu)
	return s
}

func (s *memStore) BeginTx(writable bool) (kvTx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown {
		return nil, ErrClosed
	}
	tx := &memTx{store: s, buckets: s.buckets}
	if !writable {
		return tx, nil
	}
	for s.writing && !s.shutdown {
		s.idle.Wait()
	}
	if s.shutdown {
		return nil, ErrClosed
	}
	s.writing = true
	tx.writable = true
	tx.buckets = make(map[string]*memBucket, len(s.buckets))
	for name, b := range s.buckets {
		tx.buckets[name] = b
	}
	tx.owned = make(map[*memBucket]bool)
	return tx, nil
}

func (s *memStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdown = true
	s.buckets = nil
	s.idle.Broadcast()
	return nil
}

type memTx struct {
	store    *memStore
	writable bool
	done     bool
	buckets  map[string]*memBucket
	// owned holds the buckets this tx copied and may mutate.
	owned map[*memBucket]bool
}

func (tx *memTx) Writable() bool { return tx.writable }

func (tx *memTx) mustBeOpen() {
	if tx.done {
		panic("engine: use of finished memory transaction")
	}
}

// own returns a private clone of the named bucket, cloning it on first use.
func (tx *memTx) own(name string) *memBucket {
	b := tx.buckets[name]
	if b == nil || tx.owned[b] {
		return b
	}
	c := &memBucket{tree: b.tree.Clone()}
	tx.buckets[name] = c
	tx.owned[c] = true
	return c
}

func (tx *memTx) Bucket(name string) kvBucket {
	tx.mustBeOpen()
	b := tx.buckets[name]
	if tx.writable {
		b = tx.own(name)
	}
	if b == nil {
		return nil
	}
	return &memBucketView{tx: tx, b: b}
}

func (tx *memTx) CreateBucket(name string) (kvBucket, error) {
	tx.mustBeOpen()
	if !tx.writable {
		return nil, errReadOnlyTx
	}
	b := tx.own(name)
	if b == nil {
		b = newMemBucket()
		tx.buckets[name] = b
		tx.owned[b] = true
	}
	return &memBucketView{tx: tx, b: b}, nil
}

func (tx *memTx) DeleteBucket(name string) error {
	tx.mustBeOpen()
	if !tx.writable {
		return errReadOnlyTx
	}
	if _, ok := tx.buckets[name]; !ok {
		return errBucketNotFound
	}
	delete(tx.buckets, name)
	return nil
}

func (tx *memTx) Commit() error {
	if tx.done {
		return nil
	}
	if !tx.writable {
		return errReadOnlyTx
	}
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	defer tx.finishLocked()
	if s.shutdown {
		return ErrClosed
	}
	s.buckets = tx.buckets
	return nil
}

func (tx *memTx) Rollback() error {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	tx.finishLocked()
	return nil
}

func (tx *memTx) finishLocked() {
	if tx.done {
		return
	}
	tx.done = true
	tx.owned = nil
	if tx.writable {
		tx.store.writing = false
		tx.store.idle.Broadcast()
	}
}

// memBucket is an ordered tree of entries. Keys and values are copied on
// Put, so clones of a bucket can share them.
type memBucket struct {
	tree *btree.BTreeG[memEntry]
}

const memBucketDegree = 32

func newMemBucket() *memBucket {
	return &memBucket{tree: btree.NewG(memBucketDegree, lessEntry)}
}

type memEntry struct {
	k, v []byte
}

func lessEntry(a, b memEntry) bool {
	return bytes.Compare(a.k, b.k) < 0
}

type memBucketView struct {
	tx *memTx
	b  *memBucket
}

func (v *memBucketView) Get(key []byte) []byte {
	if e, found := v.b.tree.Get(memEntry{k: key}); found {
		return e.v
	}
	return nil
}

func (v *memBucketView) Put(key, value []byte) error {
	if !v.tx.writable {
		return errReadOnlyTx
	}
	e := memEntry{k: bytes.Clone(key), v: bytes.Clone(value)}
	if e.v == nil {
		e.v = []byte{}
	}
	v.b.tree.ReplaceOrInsert(e)
	return nil
}

func (v *memBucketView) Delete(key []byte) error {
	if !v.tx.writable {
		return errReadOnlyTx
	}
	v.b.tree.Delete(memEntry{k: key})
	return nil
}

// Cursor iterates over the entries the bucket had when the cursor was
// created. Published trees never change, so only a writer needs a clone.
func (v *memBucketView) Cursor() kvCursor {
	tree := v.b.tree
	if v.tx.writable {
		tree = tree.Clone()
	}
	return &memCursor{tree: tree, state: cursorBefore}
}

func (v *memBucketView) KeyCount() int {
	return v.b.tree.Len()
}

type cursorState int

const (
	cursorBefore cursorState = iota
	cursorAt
	cursorAfter
)

// memCursor remembers the key it is positioned at and looks up its
// neighbours in the tree on every move.
type memCursor struct {
	tree  *btree.BTreeG[memEntry]
	cur   memEntry
	state cursorState
}

func (c *memCursor) moveTo(e memEntry, ok bool, miss cursorState) ([]byte, []byte) {
	if !ok {
		c.cur, c.state = memEntry{}, miss
		return nil, nil
	}
	c.cur, c.state = e, cursorAt
	return e.k, e.v
}

func (c *memCursor) First() ([]byte, []byte) {
	e, ok := c.tree.Min()
	return c.moveTo(e, ok, cursorAfter)
}

func (c *memCursor) Last() ([]byte, []byte) {
	e, ok := c.tree.Max()
	return c.moveTo(e, ok, cursorBefore)
}

func (c *memCursor) Seek(seek []byte) ([]byte, []byte) {
	var found memEntry
	var ok bool
	c.tree.AscendGreaterOrEqual(memEntry{k: seek}, func(e memEntry) bool {
		found, ok = e, true
		return false
	})
	return c.moveTo(found, ok, cursorAfter)
}

func (c *memCursor) Next() ([]byte, []byte) {
	switch c.state {
	case cursorBefore:
		return c.First()
	case cursorAfter:
		return nil, nil
	}
	var found memEntry
	var ok bool
	c.tree.AscendGreaterOrEqual(c.cur, func(e memEntry) bool {
		if bytes.Equal(e.k, c.cur.k) {
			return true
		}
		found, ok = e, true
		return false
	})
	return c.moveTo(found, ok, cursorAfter)
}

func (c *memCursor) Prev() ([]byte, []byte) {
	switch c.state {
	case cursorAfter:
		return c.Last()
	case cursorBefore:
		return nil, nil
	}
	var found memEntry
	var ok bool
	c.tree.DescendLessOrEqual(c.cur, func(e memEntry) bool {
		if bytes.Equal(e.k, c.cur.k) {
			return true
		}
		found, ok = e, true
		return false
	})
	return c.moveTo(found, ok, cursorBefore)
}
