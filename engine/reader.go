package engine

import (
	"fmt"
	"log/slog"
	"sync"
)

// Reader is a point-in-time view of the last commit. It holds a storage read
// transaction until closed; later commits are not visible through it.
//
// A Reader is safe for concurrent use; operations are serialized.
type Reader struct {
	dir    *Directory
	logger *slog.Logger

	mu     sync.Mutex
	tx     kvTx
	meta   *meta
	closed bool
}

func OpenReader(dir *Directory) (*Reader, error) {
	tx, err := dir.beginRead()
	if err != nil {
		return nil, err
	}
	m, err := loadMeta(tx)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	return &Reader{
		dir:    dir,
		logger: dir.logger,
		tx:     tx,
		meta:   m,
	}, nil
}

func currentGeneration(dir *Directory) (uint64, error) {
	tx, err := dir.beginRead()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	m, err := loadMeta(tx)
	if err != nil {
		return 0, err
	}
	return m.Gen, nil
}

// OpenIfChanged returns a new Reader if the index changed since r was
// opened, or nil otherwise. r stays open either way.
func (r *Reader) OpenIfChanged() (*Reader, error) {
	gen, err := currentGeneration(r.dir)
	if err != nil {
		return nil, err
	}
	if gen == r.Generation() {
		return nil, nil
	}
	return OpenReader(r.dir)
}

// IsCurrent reports whether r still sees the latest commit.
func (r *Reader) IsCurrent() (bool, error) {
	gen, err := currentGeneration(r.dir)
	if err != nil {
		return false, err
	}
	return gen == r.Generation(), nil
}

func (r *Reader) Generation() uint64 {
	return r.meta.Gen
}

// NumDocs returns the number of live documents.
func (r *Reader) NumDocs() int {
	return int(r.meta.Live.GetCardinality())
}

func (r *Reader) Document(id uint32) (StoredDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	if !r.meta.Live.Contains(id) {
		return nil, fmt.Errorf("doc %d: %w", id, ErrNotFound)
	}
	b := r.tx.Bucket(bucketDocs)
	if b == nil {
		return nil, fmt.Errorf("doc %d: %w", id, ErrNotFound)
	}
	raw := b.Get(docKey(id))
	if raw == nil {
		return nil, fmt.Errorf("doc %d: %w", id, ErrNotFound)
	}
	dv, err := decodeDocValue(raw)
	if err != nil {
		return nil, fmt.Errorf("doc %d: %w", id, err)
	}
	return dv.storedFields()
}

// Search returns the top limit hits of q; limit <= 0 returns all hits.
func (r *Reader) Search(q Query, limit int) (*TopDocs, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	return newSearcher(r.tx, r.meta.Live, r.logger).search(q, limit)
}

func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.tx.Rollback()
}
