package lucindex

import (
	"sync/atomic"

	"github.com/grob/lucindex/engine"
)

// snapshot is a reference-counted engine reader. The handle's cache holds
// one reference while the snapshot is cached; every ReadView holds another.
type snapshot struct {
	reader *engine.Reader
	refs   atomic.Int32
}

func newSnapshot(r *engine.Reader) *snapshot {
	s := &snapshot{reader: r}
	s.refs.Store(1)
	return s
}

func (s *snapshot) retain() {
	s.refs.Add(1)
}

func (s *snapshot) release() error {
	if s.refs.Add(-1) == 0 {
		return s.reader.Close()
	}
	return nil
}

// ReadView is an acquired point-in-time view of the index. It stays valid
// until released, even when the handle has moved on to a newer view.
type ReadView struct {
	snap     *snapshot
	fields   *Fields
	done     func()
	released atomic.Bool
}

// NumDocs returns the number of live records.
func (v *ReadView) NumDocs() int {
	return v.snap.reader.NumDocs()
}

func (v *ReadView) Generation() uint64 {
	return v.snap.reader.Generation()
}

// Search runs q; limit <= 0 returns all hits.
func (v *ReadView) Search(q engine.Query, limit int) (*engine.TopDocs, error) {
	if v.released.Load() {
		return nil, ErrReleased
	}
	return v.snap.reader.Search(q, limit)
}

func (v *ReadView) Document(doc uint32) (engine.StoredDocument, error) {
	if v.released.Load() {
		return nil, ErrReleased
	}
	return v.snap.reader.Document(doc)
}

// Record returns the stored fields of doc decoded through the field
// definitions.
func (v *ReadView) Record(doc uint32) (Record, error) {
	sd, err := v.Document(doc)
	if err != nil {
		return nil, err
	}
	return v.fields.Record(sd), nil
}

func (v *ReadView) Stats() (engine.IndexStats, error) {
	if v.released.Load() {
		return engine.IndexStats{}, ErrReleased
	}
	return v.snap.reader.Stats()
}

// Release gives the view back. Releasing twice returns ErrReleased.
func (v *ReadView) Release() error {
	if !v.released.CompareAndSwap(false, true) {
		return ErrReleased
	}
	if v.done != nil {
		defer v.done()
	}
	return v.snap.release()
}
