package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

type OpenMode int

const (
	// Create discards any existing index content on the first commit.
	Create OpenMode = iota
	// CreateOrAppend appends to an existing index or creates a new one.
	CreateOrAppend
	// Append requires an existing index.
	Append
)

func (m OpenMode) String() string {
	switch m {
	case Create:
		return "create"
	case CreateOrAppend:
		return "create_or_append"
	case Append:
		return "append"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

type writeOpKind int

const (
	opAdd writeOpKind = iota
	opDeleteTerm
	opDeleteQuery
	opDeleteAll
)

type writeOp struct {
	kind  writeOpKind
	doc   *Document
	term  Term
	query Query
}

// Writer buffers index mutations and applies them in order on Commit.
// Only one Writer may be open per Directory.
type Writer struct {
	dir      *Directory
	analyzer Analyzer
	logger   *slog.Logger

	mu     sync.Mutex
	ops    []writeOp
	closed bool
}

func OpenWriter(dir *Directory, analyzer Analyzer, mode OpenMode) (*Writer, error) {
	if dir.closed.Load() {
		return nil, ErrClosed
	}
	if !dir.writeLocked.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("%v: %w", dir, ErrLocked)
	}
	w := &Writer{
		dir:      dir,
		analyzer: analyzer,
		logger:   dir.logger,
	}
	switch mode {
	case Create:
		w.ops = append(w.ops, writeOp{kind: opDeleteAll})
	case Append:
		exists, err := dir.Exists()
		if err == nil && !exists {
			err = fmt.Errorf("%v: no index: %w", dir, ErrNotFound)
		}
		if err != nil {
			dir.writeLocked.Store(false)
			return nil, err
		}
	}
	w.logger.Debug("writer opened", slog.String("dir", dir.String()), slog.String("mode", mode.String()))
	return w, nil
}

func (w *Writer) enqueue(op writeOp) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	w.ops = append(w.ops, op)
	return nil
}

func (w *Writer) AddDocument(doc *Document) error {
	for _, f := range doc.Fields {
		if err := f.validate(); err != nil {
			return err
		}
	}
	return w.enqueue(writeOp{kind: opAdd, doc: doc})
}

func (w *Writer) AddDocuments(docs ...*Document) error {
	for _, doc := range docs {
		if err := w.AddDocument(doc); err != nil {
			return err
		}
	}
	return nil
}

// UpdateDocument deletes all documents containing term, then adds doc.
func (w *Writer) UpdateDocument(term Term, doc *Document) error {
	if err := validateFieldName(term.Field); err != nil {
		return err
	}
	for _, f := range doc.Fields {
		if err := f.validate(); err != nil {
			return err
		}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	w.ops = append(w.ops, writeOp{kind: opDeleteTerm, term: term}, writeOp{kind: opAdd, doc: doc})
	return nil
}

func (w *Writer) DeleteDocuments(term Term) error {
	if err := validateFieldName(term.Field); err != nil {
		return err
	}
	return w.enqueue(writeOp{kind: opDeleteTerm, term: term})
}

func (w *Writer) DeleteByQuery(q Query) error {
	if q == nil {
		return errors.New("nil query")
	}
	return w.enqueue(writeOp{kind: opDeleteQuery, query: q})
}

func (w *Writer) DeleteAll() error {
	return w.enqueue(writeOp{kind: opDeleteAll})
}

// Rollback discards all mutations since the last commit.
func (w *Writer) Rollback() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ops = nil
}

// Commit applies all buffered mutations in one storage transaction and
// advances the index generation. On error nothing is applied and the
// buffered mutations are kept.
func (w *Writer) Commit() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	return w.commitLocked()
}

func (w *Writer) commitLocked() error {
	if w.dir.closed.Load() {
		return ErrClosed
	}
	tx, err := w.dir.store.BeginTx(true)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	c, err := newCommitter(tx, w)
	if err != nil {
		return err
	}
	for _, op := range w.ops {
		if err := c.apply(op); err != nil {
			return err
		}
	}
	if err := c.finish(); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	w.logger.LogAttrs(context.Background(), slog.LevelDebug, "committed",
		slog.String("dir", w.dir.String()),
		slog.Int("ops", len(w.ops)),
		slog.Uint64("gen", c.meta.Gen),
		slog.Uint64("docs", c.meta.Live.GetCardinality()))
	w.ops = nil
	return nil
}

// Close commits pending mutations and releases the directory's write lock.
// Without pending mutations the generation stays the same, except that an
// empty directory still gets its first commit. The lock is released even if
// the final commit fails.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	defer w.dir.writeLocked.Store(false)
	if len(w.ops) > 0 || !w.dir.exists() {
		if err := w.commitLocked(); err != nil {
			return err
		}
	}
	w.logger.Debug("writer closed", slog.String("dir", w.dir.String()))
	return nil
}

type committer struct {
	w        *Writer
	tx       kvTx
	meta     *meta
	docs     kvBucket
	postings *postingsCache
}

func newCommitter(tx kvTx, w *Writer) (*committer, error) {
	m, err := loadMeta(tx)
	if err != nil {
		return nil, err
	}
	m.Version = LatestVersion
	c := &committer{w: w, tx: tx, meta: m}
	if err := c.openBuckets(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *committer) openBuckets() error {
	docs, err := c.tx.CreateBucket(bucketDocs)
	if err != nil {
		return err
	}
	postings, err := c.tx.CreateBucket(bucketPostings)
	if err != nil {
		return err
	}
	c.docs = docs
	if c.postings == nil {
		c.postings = newPostingsCache(postings)
	} else {
		c.postings.reset(postings)
	}
	return nil
}

func (c *committer) apply(op writeOp) error {
	switch op.kind {
	case opAdd:
		return c.add(op.doc)
	case opDeleteTerm:
		docs, err := c.postings.get(postingKey(op.term.Field, op.term.Bytes))
		if err != nil {
			return err
		}
		return c.deleteDocs(docs.ToArray())
	case opDeleteQuery:
		if err := c.postings.flush(); err != nil {
			return err
		}
		h, err := newSearcher(c.tx, c.meta.Live, c.w.logger).matches(op.query)
		if err != nil {
			return err
		}
		return c.deleteDocs(h.docs.ToArray())
	case opDeleteAll:
		return c.deleteAll()
	default:
		panic(fmt.Errorf("unknown write op %d", op.kind))
	}
}

func (c *committer) add(doc *Document) error {
	id := c.meta.NextDoc
	if id == ^uint32(0) {
		return errors.New("document ids exhausted")
	}
	c.meta.NextDoc++

	seen := make(map[string]bool)
	var keys [][]byte
	for _, f := range doc.Fields {
		for _, term := range f.terms(c.w.analyzer) {
			key := postingKey(f.Name, term)
			if seen[string(key)] {
				continue
			}
			seen[string(key)] = true
			keys = append(keys, key)
			if err := c.postings.add(key, id); err != nil {
				return err
			}
		}
	}

	value, err := encodeDocValue(doc, keys, c.w.dir.compression)
	if err != nil {
		return err
	}
	if err := c.docs.Put(docKey(id), value); err != nil {
		return err
	}
	c.meta.Live.Add(id)
	return nil
}

func (c *committer) deleteDocs(ids []uint32) error {
	for _, id := range ids {
		raw := c.docs.Get(docKey(id))
		if raw == nil {
			continue
		}
		dv, err := decodeDocValue(raw)
		if err != nil {
			return fmt.Errorf("doc %d: %w", id, err)
		}
		for _, key := range dv.Keys {
			if err := c.postings.remove(key, id); err != nil {
				return err
			}
		}
		if err := c.docs.Delete(docKey(id)); err != nil {
			return err
		}
		c.meta.Live.Remove(id)
	}
	return nil
}

func (c *committer) deleteAll() error {
	for _, name := range []string{bucketDocs, bucketPostings} {
		if err := c.tx.DeleteBucket(name); err != nil && !errors.Is(err, errBucketNotFound) {
			return err
		}
	}
	c.meta.Live.Clear()
	return c.openBuckets()
}

func (c *committer) finish() error {
	if err := c.postings.flush(); err != nil {
		return err
	}
	mb, err := c.tx.CreateBucket(bucketMeta)
	if err != nil {
		return err
	}
	c.meta.Gen++
	return c.meta.save(mb)
}
