package lucindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/grob/lucindex/engine"
)

// Handle owns one index: its directory, analyzer and field definitions, the
// cached read view, and the coordinator that serializes mutations.
//
// Mutations are asynchronous: Add, Update, Remove, RemoveByQuery, RemoveAll
// and Close validate their input, queue a job and return. Jobs run in
// submission order. The cached read view catches up with committed jobs once
// the writer has been closed, which happens after IdleTimeout without new
// jobs, on a Close job or with the Sync variants. While the writer is open
// nothing is cached: every acquisition opens a view of the last commit, so
// that no long-lived snapshot holds back the writer's commits.
//
// Lock order: the coordinator's wmu before viewMu.
type Handle struct {
	location string
	dir      *engine.Directory
	analyzer engine.Analyzer
	version  engine.Version
	fields   *Fields
	logger   *slog.Logger
	limit    int
	coord    *coordinator

	viewMu  sync.Mutex
	view    *snapshot
	writing bool
	stale   atomic.Bool
	// views counts acquired, unreleased read views.
	views sync.WaitGroup

	shutdown atomic.Bool
}

// Open opens or creates the index stored in the directory path.
func Open(path string, opt Options) (*Handle, error) {
	o := opt.withDefaults()
	version, err := engine.ResolveVersion(o.Version)
	if err != nil {
		return nil, &StorageOpenError{Location: path, Err: err}
	}
	dir, err := engine.OpenDirectory(path, o.directoryOptions())
	if errors.Is(err, engine.ErrLocked) {
		return nil, &StorageLockedError{Location: path, Err: err}
	} else if err != nil {
		return nil, &StorageOpenError{Location: path, Err: err}
	}
	return initHandle(path, dir, version, o, o.ForceCreate)
}

// OpenMemory creates an empty transient index.
func OpenMemory(opt Options) (*Handle, error) {
	o := opt.withDefaults()
	version, err := engine.ResolveVersion(o.Version)
	if err != nil {
		return nil, &StorageOpenError{Location: "memory", Err: err}
	}
	return initHandle("memory", engine.NewMemDirectory(o.directoryOptions()), version, o, true)
}

// initHandle creates the index if needed (or empties it) with one
// open-commit-close writer cycle.
func initHandle(location string, dir *engine.Directory, version engine.Version, o Options, create bool) (*Handle, error) {
	fields, err := NewFields(o.Fields...)
	if err != nil {
		dir.Close()
		return nil, err
	}

	mode := engine.CreateOrAppend
	if create {
		mode = engine.Create
	}
	w, err := engine.OpenWriter(dir, o.Analyzer, mode)
	if err == nil {
		err = w.Close()
	}
	if err != nil {
		dir.Close()
		if errors.Is(err, engine.ErrLocked) {
			return nil, &StorageLockedError{Location: location, Err: err}
		}
		return nil, &StorageOpenError{Location: location, Err: err}
	}

	h := &Handle{
		location: location,
		dir:      dir,
		analyzer: o.Analyzer,
		version:  version,
		fields:   fields,
		logger:   o.Logger.With(slog.String("index", location)),
		limit:    o.DefaultLimit,
	}
	h.coord = newCoordinator(dir, o.Analyzer, location, o.IdleTimeout, o.Logger, h.writerOpened, h.writerClosed)
	h.logger.Debug("index opened", slog.String("version", version.String()), slog.String("mode", mode.String()))
	return h, nil
}

func (h *Handle) Location() string          { return h.location }
func (h *Handle) Analyzer() engine.Analyzer { return h.analyzer }
func (h *Handle) Version() engine.Version   { return h.version }
func (h *Handle) Fields() *Fields           { return h.fields }
func (h *Handle) String() string            { return "index(" + h.location + ")" }

// QueryBuilder returns a new builder over the handle's fields.
func (h *Handle) QueryBuilder() *QueryBuilder {
	return NewQueryBuilder(h.fields, h.analyzer)
}

// writerOpened drops the cached view. A Bolt commit that grows the file
// waits for every open read transaction, and the cached one would otherwise
// only go away after the writer closes.
func (h *Handle) writerOpened() {
	h.viewMu.Lock()
	defer h.viewMu.Unlock()
	h.writing = true
	if h.view != nil {
		if err := h.view.release(); err != nil {
			h.logger.Warn("closing cached read view failed", slog.Any("err", err))
		}
		h.view = nil
	}
}

// writerClosed marks the cached view as outdated; the next acquisition
// refreshes it.
func (h *Handle) writerClosed() {
	h.viewMu.Lock()
	defer h.viewMu.Unlock()
	h.writing = false
	h.stale.Store(true)
}

// AcquireReadView returns the cached read view, opening or refreshing it
// first if needed. While the writer is open it returns a new uncached view
// instead. Every view must be released exactly once.
func (h *Handle) AcquireReadView() (*ReadView, error) {
	h.viewMu.Lock()
	defer h.viewMu.Unlock()
	if h.shutdown.Load() {
		return nil, ErrShutdown
	}

	snap := h.view
	switch {
	case snap == nil:
		r, err := engine.OpenReader(h.dir)
		if err != nil {
			return nil, err
		}
		snap = newSnapshot(r)
		if h.writing {
			break
		}
		h.view = snap
		h.stale.Store(false)
		snap.retain()
	case h.stale.Swap(false):
		if err := h.reopenLocked(); err != nil {
			h.stale.Store(true)
			return nil, err
		}
		snap = h.view
		snap.retain()
	default:
		snap.retain()
	}
	h.views.Add(1)
	return &ReadView{snap: snap, fields: h.fields, done: h.views.Done}, nil
}

func (h *Handle) reopenLocked() error {
	r, err := h.view.reader.OpenIfChanged()
	if err != nil {
		return err
	}
	if r == nil {
		return nil
	}
	h.logger.Debug("reopening read view", slog.Uint64("gen", r.Generation()))
	old := h.view
	h.view = newSnapshot(r)
	return old.release()
}

// ReleaseReadView is the same as view.Release.
func (h *Handle) ReleaseReadView(view *ReadView) error {
	return view.Release()
}

// Refresh makes the cached read view catch up with the last commit.
func (h *Handle) Refresh() error {
	h.viewMu.Lock()
	defer h.viewMu.Unlock()
	if h.shutdown.Load() {
		return ErrShutdown
	}
	if h.view == nil {
		return nil
	}
	h.stale.Store(false)
	return h.reopenLocked()
}

// Size returns the number of records visible to a fresh read view.
func (h *Handle) Size() (int, error) {
	view, err := h.AcquireReadView()
	if err != nil {
		return 0, err
	}
	defer view.Release()
	return view.NumDocs(), nil
}

func (h *Handle) submit(job *Job) (*Job, error) {
	if h.shutdown.Load() {
		return nil, ErrShutdown
	}
	if err := h.coord.enqueue(job); err != nil {
		return nil, err
	}
	return job, nil
}

func (h *Handle) addJob(rec Record) (*Job, error) {
	doc, err := h.fields.Document(rec)
	if err != nil {
		return nil, err
	}
	job := newJob(JobAdd)
	job.doc = doc
	return job, nil
}

func (h *Handle) updateJob(keyField string, keyValue any, rec Record) (*Job, error) {
	term, err := h.fields.Field(keyField).Term(keyValue)
	if err != nil {
		return nil, err
	}
	doc, err := h.fields.Document(rec)
	if err != nil {
		return nil, err
	}
	job := newJob(JobUpdate)
	job.term, job.doc = term, doc
	return job, nil
}

func (h *Handle) removeJob(keyField string, keyValue any) (*Job, error) {
	term, err := h.fields.Field(keyField).Term(keyValue)
	if err != nil {
		return nil, err
	}
	job := newJob(JobRemove)
	job.term = term
	return job, nil
}

// Add queues the addition of rec. Adding the same record twice yields two
// records.
func (h *Handle) Add(rec Record) (*Job, error) {
	job, err := h.addJob(rec)
	if err != nil {
		return nil, err
	}
	return h.submit(job)
}

// Update queues the replacement of all records whose keyField equals
// keyValue by rec.
func (h *Handle) Update(keyField string, keyValue any, rec Record) (*Job, error) {
	job, err := h.updateJob(keyField, keyValue, rec)
	if err != nil {
		return nil, err
	}
	return h.submit(job)
}

// Remove queues the removal of all records whose keyField equals keyValue.
func (h *Handle) Remove(keyField string, keyValue any) (*Job, error) {
	job, err := h.removeJob(keyField, keyValue)
	if err != nil {
		return nil, err
	}
	return h.submit(job)
}

func (h *Handle) RemoveByQuery(q engine.Query) (*Job, error) {
	if q == nil {
		return nil, argErrf("nil query")
	}
	job := newJob(JobRemoveByQuery)
	job.query = q
	return h.submit(job)
}

func (h *Handle) RemoveAll() (*Job, error) {
	return h.submit(newJob(JobRemoveAll))
}

// Close queues closing the writer, which makes all earlier jobs visible to
// the next read view. The handle stays usable.
func (h *Handle) Close() (*Job, error) {
	return h.submit(newJob(JobClose))
}

// Flush queues a Close job and waits for it.
func (h *Handle) Flush(ctx context.Context) error {
	job, err := h.Close()
	if err != nil {
		return err
	}
	return job.Wait(ctx)
}

// Drain waits until all queued jobs ran and the idle writer was closed.
func (h *Handle) Drain(ctx context.Context) error {
	return h.coord.drain(ctx)
}

// Query runs q against a fresh read view and returns up to limit records;
// limit <= 0 means Options.DefaultLimit.
func (h *Handle) Query(q engine.Query, limit int) (*Result, error) {
	if q == nil {
		return nil, argErrf("nil query")
	}
	if limit <= 0 {
		limit = h.limit
	}
	start := time.Now()
	view, err := h.AcquireReadView()
	if err != nil {
		return nil, err
	}
	defer view.Release()

	h.logger.Debug("query", slog.String("q", q.String()), slog.Int("limit", limit))
	td, err := view.Search(q, limit)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q, err)
	}
	return newResult(view, td, time.Since(start))
}

// CreateQuery builds a query from a condition map, see CreateQuery.
func (h *Handle) CreateQuery(conditions map[string]any) (*engine.BooleanQuery, error) {
	return CreateQuery(h.fields, h.analyzer, conditions)
}

// ParseQuery parses text with the engine's query syntax.
func (h *Handle) ParseQuery(defaultField, text string) (engine.Query, error) {
	return engine.NewQueryParser(defaultField, h.analyzer).Parse(text)
}

type Stats struct {
	WriterOpens  int64
	WriterCloses int64
	JobsDone     int64
	JobsFailed   int64
	Pending      int
}

func (h *Handle) Stats() Stats {
	return Stats{
		WriterOpens:  h.coord.opens.Load(),
		WriterCloses: h.coord.closes.Load(),
		JobsDone:     h.coord.jobsDone.Load(),
		JobsFailed:   h.coord.jobsFailed.Load(),
		Pending:      h.coord.pending(),
	}
}

// IndexStats describes the contents of a fresh read view.
func (h *Handle) IndexStats() (engine.IndexStats, error) {
	view, err := h.AcquireReadView()
	if err != nil {
		return engine.IndexStats{}, err
	}
	defer view.Release()
	return view.Stats()
}

// Shutdown runs the queued jobs, closes the writer and the cached read view,
// and closes the directory once every acquired view has been released. If
// ctx ends while views are still acquired, Shutdown returns an error wrapping
// ErrViewsAcquired and the directory is closed after the last release.
func (h *Handle) Shutdown(ctx context.Context) error {
	if !h.shutdown.CompareAndSwap(false, true) {
		return nil
	}
	err := h.coord.stop(ctx)
	if ctx.Err() != nil {
		return err
	}

	// no acquisitions after this point
	h.viewMu.Lock()
	if h.view != nil {
		err = errors.Join(err, h.view.release())
		h.view = nil
	}
	h.viewMu.Unlock()

	released := make(chan struct{})
	go func() {
		h.views.Wait()
		close(released)
	}()
	select {
	case <-released:
	case <-ctx.Done():
		go func() {
			<-released
			if err := h.dir.Close(); err != nil {
				h.logger.Error("closing index failed", slog.Any("err", err))
			}
			h.logger.Debug("index shut down")
		}()
		return errors.Join(err, fmt.Errorf("%w: %w", ErrViewsAcquired, ctx.Err()))
	}

	err = errors.Join(err, h.dir.Close())
	h.logger.Debug("index shut down")
	return err
}
