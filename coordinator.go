package lucindex

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/grob/lucindex/engine"
)

// coordinator runs mutation jobs one at a time against a lazily opened
// writer. The worker goroutine is started by the first job; the writer is
// committed after every job and closed once no job arrived for idle, which
// also stops the goroutine.
//
// Lock order: qmu before wmu.
type coordinator struct {
	dir      *engine.Directory
	analyzer engine.Analyzer
	location string
	logger   *slog.Logger
	idle     time.Duration
	// onOpened and onClosed are called with wmu held after the writer was
	// opened or closed.
	onOpened func()
	onClosed func()

	qmu     sync.Mutex
	queue   []*Job
	running bool
	stopped bool
	exited  chan struct{}
	wake    chan struct{}

	wmu    sync.Mutex
	writer *engine.Writer

	opens      atomic.Int64
	closes     atomic.Int64
	jobsDone   atomic.Int64
	jobsFailed atomic.Int64
}

func newCoordinator(dir *engine.Directory, analyzer engine.Analyzer, location string, idle time.Duration, logger *slog.Logger, onOpened, onClosed func()) *coordinator {
	return &coordinator{
		dir:      dir,
		analyzer: analyzer,
		location: location,
		logger:   logger,
		idle:     idle,
		onOpened: onOpened,
		onClosed: onClosed,
		wake:     make(chan struct{}, 1),
	}
}

func (c *coordinator) enqueue(job *Job) error {
	c.qmu.Lock()
	if c.stopped {
		c.qmu.Unlock()
		return ErrShutdown
	}
	c.queue = append(c.queue, job)
	if !c.running {
		c.running = true
		c.exited = make(chan struct{})
		go c.run(c.exited)
	}
	c.qmu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
	return nil
}

func (c *coordinator) pop() *Job {
	c.qmu.Lock()
	defer c.qmu.Unlock()
	if len(c.queue) == 0 {
		return nil
	}
	job := c.queue[0]
	c.queue[0] = nil
	c.queue = c.queue[1:]
	return job
}

func (c *coordinator) run(exited chan struct{}) {
	defer close(exited)
	timer := time.NewTimer(c.idle)
	defer timer.Stop()
	for {
		if job := c.pop(); job != nil {
			c.execute(job)
			timer.Reset(c.idle)
			continue
		}
		if c.isStopped() && c.idleClose() {
			return
		}
		select {
		case <-c.wake:
		case <-timer.C:
			if c.idleClose() {
				return
			}
		}
	}
}

func (c *coordinator) isStopped() bool {
	c.qmu.Lock()
	defer c.qmu.Unlock()
	return c.stopped
}

// idleClose marks the worker as gone and closes the writer, unless jobs
// arrived in the meantime. The queue is not locked during the close, so a
// job enqueued meanwhile starts a new worker that waits for wmu.
func (c *coordinator) idleClose() bool {
	c.qmu.Lock()
	if len(c.queue) > 0 {
		c.qmu.Unlock()
		return false
	}
	c.running = false
	c.qmu.Unlock()

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := c.closeWriterLocked("idle"); err != nil {
		c.logger.Error("closing idle writer failed", slog.String("index", c.location), slog.Any("err", err))
	}
	return true
}

func (c *coordinator) execute(job *Job) {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	var err error
	if job.Kind == JobClose {
		err = c.closeWriterLocked("close job")
	} else {
		err = c.applyLocked(job)
	}
	if err != nil {
		err = &MutationJobError{JobID: job.ID, Kind: job.Kind, Err: err}
		c.jobsFailed.Add(1)
		c.logger.Error("mutation job failed", slog.String("index", c.location), slog.Any("job", job), slog.Any("err", err))
	} else {
		c.jobsDone.Add(1)
	}
	job.finish(err)
}

// applyLocked runs job and commits. A failed job is rolled back so it
// does not affect later commits.
func (c *coordinator) applyLocked(job *Job) error {
	w, err := c.writerLocked()
	if err != nil {
		return err
	}
	err = job.safelyApply(w)
	if err == nil {
		err = w.Commit()
	}
	if err != nil {
		w.Rollback()
		return err
	}
	if c.logger.Enabled(context.Background(), slog.LevelDebug) {
		c.logger.Debug("job committed", slog.String("index", c.location), slog.Any("job", job))
	}
	return nil
}

func (c *coordinator) writerLocked() (*engine.Writer, error) {
	if c.writer != nil {
		return c.writer, nil
	}
	c.logger.Debug("initializing index writer", slog.String("index", c.location))
	w, err := engine.OpenWriter(c.dir, c.analyzer, engine.CreateOrAppend)
	if errors.Is(err, engine.ErrLocked) {
		return nil, &StorageLockedError{Location: c.location, Err: err}
	} else if err != nil {
		return nil, err
	}
	c.writer = w
	c.opens.Add(1)
	if c.onOpened != nil {
		c.onOpened()
	}
	return w, nil
}

func (c *coordinator) closeWriterLocked(reason string) error {
	if c.writer == nil {
		return nil
	}
	w := c.writer
	c.writer = nil
	c.logger.Debug("closing index writer", slog.String("index", c.location), slog.String("reason", reason))
	err := w.Close()
	c.closes.Add(1)
	if c.onClosed != nil {
		c.onClosed()
	}
	return err
}

// drain waits until the worker goroutine has run all queued jobs and closed
// the writer. A worker that already gave up its slot may still be closing
// the writer, so drain waits for the latest worker to exit even when
// running is false.
func (c *coordinator) drain(ctx context.Context) error {
	for {
		c.qmu.Lock()
		exited := c.exited
		c.qmu.Unlock()
		if exited == nil {
			return nil
		}
		select {
		case <-exited:
		case <-ctx.Done():
			return ctx.Err()
		}
		c.qmu.Lock()
		latest := c.exited == exited && !c.running
		c.qmu.Unlock()
		if latest {
			return nil
		}
	}
}

// stop rejects new jobs, lets the worker finish the queued ones without
// waiting for the idle timeout, and closes the writer.
func (c *coordinator) stop(ctx context.Context) error {
	c.qmu.Lock()
	c.stopped = true
	c.qmu.Unlock()
	select {
	case c.wake <- struct{}{}:
	default:
	}
	if err := c.drain(ctx); err != nil {
		return err
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.closeWriterLocked("shutdown")
}

func (c *coordinator) pending() int {
	c.qmu.Lock()
	defer c.qmu.Unlock()
	return len(c.queue)
}
