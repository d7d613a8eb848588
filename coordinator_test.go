package lucindex

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/grob/lucindex/engine"
)

func TestCoordinator_enqueueDuringIdleClose(t *testing.T) {
	dir := engine.NewMemDirectory(engine.DirectoryOptions{})
	defer dir.Close()
	fields := must(NewFields(testFields()...))
	addJob := func(id int) *Job {
		job := newJob(JobAdd)
		job.doc = must(fields.Document(Record{"id": id}))
		return job
	}

	closing, resume := make(chan struct{}), make(chan struct{})
	var once sync.Once
	c := newCoordinator(dir, engine.NewStandardAnalyzer(), "memory", 10*time.Millisecond, slog.New(slog.DiscardHandler), nil, func() {
		once.Do(func() {
			close(closing)
			<-resume
		})
	})

	ensure(c.enqueue(addJob(1)))
	// the first idle close is now stuck with wmu held
	<-closing

	second := addJob(2)
	enqueued := make(chan error, 1)
	go func() { enqueued <- c.enqueue(second) }()
	select {
	case err := <-enqueued:
		ensure(err)
	case <-time.After(time.Second):
		close(resume)
		t.Fatalf("** enqueue blocked while the idle writer was closing")
	}
	close(resume)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ensure(second.Wait(ctx))
	ensure(c.drain(ctx))
	deepEqual(t, c.opens.Load(), int64(2))
	deepEqual(t, c.closes.Load(), int64(2))
	deepEqual(t, c.jobsDone.Load(), int64(2))

	r := must(engine.OpenReader(dir))
	defer r.Close()
	deepEqual(t, r.NumDocs(), 2)
}

func TestCoordinator_drainWaitsForClosingWorker(t *testing.T) {
	dir := engine.NewMemDirectory(engine.DirectoryOptions{})
	defer dir.Close()
	fields := must(NewFields(testFields()...))

	closing, resume := make(chan struct{}), make(chan struct{})
	c := newCoordinator(dir, engine.NewStandardAnalyzer(), "memory", 10*time.Millisecond, slog.New(slog.DiscardHandler), nil, func() {
		close(closing)
		<-resume
	})
	job := newJob(JobAdd)
	job.doc = must(fields.Document(Record{"id": 1}))
	ensure(c.enqueue(job))
	<-closing

	drained := make(chan error, 1)
	go func() { drained <- c.drain(context.Background()) }()
	select {
	case err := <-drained:
		t.Fatalf("** drain returned %v before the writer was closed", err)
	case <-time.After(50 * time.Millisecond):
	}
	close(resume)
	select {
	case err := <-drained:
		ensure(err)
	case <-time.After(5 * time.Second):
		t.Fatalf("** drain did not return after the writer was closed")
	}
	deepEqual(t, c.closes.Load(), int64(1))
}
