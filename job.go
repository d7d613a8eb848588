package lucindex

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/grob/lucindex/engine"
)

type JobKind int

const (
	JobAdd JobKind = iota + 1
	JobUpdate
	JobRemove
	JobRemoveByQuery
	JobRemoveAll
	JobClose
)

func (k JobKind) String() string {
	switch k {
	case JobAdd:
		return "add"
	case JobUpdate:
		return "update"
	case JobRemove:
		return "remove"
	case JobRemoveByQuery:
		return "removeByQuery"
	case JobRemoveAll:
		return "removeAll"
	case JobClose:
		return "close"
	default:
		return fmt.Sprintf("job(%d)", int(k))
	}
}

// Job is one queued mutation. Callers that need to know the outcome can
// wait on it; others can ignore it, failures are logged either way.
type Job struct {
	ID      uuid.UUID
	Kind    JobKind
	Created time.Time

	doc   *engine.Document
	term  engine.Term
	query engine.Query

	done chan struct{}
	err  error
}

func newJob(kind JobKind) *Job {
	return &Job{
		ID:      uuid.New(),
		Kind:    kind,
		Created: time.Now(),
		done:    make(chan struct{}),
	}
}

// Done is closed once the job has been executed.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Err returns the job's failure, a *MutationJobError. It is nil until Done
// is closed.
func (j *Job) Err() error {
	select {
	case <-j.done:
		return j.err
	default:
		return nil
	}
}

// Wait blocks until the job has been executed and returns its error.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *Job) finish(err error) {
	j.err = err
	close(j.done)
}

// panicked is the error of a job whose execution panicked.
type panicked struct {
	reason any
	stack  string
}

func (p panicked) Error() string {
	return fmt.Sprintf("panic: %v\n\n%s", p.reason, p.stack)
}

// safelyApply runs the job, turning a panic into an error so that the
// coordinator keeps going.
func (j *Job) safelyApply(w *engine.Writer) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = panicked{p, string(debug.Stack())}
		}
	}()
	return j.apply(w)
}

func (j *Job) apply(w *engine.Writer) error {
	switch j.Kind {
	case JobAdd:
		return w.AddDocument(j.doc)
	case JobUpdate:
		return w.UpdateDocument(j.term, j.doc)
	case JobRemove:
		return w.DeleteDocuments(j.term)
	case JobRemoveByQuery:
		return w.DeleteByQuery(j.query)
	case JobRemoveAll:
		return w.DeleteAll()
	default:
		panic(fmt.Errorf("job %v cannot be applied to a writer", j.Kind))
	}
}

func (j *Job) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("id", j.ID.String()),
		slog.String("kind", j.Kind.String()),
	}
	switch j.Kind {
	case JobUpdate, JobRemove:
		attrs = append(attrs, slog.String("term", j.term.String()))
	case JobRemoveByQuery:
		attrs = append(attrs, slog.String("query", j.query.String()))
	}
	return slog.GroupValue(attrs...)
}
