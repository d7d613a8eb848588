package lucindex

import (
	"errors"
	"log/slog"
)

// applySync runs job on the caller's goroutine, bypassing the queue: it
// takes the writer (waiting for a running job), commits, closes the writer
// and refreshes the cached view. Jobs still queued run afterwards.
func (h *Handle) applySync(job *Job) error {
	if h.shutdown.Load() {
		return ErrShutdown
	}
	c := h.coord
	c.wmu.Lock()
	err := c.applyLocked(job)
	if err != nil {
		c.jobsFailed.Add(1)
	} else {
		c.jobsDone.Add(1)
	}
	err = errors.Join(err, c.closeWriterLocked("sync "+job.Kind.String()))
	c.wmu.Unlock()
	if err != nil {
		return &MutationJobError{JobID: job.ID, Kind: job.Kind, Err: err}
	}
	if err := h.Refresh(); err != nil {
		h.logger.Warn("refresh after sync write failed", slog.Any("err", err))
	}
	return nil
}

// AddSync adds rec and returns once it is visible to new read views.
func (h *Handle) AddSync(rec Record) error {
	job, err := h.addJob(rec)
	if err != nil {
		return err
	}
	return h.applySync(job)
}

func (h *Handle) UpdateSync(keyField string, keyValue any, rec Record) error {
	job, err := h.updateJob(keyField, keyValue, rec)
	if err != nil {
		return err
	}
	return h.applySync(job)
}

func (h *Handle) RemoveSync(keyField string, keyValue any) error {
	job, err := h.removeJob(keyField, keyValue)
	if err != nil {
		return err
	}
	return h.applySync(job)
}
