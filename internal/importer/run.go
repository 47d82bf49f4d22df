package importer

import (
	"github.com/google/uuid"
	"github.com/mmcdole/shopsync/internal/domain"
)

// Run is a bulk sync session observed through its progress stream.
// Next must be called from a single goroutine.
type Run struct {
	ID      uuid.UUID
	sub     domain.Subscription
	service *Service
	done    bool
}

// Next blocks for the next progress event and archives it. ok is false once the
// stream has ended, either after a done event or because the connection dropped.
// Duplicate events are passed through as received.
func (r *Run) Next() (domain.ProgressEvent, bool) {
	if r.done {
		return domain.ProgressEvent{}, false
	}

	ev, ok := <-r.sub.Events()
	if !ok {
		r.service.logger.Warn("progress stream ended without done", "run", r.ID)
		r.done = true
		return domain.ProgressEvent{}, false
	}

	r.record(ev)
	if ev.Done {
		r.done = true
		r.Close()
	}
	return ev, true
}

func (r *Run) record(ev domain.ProgressEvent) {
	runs := r.service.runs
	if runs == nil {
		return
	}
	if err := runs.AppendLine(r.ID, ev.Message, ev.Synced, ev.Error); err != nil {
		r.service.logger.Error("failed to archive progress", "run", r.ID, "error", err)
	}
	if ev.Done {
		if err := runs.FinishRun(r.ID); err != nil {
			r.service.logger.Error("failed to finish run", "run", r.ID, "error", err)
		}
	}
}

// Close stops listening. The server-side job is not affected.
func (r *Run) Close() error {
	return r.sub.Close()
}
