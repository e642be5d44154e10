// Package audit records who did what to the ledger. Recording is best
// effort: a failed audit write is logged and never fails the operation
// that triggered it.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Entry is one audit record.
type Entry struct {
	ID        string            `json:"id"`
	Action    string            `json:"action"`
	Actor     string            `json:"actor"`
	Target    string            `json:"target,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Sink persists audit entries. The mongo and sqlite stores implement it
// against their own collections/tables; tests use the memory sink.
type Sink interface {
	Append(ctx context.Context, e Entry) error
	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

// Recorder writes entries through a sink, swallowing sink failures.
type Recorder struct {
	sink Sink
}

func NewRecorder(sink Sink) *Recorder {
	return &Recorder{sink: sink}
}

// Record appends one entry. Never returns an error; a nil recorder or a
// sink failure only produces a warning log.
func (r *Recorder) Record(ctx context.Context, action, actor, target string, details map[string]string) {
	if r == nil || r.sink == nil {
		return
	}
	e := Entry{
		ID:        uuid.NewString(),
		Action:    action,
		Actor:     actor,
		Target:    target,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
	if err := r.sink.Append(ctx, e); err != nil {
		slog.WarnContext(ctx, "Audit write failed",
			"action", action,
			"actor", actor,
			"error", err)
	}
}

// MaxRecent bounds every audit read. Older entries stay in the sink but
// are never returned through the recorder.
const MaxRecent = 200

// Recent returns the newest entries. limit is clamped to MaxRecent; zero
// or negative limits read the full cap.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if r == nil || r.sink == nil {
		return nil, nil
	}
	if limit <= 0 || limit > MaxRecent {
		limit = MaxRecent
	}
	return r.sink.Recent(ctx, limit)
}
