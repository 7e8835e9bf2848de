// Package batch plans and executes conversion batches: mode-shaped
// expansion into work items, bounded concurrent execution, progress events,
// and an ordered result.
package batch

import (
	"time"

	"liteconvert/internal/convert"
)

// Status is the work item state machine. Transitions are monotonic:
// Pending → Running → {Succeeded, Failed}, Pending → {Skipped, Failed,
// Cancelled}. Terminal states are final.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is a sink.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusSkipped, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// SourceFile is one input file with its detected format. Pages is probed
// lazily and only meaningful for PDFs.
type SourceFile struct {
	Path   string
	Format convert.Format
	Pages  int
}

// WorkItem is the unit of scheduling: one or more sources, one resolved
// output path. The planner constructs items and owns them until they are
// handed to the scheduler, which is then the only mutator of status and
// timing fields.
type WorkItem struct {
	ID         string
	Sources    []SourceFile
	Mode       convert.Mode
	Page       int    // 0-based source page for PDF fan-out; -1 otherwise
	GroupID    string // merge-group id; empty for independent items
	OutputPath string
	Status     Status
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// InputPaths returns the source paths in composition order.
func (w *WorkItem) InputPaths() []string {
	paths := make([]string, len(w.Sources))
	for i, s := range w.Sources {
		paths[i] = s.Path
	}
	return paths
}

// finish moves the item into a terminal state. Transitions never go
// backward; a second terminal transition is ignored.
func (w *WorkItem) finish(s Status, err error) {
	if w.Status.Terminal() {
		return
	}
	w.Status = s
	w.Err = err
	w.FinishedAt = time.Now()
}

// BatchResult is the read-only snapshot produced once per run. Items keep
// their original planning order regardless of execution order.
type BatchResult struct {
	Items     []*WorkItem
	Succeeded int
	Skipped   int
	Failed    int
	Cancelled int
	Duration  time.Duration
}

// tally recomputes aggregate counts from item statuses.
func (r *BatchResult) tally() {
	r.Succeeded, r.Skipped, r.Failed, r.Cancelled = 0, 0, 0, 0
	for _, it := range r.Items {
		switch it.Status {
		case StatusSucceeded:
			r.Succeeded++
		case StatusSkipped:
			r.Skipped++
		case StatusFailed:
			r.Failed++
		case StatusCancelled:
			r.Cancelled++
		}
	}
}
