package batch

import (
	"context"
	"errors"
	"sync"
	"time"

	"liteconvert/internal/convert"
)

// Scheduler executes planned work items on a bounded worker pool. A merge
// group is a single item and therefore runs as one atomic unit inside one
// worker slot.
type Scheduler struct {
	convert convert.ConvertFunc
	mu      sync.Mutex // serializes reporter emission
}

// NewScheduler drives the given backend registry.
func NewScheduler(reg *convert.Registry) *Scheduler {
	return &Scheduler{convert: reg.Convert}
}

// NewSchedulerWith injects the conversion function. Intended for tests.
func NewSchedulerWith(fn convert.ConvertFunc) *Scheduler {
	return &Scheduler{convert: fn}
}

// ErrNilReporter is returned when Run has no sink to report to. Per-item
// conversion problems never surface here; they land in the result.
var ErrNilReporter = errors.New("nil progress reporter")

// Run executes the plan and returns the batch result in planning order.
//
// Items pre-resolved to Skipped or Failed emit their finish event up front
// without consuming a worker slot. Cancellation is cooperative: items not
// yet started become Cancelled, items already running finish their backend
// call and keep their natural outcome unless the backend itself aborted on
// the context. Every planned item emits exactly one ItemFinished.
func (s *Scheduler) Run(ctx context.Context, plan *Plan, opts convert.Options, rep Reporter) (*BatchResult, error) {
	if rep == nil {
		return nil, ErrNilReporter
	}
	opts = opts.Normalize()
	start := time.Now()
	result := &BatchResult{Items: plan.Items}

	var pending []*WorkItem
	for _, item := range plan.Items {
		if item.Status.Terminal() {
			s.emitFinished(rep, item)
			continue
		}
		pending = append(pending, item)
	}

	queue := make(chan *WorkItem)
	var wg sync.WaitGroup
	workers := opts.MaxConcurrency
	if workers > len(pending) {
		workers = len(pending)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case item, ok := <-queue:
					if !ok {
						return
					}
					if ctx.Err() != nil {
						// pulled after cancellation; leave Pending for the
						// drain pass below
						return
					}
					s.runItem(ctx, item, opts, rep)
				}
			}
		}()
	}

feed:
	for _, item := range pending {
		select {
		case <-ctx.Done():
			break feed
		case queue <- item:
		}
	}
	close(queue)
	wg.Wait()

	// Items never started transition Pending → Cancelled, events included.
	for _, item := range pending {
		if !item.Status.Terminal() {
			item.finish(StatusCancelled, nil)
			s.emitFinished(rep, item)
		}
	}

	result.tally()
	result.Duration = time.Since(start)
	s.mu.Lock()
	rep.BatchFinished(result)
	s.mu.Unlock()
	return result, nil
}

// runItem drives one work item through its backend call.
func (s *Scheduler) runItem(ctx context.Context, item *WorkItem, opts convert.Options, rep Reporter) {
	item.Status = StatusRunning
	item.StartedAt = time.Now()
	s.mu.Lock()
	rep.ItemStarted(item)
	s.mu.Unlock()

	req := convert.Request{
		Inputs: item.InputPaths(),
		Output: item.OutputPath,
		Mode:   item.Mode,
		Page:   item.Page,
	}
	err := s.convert(ctx, req, opts)
	switch {
	case err == nil:
		item.finish(StatusSucceeded, nil)
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		// the backend aborted cooperatively; no work was committed
		item.finish(StatusCancelled, nil)
	default:
		item.finish(StatusFailed, err)
	}
	s.emitFinished(rep, item)
}

func (s *Scheduler) emitFinished(rep Reporter, item *WorkItem) {
	s.mu.Lock()
	rep.ItemFinished(item)
	s.mu.Unlock()
}
