package batch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"liteconvert/internal/convert"
	"liteconvert/internal/naming"
)

// recorder collects reporter events; the scheduler serializes emission, so
// plain fields are fine here.
type recorder struct {
	mu       sync.Mutex
	started  []string
	finished map[string]Status
	batch    *BatchResult
}

func newRecorder() *recorder {
	return &recorder{finished: make(map[string]Status)}
}

func (r *recorder) ItemStarted(item *WorkItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, item.ID)
}

func (r *recorder) ItemFinished(item *WorkItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished[item.ID] = item.Status
}

func (r *recorder) BatchFinished(result *BatchResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batch = result
}

func plannedItems(t *testing.T, n int) *Plan {
	t.Helper()
	inputs := make([]string, 0, n)
	for i := 0; i < n; i++ {
		inputs = append(inputs, "/in/"+string(rune('a'+i))+".heic")
	}
	planner := NewPlannerWith(fakePages{}, naming.NewConflictResolverWith(func(string) bool { return false }))
	plan, err := planner.Plan(inputs, convert.HeicToJpg, testOpts("{name}.{ext}"))
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	return plan
}

func TestRunAllSucceed(t *testing.T) {
	plan := plannedItems(t, 3)
	var calls atomic.Int64
	sched := NewSchedulerWith(func(ctx context.Context, req convert.Request, opts convert.Options) error {
		calls.Add(1)
		return nil
	})

	rec := newRecorder()
	result, err := sched.Run(context.Background(), plan, convert.DefaultOptions(), rec)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 backend calls, got %d", calls.Load())
	}
	if result.Succeeded != 3 || result.Failed != 0 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if len(result.Items) != len(plan.Items) {
		t.Fatalf("result must contain every planned item")
	}
	for i, item := range result.Items {
		if item != plan.Items[i] {
			t.Fatalf("result order must match planning order")
		}
		if !item.Status.Terminal() {
			t.Fatalf("item %d not terminal: %s", i, item.Status)
		}
	}
	if len(rec.finished) != 3 || rec.batch == nil {
		t.Fatalf("expected 3 finish events and a batch event, got %d", len(rec.finished))
	}
}

func TestRunSingleFailureDoesNotAbortBatch(t *testing.T) {
	plan := plannedItems(t, 3)
	bad := plan.Items[1].OutputPath
	sched := NewSchedulerWith(func(ctx context.Context, req convert.Request, opts convert.Options) error {
		if req.Output == bad {
			return convert.NewCorruptSource("decode heic", errors.New("truncated"))
		}
		return nil
	})

	rec := newRecorder()
	result, err := sched.Run(context.Background(), plan, convert.DefaultOptions(), rec)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Succeeded != 2 || result.Failed != 1 {
		t.Fatalf("expected 2 ok / 1 failed, got %+v", result)
	}
	if plan.Items[1].Status != StatusFailed || plan.Items[1].Err == nil {
		t.Fatalf("failed item must carry its error")
	}
}

func TestRunCancelledBeforeStart(t *testing.T) {
	plan := plannedItems(t, 4)
	var calls atomic.Int64
	sched := NewSchedulerWith(func(ctx context.Context, req convert.Request, opts convert.Options) error {
		calls.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := newRecorder()
	result, err := sched.Run(ctx, plan, convert.DefaultOptions(), rec)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("expected zero backend calls, got %d", calls.Load())
	}
	if result.Cancelled != 4 {
		t.Fatalf("expected all items cancelled, got %+v", result)
	}
	if len(rec.finished) != 4 {
		t.Fatalf("cancelled items must still emit ItemFinished, got %d events", len(rec.finished))
	}
	for id, status := range rec.finished {
		if status != StatusCancelled {
			t.Fatalf("item %s: expected cancelled, got %s", id, status)
		}
	}
}

func TestRunMidBatchCancellation(t *testing.T) {
	plan := plannedItems(t, 5)
	ctx, cancel := context.WithCancel(context.Background())

	release := make(chan struct{})
	var calls atomic.Int64
	sched := NewSchedulerWith(func(c context.Context, req convert.Request, opts convert.Options) error {
		if calls.Add(1) == 1 {
			cancel()
			<-release
		}
		return nil
	})

	opts := convert.DefaultOptions()
	opts.MaxConcurrency = 1

	done := make(chan *BatchResult, 1)
	rec := newRecorder()
	go func() {
		result, err := sched.Run(ctx, plan, opts, rec)
		if err != nil {
			t.Errorf("run: %v", err)
		}
		done <- result
	}()

	close(release)
	var result *BatchResult
	select {
	case result = <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("scheduler did not terminate after cancellation")
	}

	// the in-flight item finished naturally; not-yet-started ones are cancelled
	if result.Succeeded != 1 {
		t.Fatalf("in-flight item should keep its natural outcome, got %+v", result)
	}
	if result.Cancelled != 4 {
		t.Fatalf("expected 4 cancelled, got %+v", result)
	}
	if len(rec.finished) != 5 {
		t.Fatalf("every planned item must emit exactly one finish event, got %d", len(rec.finished))
	}
}

func TestRunBackendAbortOnContextCountsCancelled(t *testing.T) {
	plan := plannedItems(t, 1)
	sched := NewSchedulerWith(func(ctx context.Context, req convert.Request, opts convert.Options) error {
		return context.Canceled
	})
	result, err := sched.Run(context.Background(), plan, convert.DefaultOptions(), newRecorder())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Cancelled != 1 || result.Failed != 0 {
		t.Fatalf("cooperative backend abort should count as cancelled, got %+v", result)
	}
}

func TestRunPreResolvedItemsSkipWorkers(t *testing.T) {
	plan := plannedItems(t, 2)
	plan.Items[0].finish(StatusSkipped, nil)

	var calls atomic.Int64
	sched := NewSchedulerWith(func(ctx context.Context, req convert.Request, opts convert.Options) error {
		calls.Add(1)
		return nil
	})
	rec := newRecorder()
	result, err := sched.Run(context.Background(), plan, convert.DefaultOptions(), rec)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("skipped item must not reach a backend, got %d calls", calls.Load())
	}
	if result.Skipped != 1 || result.Succeeded != 1 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if rec.finished[plan.Items[0].ID] != StatusSkipped {
		t.Fatalf("skipped item must emit its finish event")
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	plan := plannedItems(t, 6)
	var inFlight, peak atomic.Int64
	sched := NewSchedulerWith(func(ctx context.Context, req convert.Request, opts convert.Options) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	})

	opts := convert.DefaultOptions()
	opts.MaxConcurrency = 2
	if _, err := sched.Run(context.Background(), plan, opts, newRecorder()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if peak.Load() > 2 {
		t.Fatalf("concurrency bound exceeded: peak %d", peak.Load())
	}
}

func TestRunNilReporter(t *testing.T) {
	plan := plannedItems(t, 1)
	sched := NewSchedulerWith(func(ctx context.Context, req convert.Request, opts convert.Options) error { return nil })
	if _, err := sched.Run(context.Background(), plan, convert.DefaultOptions(), nil); !errors.Is(err, ErrNilReporter) {
		t.Fatalf("expected ErrNilReporter, got %v", err)
	}
}

func TestRunMergeGroupFailureIsSingleOutcome(t *testing.T) {
	planner := NewPlannerWith(fakePages{}, naming.NewConflictResolverWith(func(string) bool { return false }))
	plan, err := planner.Plan(
		[]string{"/in/x.jpg", "/in/y.png", "/in/z.jpg"},
		convert.ImagesToPdfMerged,
		testOpts("{name}.{ext}"),
	)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	sched := NewSchedulerWith(func(ctx context.Context, req convert.Request, opts convert.Options) error {
		if len(req.Inputs) != 3 {
			t.Errorf("merge group must reach the backend as one unit, got %d inputs", len(req.Inputs))
		}
		return convert.NewCorruptSource("decode image header", errors.New("second input broken"))
	})
	result, err := sched.Run(context.Background(), plan, convert.DefaultOptions(), newRecorder())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Failed != 1 || len(result.Items) != 1 {
		t.Fatalf("expected exactly one failed outcome for the whole group, got %+v", result)
	}
}
