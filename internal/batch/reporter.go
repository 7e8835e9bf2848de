package batch

import (
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Reporter is the progress sink the scheduler emits to. Every planned item
// produces exactly one ItemFinished, cancellation included; BatchFinished
// fires once at the end. The scheduler serializes emission, so
// implementations do not need their own locking, but they must not assume
// any particular goroutine calls them.
type Reporter interface {
	ItemStarted(item *WorkItem)
	ItemFinished(item *WorkItem)
	BatchFinished(result *BatchResult)
}

// NopReporter discards all events.
type NopReporter struct{}

func (NopReporter) ItemStarted(*WorkItem)      {}
func (NopReporter) ItemFinished(*WorkItem)     {}
func (NopReporter) BatchFinished(*BatchResult) {}

// LogReporter renders progress through the global zerolog logger.
type LogReporter struct {
	Total int
	done  atomic.Int64
}

func (r *LogReporter) ItemStarted(item *WorkItem) {
	log.Info().
		Str("item", item.ID).
		Str("mode", string(item.Mode)).
		Str("input", item.Sources[0].Path).
		Msg("converting")
}

func (r *LogReporter) ItemFinished(item *WorkItem) {
	done := r.done.Add(1)
	var ev *zerolog.Event
	if item.Status == StatusFailed {
		ev = log.Error().Err(item.Err)
	} else {
		ev = log.Info()
	}
	ev.Str("item", item.ID).
		Str("status", string(item.Status)).
		Str("output", item.OutputPath).
		Int64("done", done).
		Int("total", r.Total).
		Msg("item finished")
}

func (r *LogReporter) BatchFinished(result *BatchResult) {
	log.Info().
		Int("succeeded", result.Succeeded).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Int("cancelled", result.Cancelled).
		Dur("elapsed", result.Duration).
		Msg("batch finished")
}
