package poller

import (
	"context"
	"log/slog"
	"sync"

	"nivel_exporter/internal/types"
)

// sinkWorker delivers views to one sink on its own goroutine.
// The queue holds at most one pending view; a newer view replaces it.
type sinkWorker struct {
	sink    Sink
	queue   chan types.DerivedView
	timeout timeoutFunc
	logger  *slog.Logger
}

type timeoutFunc func(ctx context.Context) (context.Context, context.CancelFunc)

func newSinkWorkers(sinks []Sink, timeout timeoutFunc, logger *slog.Logger) []*sinkWorker {
	workers := make([]*sinkWorker, 0, len(sinks))
	for _, s := range sinks {
		workers = append(workers, &sinkWorker{
			sink:    s,
			queue:   make(chan types.DerivedView, 1),
			timeout: timeout,
			logger:  logger,
		})
	}
	return workers
}

// offer queues view without blocking. Only the poll loop calls it.
func (w *sinkWorker) offer(view types.DerivedView) {
	for {
		select {
		case w.queue <- view:
			return
		default:
		}
		select {
		case old := <-w.queue:
			w.logger.Debug("Sink busy, replacing pending view", "dropped_seq", old.Seq, "seq", view.Seq)
		default:
		}
	}
}

func (w *sinkWorker) run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case view := <-w.queue:
			if ctx.Err() != nil {
				return
			}
			pubCtx, cancel := w.timeout(ctx)
			if err := w.sink.Publish(pubCtx, view); err != nil && ctx.Err() == nil {
				w.logger.Warn("Failed to publish view", "cycle_id", view.CycleID, "error", err)
			}
			cancel()
		}
	}
}
