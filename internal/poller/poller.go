// Package poller runs the periodic fetch-and-derive cycle and owns the latest derived view.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"nivel_exporter/internal/mapper"
	"nivel_exporter/internal/types"
)

// FetchErrorMessage is the user-facing text recorded when a cycle fails.
const FetchErrorMessage = "Erro ao buscar dados."

// ErrAlreadyStarted is returned by Start on a running poller.
var ErrAlreadyStarted = errors.New("poller already started")

// Fetcher retrieves raw telemetry from the API.
type Fetcher interface {
	GetSamples(ctx context.Context) (types.SampleSet, error)
	GetBuckets(ctx context.Context) ([]types.Bucket, error)
}

// Sink receives every view the poller applies.
type Sink interface {
	Publish(ctx context.Context, view types.DerivedView) error
}

// Observer is told the outcome of every cycle.
type Observer interface {
	ObservePoll(duration time.Duration, err error)
}

// Options configures a Poller.
type Options struct {
	Interval       time.Duration
	RequestTimeout time.Duration
	PublishTimeout time.Duration // per sink delivery, defaults to Interval
	UseBuckets     bool
	Labels         mapper.StatusLabels
	Sinks          []Sink
	Observer       Observer
	Now            func() time.Time
}

// Poller fetches samples on a fixed interval and derives a fresh view from each batch.
// Cycles run one at a time on a single goroutine, so fetches never overlap.
type Poller struct {
	fetcher Fetcher
	opts    Options
	logger  *slog.Logger

	mu         sync.RWMutex
	latest     *types.DerivedView
	lastErr    string
	lastOK     bool
	appliedSeq uint64

	// only touched by the loop goroutine
	nextSeq uint64
	workers []*sinkWorker

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

const minInterval = time.Second

// New creates a poller. Call Start to begin polling.
func New(fetcher Fetcher, opts Options, logger *slog.Logger) *Poller {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Interval <= 0 {
		logger.Warn("Invalid poll interval, using minimum", "interval", opts.Interval, "minimum", minInterval)
		opts.Interval = minInterval
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = opts.Interval
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = opts.Interval
	}
	return &Poller{
		fetcher: fetcher,
		opts:    opts,
		logger:  logger,
	}
}

// Start runs a first cycle immediately and then one per interval until ctx is done or Stop is called.
func (p *Poller) Start(ctx context.Context) error {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	if p.cancel != nil {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.workers = newSinkWorkers(p.opts.Sinks, p.publishContext, p.logger)

	go p.loop(runCtx, p.done)

	p.logger.Info("Poller started", "interval", p.opts.Interval, "buckets", p.opts.UseBuckets)
	return nil
}

// Stop cancels the running loop and waits for it to exit.
// A cycle in flight is abandoned and its result discarded.
func (p *Poller) Stop() {
	p.runMu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.logger.Info("Poller stopped")
}

// Latest returns the most recently applied view.
func (p *Poller) Latest() (types.DerivedView, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.latest == nil {
		return types.DerivedView{}, false
	}
	return *p.latest, true
}

// Status reports whether the last cycle succeeded and, if not, the user-facing error text.
func (p *Poller) Status() (ok bool, message string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastOK, p.lastErr
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	var wg sync.WaitGroup
	for _, w := range p.workers {
		wg.Add(1)
		go w.run(ctx, &wg)
	}
	defer wg.Wait()

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	p.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.cycle(ctx)
		}
	}
}

// cycle performs one fetch-derive-apply round.
func (p *Poller) cycle(ctx context.Context) {
	p.nextSeq++
	seq := p.nextSeq
	cycleID := uuid.NewString()
	start := time.Now()

	view, err := p.build(ctx, seq, cycleID)

	if ctx.Err() != nil {
		p.logger.Debug("Discarding cycle result after cancellation", "cycle_id", cycleID)
		return
	}

	if p.opts.Observer != nil {
		p.opts.Observer.ObservePoll(time.Since(start), err)
	}

	if err != nil {
		p.logger.Error("Poll cycle failed", "cycle_id", cycleID, "seq", seq, "error", err)
		p.recordFailure()
		return
	}

	if !p.apply(ctx, view) {
		return
	}

	p.logger.Debug("Poll cycle applied",
		"cycle_id", cycleID,
		"seq", seq,
		"level", view.WaterLevelPercent,
		"duration", time.Since(start).Round(time.Millisecond))

	p.publish(view)
}

func (p *Poller) build(ctx context.Context, seq uint64, cycleID string) (types.DerivedView, error) {
	reqCtx, cancel := context.WithTimeout(ctx, p.opts.RequestTimeout)
	defer cancel()

	set, err := p.fetcher.GetSamples(reqCtx)
	if err != nil {
		return types.DerivedView{}, err
	}

	var buckets []types.Bucket
	if p.opts.UseBuckets {
		buckets, err = p.fetcher.GetBuckets(reqCtx)
		if err != nil {
			// Continue with the sample-based series
			p.logger.Warn("Failed to get level buckets", "cycle_id", cycleID, "error", err)
			buckets = nil
		}
	}

	p.mu.RLock()
	prevText := ""
	if p.latest != nil {
		prevText = p.latest.StatusText
	}
	p.mu.RUnlock()

	now := p.opts.Now()
	view, err := mapper.Derive(mapper.DeriveInput{
		Set:            set,
		Buckets:        buckets,
		Now:            now,
		PrevStatusText: prevText,
		Labels:         p.opts.Labels,
	})
	if err != nil {
		return types.DerivedView{}, err
	}

	view.CycleID = cycleID
	view.Seq = seq
	view.GeneratedAt = now
	return view, nil
}

// apply stores view unless the poller was cancelled or a newer view is already in place.
func (p *Poller) apply(ctx context.Context, view types.DerivedView) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ctx.Err() != nil {
		return false
	}
	if view.Seq <= p.appliedSeq {
		p.logger.Warn("Dropping stale view", "seq", view.Seq, "applied_seq", p.appliedSeq)
		return false
	}

	p.latest = &view
	p.appliedSeq = view.Seq
	p.lastOK = true
	p.lastErr = ""
	return true
}

func (p *Poller) recordFailure() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastOK = false
	p.lastErr = FetchErrorMessage
}

// publish hands view to every sink without waiting for delivery.
func (p *Poller) publish(view types.DerivedView) {
	for _, w := range p.workers {
		w.offer(view)
	}
}

func (p *Poller) publishContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, p.opts.PublishTimeout)
}
