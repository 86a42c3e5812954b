// Package poller owns the status fetch cycle. It is the only producer of
// snapshots.
package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"subsim-ctl/internal/logging"
	"subsim-ctl/internal/metrics"
	"subsim-ctl/internal/sink"
	"subsim-ctl/internal/state"
)

// Fetcher reads the authoritative simulator state.
type Fetcher interface {
	Status(ctx context.Context) (state.SimulationState, error)
}

// Options tune a Poller. Zero values select defaults.
type Options struct {
	Interval  time.Duration
	Writer    sink.StatusWriter
	Collector metrics.Collector
	Logger    zerolog.Logger
	Now       func() time.Time
}

// Poller polls on a timer and on demand. Polls may overlap; a result is
// applied only if no poll initiated after it has been applied already.
type Poller struct {
	fetcher  Fetcher
	interval time.Duration
	writer   sink.StatusWriter
	metrics  metrics.Collector
	logger   zerolog.Logger
	now      func() time.Time

	seq     atomic.Uint64
	mu      sync.Mutex // guards applied and current
	applied uint64
	current state.Snapshot
	// deliver is taken while mu is still held so writers see snapshots in
	// apply order without blocking Current.
	deliver sync.Mutex
}

// New creates a Poller reading from f.
func New(f Fetcher, opts Options) *Poller {
	p := &Poller{
		fetcher:  f,
		interval: opts.Interval,
		writer:   opts.Writer,
		metrics:  opts.Collector,
		logger:   opts.Logger,
		now:      opts.Now,
	}
	if p.interval <= 0 {
		p.interval = 2 * time.Second
	}
	if p.writer == nil {
		p.writer = sink.Discard
	}
	if p.metrics == nil {
		p.metrics = metrics.Noop()
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Interval returns the timer cadence.
func (p *Poller) Interval() time.Duration { return p.interval }

// Run polls immediately and then on every timer tick until ctx is done.
// Timer ticks do not wait for earlier polls to finish.
func (p *Poller) Run(ctx context.Context) error {
	log := logging.FromContext(ctx)
	log.Info().Dur("interval", p.interval).Msg("status poller started")
	var wg sync.WaitGroup
	defer func() {
		wg.Wait()
		log.Info().Msg("status poller stopped")
	}()

	poll := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Tick(ctx)
		}()
	}

	poll()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			poll()
		}
	}
}

// Tick performs one poll synchronously and reports the resulting snapshot
// and whether it was applied. It does not reset the timer.
func (p *Poller) Tick(ctx context.Context) (state.Snapshot, bool) {
	seq := p.seq.Add(1)
	start := p.now()
	st, err := p.fetcher.Status(ctx)
	latency := p.now().Sub(start)

	snap := state.Snapshot{Seq: seq, ReceivedAt: p.now()}
	if ctx.Err() != nil {
		// shutting down, not a link loss
		p.metrics.ObservePoll(metrics.PollCanceled, latency)
		p.logger.Debug().Uint64("seq", seq).Msg("status poll canceled")
		return snap, false
	}
	if err != nil {
		snap.State = state.Stopped()
		snap.Link = state.LinkDisconnected
		snap.Err = err.Error()
		p.logger.Warn().Err(err).Uint64("seq", seq).Msg("status poll failed")
	} else {
		snap.State = st.Clone()
		snap.Link = state.LinkConnected
	}

	applied := p.apply(snap)
	switch {
	case !applied:
		p.metrics.ObservePoll(metrics.PollStale, latency)
		p.logger.Debug().Uint64("seq", seq).Msg("discarded stale status")
	case err != nil:
		p.metrics.ObservePoll(metrics.PollFailed, latency)
	default:
		p.metrics.ObservePoll(metrics.PollApplied, latency)
	}
	return snap, applied
}

func (p *Poller) apply(snap state.Snapshot) bool {
	p.mu.Lock()
	if snap.Seq <= p.applied {
		p.mu.Unlock()
		return false
	}
	p.applied = snap.Seq
	p.current = snap
	p.deliver.Lock()
	p.mu.Unlock()
	defer p.deliver.Unlock()

	p.metrics.SetActiveEvents(snap.State.Running, snap.State.Count())
	if err := p.writer.WriteSnapshot(snap); err != nil {
		p.logger.Error().Err(err).Uint64("seq", snap.Seq).Msg("snapshot writer failed")
	}
	return true
}

// Current returns the most recently applied snapshot, or the zero value
// before the first poll completes.
func (p *Poller) Current() state.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}
