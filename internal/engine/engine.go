package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"soratop/internal/health"
	"soratop/internal/source"
	"soratop/internal/stats"
)

// View is the immutable result of one tick, published to the presentation
// side. A new View replaces the previous one wholesale; readers never see a
// half-updated snapshot.
type View struct {
	Time       time.Time
	Aggregated stats.Aggregated
	Delta      stats.Delta
}

// Engine drives the Source -> Parser -> Filter -> Aggregator -> Delta
// pipeline on its own schedule and publishes the latest View through a
// single-slot mailbox. Per-tick failures are logged and skipped; only
// startup and durability-breaking errors terminate Run.
type Engine struct {
	src     source.Source
	rec     *source.Recorder // nil unless recording a live session
	filters stats.Filters
	metrics *health.Metrics

	latest atomic.Pointer[View]

	mu   sync.Mutex
	subs []chan struct{}

	// prev is owned exclusively by the poll goroutine and replaced, never
	// mutated, between ticks.
	prev *stats.Aggregated
}

func New(src source.Source, rec *source.Recorder, filters stats.Filters, metrics *health.Metrics) *Engine {
	return &Engine{
		src:     src,
		rec:     rec,
		filters: filters,
		metrics: metrics,
	}
}

// Latest returns the most recently published View, or nil before the first
// successful tick. The returned value is immutable.
func (e *Engine) Latest() *View { return e.latest.Load() }

// Subscribe registers a channel signalled after each published View. Every
// subscriber gets its own single-slot channel, so consumers never steal
// notifications from each other; the channel never blocks the poll
// goroutine, notifications coalesce when a subscriber lags.
func (e *Engine) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	e.mu.Lock()
	e.subs = append(e.subs, ch)
	e.mu.Unlock()
	return ch
}

// Run executes the poll loop until the context is cancelled, the replay
// source is exhausted, or a fatal error occurs. The current tick always
// completes (including its record write) before a cancellation is honored.
func (e *Engine) Run(ctx context.Context) error {
	for {
		tick, err := e.src.Next(ctx)
		if err != nil {
			var tickErr *source.TickError
			switch {
			case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
				return nil
			case errors.Is(err, source.ErrExhausted):
				log.Info().Msg("replay finished")
				return nil
			case errors.As(err, &tickErr):
				log.Warn().Err(tickErr.Err).Msg("tick skipped")
				e.metrics.SkippedTicksTotal.Inc()
				continue
			default:
				return fmt.Errorf("source: %w", err)
			}
		}

		if e.rec != nil {
			if err := e.rec.Append(tick); err != nil {
				return fmt.Errorf("record: %w", err)
			}
		}

		snap, err := stats.Parse(tick.Time, tick.Values)
		if err != nil {
			// A malformed report must not disturb the previous snapshot
			// used for the next delta.
			log.Warn().Err(err).Msg("report dropped")
			e.metrics.ParseErrorsTotal.Inc()
			continue
		}

		filtered := e.filters.Apply(snap)
		agg := stats.Aggregate(filtered)
		delta := stats.ComputeDelta(e.prev, agg)

		e.latest.Store(&View{Time: agg.Timestamp, Aggregated: agg, Delta: delta})
		e.prev = &agg
		e.notify()

		e.metrics.TicksTotal.Inc()
		e.metrics.Connections.Set(float64(agg.ConnectionCount))
		e.metrics.StatsKeys.Set(float64(len(agg.Fields)))
		log.Debug().
			Int("connections", agg.ConnectionCount).
			Int("keys", len(agg.Fields)).
			Time("tick", tick.Time).
			Msg("tick processed")
	}
}

func (e *Engine) notify() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ch := range e.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
