package source

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Tick is one raw report as produced by a Source: the wall-clock time of a
// successful fetch (never a server-reported time) plus the per-connection
// JSON objects exactly as received.
type Tick struct {
	Time   time.Time         `json:"time"`
	Values []json.RawMessage `json:"values"`
}

// Source yields an ordered sequence of ticks. Live sources are unbounded,
// replay sources finish with ErrExhausted. Next blocks for pacing and
// honors context cancellation.
type Source interface {
	Next(ctx context.Context) (Tick, error)
}

// ErrExhausted signals the normal end of a replayed record file.
var ErrExhausted = errors.New("record file exhausted")

// TickError marks a recoverable per-tick failure (fetch error, bad record
// line). The engine logs it and skips the tick; the sequence continues.
type TickError struct {
	Err error
}

func (e *TickError) Error() string { return "tick skipped: " + e.Err.Error() }
func (e *TickError) Unwrap() error { return e.Err }

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock is the wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
