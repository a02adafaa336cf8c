package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// Replay reads record entries from a file in order and yields them at their
// original recorded spacing. Exhaustion of the file is signalled with
// ErrExhausted, not treated as an error.
type Replay struct {
	file  *os.File
	r     *bufio.Reader
	clock Clock
	prev  time.Time
}

// NewReplay opens a record file for sequential replay. An unopenable or
// empty file is fatal at startup.
func NewReplay(path string, clock Clock) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open record file %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat record file %s: %w", path, err)
	}
	if info.Size() == 0 {
		f.Close()
		return nil, fmt.Errorf("record file %s is empty", path)
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &Replay{file: f, r: bufio.NewReader(f), clock: clock}, nil
}

func (r *Replay) Next(ctx context.Context) (Tick, error) {
	line, err := r.r.ReadBytes('\n')
	if len(line) == 0 && err != nil {
		if errors.Is(err, io.EOF) {
			return Tick{}, ErrExhausted
		}
		return Tick{}, fmt.Errorf("read record file: %w", err)
	}

	var tick Tick
	if err := json.Unmarshal(bytes.TrimSpace(line), &tick); err != nil {
		return Tick{}, &TickError{Err: fmt.Errorf("bad record entry: %w", err)}
	}

	// Reproduce the original inter-report spacing.
	if !r.prev.IsZero() {
		if err := r.clock.Sleep(ctx, tick.Time.Sub(r.prev)); err != nil {
			return Tick{}, err
		}
	}
	r.prev = tick.Time
	return tick, nil
}

func (r *Replay) Close() error { return r.file.Close() }
