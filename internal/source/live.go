package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"soratop/internal/stats"
)

const (
	soraTargetHeader    = "x-sora-target"
	statsAllConnections = "Sora_20171101.GetStatsAllConnections"
	maxReportBodyBytes  = 64 << 20
	defaultFetchTimeout = 10 * time.Second
)

// Fetcher retrieves one raw stats report. Implementations are transport
// specific; the Live source is agnostic to how the bytes are produced.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// HTTPFetcher POSTs the Sora stats API. With global set it addresses the
// cluster-wide aggregate instead of the local node.
type HTTPFetcher struct {
	url    string
	global bool
	client *http.Client
}

func NewHTTPFetcher(url string, global bool, timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &HTTPFetcher{
		url:    url,
		global: global,
		client: &http.Client{Timeout: timeout},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context) ([]byte, error) {
	var body io.Reader
	if f.global {
		body = bytes.NewReader([]byte(`{"local": false}`))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(soraTargetHeader, statsAllConnections)
	if f.global {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch stats: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch stats: bad status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReportBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read stats body: %w", err)
	}
	return data, nil
}

// Live polls the fetch capability on a fixed interval. Fetches never
// overlap: a fetch that outlives the interval delays the next tick instead
// of duplicating it. Fetch and decode failures surface as TickErrors.
type Live struct {
	fetcher  Fetcher
	interval time.Duration
	clock    Clock
	next     time.Time
}

func NewLive(fetcher Fetcher, interval time.Duration, clock Clock) *Live {
	if clock == nil {
		clock = RealClock{}
	}
	return &Live{fetcher: fetcher, interval: interval, clock: clock}
}

func (l *Live) Next(ctx context.Context) (Tick, error) {
	// First tick fires immediately; later ticks are spaced from the start
	// of the previous one.
	if !l.next.IsZero() {
		if err := l.clock.Sleep(ctx, l.next.Sub(l.clock.Now())); err != nil {
			return Tick{}, err
		}
	}
	now := l.clock.Now()
	l.next = now.Add(l.interval)

	body, err := l.fetcher.Fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return Tick{}, ctx.Err()
		}
		return Tick{}, &TickError{Err: err}
	}
	values, err := stats.SplitReport(body)
	if err != nil {
		return Tick{}, &TickError{Err: err}
	}
	return Tick{Time: now, Values: values}, nil
}
