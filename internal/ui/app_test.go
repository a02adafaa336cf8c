package ui

import (
	"context"
	"strings"
	"testing"
	"time"

	"soratop/internal/config"
	"soratop/internal/engine"
	"soratop/internal/stats"
)

type fakeViewer struct {
	view    *engine.View
	updates chan struct{}
}

func (f *fakeViewer) Latest() *engine.View       { return f.view }
func (f *fakeViewer) Subscribe() <-chan struct{} { return f.updates }

func viewAt(t0 time.Time, bitrate float64, delta stats.Value) *engine.View {
	agg := stats.Aggregate(stats.Snapshot{
		Timestamp: t0,
		Connections: []stats.Connection{
			{ID: "a", Fields: map[string]stats.Value{
				"bitrate": stats.Number(bitrate),
				"codec":   stats.Text("vp8"),
			}},
		},
	})
	d := stats.Delta{Fields: map[string]stats.FieldDelta{
		"bitrate": {Sum: delta, Values: map[string]stats.Value{"a": delta}},
		"codec":   {Sum: stats.Absent, Values: map[string]stats.Value{"a": stats.Absent}},
	}}
	return &engine.View{Time: t0, Aggregated: agg, Delta: d}
}

func testApp(view *engine.View) *App {
	cfg := &config.Config{
		Source:          "http://localhost:3000/api",
		ChartTimePeriod: 60 * time.Second,
	}
	return New(&fakeViewer{view: view, updates: make(chan struct{}, 1)}, cfg)
}

func TestApp_RefreshPopulatesTables(t *testing.T) {
	t0 := time.Unix(1_700_000_000, 0).UTC()
	a := testApp(viewAt(t0, 100, stats.Number(10)))
	a.refresh()

	if got := a.aggTable.GetRowCount(); got != 3 { // header + bitrate + codec
		t.Fatalf("expected 3 aggregated rows, got %d", got)
	}
	if got := a.aggTable.GetCell(1, 0).Text; got != "bitrate" {
		t.Fatalf("expected first key 'bitrate', got %q", got)
	}
	if got := a.aggTable.GetCell(1, 1).Text; got != "100" {
		t.Fatalf("expected bitrate sum '100', got %q", got)
	}
	if got := a.aggTable.GetCell(2, 1).Text; got != "-" {
		t.Fatalf("expected absent codec sum '-', got %q", got)
	}

	// Details follow the selected key (first row by default).
	if got := a.connTable.GetCell(1, 0).Text; got != "a" {
		t.Fatalf("expected connection 'a' in details, got %q", got)
	}
	if got := a.connTable.GetCell(1, 2).Text; got != "10" {
		t.Fatalf("expected delta '10', got %q", got)
	}
}

func TestApp_HistoryTrimmedToChartPeriod(t *testing.T) {
	t0 := time.Unix(1_700_000_000, 0).UTC()
	a := testApp(nil)

	for _, offset := range []time.Duration{0, 30 * time.Second, 120 * time.Second} {
		a.pushHistory(viewAt(t0.Add(offset), 100, stats.Number(1)))
	}
	// 60s period relative to the newest point drops the first two entries.
	if len(a.history) != 1 {
		t.Fatalf("expected 1 retained history point, got %d", len(a.history))
	}
	if !a.history[0].time.Equal(t0.Add(120 * time.Second)) {
		t.Fatalf("expected newest point retained, got %v", a.history[0].time)
	}
}

func TestApp_SparklineScalesValues(t *testing.T) {
	t0 := time.Unix(1_700_000_000, 0).UTC()
	a := testApp(nil)
	for i, d := range []float64{0, 5, 10} {
		a.pushHistory(viewAt(t0.Add(time.Duration(i)*time.Second), 100, stats.Number(d)))
	}

	line := a.sparkline("bitrate")
	if !strings.ContainsRune(line, sparkRunes[0]) || !strings.ContainsRune(line, sparkRunes[len(sparkRunes)-1]) {
		t.Fatalf("expected min and max bars in sparkline, got %q", line)
	}
	if !strings.Contains(line, "min 0.00") || !strings.Contains(line, "max 10.00") {
		t.Fatalf("expected range labels, got %q", line)
	}
}

func TestApp_SparklineWithoutNumericHistory(t *testing.T) {
	a := testApp(nil)
	if got := a.sparkline("codec"); !strings.Contains(got, "no delta history") {
		t.Fatalf("expected placeholder for missing history, got %q", got)
	}
}

func TestApp_WatchReturnsAfterStop(t *testing.T) {
	a := testApp(nil)
	done := make(chan struct{})
	go func() {
		a.watch(context.Background())
		close(done)
	}()

	a.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("watch goroutine still running after Stop")
	}
	// Stop is safe to call more than once.
	a.Stop()
}
