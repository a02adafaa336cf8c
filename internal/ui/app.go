package ui

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"soratop/internal/config"
	"soratop/internal/engine"
	"soratop/internal/stats"
)

// Viewer is the read side of the engine the UI consumes.
type Viewer interface {
	Latest() *engine.View
	Subscribe() <-chan struct{}
}

// App renders the latest aggregated snapshot: a status header, the
// cluster-wide sums with their per-second deltas, the per-connection values
// of the selected key, and a sparkline of that key's recent sum delta.
type App struct {
	app *tview.Application
	cfg *config.Config
	eng Viewer

	status    *tview.TextView
	help      *tview.TextView
	aggTable  *tview.Table
	connTable *tview.Table
	chart     *tview.TextView

	updates  <-chan struct{}
	quit     chan struct{}
	stopOnce sync.Once

	keys    []string
	history []histPoint
}

type histPoint struct {
	time   time.Time
	deltas map[string]float64
}

func New(eng Viewer, cfg *config.Config) *App {
	a := &App{
		app:     tview.NewApplication(),
		cfg:     cfg,
		eng:     eng,
		updates: eng.Subscribe(),
		quit:    make(chan struct{}),
	}

	a.status = tview.NewTextView().SetDynamicColors(true)
	a.status.SetBorder(true).SetTitle(" Status ")
	a.help = tview.NewTextView()
	a.help.SetText("Quit: 'q'\nMove: UP / DOWN, switch pane: LEFT / RIGHT")
	a.help.SetBorder(true).SetTitle(" Help ")

	a.aggTable = tview.NewTable().SetSelectable(true, false).SetFixed(1, 0)
	a.aggTable.SetBorder(true).SetTitle(" Aggregated Stats ")
	a.aggTable.SetSelectionChangedFunc(func(row, col int) { a.renderDetails() })

	a.connTable = tview.NewTable().SetSelectable(true, false).SetFixed(1, 0)
	a.connTable.SetBorder(true).SetTitle(" Values ")

	a.chart = tview.NewTextView().SetDynamicColors(true)
	a.chart.SetBorder(true).SetTitle(" Delta/s Chart ")

	header := tview.NewFlex().
		AddItem(a.status, 0, 1, false).
		AddItem(a.help, 0, 1, false)
	details := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.connTable, 0, 1, false).
		AddItem(a.chart, 0, 1, false)
	body := tview.NewFlex().
		AddItem(a.aggTable, 0, 1, true).
		AddItem(details, 0, 1, false)
	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(header, 5, 0, false).
		AddItem(body, 0, 1, true)

	a.app.SetRoot(root, true)
	a.app.SetInputCapture(a.handleKey)
	a.renderWaiting()
	return a
}

// Run drives the terminal until 'q', context cancellation, or Stop.
func (a *App) Run(ctx context.Context) error {
	go a.watch(ctx)
	return a.app.Run()
}

// Stop shuts the terminal down from any goroutine. The watch goroutine is
// released first so nothing queues updates into a stopped application.
func (a *App) Stop() {
	a.stopOnce.Do(func() { close(a.quit) })
	a.app.Stop()
}

func (a *App) watch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			a.Stop()
			return
		case <-a.quit:
			return
		case <-a.updates:
			a.app.QueueUpdateDraw(a.refresh)
		}
	}
}

func (a *App) handleKey(ev *tcell.EventKey) *tcell.EventKey {
	switch {
	case ev.Rune() == 'q':
		a.Stop()
		return nil
	case ev.Key() == tcell.KeyLeft:
		a.app.SetFocus(a.aggTable)
		return nil
	case ev.Key() == tcell.KeyRight:
		a.app.SetFocus(a.connTable)
		return nil
	}
	return ev
}

func (a *App) renderWaiting() {
	a.status.SetText(fmt.Sprintf("Source: %s (%s)\nwaiting for the first report...", a.cfg.Source, a.cfg.Mode))
}

func (a *App) refresh() {
	view := a.eng.Latest()
	if view == nil {
		return
	}
	a.pushHistory(view)
	a.keys = view.Aggregated.Keys()

	a.status.SetText(fmt.Sprintf(
		"Update Time: %s\nConnections: %5d (filter=%s)\nStats  Keys: %5d (filter=%s)",
		view.Time.Local().Format("2006-01-02T15:04:05.000-07:00"),
		view.Aggregated.ConnectionCount, filterLabel(a.cfg.ConnectionFilter),
		len(a.keys), filterLabel(a.cfg.StatsKeyFilter),
	))

	a.renderAggregated(view)
	a.renderDetails()
}

func (a *App) renderAggregated(view *engine.View) {
	selected, _ := a.aggTable.GetSelection()
	a.aggTable.Clear()
	for col, h := range []string{"Key", "Sum", "Delta/s"} {
		a.aggTable.SetCell(0, col, headerCell(h))
	}
	for i, key := range a.keys {
		field := view.Aggregated.Fields[key]
		a.aggTable.SetCell(i+1, 0, tview.NewTableCell(key).SetExpansion(3))
		a.aggTable.SetCell(i+1, 1, numberCell(field.Sum))
		a.aggTable.SetCell(i+1, 2, numberCell(view.Delta.Fields[key].Sum))
	}
	if len(a.keys) > 0 {
		if selected < 1 {
			selected = 1
		}
		if selected > len(a.keys) {
			selected = len(a.keys)
		}
		a.aggTable.Select(selected, 0)
	}
}

func (a *App) renderDetails() {
	view := a.eng.Latest()
	key := a.selectedKey()
	a.connTable.Clear()
	if view == nil || key == "" {
		a.connTable.SetTitle(" Values ")
		a.chart.SetText("")
		return
	}
	a.connTable.SetTitle(fmt.Sprintf(" Values of %q ", key))

	field := view.Aggregated.Fields[key]
	deltas := view.Delta.Fields[key]
	connIDs := make([]string, 0, len(field.Values))
	for id := range field.Values {
		connIDs = append(connIDs, id)
	}
	sort.Strings(connIDs)

	for col, h := range []string{"Connection ID", "Value", "Delta/s"} {
		a.connTable.SetCell(0, col, headerCell(h))
	}
	for i, id := range connIDs {
		a.connTable.SetCell(i+1, 0, tview.NewTableCell(id).SetExpansion(2))
		a.connTable.SetCell(i+1, 1, valueCell(field.Values[id]))
		a.connTable.SetCell(i+1, 2, numberCell(deltas.Values[id]))
	}

	a.chart.SetText(a.sparkline(key))
}

func (a *App) pushHistory(view *engine.View) {
	deltas := make(map[string]float64, len(view.Delta.Fields))
	for key, fd := range view.Delta.Fields {
		if d, ok := fd.Sum.Float(); ok {
			deltas[key] = d
		}
	}
	a.history = append(a.history, histPoint{time: view.Time, deltas: deltas})

	cutoff := view.Time.Add(-a.cfg.ChartTimePeriod)
	for len(a.history) > 0 && a.history[0].time.Before(cutoff) {
		a.history = a.history[1:]
	}
}

func (a *App) selectedKey() string {
	row, _ := a.aggTable.GetSelection()
	i := row - 1
	if i < 0 || i >= len(a.keys) {
		return ""
	}
	return a.keys[i]
}

func filterLabel(re *regexp.Regexp) string {
	if re == nil {
		return ".*"
	}
	return re.String()
}

func headerCell(text string) *tview.TableCell {
	return tview.NewTableCell(text).
		SetAttributes(tcell.AttrBold).
		SetSelectable(false)
}

func numberCell(v stats.Value) *tview.TableCell {
	text := v.String()
	if v.IsAbsent() {
		text = "-"
	}
	return tview.NewTableCell(text).SetAlign(tview.AlignRight).SetExpansion(1)
}

func valueCell(v stats.Value) *tview.TableCell {
	if _, ok := v.Float(); ok {
		return numberCell(v)
	}
	text := v.String()
	if v.IsAbsent() {
		text = "-"
	}
	return tview.NewTableCell(text).SetExpansion(1)
}
