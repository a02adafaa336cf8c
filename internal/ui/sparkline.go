package ui

import (
	"fmt"
	"strings"
)

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// sparkline renders the selected key's sum-delta history inside the chart
// time period as a unicode bar line with its value range.
func (a *App) sparkline(key string) string {
	var points []float64
	for _, p := range a.history {
		if d, ok := p.deltas[key]; ok {
			points = append(points, d)
		}
	}
	if len(points) == 0 {
		return "no delta history yet"
	}

	lo, hi := points[0], points[0]
	for _, p := range points {
		if p < lo {
			lo = p
		}
		if p > hi {
			hi = p
		}
	}

	var b strings.Builder
	for _, p := range points {
		i := 0
		if hi > lo {
			i = int((p - lo) / (hi - lo) * float64(len(sparkRunes)-1))
		}
		b.WriteRune(sparkRunes[i])
	}
	period := int(a.cfg.ChartTimePeriod.Seconds())
	return fmt.Sprintf("%s\nmin %.2f  max %.2f  (last %ds)", b.String(), lo, hi, period)
}
