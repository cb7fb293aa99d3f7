// Package charts renders ledger reports as PNG images.
package charts

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"fintrack/internal/core"
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("no data to plot")

var statusColors = map[core.BudgetStatus]drawing.Color{
	core.StatusOnTrack:    chart.ColorGreen,
	core.StatusWarning:    chart.ColorOrange,
	core.StatusAtLimit:    chart.ColorRed.WithAlpha(160),
	core.StatusOverBudget: chart.ColorRed,
}

// BudgetChart draws one bar per budget with the percentage of the limit spent,
// colored by status.
func BudgetChart(progress []core.BudgetProgress) ([]byte, error) {
	if len(progress) == 0 {
		return nil, ErrNoData
	}

	top := 100.0
	bars := make([]chart.Value, 0, len(progress))
	for _, p := range progress {
		pct := p.PercentageSpent.InexactFloat64()
		if pct > top {
			top = pct
		}
		color, ok := statusColors[p.Status]
		if !ok {
			color = chart.ColorBlue
		}
		bars = append(bars, chart.Value{
			Label: fmt.Sprintf("%s (%.0f%%)", p.Budget.Name, pct),
			Value: pct,
			Style: chart.Style{
				StrokeColor: color,
				FillColor:   color,
				FontSize:    10,
				FontColor:   chart.ColorBlack,
			},
		})
	}

	graph := chart.BarChart{
		Title: "Budget usage",
		TitleStyle: chart.Style{
			FontSize:  14,
			FontColor: chart.ColorBlack,
		},
		Width:    max(600, 140*len(bars)),
		Height:   480,
		BarWidth: 60,
		Background: chart.Style{
			Padding:   chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 30},
			FillColor: chart.ColorWhite,
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: top * 1.1},
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%.0f%%", v.(float64))
			},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render budget chart: %w", err)
	}
	return buf.Bytes(), nil
}
