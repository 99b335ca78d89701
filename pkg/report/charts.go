package report

import (
	"bytes"
	"html/template"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"chargedash/pkg/api"
	"chargedash/pkg/shape"
)

const (
	chartWidth  = 640
	chartHeight = 360
)

var (
	colorAccent = drawing.ColorFromHex("3e6ae1")
	colorGreen  = drawing.ColorFromHex("22c55e")
	colorOrange = drawing.ColorFromHex("f59e0b")
	colorPurple = drawing.ColorFromHex("a855f7")
	colorTeal   = drawing.ColorFromHex("14b8a6")
)

// dailyChart plots the daily total with the 7-day rolling mean overlaid.
func dailyChart(daily []shape.DailyPoint) (template.HTML, error) {
	dates := make([]time.Time, len(daily))
	totals := make([]float64, len(daily))
	rolling := make([]float64, len(daily))
	for i, p := range daily {
		dates[i] = p.Date
		totals[i] = p.TotalKWh
		rolling[i] = p.Rolling7
	}
	graph := chart.Chart{
		Title:  "Daily Charging with 7-Day Average (kWh)",
		Width:  chartWidth,
		Height: chartHeight,
		XAxis:  chart.XAxis{ValueFormatter: chart.TimeDateValueFormatter},
		YAxis:  chart.YAxis{Range: flatRange(totals, rolling)},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Daily",
				XValues: dates,
				YValues: totals,
				Style: chart.Style{
					StrokeColor: colorAccent,
					StrokeWidth: 1.5,
					FillColor:   colorAccent.WithAlpha(48),
				},
			},
			chart.TimeSeries{
				Name:    "7-day avg",
				XValues: dates,
				YValues: rolling,
				Style: chart.Style{
					StrokeColor: colorOrange,
					StrokeWidth: 2.5,
				},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	return renderSVGChart(graph)
}

// flatRange returns an explicit axis range when every value across the
// given series is identical. go-chart cannot derive a range from flat data
// and fails the render, so all-zero days or zero-cost sessions need a fixed
// range. Returns nil when the data spans a range on its own.
func flatRange(series ...[]float64) chart.Range {
	var min, max float64
	first := true
	for _, s := range series {
		for _, v := range s {
			if first {
				min, max = v, v
				first = false
				continue
			}
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
	}
	if first || min != max {
		return nil
	}
	r := &chart.ContinuousRange{Min: 0, Max: 1}
	if max > 0 {
		r.Max = 2 * max
	}
	if min < 0 {
		r.Min = 2 * min
		r.Max = 0
	}
	return r
}

// Render on chart.Chart and chart.BarChart take an io.Writer; a small
// wrapper per type keeps the call sites uniform.
func renderSVGChart(graph chart.Chart) (template.HTML, error) {
	var buf bytes.Buffer
	if err := graph.Render(chart.SVG, &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

func renderSVGBarChart(graph chart.BarChart) (template.HTML, error) {
	var buf bytes.Buffer
	if err := graph.Render(chart.SVG, &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// sourceDonut shows the home/supercharger/other energy split. Sources with
// no energy are omitted.
func sourceDonut(totals shape.SourceTotals) (template.HTML, error) {
	var values []chart.Value
	for _, entry := range []struct {
		label string
		value float64
		color drawing.Color
	}{
		{"Home", totals.HomeKWh, colorGreen},
		{"Supercharger", totals.SuperchargerKWh, colorAccent},
		{"Other", totals.OtherKWh, colorOrange},
	} {
		if entry.value > 0 {
			values = append(values, chart.Value{
				Label: entry.label,
				Value: entry.value,
				Style: chart.Style{FillColor: entry.color},
			})
		}
	}
	if len(values) == 0 {
		return "", nil
	}
	graph := chart.DonutChart{
		Title:  "Charging Source Breakdown",
		Width:  chartWidth,
		Height: chartHeight,
		Values: values,
	}
	var buf bytes.Buffer
	if err := graph.Render(chart.SVG, &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// cumulativeChart plots the running energy total as a filled area.
func cumulativeChart(daily []shape.DailyPoint) (template.HTML, error) {
	dates := make([]time.Time, len(daily))
	values := make([]float64, len(daily))
	for i, p := range daily {
		dates[i] = p.Date
		values[i] = p.Cumulative
	}
	graph := chart.Chart{
		Title:  "Cumulative Energy Charged (kWh)",
		Width:  chartWidth,
		Height: chartHeight,
		XAxis:  chart.XAxis{ValueFormatter: chart.TimeDateValueFormatter},
		YAxis:  chart.YAxis{Range: flatRange(values)},
		Series: []chart.Series{
			chart.TimeSeries{
				XValues: dates,
				YValues: values,
				Style: chart.Style{
					StrokeColor: colorAccent,
					StrokeWidth: 2.5,
					FillColor:   colorAccent.WithAlpha(40),
				},
			},
		},
	}
	return renderSVGChart(graph)
}

// weekdayChart shows average daily charging per day of week, with the peak
// day highlighted.
func weekdayChart(weekdays []shape.WeekdayAverage) (template.HTML, error) {
	peak := 0.0
	for _, w := range weekdays {
		if w.AvgKWh > peak {
			peak = w.AvgKWh
		}
	}
	bars := make([]chart.Value, len(weekdays))
	values := make([]float64, len(weekdays))
	for i, w := range weekdays {
		color := colorTeal
		if peak > 0 && w.AvgKWh == peak {
			color = colorAccent
		}
		bars[i] = chart.Value{
			Label: w.Label,
			Value: w.AvgKWh,
			Style: chart.Style{FillColor: color},
		}
		values[i] = w.AvgKWh
	}
	graph := chart.BarChart{
		Title:    "Average Charging by Day of Week (kWh)",
		Width:    chartWidth,
		Height:   chartHeight,
		BarWidth: 48,
		YAxis:    chart.YAxis{Range: flatRange(values)},
		Bars:     bars,
	}
	return renderSVGBarChart(graph)
}

// monthlyChart shows Supercharger energy per calendar month.
func monthlyChart(monthly []shape.MonthlyTotal) (template.HTML, error) {
	bars := make([]chart.Value, len(monthly))
	values := make([]float64, len(monthly))
	for i, m := range monthly {
		bars[i] = chart.Value{
			Label: m.Month,
			Value: m.KWh,
			Style: chart.Style{FillColor: colorAccent},
		}
		values[i] = m.KWh
	}
	graph := chart.BarChart{
		Title:    "Monthly Supercharger Energy (kWh)",
		Width:    chartWidth,
		Height:   chartHeight,
		BarWidth: 40,
		YAxis:    chart.YAxis{Range: flatRange(values)},
		Bars:     bars,
	}
	return renderSVGBarChart(graph)
}

// locationChart shows the top Supercharger sites by total energy.
func locationChart(locations []shape.LocationTotal) (template.HTML, error) {
	bars := make([]chart.Value, len(locations))
	values := make([]float64, len(locations))
	for i, loc := range locations {
		bars[i] = chart.Value{
			Label: truncateLabel(loc.Location, 18),
			Value: loc.KWh,
			Style: chart.Style{FillColor: colorTeal},
		}
		values[i] = loc.KWh
	}
	graph := chart.BarChart{
		Title:    "Top Supercharger Locations (kWh)",
		Width:    2 * chartWidth,
		Height:   chartHeight,
		BarWidth: 36,
		YAxis:    chart.YAxis{Range: flatRange(values)},
		Bars:     bars,
	}
	return renderSVGBarChart(graph)
}

// sessionEnergyChart plots energy added per Supercharger session over time.
func sessionEnergyChart(sessions []api.SessionRecord) (template.HTML, error) {
	times := make([]time.Time, len(sessions))
	values := make([]float64, len(sessions))
	for i, s := range sessions {
		times[i] = s.StartTime
		values[i] = s.EnergyKWh
	}
	graph := chart.Chart{
		Title:  "Energy per Supercharger Session (kWh)",
		Width:  chartWidth,
		Height: chartHeight,
		XAxis:  chart.XAxis{ValueFormatter: chart.TimeDateValueFormatter},
		YAxis:  chart.YAxis{Range: flatRange(values)},
		Series: []chart.Series{
			chart.TimeSeries{
				XValues: times,
				YValues: values,
				Style: chart.Style{
					StrokeColor: colorAccent,
					StrokeWidth: 2,
					DotWidth:    4,
					DotColor:    colorAccent,
				},
			},
		},
	}
	return renderSVGChart(graph)
}

// sessionCostChart plots the cost of each Supercharger session over time.
func sessionCostChart(sessions []api.SessionRecord) (template.HTML, error) {
	times := make([]time.Time, len(sessions))
	values := make([]float64, len(sessions))
	for i, s := range sessions {
		times[i] = s.StartTime
		values[i] = s.Cost
	}
	graph := chart.Chart{
		Title:  "Cost per Supercharger Session ($)",
		Width:  chartWidth,
		Height: chartHeight,
		XAxis:  chart.XAxis{ValueFormatter: chart.TimeDateValueFormatter},
		YAxis:  chart.YAxis{Range: flatRange(values)},
		Series: []chart.Series{
			chart.TimeSeries{
				XValues: times,
				YValues: values,
				Style: chart.Style{
					StrokeColor: colorGreen,
					StrokeWidth: 2,
					DotWidth:    4,
					DotColor:    colorGreen,
				},
			},
		},
	}
	return renderSVGChart(graph)
}

// costEfficiencyChart plots session cost against energy added, one dot per
// session.
func costEfficiencyChart(sessions []api.SessionRecord) (template.HTML, error) {
	energies := make([]float64, len(sessions))
	costs := make([]float64, len(sessions))
	for i, s := range sessions {
		energies[i] = s.EnergyKWh
		costs[i] = s.Cost
	}
	graph := chart.Chart{
		Title:  "Session Cost vs Energy Added",
		Width:  chartWidth,
		Height: chartHeight,
		XAxis:  chart.XAxis{Name: "kWh", Range: flatRange(energies)},
		YAxis:  chart.YAxis{Name: "$", Range: flatRange(costs)},
		Series: []chart.Series{
			chart.ContinuousSeries{
				XValues: energies,
				YValues: costs,
				Style: chart.Style{
					StrokeWidth: chart.Disabled,
					DotWidth:    5,
					DotColor:    colorPurple,
				},
			},
		},
	}
	return renderSVGChart(graph)
}

func truncateLabel(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

// durationChart shows the session-duration histogram.
func durationChart(bins []shape.DurationBin) (template.HTML, error) {
	bars := make([]chart.Value, len(bins))
	values := make([]float64, len(bins))
	for i, bin := range bins {
		bars[i] = chart.Value{
			Label: bin.Label,
			Value: float64(bin.Count),
			Style: chart.Style{FillColor: colorPurple},
		}
		values[i] = float64(bin.Count)
	}
	graph := chart.BarChart{
		Title:    "Session Duration Distribution",
		Width:    chartWidth,
		Height:   chartHeight,
		BarWidth: 48,
		YAxis:    chart.YAxis{Range: flatRange(values)},
		Bars:     bars,
	}
	return renderSVGBarChart(graph)
}
