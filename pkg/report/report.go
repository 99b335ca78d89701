// Package report renders the shaped tables into one self-contained HTML
// dashboard. Charts are inlined as SVG and styles are embedded, so the
// output file needs no network access to view. Rendering is deterministic:
// the timestamp shown on the page is the snapshot's fetch time, never the
// wall clock, so re-rendering unchanged data reproduces the file byte for
// byte.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"chargedash/pkg/shape"
)

// Meta carries the page-level values that are not derived from the tables.
type Meta struct {
	Title     string
	FetchedAt time.Time
}

type card struct {
	Label string
	Value string
}

type section struct {
	Heading string
	Charts  []template.HTML
	Cards   []card
}

type page struct {
	Title     string
	FetchedAt string
	Cards     []card
	Sections  []section
}

// summaryCards builds the headline card row. Cards whose data is absent are
// omitted rather than rendered as zeros.
func summaryCards(t shape.Tables) []card {
	var cards []card
	s := t.Summary
	if s.TotalDays > 0 {
		cards = append(cards,
			card{"Total", shape.FormatKWh(s.TotalKWh)},
			card{"Daily Avg", shape.FormatKWh(s.DailyAvgKWh)},
			card{"Charging Days", fmt.Sprintf("%d / %d", s.ChargingDays, s.TotalDays)},
			card{"Peak Day", shape.FormatKWh(s.PeakDayKWh)},
			card{"Supercharger", shape.FormatKWh(s.SuperchargerKWh)},
		)
	}
	if s.SessionCount > 0 {
		cards = append(cards,
			card{"SC Sessions", shape.FormatInt(s.SessionCount)},
			card{"SC Cost", shape.FormatMoney(s.SessionCost)},
		)
	}
	return cards
}

// sessionCards renders a single Supercharger session as a compact card row,
// used instead of sparse one-point charts.
func sessionCards(t shape.Tables) []card {
	s := t.Sessions[0]
	cards := []card{
		{"Location", s.Location},
		{"Date", s.StartTime.Format("Jan 02, 2006")},
		{"Energy", shape.FormatKWh(s.EnergyKWh)},
		{"Cost", shape.FormatMoney(s.Cost)},
	}
	if s.Duration > 0 {
		cards = append(cards, card{"Duration", shape.FormatMinutes(s.Duration.Minutes())})
	}
	if s.EnergyKWh > 0 {
		cards = append(cards, card{"Rate", fmt.Sprintf("$%.3f/kWh", s.Cost/s.EnergyKWh)})
	}
	return cards
}

// dailySections builds the chart sections derived from the daily history.
// Time-series charts need at least two days to draw a meaningful line.
func dailySections(t shape.Tables) ([]section, error) {
	if len(t.Daily) < 2 {
		return nil, nil
	}
	var overview section
	overview.Heading = "Overview"
	for _, build := range []func() (template.HTML, error){
		func() (template.HTML, error) { return dailyChart(t.Daily) },
		func() (template.HTML, error) { return sourceDonut(t.Sources) },
	} {
		svg, err := build()
		if err != nil {
			return nil, err
		}
		if svg != "" {
			overview.Charts = append(overview.Charts, svg)
		}
	}

	var trends section
	trends.Heading = "Trends & Patterns"
	for _, build := range []func() (template.HTML, error){
		func() (template.HTML, error) { return cumulativeChart(t.Daily) },
		func() (template.HTML, error) { return weekdayChart(t.Weekdays) },
	} {
		svg, err := build()
		if err != nil {
			return nil, err
		}
		trends.Charts = append(trends.Charts, svg)
	}
	return []section{overview, trends}, nil
}

// sessionSections builds the Supercharger analysis sections.
func sessionSections(t shape.Tables) ([]section, error) {
	if len(t.Sessions) == 0 {
		return nil, nil
	}
	if len(t.Sessions) < 2 {
		return []section{{Heading: "Latest Supercharger Session", Cards: sessionCards(t)}}, nil
	}

	var analysis section
	analysis.Heading = "Supercharger Analysis"
	builders := []func() (template.HTML, error){
		func() (template.HTML, error) { return sessionEnergyChart(t.Sessions) },
		func() (template.HTML, error) { return sessionCostChart(t.Sessions) },
		func() (template.HTML, error) { return costEfficiencyChart(t.Sessions) },
	}
	if len(t.Durations) > 0 {
		builders = append(builders, func() (template.HTML, error) { return durationChart(t.Durations) })
	}
	if len(t.Monthly) > 0 {
		builders = append(builders, func() (template.HTML, error) { return monthlyChart(t.Monthly) })
	}
	if len(t.Locations) > 0 {
		builders = append(builders, func() (template.HTML, error) { return locationChart(t.Locations) })
	}
	for _, build := range builders {
		svg, err := build()
		if err != nil {
			return nil, err
		}
		analysis.Charts = append(analysis.Charts, svg)
	}
	return []section{analysis}, nil
}

// Render produces the complete dashboard document.
func Render(t shape.Tables, meta Meta) ([]byte, error) {
	p := page{
		Title:     meta.Title,
		FetchedAt: meta.FetchedAt.UTC().Format("2006-01-02 15:04 MST"),
		Cards:     summaryCards(t),
	}

	daily, err := dailySections(t)
	if err != nil {
		return nil, fmt.Errorf("rendering daily charts: %w", err)
	}
	p.Sections = append(p.Sections, daily...)

	sessions, err := sessionSections(t)
	if err != nil {
		return nil, fmt.Errorf("rendering session charts: %w", err)
	}
	p.Sections = append(p.Sections, sessions...)

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes the rendered dashboard to path, creating the parent
// directory if needed and overwriting any prior file.
func WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

var pageTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body { background: #f4f5f7; color: #1f2430;
         font-family: Inter, -apple-system, BlinkMacSystemFont, sans-serif;
         padding: 24px; max-width: 1400px; margin: 0 auto; }
  h1 { font-size: 1.8rem; margin-bottom: 4px; }
  .subtitle { color: #6b7280; font-size: 0.85rem; margin-bottom: 24px; }
  h2 { font-size: 1.2rem; margin: 32px 0 12px; color: #374151; }
  .cards { display: grid; grid-template-columns: repeat(auto-fit, minmax(180px, 1fr));
           gap: 12px; margin-bottom: 24px; }
  .card { background: #ffffff; border-radius: 10px; padding: 16px 20px;
          border: 1px solid #e5e7eb; }
  .card-label { font-size: 0.75rem; text-transform: uppercase; letter-spacing: 0.05em;
                color: #6b7280; margin-bottom: 4px; }
  .card-value { font-size: 1.3rem; font-weight: 600; }
  .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(480px, 1fr));
          gap: 16px; }
  .chart { background: #ffffff; border-radius: 10px; padding: 12px;
           border: 1px solid #e5e7eb; overflow-x: auto; }
  .chart svg { max-width: 100%; height: auto; }
  .footer { text-align: center; color: #9ca3af; font-size: 0.75rem; margin-top: 40px; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="subtitle">Data as of {{.FetchedAt}}</p>
{{if .Cards}}<div class="cards">
{{range .Cards}}  <div class="card"><div class="card-label">{{.Label}}</div><div class="card-value">{{.Value}}</div></div>
{{end}}</div>
{{end}}{{range .Sections}}<h2>{{.Heading}}</h2>
{{if .Cards}}<div class="cards">
{{range .Cards}}  <div class="card"><div class="card-label">{{.Label}}</div><div class="card-value">{{.Value}}</div></div>
{{end}}</div>
{{end}}{{if .Charts}}<div class="grid">
{{range .Charts}}  <div class="chart">{{.}}</div>
{{end}}</div>
{{end}}{{end}}<p class="footer">Data from the Tesla API</p>
</body>
</html>
`))
