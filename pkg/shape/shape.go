// Package shape converts validated charging records into the derived tables
// the dashboard charts are built from. Every function here is a pure,
// deterministic transformation: no I/O, no clock reads, and identical input
// always yields identical output. Empty input produces empty tables and a
// zero-valued summary rather than an error.
package shape

import (
	"fmt"
	"sort"
	"time"

	"chargedash/pkg/api"
)

// DailyPoint is one day of the daily series with its derived columns.
type DailyPoint struct {
	Date            time.Time
	TotalKWh        float64
	HomeKWh         float64
	SuperchargerKWh float64
	OtherKWh        float64
	Cumulative      float64 // running total up to and including this day
	Rolling7        float64 // mean of the trailing 7 days (shorter at the start)
}

// SourceTotals sums energy by charging source over the whole period.
type SourceTotals struct {
	HomeKWh         float64
	SuperchargerKWh float64
	OtherKWh        float64
}

// WeekdayAverage is the mean daily total for one day of the week.
type WeekdayAverage struct {
	Label  string
	AvgKWh float64
}

// MonthlyTotal aggregates Supercharger sessions by calendar month.
type MonthlyTotal struct {
	Month string // YYYY-MM
	KWh   float64
	Cost  float64
}

// LocationTotal aggregates Supercharger sessions by site.
type LocationTotal struct {
	Location string
	KWh      float64
	Cost     float64
	Sessions int
}

// DurationBin is one bucket of the session-duration histogram.
type DurationBin struct {
	Label string
	Count int
}

// Summary holds the headline values shown in the dashboard cards.
type Summary struct {
	TotalKWh        float64
	DailyAvgKWh     float64
	ChargingDays    int
	TotalDays       int
	PeakDay         time.Time
	PeakDayKWh      float64
	SuperchargerKWh float64
	SessionCount    int
	SessionKWh      float64
	SessionCost     float64
}

// Tables is everything the renderer needs, shaped and sorted.
type Tables struct {
	Daily     []DailyPoint
	Sources   SourceTotals
	Weekdays  []WeekdayAverage // always Mon..Sun
	Monthly   []MonthlyTotal
	Locations []LocationTotal
	Durations []DurationBin
	Sessions  []api.SessionRecord
	Summary   Summary
}

// Build shapes the raw record slices into the full set of derived tables.
// Locations are capped at topN entries; topN <= 0 means no cap.
func Build(daily []api.DailyRecord, sessions []api.SessionRecord, topN int) Tables {
	t := Tables{
		Daily:     BuildDailySeries(daily),
		Sources:   SumBySource(daily),
		Weekdays:  WeekdayAverages(daily),
		Monthly:   MonthlyTotals(sessions),
		Locations: LocationTotals(sessions, topN),
		Durations: DurationHistogram(sessions),
		Sessions:  sortedSessions(sessions),
	}
	t.Summary = Summarize(daily, sessions)
	return t
}

// BuildDailySeries sorts the records by date and computes the cumulative
// total and the trailing 7-day mean for each day.
func BuildDailySeries(records []api.DailyRecord) []DailyPoint {
	points := make([]DailyPoint, 0, len(records))
	for _, r := range records {
		points = append(points, DailyPoint{
			Date:            r.Date,
			TotalKWh:        r.Total(),
			HomeKWh:         r.HomeKWh,
			SuperchargerKWh: r.SuperchargerKWh,
			OtherKWh:        r.OtherKWh,
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

	cumulative := 0.0
	for i := range points {
		cumulative += points[i].TotalKWh
		points[i].Cumulative = cumulative

		window := 0.0
		n := 0
		for j := i; j >= 0 && j > i-7; j-- {
			window += points[j].TotalKWh
			n++
		}
		points[i].Rolling7 = window / float64(n)
	}
	return points
}

// SumBySource totals energy across the period for each charging source.
func SumBySource(records []api.DailyRecord) SourceTotals {
	var totals SourceTotals
	for _, r := range records {
		totals.HomeKWh += r.HomeKWh
		totals.SuperchargerKWh += r.SuperchargerKWh
		totals.OtherKWh += r.OtherKWh
	}
	return totals
}

var weekdayLabels = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// WeekdayAverages computes the mean daily total per day of week. The result
// always has seven entries, Monday first, with zero values for days that
// never occur in the input.
func WeekdayAverages(records []api.DailyRecord) []WeekdayAverage {
	var sums [7]float64
	var counts [7]int
	for _, r := range records {
		// time.Weekday starts at Sunday; shift so Monday is index 0.
		idx := (int(r.Date.Weekday()) + 6) % 7
		sums[idx] += r.Total()
		counts[idx]++
	}
	averages := make([]WeekdayAverage, 7)
	for i := 0; i < 7; i++ {
		averages[i] = WeekdayAverage{Label: weekdayLabels[i]}
		if counts[i] > 0 {
			averages[i].AvgKWh = sums[i] / float64(counts[i])
		}
	}
	return averages
}

// MonthlyTotals sums session energy and cost per calendar month, sorted
// chronologically.
func MonthlyTotals(sessions []api.SessionRecord) []MonthlyTotal {
	byMonth := make(map[string]*MonthlyTotal)
	for _, s := range sessions {
		month := s.StartTime.Format("2006-01")
		entry, ok := byMonth[month]
		if !ok {
			entry = &MonthlyTotal{Month: month}
			byMonth[month] = entry
		}
		entry.KWh += s.EnergyKWh
		entry.Cost += s.Cost
	}
	totals := make([]MonthlyTotal, 0, len(byMonth))
	for _, entry := range byMonth {
		totals = append(totals, *entry)
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Month < totals[j].Month })
	return totals
}

// LocationTotals aggregates sessions per site, sorted by energy descending
// (name ascending on ties) and capped at topN entries.
func LocationTotals(sessions []api.SessionRecord, topN int) []LocationTotal {
	bySite := make(map[string]*LocationTotal)
	for _, s := range sessions {
		entry, ok := bySite[s.Location]
		if !ok {
			entry = &LocationTotal{Location: s.Location}
			bySite[s.Location] = entry
		}
		entry.KWh += s.EnergyKWh
		entry.Cost += s.Cost
		entry.Sessions++
	}
	totals := make([]LocationTotal, 0, len(bySite))
	for _, entry := range bySite {
		totals = append(totals, *entry)
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].KWh != totals[j].KWh {
			return totals[i].KWh > totals[j].KWh
		}
		return totals[i].Location < totals[j].Location
	})
	if topN > 0 && len(totals) > topN {
		totals = totals[:topN]
	}
	return totals
}

// durationBinEdges are the histogram bucket upper bounds in minutes; the
// last bucket is open-ended.
var durationBinEdges = []int{15, 30, 45, 60, 90, 120}

// DurationHistogram buckets session durations into fixed bins. Sessions
// without a known duration are excluded.
func DurationHistogram(sessions []api.SessionRecord) []DurationBin {
	bins := make([]DurationBin, len(durationBinEdges)+1)
	lower := 0
	for i, edge := range durationBinEdges {
		bins[i].Label = fmt.Sprintf("%d-%d min", lower, edge)
		lower = edge
	}
	bins[len(bins)-1].Label = fmt.Sprintf("%d+ min", lower)

	counted := 0
	for _, s := range sessions {
		if s.Duration <= 0 {
			continue
		}
		minutes := int(s.Duration.Minutes())
		idx := len(durationBinEdges)
		for i, edge := range durationBinEdges {
			if minutes < edge {
				idx = i
				break
			}
		}
		bins[idx].Count++
		counted++
	}
	if counted == 0 {
		return nil
	}
	return bins
}

// Summarize computes the headline card values. Empty input yields a
// zero-valued summary.
func Summarize(daily []api.DailyRecord, sessions []api.SessionRecord) Summary {
	var s Summary
	s.TotalDays = len(daily)
	for _, r := range daily {
		total := r.Total()
		s.TotalKWh += total
		s.SuperchargerKWh += r.SuperchargerKWh
		if total > 0 {
			s.ChargingDays++
		}
		if total > s.PeakDayKWh {
			s.PeakDayKWh = total
			s.PeakDay = r.Date
		}
	}
	if len(daily) > 0 {
		s.DailyAvgKWh = s.TotalKWh / float64(len(daily))
	}
	s.SessionCount = len(sessions)
	for _, session := range sessions {
		s.SessionKWh += session.EnergyKWh
		s.SessionCost += session.Cost
	}
	return s
}

func sortedSessions(sessions []api.SessionRecord) []api.SessionRecord {
	out := make([]api.SessionRecord, len(sessions))
	copy(out, sessions)
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}
