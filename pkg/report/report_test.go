package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"chargedash/pkg/api"
	"chargedash/pkg/shape"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

var testMeta = Meta{
	Title:     "Tesla Charging Dashboard",
	FetchedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
}

func sampleTables() shape.Tables {
	daily := []api.DailyRecord{
		{Date: day("2024-01-01"), HomeKWh: 10},
		{Date: day("2024-01-02"), HomeKWh: 5},
	}
	sessions := []api.SessionRecord{
		{
			StartTime: time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC),
			EndTime:   time.Date(2024, 1, 2, 9, 40, 0, 0, time.UTC),
			Location:  "Kettleman City, CA",
			EnergyKWh: 42.5,
			Cost:      17.85,
			Duration:  40 * time.Minute,
		},
		{
			StartTime: time.Date(2024, 1, 10, 16, 0, 0, 0, time.UTC),
			EndTime:   time.Date(2024, 1, 10, 16, 25, 0, 0, time.UTC),
			Location:  "Harris Ranch, CA",
			EnergyKWh: 30,
			Cost:      12.60,
			Duration:  25 * time.Minute,
		},
	}
	return shape.Build(daily, sessions, 15)
}

func TestRenderShowsSummaryTotal(t *testing.T) {
	html, err := Render(sampleTables(), testMeta)
	if err != nil {
		t.Fatalf("render: %s", err)
	}
	page := string(html)
	// Two days of 10 and 5 kWh must surface as 15 in the summary card.
	if !strings.Contains(page, "15.0 kWh") {
		t.Error("summary total 15.0 kWh not found in page")
	}
	if !strings.Contains(page, "Tesla Charging Dashboard") {
		t.Error("title not found in page")
	}
	if !strings.Contains(page, "2024-06-01 12:00 UTC") {
		t.Error("fetch timestamp not found in page")
	}
	if !strings.Contains(page, "Kettleman City, CA") {
		t.Error("session location not found in page")
	}
}

func TestRenderIsSelfContained(t *testing.T) {
	html, err := Render(sampleTables(), testMeta)
	if err != nil {
		t.Fatalf("render: %s", err)
	}
	page := string(html)
	for _, forbidden := range []string{"<script src=", "http-equiv=\"refresh\"", "<link rel=\"stylesheet\" href="} {
		if strings.Contains(page, forbidden) {
			t.Errorf("page references an external resource: %s", forbidden)
		}
	}
	if !strings.Contains(page, "<svg") {
		t.Error("page contains no inline SVG charts")
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	tables := sampleTables()
	first, err := Render(tables, testMeta)
	if err != nil {
		t.Fatalf("render: %s", err)
	}
	second, err := Render(tables, testMeta)
	if err != nil {
		t.Fatalf("render: %s", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("identical input produced different pages")
	}
}

func TestRenderAllZeroDays(t *testing.T) {
	// An account with no charging in the window still gets a full page; a
	// flat series must not abort the render.
	daily := []api.DailyRecord{
		{Date: day("2024-01-01")},
		{Date: day("2024-01-02")},
		{Date: day("2024-01-03")},
	}
	html, err := Render(shape.Build(daily, nil, 15), testMeta)
	if err != nil {
		t.Fatalf("render of zero-energy days: %s", err)
	}
	if !strings.Contains(string(html), "<svg") {
		t.Error("page contains no charts for zero-energy days")
	}
}

func TestRenderZeroCostSessions(t *testing.T) {
	// Free Supercharging credits produce sessions whose cost is uniformly
	// zero; the cost series is flat but the page must still render.
	sessions := []api.SessionRecord{
		{
			StartTime: time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC),
			Location:  "Kettleman City, CA",
			EnergyKWh: 42.5,
			Duration:  40 * time.Minute,
		},
		{
			StartTime: time.Date(2024, 1, 10, 16, 0, 0, 0, time.UTC),
			Location:  "Harris Ranch, CA",
			EnergyKWh: 30,
			Duration:  25 * time.Minute,
		},
	}
	html, err := Render(shape.Build(nil, sessions, 15), testMeta)
	if err != nil {
		t.Fatalf("render of zero-cost sessions: %s", err)
	}
	if !strings.Contains(string(html), "Supercharger Analysis") {
		t.Error("session analysis section missing for zero-cost sessions")
	}
}

func TestRenderIncludesCostEfficiencyChart(t *testing.T) {
	html, err := Render(sampleTables(), testMeta)
	if err != nil {
		t.Fatalf("render: %s", err)
	}
	if !strings.Contains(string(html), "Session Cost vs Energy Added") {
		t.Error("cost-vs-energy scatter not found in page")
	}
}

func TestFlatRange(t *testing.T) {
	if r := flatRange([]float64{1, 2, 3}); r != nil {
		t.Errorf("range forced for varying data: %+v", r)
	}
	if r := flatRange(nil); r != nil {
		t.Errorf("range forced for empty data: %+v", r)
	}
	r := flatRange([]float64{0, 0, 0})
	if r == nil || r.GetMin() != 0 || r.GetMax() != 1 {
		t.Errorf("all-zero range = %+v, want [0, 1]", r)
	}
	r = flatRange([]float64{5, 5}, []float64{5})
	if r == nil || r.GetMin() != 0 || r.GetMax() != 10 {
		t.Errorf("flat positive range = %+v, want [0, 10]", r)
	}
}

func TestRenderEmptyTables(t *testing.T) {
	html, err := Render(shape.Build(nil, nil, 15), testMeta)
	if err != nil {
		t.Fatalf("render of empty tables: %s", err)
	}
	if !strings.Contains(string(html), "Tesla Charging Dashboard") {
		t.Error("empty page missing title")
	}
}

func TestRenderSingleSession(t *testing.T) {
	sessions := []api.SessionRecord{{
		StartTime: time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC),
		Location:  "Tejon Ranch, CA",
		EnergyKWh: 20,
		Cost:      8,
		Duration:  30 * time.Minute,
	}}
	html, err := Render(shape.Build(nil, sessions, 15), testMeta)
	if err != nil {
		t.Fatalf("render: %s", err)
	}
	page := string(html)
	if !strings.Contains(page, "Latest Supercharger Session") {
		t.Error("single-session heading not found")
	}
	if !strings.Contains(page, "Tejon Ranch, CA") {
		t.Error("session location not found")
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output", "dashboard.html")
	if err := WriteFile(path, []byte("<!DOCTYPE html>")); err != nil {
		t.Fatalf("write: %s", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %s", err)
	}
	if string(data) != "<!DOCTYPE html>" {
		t.Error("file content mismatch")
	}
}
