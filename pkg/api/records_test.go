package api

import (
	"encoding/json"
	"testing"
	"time"
)

const dailyFixture = `{
  "charging_history_graph": {
    "data_points": [
      {
        "timestamp": {"timestamp": {"seconds": 1704153600}},
        "values": [
          {"raw_value": 15000},
          {"raw_value": "10000"},
          {"raw_value": 5000},
          {"raw_value": null}
        ]
      },
      {
        "timestamp": {"timestamp": {"seconds": 1704067200}},
        "values": [{"raw_value": 8000}, {"raw_value": 8000}]
      },
      {
        "timestamp": {"timestamp": {"seconds": 0}},
        "values": [{"raw_value": 99999}]
      }
    ]
  }
}`

func TestParseDailyHistory(t *testing.T) {
	records, err := ParseDailyHistory(json.RawMessage(dailyFixture))
	if err != nil {
		t.Fatalf("parse: %s", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2 (zero-timestamp point dropped)", len(records))
	}
	// Sorted by date: 2024-01-01 before 2024-01-02.
	if !records[0].Date.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("first record date = %s", records[0].Date)
	}
	if !records[1].Date.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("second record date = %s", records[1].Date)
	}

	second := records[1]
	if second.TotalKWh != 15 || second.HomeKWh != 10 || second.SuperchargerKWh != 5 || second.OtherKWh != 0 {
		t.Errorf("Wh not converted to kWh: %+v", second)
	}
	if first := records[0]; first.Total() != 8 {
		t.Errorf("Total() = %f, want 8", first.Total())
	}
}

func TestParseDailyHistoryEmpty(t *testing.T) {
	records, err := ParseDailyHistory(nil)
	if err != nil || records != nil {
		t.Errorf("empty payload: records=%v err=%v", records, err)
	}
}

func TestParseDailyHistoryMalformed(t *testing.T) {
	if _, err := ParseDailyHistory(json.RawMessage(`{"charging_history_graph": [`)); err == nil {
		t.Error("expected error for truncated payload")
	}
}

const sessionFixture = `[
  {
    "chargeStartDateTime": "2024-02-10T08:30:00",
    "chargeStopDateTime": "2024-02-10T09:05:00",
    "siteLocationName": "Kettleman City, CA",
    "fees": [
      {"feeType": "PARKING", "usageBase": 0, "totalDue": 1.00},
      {"feeType": "CHARGING", "usageBase": "42.5", "totalDue": 17.85}
    ]
  },
  {
    "chargeStartDateTime": "2024-01-05T18:00:00Z",
    "chargeStopDateTime": "",
    "siteLocationName": "",
    "fees": []
  },
  {
    "chargeStartDateTime": "",
    "siteLocationName": "Never Seen"
  }
]`

func TestParseSessionHistory(t *testing.T) {
	records, err := ParseSessionHistory(json.RawMessage(sessionFixture))
	if err != nil {
		t.Fatalf("parse: %s", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2 (session without start time dropped)", len(records))
	}

	// Sorted by start time, so the January session is first.
	if records[0].Location != "Unknown" {
		t.Errorf("blank site name = %q, want Unknown", records[0].Location)
	}
	if records[0].Duration != 0 {
		t.Errorf("session without stop time has duration %s", records[0].Duration)
	}

	kettleman := records[1]
	if kettleman.Location != "Kettleman City, CA" {
		t.Errorf("location = %q", kettleman.Location)
	}
	if kettleman.EnergyKWh != 42.5 || kettleman.Cost != 17.85 {
		t.Errorf("CHARGING fee not extracted: %+v", kettleman)
	}
	if kettleman.Duration != 35*time.Minute {
		t.Errorf("duration = %s, want 35m", kettleman.Duration)
	}
}

func TestParseSessionHistoryWrappedPayload(t *testing.T) {
	raw := json.RawMessage(`{"data": [{"chargeStartDateTime": "2024-01-05T18:00:00Z"}]}`)
	records, err := ParseSessionHistory(raw)
	if err != nil {
		t.Fatalf("parse: %s", err)
	}
	if len(records) != 1 {
		t.Errorf("got %d records from wrapped payload, want 1", len(records))
	}
}

func TestParseSessionHistoryMalformed(t *testing.T) {
	if _, err := ParseSessionHistory(json.RawMessage(`"not a session list"`)); err == nil {
		t.Error("expected error for non-array payload")
	}
}

func TestFlexFloat(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{`12.5`, 12.5},
		{`"12.5"`, 12.5},
		{`null`, 0},
		{`""`, 0},
	}
	for _, c := range cases {
		var f flexFloat
		if err := json.Unmarshal([]byte(c.in), &f); err != nil {
			t.Errorf("unmarshal %s: %s", c.in, err)
			continue
		}
		if float64(f) != c.want {
			t.Errorf("flexFloat(%s) = %f, want %f", c.in, float64(f), c.want)
		}
	}
	var f flexFloat
	if err := json.Unmarshal([]byte(`"bogus"`), &f); err == nil {
		t.Error("expected error for non-numeric string")
	}
}
