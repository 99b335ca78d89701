package api

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"chargedash/internal/log"
)

// DailyRecord is one day of aggregated charging, energy in kWh.
type DailyRecord struct {
	Date            time.Time
	TotalKWh        float64
	HomeKWh         float64
	SuperchargerKWh float64
	OtherKWh        float64
	Cost            float64
}

// Total returns the day's total energy, falling back to the sum of the
// per-source values when the aggregate field is absent from the payload.
func (r DailyRecord) Total() float64 {
	if r.TotalKWh > 0 {
		return r.TotalKWh
	}
	return r.HomeKWh + r.SuperchargerKWh + r.OtherKWh
}

// SessionRecord is a single Supercharger session.
type SessionRecord struct {
	StartTime time.Time
	EndTime   time.Time
	Location  string
	EnergyKWh float64
	Cost      float64
	Duration  time.Duration
}

// flexFloat decodes a JSON value that the API serves either as a number or
// as a quoted number. Null and the empty string decode to zero.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*f = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	if s == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid numeric value %s", data)
	}
	*f = flexFloat(v)
	return nil
}

// V1 payload: charging_history_graph.data_points[], with an epoch timestamp
// and a values array ordered total, home, supercharger, other. Energy values
// are reported in Wh.
type v1Payload struct {
	ChargingHistoryGraph struct {
		DataPoints []v1DataPoint `json:"data_points"`
	} `json:"charging_history_graph"`
}

type v1DataPoint struct {
	Timestamp struct {
		Timestamp struct {
			Seconds int64 `json:"seconds"`
		} `json:"timestamp"`
	} `json:"timestamp"`
	Values []struct {
		RawValue flexFloat `json:"raw_value"`
	} `json:"values"`
}

// ParseDailyHistory validates a raw V1 payload into DailyRecords. A payload
// that does not parse is an error; individual data points without a
// timestamp are dropped. Records are returned in date order.
func ParseDailyHistory(raw json.RawMessage) ([]DailyRecord, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var payload v1Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("malformed daily history payload: %w", err)
	}
	var records []DailyRecord
	dropped := 0
	for _, dp := range payload.ChargingHistoryGraph.DataPoints {
		epoch := dp.Timestamp.Timestamp.Seconds
		if epoch == 0 {
			dropped++
			continue
		}
		r := DailyRecord{Date: time.Unix(epoch, 0).UTC().Truncate(24 * time.Hour)}
		// raw_value is in Wh
		if len(dp.Values) > 0 {
			r.TotalKWh = float64(dp.Values[0].RawValue) / 1000.0
		}
		if len(dp.Values) > 1 {
			r.HomeKWh = float64(dp.Values[1].RawValue) / 1000.0
		}
		if len(dp.Values) > 2 {
			r.SuperchargerKWh = float64(dp.Values[2].RawValue) / 1000.0
		}
		if len(dp.Values) > 3 {
			r.OtherKWh = float64(dp.Values[3].RawValue) / 1000.0
		}
		records = append(records, r)
	}
	if dropped > 0 {
		log.Warning("Dropped %d daily data points without timestamps", dropped)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })
	return records, nil
}

// V2 payload: a flat array of session objects. Energy and cost live in the
// fees array, on the entry with feeType CHARGING.
type v2Session struct {
	ChargeStartDateTime string `json:"chargeStartDateTime"`
	ChargeStopDateTime  string `json:"chargeStopDateTime"`
	SiteLocationName    string `json:"siteLocationName"`
	Fees                []struct {
		FeeType   string    `json:"feeType"`
		UsageBase flexFloat `json:"usageBase"`
		TotalDue  flexFloat `json:"totalDue"`
	} `json:"fees"`
}

// sessionTimeLayouts covers the timestamp shapes the ownership API has been
// observed to serve.
var sessionTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func parseSessionTime(s string) (time.Time, bool) {
	for _, layout := range sessionTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ParseSessionHistory validates a raw V2 payload into SessionRecords. A
// payload that does not parse is an error; sessions without a usable start
// time are dropped. Records are returned sorted by start time.
func ParseSessionHistory(raw json.RawMessage) ([]SessionRecord, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var sessions []v2Session
	if err := json.Unmarshal(raw, &sessions); err != nil {
		// Some payload captures wrap the array in a data field.
		var wrapped struct {
			Data []v2Session `json:"data"`
		}
		if err2 := json.Unmarshal(raw, &wrapped); err2 != nil {
			return nil, fmt.Errorf("malformed session history payload: %w", err)
		}
		sessions = wrapped.Data
	}
	var records []SessionRecord
	dropped := 0
	for _, s := range sessions {
		start, ok := parseSessionTime(s.ChargeStartDateTime)
		if !ok {
			dropped++
			continue
		}
		r := SessionRecord{StartTime: start, Location: s.SiteLocationName}
		if r.Location == "" {
			r.Location = "Unknown"
		}
		if end, ok := parseSessionTime(s.ChargeStopDateTime); ok && end.After(start) {
			r.EndTime = end
			r.Duration = end.Sub(start)
		}
		for _, fee := range s.Fees {
			if fee.FeeType == "CHARGING" {
				r.EnergyKWh = float64(fee.UsageBase)
				r.Cost = float64(fee.TotalDue)
				break
			}
		}
		records = append(records, r)
	}
	if dropped > 0 {
		log.Warning("Dropped %d sessions without start times", dropped)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].StartTime.Before(records[j].StartTime) })
	return records, nil
}
