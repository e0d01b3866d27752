package models

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestSeasonForMonth(t *testing.T) {
	tests := []struct {
		month time.Month
		want  Season
	}{
		{time.January, Winter},
		{time.February, Winter},
		{time.March, Spring},
		{time.April, Spring},
		{time.May, Spring},
		{time.June, Summer},
		{time.July, Summer},
		{time.August, Summer},
		{time.September, Autumn},
		{time.October, Autumn},
		{time.November, Autumn},
		{time.December, Winter},
	}

	for _, tt := range tests {
		t.Run(tt.month.String(), func(t *testing.T) {
			if got := SeasonForMonth(tt.month); got != tt.want {
				t.Errorf("SeasonForMonth(%d) = %s, want %s", tt.month, got, tt.want)
			}
		})
	}
}

func TestSeasonForMonth_Total(t *testing.T) {
	counts := make(map[Season]int)
	for m := 1; m <= 12; m++ {
		s := SeasonForMonth(time.Month(m))
		if !s.Valid() {
			t.Fatalf("SeasonForMonth(%d) returned invalid season %q", m, s)
		}
		counts[s]++
	}
	for _, s := range Seasons {
		if counts[s] != 3 {
			t.Errorf("season %s covers %d months, want 3", s, counts[s])
		}
	}

	// Out-of-range months wrap instead of failing.
	if got := SeasonForMonth(13); got != Winter {
		t.Errorf("SeasonForMonth(13) = %s, want winter", got)
	}
	if got := SeasonForMonth(0); got != Winter {
		t.Errorf("SeasonForMonth(0) = %s, want winter", got)
	}
}

func TestParseSeason(t *testing.T) {
	tests := []struct {
		input   string
		want    Season
		wantErr bool
	}{
		{"spring", Spring, false},
		{"Summer", Summer, false},
		{" autumn ", Autumn, false},
		{"WINTER", Winter, false},
		{"fall", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSeason(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSeason(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseSeason(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRawRecordValidate(t *testing.T) {
	ts := time.Date(2023, time.July, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		record  RawRecord
		wantErr bool
	}{
		{
			name:   "valid record",
			record: RawRecord{City: "Paris", Timestamp: ts, Temperature: 21.5, Season: Summer},
		},
		{
			name:    "empty city",
			record:  RawRecord{Timestamp: ts, Temperature: 21.5, Season: Summer},
			wantErr: true,
		},
		{
			name:    "zero timestamp",
			record:  RawRecord{City: "Paris", Temperature: 21.5, Season: Summer},
			wantErr: true,
		},
		{
			name:    "NaN temperature",
			record:  RawRecord{City: "Paris", Timestamp: ts, Temperature: math.NaN(), Season: Summer},
			wantErr: true,
		},
		{
			name:    "unknown season",
			record:  RawRecord{City: "Paris", Timestamp: ts, Temperature: 21.5, Season: "monsoon"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("RawRecord.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestCitySummaryHelpers(t *testing.T) {
	ts := time.Date(2023, time.May, 30, 0, 0, 0, 0, time.UTC)
	s := &CitySummary{
		Records: []SmoothedRecord{
			{Timestamp: ts, RawTemperature: 18, Season: Spring},
			{Timestamp: ts.AddDate(0, 0, 1), RawTemperature: 19, Season: Spring, IsOutlier: true},
			{Timestamp: ts.AddDate(0, 0, 2), RawTemperature: 24, Season: Summer},
		},
	}

	if got := len(s.Outliers()); got != 1 {
		t.Errorf("Outliers() returned %d records, want 1", got)
	}
	if got := s.SeasonTemperatures(Spring); len(got) != 2 || got[0] != 18 || got[1] != 19 {
		t.Errorf("SeasonTemperatures(spring) = %v, want [18 19]", got)
	}
	if got := s.SeasonTemperatures(Winter); got != nil {
		t.Errorf("SeasonTemperatures(winter) = %v, want nil", got)
	}
}
