// Package models defines the core domain entities: raw temperature records,
// seasons, city summaries and anomaly verdicts.
package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Season is a calendar season label attached to every historical record.
type Season string

const (
	Spring Season = "spring"
	Summer Season = "summer"
	Autumn Season = "autumn"
	Winter Season = "winter"
)

// Seasons lists all seasons in calendar order starting from spring.
var Seasons = []Season{Spring, Summer, Autumn, Winter}

// SeasonForMonth maps a calendar month to its season.
// Months outside 1..12 are normalized modulo 12 so the mapping stays total.
func SeasonForMonth(month time.Month) Season {
	m := ((int(month)-1)%12+12)%12 + 1
	switch {
	case m >= 3 && m <= 5:
		return Spring
	case m >= 6 && m <= 8:
		return Summer
	case m >= 9 && m <= 11:
		return Autumn
	default:
		return Winter
	}
}

// ParseSeason converts a season label into a Season.
func ParseSeason(s string) (Season, error) {
	season := Season(strings.ToLower(strings.TrimSpace(s)))
	if !season.Valid() {
		return "", fmt.Errorf("%w: unknown season %q", ErrInvalidInput, s)
	}
	return season, nil
}

// Valid reports whether s is one of the four known seasons.
func (s Season) Valid() bool {
	switch s {
	case Spring, Summer, Autumn, Winter:
		return true
	}
	return false
}

func (s Season) String() string {
	return string(s)
}

// RawRecord is a single historical temperature observation for a city.
type RawRecord struct {
	City        string    `json:"city"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	Season      Season    `json:"season"`
}

// Validate checks record field constraints.
func (r *RawRecord) Validate() error {
	if r.City == "" {
		return fmt.Errorf("%w: city must not be empty", ErrInvalidInput)
	}
	if r.Timestamp.IsZero() {
		return fmt.Errorf("%w: timestamp must be set", ErrInvalidInput)
	}
	if math.IsNaN(r.Temperature) || math.IsInf(r.Temperature, 0) {
		return fmt.Errorf("%w: temperature must be a finite number", ErrInvalidInput)
	}
	if !r.Season.Valid() {
		return fmt.Errorf("%w: unknown season %q", ErrInvalidInput, r.Season)
	}
	return nil
}
