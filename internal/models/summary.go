package models

import (
	"time"
)

// SmoothedRecord is a raw record enriched with the rolling mean, the outlier
// flag and the fitted trend value.
type SmoothedRecord struct {
	Timestamp       time.Time
	RawTemperature  float64
	Smoothed        float64
	IsOutlier       bool
	TrendPrediction float64
	Season          Season
}

// SeasonStats holds the raw-temperature baseline of one season.
// Std is NaN when the spread is undefined, i.e. the season has a single record.
// Count is informational.
type SeasonStats struct {
	Median float64
	Std    float64
	Count  int
}

// SeasonalStats maps a season to its baseline. Seasons without records have no entry.
type SeasonalStats map[Season]SeasonStats

// CitySummary is the full analysis result for one city.
type CitySummary struct {
	City          string
	WindowSize    int
	Records       []SmoothedRecord
	SeasonalStats SeasonalStats

	// Computed over the smoothed series.
	MedianTemp float64
	MinTemp    float64
	MaxTemp    float64

	// Outlier band of the smoothed series.
	OutlierLow  float64
	OutlierHigh float64

	// Trend line coefficients: temperature = TrendIntercept + TrendSlope*unixSeconds.
	TrendIntercept float64
	TrendSlope     float64
}

// Outliers returns the records flagged as outliers, in timestamp order.
func (s *CitySummary) Outliers() []SmoothedRecord {
	var out []SmoothedRecord
	for _, r := range s.Records {
		if r.IsOutlier {
			out = append(out, r)
		}
	}
	return out
}

// SeasonTemperatures returns the raw temperatures of the summarized records in a season.
func (s *CitySummary) SeasonTemperatures(season Season) []float64 {
	var temps []float64
	for _, r := range s.Records {
		if r.Season == season {
			temps = append(temps, r.RawTemperature)
		}
	}
	return temps
}

// AnomalyVerdict is the classification of a live reading against a seasonal baseline.
type AnomalyVerdict struct {
	IsAnomalous   bool
	SeasonUsed    Season
	Median        float64
	ThresholdLow  float64
	ThresholdHigh float64
}

// CurrentReading is a live temperature for a city, already converted to Celsius.
type CurrentReading struct {
	City         string
	TemperatureC float64
	FetchedAt    time.Time
}

// Report bundles everything the presentation layer renders for one check.
type Report struct {
	City    string
	Current CurrentReading
	Summary *CitySummary
	Verdict AnomalyVerdict
}
