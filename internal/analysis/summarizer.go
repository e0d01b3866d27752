// Package analysis turns historical temperature records into per-city
// summaries and classifies live readings against seasonal baselines.
package analysis

import (
	"fmt"
	"slices"
	"sort"

	"github.com/rewired-gh/tempwatch/internal/models"
	"gonum.org/v1/gonum/floats"
)

const (
	// DefaultWindowSize is the length of the trailing moving average in records.
	DefaultWindowSize = 30

	// OutlierStdMultiplier sets the smoothed-series outlier band: median ± 2·std.
	OutlierStdMultiplier = 2.0

	// AnomalyStdMultiplier sets the live-reading tolerance band: median ± 1.5·std.
	// It is intentionally different from OutlierStdMultiplier.
	AnomalyStdMultiplier = 1.5
)

// Summarize computes the smoothed series, outlier flags, linear trend and
// seasonal statistics for a single city.
//
// Records are sorted by timestamp before windowing; the input slice is not
// modified. The first windowSize-1 records have no moving average and are
// dropped from the output entirely.
func Summarize(records []models.RawRecord, windowSize int) (*models.CitySummary, error) {
	if windowSize <= 0 {
		return nil, fmt.Errorf("%w: window size must be positive, got %d", models.ErrInvalidInput, windowSize)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no records", models.ErrInsufficientData)
	}

	city := records[0].City
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return nil, fmt.Errorf("record %d of %s: %w", i, city, err)
		}
		if records[i].City != city {
			return nil, fmt.Errorf("%w: record %d belongs to %q, expected %q", models.ErrInvalidInput, i, records[i].City, city)
		}
	}

	if len(records) < windowSize {
		return nil, fmt.Errorf("%w: %s has %d records, window size is %d", models.ErrInsufficientData, city, len(records), windowSize)
	}

	ordered := slices.Clone(records)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	window := newRollingWindow(windowSize)
	series := make([]models.SmoothedRecord, 0, len(ordered)-windowSize+1)
	for _, r := range ordered {
		window.push(r.Temperature)
		if !window.full() {
			continue
		}
		series = append(series, models.SmoothedRecord{
			Timestamp:      r.Timestamp,
			RawTemperature: r.Temperature,
			Smoothed:       window.mean(),
			Season:         r.Season,
		})
	}

	if len(series) < 2 {
		return nil, fmt.Errorf("%w: %s has %d smoothed record(s), need at least 2 to fit a trend", models.ErrInsufficientData, city, len(series))
	}

	smoothed := make([]float64, len(series))
	raw := make([]float64, len(series))
	xs := make([]float64, len(series))
	for i, r := range series {
		smoothed[i] = r.Smoothed
		raw[i] = r.RawTemperature
		xs[i] = unixSeconds(r.Timestamp)
	}

	intercept, slope, err := fitTrend(xs, raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", city, err)
	}

	med := median(smoothed)
	low, high := band(med, sampleStd(smoothed), OutlierStdMultiplier)

	for i := range series {
		series[i].IsOutlier = !within(series[i].Smoothed, low, high)
		series[i].TrendPrediction = intercept + slope*xs[i]
	}

	return &models.CitySummary{
		City:           city,
		WindowSize:     windowSize,
		Records:        series,
		SeasonalStats:  seasonalStats(series),
		MedianTemp:     med,
		MinTemp:        floats.Min(smoothed),
		MaxTemp:        floats.Max(smoothed),
		OutlierLow:     low,
		OutlierHigh:    high,
		TrendIntercept: intercept,
		TrendSlope:     slope,
	}, nil
}
