package analysis

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/rewired-gh/tempwatch/internal/models"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// median returns the middle value, averaging the two central values for even n.
// values must be non-empty; the input slice is not modified.
func median(values []float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// sampleStd is the standard deviation with an n-1 divisor. Requires len(values) >= 2.
func sampleStd(values []float64) float64 {
	return stat.StdDev(values, nil)
}

// band returns [center - k*spread, center + k*spread].
func band(center, spread, k float64) (low, high float64) {
	return center - k*spread, center + k*spread
}

// within reports whether low <= v <= high. Boundaries are inside.
func within(v, low, high float64) bool {
	return low <= v && v <= high
}

func unixSeconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

// fitTrend fits y = intercept + slope*x by ordinary least squares.
func fitTrend(x, y []float64) (intercept, slope float64, err error) {
	if len(x) < 2 {
		return 0, 0, fmt.Errorf("%w: need at least 2 points to fit a trend, got %d", models.ErrInsufficientData, len(x))
	}
	if floats.Min(x) == floats.Max(x) {
		return 0, 0, fmt.Errorf("%w: all %d points share one timestamp", models.ErrInsufficientData, len(x))
	}
	intercept, slope = stat.LinearRegression(x, y, nil, false)
	return intercept, slope, nil
}

// seasonalStats groups records by season and computes the median and sample
// std of raw temperatures. Seasons without records get no entry; a season
// with one record gets a NaN std.
func seasonalStats(records []models.SmoothedRecord) models.SeasonalStats {
	bySeason := make(map[models.Season][]float64)
	for _, r := range records {
		bySeason[r.Season] = append(bySeason[r.Season], r.RawTemperature)
	}

	result := make(models.SeasonalStats, len(bySeason))
	for season, temps := range bySeason {
		s := models.SeasonStats{
			Median: median(temps),
			Std:    math.NaN(),
			Count:  len(temps),
		}
		if len(temps) >= 2 {
			s.Std = sampleStd(temps)
		}
		result[season] = s
	}
	return result
}
