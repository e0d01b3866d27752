package analysis

import (
	"fmt"
	"math"
	"time"

	"github.com/rewired-gh/tempwatch/internal/models"
)

// Classify decides whether currentTemp is anomalous for the season of month,
// using that season's historical raw-temperature median and std.
// A reading exactly on a threshold is not anomalous.
func Classify(currentTemp float64, stats models.SeasonalStats, month time.Month) (models.AnomalyVerdict, error) {
	if math.IsNaN(currentTemp) || math.IsInf(currentTemp, 0) {
		return models.AnomalyVerdict{}, fmt.Errorf("%w: current temperature must be finite", models.ErrInvalidInput)
	}

	season := models.SeasonForMonth(month)
	s, ok := stats[season]
	if !ok {
		return models.AnomalyVerdict{}, fmt.Errorf("%w: no historical records for %s", models.ErrNoSeasonalData, season)
	}
	if math.IsNaN(s.Std) || math.IsInf(s.Std, 0) {
		return models.AnomalyVerdict{}, fmt.Errorf("%w: %s spread is undefined", models.ErrNoSeasonalData, season)
	}
	if s.Std < 0 {
		return models.AnomalyVerdict{}, fmt.Errorf("%w: negative std %v for %s", models.ErrInvalidInput, s.Std, season)
	}

	low, high := band(s.Median, s.Std, AnomalyStdMultiplier)
	return models.AnomalyVerdict{
		IsAnomalous:   !within(currentTemp, low, high),
		SeasonUsed:    season,
		Median:        s.Median,
		ThresholdLow:  low,
		ThresholdHigh: high,
	}, nil
}
