// Package checker answers a single "is it anomalous right now?" request for a city.
package checker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rewired-gh/tempwatch/internal/analysis"
	"github.com/rewired-gh/tempwatch/internal/logger"
	"github.com/rewired-gh/tempwatch/internal/models"
)

// ErrUnknownCity is returned for cities that have no summary.
var ErrUnknownCity = errors.New("unknown city")

// CurrentFetcher supplies the live temperature of a city.
type CurrentFetcher interface {
	FetchCurrent(ctx context.Context, city string) (*models.CurrentReading, error)
}

// Checker classifies live readings against precomputed city summaries.
// Summaries are read-only after construction, so Check is safe for concurrent use.
type Checker struct {
	summaries map[string]*models.CitySummary
	folded    map[string]string // lower-cased name to canonical name
	fetcher   CurrentFetcher
	now       func() time.Time
}

// New creates a Checker over the successful summaries of a batch.
func New(batch *analysis.BatchResult, fetcher CurrentFetcher) *Checker {
	summaries := make(map[string]*models.CitySummary, len(batch.Summaries))
	for city, s := range batch.Summaries {
		summaries[city] = s
	}
	// Names that differ only by case resolve to the first in sorted order.
	folded := make(map[string]string, len(summaries))
	for _, city := range batch.Cities() {
		key := strings.ToLower(city)
		if _, taken := folded[key]; !taken {
			folded[key] = city
		}
	}
	return &Checker{
		summaries: summaries,
		folded:    folded,
		fetcher:   fetcher,
		now:       time.Now,
	}
}

// Cities returns the cities that can be checked, sorted.
func (c *Checker) Cities() []string {
	cities := make([]string, 0, len(c.summaries))
	for city := range c.summaries {
		cities = append(cities, city)
	}
	sort.Strings(cities)
	return cities
}

// Summary returns the summary of a city. An exact match wins; otherwise
// lookup ignores case and surrounding spaces.
func (c *Checker) Summary(city string) (*models.CitySummary, error) {
	if s, ok := c.summaries[city]; ok {
		return s, nil
	}
	if name, ok := c.folded[strings.ToLower(strings.TrimSpace(city))]; ok {
		return c.summaries[name], nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCity, city)
}

// Check fetches the current temperature of city and classifies it against
// the historical baseline of the current month's season.
func (c *Checker) Check(ctx context.Context, city string) (*models.Report, error) {
	summary, err := c.Summary(city)
	if err != nil {
		return nil, err
	}

	reading, err := c.fetcher.FetchCurrent(ctx, summary.City)
	if err != nil {
		return nil, err
	}

	month := c.now().Month()
	verdict, err := analysis.Classify(reading.TemperatureC, summary.SeasonalStats, month)
	if err != nil {
		return nil, fmt.Errorf("classify %s: %w", summary.City, err)
	}

	logger.Info("%s: current %.2f°C, %s band [%.2f, %.2f], anomalous=%v",
		summary.City, reading.TemperatureC, verdict.SeasonUsed, verdict.ThresholdLow, verdict.ThresholdHigh, verdict.IsAnomalous)

	return &models.Report{
		City:    summary.City,
		Current: *reading,
		Summary: summary,
		Verdict: verdict,
	}, nil
}
