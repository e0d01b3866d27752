package analysis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rewired-gh/tempwatch/internal/logger"
	"github.com/rewired-gh/tempwatch/internal/models"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers bounds the number of cities summarized concurrently.
const DefaultWorkers = 5

// CityFailure records why a city was left out of a batch.
type CityFailure struct {
	City string
	Err  error
}

func (f CityFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.City, f.Err)
}

func (f CityFailure) Unwrap() error {
	return f.Err
}

// BatchResult holds the summaries that succeeded and the cities that failed.
type BatchResult struct {
	Summaries map[string]*models.CitySummary
	Failures  []CityFailure
}

// Cities returns the summarized city names in sorted order.
func (b *BatchResult) Cities() []string {
	cities := make([]string, 0, len(b.Summaries))
	for city := range b.Summaries {
		cities = append(cities, city)
	}
	sort.Strings(cities)
	return cities
}

// Err joins all per-city failures, or returns nil when every city succeeded.
func (b *BatchResult) Err() error {
	if len(b.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(b.Failures))
	for i, f := range b.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Reject marks city as failed with err, dropping any summary it had.
// A city that already failed keeps one entry with both errors joined.
func (b *BatchResult) Reject(city string, err error) {
	delete(b.Summaries, city)
	logger.Warn("Skipping city %s: %v", city, err)
	for i := range b.Failures {
		if b.Failures[i].City == city {
			b.Failures[i].Err = errors.Join(b.Failures[i].Err, err)
			return
		}
	}
	b.Failures = append(b.Failures, CityFailure{City: city, Err: err})
	sort.Slice(b.Failures, func(i, j int) bool {
		return b.Failures[i].City < b.Failures[j].City
	})
}

// SummarizeAll runs Summarize for every city on at most workers goroutines.
// A failing city is reported in Failures and does not affect the others.
// Cities not yet started when ctx is cancelled fail with ctx.Err().
func SummarizeAll(ctx context.Context, recordsByCity map[string][]models.RawRecord, windowSize, workers int) *BatchResult {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	startTime := time.Now()

	cities := make([]string, 0, len(recordsByCity))
	for city := range recordsByCity {
		cities = append(cities, city)
	}
	sort.Strings(cities)

	type outcome struct {
		summary *models.CitySummary
		err     error
	}
	// One slot per city; each goroutine writes only its own slot.
	outcomes := make([]outcome, len(cities))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, city := range cities {
		i, city := i, city
		records := recordsByCity[city]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i].err = err
				return nil
			}
			summary, err := Summarize(records, windowSize)
			if err == nil && summary.City != city {
				err = fmt.Errorf("%w: records are for %q", models.ErrInvalidInput, summary.City)
				summary = nil
			}
			outcomes[i] = outcome{summary: summary, err: err}
			return nil
		})
	}
	_ = g.Wait()

	result := &BatchResult{Summaries: make(map[string]*models.CitySummary, len(cities))}
	for i, city := range cities {
		if outcomes[i].err != nil {
			logger.Warn("Skipping city %s: %v", city, outcomes[i].err)
			result.Failures = append(result.Failures, CityFailure{City: city, Err: outcomes[i].err})
			continue
		}
		result.Summaries[city] = outcomes[i].summary
	}

	logger.Info("Summarized %d cities (%d failed) in %v using %d workers",
		len(result.Summaries), len(result.Failures), time.Since(startTime), workers)

	return result
}
