package chart

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rewired-gh/tempwatch/internal/analysis"
	"github.com/rewired-gh/tempwatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSummary(t *testing.T) *models.CitySummary {
	t.Helper()
	start := time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC)
	records := make([]models.RawRecord, 400)
	for i := range records {
		ts := start.AddDate(0, 0, i)
		temp := 12 + 10*math.Sin(2*math.Pi*float64(i)/365)
		// A two-week heat wave near the seasonal peak.
		if i >= 80 && i < 95 {
			temp += 25
		}
		records[i] = models.RawRecord{City: "Paris", Timestamp: ts, Temperature: temp, Season: models.SeasonForMonth(ts.Month())}
	}
	summary, err := analysis.Summarize(records, analysis.DefaultWindowSize)
	require.NoError(t, err)
	return summary
}

func assertNonEmptyFile(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestRenderCity(t *testing.T) {
	summary := testSummary(t)
	require.NotEmpty(t, summary.Outliers())

	dir := t.TempDir()
	for _, name := range []string{"paris.png", "nested/paris.svg"} {
		path := filepath.Join(dir, name)
		require.NoError(t, RenderCity(summary, path, DefaultSize))
		assertNonEmptyFile(t, path)
	}
}

func TestRenderCity_Empty(t *testing.T) {
	err := RenderCity(&models.CitySummary{City: "Nowhere"}, filepath.Join(t.TempDir(), "x.png"), DefaultSize)
	assert.Error(t, err)
}

func TestRenderSeason(t *testing.T) {
	summary := testSummary(t)
	verdict, err := analysis.Classify(31, summary.SeasonalStats, time.July)
	require.NoError(t, err)

	report := &models.Report{
		City:    "Paris",
		Current: models.CurrentReading{City: "Paris", TemperatureC: 31},
		Summary: summary,
		Verdict: verdict,
	}
	path := filepath.Join(t.TempDir(), "paris-summer.png")
	require.NoError(t, RenderSeason(report, path, Size{Width: DefaultSize.Width / 2, Height: DefaultSize.Height}))
	assertNonEmptyFile(t, path)
}

func TestRenderSeason_NoSeasonRecords(t *testing.T) {
	report := &models.Report{
		City:    "Paris",
		Summary: &models.CitySummary{City: "Paris"},
		Verdict: models.AnomalyVerdict{SeasonUsed: models.Winter},
	}
	assert.Error(t, RenderSeason(report, filepath.Join(t.TempDir(), "x.png"), DefaultSize))
}
