package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/rewired-gh/tempwatch/internal/analysis"
	"github.com/rewired-gh/tempwatch/internal/chart"
	"github.com/rewired-gh/tempwatch/internal/checker"
	"github.com/rewired-gh/tempwatch/internal/config"
	"github.com/rewired-gh/tempwatch/internal/dataset"
	"github.com/rewired-gh/tempwatch/internal/logger"
	"github.com/rewired-gh/tempwatch/internal/models"
	"github.com/rewired-gh/tempwatch/internal/storage"
	"github.com/rewired-gh/tempwatch/internal/telegram"
	"github.com/rewired-gh/tempwatch/internal/weather"
)

var (
	configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")
	city       = flag.String("city", "", "City to check against its historical baseline")
	importCSV  = flag.String("import", "", "CSV file to import into the SQLite record store before analysis")

	listImports = flag.Bool("list-imports", false, "List import batches in the SQLite record store and exit")
	dropImport  = flag.String("drop-import", "", "Delete an import batch and its records from the SQLite record store and exit")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	if *listImports || *dropImport != "" {
		if err := manageImports(cfg.Data.DBPath, *listImports, *dropImport); err != nil {
			logger.Fatal("%v", err)
		}
		return
	}

	records, rejected, err := loadRecords(cfg, *importCSV)
	if err != nil {
		logger.Fatal("Failed to load historical records: %v", err)
	}
	logger.Info("Loaded historical records for %d cities", len(records))

	batch := analysis.SummarizeAll(ctx, records, cfg.Analysis.WindowSize, cfg.Analysis.Workers)
	for _, c := range sortedKeys(rejected) {
		batch.Reject(c, rejected[c])
	}
	if len(batch.Summaries) == 0 {
		logger.Fatal("No city could be summarized: %v", batch.Err())
	}

	if cfg.Chart.Enabled {
		renderCityCharts(batch, cfg.Chart.OutputDir)
	}

	weatherClient := weather.NewClient(cfg.Weather.BaseURL, cfg.Weather.APIKey, cfg.Weather.Timeout)
	chk := checker.New(batch, weatherClient)

	var telegramClient *telegram.Client
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	if *city != "" {
		runCheck(ctx, chk, *city, cfg, telegramClient)
	}

	if !cfg.Telegram.Listen {
		return
	}

	telegramClient.ListenForCommands(ctx, chk)
	logger.Info("Listening for Telegram commands for %d cities", len(chk.Cities()))
	<-ctx.Done()
	logger.Info("Service stopped")
}

// loadRecords reads historical records from the configured source. When
// importPath is set, that CSV is first imported into the SQLite store.
// Cities with malformed CSV rows are returned in rejected and left out of
// records, so one bad row fails only its own city.
func loadRecords(cfg *config.Config, importPath string) (records map[string][]models.RawRecord, rejected map[string]error, err error) {
	if importPath == "" && cfg.Data.Source == "csv" {
		return readCSV(cfg.Data.CSVPath)
	}

	store, err := storage.New(cfg.Data.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	if importPath != "" {
		byCity, bad, err := readCSV(importPath)
		if err != nil {
			return nil, nil, err
		}
		rejected = bad
		var all []models.RawRecord
		for _, c := range byCity.Cities() {
			all = append(all, byCity[c]...)
		}
		imp, err := store.ImportRecords(filepath.Base(importPath), all)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to import %s: %w", importPath, err)
		}
		logger.Info("Imported %d records from %s (import %s)", imp.RowCount, importPath, imp.ID)
	}

	cities, err := store.Cities()
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Record store holds %d cities: %s", len(cities), strings.Join(cities, ", "))

	records, err = store.LoadAll()
	if err != nil {
		return nil, nil, err
	}
	for c := range rejected {
		delete(records, c)
	}
	return records, rejected, nil
}

// readCSV reads a CSV file, dropping every city that has a malformed row.
func readCSV(path string) (dataset.ByCity, map[string]error, error) {
	byCity, bad, err := dataset.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	for _, row := range bad.Unattributed() {
		logger.Warn("Dropping row without a city in %s: %v", path, row)
	}
	rejected := bad.ByCity()
	for c := range rejected {
		delete(byCity, c)
	}
	logger.Info("Read %d records from %s (%d rows rejected)", byCity.Len(), path, len(bad))
	return byCity, rejected, nil
}

// manageImports lists or deletes import batches in the SQLite store.
func manageImports(dbPath string, list bool, dropID string) error {
	store, err := storage.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	if dropID != "" {
		if err := store.DeleteImport(dropID); err != nil {
			return err
		}
		logger.Info("Deleted import %s", dropID)
	}
	if !list {
		return nil
	}

	imports, err := store.Imports()
	if err != nil {
		return err
	}
	for _, imp := range imports {
		fmt.Printf("%s  %-30s %8d rows  %s\n", imp.ID, imp.Source, imp.RowCount, imp.ImportedAt.Format(time.RFC3339))
	}
	return nil
}

func sortedKeys(m map[string]error) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func renderCityCharts(batch *analysis.BatchResult, dir string) {
	for _, c := range batch.Cities() {
		path := filepath.Join(dir, chartName(c)+".png")
		if err := chart.RenderCity(batch.Summaries[c], path, chart.DefaultSize); err != nil {
			logger.Warn("Failed to render chart for %s: %v", c, err)
			continue
		}
		logger.Debug("Rendered %s", path)
	}
}

func runCheck(ctx context.Context, chk *checker.Checker, city string, cfg *config.Config, tg *telegram.Client) {
	report, err := chk.Check(ctx, city)
	if err != nil {
		logger.Error("Check for %s failed: %v", city, err)
		if tg != nil {
			if sendErr := tg.SendError(city, err); sendErr != nil {
				logger.Warn("Failed to send error notification to Telegram: %v", sendErr)
			}
		}
		return
	}

	printReport(report)

	if cfg.Chart.Enabled {
		path := filepath.Join(cfg.Chart.OutputDir, fmt.Sprintf("%s-%s.png", chartName(report.City), report.Verdict.SeasonUsed))
		if err := chart.RenderSeason(report, path, chart.Size{Width: chart.DefaultSize.Width / 2, Height: chart.DefaultSize.Height}); err != nil {
			logger.Warn("Failed to render season chart: %v", err)
		}
	}

	if tg != nil {
		if err := tg.SendReport(report); err != nil {
			logger.Error("Failed to send Telegram notification: %v", err)
		} else {
			logger.Info("Sent Telegram report for %s", report.City)
		}
	}
}

func printReport(r *models.Report) {
	status := "normal"
	if r.Verdict.IsAnomalous {
		status = "ANOMALOUS"
	}
	fmt.Printf("City:           %s\n", r.City)
	fmt.Printf("Current:        %.2f °C (%s)\n", r.Current.TemperatureC, status)
	fmt.Printf("Season:         %s\n", r.Verdict.SeasonUsed)
	fmt.Printf("Normal range:   %.2f .. %.2f °C (median %.2f)\n", r.Verdict.ThresholdLow, r.Verdict.ThresholdHigh, r.Verdict.Median)
	fmt.Printf("Historical:     median %.2f, min %.2f, max %.2f °C (smoothed)\n", r.Summary.MedianTemp, r.Summary.MinTemp, r.Summary.MaxTemp)
	fmt.Printf("Outlier days:   %d of %d\n", len(r.Summary.Outliers()), len(r.Summary.Records))
}

func chartName(city string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(city), " ", "_"))
}
