// Package dataset reads historical temperature records from CSV files.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rewired-gh/tempwatch/internal/models"
)

var requiredColumns = []string{"city", "timestamp", "temperature", "season"}

// timestampLayouts are tried in order when parsing the timestamp column.
var timestampLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// ParseTimestamp parses a date or date-time. Values without a zone are UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: malformed timestamp %q", models.ErrInvalidInput, s)
}

// ByCity is a set of records grouped by city name.
type ByCity map[string][]models.RawRecord

// Cities returns the city names in sorted order.
func (b ByCity) Cities() []string {
	cities := make([]string, 0, len(b))
	for city := range b {
		cities = append(cities, city)
	}
	sort.Strings(cities)
	return cities
}

// Len returns the total number of records.
func (b ByCity) Len() int {
	n := 0
	for _, records := range b {
		n += len(records)
	}
	return n
}

// RowError describes a data row that could not be parsed.
type RowError struct {
	Line int
	City string // empty when the city cell is blank
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// Rejected lists the rows dropped while reading, in file order.
type Rejected []RowError

// ByCity joins the row errors of each named city. Rows with a blank city
// cannot be attributed and are left out.
func (r Rejected) ByCity() map[string]error {
	grouped := make(map[string][]error)
	for _, e := range r {
		if e.City == "" {
			continue
		}
		grouped[e.City] = append(grouped[e.City], e)
	}
	result := make(map[string]error, len(grouped))
	for city, errs := range grouped {
		result[city] = errors.Join(errs...)
	}
	return result
}

// Unattributed returns the rows whose city cell is blank.
func (r Rejected) Unattributed() Rejected {
	var out Rejected
	for _, e := range r {
		if e.City == "" {
			out = append(out, e)
		}
	}
	return out
}

// ReadFile reads a CSV file with a header row containing at least
// city, timestamp, temperature and season columns.
func ReadFile(path string) (ByCity, Rejected, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open data file: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses CSV records and groups them by city, preserving file order
// within each city. A malformed row is reported in Rejected and reading
// continues; only an unreadable header or stream fails the whole input.
func Read(r io.Reader) (ByCity, Rejected, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("%w: empty CSV input", models.ErrInvalidInput)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, nil, fmt.Errorf("%w: missing column %q", models.ErrInvalidInput, col)
		}
	}
	reader.FieldsPerRecord = len(header)

	result := make(ByCity)
	var rejected Rejected
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, csv.ErrFieldCount) {
			rejected = append(rejected, RowError{
				Line: line,
				City: cell(row, index["city"]),
				Err:  fmt.Errorf("%w: expected %d fields, got %d", models.ErrInvalidInput, len(header), len(row)),
			})
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: line %d: %v", models.ErrInvalidInput, line, err)
		}

		record, err := parseRow(row, index)
		if err != nil {
			rejected = append(rejected, RowError{Line: line, City: cell(row, index["city"]), Err: err})
			continue
		}
		result[record.City] = append(result[record.City], record)
	}

	return result, rejected, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseRow(row []string, index map[string]int) (models.RawRecord, error) {
	ts, err := ParseTimestamp(row[index["timestamp"]])
	if err != nil {
		return models.RawRecord{}, err
	}

	rawTemp := strings.TrimSpace(row[index["temperature"]])
	temp, err := strconv.ParseFloat(rawTemp, 64)
	if err != nil {
		return models.RawRecord{}, fmt.Errorf("%w: malformed temperature %q", models.ErrInvalidInput, rawTemp)
	}

	season, err := models.ParseSeason(row[index["season"]])
	if err != nil {
		return models.RawRecord{}, err
	}

	record := models.RawRecord{
		City:        cell(row, index["city"]),
		Timestamp:   ts,
		Temperature: temp,
		Season:      season,
	}
	if err := record.Validate(); err != nil {
		return models.RawRecord{}, err
	}
	return record, nil
}
