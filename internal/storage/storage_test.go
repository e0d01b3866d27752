package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rewired-gh/tempwatch/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test storage: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testRecords(city string, start time.Time, temps ...float64) []models.RawRecord {
	records := make([]models.RawRecord, len(temps))
	for i, temp := range temps {
		ts := start.AddDate(0, 0, i)
		records[i] = models.RawRecord{
			City:        city,
			Timestamp:   ts,
			Temperature: temp,
			Season:      models.SeasonForMonth(ts.Month()),
		}
	}
	return records
}

func TestStorage_ImportAndLoadCity(t *testing.T) {
	s := newTestStorage(t)
	start := time.Date(2015, time.February, 27, 0, 0, 0, 0, time.UTC)
	records := testRecords("Paris", start, 4.5, 5.0, 7.25)

	imp, err := s.ImportRecords("test.csv", records)
	if err != nil {
		t.Fatalf("ImportRecords: %v", err)
	}
	if imp.ID == "" || imp.RowCount != 3 {
		t.Errorf("unexpected import: %+v", imp)
	}

	got, err := s.LoadCity("Paris")
	if err != nil {
		t.Fatalf("LoadCity: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	for i := range got {
		if !got[i].Timestamp.Equal(records[i].Timestamp) || got[i].Temperature != records[i].Temperature || got[i].Season != records[i].Season {
			t.Errorf("record %d: got %+v, want %+v", i, got[i], records[i])
		}
	}
	if got[2].Season != models.Spring {
		t.Errorf("March 1 should be spring, got %s", got[2].Season)
	}
}

func TestStorage_LoadCityOrdersByTimestamp(t *testing.T) {
	s := newTestStorage(t)
	start := time.Date(2015, time.July, 1, 0, 0, 0, 0, time.UTC)
	records := testRecords("Rome", start, 30, 31, 32)
	records[0], records[2] = records[2], records[0]

	if _, err := s.ImportRecords("unordered", records); err != nil {
		t.Fatalf("ImportRecords: %v", err)
	}
	got, err := s.LoadCity("Rome")
	if err != nil {
		t.Fatalf("LoadCity: %v", err)
	}
	if got[0].Temperature != 30 || got[2].Temperature != 32 {
		t.Errorf("records not ordered by timestamp: %+v", got)
	}
}

func TestStorage_LoadAllAndCities(t *testing.T) {
	s := newTestStorage(t)
	start := time.Date(2016, time.December, 30, 0, 0, 0, 0, time.UTC)
	if _, err := s.ImportRecords("a", testRecords("Tokyo", start, 5, 6)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ImportRecords("b", testRecords("Berlin", start, -1, -2, -3)); err != nil {
		t.Fatal(err)
	}

	cities, err := s.Cities()
	if err != nil {
		t.Fatalf("Cities: %v", err)
	}
	if len(cities) != 2 || cities[0] != "Berlin" || cities[1] != "Tokyo" {
		t.Errorf("Cities() = %v, want [Berlin Tokyo]", cities)
	}

	all, err := s.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all["Berlin"]) != 3 || len(all["Tokyo"]) != 2 {
		t.Errorf("unexpected grouping: Berlin=%d Tokyo=%d", len(all["Berlin"]), len(all["Tokyo"]))
	}
}

func TestStorage_ImportRejectsInvalidRecords(t *testing.T) {
	s := newTestStorage(t)
	records := testRecords("Oslo", time.Date(2017, time.March, 1, 0, 0, 0, 0, time.UTC), 1, 2)
	records[1].Season = "monsoon"

	if _, err := s.ImportRecords("bad", records); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	got, err := s.LoadCity("Oslo")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("invalid import must not write records, found %d", len(got))
	}
}

func TestStorage_DeleteImportCascades(t *testing.T) {
	s := newTestStorage(t)
	start := time.Date(2018, time.October, 1, 0, 0, 0, 0, time.UTC)
	first, err := s.ImportRecords("first", testRecords("Lima", start, 18, 19))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.ImportRecords("second", testRecords("Lima", start.AddDate(0, 0, 2), 20)); err != nil {
		t.Fatal(err)
	}

	imports, err := s.Imports()
	if err != nil {
		t.Fatalf("Imports: %v", err)
	}
	if len(imports) != 2 {
		t.Fatalf("expected 2 imports, got %d", len(imports))
	}

	if err := s.DeleteImport(first.ID); err != nil {
		t.Fatalf("DeleteImport: %v", err)
	}
	got, _ := s.LoadCity("Lima")
	if len(got) != 1 || got[0].Temperature != 20 {
		t.Errorf("expected only the second batch to remain, got %+v", got)
	}

	if err := s.DeleteImport("nonexistent"); err == nil {
		t.Error("expected error for missing import")
	}
}

func TestStorage_FileBacked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "records.db")
	s, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	start := time.Date(2019, time.June, 1, 0, 0, 0, 0, time.UTC)
	if _, err := s.ImportRecords("file", testRecords("Delhi", start, 35)); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.LoadCity("Delhi")
	if err != nil || len(got) != 1 {
		t.Errorf("expected persisted record, got %v (err %v)", got, err)
	}
}

func TestNew_FailsOnUnusablePath(t *testing.T) {
	// A directory cannot hold a database; setup must fail without leaking the handle.
	dir := t.TempDir()
	s, err := New(dir)
	if err == nil {
		s.Close()
		t.Fatal("expected error when the database path is a directory")
	}
	if s != nil {
		t.Errorf("expected nil storage on error, got %+v", s)
	}
}

func TestStorage_LoadAllEmpty(t *testing.T) {
	s := newTestStorage(t)
	all, err := s.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("expected no cities, got %v", all)
	}
}
