// Package storage provides a SQLite-backed source of historical temperature records.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rewired-gh/tempwatch/internal/models"
	_ "modernc.org/sqlite"
)

// Storage wraps a SQLite database holding imported raw records.
type Storage struct {
	db *sql.DB
}

// Import describes one batch of records loaded into the store.
type Import struct {
	ID         string
	Source     string
	RowCount   int
	ImportedAt time.Time
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/tempwatch/records.db.
func New(dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "tempwatch", "records.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	s := &Storage{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS imports (
			id          TEXT PRIMARY KEY,
			source      TEXT NOT NULL,
			row_count   INTEGER NOT NULL,
			imported_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS records (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			import_id   TEXT NOT NULL REFERENCES imports(id) ON DELETE CASCADE,
			city        TEXT NOT NULL,
			ts          INTEGER NOT NULL,
			temperature REAL NOT NULL,
			season      TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_city_ts ON records(city, ts)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// ImportRecords stores records as one tagged batch and returns the batch.
// Every record is validated first; nothing is written if any record is invalid.
func (s *Storage) ImportRecords(source string, records []models.RawRecord) (*Import, error) {
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}

	imp := &Import{
		ID:         uuid.New().String(),
		Source:     source,
		RowCount:   len(records),
		ImportedAt: time.Now(),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`INSERT INTO imports (id, source, row_count, imported_at) VALUES (?,?,?,?)`,
		imp.ID, imp.Source, imp.RowCount, imp.ImportedAt.UnixNano()); err != nil {
		return nil, fmt.Errorf("failed to insert import: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO records (import_id, city, ts, temperature, season) VALUES (?,?,?,?,?)`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(imp.ID, r.City, r.Timestamp.UnixNano(), r.Temperature, string(r.Season)); err != nil {
			return nil, fmt.Errorf("failed to insert record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}
	return imp, nil
}

// Imports lists stored batches, newest first.
func (s *Storage) Imports() ([]Import, error) {
	rows, err := s.db.Query(`SELECT id, source, row_count, imported_at FROM imports ORDER BY imported_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query imports: %w", err)
	}
	defer rows.Close()

	var imports []Import
	for rows.Next() {
		var imp Import
		var importedAtNano int64
		if err := rows.Scan(&imp.ID, &imp.Source, &imp.RowCount, &importedAtNano); err != nil {
			return nil, fmt.Errorf("failed to scan import: %w", err)
		}
		imp.ImportedAt = time.Unix(0, importedAtNano)
		imports = append(imports, imp)
	}
	return imports, rows.Err()
}

// DeleteImport removes a batch and all of its records.
func (s *Storage) DeleteImport(id string) error {
	res, err := s.db.Exec(`DELETE FROM imports WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete import: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("import not found: %s", id)
	}
	return nil
}

// Cities returns the distinct city names in sorted order.
func (s *Storage) Cities() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT city FROM records ORDER BY city`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cities: %w", err)
	}
	defer rows.Close()

	cities := []string{}
	for rows.Next() {
		var city string
		if err := rows.Scan(&city); err != nil {
			return nil, fmt.Errorf("failed to scan city: %w", err)
		}
		cities = append(cities, city)
	}
	return cities, rows.Err()
}

// LoadCity returns all records of a city ordered by timestamp.
func (s *Storage) LoadCity(city string) ([]models.RawRecord, error) {
	rows, err := s.db.Query(`SELECT `+recordCols+` FROM records WHERE city = ? ORDER BY ts, id`, city)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []models.RawRecord
	for rows.Next() {
		r, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// LoadAll returns every record grouped by city, each city ordered by timestamp.
func (s *Storage) LoadAll() (map[string][]models.RawRecord, error) {
	cities, err := s.Cities()
	if err != nil {
		return nil, err
	}
	byCity := make(map[string][]models.RawRecord, len(cities))
	for _, city := range cities {
		records, err := s.LoadCity(city)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", city, err)
		}
		byCity[city] = records
	}
	return byCity, nil
}

const recordCols = `city, ts, temperature, season`

func scanRecord(scan func(...any) error) (models.RawRecord, error) {
	var r models.RawRecord
	var tsNano int64
	var season string
	if err := scan(&r.City, &tsNano, &r.Temperature, &season); err != nil {
		return models.RawRecord{}, fmt.Errorf("failed to scan record: %w", err)
	}
	r.Timestamp = time.Unix(0, tsNano).UTC()
	parsed, err := models.ParseSeason(season)
	if err != nil {
		return models.RawRecord{}, fmt.Errorf("stored record for %s: %w", r.City, err)
	}
	r.Season = parsed
	return r, nil
}
