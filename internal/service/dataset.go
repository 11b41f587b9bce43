package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-transit/internal/config"
	"github.com/joeblew999/plat-transit/internal/coverage"
	"github.com/joeblew999/plat-transit/internal/db"
	"github.com/joeblew999/plat-transit/internal/geo"
	"github.com/joeblew999/plat-transit/internal/quality"
	"github.com/joeblew999/plat-transit/internal/stops"
)

const (
	populationTable = "population"
	stopsTable      = "stops"
)

// statpopTotal matches the STATPOP resident total column, e.g. B22BTOT.
var statpopTotal = regexp.MustCompile(`^b\d\dbtot$`)

// DatasetService serves population cells and transit stops from DuckDB.
type DatasetService struct {
	db      *sql.DB
	dataDir string
	files   config.DatasetConfig

	mu       sync.RWMutex
	cells    []PopulationCell
	stops    []stops.Stop
	popErr   error
	stopsErr error
}

// NewDatasetService creates a dataset service. Call Load before serving.
func NewDatasetService(conn *sql.DB, dataDir string, files config.DatasetConfig) *DatasetService {
	return &DatasetService{
		db:       conn,
		dataDir:  dataDir,
		files:    files,
		popErr:   ErrNoDataset,
		stopsErr: ErrNoDataset,
	}
}

// Load (re)imports both datasets. A missing file leaves that dataset empty
// and is reported in the status, not as an error.
func (s *DatasetService) Load(ctx context.Context) DatasetStatus {
	cells, popErr := s.loadPopulation(ctx)
	all, stopsErr := s.loadStops(ctx)

	s.mu.Lock()
	s.cells, s.popErr = cells, popErr
	s.stops, s.stopsErr = all, stopsErr
	s.mu.Unlock()

	if popErr != nil {
		log.Printf("[dataset] population: %v", popErr)
	}
	if stopsErr != nil {
		log.Printf("[dataset] stops: %v", stopsErr)
	}
	return s.Status()
}

// Status reports what is currently loaded.
func (s *DatasetService) Status() DatasetStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := DatasetStatus{PopulationCells: len(s.cells), Stops: len(s.stops)}
	if s.popErr != nil {
		st.PopulationError = s.popErr.Error()
	}
	if s.stopsErr != nil {
		st.StopsError = s.stopsErr.Error()
	}
	return st
}

func (s *DatasetService) path(rel string) string {
	if rel == "" || filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(s.dataDir, rel)
}

func (s *DatasetService) loadPopulation(ctx context.Context) ([]PopulationCell, error) {
	if s.db == nil {
		return nil, errors.New("database not available")
	}
	path := s.path(s.files.PopulationCSV)
	if path == "" {
		return nil, ErrNoDataset
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDataset, err)
	}
	if err := db.LoadCSV(ctx, s.db, populationTable, path); err != nil {
		return nil, err
	}
	cols, err := db.Columns(ctx, s.db, populationTable)
	if err != nil {
		return nil, err
	}

	switch {
	case slices.Contains(cols, "lat") && slices.Contains(cols, "lng"):
		return s.queryCells(ctx, cols)
	case slices.Contains(cols, "e_koord") && slices.Contains(cols, "n_koord"):
		return s.queryStatpop(ctx, cols)
	}
	return nil, fmt.Errorf("population columns %v: need lat/lng or E_KOORD/N_KOORD", cols)
}

// queryCells reads an export that is already in WGS84.
func (s *DatasetService) queryCells(ctx context.Context, cols []string) ([]PopulationCell, error) {
	pop, intensity := "NULL", "NULL"
	if slices.Contains(cols, "pop_actual") {
		pop = "pop_actual"
	}
	if slices.Contains(cols, "intensity") {
		intensity = "intensity"
	}
	if pop == "NULL" && intensity == "NULL" {
		return nil, fmt.Errorf("population columns %v: need pop_actual or intensity", cols)
	}

	q := fmt.Sprintf(`SELECT CAST(lat AS DOUBLE), CAST(lng AS DOUBLE),
		CAST(%s AS DOUBLE), CAST(%s AS DOUBLE) FROM %s`, pop, intensity, populationTable)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying population: %w", err)
	}
	defer rows.Close()

	var out []PopulationCell
	for rows.Next() {
		var lat, lng sql.NullFloat64
		var p, i sql.NullFloat64
		if err := rows.Scan(&lat, &lng, &p, &i); err != nil {
			return nil, err
		}
		if !lat.Valid || !lng.Valid {
			continue
		}
		c := PopulationCell{Lat: lat.Float64, Lng: lng.Float64}
		switch {
		case p.Valid && i.Valid:
			c.Population, c.Intensity = p.Float64, i.Float64
		case p.Valid:
			c.Population, c.Intensity = p.Float64, Intensity(p.Float64)
		default:
			c.Population, c.Intensity = i.Float64, i.Float64
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// queryStatpop reads a raw STATPOP export in LV95 and normalises it.
func (s *DatasetService) queryStatpop(ctx context.Context, cols []string) ([]PopulationCell, error) {
	total := ""
	for _, c := range cols {
		if statpopTotal.MatchString(c) {
			total = c
			break
		}
	}
	if total == "" {
		return nil, fmt.Errorf("population columns %v: no resident total column", cols)
	}

	q := fmt.Sprintf(`SELECT CAST(e_koord AS DOUBLE), CAST(n_koord AS DOUBLE), CAST(%s AS DOUBLE) FROM %s`,
		total, populationTable)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying population: %w", err)
	}
	defer rows.Close()

	var out []PopulationCell
	for rows.Next() {
		var e, n, pop float64
		if err := rows.Scan(&e, &n, &pop); err != nil {
			return nil, err
		}
		p := geo.ToWGS84(geo.Projected{E: e, N: n})
		out = append(out, PopulationCell{
			Lat:        p.Lat(),
			Lng:        p.Lon(),
			Intensity:  Intensity(pop),
			Population: pop,
		})
	}
	return out, rows.Err()
}

func (s *DatasetService) loadStops(ctx context.Context) ([]stops.Stop, error) {
	path := s.path(s.files.StopsGeoJSON)
	if path == "" {
		return nil, ErrNoDataset
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDataset, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	all := stops.FromCollection(fc)
	for i := range all {
		all[i].Category = quality.Classify(all[i])
	}
	if s.db != nil {
		if err := s.storeStops(ctx, all); err != nil {
			log.Printf("[dataset] stops table: %v", err)
		}
	}
	return all, nil
}

// storeStops mirrors the stops into DuckDB for ad-hoc queries.
func (s *DatasetService) storeStops(ctx context.Context, all []stops.Stop) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `CREATE OR REPLACE TABLE stops (
		number VARCHAR, name VARCHAR, lng DOUBLE, lat DOUBLE,
		rail INTEGER, tram_bus INTEGER, cable INTEGER, category INTEGER)`); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO stops VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, st := range all {
		if _, err := stmt.ExecContext(ctx, st.Number, st.Name, st.Location.Lon(), st.Location.Lat(),
			st.Rail, st.TramBus, st.Cable, st.Category); err != nil {
			return fmt.Errorf("inserting stop %s: %w", st.Number, err)
		}
	}
	return tx.Commit()
}

// Population returns the loaded cells.
func (s *DatasetService) Population() ([]PopulationCell, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.popErr != nil {
		return nil, s.popErr
	}
	return s.cells, nil
}

// Stops returns the loaded stops.
func (s *DatasetService) Stops() ([]stops.Stop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopsErr != nil {
		return nil, s.stopsErr
	}
	return s.stops, nil
}

// StopCollection returns the stops as a feature collection.
func (s *DatasetService) StopCollection() (*geojson.FeatureCollection, error) {
	all, err := s.Stops()
	if err != nil {
		return nil, err
	}
	fc := geojson.NewFeatureCollection()
	for _, st := range all {
		fc.Append(st.Feature())
	}
	return fc, nil
}

// Classify fills in the stop category of every point feature. Features that
// are not stops are passed through unchanged.
func Classify(fc *geojson.FeatureCollection) *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	if fc == nil {
		return out
	}
	for _, f := range fc.Features {
		st, err := stops.FromFeature(f)
		if err != nil {
			out.Append(f)
			continue
		}
		st.Category = quality.Classify(st)
		out.Append(st.Feature())
	}
	return out
}

// Cells returns the population as coverage cells.
func (s *DatasetService) Cells() ([]coverage.Cell, error) {
	pop, err := s.Population()
	if err != nil {
		return nil, err
	}
	cells := make([]coverage.Cell, len(pop))
	for i, p := range pop {
		cells[i] = coverage.Cell{Location: orb.Point{p.Lng, p.Lat}, Population: p.Population}
	}
	return cells, nil
}

// Coverage computes the share of population served by the loaded stops,
// plus any extra stops.
func (s *DatasetService) Coverage(extra []stops.Stop) (coverage.Result, error) {
	cells, err := s.Cells()
	if err != nil {
		return coverage.Result{}, err
	}
	all, err := s.Stops()
	if err != nil && len(extra) == 0 {
		return coverage.Result{}, err
	}
	return coverage.Calculate(cells, append(slices.Clone(all), extra...)), nil
}

// Files lists the CSV and GeoJSON files under the data directory's sources
// and assets folders.
func (s *DatasetService) Files() ([]DatasetFile, error) {
	roles := map[string]string{
		filepath.Clean(s.path(s.files.PopulationCSV)): "population",
		filepath.Clean(s.path(s.files.StopsGeoJSON)):  "stops",
		filepath.Clean(s.path(s.files.AgencyGeoJSON)): "agency",
	}
	extToType := map[string]string{
		".csv":     "CSV",
		".geojson": "GeoJSON",
		".json":    "GeoJSON",
	}

	files := []DatasetFile{}
	for _, dir := range []string{"sources", "assets"} {
		entries, err := os.ReadDir(filepath.Join(s.dataDir, dir))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			fileType, ok := extToType[strings.ToLower(filepath.Ext(entry.Name()))]
			if !ok {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			full := filepath.Join(s.dataDir, dir, entry.Name())
			files = append(files, DatasetFile{
				Name:     filepath.Join(dir, entry.Name()),
				Size:     formatSize(info.Size()),
				FileType: fileType,
				Role:     roles[filepath.Clean(full)],
			})
		}
	}
	return files, nil
}
