// Package station provides Oklahoma Mesonet station metadata from an embedded
// copy of the GEOMESO table, keyed by station ID for binary-search lookup.
package station

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// geomesoTable is a snapshot of http://www.mesonet.org/sites/geomeso.csv,
// comma-delimited with headerRows lines of preamble before the data.
//
//go:embed geomeso.csv
var geomesoTable string

// headerRows is the documented offset of the first data row.
const headerRows = 3

// ErrStationNotFound is returned by Lookup for an ID absent from the table.
var ErrStationNotFound = errors.New("station not found")

// Record holds the metadata kept for one station.
type Record struct {
	ID        string
	Latitude  float64
	Longitude float64
	Elevation float64
}

// Columns names the zero-based field positions of the values of interest in
// the GEOMESO table.
type Columns struct {
	ID, Lat, Lon, Elev int
}

// DefaultColumns matches the published GEOMESO layout.
var DefaultColumns = Columns{ID: 1, Lat: 7, Lon: 8, Elev: 9}

// Table is an immutable station lookup table, sorted by station ID.
type Table struct {
	records []Record
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
	defaultErr   error
)

// Default returns the process-wide table parsed from the embedded GEOMESO
// snapshot with DefaultColumns. The table is loaded once, on first use, and
// is read-only afterwards.
func Default() (*Table, error) {
	defaultOnce.Do(func() {
		defaultTable, defaultErr = Load(DefaultColumns)
	})
	return defaultTable, defaultErr
}

// Load parses the embedded station table, selecting fields per cols, and
// returns records sorted by station ID ascending. Sorted order is the
// precondition for Lookup's binary search.
func Load(cols Columns) (*Table, error) {
	lines := strings.Split(strings.TrimRight(geomesoTable, "\n"), "\n")
	if len(lines) <= headerRows {
		return nil, errors.New("station table: no data rows")
	}

	maxCol := cols.ID
	for _, c := range []int{cols.Lat, cols.Lon, cols.Elev} {
		if c > maxCol {
			maxCol = c
		}
	}

	records := make([]Record, 0, len(lines)-headerRows)
	for i, line := range lines[headerRows:] {
		fields := strings.Split(line, ",")
		if len(fields) <= maxCol {
			return nil, fmt.Errorf("station table: row %d has %d fields, need %d", i+1, len(fields), maxCol+1)
		}

		rec := Record{ID: strings.TrimSpace(fields[cols.ID])}
		var err error
		if rec.Latitude, err = parseField(fields, cols.Lat); err != nil {
			return nil, fmt.Errorf("station table: row %d latitude: %w", i+1, err)
		}
		if rec.Longitude, err = parseField(fields, cols.Lon); err != nil {
			return nil, fmt.Errorf("station table: row %d longitude: %w", i+1, err)
		}
		if rec.Elevation, err = parseField(fields, cols.Elev); err != nil {
			return nil, fmt.Errorf("station table: row %d elevation: %w", i+1, err)
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(a, b int) bool { return records[a].ID < records[b].ID })
	return &Table{records: records}, nil
}

func parseField(fields []string, idx int) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(fields[idx]), 64)
}

// Len returns the number of stations in the table.
func (t *Table) Len() int { return len(t.records) }

// Get returns the record for one station ID (case-insensitive).
func (t *Table) Get(id string) (Record, bool) {
	id = strings.ToUpper(strings.TrimSpace(id))
	i := sort.Search(len(t.records), func(i int) bool { return t.records[i].ID >= id })
	if i < len(t.records) && t.records[i].ID == id {
		return t.records[i], true
	}
	return Record{}, false
}

// Lookup resolves each input ID to its coordinates via binary search over the
// sorted IDs. An ID absent from the table fails the whole lookup with
// ErrStationNotFound rather than yielding a silent wrong match.
func (t *Table) Lookup(ids []string) (lat, lon, elev []float64, err error) {
	lat = make([]float64, len(ids))
	lon = make([]float64, len(ids))
	elev = make([]float64, len(ids))
	for i, id := range ids {
		rec, ok := t.Get(id)
		if !ok {
			return nil, nil, nil, fmt.Errorf("%w: %s", ErrStationNotFound, id)
		}
		lat[i] = rec.Latitude
		lon[i] = rec.Longitude
		elev[i] = rec.Elevation
	}
	return lat, lon, elev, nil
}
