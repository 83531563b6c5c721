package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Special values used by Mesonet data files.
const (
	// BadDataLimit starts the missing-value band: every integer from -990
	// down to and including -999 marks a missing measurement.
	BadDataLimit = -990
	badDataFloor = -999

	// FutureObservation marks rows pre-populated for times that have not
	// happened yet. The value sits inside the missing band, so those cells
	// are also flagged invalid; the raw value distinguishes the two cases.
	FutureObservation = -996
)

// IsMissing reports whether a raw value falls in the missing-value band.
func IsMissing(v float64) bool {
	return v >= badDataFloor && v <= BadDataLimit
}

// KnownFields lists every column code a Mesonet data file can carry, in file order.
var KnownFields = []string{
	"STID", "STNM", "TIME", "RELH", "TAIR", "WSPD", "WVEC", "WDIR",
	"WDSD", "WSSD", "WMAX", "RAIN", "PRES", "SRAD", "TA9M", "WS2M", "TS10",
	"TB10", "TS05", "TB05", "TS30", "TR05", "TR25", "TR60", "TR75",
}

// canonicalToRaw maps descriptive variable names to the station-file codes.
// Not every file code has a descriptive counterpart.
var canonicalToRaw = map[string]string{
	"temperature":       "TAIR",
	"relative humidity": "RELH",
	"wind speed":        "WSPD",
	"wind direction":    "WDIR",
	"rainfall":          "RAIN",
	"pressure":          "PRES",
	"site":              "STID",
	"solar radiation":   "SRAD",
	"wind gusts":        "WMAX",
}

// rawToCanonical is the inverse map, keyed by upper-cased file code.
var rawToCanonical = func() map[string]string {
	m := make(map[string]string, len(canonicalToRaw))
	for canonical, raw := range canonicalToRaw {
		m[raw] = canonical
	}
	return m
}()

// FieldUnits maps file codes to their measurement units.
var FieldUnits = map[string]string{
	"TAIR": "C",
	"RELH": "%",
	"PRES": "mb",
	"WSPD": "m/s",
	"SRAD": "W/m^2",
	"RAIN": "mm",
	"WDIR": "deg",
	"WMAX": "m/s",
}

// CanonicalName returns the descriptive name for a file code, matched
// case-insensitively. ok is false when the code has no mapping.
func CanonicalName(raw string) (string, bool) {
	name, ok := rawToCanonical[strings.ToUpper(raw)]
	return name, ok
}

// RawName returns the file code for a descriptive name.
func RawName(canonical string) (string, bool) {
	raw, ok := canonicalToRaw[canonical]
	return raw, ok
}

// RenameFields replaces file codes with their descriptive names wherever a
// mapping exists. Codes without a mapping keep their original name.
func RenameFields(t *Table) {
	for i := range t.Columns {
		if name, ok := CanonicalName(t.Columns[i].Name); ok {
			t.Columns[i].Name = name
		}
	}
}

// RenameTimeColumn renames the TIME column to "datetime". It only makes sense
// after time conversion has produced absolute timestamps; a table parsed with
// raw minutes keeps the TIME name.
func RenameTimeColumn(t *Table) {
	if c := t.Column("TIME"); c != nil && c.Kind == KindTime {
		c.Name = "datetime"
	}
}

// StationLocator resolves station IDs to coordinates. Implemented by
// station.Table.
type StationLocator interface {
	Lookup(ids []string) (lat, lon, elev []float64, err error)
}

// EnrichWithStationInfo appends latitude, longitude, and elevation columns
// looked up from the station-ID column. The STID column must still carry its
// raw name, so enrichment runs before RenameFields.
func EnrichWithStationInfo(t *Table, stations StationLocator) error {
	stid := t.Column("STID")
	if stid == nil {
		return errors.New("enrich station info: no STID column")
	}
	if stid.Kind != KindString {
		return errors.New("enrich station info: STID column is not a string column")
	}

	lat, lon, elev, err := stations.Lookup(stid.Strings)
	if err != nil {
		return fmt.Errorf("enrich station info: %w", err)
	}

	valid := make([]bool, len(lat))
	for i := range valid {
		valid[i] = true
	}
	for _, c := range []Column{
		{Name: "latitude", Kind: KindFloat, Floats: lat, Valid: valid},
		{Name: "longitude", Kind: KindFloat, Floats: lon, Valid: valid},
		{Name: "elevation", Kind: KindFloat, Floats: elev, Valid: valid},
	} {
		if err := t.AppendColumn(c); err != nil {
			return fmt.Errorf("enrich station info: %w", err)
		}
	}
	return nil
}

// LastObservedTime returns the timestamp of the last actual observation:
// the final row, in file order, whose refField raw value is not the
// future-observation sentinel. Rows are assumed to be in ascending time order,
// so the final matching row is also the latest. The comparison uses the raw
// value and ignores the validity flag, since future rows are part of the
// missing band.
func LastObservedTime(t *Table, refField, dtField string) (time.Time, error) {
	ref := t.Column(refField)
	if ref == nil {
		return time.Time{}, fmt.Errorf("last observed time: no %s column", refField)
	}
	if ref.Kind != KindFloat {
		return time.Time{}, fmt.Errorf("last observed time: %s is not a numeric column", refField)
	}
	dt := t.Column(dtField)
	if dt == nil {
		return time.Time{}, fmt.Errorf("last observed time: no %s column", dtField)
	}
	if dt.Kind != KindTime {
		return time.Time{}, fmt.Errorf("last observed time: %s is not a time column", dtField)
	}

	last := -1
	for i, v := range ref.Floats {
		if v != FutureObservation {
			last = i
		}
	}
	if last < 0 {
		return time.Time{}, errors.New("last observed time: no actual observations")
	}
	return dt.Times[last], nil
}
