// Package domain models Oklahoma Mesonet observation data.
//
// # Data Source
//
// Observations come from two kinds of Mesonet text files, served from
// http://www.mesonet.org/public/data/getfile.php:
//
//	MDF — Mesonet Data File: a network-wide snapshot of every station at one
//	      timestamp, published on a five-minute cadence.
//	MTS — Mesonet Time Series: one station's observations across one calendar
//	      day, one row per five-minute sample.
//
// # File Format
//
// Both kinds share one layout:
//
//	line 1: free-form title
//	line 2: whitespace-separated tokens; positions 1-3 (0-indexed) are the
//	        year, month, and day of the file's reference date
//	line 3: whitespace-separated column codes (STID, TIME, TAIR, ...)
//	rest:   whitespace-delimited data rows, one per time sample
//
// The TIME column holds integer minutes since midnight of the reference date.
// With time conversion enabled the parser reconstructs absolute timestamps as
// referenceDate + minutes and the column is renamed "datetime".
//
// # Sentinel Values
//
// Missing measurements are encoded as one of ten consecutive integers counting
// down from -990 (-990 through -999 inclusive). Parsed cells in that band are
// flagged invalid but keep the raw sentinel for inspection.
//
// Files are pre-populated for the full day, so rows past real-world "now"
// carry the future-observation sentinel -996. [LastObservedTime] scans a
// reference column (TAIR by default) for the last row whose raw value is not
// -996 to find the final actual observation.
//
// # Field Names
//
// Station files use short codes; a fixed bidirectional map translates them to
// descriptive names (TAIR <-> "temperature", RELH <-> "relative humidity").
// Codes without a mapping keep their file name through [RenameFields].
//
// # Station Metadata
//
// Data files identify stations only by their four-letter ID. Coordinates come
// from an embedded copy of the GEOMESO station table; [EnrichWithStationInfo]
// joins latitude, longitude, and elevation onto a parsed table by binary
// search over the sorted station IDs. The join reads the raw STID column, so
// it must run before renaming.
package domain
