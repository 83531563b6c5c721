package mdf

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/plainswx/mesonet-data-service/internal/domain"
)

// Options controls parsing.
type Options struct {
	// Fields selects which columns to keep, matched case-insensitively.
	// Empty keeps all columns. Retained columns stay in file order
	// regardless of request order.
	Fields []string

	// ConvertTime parses the reference date from the second header line and
	// converts the TIME column from minutes since midnight into absolute
	// timestamps. When false both header lines are skipped unparsed and TIME
	// stays raw minutes.
	ConvertTime bool
}

// DefaultOptions returns the options used for normal remote reads.
func DefaultOptions() Options {
	return Options{ConvertTime: true}
}

// Parse reads one Mesonet data file into a table. The stream must carry the
// two header lines, a column-name row, and whitespace-delimited data rows.
// Any malformed header, shape mismatch, or unparseable numeric cell aborts
// the parse; no partial table is returned.
func Parse(src Source, opts Options) (*domain.Table, error) {
	r, err := src.open()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	// Title line.
	if !sc.Scan() {
		return nil, fmt.Errorf("%w: empty stream", ErrInvalidSource)
	}

	// Date line. Only parsed when the TIME column needs converting.
	if !sc.Scan() {
		return nil, fmt.Errorf("%w: missing date line", ErrMalformedHeader)
	}
	var refDate time.Time
	if opts.ConvertTime {
		refDate, err = parseReferenceDate(sc.Text())
		if err != nil {
			return nil, err
		}
	}

	// Column-name row.
	if !sc.Scan() {
		return nil, fmt.Errorf("%w: missing column header", ErrMalformedHeader)
	}
	names := strings.Fields(sc.Text())
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: empty column header", ErrMalformedHeader)
	}

	keep := selectColumns(names, opts.Fields)

	var rows [][]string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != len(names) {
			return nil, fmt.Errorf("parse row %d: %d values for %d columns", len(rows)+1, len(fields), len(names))
		}
		rows = append(rows, fields)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read data rows: %w", err)
	}

	table := &domain.Table{}
	for _, idx := range keep {
		col, err := buildColumn(names[idx], idx, rows, opts.ConvertTime, refDate)
		if err != nil {
			return nil, err
		}
		table.Columns = append(table.Columns, col)
	}
	return table, nil
}

// parseReferenceDate extracts the file's reference date from the second
// header line, whose tokens at positions 1-3 are year, month, and day.
func parseReferenceDate(line string) (time.Time, error) {
	tokens := strings.Fields(line)
	if len(tokens) < 4 {
		return time.Time{}, fmt.Errorf("%w: date line has %d tokens", ErrMalformedHeader, len(tokens))
	}
	var ymd [3]int
	for i := 0; i < 3; i++ {
		v, err := strconv.Atoi(tokens[i+1])
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: date token %q: %v", ErrMalformedHeader, tokens[i+1], err)
		}
		ymd[i] = v
	}
	return time.Date(ymd[0], time.Month(ymd[1]), ymd[2], 0, 0, 0, 0, time.UTC), nil
}

// selectColumns returns the indices of the columns to keep, in file order.
func selectColumns(names, fields []string) []int {
	if len(fields) == 0 {
		keep := make([]int, len(names))
		for i := range names {
			keep[i] = i
		}
		return keep
	}

	wanted := make(map[string]bool, len(fields))
	for _, f := range fields {
		wanted[strings.ToUpper(f)] = true
	}
	var keep []int
	for i, n := range names {
		if wanted[strings.ToUpper(n)] {
			keep = append(keep, i)
		}
	}
	return keep
}

// buildColumn assembles one output column. The first data token decides the
// column kind: unparseable as a number means a string column (STID). The
// TIME column becomes a time column when conversion is on.
func buildColumn(name string, idx int, rows [][]string, convertTime bool, refDate time.Time) (domain.Column, error) {
	isTime := convertTime && strings.EqualFold(name, "TIME")

	numeric := isTime
	if !numeric && len(rows) > 0 {
		_, err := strconv.ParseFloat(rows[0][idx], 64)
		numeric = err == nil
	}

	col := domain.Column{Name: name, Valid: make([]bool, len(rows))}
	switch {
	case isTime:
		col.Kind = domain.KindTime
		col.Times = make([]time.Time, len(rows))
		for r, row := range rows {
			minutes, err := strconv.Atoi(row[idx])
			if err != nil {
				return domain.Column{}, fmt.Errorf("parse %s row %d: %q is not a minute count", name, r+1, row[idx])
			}
			col.Times[r] = refDate.Add(time.Duration(minutes) * time.Minute)
			col.Valid[r] = true
		}
	case numeric:
		col.Kind = domain.KindFloat
		col.Floats = make([]float64, len(rows))
		for r, row := range rows {
			v, err := strconv.ParseFloat(row[idx], 64)
			if err != nil {
				return domain.Column{}, fmt.Errorf("parse %s row %d: %q is not numeric", name, r+1, row[idx])
			}
			col.Floats[r] = v
			col.Valid[r] = !domain.IsMissing(v)
		}
	default:
		col.Kind = domain.KindString
		col.Strings = make([]string, len(rows))
		for r, row := range rows {
			col.Strings[r] = row[idx]
			col.Valid[r] = true
		}
	}
	return col, nil
}
