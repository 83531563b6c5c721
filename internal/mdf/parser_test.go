package mdf

import (
	"compress/gzip"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plainswx/mesonet-data-service/internal/domain"
)

const sampleFile = ` 101 NRMN TIME SERIES
  101 2024 04 26 0000
 STID STNM TIME RELH TAIR WSPD
 NRMN 121 0 55 21.5 3.2
 NRMN 121 5 -990 21.7 3.4
 NRMN 121 10 57 -996 -996
`

var refDate = time.Date(2024, 4, 26, 0, 0, 0, 0, time.UTC)

func parseString(t *testing.T, content string, opts Options) *domain.Table {
	t.Helper()
	table, err := Parse(FromReader(strings.NewReader(content)), opts)
	require.NoError(t, err)
	return table
}

func TestParse_ConvertTime(t *testing.T) {
	table := parseString(t, sampleFile, DefaultOptions())

	require.Len(t, table.Columns, 6)
	assert.Equal(t, 3, table.NumRows())

	// Reconstructed timestamps are referenceDate + minutes, per row.
	tc := table.Column("TIME")
	require.NotNil(t, tc)
	require.Equal(t, domain.KindTime, tc.Kind)
	assert.Equal(t, refDate, tc.Times[0])
	assert.Equal(t, refDate.Add(5*time.Minute), tc.Times[1])
	assert.Equal(t, refDate.Add(10*time.Minute), tc.Times[2])

	// STID is detected as a string column.
	stid := table.Column("STID")
	require.Equal(t, domain.KindString, stid.Kind)
	assert.Equal(t, []string{"NRMN", "NRMN", "NRMN"}, stid.Strings)

	// Sentinel cells are invalid but keep their raw value.
	tair := table.Column("TAIR")
	assert.Equal(t, []float64{21.5, 21.7, -996}, tair.Floats)
	assert.Equal(t, []bool{true, true, false}, tair.Valid)

	relh := table.Column("RELH")
	assert.Equal(t, []bool{true, false, true}, relh.Valid)
	assert.Equal(t, -990.0, relh.Floats[1])
}

func TestParse_RawTime(t *testing.T) {
	table := parseString(t, sampleFile, Options{})

	tc := table.Column("TIME")
	require.NotNil(t, tc)
	require.Equal(t, domain.KindFloat, tc.Kind)
	assert.Equal(t, []float64{0, 5, 10}, tc.Floats)
}

func TestParse_SentinelBand(t *testing.T) {
	// Every value in the band, one per row, plus the boundary neighbors.
	var sb strings.Builder
	sb.WriteString(" title\n 0 2024 04 26\n TAIR\n")
	for v := -990; v >= -999; v-- {
		fmt.Fprintf(&sb, " %d\n", v)
	}
	sb.WriteString(" -989\n -1000\n")

	table := parseString(t, sb.String(), Options{})
	c := table.Column("TAIR")
	require.Equal(t, 12, c.Len())
	for i := 0; i < 10; i++ {
		assert.False(t, c.Valid[i], "row %d (%v) should be invalid", i, c.Floats[i])
	}
	assert.True(t, c.Valid[10], "-989 is outside the band")
	assert.True(t, c.Valid[11], "-1000 is outside the band")
}

func TestParse_FieldSelection(t *testing.T) {
	// Requested out of order and lowercased; retained in file order.
	table := parseString(t, sampleFile, Options{Fields: []string{"tair", "stid", "time"}, ConvertTime: true})

	require.Len(t, table.Columns, 3)
	assert.Equal(t, "STID", table.Columns[0].Name)
	assert.Equal(t, "TIME", table.Columns[1].Name)
	assert.Equal(t, "TAIR", table.Columns[2].Name)
}

func TestParse_EndToEnd(t *testing.T) {
	content := ` some title line
  0 2024 04 26 0000
 STID TIME TAIR
 NRMN 0 21.5
 NRMN 5 -990
 NRMN 10 22.0
`
	table, err := Parse(FromReader(strings.NewReader(content)), DefaultOptions())
	require.NoError(t, err)
	domain.RenameTimeColumn(table)

	assert.False(t, table.HasColumn("TIME"))
	dt := table.Column("datetime")
	require.NotNil(t, dt)
	for i := 0; i < 3; i++ {
		assert.Equal(t, refDate.Add(time.Duration(i*5)*time.Minute), dt.Times[i])
	}

	tair := table.Column("TAIR")
	assert.False(t, tair.Valid[1])
	assert.True(t, tair.Valid[0])
	assert.True(t, tair.Valid[2])
}

func TestParse_Errors(t *testing.T) {
	t.Run("empty stream", func(t *testing.T) {
		_, err := Parse(FromReader(strings.NewReader("")), DefaultOptions())
		require.ErrorIs(t, err, ErrInvalidSource)
	})

	t.Run("missing date line", func(t *testing.T) {
		_, err := Parse(FromReader(strings.NewReader("title only\n")), DefaultOptions())
		require.ErrorIs(t, err, ErrMalformedHeader)
	})

	t.Run("non-integer date tokens", func(t *testing.T) {
		_, err := Parse(FromReader(strings.NewReader(" t\n 0 20x4 04 26\n TAIR\n 1\n")), DefaultOptions())
		require.ErrorIs(t, err, ErrMalformedHeader)
	})

	t.Run("short date line", func(t *testing.T) {
		_, err := Parse(FromReader(strings.NewReader(" t\n 0 2024\n TAIR\n 1\n")), DefaultOptions())
		require.ErrorIs(t, err, ErrMalformedHeader)
	})

	t.Run("column count mismatch", func(t *testing.T) {
		content := " t\n 0 2024 04 26\n STID TIME TAIR\n NRMN 0 21.5\n NRMN 5\n"
		_, err := Parse(FromReader(strings.NewReader(content)), DefaultOptions())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "2 values for 3 columns")
	})

	t.Run("unparseable numeric cell", func(t *testing.T) {
		content := " t\n 0 2024 04 26\n TIME TAIR\n 0 21.5\n 5 oops\n"
		_, err := Parse(FromReader(strings.NewReader(content)), DefaultOptions())
		require.Error(t, err)
	})

	t.Run("date line unparsed when not converting", func(t *testing.T) {
		content := " t\n garbage line with no date\n TAIR\n 21.5\n"
		table, err := Parse(FromReader(strings.NewReader(content)), Options{})
		require.NoError(t, err)
		assert.Equal(t, 1, table.NumRows())
	})
}

func TestSource_Path(t *testing.T) {
	dir := t.TempDir()

	t.Run("plain file", func(t *testing.T) {
		path := filepath.Join(dir, "202404261200.mdf")
		require.NoError(t, os.WriteFile(path, []byte(sampleFile), 0o644))

		table, err := Parse(FromPath(path), DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, 3, table.NumRows())
	})

	t.Run("gzip file", func(t *testing.T) {
		path := filepath.Join(dir, "202404261200.mdf.gz")
		f, err := os.Create(path)
		require.NoError(t, err)
		zw := gzip.NewWriter(f)
		_, err = zw.Write([]byte(sampleFile))
		require.NoError(t, err)
		require.NoError(t, zw.Close())
		require.NoError(t, f.Close())

		table, err := Parse(FromPath(path), DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, 3, table.NumRows())
	})

	t.Run("corrupt gzip", func(t *testing.T) {
		path := filepath.Join(dir, "bad.mdf.gz")
		require.NoError(t, os.WriteFile(path, []byte("not gzip"), 0o644))

		_, err := Parse(FromPath(path), DefaultOptions())
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Parse(FromPath(filepath.Join(dir, "nope.mdf")), DefaultOptions())
		require.Error(t, err)
	})

	t.Run("no path or stream", func(t *testing.T) {
		_, err := Parse(Source{}, DefaultOptions())
		require.ErrorIs(t, err, ErrInvalidSource)
	})
}
