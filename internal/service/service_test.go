package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plainswx/mesonet-data-service/internal/mdf"
	"github.com/plainswx/mesonet-data-service/internal/observability"
	"github.com/plainswx/mesonet-data-service/internal/station"
)

// fileFetcher serves synthetic data files keyed by the request date, and
// records every call it sees.
type fileFetcher struct {
	files map[string]string // yyyymmdd -> file content
	calls []string
}

func (f *fileFetcher) Fetch(ctx context.Context, at time.Time, site string) ([]byte, error) {
	date := at.UTC().Format("20060102")
	f.calls = append(f.calls, date+":"+site)
	content, ok := f.files[date]
	if !ok {
		return nil, fmt.Errorf("no file for %s", date)
	}
	return []byte(content), nil
}

// stationFile builds a one-station daily file with the given reference date
// and one row per (minutes, tair) pair.
func stationFile(date time.Time, rows [][2]string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, " 101 NRMN TIME SERIES\n")
	fmt.Fprintf(&sb, " 101 %d %02d %02d 0000\n", date.Year(), date.Month(), date.Day())
	sb.WriteString(" STID TIME RELH TAIR\n")
	for _, r := range rows {
		fmt.Fprintf(&sb, " NRMN %s 55 %s\n", r[0], r[1])
	}
	return sb.String()
}

func newTestService(t *testing.T, f *fileFetcher) *Service {
	t.Helper()
	stations, err := station.Default()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(f, stations, logger, observability.NewMetricsForTesting())
}

func TestService_RemoteData_SpecificTime(t *testing.T) {
	day := time.Date(2024, 4, 26, 0, 0, 0, 0, time.UTC)
	fetcher := &fileFetcher{files: map[string]string{
		"20240426": stationFile(day, [][2]string{{"0", "21.5"}, {"5", "21.7"}}),
	}}
	svc := newTestService(t, fetcher)

	at := time.Date(2024, 4, 26, 12, 0, 0, 0, time.UTC)
	opts := DefaultOptions()
	opts.Time = &at
	opts.Site = "nrmn"

	table, err := svc.RemoteData(context.Background(), opts)
	require.NoError(t, err)

	// An explicit time is a single read even with FullDayRecord on.
	assert.Equal(t, []string{"20240426:nrmn"}, fetcher.calls)
	assert.Equal(t, 2, table.NumRows())

	// Default enrichment: station metadata joined, TIME renamed.
	assert.True(t, table.HasColumn("latitude"))
	assert.True(t, table.HasColumn("longitude"))
	assert.True(t, table.HasColumn("elevation"))
	assert.True(t, table.HasColumn("datetime"))
	assert.False(t, table.HasColumn("TIME"))

	lat := table.Column("latitude")
	assert.InDelta(t, 35.2356, lat.Floats[0], 1e-6)
}

func TestService_RemoteData_CurrentWindow(t *testing.T) {
	yesterday := time.Date(2024, 4, 25, 0, 0, 0, 0, time.UTC)
	today := time.Date(2024, 4, 26, 0, 0, 0, 0, time.UTC)
	fetcher := &fileFetcher{files: map[string]string{
		"20240425": stationFile(yesterday, [][2]string{{"1430", "18.0"}, {"1435", "18.2"}}),
		"20240426": stationFile(today, [][2]string{{"0", "17.9"}}),
	}}
	svc := newTestService(t, fetcher)
	svc.SetClock(clockwork.NewFakeClockAt(time.Date(2024, 4, 26, 0, 7, 0, 0, time.UTC)))

	opts := DefaultOptions()
	opts.Site = "nrmn"

	table, err := svc.RemoteData(context.Background(), opts)
	require.NoError(t, err)

	require.Len(t, fetcher.calls, 2)
	assert.Contains(t, fetcher.calls, "20240425:nrmn")
	assert.Contains(t, fetcher.calls, "20240426:nrmn")

	// Yesterday's rows come first, today's after, timestamps increasing.
	require.Equal(t, 3, table.NumRows())
	dt := table.Column("datetime")
	require.NotNil(t, dt)
	assert.Equal(t, yesterday.Add(1430*time.Minute), dt.Times[0])
	assert.Equal(t, yesterday.Add(1435*time.Minute), dt.Times[1])
	assert.Equal(t, today, dt.Times[2])
}

func TestService_RemoteData_TodayOnly(t *testing.T) {
	today := time.Date(2024, 4, 26, 0, 0, 0, 0, time.UTC)
	fetcher := &fileFetcher{files: map[string]string{
		"20240426": stationFile(today, [][2]string{{"0", "17.9"}}),
	}}
	svc := newTestService(t, fetcher)
	svc.SetClock(clockwork.NewFakeClockAt(time.Date(2024, 4, 26, 0, 7, 0, 0, time.UTC)))

	opts := DefaultOptions()
	opts.Site = "nrmn"
	opts.FullDayRecord = false

	table, err := svc.RemoteData(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"20240426:nrmn"}, fetcher.calls)
	assert.Equal(t, 1, table.NumRows())
}

func TestService_RemoteData_Renames(t *testing.T) {
	day := time.Date(2024, 4, 26, 0, 0, 0, 0, time.UTC)
	fetcher := &fileFetcher{files: map[string]string{
		"20240426": stationFile(day, [][2]string{{"0", "21.5"}}),
	}}
	svc := newTestService(t, fetcher)

	at := day
	opts := DefaultOptions()
	opts.Time = &at
	opts.Site = "nrmn"
	opts.RenameFields = true

	table, err := svc.RemoteData(context.Background(), opts)
	require.NoError(t, err)

	// Station lookup happens before the rename, so enrichment still worked
	// even though STID became "site".
	assert.True(t, table.HasColumn("site"))
	assert.True(t, table.HasColumn("temperature"))
	assert.True(t, table.HasColumn("relative humidity"))
	assert.True(t, table.HasColumn("latitude"))
	assert.False(t, table.HasColumn("STID"))
	assert.False(t, table.HasColumn("TAIR"))
}

func TestService_RemoteData_Errors(t *testing.T) {
	t.Run("fetch failure propagates", func(t *testing.T) {
		fetcher := &fileFetcher{files: map[string]string{}}
		svc := newTestService(t, fetcher)
		svc.SetClock(clockwork.NewFakeClockAt(time.Date(2024, 4, 26, 12, 0, 0, 0, time.UTC)))

		_, err := svc.RemoteData(context.Background(), DefaultOptions())
		require.Error(t, err)
	})

	t.Run("yesterday failure aborts the window", func(t *testing.T) {
		today := time.Date(2024, 4, 26, 0, 0, 0, 0, time.UTC)
		fetcher := &fileFetcher{files: map[string]string{
			"20240426": stationFile(today, [][2]string{{"0", "17.9"}}),
		}}
		svc := newTestService(t, fetcher)
		svc.SetClock(clockwork.NewFakeClockAt(time.Date(2024, 4, 26, 0, 7, 0, 0, time.UTC)))

		opts := DefaultOptions()
		opts.Site = "nrmn"
		_, err := svc.RemoteData(context.Background(), opts)
		require.Error(t, err)
	})

	t.Run("lookup without station table", func(t *testing.T) {
		day := time.Date(2024, 4, 26, 0, 0, 0, 0, time.UTC)
		fetcher := &fileFetcher{files: map[string]string{
			"20240426": stationFile(day, [][2]string{{"0", "21.5"}}),
		}}
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		svc := New(fetcher, nil, logger, observability.NewMetricsForTesting())

		at := day
		opts := DefaultOptions()
		opts.Time = &at
		opts.Site = "nrmn"
		_, err := svc.RemoteData(context.Background(), opts)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no station table")
	})

	t.Run("unknown station aborts", func(t *testing.T) {
		day := time.Date(2024, 4, 26, 0, 0, 0, 0, time.UTC)
		content := strings.ReplaceAll(stationFile(day, [][2]string{{"0", "21.5"}}), "NRMN", "ZZZZ")
		fetcher := &fileFetcher{files: map[string]string{"20240426": content}}
		svc := newTestService(t, fetcher)

		at := day
		opts := DefaultOptions()
		opts.Time = &at
		opts.Site = "zzzz"
		_, err := svc.RemoteData(context.Background(), opts)
		require.ErrorIs(t, err, station.ErrStationNotFound)
	})
}

func TestService_ReadLocal(t *testing.T) {
	day := time.Date(2024, 4, 26, 0, 0, 0, 0, time.UTC)
	content := stationFile(day, [][2]string{{"0", "21.5"}, {"5", "-996"}})
	svc := newTestService(t, &fileFetcher{})

	opts := DefaultOptions()
	opts.Fields = []string{"stid", "time", "tair"}

	table, err := svc.ReadLocal(mdf.FromReader(strings.NewReader(content)), opts)
	require.NoError(t, err)

	// RELH was filtered out; station columns were appended afterward.
	assert.False(t, table.HasColumn("RELH"))
	assert.True(t, table.HasColumn("TAIR"))
	assert.True(t, table.HasColumn("latitude"))

	tair := table.Column("TAIR")
	assert.True(t, tair.Valid[0])
	assert.False(t, tair.Valid[1])
}
