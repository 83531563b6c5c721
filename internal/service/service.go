// Package service composes fetching, parsing, and enrichment into the
// operations callers use: remote reads with optional multi-day assembly, and
// local file reads.
package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/plainswx/mesonet-data-service/internal/adapter/mesonet"
	"github.com/plainswx/mesonet-data-service/internal/domain"
	"github.com/plainswx/mesonet-data-service/internal/mdf"
	"github.com/plainswx/mesonet-data-service/internal/observability"
)

// Options mirrors the knobs of a remote read.
type Options struct {
	// Time is the requested timestamp: the snapshot time for network-wide
	// reads, or any instant of the wanted day for per-station reads. Nil
	// means "now" in UTC.
	Time *time.Time

	// Site selects a station's daily time series (case-insensitive). Empty
	// requests the network snapshot.
	Site string

	// Fields restricts which columns are parsed; empty keeps all.
	Fields []string

	// RenameFields swaps file codes for descriptive names after enrichment.
	RenameFields bool

	// ConvertTime reconstructs absolute timestamps from the TIME column and
	// renames it "datetime".
	ConvertTime bool

	// LookupStations joins latitude/longitude/elevation from the station table.
	LookupStations bool

	// FullDayRecord also fetches yesterday's file when Time is nil, giving a
	// continuous 24-hour record instead of today's partial one.
	FullDayRecord bool
}

// DefaultOptions enables time conversion, station lookup, and the full-day
// window, matching how current-conditions callers read data.
func DefaultOptions() Options {
	return Options{
		ConvertTime:    true,
		LookupStations: true,
		FullDayRecord:  true,
	}
}

// Service wires a fetcher and station table into the read operations.
type Service struct {
	fetcher  mesonet.Fetcher
	stations domain.StationLocator
	logger   *slog.Logger
	metrics  *observability.Metrics
	clock    clockwork.Clock
}

// New creates a Service. The station locator may be nil when callers never
// request station lookup.
func New(fetcher mesonet.Fetcher, stations domain.StationLocator, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		fetcher:  fetcher,
		stations: stations,
		logger:   logger,
		metrics:  metrics,
		clock:    clockwork.NewRealClock(),
	}
}

// SetClock swaps the time source used to resolve "now". Tests inject a fake
// clock for deterministic window assembly.
func (s *Service) SetClock(c clockwork.Clock) {
	if c == nil {
		s.clock = clockwork.NewRealClock()
		return
	}
	s.clock = c
}

// RemoteData fetches and parses one remote data file, or, for current-data
// requests with FullDayRecord set, assembles yesterday's and today's files
// into one continuous series: all of yesterday's rows followed by all of
// today's. Any underlying fetch or parse failure aborts the whole call.
func (s *Service) RemoteData(ctx context.Context, opts Options) (*domain.Table, error) {
	if opts.Time != nil {
		return s.readRemote(ctx, *opts.Time, opts)
	}

	now := s.clock.Now().UTC()
	today, err := s.readRemote(ctx, now, opts)
	if err != nil {
		return nil, err
	}
	if !opts.FullDayRecord {
		return today, nil
	}

	yesterday, err := s.readRemote(ctx, now.Add(-24*time.Hour), opts)
	if err != nil {
		return nil, err
	}

	combined, err := domain.Concat(yesterday, today)
	if err != nil {
		return nil, fmt.Errorf("assemble current window: %w", err)
	}
	s.logger.Debug("assembled current window",
		"yesterday_rows", yesterday.NumRows(),
		"today_rows", today.NumRows(),
	)
	return combined, nil
}

// ReadLocal parses and enriches a data file from disk or an open stream.
func (s *Service) ReadLocal(src mdf.Source, opts Options) (*domain.Table, error) {
	table, err := mdf.Parse(src, mdf.Options{Fields: opts.Fields, ConvertTime: opts.ConvertTime})
	if err != nil {
		s.metrics.ParseErrors.Inc()
		return nil, err
	}
	if err := s.enrich(table, opts); err != nil {
		return nil, err
	}
	return table, nil
}

func (s *Service) readRemote(ctx context.Context, at time.Time, opts Options) (*domain.Table, error) {
	raw, err := s.fetcher.Fetch(ctx, at, opts.Site)
	if err != nil {
		return nil, err
	}

	table, err := mdf.Parse(mdf.FromReader(bytes.NewReader(raw)), mdf.Options{
		Fields:      opts.Fields,
		ConvertTime: opts.ConvertTime,
	})
	if err != nil {
		s.metrics.ParseErrors.Inc()
		return nil, err
	}

	if err := s.enrich(table, opts); err != nil {
		return nil, err
	}
	return table, nil
}

// enrich post-processes a parsed table. Station lookup runs first because it
// reads the raw STID column name; renames follow.
func (s *Service) enrich(table *domain.Table, opts Options) error {
	if opts.LookupStations {
		if s.stations == nil {
			return fmt.Errorf("station lookup requested but no station table configured")
		}
		if err := domain.EnrichWithStationInfo(table, s.stations); err != nil {
			return err
		}
	}
	if opts.RenameFields {
		domain.RenameFields(table)
	}
	if opts.ConvertTime {
		domain.RenameTimeColumn(table)
	}
	return nil
}
