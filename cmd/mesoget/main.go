// Command mesoget fetches Oklahoma Mesonet data and prints it as a table,
// CSV, or JSON. With no -date it reads the current window (yesterday plus
// today for a continuous 24-hour record).
//
// Usage:
//
//	mesoget -site nrmn -fields stid,time,relh,tair,wspd,wmax -format csv
//	mesoget -site bris -date 20240426 -imperial
//	mesoget -file ./202404261200.mdf.gz -no-stations
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/plainswx/mesonet-data-service/internal/adapter/mesonet"
	"github.com/plainswx/mesonet-data-service/internal/config"
	"github.com/plainswx/mesonet-data-service/internal/domain"
	"github.com/plainswx/mesonet-data-service/internal/mdf"
	"github.com/plainswx/mesonet-data-service/internal/observability"
	"github.com/plainswx/mesonet-data-service/internal/service"
	"github.com/plainswx/mesonet-data-service/internal/station"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "mesoget:", err)
		os.Exit(1)
	}
}

func run() error {
	site := flag.String("site", "nrmn", "station ID to fetch a time series for; empty for a network snapshot")
	date := flag.String("date", "", "date (YYYYMMDD) or snapshot time (YYYYMMDDHHMM); empty for current data")
	fields := flag.String("fields", "", "comma-separated column codes to keep; empty for all")
	file := flag.String("file", "", "read a local data file (.gz/.bz2 detected by suffix) instead of fetching")
	rename := flag.Bool("rename", false, "rename column codes to descriptive names")
	rawTime := flag.Bool("raw-time", false, "keep TIME as raw minutes since midnight")
	noStations := flag.Bool("no-stations", false, "skip the station latitude/longitude/elevation join")
	imperial := flag.Bool("imperial", false, "convert to imperial units and add dewpoint/windchill (requires raw column codes)")
	format := flag.String("format", "table", "output format: table, csv, or json")
	flag.Parse()

	// Optional .env for MESONET_BASE_URL and friends.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := observability.NewLogger(cfg.LogLevel, "pretty")
	metrics := observability.NewMetricsForTesting()

	stations, err := station.Default()
	if err != nil {
		return err
	}

	client := mesonet.NewClient(cfg.BaseURL, cfg.FetchTimeout, metrics, logger)
	fetcher := mesonet.NewCachedFetcher(client, cfg.CacheSize, metrics)
	svc := service.New(fetcher, stations, logger, metrics)

	opts := service.DefaultOptions()
	opts.Site = *site
	opts.RenameFields = *rename
	opts.ConvertTime = !*rawTime
	opts.LookupStations = !*noStations
	if *fields != "" {
		opts.Fields = strings.Split(*fields, ",")
	}
	if *date != "" {
		at, err := parseDate(*date)
		if err != nil {
			return err
		}
		opts.Time = &at
	}

	var table *domain.Table
	if *file != "" {
		table, err = svc.ReadLocal(mdf.FromPath(*file), opts)
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.FetchTimeout)
		defer cancel()
		table, err = svc.RemoteData(ctx, opts)
	}
	if err != nil {
		return err
	}

	if *imperial {
		if err := toImperial(table, logger); err != nil {
			return err
		}
	}

	switch *format {
	case "table":
		return printTable(table)
	case "csv":
		return printCSV(table)
	case "json":
		return printJSON(table)
	default:
		return fmt.Errorf("unknown format %q", *format)
	}
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{"20060102", "200601021504"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid -date %q: want YYYYMMDD or YYYYMMDDHHMM", s)
}

// toImperial converts temperature, wind, and rainfall columns in place and
// appends dewpoint and windchill columns derived from them. Missing columns
// are skipped.
func toImperial(t *domain.Table, logger *slog.Logger) error {
	// Dewpoint needs TAIR in Celsius, so derive before converting.
	tair, relh := t.Column("TAIR"), t.Column("RELH")
	if tair != nil && relh != nil {
		n := t.NumRows()
		dew := domain.Column{Name: "dewpoint", Kind: domain.KindFloat, Floats: make([]float64, n), Valid: make([]bool, n)}
		for i := 0; i < n; i++ {
			if tair.Valid[i] && relh.Valid[i] {
				dew.Floats[i] = domain.CToF(domain.Dewpoint(tair.Floats[i], relh.Floats[i]))
				dew.Valid[i] = true
			}
		}
		if err := t.AppendColumn(dew); err != nil {
			return err
		}
	}

	conversions := map[string]func(float64) float64{
		"TAIR": domain.CToF,
		"TA9M": domain.CToF,
		"WSPD": domain.MetersPerSecToMPH,
		"WMAX": domain.MetersPerSecToMPH,
		"WS2M": domain.MetersPerSecToMPH,
		"RAIN": domain.MMToInches,
	}
	for name, fn := range conversions {
		if t.HasColumn(name) {
			if err := domain.ConvertColumn(t, name, fn); err != nil {
				return err
			}
		}
	}

	// Windchill needs Fahrenheit and mph, so derive after converting.
	tair, wspd := t.Column("TAIR"), t.Column("WSPD")
	if tair != nil && wspd != nil {
		n := t.NumRows()
		chill := domain.Column{Name: "windchill", Kind: domain.KindFloat, Floats: make([]float64, n), Valid: make([]bool, n)}
		for i := 0; i < n; i++ {
			if tair.Valid[i] && wspd.Valid[i] {
				chill.Floats[i] = domain.WindChill(tair.Floats[i], wspd.Floats[i])
				chill.Valid[i] = true
			}
		}
		if err := t.AppendColumn(chill); err != nil {
			return err
		}
	}

	logger.Debug("converted to imperial units")
	return nil
}

func cellString(c *domain.Column, row int) string {
	if !c.Valid[row] {
		return ""
	}
	switch c.Kind {
	case domain.KindString:
		return c.Strings[row]
	case domain.KindTime:
		return c.Times[row].Format(time.RFC3339)
	default:
		return strconv.FormatFloat(c.Floats[row], 'f', -1, 64)
	}
}

func printTable(t *domain.Table) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	names := make([]string, len(t.Columns))
	for i := range t.Columns {
		names[i] = t.Columns[i].Name
	}
	fmt.Fprintln(w, strings.Join(names, "\t"))

	for row := 0; row < t.NumRows(); row++ {
		cells := make([]string, len(t.Columns))
		for i := range t.Columns {
			cells[i] = cellString(&t.Columns[i], row)
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	return w.Flush()
}

func printCSV(t *domain.Table) error {
	w := csv.NewWriter(os.Stdout)
	names := make([]string, len(t.Columns))
	for i := range t.Columns {
		names[i] = t.Columns[i].Name
	}
	if err := w.Write(names); err != nil {
		return err
	}
	for row := 0; row < t.NumRows(); row++ {
		cells := make([]string, len(t.Columns))
		for i := range t.Columns {
			cells[i] = cellString(&t.Columns[i], row)
		}
		if err := w.Write(cells); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func printJSON(t *domain.Table) error {
	rows := make([]map[string]any, t.NumRows())
	for row := range rows {
		m := make(map[string]any, len(t.Columns))
		for i := range t.Columns {
			c := &t.Columns[i]
			if !c.Valid[row] {
				m[c.Name] = nil
				continue
			}
			switch c.Kind {
			case domain.KindString:
				m[c.Name] = c.Strings[row]
			case domain.KindTime:
				m[c.Name] = c.Times[row]
			default:
				m[c.Name] = c.Floats[row]
			}
		}
		rows[row] = m
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
