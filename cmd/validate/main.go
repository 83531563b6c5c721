// Command validate checks a local Mesonet data file for integrity: header
// shape, column/row consistency, missing-value counts per column, and the
// time of the last actual observation.
//
// Usage:
//
//	go run ./cmd/validate -file ./20240426nrmn.mts
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/plainswx/mesonet-data-service/internal/domain"
	"github.com/plainswx/mesonet-data-service/internal/mdf"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "validate:", err)
		os.Exit(1)
	}
}

func run() error {
	file := flag.String("file", "", "data file to validate (.gz/.bz2 detected by suffix)")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -file")
	}

	table, err := mdf.Parse(mdf.FromPath(*file), mdf.DefaultOptions())
	if err != nil {
		return err
	}
	domain.RenameTimeColumn(table)

	fmt.Printf("%s: %d rows, %d columns\n", *file, table.NumRows(), len(table.Columns))

	for i := range table.Columns {
		c := &table.Columns[i]
		missing, future := 0, 0
		for row := 0; row < c.Len(); row++ {
			if !c.Valid[row] {
				missing++
				if c.Kind == domain.KindFloat && c.Floats[row] == domain.FutureObservation {
					future++
				}
			}
		}
		if missing > 0 {
			fmt.Printf("  %-10s %4d missing (%d future)\n", c.Name, missing, future)
		}
	}

	if table.HasColumn("TAIR") && table.HasColumn("datetime") {
		last, err := domain.LastObservedTime(table, "TAIR", "datetime")
		if err != nil {
			return err
		}
		fmt.Printf("last actual observation: %s\n", last.Format("2006-01-02 15:04 MST"))
	}

	return nil
}
