package domain

import (
	"errors"
	"time"
)

// Observation is the row-wise view of an observation table, used when
// publishing individual records downstream. Values holds the numeric fields
// by column name; cells flagged invalid are omitted.
type Observation struct {
	StationID  string             `json:"station_id"`
	ObservedAt time.Time          `json:"observed_at"`
	Values     map[string]float64 `json:"values"`
	Latitude   float64            `json:"latitude,omitempty"`
	Longitude  float64            `json:"longitude,omitempty"`
	Elevation  float64            `json:"elevation,omitempty"`
}

// Observations converts a table to row-wise observations. The table must have
// a STID column and a converted datetime column. Latitude, longitude, and
// elevation columns populate the coordinate fields when present; remaining
// numeric columns land in Values.
func (t *Table) Observations() ([]Observation, error) {
	stid := t.Column("STID")
	if stid == nil || stid.Kind != KindString {
		return nil, errors.New("observations: no STID column")
	}
	dt := t.Column("datetime")
	if dt == nil || dt.Kind != KindTime {
		return nil, errors.New("observations: no datetime column")
	}

	coord := map[string]bool{"latitude": true, "longitude": true, "elevation": true}

	obs := make([]Observation, t.NumRows())
	for row := range obs {
		o := Observation{
			StationID:  stid.Strings[row],
			ObservedAt: dt.Times[row],
			Values:     make(map[string]float64),
		}
		for i := range t.Columns {
			c := &t.Columns[i]
			if c.Kind != KindFloat || !c.Valid[row] {
				continue
			}
			switch {
			case c.Name == "latitude":
				o.Latitude = c.Floats[row]
			case c.Name == "longitude":
				o.Longitude = c.Floats[row]
			case c.Name == "elevation":
				o.Elevation = c.Floats[row]
			case !coord[c.Name]:
				o.Values[c.Name] = c.Floats[row]
			}
		}
		obs[row] = o
	}
	return obs, nil
}
