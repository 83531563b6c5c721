package domain

import (
	"fmt"
	"math"
)

// Unit conversions and derived quantities for presenting observations in
// imperial units. Inputs are the native Mesonet units (see FieldUnits).

// CToF converts Celsius to Fahrenheit.
func CToF(c float64) float64 {
	return c*9/5 + 32
}

// MetersPerSecToMPH converts a wind speed from m/s to miles per hour.
func MetersPerSecToMPH(ms float64) float64 {
	return ms * 3600 / 1609.344
}

// MMToInches converts rainfall from millimeters to inches.
func MMToInches(mm float64) float64 {
	return mm / 25.4
}

// Dewpoint computes the dewpoint in Celsius from air temperature (Celsius)
// and relative humidity (percent), using the Magnus approximation.
func Dewpoint(tempC, rh float64) float64 {
	const a, b = 17.625, 243.04
	if rh <= 0 {
		rh = 0.01
	}
	gamma := math.Log(rh/100) + a*tempC/(b+tempC)
	return b * gamma / (a - gamma)
}

// WindChill computes the NWS wind chill index in Fahrenheit from temperature
// (Fahrenheit) and wind speed (mph). The index is only defined for
// temperatures at or below 50F and winds above 3 mph; outside that range the
// air temperature is returned unchanged.
func WindChill(tempF, windMPH float64) float64 {
	if tempF > 50 || windMPH <= 3 {
		return tempF
	}
	v := math.Pow(windMPH, 0.16)
	return 35.74 + 0.6215*tempF - 35.75*v + 0.4275*tempF*v
}

// ConvertColumn applies fn to every valid cell of a numeric column in place.
// Cells flagged invalid keep their raw sentinel value.
func ConvertColumn(t *Table, name string, fn func(float64) float64) error {
	c := t.Column(name)
	if c == nil {
		return fmt.Errorf("convert column: no %s column", name)
	}
	if c.Kind != KindFloat {
		return fmt.Errorf("convert column: %s is not a numeric column", name)
	}
	for i, v := range c.Floats {
		if c.Valid[i] {
			c.Floats[i] = fn(v)
		}
	}
	return nil
}
