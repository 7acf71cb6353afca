// Package aqi converts particulate concentrations into Air Quality Index
// values using piecewise-linear interpolation over fixed breakpoint tables.
package aqi

import (
	"errors"
	"math"
)

// Mapping errors.
var (
	// ErrOutOfRange is returned when a concentration falls outside every
	// segment of the table (negative, above scale, or inside the legacy
	// PM10 gap).
	ErrOutOfRange = errors.New("concentration outside breakpoint table range")
)

// Pollutant identifies a particulate channel.
type Pollutant string

const (
	PollutantPM1  Pollutant = "PM1.0"
	PollutantPM25 Pollutant = "PM2.5"
	PollutantPM10 Pollutant = "PM10"
)

// Index maps a concentration (µg/m³) to an integer AQI value.
//
// The first segment whose inclusive range contains the concentration wins,
// scanning in table order. The interpolated value is truncated toward zero,
// never rounded, matching the original firmware arithmetic exactly.
// Concentrations outside every segment return ErrOutOfRange.
func (t Table) Index(conc float64) (int, error) {
	for _, s := range t.Segments {
		if conc >= s.CLo && conc <= s.CHi {
			v := (s.IHi-s.ILo)/(s.CHi-s.CLo)*(conc-s.CLo) + s.ILo
			return int(math.Trunc(v)), nil
		}
	}
	return 0, ErrOutOfRange
}

// IndexOrZero maps a concentration to an AQI value, returning 0 when the
// concentration is out of range. This reproduces the original firmware's
// silent-zero behavior and is what gets published; callers that need to
// distinguish clean air from a failed lookup use Index.
func (t Table) IndexOrZero(conc float64) int {
	v, err := t.Index(conc)
	if err != nil {
		return 0
	}
	return v
}
