// Package publish delivers pipeline emissions to the outside world: the
// home-automation MQTT bus, InfluxDB, Pub/Sub, and the observation store.
package publish

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/aqstream/aqstream/internal/sensor"
)

// Emission is one closed smoothing window: the block mean for a channel
// and, for PM2.5 and PM10, the AQI computed from it.
type Emission struct {
	// ID uniquely identifies this emission across sinks.
	ID string `json:"id"`

	// Channel is the particulate channel the window belongs to.
	Channel sensor.Channel `json:"channel"`

	// Mean is the smoothed concentration in µg/m³.
	Mean float64 `json:"mean"`

	// AQI is the computed index, nil for channels without a breakpoint
	// table (PM1.0).
	AQI *int `json:"aqi,omitempty"`

	// AQIInRange is false when the concentration fell outside the
	// breakpoint table and the published AQI is the compatibility zero.
	AQIInRange bool `json:"aqi_in_range"`

	// WindowSize is how many raw samples the window averaged.
	WindowSize int `json:"window_size"`

	// At is when the window closed.
	At time.Time `json:"at"`
}

// AQIString renders the AQI the way the firmware publishes it: a decimal
// integer string, "0" when out of range, empty for channels without a table.
func (e Emission) AQIString() string {
	if e.AQI == nil {
		return ""
	}
	return strconv.Itoa(*e.AQI)
}

// Publisher delivers emissions to one sink.
type Publisher interface {
	// Publish delivers a single emission. Implementations must be safe for
	// concurrent use; the pipeline calls Publish from one goroutine per
	// channel.
	Publish(ctx context.Context, e Emission) error

	// Close releases sink resources.
	Close() error
}

// Fanout delivers each emission to every configured sink. A failing sink is
// logged and skipped; it never blocks delivery to the others.
type Fanout struct {
	sinks  []named
	logger zerolog.Logger
}

type named struct {
	name string
	pub  Publisher
}

// NewFanout creates an empty fanout.
func NewFanout(logger zerolog.Logger) *Fanout {
	return &Fanout{logger: logger}
}

// Add registers a sink under a name used for logging.
func (f *Fanout) Add(name string, p Publisher) {
	f.sinks = append(f.sinks, named{name: name, pub: p})
}

// Publish delivers the emission to all sinks.
func (f *Fanout) Publish(ctx context.Context, e Emission) error {
	for _, s := range f.sinks {
		if err := s.pub.Publish(ctx, e); err != nil {
			f.logger.Error().
				Err(err).
				Str("sink", s.name).
				Str("channel", string(e.Channel)).
				Str("emission_id", e.ID).
				Msg("sink publish failed")
		}
	}
	return nil
}

// Close closes every sink, returning the first error encountered.
func (f *Fanout) Close() error {
	var first error
	for _, s := range f.sinks {
		if err := s.pub.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
