// Package sensor defines the particulate sample model shared by the ingest
// and pipeline layers.
package sensor

import (
	"time"

	"github.com/aqstream/aqstream/internal/aqi"
)

// Channel identifies one particulate concentration channel.
type Channel = aqi.Pollutant

// The three channels a PMSX003 reports.
const (
	ChannelPM1  = aqi.PollutantPM1
	ChannelPM25 = aqi.PollutantPM25
	ChannelPM10 = aqi.PollutantPM10
)

// Channels lists all channels in canonical order.
var Channels = []Channel{ChannelPM1, ChannelPM25, ChannelPM10}

// Sample is a single concentration reading (µg/m³) on one channel.
type Sample struct {
	Channel Channel
	Value   float64
	At      time.Time
}

// ValidChannel reports whether c names a known channel.
func ValidChannel(c Channel) bool {
	switch c {
	case ChannelPM1, ChannelPM25, ChannelPM10:
		return true
	}
	return false
}
