// Package models defines the wire types of the aqstream read API.
package models

import "time"

// Reading is one observation as served by the API.
type Reading struct {
	// Channel is the particulate channel ("PM1.0", "PM2.5", "PM10").
	Channel string `json:"channel"`

	// Mean is the smoothed concentration in µg/m³.
	Mean float64 `json:"mean"`

	// AQI is the published index string ("42"); omitted for channels
	// without a breakpoint table.
	AQI *string `json:"aqi,omitempty"`

	// AQIInRange is false when the published AQI is the compatibility zero
	// for an out-of-range concentration.
	AQIInRange *bool `json:"aqiInRange,omitempty"`

	// WindowSize is how many raw samples the window averaged.
	WindowSize int `json:"windowSize"`

	// At is when the smoothing window closed.
	At time.Time `json:"at"`
}

// ReadingList wraps a list of readings.
type ReadingList struct {
	Readings []Reading `json:"readings"`
}

// Health is the liveness/readiness response.
type Health struct {
	Status  string                 `json:"status"`
	Time    time.Time              `json:"time"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Health status values.
const (
	HealthStatusOK       = "ok"
	HealthStatusDegraded = "degraded"
)

// SubsystemStatus reports one dependency's health.
type SubsystemStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// SystemStatus is the authenticated ops status response.
type SystemStatus struct {
	Status     string            `json:"status"`
	Time       time.Time         `json:"time"`
	Subsystems []SubsystemStatus `json:"subsystems"`
}
