// Package reading stores and serves the observations produced by the
// smoothing pipeline: one row per closed window, per channel.
package reading

import (
	"context"
	"errors"
	"time"

	"github.com/aqstream/aqstream/internal/sensor"
)

// Repository errors.
var (
	ErrNoObservations = errors.New("no observations for channel")
)

// Observation is one persisted pipeline emission.
type Observation struct {
	ID         string
	Channel    sensor.Channel
	Mean       float64
	AQI        *int
	AQIInRange bool
	WindowSize int
	At         time.Time
}

// Repository defines observation persistence.
type Repository interface {
	// Insert stores one observation.
	Insert(ctx context.Context, o *Observation) error

	// Latest returns the most recent observation for a channel.
	Latest(ctx context.Context, ch sensor.Channel) (*Observation, error)

	// History returns up to limit observations for a channel, newest first.
	History(ctx context.Context, ch sensor.Channel, limit int) ([]*Observation, error)
}
