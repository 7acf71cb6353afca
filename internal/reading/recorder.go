package reading

import (
	"context"

	"github.com/aqstream/aqstream/internal/publish"
)

// Recorder adapts the reading service to the publish.Publisher interface so
// the pipeline's fanout can persist emissions like any other sink.
type Recorder struct {
	service *Service
}

// NewRecorder creates a recorder sink backed by the given service.
func NewRecorder(service *Service) *Recorder {
	return &Recorder{service: service}
}

// Publish records the emission as an observation.
func (r *Recorder) Publish(ctx context.Context, e publish.Emission) error {
	r.service.Record(ctx, &Observation{
		ID:         e.ID,
		Channel:    e.Channel,
		Mean:       e.Mean,
		AQI:        e.AQI,
		AQIInRange: e.AQIInRange,
		WindowSize: e.WindowSize,
		At:         e.At,
	})
	return nil
}

// Close is a no-op.
func (r *Recorder) Close() error {
	return nil
}
