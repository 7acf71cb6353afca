package reading

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aqstream/aqstream/internal/sensor"
)

// ServiceConfig holds configuration for the reading service.
type ServiceConfig struct {
	// Repository is the backing store. Optional: with no repository the
	// service still serves the in-memory latest values.
	Repository Repository

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service serves observations to the API. The latest value per channel is
// held in memory so reads never block on the database; history queries go
// to the repository.
type Service struct {
	repo   Repository
	logger zerolog.Logger

	mu     sync.RWMutex
	latest map[sensor.Channel]*Observation
}

// NewService creates a new reading service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
		latest: make(map[sensor.Channel]*Observation),
	}
}

// Record stores an observation: the in-memory latest always, the repository
// when one is configured. A repository failure is logged and does not fail
// the record; the pipeline must not stall on storage.
func (s *Service) Record(ctx context.Context, o *Observation) {
	s.mu.Lock()
	s.latest[o.Channel] = o
	s.mu.Unlock()

	if s.repo == nil {
		return
	}
	if err := s.repo.Insert(ctx, o); err != nil {
		s.logger.Error().
			Err(err).
			Str("channel", string(o.Channel)).
			Str("observation_id", o.ID).
			Msg("failed to persist observation")
	}
}

// Latest returns the most recent observation for a channel, preferring the
// in-memory value and falling back to the repository after a restart.
func (s *Service) Latest(ctx context.Context, ch sensor.Channel) (*Observation, error) {
	s.mu.RLock()
	o := s.latest[ch]
	s.mu.RUnlock()
	if o != nil {
		return o, nil
	}

	if s.repo == nil {
		return nil, ErrNoObservations
	}

	o, err := s.repo.Latest(ctx, ch)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.latest[ch] == nil {
		s.latest[ch] = o
	}
	s.mu.Unlock()
	return o, nil
}

// LatestAll returns the most recent observation for every channel that has
// one, in canonical channel order.
func (s *Service) LatestAll(ctx context.Context) []*Observation {
	observations := make([]*Observation, 0, len(sensor.Channels))
	for _, ch := range sensor.Channels {
		o, err := s.Latest(ctx, ch)
		if err != nil {
			continue
		}
		observations = append(observations, o)
	}
	return observations
}

// History returns up to limit observations for a channel, newest first.
// Without a repository there is no history to serve, which is not an error.
func (s *Service) History(ctx context.Context, ch sensor.Channel, limit int) ([]*Observation, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.History(ctx, ch, limit)
}
