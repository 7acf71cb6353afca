// Package pipeline runs the per-channel smoothing and AQI computation:
// raw samples in, one published emission per closed window out.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aqstream/aqstream/internal/aqi"
	"github.com/aqstream/aqstream/internal/publish"
	"github.com/aqstream/aqstream/internal/sensor"
	"github.com/aqstream/aqstream/internal/smoothing"
)

// Pipeline errors.
var (
	ErrUnknownChannel = errors.New("unknown channel")
	ErrNotStarted     = errors.New("pipeline not started")
)

// DefaultWindowSize matches the firmware's aqi_window_size default.
const DefaultWindowSize = 30

// Config holds configuration for the pipeline.
type Config struct {
	// WindowSize is the decimating block size: samples per emission.
	// Default: DefaultWindowSize.
	WindowSize int

	// PM10Corrected selects the fixed PM10 breakpoint table instead of the
	// legacy one shipped in the firmware. Default false: published values
	// stay bit-for-bit compatible with fielded devices.
	PM10Corrected bool

	// QueueSize is the per-channel sample buffer. Default: 64.
	QueueSize int

	// Publisher receives emissions. Required.
	Publisher publish.Publisher

	// Logger for pipeline operations.
	Logger zerolog.Logger

	// Metrics instruments, optional.
	Metrics *Metrics
}

// channelState is one independent window state machine. Only its own
// goroutine touches the averager, so no locking is needed.
type channelState struct {
	channel sensor.Channel
	table   *aqi.Table
	avg     *smoothing.BlockAverager
	queue   chan sensor.Sample
}

// Pipeline fans raw samples out to three independent channel state machines
// (PM1.0, PM2.5, PM10). Each channel smooths with its own block averager
// and, when a window closes, computes the AQI and publishes synchronously,
// so emissions on a channel are never reordered.
type Pipeline struct {
	cfg      Config
	logger   zerolog.Logger
	channels map[sensor.Channel]*channelState

	startOnce sync.Once
	wg        sync.WaitGroup
	started   atomic.Bool
}

// New creates a pipeline. The returned pipeline is inert until Start.
func New(cfg Config) (*Pipeline, error) {
	if cfg.WindowSize == 0 {
		cfg.WindowSize = DefaultWindowSize
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Publisher == nil {
		return nil, errors.New("publisher is required")
	}

	pm10 := aqi.PM10Table(cfg.PM10Corrected)

	channels := make(map[sensor.Channel]*channelState, len(sensor.Channels))
	for _, ch := range sensor.Channels {
		avg, err := smoothing.NewBlockAverager(cfg.WindowSize)
		if err != nil {
			return nil, fmt.Errorf("channel %s: %w", ch, err)
		}

		state := &channelState{
			channel: ch,
			avg:     avg,
			queue:   make(chan sensor.Sample, cfg.QueueSize),
		}
		switch ch {
		case sensor.ChannelPM25:
			state.table = &aqi.PM25
		case sensor.ChannelPM10:
			state.table = &pm10
		}
		channels[ch] = state
	}

	return &Pipeline{
		cfg:      cfg,
		logger:   cfg.Logger,
		channels: channels,
	}, nil
}

// Start launches one goroutine per channel. The pipeline runs until the
// context is cancelled or Close is called.
func (p *Pipeline) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		p.started.Store(true)
		for _, state := range p.channels {
			p.wg.Add(1)
			go func(state *channelState) {
				defer p.wg.Done()
				p.run(ctx, state)
			}(state)
		}
		p.logger.Info().
			Int("window_size", p.cfg.WindowSize).
			Bool("pm10_corrected", p.cfg.PM10Corrected).
			Msg("pipeline started")
	})
}

// Ingest accepts one raw sample. Non-finite values are dropped, a full
// channel queue drops the sample rather than blocking the sensor reader.
func (p *Pipeline) Ingest(ctx context.Context, s sensor.Sample) error {
	if !p.started.Load() {
		return ErrNotStarted
	}
	state, ok := p.channels[s.Channel]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownChannel, s.Channel)
	}

	if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
		p.cfg.Metrics.recordDropped(ctx, s.Channel, "non_finite")
		p.logger.Warn().
			Str("channel", string(s.Channel)).
			Float64("value", s.Value).
			Msg("dropping non-finite sample")
		return nil
	}

	select {
	case state.queue <- s:
		p.cfg.Metrics.recordIngested(ctx, s.Channel)
		return nil
	default:
		p.cfg.Metrics.recordDropped(ctx, s.Channel, "queue_full")
		p.logger.Warn().
			Str("channel", string(s.Channel)).
			Msg("channel queue full, dropping sample")
		return nil
	}
}

// Close stops accepting samples and waits for the channel goroutines to
// drain. Partially accumulated windows are discarded, matching a device
// power-cycle.
func (p *Pipeline) Close() {
	// Swap started back so a late Ingest fails instead of sending on a
	// closed queue. Callers stop the sensor feed before Close.
	if !p.started.Swap(false) {
		return
	}
	for _, state := range p.channels {
		close(state.queue)
	}
	p.wg.Wait()
	p.logger.Info().Msg("pipeline stopped")
}

func (p *Pipeline) run(ctx context.Context, state *channelState) {
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-state.queue:
			if !ok {
				return
			}
			mean, emitted := state.avg.Add(s.Value)
			if !emitted {
				continue
			}
			p.emit(ctx, state, mean, s.At)
		}
	}
}

// emit publishes one closed window. Runs on the channel goroutine; the next
// window cannot close until publication returns, which preserves ordering.
func (p *Pipeline) emit(ctx context.Context, state *channelState, mean float64, at time.Time) {
	if at.IsZero() {
		at = time.Now()
	}

	e := publish.Emission{
		ID:         uuid.New().String(),
		Channel:    state.channel,
		Mean:       mean,
		WindowSize: state.avg.Window(),
		At:         at,
	}

	if state.table != nil {
		index, err := state.table.Index(mean)
		if err != nil {
			// Compatibility: publish the firmware's silent zero, but make
			// the degenerate case observable in logs and metrics.
			p.cfg.Metrics.recordOutOfRange(ctx, state.channel)
			p.logger.Warn().
				Str("channel", string(state.channel)).
				Float64("mean", mean).
				Msg("mean outside breakpoint table, publishing zero AQI")
			index = 0
			e.AQIInRange = false
		} else {
			e.AQIInRange = true
		}
		e.AQI = &index
	}

	p.cfg.Metrics.recordEmitted(ctx, state.channel)

	if err := p.cfg.Publisher.Publish(ctx, e); err != nil {
		p.logger.Error().
			Err(err).
			Str("channel", string(state.channel)).
			Msg("emission publish failed")
	}

	p.logger.Debug().
		Str("channel", string(state.channel)).
		Float64("mean", mean).
		Msg("window emitted")
}
