package pipeline_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqstream/aqstream/internal/pipeline"
	"github.com/aqstream/aqstream/internal/publish"
	"github.com/aqstream/aqstream/internal/sensor"
)

// capturePublisher collects emissions on a channel so tests can wait for
// them without polling.
type capturePublisher struct {
	emissions chan publish.Emission
}

func newCapturePublisher() *capturePublisher {
	return &capturePublisher{emissions: make(chan publish.Emission, 16)}
}

func (c *capturePublisher) Publish(_ context.Context, e publish.Emission) error {
	c.emissions <- e
	return nil
}

func (c *capturePublisher) Close() error { return nil }

func (c *capturePublisher) next(t *testing.T) publish.Emission {
	t.Helper()
	select {
	case e := <-c.emissions:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for emission")
		return publish.Emission{}
	}
}

func (c *capturePublisher) expectNone(t *testing.T) {
	t.Helper()
	select {
	case e := <-c.emissions:
		t.Fatalf("unexpected emission on %s", e.Channel)
	case <-time.After(100 * time.Millisecond):
	}
}

func startPipeline(t *testing.T, cfg pipeline.Config) (*pipeline.Pipeline, context.Context) {
	t.Helper()
	p, err := pipeline.New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	p.Start(ctx)
	t.Cleanup(p.Close)
	return p, ctx
}

func feed(t *testing.T, ctx context.Context, p *pipeline.Pipeline, ch sensor.Channel, values ...float64) {
	t.Helper()
	for _, v := range values {
		require.NoError(t, p.Ingest(ctx, sensor.Sample{Channel: ch, Value: v, At: time.Now()}))
	}
}

func TestPipeline_WindowDecimation(t *testing.T) {
	pub := newCapturePublisher()
	p, ctx := startPipeline(t, pipeline.Config{
		WindowSize: 4,
		Publisher:  pub,
		Logger:     zerolog.Nop(),
	})

	// The concrete firmware scenario: four samples of 10 µg/m³ on PM2.5
	// emit a single mean of 10.0, mapping to AQI 41 (truncated 41.67).
	feed(t, ctx, p, sensor.ChannelPM25, 10, 10, 10, 10)

	e := pub.next(t)
	assert.Equal(t, sensor.ChannelPM25, e.Channel)
	assert.Equal(t, 10.0, e.Mean)
	assert.Equal(t, 4, e.WindowSize)
	require.NotNil(t, e.AQI)
	assert.Equal(t, 41, *e.AQI)
	assert.True(t, e.AQIInRange)
	assert.Equal(t, "41", e.AQIString())

	pub.expectNone(t)
}

func TestPipeline_PartialWindowEmitsNothing(t *testing.T) {
	pub := newCapturePublisher()
	p, ctx := startPipeline(t, pipeline.Config{
		WindowSize: 4,
		Publisher:  pub,
		Logger:     zerolog.Nop(),
	})

	feed(t, ctx, p, sensor.ChannelPM25, 10, 10, 10)
	pub.expectNone(t)
}

func TestPipeline_ChannelsAreIndependent(t *testing.T) {
	pub := newCapturePublisher()
	p, ctx := startPipeline(t, pipeline.Config{
		WindowSize: 2,
		Publisher:  pub,
		Logger:     zerolog.Nop(),
	})

	// One sample each on PM2.5 and PM10 must not close either window.
	feed(t, ctx, p, sensor.ChannelPM25, 20)
	feed(t, ctx, p, sensor.ChannelPM10, 60)
	pub.expectNone(t)

	feed(t, ctx, p, sensor.ChannelPM25, 30)
	e := pub.next(t)
	assert.Equal(t, sensor.ChannelPM25, e.Channel)
	assert.Equal(t, 25.0, e.Mean)
}

func TestPipeline_PM1HasNoAQI(t *testing.T) {
	pub := newCapturePublisher()
	p, ctx := startPipeline(t, pipeline.Config{
		WindowSize: 1,
		Publisher:  pub,
		Logger:     zerolog.Nop(),
	})

	feed(t, ctx, p, sensor.ChannelPM1, 7)
	e := pub.next(t)
	assert.Equal(t, sensor.ChannelPM1, e.Channel)
	assert.Nil(t, e.AQI)
	assert.Equal(t, "", e.AQIString())
}

func TestPipeline_OutOfRangeMeanPublishesCompatZero(t *testing.T) {
	pub := newCapturePublisher()
	p, ctx := startPipeline(t, pipeline.Config{
		WindowSize: 2,
		Publisher:  pub,
		Logger:     zerolog.Nop(),
	})

	feed(t, ctx, p, sensor.ChannelPM25, -10, -10)
	e := pub.next(t)
	require.NotNil(t, e.AQI)
	assert.Equal(t, 0, *e.AQI)
	assert.False(t, e.AQIInRange)
	assert.Equal(t, "0", e.AQIString())
}

func TestPipeline_DropsNonFiniteSamples(t *testing.T) {
	pub := newCapturePublisher()
	p, ctx := startPipeline(t, pipeline.Config{
		WindowSize: 2,
		Publisher:  pub,
		Logger:     zerolog.Nop(),
	})

	// NaN and Inf never reach the averager; the window closes on the two
	// finite samples only.
	feed(t, ctx, p, sensor.ChannelPM25, math.NaN(), 10, math.Inf(1), 20)
	e := pub.next(t)
	assert.Equal(t, 15.0, e.Mean)
}

func TestPipeline_OrderingPreservedPerChannel(t *testing.T) {
	pub := newCapturePublisher()
	p, ctx := startPipeline(t, pipeline.Config{
		WindowSize: 2,
		Publisher:  pub,
		Logger:     zerolog.Nop(),
	})

	feed(t, ctx, p, sensor.ChannelPM10, 10, 10, 20, 20, 30, 30)

	assert.Equal(t, 10.0, pub.next(t).Mean)
	assert.Equal(t, 20.0, pub.next(t).Mean)
	assert.Equal(t, 30.0, pub.next(t).Mean)
}

func TestPipeline_LegacyVsCorrectedPM10(t *testing.T) {
	run := func(corrected bool) publish.Emission {
		pub := newCapturePublisher()
		p, ctx := startPipeline(t, pipeline.Config{
			WindowSize:    1,
			PM10Corrected: corrected,
			Publisher:     pub,
			Logger:        zerolog.Nop(),
		})
		feed(t, ctx, p, sensor.ChannelPM10, 300)
		return pub.next(t)
	}

	legacy := run(false)
	require.NotNil(t, legacy.AQI)
	assert.Equal(t, 257, *legacy.AQI, "legacy table resolves 300 through the shifted segment")

	fixed := run(true)
	require.NotNil(t, fixed.AQI)
	assert.Equal(t, 173, *fixed.AQI, "corrected table maps 300 inside [254,354]")
}

func TestPipeline_IngestValidation(t *testing.T) {
	p, err := pipeline.New(pipeline.Config{Publisher: newCapturePublisher(), Logger: zerolog.Nop()})
	require.NoError(t, err)

	err = p.Ingest(context.Background(), sensor.Sample{Channel: sensor.ChannelPM25, Value: 1})
	assert.ErrorIs(t, err, pipeline.ErrNotStarted)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Close()

	err = p.Ingest(ctx, sensor.Sample{Channel: "SO2", Value: 1})
	assert.ErrorIs(t, err, pipeline.ErrUnknownChannel)
}

func TestPipeline_RequiresPublisher(t *testing.T) {
	_, err := pipeline.New(pipeline.Config{Logger: zerolog.Nop()})
	assert.Error(t, err)
}
