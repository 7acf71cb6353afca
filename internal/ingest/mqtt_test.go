package ingest_test

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqstream/aqstream/internal/ingest"
	"github.com/aqstream/aqstream/internal/sensor"
	"github.com/aqstream/aqstream/internal/sensor/pmsx003"
)

func TestParseSample(t *testing.T) {
	received := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("full payload", func(t *testing.T) {
		s, err := ingest.ParseSample([]byte(`{"channel":"PM2.5","value":12.3,"at":"2025-06-01T11:59:58Z"}`), received)
		require.NoError(t, err)
		assert.Equal(t, sensor.ChannelPM25, s.Channel)
		assert.Equal(t, 12.3, s.Value)
		assert.Equal(t, time.Date(2025, 6, 1, 11, 59, 58, 0, time.UTC), s.At)
	})

	t.Run("missing timestamp uses receive time", func(t *testing.T) {
		s, err := ingest.ParseSample([]byte(`{"channel":"PM10","value":54}`), received)
		require.NoError(t, err)
		assert.Equal(t, received, s.At)
	})

	t.Run("unknown channel", func(t *testing.T) {
		_, err := ingest.ParseSample([]byte(`{"channel":"CO2","value":400}`), received)
		assert.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := ingest.ParseSample([]byte(`{`), received)
		assert.Error(t, err)
	})
}

func TestFrameSamples(t *testing.T) {
	frame := make([]byte, pmsx003.FrameSize)
	frame[0] = 0x42
	frame[1] = 0x4D
	binary.BigEndian.PutUint16(frame[2:4], 28)
	binary.BigEndian.PutUint16(frame[10:12], 5)  // PM1.0
	binary.BigEndian.PutUint16(frame[12:14], 13) // PM2.5
	binary.BigEndian.PutUint16(frame[14:16], 21) // PM10
	var sum uint16
	for _, b := range frame[:30] {
		sum += uint16(b)
	}
	binary.BigEndian.PutUint16(frame[30:32], sum)

	received := time.Now()
	samples, err := ingest.FrameSamples(frame, received)
	require.NoError(t, err)
	require.Len(t, samples, 3)

	assert.Equal(t, sensor.ChannelPM1, samples[0].Channel)
	assert.Equal(t, 5.0, samples[0].Value)
	assert.Equal(t, sensor.ChannelPM25, samples[1].Channel)
	assert.Equal(t, 13.0, samples[1].Value)
	assert.Equal(t, sensor.ChannelPM10, samples[2].Channel)
	assert.Equal(t, 21.0, samples[2].Value)
	for _, s := range samples {
		assert.Equal(t, received, s.At)
	}
}

func TestFrameSamples_RejectsCorruptFrame(t *testing.T) {
	_, err := ingest.FrameSamples(make([]byte, pmsx003.FrameSize), time.Now())
	assert.ErrorIs(t, err, pmsx003.ErrBadStartBytes)
}
